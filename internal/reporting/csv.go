package reporting

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"time"

	"btc-strategy-lab/internal/domain"
)

// WriteTradesCSV writes a strategy's trade ledger to path.
func WriteTradesCSV(path string, result *domain.StrategyResult) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return RenderTradesCSV(f, result.Trades)
}

// RenderTradesCSV writes the ledger as CSV, one row per closed trade,
// in ledger (chronological) order.
func RenderTradesCSV(w io.Writer, trades []*domain.Trade) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	header := []string{
		"index",
		"entry_time_utc",
		"exit_time_utc",
		"side",
		"quantity",
		"entry_price",
		"exit_price",
		"fees",
		"pnl",
		"profit_pct",
		"duration_mins",
		"exit_reason",
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for i, t := range trades {
		row := []string{
			strconv.Itoa(i + 1),
			fmtTimeMs(t.EntryTimeMs),
			fmtTimeMs(t.ExitTimeMs),
			string(t.Side),
			fmtFloat(t.Quantity),
			fmtFloat(t.EntryPrice),
			fmtFloat(t.ExitPrice),
			fmtFloat(t.Fees),
			fmtFloat(t.RealizedPnL),
			fmtFloat(profitPct(t)),
			fmtFloat(float64(t.ExitTimeMs-t.EntryTimeMs) / 60_000),
			t.ExitReason,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	return cw.Error()
}

// profitPct is the realized return relative to the capital committed
// at entry, in percent.
func profitPct(t *domain.Trade) float64 {
	committed := t.EntryPrice * t.Quantity
	if committed <= 0 {
		return 0
	}
	return t.RealizedPnL / committed * 100
}

func fmtTimeMs(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(time.RFC3339)
}

func fmtFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
