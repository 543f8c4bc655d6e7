package marketdata

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"btc-strategy-lab/internal/domain"
)

// ErrMalformedBar is returned when a CSV row cannot be parsed into a bar.
var ErrMalformedBar = errors.New("malformed bar row")

// csvColumns is the expected header: epoch-millisecond timestamp then OHLCV.
var csvColumns = []string{"timestamp", "open", "high", "low", "close", "volume"}

// LoadCSV reads a bar file into memory. The file must carry the
// standard header and one bar per row; ordering is not validated here,
// the engine rejects out-of-order bars during replay.
func LoadCSV(path string) ([]domain.Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open bars file: %w", err)
	}
	defer f.Close()

	return ReadBars(f)
}

// ReadBars parses CSV bar data from a reader.
func ReadBars(r io.Reader) ([]domain.Bar, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = len(csvColumns)

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i, col := range csvColumns {
		if header[i] != col {
			return nil, fmt.Errorf("%w: header column %d is %q, want %q", ErrMalformedBar, i, header[i], col)
		}
	}

	var bars []domain.Bar
	for row := 2; ; row++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return bars, nil
		}
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", ErrMalformedBar, row, err)
		}

		bar, err := parseBar(record)
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", ErrMalformedBar, row, err)
		}
		bars = append(bars, bar)
	}
}

func parseBar(record []string) (domain.Bar, error) {
	ts, err := strconv.ParseInt(record[0], 10, 64)
	if err != nil {
		return domain.Bar{}, fmt.Errorf("timestamp %q: %v", record[0], err)
	}

	fields := make([]float64, 5)
	for i := 0; i < 5; i++ {
		v, err := strconv.ParseFloat(record[i+1], 64)
		if err != nil {
			return domain.Bar{}, fmt.Errorf("%s %q: %v", csvColumns[i+1], record[i+1], err)
		}
		fields[i] = v
	}
	if fields[4] < 0 {
		return domain.Bar{}, fmt.Errorf("negative volume %v", fields[4])
	}

	return domain.Bar{
		TimestampMs: ts,
		Open:        fields[0],
		High:        fields[1],
		Low:         fields[2],
		Close:       fields[3],
		Volume:      fields[4],
	}, nil
}
