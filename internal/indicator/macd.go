package indicator

// MACD tracks the MACD line (fast EMA minus slow EMA) and its signal
// line (EMA of the MACD line) incrementally.
type MACD struct {
	fast   *EMA
	slow   *EMA
	signal *EMA

	line      float64
	signalVal float64
}

// NewMACD creates a MACD with the given fast/slow/signal periods.
func NewMACD(fastPeriod, slowPeriod, signalPeriod int) *MACD {
	return &MACD{
		fast:   NewEMA(fastPeriod),
		slow:   NewEMA(slowPeriod),
		signal: NewEMA(signalPeriod),
	}
}

// Update feeds the next close price. The signal line only starts
// accumulating once both source EMAs are warm, so Ready implies at
// least slow+signal samples have been seen.
func (m *MACD) Update(close float64) {
	fast := m.fast.Update(close)
	slow := m.slow.Update(close)

	if !m.fast.Ready() || !m.slow.Ready() {
		return
	}

	m.line = fast - slow
	m.signalVal = m.signal.Update(m.line)
}

// Line returns the current MACD line value.
func (m *MACD) Line() float64 {
	return m.line
}

// Signal returns the current signal line value.
func (m *MACD) Signal() float64 {
	return m.signalVal
}

// Histogram returns MACD line minus signal line. Crossovers are
// detected by comparing its sign between consecutive bars.
func (m *MACD) Histogram() float64 {
	return m.line - m.signalVal
}

// Ready reports whether both the slow EMA and the signal EMA are warm.
func (m *MACD) Ready() bool {
	return m.slow.Ready() && m.signal.Ready()
}
