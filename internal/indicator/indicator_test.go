package indicator

import (
	"math"
	"testing"
)

func TestEMA_SeedsWithSMA(t *testing.T) {
	e := NewEMA(3)

	e.Update(10)
	if e.Ready() {
		t.Fatal("EMA ready before warm-up window filled")
	}
	e.Update(20)
	v := e.Update(30)

	if !e.Ready() {
		t.Fatal("EMA not ready after period samples")
	}
	if v != 20 {
		t.Errorf("expected seed SMA 20, got %v", v)
	}
}

func TestEMA_Smoothing(t *testing.T) {
	e := NewEMA(3)
	e.Update(10)
	e.Update(20)
	e.Update(30) // seed = 20

	// k = 2/(3+1) = 0.5 → (40-20)*0.5 + 20 = 30
	v := e.Update(40)
	if math.Abs(v-30) > 1e-12 {
		t.Errorf("expected 30, got %v", v)
	}
}

func TestEMA_Deterministic(t *testing.T) {
	samples := []float64{5, 9, 3, 7, 11, 2, 8, 6}

	run := func() float64 {
		e := NewEMA(4)
		var last float64
		for _, s := range samples {
			last = e.Update(s)
		}
		return last
	}

	if run() != run() {
		t.Error("identical inputs produced different EMA values")
	}
}

func TestMACD_WarmUp(t *testing.T) {
	m := NewMACD(2, 4, 3)

	// slow needs 4 samples, signal needs 3 MACD values on top.
	for i := 0; i < 5; i++ {
		m.Update(100)
		if m.Ready() {
			t.Fatalf("MACD ready after only %d bars", i+1)
		}
	}
	m.Update(100)
	if !m.Ready() {
		t.Fatal("MACD not ready after slow+signal bars")
	}
}

func TestMACD_FlatSeriesHasZeroHistogram(t *testing.T) {
	m := NewMACD(3, 6, 3)
	for i := 0; i < 20; i++ {
		m.Update(250)
	}
	if math.Abs(m.Histogram()) > 1e-12 {
		t.Errorf("flat series should have zero histogram, got %v", m.Histogram())
	}
}

func TestMACD_RisingSeriesPositiveLine(t *testing.T) {
	m := NewMACD(3, 6, 3)
	for i := 0; i < 30; i++ {
		m.Update(100 + float64(i)*5)
	}
	if m.Line() <= 0 {
		t.Errorf("rising series should have positive MACD line, got %v", m.Line())
	}
}

func TestRollingMean_Window(t *testing.T) {
	r := NewRollingMean(3)

	r.Update(3)
	if r.Ready() {
		t.Fatal("rolling mean ready with partial window")
	}
	if r.Mean() != 3 {
		t.Errorf("partial mean: expected 3, got %v", r.Mean())
	}

	r.Update(6)
	r.Update(9)
	if !r.Ready() {
		t.Fatal("rolling mean not ready with full window")
	}
	if r.Mean() != 6 {
		t.Errorf("expected 6, got %v", r.Mean())
	}

	// 3 is evicted: window is [6 9 12]
	r.Update(12)
	if r.Mean() != 9 {
		t.Errorf("expected 9 after eviction, got %v", r.Mean())
	}
}

func TestRollingMean_EmptyIsZero(t *testing.T) {
	r := NewRollingMean(5)
	if r.Mean() != 0 {
		t.Errorf("empty mean should be 0, got %v", r.Mean())
	}
}
