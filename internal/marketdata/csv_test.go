package marketdata

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

const sampleCSV = `timestamp,open,high,low,close,volume
60000,100,105,99,104,12.5
120000,104,110,103,109,8.25
180000,109,109,101,102,20
`

func TestReadBars(t *testing.T) {
	bars, err := ReadBars(strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatalf("ReadBars failed: %v", err)
	}
	if len(bars) != 3 {
		t.Fatalf("expected 3 bars, got %d", len(bars))
	}

	first := bars[0]
	if first.TimestampMs != 60_000 || first.Open != 100 || first.High != 105 ||
		first.Low != 99 || first.Close != 104 || first.Volume != 12.5 {
		t.Errorf("unexpected first bar: %+v", first)
	}
}

func TestReadBars_RejectsBadInput(t *testing.T) {
	cases := []struct {
		name string
		data string
	}{
		{"wrong header", "time,open,high,low,close,volume\n60000,1,1,1,1,1\n"},
		{"non-numeric close", "timestamp,open,high,low,close,volume\n60000,1,1,1,abc,1\n"},
		{"missing column", "timestamp,open,high,low,close,volume\n60000,1,1,1,1\n"},
		{"negative volume", "timestamp,open,high,low,close,volume\n60000,1,1,1,1,-5\n"},
		{"fractional timestamp", "timestamp,open,high,low,close,volume\n60000.5,1,1,1,1,1\n"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ReadBars(strings.NewReader(tc.data)); !errors.Is(err, ErrMalformedBar) {
				t.Errorf("expected ErrMalformedBar, got %v", err)
			}
		})
	}
}

func TestReadBars_HeaderOnly(t *testing.T) {
	bars, err := ReadBars(strings.NewReader("timestamp,open,high,low,close,volume\n"))
	if err != nil {
		t.Fatalf("ReadBars failed: %v", err)
	}
	if len(bars) != 0 {
		t.Errorf("expected no bars, got %d", len(bars))
	}
}

func TestSliceSource(t *testing.T) {
	bars, err := ReadBars(strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatalf("ReadBars failed: %v", err)
	}
	src := NewSliceSource(bars)
	ctx := context.Background()

	for i := 0; i < len(bars); i++ {
		bar, err := src.Next(ctx)
		if err != nil {
			t.Fatalf("bar %d: %v", i, err)
		}
		if bar != bars[i] {
			t.Errorf("bar %d: expected %+v, got %+v", i, bars[i], bar)
		}
	}
	if _, err := src.Next(ctx); !errors.Is(err, io.EOF) {
		t.Errorf("expected io.EOF after last bar, got %v", err)
	}

	src.Reset()
	if bar, err := src.Next(ctx); err != nil || bar != bars[0] {
		t.Errorf("after Reset: expected first bar again, got %+v, %v", bar, err)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := src.Next(cancelled); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
