package domain

// Bar represents one time-bucketed OHLCV market-data record.
// Bars are immutable and ordered by timestamp within a series;
// duplicate timestamps are not allowed.
type Bar struct {
	TimestampMs int64   // bucket start, Unix timestamp in milliseconds
	Open        float64 // first traded price in the bucket
	High        float64 // highest traded price
	Low         float64 // lowest traded price
	Close       float64 // last traded price
	Volume      float64 // total traded volume
}
