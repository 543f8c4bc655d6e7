package backtest

import "errors"

var (
	// ErrBarOutOfOrder is returned when a bar's timestamp does not
	// strictly increase over its predecessor.
	ErrBarOutOfOrder = errors.New("bar timestamps must strictly increase")

	// ErrDataGap is returned when the spacing between consecutive bars
	// exceeds the configured tolerance.
	ErrDataGap = errors.New("gap between bars exceeds tolerance")
)
