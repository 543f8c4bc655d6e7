package domain

// StrategyConfig represents strategy configuration parameters.
// Pointer fields are required only for the strategy type that uses them.
type StrategyConfig struct {
	StrategyType string `yaml:"type"` // "MACD_VOLUME" | "VOLUME_SURGE"
	Name         string `yaml:"name"` // unique within a run; defaults to the type

	// MACD_VOLUME parameters
	FastPeriod   *int `yaml:"fast_period,omitempty"`
	SlowPeriod   *int `yaml:"slow_period,omitempty"`
	SignalPeriod *int `yaml:"signal_period,omitempty"`

	// VOLUME_SURGE parameters
	PriceLookback *int     `yaml:"price_lookback,omitempty"`
	MinPriceMove  *float64 `yaml:"min_price_move,omitempty"`
	HoldBars      *int     `yaml:"hold_bars,omitempty"`
	TrailPct      *float64 `yaml:"trail_pct,omitempty"`

	// Common parameters
	VolumePeriod    *int     `yaml:"volume_period,omitempty"`
	VolumeThreshold *float64 `yaml:"volume_threshold,omitempty"`
}

// Strategy type constants.
const (
	StrategyTypeMACDVolume  = "MACD_VOLUME"
	StrategyTypeVolumeSurge = "VOLUME_SURGE"
)
