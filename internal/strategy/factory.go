package strategy

import (
	"errors"

	"btc-strategy-lab/internal/domain"
)

// Factory errors. All indicate invalid configuration and fail the run
// before any simulation starts.
var (
	ErrUnknownStrategyType = errors.New("unknown strategy type")
	ErrInvalidPeriod       = errors.New("indicator periods must be positive")
	ErrFastNotBelowSlow    = errors.New("fast period must be below slow period")
	ErrInvalidThreshold    = errors.New("volume threshold must be positive")
	ErrInvalidLookback     = errors.New("price lookback must be positive")
	ErrInvalidHoldBars     = errors.New("holding period must be positive")
	ErrInvalidTrailPct     = errors.New("trailing stop percentage must be in (0, 1)")
)

// Defaults applied when a config omits a parameter. MACD periods and the
// volume gate follow the conventional 12/26/9 with a 20-bar volume
// average and a 2x surge threshold.
const (
	DefaultFastPeriod      = 12
	DefaultSlowPeriod      = 26
	DefaultSignalPeriod    = 9
	DefaultVolumePeriod    = 20
	DefaultVolumeThreshold = 2.0
	DefaultPriceLookback   = 3
	DefaultMinPriceMove    = 0.0005
	DefaultHoldBars        = 20
	DefaultTrailPct        = 0.02
)

// FromConfig creates a Strategy from domain.StrategyConfig.
// Omitted parameters take defaults; present but invalid parameters
// return a configuration error.
func FromConfig(cfg domain.StrategyConfig) (Strategy, error) {
	switch cfg.StrategyType {
	case domain.StrategyTypeMACDVolume:
		return fromMACDVolumeConfig(cfg)
	case domain.StrategyTypeVolumeSurge:
		return fromVolumeSurgeConfig(cfg)
	default:
		return nil, ErrUnknownStrategyType
	}
}

func fromMACDVolumeConfig(cfg domain.StrategyConfig) (*MACDVolumeStrategy, error) {
	fast := intOrDefault(cfg.FastPeriod, DefaultFastPeriod)
	slow := intOrDefault(cfg.SlowPeriod, DefaultSlowPeriod)
	signal := intOrDefault(cfg.SignalPeriod, DefaultSignalPeriod)
	volPeriod := intOrDefault(cfg.VolumePeriod, DefaultVolumePeriod)
	volThreshold := floatOrDefault(cfg.VolumeThreshold, DefaultVolumeThreshold)

	if fast <= 0 || slow <= 0 || signal <= 0 || volPeriod <= 0 {
		return nil, ErrInvalidPeriod
	}
	if fast >= slow {
		return nil, ErrFastNotBelowSlow
	}
	if volThreshold <= 0 {
		return nil, ErrInvalidThreshold
	}

	return NewMACDVolumeStrategy(name(cfg), fast, slow, signal, volPeriod, volThreshold), nil
}

func fromVolumeSurgeConfig(cfg domain.StrategyConfig) (*VolumeSurgeStrategy, error) {
	volPeriod := intOrDefault(cfg.VolumePeriod, DefaultVolumePeriod)
	volThreshold := floatOrDefault(cfg.VolumeThreshold, DefaultVolumeThreshold)
	lookback := intOrDefault(cfg.PriceLookback, DefaultPriceLookback)
	minMove := floatOrDefault(cfg.MinPriceMove, DefaultMinPriceMove)
	holdBars := intOrDefault(cfg.HoldBars, DefaultHoldBars)
	trailPct := floatOrDefault(cfg.TrailPct, DefaultTrailPct)

	if volPeriod <= 0 {
		return nil, ErrInvalidPeriod
	}
	if volThreshold <= 0 {
		return nil, ErrInvalidThreshold
	}
	if lookback <= 0 {
		return nil, ErrInvalidLookback
	}
	if holdBars <= 0 {
		return nil, ErrInvalidHoldBars
	}
	if trailPct <= 0 || trailPct >= 1 {
		return nil, ErrInvalidTrailPct
	}

	return NewVolumeSurgeStrategy(name(cfg), volPeriod, volThreshold, lookback, minMove, holdBars, trailPct), nil
}

func name(cfg domain.StrategyConfig) string {
	if cfg.Name != "" {
		return cfg.Name
	}
	return cfg.StrategyType
}

func intOrDefault(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}

func floatOrDefault(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}
