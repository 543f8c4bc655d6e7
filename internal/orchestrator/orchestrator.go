// Package orchestrator coordinates test runs: it fans the bar stream
// out to one engine per strategy, gathers their results and persists
// the completed run.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"btc-strategy-lab/internal/backtest"
	"btc-strategy-lab/internal/domain"
	"btc-strategy-lab/internal/marketdata"
	"btc-strategy-lab/internal/observability"
	"btc-strategy-lab/internal/simulation"
	"btc-strategy-lab/internal/storage"
	"btc-strategy-lab/internal/strategy"
)

var (
	// ErrRunInProgress is returned when a run is requested while another
	// is still executing. At most one run is in flight per process.
	ErrRunInProgress = errors.New("a test run is already in progress")

	// ErrNoStrategies is returned when a run is requested with no
	// strategies configured.
	ErrNoStrategies = errors.New("no strategies configured")

	// ErrDuplicateStrategy is returned when two configured strategies
	// share a name.
	ErrDuplicateStrategy = errors.New("duplicate strategy name")
)

// Options for creating an Orchestrator.
type Options struct {
	// Strategies are built fresh for every run; each run starts from
	// clean indicator state.
	Strategies []domain.StrategyConfig

	// Simulation holds the execution parameters shared by all strategies.
	Simulation simulation.Config

	// MaxGapMs and MaxCurvePoints are passed through to each engine.
	MaxGapMs       int64
	MaxCurvePoints int

	// ResultStore receives completed runs. Required.
	ResultStore storage.ResultStore

	Logger *log.Logger
}

// Orchestrator executes backtest runs. Safe for concurrent use; only
// one run executes at a time, later requests are rejected with
// ErrRunInProgress.
type Orchestrator struct {
	opts    Options
	logger  *log.Logger
	running atomic.Bool
}

// New creates an Orchestrator and validates its configuration,
// including that every strategy config can be built.
func New(opts Options) (*Orchestrator, error) {
	if len(opts.Strategies) == 0 {
		return nil, ErrNoStrategies
	}
	if err := opts.Simulation.Validate(); err != nil {
		return nil, err
	}

	// Unnamed strategies fall back to their type, the same default the
	// factory applies.
	names := make(map[string]struct{}, len(opts.Strategies))
	for i, cfg := range opts.Strategies {
		if cfg.Name == "" {
			cfg.Name = cfg.StrategyType
			opts.Strategies[i] = cfg
		}
		if _, err := strategy.FromConfig(cfg); err != nil {
			return nil, fmt.Errorf("strategy %s: %w", cfg.Name, err)
		}
		if _, dup := names[cfg.Name]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateStrategy, cfg.Name)
		}
		names[cfg.Name] = struct{}{}
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Orchestrator{opts: opts, logger: logger}, nil
}

// Running reports whether a run is currently executing.
func (o *Orchestrator) Running() bool {
	return o.running.Load()
}

// Run replays an in-memory bar slice through every configured strategy
// in parallel and persists the completed run. Each strategy gets its
// own replay of the same bars; a failure in one strategy is captured in
// its result and never affects siblings.
func (o *Orchestrator) Run(ctx context.Context, bars []domain.Bar) (*domain.TestRun, error) {
	if !o.running.CompareAndSwap(false, true) {
		observability.RecordRunRejected()
		return nil, ErrRunInProgress
	}
	defer o.running.Store(false)

	sources := make(map[string]marketdata.BarSource, len(o.opts.Strategies))
	for _, cfg := range o.opts.Strategies {
		sources[cfg.Name] = marketdata.NewSliceSource(bars)
	}
	return o.execute(ctx, sources)
}

// RunStream fans a single bar source out to every configured strategy
// and runs them in parallel until the source ends or the context is
// cancelled. Used for long-running live evaluation.
func (o *Orchestrator) RunStream(ctx context.Context, src marketdata.BarSource) (*domain.TestRun, error) {
	if !o.running.CompareAndSwap(false, true) {
		observability.RecordRunRejected()
		return nil, ErrRunInProgress
	}
	defer o.running.Store(false)

	fan := newFanOut(len(o.opts.Strategies))
	sources := make(map[string]marketdata.BarSource, len(o.opts.Strategies))
	for i, cfg := range o.opts.Strategies {
		sources[cfg.Name] = fan.source(i)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		fan.pump(ctx, src)
	}()

	run, err := o.execute(ctx, sources)
	wg.Wait()
	return run, err
}

func (o *Orchestrator) execute(ctx context.Context, sources map[string]marketdata.BarSource) (*domain.TestRun, error) {
	started := time.Now()
	observability.RecordRunStarted()

	run := &domain.TestRun{
		RunID:       uuid.NewString(),
		StartedAtMs: started.UnixMilli(),
		Results:     make(map[string]*domain.StrategyResult, len(o.opts.Strategies)),
	}
	o.logger.Printf("run %s: starting %d strategies", run.RunID, len(o.opts.Strategies))

	engineOpts := backtest.Options{
		Simulation:     o.opts.Simulation,
		MaxGapMs:       o.opts.MaxGapMs,
		MaxCurvePoints: o.opts.MaxCurvePoints,
	}

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for _, cfg := range o.opts.Strategies {
		wg.Add(1)
		go func(cfg domain.StrategyConfig) {
			defer wg.Done()

			src := sources[cfg.Name]
			result, err := o.runStrategy(ctx, src, cfg, engineOpts)
			if a, ok := src.(interface{ Abandon() }); ok {
				a.Abandon()
			}

			mu.Lock()
			defer mu.Unlock()
			run.Results[cfg.Name] = result
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				run.Partial = true
			}
		}(cfg)
	}
	wg.Wait()

	run.CompletedAtMs = time.Now().UnixMilli()

	status := "completed"
	if run.Partial {
		status = "partial"
	}
	observability.RecordRunCompleted(status, time.Since(started).Seconds())

	// Persist even when the run was cancelled; partial results are
	// still served as the latest run.
	if err := o.opts.ResultStore.SaveRun(context.WithoutCancel(ctx), run); err != nil {
		return nil, fmt.Errorf("save run %s: %w", run.RunID, err)
	}
	o.logger.Printf("run %s: %s in %s", run.RunID, status, time.Since(started))
	return run, nil
}

// runStrategy executes one strategy and folds any failure into its
// result. The returned error is only the context error, used to mark
// the run partial.
func (o *Orchestrator) runStrategy(ctx context.Context, src marketdata.BarSource, cfg domain.StrategyConfig, opts backtest.Options) (*domain.StrategyResult, error) {
	strat, err := strategy.FromConfig(cfg)
	if err != nil {
		// Configs were validated in New; a failure here means they were
		// mutated since.
		return failedResult(cfg.Name, err), nil
	}

	result, err := backtest.Run(ctx, src, strat, opts)
	switch {
	case err == nil:
		observability.RecordStrategyRun(cfg.Name, "ok", len(result.Trades), result.DegradedSignals)
		return result, nil
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		observability.RecordStrategyRun(cfg.Name, "partial", len(result.Trades), result.DegradedSignals)
		return result, err
	default:
		o.logger.Printf("strategy %s failed: %v", cfg.Name, err)
		observability.RecordStrategyRun(cfg.Name, "failed", 0, 0)
		return failedResult(cfg.Name, err), nil
	}
}

func failedResult(name string, err error) *domain.StrategyResult {
	return &domain.StrategyResult{
		StrategyName: name,
		Failed:       true,
		Error:        err.Error(),
	}
}
