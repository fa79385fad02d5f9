package ukf

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.viam.com/utils"
	"gonum.org/v1/gonum/mat"
)

// A Source supplies one measurement, and optionally one input, per cycle.
// Sample is called from the runner's goroutine right before each step; the
// returned vectors are only read during that step.
type Source interface {
	Sample(ctx context.Context) (y, input mat.Vector, err error)
}

// An Estimate is a point-in-time snapshot of a filter, published after a
// completed step.
type Estimate struct {
	Step       int       `json:"step"`
	State      []float64 `json:"state"`
	Variance   []float64 `json:"variance"`
	Output     []float64 `json:"output"`
	Innovation []float64 `json:"innovation"`
}

// RunnerConfig holds the loop settings for a Runner.
type RunnerConfig struct {
	// Frequency is the step rate in Hz.
	Frequency float64
	// Clock paces the loop. A nil value uses the wall clock; tests inject a
	// mock.
	Clock clock.Clock
	// OnEstimate, when set, receives a snapshot after every successful step,
	// called from the runner's goroutine.
	OnEstimate func(Estimate)
}

// A Runner owns one filter and steps it at a fixed rate, pulling each
// cycle's measurement and input from a Source. Step failures are logged and
// skipped, keeping the previous estimate, so a transient numerical problem
// degrades the loop instead of killing it. A Runner runs once; construct a
// new one to restart.
type Runner struct {
	filter *UKF
	src    Source
	cfg    RunnerConfig
	clock  clock.Clock
	dt     time.Duration
	logger golog.Logger

	statsMu  sync.Mutex
	steps    int
	failures int

	ticker                  *clock.Ticker
	activeBackgroundWorkers sync.WaitGroup
	cancelCtx               context.Context
	cancel                  context.CancelFunc
	mu                      sync.Mutex
	running                 bool
}

// NewRunner wires a runner around an initialized filter and a source.
func NewRunner(filter *UKF, src Source, cfg RunnerConfig, logger golog.Logger) (*Runner, error) {
	if filter == nil {
		return nil, errors.New("a filter is required")
	}
	if src == nil {
		return nil, errors.New("a measurement source is required")
	}
	if cfg.Frequency <= 0 || cfg.Frequency > 1000 {
		return nil, errors.New("step frequency must be in (0, 1000] Hz")
	}
	c := cfg.Clock
	if c == nil {
		c = clock.New()
	}
	cancelCtx, cancel := context.WithCancel(context.Background())
	return &Runner{
		filter:    filter,
		src:       src,
		cfg:       cfg,
		clock:     c,
		dt:        time.Duration(float64(time.Second) / cfg.Frequency),
		logger:    logger,
		cancelCtx: cancelCtx,
		cancel:    cancel,
	}, nil
}

// Start launches the estimation loop.
func (r *Runner) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return errors.New("estimation loop already started")
	}
	if r.cancelCtx.Err() != nil {
		return errors.New("estimation loop already stopped; construct a new runner")
	}
	r.logger.Infow("starting estimation loop", "frequency_hz", r.cfg.Frequency, "period", r.dt)
	r.ticker = r.clock.Ticker(r.dt)
	r.activeBackgroundWorkers.Add(1)
	utils.ManagedGo(func() {
		for {
			if r.cancelCtx.Err() != nil {
				return
			}
			select {
			case <-r.cancelCtx.Done():
				return
			case <-r.ticker.C:
				r.step()
			}
		}
	}, r.activeBackgroundWorkers.Done)
	r.running = true
	return nil
}

func (r *Runner) step() {
	y, input, err := r.src.Sample(r.cancelCtx)
	if err != nil {
		if r.cancelCtx.Err() != nil {
			return
		}
		r.logger.Errorw("sampling measurement failed", "error", err)
		return
	}
	if err := r.filter.Step(y, input); err != nil {
		r.statsMu.Lock()
		r.failures++
		r.statsMu.Unlock()
		r.logger.Errorw("estimation step failed, keeping previous estimate", "error", err)
		return
	}
	r.statsMu.Lock()
	r.steps++
	n := r.steps
	r.statsMu.Unlock()
	if r.cfg.OnEstimate != nil {
		r.cfg.OnEstimate(Estimate{
			Step:       n,
			State:      r.filter.State(),
			Variance:   r.filter.Variances(),
			Output:     r.filter.PredictedOutput(),
			Innovation: r.filter.Innovation(),
		})
	}
}

// Stop halts the loop and waits for the worker to finish.
func (r *Runner) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.running {
		return
	}
	r.logger.Debug("closing estimation loop")
	r.ticker.Stop()
	r.cancel()
	r.activeBackgroundWorkers.Wait()
	r.running = false
}

// Steps returns how many cycles have completed successfully.
func (r *Runner) Steps() int {
	r.statsMu.Lock()
	defer r.statsMu.Unlock()
	return r.steps
}

// Failures returns how many cycles were skipped on a step error.
func (r *Runner) Failures() int {
	r.statsMu.Lock()
	defer r.statsMu.Unlock()
	return r.failures
}
