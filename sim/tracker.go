// Package sim provides a synthetic target with known ground truth for
// exercising a filter end to end. A tracker advances exact constant-velocity
// kinematics and serves noisy position fixes of it, and an evaluation helper
// scores the resulting estimates against both the truth and the raw fixes.
package sim

import (
	"context"
	"math/rand/v2"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"go.viam.com/utils"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"go.viam.com/ukf"
)

// Filter state layout for the tracker: per-axis position interleaved with the
// velocity driving it. Only the positions are observed.
const (
	statePX = iota
	stateVX
	statePY
	stateVY
	stateCount
)

// outputCount is the number of observed outputs, one position fix per axis.
const outputCount = 2

// Filter tuning for the tracker bench. The velocity prior is wide since the
// initial estimate claims no motion, and the drift floors keep the covariance
// positive definite after the estimate has converged.
const (
	velocityPriorVar = 4.0
	positionDriftVar = 1e-4
	velocityDriftVar = 1e-3
)

// TrackerConfig describes a constant-velocity planar target and the quality
// of the position fixes taken of it.
type TrackerConfig struct {
	// Dt is the cycle period in seconds, shared with the filter stepping on
	// this tracker.
	Dt float64 `json:"dt"`
	// Position and Velocity are the true initial kinematics.
	Position r2.Point `json:"position"`
	Velocity r2.Point `json:"velocity"`
	// NoiseSigma is the standard deviation of the fix noise on each axis. It
	// must be positive; exact fixes would collapse the filter covariance.
	NoiseSigma float64 `json:"noise_sigma"`
	// Seed fixes the noise sequence so runs reproduce exactly.
	Seed uint64 `json:"seed"`
}

// Validate ensures all parts of the config are valid.
func (cfg *TrackerConfig) Validate(path string) error {
	if cfg.Dt <= 0 {
		return utils.NewConfigValidationError(path, errors.New("dt must be positive"))
	}
	if cfg.NoiseSigma <= 0 {
		return utils.NewConfigValidationError(path, errors.New("noise sigma must be positive"))
	}
	return nil
}

// A Tracker owns the ground truth of one constant-velocity target and serves
// noisy position fixes of it. It implements ukf.Source: each Sample advances
// the truth by one period and observes it, so sampling drives the simulated
// time base. One goroutine samples at a time.
type Tracker struct {
	cfg   TrackerConfig
	pos   r2.Point
	vel   r2.Point
	noise distuv.Normal
	fix   *mat.VecDense
}

// NewTracker builds a tracker and seeds its noise source.
func NewTracker(cfg TrackerConfig) (*Tracker, error) {
	if err := cfg.Validate("tracker"); err != nil {
		return nil, err
	}
	return &Tracker{
		cfg: cfg,
		pos: cfg.Position,
		vel: cfg.Velocity,
		noise: distuv.Normal{
			Mu:    0,
			Sigma: cfg.NoiseSigma,
			Src:   rand.NewPCG(cfg.Seed, cfg.Seed),
		},
		fix: mat.NewVecDense(outputCount, nil),
	}, nil
}

// Sample advances the truth by one period and returns a noisy position fix of
// it. The fix buffer is reused between calls. The target has no exogenous
// input, so the input vector is always nil.
func (tr *Tracker) Sample(ctx context.Context) (mat.Vector, mat.Vector, error) {
	if ctx.Err() != nil {
		return nil, nil, ctx.Err()
	}
	tr.pos = tr.pos.Add(tr.vel.Mul(tr.cfg.Dt))
	tr.fix.SetVec(0, tr.pos.X+tr.noise.Rand())
	tr.fix.SetVec(1, tr.pos.Y+tr.noise.Rand())
	return tr.fix, nil, nil
}

// Truth returns the current true position and velocity.
func (tr *Tracker) Truth() (pos, vel r2.Point) {
	return tr.pos, tr.vel
}

// FilterConfig assembles the filter configuration matching this tracker:
// per-axis constant-velocity process models, direct position observations,
// and noise settings mirroring the tracker's own. The initial estimate is the
// true initial position with unknown velocity.
func (tr *Tracker) FilterConfig() ukf.Config {
	r := tr.cfg.NoiseSigma * tr.cfg.NoiseSigma
	return ukf.Config{
		Alpha: 1,
		Beta:  2,
		Kappa: 0,
		Dt:    tr.cfg.Dt,
		InitialState: mat.NewVecDense(stateCount, []float64{
			tr.cfg.Position.X, 0, tr.cfg.Position.Y, 0,
		}),
		InitialCovariance: mat.NewSymDense(stateCount, []float64{
			r, 0, 0, 0,
			0, velocityPriorVar, 0, 0,
			0, 0, r, 0,
			0, 0, 0, velocityPriorVar,
		}),
		ProcessNoise: mat.NewSymDense(stateCount, []float64{
			positionDriftVar, 0, 0, 0,
			0, velocityDriftVar, 0, 0,
			0, 0, positionDriftVar, 0,
			0, 0, 0, velocityDriftVar,
		}),
		MeasurementNoise: mat.NewSymDense(outputCount, []float64{
			r, 0,
			0, r,
		}),
		ProcessModels: []ukf.ProcessModel{
			advancePosition(statePX, stateVX),
			nil,
			advancePosition(statePY, stateVY),
			nil,
		},
		MeasurementModels: []ukf.MeasurementModel{
			observePosition(0, statePX),
			observePosition(1, statePY),
		},
	}
}

// advancePosition builds the process model for one position state,
// integrating the paired velocity state over the cycle period.
func advancePosition(pos, vel int) ukf.ProcessModel {
	return func(_ mat.Vector, prev mat.Matrix, next *mat.Dense, s int, dt float64) {
		next.Set(pos, s, prev.At(pos, s)+prev.At(vel, s)*dt)
	}
}

// observePosition builds the measurement model mapping one position state to
// one output row.
func observePosition(out, state int) ukf.MeasurementModel {
	return func(_ mat.Vector, sigma mat.Matrix, dst *mat.Dense, s int) {
		dst.Set(out, s, sigma.At(state, s))
	}
}
