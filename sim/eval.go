package sim

import (
	"context"
	"math"

	"github.com/golang/geo/r2"
	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"

	"go.viam.com/ukf"
)

// A Result summarizes one evaluation run against ground truth. The error
// figures pool both axes.
type Result struct {
	Steps int `json:"steps"`
	// EstimateRMSE and MeasurementRMSE are the root mean square position
	// errors of the filter estimates and of the raw fixes they were fused
	// from.
	EstimateRMSE    float64 `json:"estimate_rmse"`
	MeasurementRMSE float64 `json:"measurement_rmse"`
	// MaxAbsError is the largest single-axis estimate error seen.
	MaxAbsError float64 `json:"max_abs_error"`
	// FinalVelocityError is the speed error of the last velocity estimate.
	// The velocities are never observed directly.
	FinalVelocityError float64 `json:"final_velocity_error"`
}

// Evaluate steps filter against tr for the given number of cycles and scores
// the estimates. The filter must match the tracker's state layout, normally
// by building it from tr.FilterConfig(). A step failure aborts the run.
func Evaluate(ctx context.Context, filter *ukf.UKF, tr *Tracker, steps int) (*Result, error) {
	if filter == nil || tr == nil {
		return nil, errors.New("a filter and a tracker are required")
	}
	if steps <= 0 {
		return nil, errors.New("step count must be positive")
	}
	if states, outputs := filter.Dims(); states != stateCount || outputs != outputCount {
		return nil, errors.Errorf("filter has %d states and %d outputs, tracker needs %d and %d",
			states, outputs, stateCount, outputCount)
	}

	estErrs := make([]float64, 0, outputCount*steps)
	fixErrs := make([]float64, 0, outputCount*steps)
	var lastVelErr float64
	for i := 0; i < steps; i++ {
		y, input, err := tr.Sample(ctx)
		if err != nil {
			return nil, err
		}
		fixX, fixY := y.AtVec(0), y.AtVec(1)
		if err := filter.Step(y, input); err != nil {
			return nil, errors.Wrapf(err, "step %d", i+1)
		}
		pos, vel := tr.Truth()
		st := filter.State()
		estErrs = append(estErrs, st[statePX]-pos.X, st[statePY]-pos.Y)
		fixErrs = append(fixErrs, fixX-pos.X, fixY-pos.Y)
		lastVelErr = r2.Point{X: st[stateVX] - vel.X, Y: st[stateVY] - vel.Y}.Norm()
	}

	estRMSE, err := rmse(estErrs)
	if err != nil {
		return nil, err
	}
	fixRMSE, err := rmse(fixErrs)
	if err != nil {
		return nil, err
	}
	maxAbs, err := stats.Max(absAll(estErrs))
	if err != nil {
		return nil, err
	}
	return &Result{
		Steps:              steps,
		EstimateRMSE:       estRMSE,
		MeasurementRMSE:    fixRMSE,
		MaxAbsError:        maxAbs,
		FinalVelocityError: lastVelErr,
	}, nil
}

func rmse(errs []float64) (float64, error) {
	sq := make([]float64, len(errs))
	for i, e := range errs {
		sq[i] = e * e
	}
	m, err := stats.Mean(sq)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(m), nil
}

func absAll(vals []float64) []float64 {
	out := make([]float64, len(vals))
	for i, v := range vals {
		out[i] = math.Abs(v)
	}
	return out
}
