package ukf

import (
	"go.viam.com/utils"
	"gonum.org/v1/gonum/mat"

	"github.com/pkg/errors"
)

// A ProcessModel propagates one state variable through the nonlinear process
// function. It is invoked once per sigma-point column and writes the
// propagated value for its state at that column into next. prev and next
// expose the same underlying sigma-point buffer in its before/after roles:
// models run in state order, so a model reading a lower-indexed state row
// observes that row already propagated for the current column. uPrev is the
// input vector from the previous cycle and dt the cycle period in seconds.
type ProcessModel func(uPrev mat.Vector, prev mat.Matrix, next *mat.Dense, sigmaIdx int, dt float64)

// A MeasurementModel maps the propagated sigma points to one output variable.
// It is invoked once per sigma-point column and writes the predicted output
// for its output index at that column into out. u is the current input
// vector.
type MeasurementModel func(u mat.Vector, sigma mat.Matrix, out *mat.Dense, sigmaIdx int)

// Config assembles everything a filter needs at construction. The state
// count is the length of InitialState and the output count the length of
// MeasurementModels; all matrix shapes are checked against those two before
// any buffer is touched.
//
// Model table entries may be nil: a state without a process model passes
// through unchanged, an output without a measurement model predicts zero.
type Config struct {
	// Alpha controls the sigma-point spread, usually in (0, 1].
	Alpha float64
	// Beta folds in prior distribution knowledge (2 is optimal for Gaussians).
	Beta float64
	// Kappa is the secondary scaling parameter, usually 0.
	Kappa float64
	// Dt is the cycle period in seconds handed to process models.
	Dt float64

	InitialState      *mat.VecDense
	InitialCovariance *mat.SymDense
	ProcessNoise      *mat.SymDense
	MeasurementNoise  *mat.SymDense

	ProcessModels     []ProcessModel
	MeasurementModels []MeasurementModel

	// Limits optionally bounds each state during sigma-point generation.
	// When non-nil it must carry one entry per state.
	Limits []StateLimit
}

// Validate ensures all parts of the config are valid.
func (cfg *Config) Validate(path string) error {
	if cfg.InitialState == nil || cfg.InitialState.Len() == 0 {
		return utils.NewConfigValidationFieldRequiredError(path, "initial_state")
	}
	if cfg.InitialCovariance == nil {
		return utils.NewConfigValidationFieldRequiredError(path, "initial_covariance")
	}
	if cfg.ProcessNoise == nil {
		return utils.NewConfigValidationFieldRequiredError(path, "process_noise")
	}
	if cfg.MeasurementNoise == nil {
		return utils.NewConfigValidationFieldRequiredError(path, "measurement_noise")
	}
	if len(cfg.MeasurementModels) == 0 {
		return utils.NewConfigValidationFieldRequiredError(path, "measurement_models")
	}
	xLen := cfg.InitialState.Len()
	if len(cfg.ProcessModels) != xLen {
		return utils.NewConfigValidationError(path,
			errors.Errorf("need one process model entry per state, got %d for %d states",
				len(cfg.ProcessModels), xLen))
	}
	if cfg.Limits != nil && len(cfg.Limits) != xLen {
		return utils.NewConfigValidationError(path,
			errors.Errorf("need one state limit per state, got %d for %d states",
				len(cfg.Limits), xLen))
	}
	if cfg.Alpha <= 0 {
		return utils.NewConfigValidationError(path, errors.New("alpha must be positive"))
	}
	if cfg.Dt <= 0 {
		return utils.NewConfigValidationError(path, errors.New("dt must be positive"))
	}
	if cfg.Alpha*cfg.Alpha*(float64(xLen)+cfg.Kappa) <= 0 {
		return utils.NewConfigValidationError(path,
			errors.New("kappa collapses the sigma-point scaling, need xLen+kappa > 0"))
	}
	return nil
}
