// Package ukf implements the computational core of an additive-noise
// Unscented Kalman Filter: a recursive nonlinear state estimator that keeps a
// mean state vector and an error covariance, updating both once per control
// cycle from caller-supplied process and measurement models without
// linearizing either.
//
// All working buffers are sized once at construction and overwritten in
// place, so a steady-state Step performs no allocation of its own. A filter
// instance is not safe for concurrent use: one goroutine owns stepping, as a
// Runner does. Independent instances share nothing and may run in parallel.
package ukf

import (
	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// UKF carries the fixed parameters and the working buffers of one filter.
// The state vector, error covariance and sigma-point set are each a single
// owned buffer reused across pipeline phases: the state vector is the
// previous estimate while sigma points are generated, the predicted mean
// after the unscented transform, and the corrected estimate once the
// measurement lands; the covariance and sigma buffers cycle through their
// before/after roles the same way.
type UKF struct {
	xLen int
	yLen int
	sLen int

	alpha  float64
	beta   float64
	kappa  float64
	lambda float64
	dt     float64

	wm []float64
	wc []float64

	qxx  *mat.SymDense
	ryy0 *mat.SymDense

	limits []StateLimit

	processModels     []ProcessModel
	measurementModels []MeasurementModel

	x     *mat.VecDense
	pxx   *mat.SymDense
	sigma *mat.Dense

	// xPrior and pxxPrior snapshot the estimate at the top of each step so a
	// failed step can hand back an untouched filter.
	xPrior   *mat.VecDense
	pxxPrior *mat.SymDense

	u     *mat.VecDense
	uPrev *mat.VecDense

	ySigma *mat.Dense
	ym     *mat.VecDense

	pyy     *mat.SymDense
	pyyInv  *mat.Dense
	pxy     *mat.Dense
	k       *mat.Dense
	inn     *mat.VecDense
	xCorr   *mat.VecDense
	pxxCorr *mat.Dense

	chol    mat.Cholesky
	sqrtFac *mat.TriDense

	dx *mat.VecDense
	dy *mat.VecDense

	logger golog.Logger
}

// New builds a filter from cfg: it derives the sigma-point scaling and
// weights, allocates and wires the full working set, seeds the state and
// covariance from the initial conditions, and verifies every buffer shape.
// Reconfiguring a live filter is expressed by constructing a new one.
func New(cfg Config, logger golog.Logger) (*UKF, error) {
	if err := cfg.Validate("ukf"); err != nil {
		return nil, err
	}

	xLen := cfg.InitialState.Len()
	yLen := len(cfg.MeasurementModels)
	sLen := 2*xLen + 1

	u := &UKF{
		xLen:   xLen,
		yLen:   yLen,
		sLen:   sLen,
		alpha:  cfg.Alpha,
		beta:   cfg.Beta,
		kappa:  cfg.Kappa,
		dt:     cfg.Dt,
		logger: logger,
	}

	u.processModels = append([]ProcessModel(nil), cfg.ProcessModels...)
	u.measurementModels = append([]MeasurementModel(nil), cfg.MeasurementModels...)

	if cfg.Limits != nil {
		u.limits = append([]StateLimit(nil), cfg.Limits...)
		for i := range u.limits {
			lim := &u.limits[i]
			if lim.Enabled && !lim.usable() {
				logger.Warnw("state limit range narrower than epsilon, disabling",
					"state", i, "min", lim.Min, "max", lim.Max, "epsilon", lim.Epsilon)
				lim.Enabled = false
			}
		}
	}

	u.lambda = cfg.Alpha*cfg.Alpha*(float64(xLen)+cfg.Kappa) - float64(xLen)

	u.wm = make([]float64, sLen)
	u.wc = make([]float64, sLen)
	u.wm[0] = u.lambda / (float64(xLen) + u.lambda)
	u.wc[0] = u.wm[0] + (1 - cfg.Alpha*cfg.Alpha + cfg.Beta)
	for i := 1; i < sLen; i++ {
		u.wm[i] = 1 / (2 * (float64(xLen) + u.lambda))
		u.wc[i] = u.wm[i]
	}

	u.qxx = mat.NewSymDense(xLen, nil)
	u.ryy0 = mat.NewSymDense(yLen, nil)

	u.x = mat.NewVecDense(xLen, nil)
	u.pxx = mat.NewSymDense(xLen, nil)
	u.sigma = mat.NewDense(xLen, sLen, nil)
	u.xPrior = mat.NewVecDense(xLen, nil)
	u.pxxPrior = mat.NewSymDense(xLen, nil)

	u.u = mat.NewVecDense(xLen, nil)
	u.uPrev = mat.NewVecDense(xLen, nil)

	u.ySigma = mat.NewDense(yLen, sLen, nil)
	u.ym = mat.NewVecDense(yLen, nil)

	u.pyy = mat.NewSymDense(yLen, nil)
	u.pyyInv = mat.NewDense(yLen, yLen, nil)
	u.pxy = mat.NewDense(xLen, yLen, nil)
	u.k = mat.NewDense(xLen, yLen, nil)
	u.inn = mat.NewVecDense(yLen, nil)
	u.xCorr = mat.NewVecDense(xLen, nil)
	u.pxxCorr = mat.NewDense(xLen, xLen, nil)

	u.sqrtFac = mat.NewTriDense(xLen, mat.Lower, nil)

	u.dx = mat.NewVecDense(xLen, nil)
	u.dy = mat.NewVecDense(yLen, nil)

	if err := u.validateDimensions(cfg); err != nil {
		return nil, err
	}

	u.x.CopyVec(cfg.InitialState)
	u.pxx.CopySym(cfg.InitialCovariance)
	u.qxx.CopySym(cfg.ProcessNoise)
	u.ryy0.CopySym(cfg.MeasurementNoise)

	logger.Debugw("unscented kalman filter ready",
		"states", xLen, "outputs", yLen, "sigma_points", sLen, "lambda", u.lambda)
	return u, nil
}

// Step runs one estimation cycle: sigma-point generation, state and output
// prediction, covariance propagation and the measurement update, in that
// order, then rolls the input forward for the next cycle's process models.
// y is the current measurement and is only read. input may be nil when the
// system has no exogenous input or no fresh value this cycle; the models
// then keep seeing the last supplied input.
//
// A numerical failure (ErrNotPositiveDefinite, ErrSingularOutputCovariance)
// aborts the cycle and is returned with the state estimate and covariance
// exactly as they were before the call.
func (u *UKF) Step(y, input mat.Vector) error {
	if y == nil {
		return errors.New("measurement vector is required")
	}
	if y.Len() != u.yLen {
		return NewMeasurementSizeError(y.Len(), u.yLen)
	}
	if input != nil {
		if input.Len() != u.xLen {
			return NewInputSizeError(input.Len(), u.xLen)
		}
		u.u.CopyVec(input)
	}

	u.xPrior.CopyVec(u.x)
	u.pxxPrior.CopySym(u.pxx)

	if err := u.generateSigmaPoints(); err != nil {
		return err
	}
	u.predictState()
	u.predictOutput()
	u.calcCovariances()
	if err := u.measUpdate(y); err != nil {
		u.x.CopyVec(u.xPrior)
		u.pxx.CopySym(u.pxxPrior)
		return err
	}

	if input != nil {
		u.uPrev.CopyVec(u.u)
	}
	return nil
}

// Dims returns the state and output counts.
func (u *UKF) Dims() (states, outputs int) {
	return u.xLen, u.yLen
}

// Lambda returns the derived sigma-point scaling parameter.
func (u *UKF) Lambda() float64 {
	return u.lambda
}

// State returns a copy of the current state estimate.
func (u *UKF) State() []float64 {
	out := make([]float64, u.xLen)
	for i := range out {
		out[i] = u.x.AtVec(i)
	}
	return out
}

// StateVec returns a copy of the current state estimate as a vector.
func (u *UKF) StateVec() *mat.VecDense {
	out := mat.NewVecDense(u.xLen, nil)
	out.CopyVec(u.x)
	return out
}

// Covariance returns a copy of the current error covariance.
func (u *UKF) Covariance() *mat.SymDense {
	out := mat.NewSymDense(u.xLen, nil)
	out.CopySym(u.pxx)
	return out
}

// Variances returns a copy of the error covariance diagonal.
func (u *UKF) Variances() []float64 {
	out := make([]float64, u.xLen)
	for i := range out {
		out[i] = u.pxx.At(i, i)
	}
	return out
}

// Gain returns a copy of the Kalman gain from the last completed step.
func (u *UKF) Gain() *mat.Dense {
	out := mat.NewDense(u.xLen, u.yLen, nil)
	out.Copy(u.k)
	return out
}

// PredictedOutput returns a copy of the predicted output mean from the last
// completed step.
func (u *UKF) PredictedOutput() []float64 {
	out := make([]float64, u.yLen)
	for j := range out {
		out[j] = u.ym.AtVec(j)
	}
	return out
}

// Innovation returns a copy of the last measurement residual y - y(k|k-1).
func (u *UKF) Innovation() []float64 {
	out := make([]float64, u.yLen)
	for j := range out {
		out[j] = u.inn.AtVec(j)
	}
	return out
}

// Limits returns a copy of the per-state limits in effect, after any
// unusable ranges were disabled at construction. It is nil when the filter
// was built without limits.
func (u *UKF) Limits() []StateLimit {
	if u.limits == nil {
		return nil
	}
	return append([]StateLimit(nil), u.limits...)
}

// MeanWeights returns a copy of the sigma-point mean recombination weights.
func (u *UKF) MeanWeights() []float64 {
	return append([]float64(nil), u.wm...)
}

// CovarianceWeights returns a copy of the sigma-point covariance
// recombination weights.
func (u *UKF) CovarianceWeights() []float64 {
	return append([]float64(nil), u.wc...)
}
