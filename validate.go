package ukf

import (
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"gonum.org/v1/gonum/mat"
)

// checkDims appends a shape error for name unless m is r×c. Presence of the
// mandatory config matrices is established by Config.Validate before any
// buffer reaches here.
func checkDims(errs error, name string, m mat.Matrix, r, c int) error {
	gr, gc := m.Dims()
	if gr != r || gc != c {
		return multierr.Append(errs, errors.Errorf("%s: got %dx%d, want %dx%d", name, gr, gc, r, c))
	}
	return errs
}

// validateDimensions verifies every buffer in the wired working set against
// the state, output and sigma-point counts. All mismatches are reported
// together, one named error per failing buffer, rather than as a single
// pass/fail verdict. It does not mutate the filter.
func (u *UKF) validateDimensions(cfg Config) error {
	var errs error

	errs = checkDims(errs, "initial state", cfg.InitialState, u.xLen, 1)
	errs = checkDims(errs, "initial covariance", cfg.InitialCovariance, u.xLen, u.xLen)
	errs = checkDims(errs, "process noise covariance", cfg.ProcessNoise, u.xLen, u.xLen)
	errs = checkDims(errs, "measurement noise covariance", cfg.MeasurementNoise, u.yLen, u.yLen)

	errs = checkDims(errs, "input vector", u.u, u.xLen, 1)
	errs = checkDims(errs, "previous input vector", u.uPrev, u.xLen, 1)

	if len(u.wm) != u.sLen {
		errs = multierr.Append(errs, errors.Errorf("mean weights: got length %d, want %d", len(u.wm), u.sLen))
	}
	if len(u.wc) != u.sLen {
		errs = multierr.Append(errs, errors.Errorf("covariance weights: got length %d, want %d", len(u.wc), u.sLen))
	}

	errs = checkDims(errs, "state vector", u.x, u.xLen, 1)
	errs = checkDims(errs, "state snapshot", u.xPrior, u.xLen, 1)
	errs = checkDims(errs, "sigma points", u.sigma, u.xLen, u.sLen)
	errs = checkDims(errs, "output sigma points", u.ySigma, u.yLen, u.sLen)
	errs = checkDims(errs, "error covariance", u.pxx, u.xLen, u.xLen)
	errs = checkDims(errs, "error covariance snapshot", u.pxxPrior, u.xLen, u.xLen)
	errs = checkDims(errs, "square root factor", u.sqrtFac, u.xLen, u.xLen)
	errs = checkDims(errs, "predicted output mean", u.ym, u.yLen, 1)
	errs = checkDims(errs, "output covariance", u.pyy, u.yLen, u.yLen)
	errs = checkDims(errs, "output covariance inverse", u.pyyInv, u.yLen, u.yLen)
	errs = checkDims(errs, "cross covariance", u.pxy, u.xLen, u.yLen)
	errs = checkDims(errs, "kalman gain", u.k, u.xLen, u.yLen)
	errs = checkDims(errs, "innovation", u.inn, u.yLen, 1)
	errs = checkDims(errs, "state correction", u.xCorr, u.xLen, 1)
	errs = checkDims(errs, "covariance correction", u.pxxCorr, u.xLen, u.xLen)

	if errs != nil {
		return errors.Wrap(errs, "dimension check failed")
	}
	return nil
}
