package ukf

import "github.com/pkg/errors"

var (
	// ErrNotPositiveDefinite is returned by Step when the error covariance has
	// lost positive definiteness and no Cholesky square root exists, so no
	// sigma points can be generated. The estimate from the previous cycle is
	// left untouched.
	ErrNotPositiveDefinite = errors.New("error covariance is not positive definite")

	// ErrSingularOutputCovariance is returned by Step when the predicted
	// output covariance cannot be inverted to form the Kalman gain. The
	// estimate from the previous cycle is left untouched.
	ErrSingularOutputCovariance = errors.New("predicted output covariance is singular")
)

// NewMeasurementSizeError returns an error for a measurement vector whose
// length does not match the filter's output count.
func NewMeasurementSizeError(got, want int) error {
	return errors.Errorf("measurement vector has length %d, expected %d", got, want)
}

// NewInputSizeError returns an error for an input vector whose length does
// not match the filter's state count.
func NewInputSizeError(got, want int) error {
	return errors.Errorf("input vector has length %d, expected %d", got, want)
}
