package ukf

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// measUpdate corrects the predicted state and covariance with the current
// measurement. The caller's measurement vector is only read; the innovation
// is kept in an owned buffer.
func (u *UKF) measUpdate(y mat.Vector) error {
	if err := u.pyyInv.Inverse(u.pyy); err != nil {
		return errors.Wrapf(ErrSingularOutputCovariance, "computing kalman gain: %v", err)
	}
	u.k.Mul(u.pxy, u.pyyInv)

	u.inn.SubVec(y, u.ym)
	u.xCorr.MulVec(u.k, u.inn)
	u.x.AddVec(u.x, u.xCorr)

	// The cross covariance doubles as scratch for K·Pyy once the gain is
	// formed, freeing a dedicated buffer.
	u.pxy.Mul(u.k, u.pyy)
	u.pxxCorr.Mul(u.pxy, u.k.T())
	for i := 0; i < u.xLen; i++ {
		for j := i; j < u.xLen; j++ {
			u.pxx.SetSym(i, j, u.pxx.At(i, j)-u.pxxCorr.At(i, j))
		}
	}
	return nil
}
