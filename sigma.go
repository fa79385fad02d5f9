package ukf

import (
	"math"

	"github.com/pkg/errors"
)

// generateSigmaPoints spreads 2·xLen+1 sigma points around the current state
// estimate using the scaled lower Cholesky factor of the error covariance.
// Column 0 is the state itself; columns 1..xLen add the factor's columns and
// the remaining columns subtract them, every entry passed through the state
// limits. The covariance buffer itself is left untouched, so a factorization
// failure preserves the previous cycle's state in full.
func (u *UKF) generateSigmaPoints() error {
	if ok := u.chol.Factorize(u.pxx); !ok {
		return errors.Wrap(ErrNotPositiveDefinite, "generating sigma points")
	}
	u.chol.LTo(u.sqrtFac)
	u.sqrtFac.ScaleTri(math.Sqrt(float64(u.xLen)+u.lambda), u.sqrtFac)

	for i := 0; i < u.xLen; i++ {
		u.sigma.Set(i, 0, u.limited(i, u.x.AtVec(i)))
	}
	for s := 1; s < u.sLen; s++ {
		for i := 0; i < u.xLen; i++ {
			if s <= u.xLen {
				u.sigma.Set(i, s, u.limited(i, u.x.AtVec(i)+u.sqrtFac.At(i, s-1)))
			} else {
				u.sigma.Set(i, s, u.limited(i, u.x.AtVec(i)-u.sqrtFac.At(i, s-u.xLen-1)))
			}
		}
	}
	return nil
}
