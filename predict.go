package ukf

// predictState propagates every sigma point through the process models and
// recombines the columns into the predicted state mean. Models run in state
// order and write into the shared sigma-point buffer in place; a state with
// no model keeps its generated sigma values, an identity pass-through. The
// mean lands in the state vector, which from here on holds x(k|k-1).
func (u *UKF) predictState() {
	for i := 0; i < u.xLen; i++ {
		mean := 0.0
		for s := 0; s < u.sLen; s++ {
			if fn := u.processModels[i]; fn != nil {
				fn(u.uPrev, u.sigma, u.sigma, s, u.dt)
			}
			mean += u.wm[s] * u.sigma.At(i, s)
		}
		u.x.SetVec(i, mean)
	}
}

// predictOutput forms the predicted state covariance P(k|k-1) from the
// propagated sigma-point spread on top of the process noise, then propagates
// the sigma points through the measurement models and recombines them into
// the predicted output mean. An output with no model predicts zero.
func (u *UKF) predictOutput() {
	u.pxx.CopySym(u.qxx)
	for s := 0; s < u.sLen; s++ {
		for i := 0; i < u.xLen; i++ {
			u.dx.SetVec(i, u.sigma.At(i, s)-u.x.AtVec(i))
		}
		u.pxx.SymRankOne(u.pxx, u.wc[s], u.dx)
	}

	u.ym.Zero()
	for s := 0; s < u.sLen; s++ {
		for j := 0; j < u.yLen; j++ {
			if fn := u.measurementModels[j]; fn != nil {
				fn(u.u, u.sigma, u.ySigma, s)
			} else {
				u.ySigma.Set(j, s, 0)
			}
		}
		for j := 0; j < u.yLen; j++ {
			u.ym.SetVec(j, u.ym.AtVec(j)+u.wm[s]*u.ySigma.At(j, s))
		}
	}
}
