package ukf

// calcCovariances forms the predicted output covariance Pyy on top of the
// measurement noise and the state/output cross covariance Pxy, both as
// weighted sums of sigma-point deviation outer products.
func (u *UKF) calcCovariances() {
	u.pyy.CopySym(u.ryy0)
	u.pxy.Zero()

	for s := 0; s < u.sLen; s++ {
		for j := 0; j < u.yLen; j++ {
			u.dy.SetVec(j, u.ySigma.At(j, s)-u.ym.AtVec(j))
		}
		u.pyy.SymRankOne(u.pyy, u.wc[s], u.dy)

		for i := 0; i < u.xLen; i++ {
			u.dx.SetVec(i, u.sigma.At(i, s)-u.x.AtVec(i))
		}
		u.pxy.RankOne(u.pxy, u.wc[s], u.dx, u.dy)
	}
}
