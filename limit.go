package ukf

// A StateLimit bounds one state variable while sigma points are generated.
// Epsilon is the smallest range the limit is allowed to span; a limit enabled
// with Min+Epsilon > Max is unusable and gets disabled at construction.
type StateLimit struct {
	Min     float64
	Max     float64
	Epsilon float64
	Enabled bool
}

// clamp bounds v to [Min, Max] when the limit is enabled.
func (l StateLimit) clamp(v float64) float64 {
	if !l.Enabled {
		return v
	}
	if v < l.Min {
		return l.Min
	}
	if v > l.Max {
		return l.Max
	}
	return v
}

// usable reports whether the configured range is at least Epsilon wide.
func (l StateLimit) usable() bool {
	return l.Min+l.Epsilon <= l.Max
}

// limited returns state i's value passed through its limit, if any.
func (u *UKF) limited(i int, v float64) float64 {
	if u.limits == nil {
		return v
	}
	return u.limits[i].clamp(v)
}
