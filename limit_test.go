package ukf

import (
	"testing"

	"go.viam.com/test"
)

func TestStateLimitClamp(t *testing.T) {
	lim := StateLimit{Min: 0, Max: 10, Epsilon: 0.1, Enabled: true}
	for _, tc := range []struct {
		name     string
		lim      StateLimit
		in, want float64
	}{
		{"inside", lim, 5, 5},
		{"below", lim, -3, 0},
		{"above", lim, 11, 10},
		{"at min", lim, 0, 0},
		{"at max", lim, 10, 10},
		{"disabled below", StateLimit{Min: 0, Max: 10, Enabled: false}, -3, -3},
		{"disabled above", StateLimit{Min: 0, Max: 10, Enabled: false}, 11, 11},
	} {
		t.Run(tc.name, func(t *testing.T) {
			test.That(t, tc.lim.clamp(tc.in), test.ShouldAlmostEqual, tc.want, 1e-15)
		})
	}
}

func TestStateLimitUsable(t *testing.T) {
	test.That(t, StateLimit{Min: 0, Max: 10, Epsilon: 0.1}.usable(), test.ShouldBeTrue)
	test.That(t, StateLimit{Min: 5, Max: 5.1, Epsilon: 0.1}.usable(), test.ShouldBeTrue)
	test.That(t, StateLimit{Min: 5, Max: 5.05, Epsilon: 0.1}.usable(), test.ShouldBeFalse)
	test.That(t, StateLimit{Min: 5, Max: 4, Epsilon: 0}.usable(), test.ShouldBeFalse)
}
