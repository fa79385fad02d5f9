package ukf

import (
	"testing"

	"github.com/edaniels/golog"
	"go.viam.com/test"
	"gonum.org/v1/gonum/mat"
)

func TestSigmaPointSymmetry(t *testing.T) {
	cfg := Config{
		Alpha:        1,
		Beta:         2,
		Kappa:        0,
		Dt:           0.1,
		InitialState: mat.NewVecDense(3, []float64{1, -2, 3}),
		InitialCovariance: mat.NewSymDense(3, []float64{
			4, 0.5, 0,
			0.5, 2, 0.1,
			0, 0.1, 1,
		}),
		ProcessNoise:      mat.NewSymDense(3, nil),
		MeasurementNoise:  mat.NewSymDense(1, []float64{1}),
		ProcessModels:     make([]ProcessModel, 3),
		MeasurementModels: []MeasurementModel{directObservation(0)},
	}
	f, err := New(cfg, golog.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, f.generateSigmaPoints(), test.ShouldBeNil)

	rows, cols := f.sigma.Dims()
	test.That(t, rows, test.ShouldEqual, 3)
	test.That(t, cols, test.ShouldEqual, 7)

	// Column 0 is the state itself; the spread columns mirror each other
	// about it pairwise.
	for i := 0; i < 3; i++ {
		test.That(t, f.sigma.At(i, 0), test.ShouldAlmostEqual, f.x.AtVec(i), 1e-12)
	}
	for j := 1; j <= 3; j++ {
		for i := 0; i < 3; i++ {
			plus := f.sigma.At(i, j) - f.x.AtVec(i)
			minus := f.sigma.At(i, j+3) - f.x.AtVec(i)
			test.That(t, plus, test.ShouldAlmostEqual, -minus, 1e-12)
		}
	}
}

func TestSigmaPointSpreadRecoversCovariance(t *testing.T) {
	// The weighted outer-product spread of the generated points must give
	// back the covariance they were drawn from.
	pxx0 := []float64{
		4, 0.5, 0,
		0.5, 2, 0.1,
		0, 0.1, 1,
	}
	cfg := Config{
		Alpha:             0.8,
		Beta:              2,
		Kappa:             0.5,
		Dt:                0.1,
		InitialState:      mat.NewVecDense(3, []float64{1, -2, 3}),
		InitialCovariance: mat.NewSymDense(3, pxx0),
		ProcessNoise:      mat.NewSymDense(3, nil),
		MeasurementNoise:  mat.NewSymDense(1, []float64{1}),
		ProcessModels:     make([]ProcessModel, 3),
		MeasurementModels: []MeasurementModel{directObservation(0)},
	}
	f, err := New(cfg, golog.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, f.generateSigmaPoints(), test.ShouldBeNil)

	spread := mat.NewSymDense(3, nil)
	d := mat.NewVecDense(3, nil)
	for s := 0; s < f.sLen; s++ {
		for i := 0; i < 3; i++ {
			d.SetVec(i, f.sigma.At(i, s)-f.x.AtVec(i))
		}
		spread.SymRankOne(spread, f.wc[s], d)
	}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			test.That(t, spread.At(i, j), test.ShouldAlmostEqual, pxx0[3*i+j], 1e-9)
		}
	}
}

func TestSigmaPointClamping(t *testing.T) {
	// Previous state above the configured bound: every generated point
	// for that state stays at or below the bound.
	cfg := scalarConfig(11, 1, 0, 1)
	cfg.Limits = []StateLimit{{Min: 0, Max: 10, Epsilon: 0.1, Enabled: true}}
	f, err := New(cfg, golog.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, f.generateSigmaPoints(), test.ShouldBeNil)

	test.That(t, f.sigma.At(0, 0), test.ShouldAlmostEqual, 10.0, 1e-12)
	for s := 0; s < f.sLen; s++ {
		test.That(t, f.sigma.At(0, s), test.ShouldBeLessThanOrEqualTo, 10.0)
	}
}

func TestSigmaPointsUnclampedAfterAutoDisable(t *testing.T) {
	// An unusable range is disabled at construction, so points pass
	// through even though the limit was requested on.
	cfg := scalarConfig(20, 1, 0, 1)
	cfg.Limits = []StateLimit{{Min: 5, Max: 5.05, Epsilon: 0.1, Enabled: true}}
	f, err := New(cfg, golog.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, f.generateSigmaPoints(), test.ShouldBeNil)

	test.That(t, f.sigma.At(0, 0), test.ShouldAlmostEqual, 20.0, 1e-12)
	test.That(t, f.sigma.At(0, 1), test.ShouldAlmostEqual, 21.0, 1e-12)
	test.That(t, f.sigma.At(0, 2), test.ShouldAlmostEqual, 19.0, 1e-12)
}

func TestSigmaPointFailureLeavesBuffersAlone(t *testing.T) {
	f, err := New(scalarConfig(3, 1, 0, 1), golog.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, f.generateSigmaPoints(), test.ShouldBeNil)

	want := make([]float64, f.sLen)
	for s := 0; s < f.sLen; s++ {
		want[s] = f.sigma.At(0, s)
	}

	// Collapse the covariance; generation must now fail and leave both
	// the sigma points and the covariance exactly as they were.
	f.pxx.SetSym(0, 0, 0)
	err = f.generateSigmaPoints()
	test.That(t, err, test.ShouldWrap, ErrNotPositiveDefinite)
	test.That(t, f.pxx.At(0, 0), test.ShouldAlmostEqual, 0.0, 1e-15)
	for s := 0; s < f.sLen; s++ {
		test.That(t, f.sigma.At(0, s), test.ShouldAlmostEqual, want[s], 1e-15)
	}
}
