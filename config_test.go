package ukf

import (
	"testing"

	"github.com/edaniels/golog"
	"go.viam.com/test"
	"gonum.org/v1/gonum/mat"
)

func TestConfigValidate(t *testing.T) {
	valid := func() Config { return scalarConfig(0, 1, 0.01, 1) }
	for _, tc := range []struct {
		name   string
		mutate func(cfg *Config)
		err    string
	}{
		{"valid", func(cfg *Config) {}, ""},
		{
			"missing initial state",
			func(cfg *Config) { cfg.InitialState = nil },
			`"initial_state" is required`,
		},
		{
			"missing initial covariance",
			func(cfg *Config) { cfg.InitialCovariance = nil },
			`"initial_covariance" is required`,
		},
		{
			"missing process noise",
			func(cfg *Config) { cfg.ProcessNoise = nil },
			`"process_noise" is required`,
		},
		{
			"missing measurement noise",
			func(cfg *Config) { cfg.MeasurementNoise = nil },
			`"measurement_noise" is required`,
		},
		{
			"no measurement models",
			func(cfg *Config) { cfg.MeasurementModels = nil },
			`"measurement_models" is required`,
		},
		{
			"process model table length",
			func(cfg *Config) { cfg.ProcessModels = make([]ProcessModel, 3) },
			"one process model entry per state",
		},
		{
			"limit table length",
			func(cfg *Config) { cfg.Limits = make([]StateLimit, 2) },
			"one state limit per state",
		},
		{
			"zero alpha",
			func(cfg *Config) { cfg.Alpha = 0 },
			"alpha must be positive",
		},
		{
			"zero dt",
			func(cfg *Config) { cfg.Dt = 0 },
			"dt must be positive",
		},
		{
			"kappa collapses scaling",
			func(cfg *Config) { cfg.Kappa = -1 },
			"xLen+kappa > 0",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid()
			tc.mutate(&cfg)
			err := cfg.Validate("ukf")
			if tc.err == "" {
				test.That(t, err, test.ShouldBeNil)
			} else {
				test.That(t, err, test.ShouldNotBeNil)
				test.That(t, err.Error(), test.ShouldContainSubstring, tc.err)
			}
		})
	}
}

func TestNewRejectsWrongShapes(t *testing.T) {
	logger := golog.NewTestLogger(t)

	cfg := scalarConfig(0, 1, 0.01, 1)
	cfg.MeasurementNoise = mat.NewSymDense(3, nil)
	_, err := New(cfg, logger)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "measurement noise covariance")
	test.That(t, err.Error(), test.ShouldContainSubstring, "want 1x1")

	// Several mismatched buffers are reported together, not one at a time.
	cfg = scalarConfig(0, 1, 0.01, 1)
	cfg.ProcessNoise = mat.NewSymDense(2, nil)
	cfg.MeasurementNoise = mat.NewSymDense(3, nil)
	_, err = New(cfg, logger)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "process noise covariance")
	test.That(t, err.Error(), test.ShouldContainSubstring, "measurement noise covariance")
}

func TestNewCopiesInitialConditions(t *testing.T) {
	cfg := scalarConfig(4, 2, 0.01, 1)
	f, err := New(cfg, golog.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)

	// Mutating the caller's matrices after construction must not reach
	// into the filter.
	cfg.InitialState.SetVec(0, -100)
	cfg.InitialCovariance.SetSym(0, 0, -100)
	cfg.ProcessNoise.SetSym(0, 0, -100)
	cfg.MeasurementNoise.SetSym(0, 0, -100)

	test.That(t, f.State()[0], test.ShouldAlmostEqual, 4.0, 1e-15)
	test.That(t, f.Variances()[0], test.ShouldAlmostEqual, 2.0, 1e-15)
	test.That(t, f.Step(mat.NewVecDense(1, []float64{5}), nil), test.ShouldBeNil)
}

func TestNewDisablesUnusableLimits(t *testing.T) {
	cfg := scalarConfig(0, 1, 0.01, 1)
	cfg.Limits = []StateLimit{{Min: 5, Max: 5.05, Epsilon: 0.1, Enabled: true}}
	f, err := New(cfg, golog.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)

	limits := f.Limits()
	test.That(t, len(limits), test.ShouldEqual, 1)
	test.That(t, limits[0].Enabled, test.ShouldBeFalse)

	// A workable range stays enabled.
	cfg = scalarConfig(0, 1, 0.01, 1)
	cfg.Limits = []StateLimit{{Min: 0, Max: 10, Epsilon: 0.1, Enabled: true}}
	f, err = New(cfg, golog.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, f.Limits()[0].Enabled, test.ShouldBeTrue)
}
