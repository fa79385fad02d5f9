// Package main contains a command to benchmark a tracking filter against a
// simulated target.
package main

import (
	"context"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r2"

	"go.viam.com/utils"

	"go.viam.com/ukf"
	"go.viam.com/ukf/sim"
)

var logger = golog.NewDevelopmentLogger("simulate")

func main() {
	utils.ContextualMainQuit(mainWithArgs, logger)
}

// Arguments for the command.
type Arguments struct {
	Steps      int     `flag:"steps,default=600,usage=number of estimation cycles to run"`
	Dt         float64 `flag:"dt,default=0.1,usage=cycle period in seconds"`
	NoiseSigma float64 `flag:"noise,default=0.5,usage=position fix noise sigma"`
	Seed       int     `flag:"seed,default=42,usage=noise sequence seed"`
	VX         float64 `flag:"vx,default=2,usage=true x velocity"`
	VY         float64 `flag:"vy,default=-1,usage=true y velocity"`
}

func mainWithArgs(ctx context.Context, args []string, logger golog.Logger) error {
	var argsParsed Arguments
	if err := utils.ParseFlags(args, &argsParsed); err != nil {
		return err
	}

	tracker, err := sim.NewTracker(sim.TrackerConfig{
		Dt:         argsParsed.Dt,
		Velocity:   r2.Point{X: argsParsed.VX, Y: argsParsed.VY},
		NoiseSigma: argsParsed.NoiseSigma,
		Seed:       uint64(argsParsed.Seed),
	})
	if err != nil {
		return err
	}
	filter, err := ukf.New(tracker.FilterConfig(), logger)
	if err != nil {
		return err
	}

	logger.Infow("running tracking bench",
		"steps", argsParsed.Steps,
		"dt", argsParsed.Dt,
		"noise_sigma", argsParsed.NoiseSigma,
		"velocity_x", argsParsed.VX,
		"velocity_y", argsParsed.VY)
	res, err := sim.Evaluate(ctx, filter, tracker, argsParsed.Steps)
	if err != nil {
		return err
	}

	pos, vel := tracker.Truth()
	logger.Infow("bench complete",
		"steps", res.Steps,
		"estimate_rmse", res.EstimateRMSE,
		"measurement_rmse", res.MeasurementRMSE,
		"max_abs_error", res.MaxAbsError,
		"final_velocity_error", res.FinalVelocityError)
	logger.Infow("final state",
		"truth_position", pos,
		"truth_velocity", vel,
		"estimate", filter.State(),
		"variance", filter.Variances())
	return nil
}
