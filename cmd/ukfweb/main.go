// Package main contains a command to run a tracking filter live and stream
// its estimates to websocket viewers.
package main

import (
	"context"
	"time"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/utils"

	"go.viam.com/ukf"
	"go.viam.com/ukf/sim"
	"go.viam.com/ukf/stream"
)

var logger = golog.NewDevelopmentLogger("ukfweb")

func main() {
	utils.ContextualMainQuit(mainWithArgs, logger)
}

// Arguments for the command.
type Arguments struct {
	Address    string  `flag:"address,default=localhost:8081,usage=stream listen address"`
	Frequency  float64 `flag:"freq,default=10,usage=step frequency in Hz"`
	NoiseSigma float64 `flag:"noise,default=0.5,usage=position fix noise sigma"`
	Seed       int     `flag:"seed,default=42,usage=noise sequence seed"`
	VX         float64 `flag:"vx,default=2,usage=true x velocity"`
	VY         float64 `flag:"vy,default=-1,usage=true y velocity"`
}

func mainWithArgs(ctx context.Context, args []string, logger golog.Logger) (err error) {
	var argsParsed Arguments
	if err := utils.ParseFlags(args, &argsParsed); err != nil {
		return err
	}
	if argsParsed.Frequency <= 0 {
		return errors.New("freq must be positive")
	}

	tracker, err := sim.NewTracker(sim.TrackerConfig{
		Dt:         1 / argsParsed.Frequency,
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

	server, err := stream.NewServer(stream.ServerConfig{Address: argsParsed.Address}, logger)
	if err != nil {
		return err
	}
	if err := server.Start(); err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, server.Stop(context.Background()))
	}()

	// The callback runs on the runner's goroutine, the same one stepping the
	// filter, so reading the gain here is safe.
	room := server.Room()
	runner, err := ukf.NewRunner(filter, tracker, ukf.RunnerConfig{
		Frequency: argsParsed.Frequency,
		OnEstimate: func(est ukf.Estimate) {
			frame := stream.Frame{
				Estimate: est,
				GainNorm: mat.Norm(filter.Gain(), 2),
				Time:     time.Now(),
			}
			if err := room.PublishFrame(frame); err != nil {
				logger.Errorw("publishing estimate frame failed", "error", err)
			}
		},
	}, logger)
	if err != nil {
		return err
	}
	if err := runner.Start(); err != nil {
		return err
	}
	defer runner.Stop()

	logger.Infow("streaming estimates",
		"address", server.Address(),
		"path", "/estimates",
		"frequency_hz", argsParsed.Frequency)
	utils.ContextMainReadyFunc(ctx)()
	<-ctx.Done()
	logger.Infow("shutting down", "steps", runner.Steps(), "failures", runner.Failures())
	return nil
}
