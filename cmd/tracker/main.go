// Package main runs the cuVSLAM tracking loop against a synthetic stereo
// source, with optional web visualization. Build with -tags cuvslam to link
// the native engine.
package main

import (
	"context"

	"github.com/edaniels/golog"
	"go.uber.org/multierr"
	"go.viam.com/utils"

	"github.com/vyeevani/cuvslam"
	"github.com/vyeevani/cuvslam/capture/fake"
	"github.com/vyeevani/cuvslam/driver"
	"github.com/vyeevani/cuvslam/viz"
)

var logger = golog.NewDevelopmentLogger("cuvslam_tracker")

func main() {
	utils.ContextualMain(mainWithArgs, logger)
}

// Arguments for the command.
type Arguments struct {
	Calibration string `flag:"calibration,usage=path to a rig calibration JSON file (default: built-in stereo rig)"`
	WebAddr     string `flag:"web,usage=serve latest image and trajectory on this address"`
	SlamDB      string `flag:"slam-db,usage=save the SLAM database to this folder on clean exit"`
}

func mainWithArgs(ctx context.Context, args []string, logger golog.Logger) error {
	var argsParsed Arguments
	if err := utils.ParseFlags(args, &argsParsed); err != nil {
		return err
	}

	lib, err := cuvslam.DefaultLibrary()
	if err != nil {
		return err
	}
	if ver, status := lib.Version(); status == cuvslam.StatusSuccess {
		logger.Infow("cuvslam engine", "major", ver.Major, "minor", ver.Minor, "detail", ver.Detail)
	}

	rig, err := rigFromArgs(argsParsed)
	if err != nil {
		return err
	}
	logger.Infow("camera rig ready", "cameras", rig.CameraCount())
	for i := 0; i < rig.CameraCount(); i++ {
		cam := rig.Camera(i)
		logger.Infow("camera",
			"index", i,
			"resolution", []int{cam.Width, cam.Height},
			"model", cam.Distortion.Name(),
		)
	}

	return runLoop(ctx, lib, rig, argsParsed, logger)
}

func runLoop(
	ctx context.Context,
	lib cuvslam.Library,
	rig *cuvslam.CameraRig,
	args Arguments,
	logger golog.Logger,
) (err error) {
	source := fake.NewSource(fake.Config{Cameras: rig.CameraCount()}, logger)
	defer func() {
		err = multierr.Combine(err, source.Close())
	}()

	sink := viz.Sink(viz.NewLogSink(logger))
	if args.WebAddr != "" {
		web, werr := viz.NewWebSink(args.WebAddr, logger)
		if werr != nil {
			return werr
		}
		sink = viz.MultiSink(sink, web)
	}
	defer func() {
		err = multierr.Combine(err, sink.Close())
	}()

	tracker, err := cuvslam.NewTracker(lib, rig, lib.DefaultConfiguration(), logger)
	if err != nil {
		return err
	}

	logger.Info("starting tracking loop")
	// The driver owns the tracker from here and destroys it on every exit
	// path, including a requested stop.
	return driver.New(tracker, source, sink, logger, driver.Options{
		SaveFolder: args.SlamDB,
	}).Run(ctx)
}

func rigFromArgs(args Arguments) (*cuvslam.CameraRig, error) {
	if args.Calibration != "" {
		return cuvslam.NewCameraRigFromJSONFile(args.Calibration)
	}
	return cuvslam.DefaultStereoRig()
}
