// Package viz defines the visualization sink the tracking loop feeds.
// Sinks are fire and forget from the loop's perspective: their errors are
// surfaced but never stop tracking.
package viz

import (
	"image"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"go.uber.org/multierr"

	"github.com/vyeevani/cuvslam"
)

// Sink receives tracking output tagged by name. Implementations own
// whatever they are handed; callers pass copies, never live capture
// buffers.
type Sink interface {
	// LogImage records a single-channel image under the given name.
	LogImage(name string, img *image.Gray) error
	// LogPose records a 3D translation, and optionally a rotation, under
	// the given name.
	LogPose(name string, translation r3.Vector, rotation *cuvslam.Rotation) error
	Close() error
}

// NewLogSink returns a sink that writes poses to the given logger at info
// level and acknowledges images at debug level.
func NewLogSink(logger golog.Logger) Sink {
	return &logSink{logger: logger}
}

type logSink struct {
	logger golog.Logger
	images int
}

func (s *logSink) LogImage(name string, img *image.Gray) error {
	s.images++
	s.logger.Debugw("image", "name", name, "width", img.Rect.Dx(), "height", img.Rect.Dy(), "count", s.images)
	return nil
}

func (s *logSink) LogPose(name string, translation r3.Vector, rotation *cuvslam.Rotation) error {
	s.logger.Infow("pose",
		"name", name,
		"x", translation.X,
		"y", translation.Y,
		"z", translation.Z,
	)
	return nil
}

func (s *logSink) Close() error {
	return nil
}

// MultiSink fans out to several sinks, combining their errors.
func MultiSink(sinks ...Sink) Sink {
	return multiSink(sinks)
}

type multiSink []Sink

func (m multiSink) LogImage(name string, img *image.Gray) error {
	var err error
	for _, s := range m {
		err = multierr.Combine(err, s.LogImage(name, img))
	}
	return err
}

func (m multiSink) LogPose(name string, translation r3.Vector, rotation *cuvslam.Rotation) error {
	var err error
	for _, s := range m {
		err = multierr.Combine(err, s.LogPose(name, translation, rotation))
	}
	return err
}

func (m multiSink) Close() error {
	var err error
	for _, s := range m {
		err = multierr.Combine(err, s.Close())
	}
	return err
}
