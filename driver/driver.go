// Package driver runs the synchronous tracking loop: acquire a frame set,
// marshal it, track, classify the outcome, emit to visualization, repeat.
package driver

import (
	"context"
	"image"

	"github.com/benbjohnson/clock"
	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/vyeevani/cuvslam"
	"github.com/vyeevani/cuvslam/capture"
	"github.com/vyeevani/cuvslam/viz"
)

// Session is the slice of the tracker the loop drives. *cuvslam.Tracker
// satisfies it.
type Session interface {
	CameraCount() int
	Track(ctx context.Context, images []cuvslam.Image, predicted *cuvslam.Pose) (*cuvslam.PoseEstimate, error)
	SaveToSlamDB(ctx context.Context, folder string) error
	Close() error
}

// Options tune the loop.
type Options struct {
	// Encoding is the pixel encoding of marshaled frames. Defaults to
	// Mono8.
	Encoding cuvslam.ImageEncoding
	// ImageName and PoseName tag emissions to the viz sink.
	ImageName string
	PoseName  string
	// SaveFolder, if set, makes the loop save the SLAM database there when
	// it stops cleanly.
	SaveFolder string
	// Clock stamps marshaled frames; defaults to the wall clock.
	Clock clock.Clock
}

// Driver owns one tracking session for the duration of a Run and guarantees
// the session is destroyed exactly once before Run returns, whatever path
// it exits by.
type Driver struct {
	session Session
	source  capture.Source
	sink    viz.Sink
	logger  golog.Logger
	opts    Options
}

// New returns a loop driver over the given session, frame source and viz
// sink. The sink may be nil. The driver takes ownership of the session; the
// source and sink remain the caller's to close.
func New(session Session, source capture.Source, sink viz.Sink, logger golog.Logger, opts Options) *Driver {
	if opts.ImageName == "" {
		opts.ImageName = "camera_image"
	}
	if opts.PoseName == "" {
		opts.PoseName = "camera_translation"
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	return &Driver{
		session: session,
		source:  source,
		sink:    sink,
		logger:  logger,
		opts:    opts,
	}
}

// Run drives the loop until the context is canceled, the capture source
// fails, or the engine reports a fatal status. Frames are processed
// strictly in delivery order and each iteration completes, including
// visualization emission, before the next acquisition begins. Tracking
// lost and acquisition timeouts are recoverable; everything else stops the
// loop. A context stop returns nil. On every return path the session is
// closed, preceded by a SLAM database save when one was requested and the
// stop was clean.
func (d *Driver) Run(ctx context.Context) (err error) {
	defer func() {
		if err == nil && d.opts.SaveFolder != "" {
			// The run context is usually canceled by the time a clean stop
			// gets here; the save gets its own context.
			if serr := d.session.SaveToSlamDB(context.Background(), d.opts.SaveFolder); serr != nil {
				d.logger.Errorw("failed to save slam db", "folder", d.opts.SaveFolder, "error", serr)
			} else {
				d.logger.Infow("saved slam db", "folder", d.opts.SaveFolder)
			}
		}
		err = multierr.Combine(err, d.session.Close())
	}()

	cameras := d.session.CameraCount()
	for {
		if ctx.Err() != nil {
			return nil
		}

		frames, err := d.source.NextFrameSet(ctx)
		switch {
		case errors.Is(err, capture.ErrFrameTimeout):
			d.logger.Debug("no frame set within wait bound; retrying")
			continue
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return nil
		case err != nil:
			return errors.Wrap(err, "frame acquisition")
		}

		if len(frames) != cameras {
			d.logger.Warnw("frame set does not match rig; skipping",
				"frames", len(frames), "cameras", cameras)
			continue
		}

		// The images alias the frames' buffers; they must be consumed by
		// this Track call before the source can recycle the frames.
		now := d.opts.Clock.Now()
		images := make([]cuvslam.Image, len(frames))
		for i, f := range frames {
			images[i] = cuvslam.NewImage(f, i, d.opts.Encoding, now)
		}

		estimate, err := d.session.Track(ctx, images, nil)
		if err != nil {
			if status, ok := cuvslam.StatusOf(err); ok && status.Recoverable() {
				d.logger.Infow("tracking lost; continuing", "status", status.String())
				continue
			}
			return errors.Wrap(err, "tracking loop stopped")
		}

		d.emit(frames[0], estimate)
	}
}

// emit forwards the pose and the first camera's image to the viz sink.
// Sink errors are surfaced in the log but never stop tracking.
func (d *Driver) emit(frame capture.Frame, estimate *cuvslam.PoseEstimate) {
	if d.sink == nil {
		return
	}
	if err := d.sink.LogPose(d.opts.PoseName, estimate.Pose.Translation, &estimate.Pose.Rotation); err != nil {
		d.logger.Warnw("failed to emit pose", "error", err)
	}
	if err := d.sink.LogImage(d.opts.ImageName, grayFromFrame(frame)); err != nil {
		d.logger.Warnw("failed to emit image", "error", err)
	}
}

// grayFromFrame copies a frame into a standalone gray image. The copy is
// what sinks may retain; the frame's own buffer never crosses the sink
// boundary.
func grayFromFrame(f capture.Frame) *image.Gray {
	w, h := f.Width(), f.Height()
	img := image.NewGray(image.Rect(0, 0, w, h))
	src := f.Bytes()
	for y := 0; y < h; y++ {
		copy(img.Pix[y*img.Stride:y*img.Stride+w], src[y*f.Stride():y*f.Stride()+w])
	}
	return img
}
