package cuvslam

import (
	"context"
	"sync"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
)

var errTrackerClosed = errors.New("tracker session already destroyed")

// Tracker owns one native tracker handle. Its life is a three-state
// machine: created by NewTracker, driven by Track/OdometryPose/SaveToSlamDB
// while active, and destroyed exactly once by Close, after which every
// method fails without touching the native layer.
//
// The engine is not reentrant per handle, so a mutex serializes all calls;
// at most one Track is ever in flight.
type Tracker struct {
	mu     sync.Mutex
	lib    Library
	handle Handle
	// rig is retained for the whole session because the engine may keep
	// pointers into the rig's parameter buffers after create.
	rig    *CameraRig
	logger golog.Logger
	closed bool
}

// NewTracker creates a native tracker session for the given rig. On any
// non-success status no session exists, nothing needs destroying, and the
// status is returned as the error. The rig must not be mutated for as long
// as the returned Tracker is alive.
func NewTracker(lib Library, rig *CameraRig, cfg Configuration, logger golog.Logger) (*Tracker, error) {
	if lib == nil {
		return nil, errors.New("no engine library provided")
	}
	if rig == nil || rig.CameraCount() == 0 {
		return nil, errors.New("camera rig must have at least one camera")
	}
	handle, status := lib.CreateTracker(rig.nativeView(), cfg)
	if status != StatusSuccess {
		return nil, errors.Wrap(status, "create tracker")
	}
	logger.Debugw("created cuvslam tracker session", "cameras", rig.CameraCount())
	return &Tracker{lib: lib, handle: handle, rig: rig, logger: logger}, nil
}

// CameraCount returns the camera count of the rig this session was built
// from; Track expects exactly this many images.
func (t *Tracker) CameraCount() int {
	return t.rig.CameraCount()
}

// Track runs one synchronous tracking step. images must hold exactly one
// entry per rig camera, each referencing pixel data that stays valid and
// unmodified until Track returns; the engine borrows the buffers only for
// the duration of the call. predicted may be nil.
//
// A StatusTrackingLost error is recoverable: the session stays usable and
// the engine attempts recovery on subsequent calls. Any other engine status
// is fatal to the session. The context is only consulted before the native
// call; the call itself cannot be canceled.
func (t *Tracker) Track(ctx context.Context, images []Image, predicted *Pose) (*PoseEstimate, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, errTrackerClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(images) != t.rig.CameraCount() {
		return nil, errors.Errorf("got %d images for a %d camera rig", len(images), t.rig.CameraCount())
	}
	nimgs := make([]nativeImage, len(images))
	for i, img := range images {
		if len(img.Pixels) == 0 {
			return nil, errors.Errorf("image %d has no pixel data", i)
		}
		nimgs[i] = nativeImage{
			Width:       int32(img.Width),
			Height:      int32(img.Height),
			Pitch:       int32(img.Stride),
			Pixels:      img.Pixels,
			CameraIndex: int32(img.CameraIndex),
			TimestampNs: img.TimestampNs,
			Encoding:    int32(img.Encoding),
		}
	}
	var npred *nativePose
	if predicted != nil {
		np := poseToNative(*predicted)
		npred = &np
	}
	est, status := t.lib.Track(t.handle, nimgs, npred)
	if status != StatusSuccess {
		return nil, errors.Wrap(status, "track")
	}
	out := &PoseEstimate{
		Pose:        poseFromNative(est.Pose),
		TimestampNs: est.TimestampNs,
	}
	for i, c := range est.Covariance {
		out.Covariance[i] = float64(c)
	}
	return out, nil
}

// OdometryPose returns the engine's current pose estimate in its own
// reference frame. Read-only. Before the first successful Track the engine
// reports StatusSlamNotInitialized.
func (t *Tracker) OdometryPose(ctx context.Context) (Pose, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return Pose{}, errTrackerClosed
	}
	if err := ctx.Err(); err != nil {
		return Pose{}, err
	}
	np, status := t.lib.OdometryPose(t.handle)
	if status != StatusSuccess {
		return Pose{}, errors.Wrap(status, "get odometry pose")
	}
	return poseFromNative(np), nil
}

// SaveToSlamDB persists the engine's map and trajectory to the given
// folder, passed through verbatim. The call can block for a long time and
// cannot be canceled once issued; it has no effect on session state either
// way.
func (t *Tracker) SaveToSlamDB(ctx context.Context, folder string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return errTrackerClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if folder == "" {
		return errors.New("slam db folder cannot be empty")
	}
	if status := t.lib.SaveToSlamDB(t.handle, folder); status != StatusSuccess {
		return errors.Wrapf(status, "save slam db to %q", folder)
	}
	return nil
}

// Close destroys the native tracker. The first call releases the handle;
// later calls are no-ops, so deferring Close on every ownership path is
// always safe and the handle can neither leak nor be double released.
func (t *Tracker) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	t.lib.DestroyTracker(t.handle)
	t.handle = 0
	t.logger.Debug("destroyed cuvslam tracker session")
	return nil
}
