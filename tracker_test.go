package cuvslam

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

// fakeLibrary is an in-process stand-in for the native engine that counts
// boundary calls and plays back scripted statuses.
type fakeLibrary struct {
	maxCameras int
	createFail Status

	createCalls  int
	destroyCalls int
	trackCalls   int

	trackScript []Status // consumed per Track call; empty means success
	trackedOnce bool

	lastImageCount int
	lastTimestamp  int64
	savedFolders   []string
	liveHandles    map[Handle]bool
	nextHandle     Handle
}

func newFakeLibrary() *fakeLibrary {
	return &fakeLibrary{liveHandles: map[Handle]bool{}, nextHandle: 1}
}

func (l *fakeLibrary) DefaultConfiguration() Configuration {
	return Configuration{
		HorizontalStereoCamera:       true,
		UseMotionModel:               true,
		UseGPU:                       true,
		EnableLocalizationAndMapping: true,
		MaxFrameDeltaMs:              100,
	}
}

func (l *fakeLibrary) Version() (Version, Status) {
	return Version{Major: 12, Minor: 6, Detail: "fake"}, StatusSuccess
}

func (l *fakeLibrary) CreateTracker(cameras []nativeCamera, cfg Configuration) (Handle, Status) {
	l.createCalls++
	if l.createFail != StatusSuccess {
		return 0, l.createFail
	}
	if l.maxCameras > 0 && len(cameras) > l.maxCameras {
		return 0, StatusUnsupportedNumberOfCameras
	}
	h := l.nextHandle
	l.nextHandle++
	l.liveHandles[h] = true
	return h, StatusSuccess
}

func (l *fakeLibrary) Track(h Handle, images []nativeImage, predicted *nativePose) (nativePoseEstimate, Status) {
	l.trackCalls++
	l.lastImageCount = len(images)
	if len(images) > 0 {
		l.lastTimestamp = images[0].TimestampNs
	}
	status := StatusSuccess
	if len(l.trackScript) > 0 {
		status = l.trackScript[0]
		l.trackScript = l.trackScript[1:]
	}
	if status != StatusSuccess {
		return nativePoseEstimate{}, status
	}
	l.trackedOnce = true
	est := nativePoseEstimate{
		Pose:        poseToNative(NewPose(IdentityRotation(), testTranslation)),
		TimestampNs: l.lastTimestamp,
	}
	for i := range est.Covariance {
		est.Covariance[i] = 0.001
	}
	return est, StatusSuccess
}

func (l *fakeLibrary) OdometryPose(h Handle) (nativePose, Status) {
	if !l.trackedOnce {
		return nativePose{}, StatusSlamNotInitialized
	}
	return poseToNative(NewPose(IdentityRotation(), testTranslation)), StatusSuccess
}

func (l *fakeLibrary) SaveToSlamDB(h Handle, folder string) Status {
	l.savedFolders = append(l.savedFolders, folder)
	return StatusSuccess
}

func (l *fakeLibrary) DestroyTracker(h Handle) {
	l.destroyCalls++
	delete(l.liveHandles, h)
}

var testTranslation = r3.Vector{X: 0.125, Y: -0.5, Z: 2}

func testRig(t *testing.T, cameras int) *CameraRig {
	t.Helper()
	descs := make([]Camera, cameras)
	for i := range descs {
		descs[i] = testCamera(float64(i) * 0.055)
	}
	rig, err := NewCameraRig(descs)
	test.That(t, err, test.ShouldBeNil)
	return rig
}

func testImages(rig *CameraRig, count int) []Image {
	images := make([]Image, count)
	for i := range images {
		cam := rig.Camera(0)
		buf := make([]byte, cam.Width*cam.Height)
		images[i] = Image{
			Width:       cam.Width,
			Height:      cam.Height,
			Stride:      cam.Width,
			Pixels:      buf,
			CameraIndex: i,
			TimestampNs: time.Now().UnixNano(),
			Encoding:    EncodingMono8,
		}
	}
	return images
}

func TestNewTrackerRequiresRig(t *testing.T) {
	logger := golog.NewTestLogger(t)
	lib := newFakeLibrary()
	_, err := NewTracker(lib, nil, lib.DefaultConfiguration(), logger)
	test.That(t, err, test.ShouldNotBeNil)
	// The empty-rig failure never reaches the native boundary.
	test.That(t, lib.createCalls, test.ShouldEqual, 0)

	_, err = NewTracker(nil, testRig(t, 1), Configuration{}, logger)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestNewTrackerCreateFailure(t *testing.T) {
	logger := golog.NewTestLogger(t)
	lib := newFakeLibrary()
	lib.createFail = StatusGenericError

	tracker, err := NewTracker(lib, testRig(t, 2), lib.DefaultConfiguration(), logger)
	test.That(t, tracker, test.ShouldBeNil)
	status, ok := StatusOf(err)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, status, test.ShouldEqual, StatusGenericError)
	// No session was produced, so nothing may be destroyed.
	test.That(t, lib.createCalls, test.ShouldEqual, 1)
	test.That(t, lib.destroyCalls, test.ShouldEqual, 0)
}

func TestNewTrackerUnsupportedNumberOfCameras(t *testing.T) {
	logger := golog.NewTestLogger(t)
	lib := newFakeLibrary()
	lib.maxCameras = 2

	tracker, err := NewTracker(lib, testRig(t, 3), lib.DefaultConfiguration(), logger)
	test.That(t, tracker, test.ShouldBeNil)
	status, ok := StatusOf(err)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, status, test.ShouldEqual, StatusUnsupportedNumberOfCameras)
	test.That(t, lib.destroyCalls, test.ShouldEqual, 0)
}

func TestTrackImageCountMismatch(t *testing.T) {
	logger := golog.NewTestLogger(t)
	lib := newFakeLibrary()
	rig := testRig(t, 2)
	tracker, err := NewTracker(lib, rig, lib.DefaultConfiguration(), logger)
	test.That(t, err, test.ShouldBeNil)
	defer func() {
		test.That(t, tracker.Close(), test.ShouldBeNil)
	}()

	_, err = tracker.Track(context.Background(), testImages(rig, 1), nil)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "2 camera rig")
	// The mismatch is a binding-layer error, not an engine status, and the
	// native call never happens.
	_, ok := StatusOf(err)
	test.That(t, ok, test.ShouldBeFalse)
	test.That(t, lib.trackCalls, test.ShouldEqual, 0)
}

func TestTrackLostAndRecovered(t *testing.T) {
	logger := golog.NewTestLogger(t)
	lib := newFakeLibrary()
	lib.trackScript = []Status{StatusSuccess, StatusTrackingLost, StatusSuccess}
	rig := testRig(t, 2)
	tracker, err := NewTracker(lib, rig, lib.DefaultConfiguration(), logger)
	test.That(t, err, test.ShouldBeNil)
	ctx := context.Background()

	estimate, err := tracker.Track(ctx, testImages(rig, 2), nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, math.IsNaN(estimate.Pose.Translation.X), test.ShouldBeFalse)
	test.That(t, math.IsInf(estimate.Pose.Translation.X, 0), test.ShouldBeFalse)
	test.That(t, estimate.Pose.Translation.X, test.ShouldAlmostEqual, 0.125)
	test.That(t, estimate.Covariance[0], test.ShouldAlmostEqual, 0.001, 1e-9)

	// A lost frame is recoverable: the error carries the status and the
	// session stays alive.
	_, err = tracker.Track(ctx, testImages(rig, 2), nil)
	status, ok := StatusOf(err)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, status, test.ShouldEqual, StatusTrackingLost)
	test.That(t, status.Recoverable(), test.ShouldBeTrue)
	test.That(t, lib.destroyCalls, test.ShouldEqual, 0)

	// And the next good frame tracks again without re-creating anything.
	_, err = tracker.Track(ctx, testImages(rig, 2), nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, lib.createCalls, test.ShouldEqual, 1)
	test.That(t, lib.trackCalls, test.ShouldEqual, 3)

	test.That(t, tracker.Close(), test.ShouldBeNil)
	test.That(t, lib.destroyCalls, test.ShouldEqual, 1)
}

func TestTrackPredictedPoseForwarded(t *testing.T) {
	logger := golog.NewTestLogger(t)
	lib := newFakeLibrary()
	rig := testRig(t, 1)
	tracker, err := NewTracker(lib, rig, lib.DefaultConfiguration(), logger)
	test.That(t, err, test.ShouldBeNil)
	defer func() {
		test.That(t, tracker.Close(), test.ShouldBeNil)
	}()

	predicted := IdentityPose()
	_, err = tracker.Track(context.Background(), testImages(rig, 1), &predicted)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, lib.lastImageCount, test.ShouldEqual, 1)
}

func TestCloseExactlyOnce(t *testing.T) {
	logger := golog.NewTestLogger(t)
	lib := newFakeLibrary()
	rig := testRig(t, 2)
	tracker, err := NewTracker(lib, rig, lib.DefaultConfiguration(), logger)
	test.That(t, err, test.ShouldBeNil)

	test.That(t, tracker.Close(), test.ShouldBeNil)
	test.That(t, tracker.Close(), test.ShouldBeNil)
	test.That(t, tracker.Close(), test.ShouldBeNil)
	test.That(t, lib.createCalls, test.ShouldEqual, 1)
	test.That(t, lib.destroyCalls, test.ShouldEqual, 1)
	test.That(t, lib.liveHandles, test.ShouldBeEmpty)

	// Every call after destroy fails without touching the native layer.
	_, err = tracker.Track(context.Background(), testImages(rig, 2), nil)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "destroyed")
	test.That(t, lib.trackCalls, test.ShouldEqual, 0)

	_, err = tracker.OdometryPose(context.Background())
	test.That(t, err, test.ShouldNotBeNil)
	err = tracker.SaveToSlamDB(context.Background(), "somewhere")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, lib.savedFolders, test.ShouldBeEmpty)
}

func TestOdometryPose(t *testing.T) {
	logger := golog.NewTestLogger(t)
	lib := newFakeLibrary()
	rig := testRig(t, 2)
	tracker, err := NewTracker(lib, rig, lib.DefaultConfiguration(), logger)
	test.That(t, err, test.ShouldBeNil)
	defer func() {
		test.That(t, tracker.Close(), test.ShouldBeNil)
	}()
	ctx := context.Background()

	// Before any successful track the engine has no odometry yet.
	_, err = tracker.OdometryPose(ctx)
	status, ok := StatusOf(err)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, status, test.ShouldEqual, StatusSlamNotInitialized)

	_, err = tracker.Track(ctx, testImages(rig, 2), nil)
	test.That(t, err, test.ShouldBeNil)

	pose, err := tracker.OdometryPose(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pose.Translation.X, test.ShouldAlmostEqual, 0.125)
	test.That(t, pose.Rotation, test.ShouldResemble, IdentityRotation())
}

func TestSaveToSlamDB(t *testing.T) {
	logger := golog.NewTestLogger(t)
	lib := newFakeLibrary()
	rig := testRig(t, 2)
	tracker, err := NewTracker(lib, rig, lib.DefaultConfiguration(), logger)
	test.That(t, err, test.ShouldBeNil)
	defer func() {
		test.That(t, tracker.Close(), test.ShouldBeNil)
	}()

	err = tracker.SaveToSlamDB(context.Background(), "")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, lib.savedFolders, test.ShouldBeEmpty)

	// The folder is passed through verbatim.
	err = tracker.SaveToSlamDB(context.Background(), "/tmp/slam db/run 1")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, lib.savedFolders, test.ShouldResemble, []string{"/tmp/slam db/run 1"})
}

func TestTrackCanceledContext(t *testing.T) {
	logger := golog.NewTestLogger(t)
	lib := newFakeLibrary()
	rig := testRig(t, 1)
	tracker, err := NewTracker(lib, rig, lib.DefaultConfiguration(), logger)
	test.That(t, err, test.ShouldBeNil)
	defer func() {
		test.That(t, tracker.Close(), test.ShouldBeNil)
	}()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = tracker.Track(ctx, testImages(rig, 1), nil)
	test.That(t, err, test.ShouldBeError, context.Canceled)
	test.That(t, lib.trackCalls, test.ShouldEqual, 0)
}
