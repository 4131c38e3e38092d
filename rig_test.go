package cuvslam

import (
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func testCamera(baselineM float64) Camera {
	return Camera{
		Width:      640,
		Height:     480,
		Distortion: Brown5k{Cx: 320, Cy: 240, Fx: 385, Fy: 385},
		Pose:       NewPose(IdentityRotation(), r3.Vector{X: baselineM}),
	}
}

func TestNewCameraRigEmpty(t *testing.T) {
	rig, err := NewCameraRig(nil)
	test.That(t, rig, test.ShouldBeNil)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "at least one camera")

	rig, err = NewCameraRig([]Camera{})
	test.That(t, rig, test.ShouldBeNil)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestNewCameraRigInvalidCamera(t *testing.T) {
	bad := testCamera(0)
	bad.Width = 0
	_, err := NewCameraRig([]Camera{bad})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "camera 0")

	noModel := testCamera(0)
	noModel.Distortion = nil
	_, err = NewCameraRig([]Camera{noModel})
	test.That(t, err, test.ShouldNotBeNil)
}

func TestCameraRigNativeMirror(t *testing.T) {
	left := testCamera(0)
	right := testCamera(0.055)
	right.BorderLeft = 8

	rig, err := NewCameraRig([]Camera{left, right})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, rig.CameraCount(), test.ShouldEqual, 2)
	test.That(t, rig.Camera(1).BorderLeft, test.ShouldEqual, 8)

	// The mirror preserves input order and copies all parameters into
	// rig-owned float32 buffers.
	view := rig.nativeView()
	test.That(t, view, test.ShouldHaveLength, 2)
	for i, ncam := range view {
		test.That(t, ncam.Width, test.ShouldEqual, int32(640))
		test.That(t, ncam.Height, test.ShouldEqual, int32(480))
		test.That(t, ncam.DistortionModel, test.ShouldEqual, "brown5k")
		params := rig.Camera(i).Distortion.Parameters()
		test.That(t, ncam.Parameters, test.ShouldHaveLength, len(params))
		for j, p := range params {
			test.That(t, ncam.Parameters[j], test.ShouldEqual, float32(p))
		}
	}
	test.That(t, view[0].Pose.T, test.ShouldResemble, [3]float32{0, 0, 0})
	test.That(t, view[1].Pose.T, test.ShouldResemble, [3]float32{0.055, 0, 0})
	test.That(t, view[1].BorderLeft, test.ShouldEqual, int32(8))
}

func TestCameraRigNativeBuffersAreStable(t *testing.T) {
	rig, err := NewCameraRig([]Camera{testCamera(0)})
	test.That(t, err, test.ShouldBeNil)

	// Repeated views hand back the same backing storage; nothing is
	// rebuilt per call, so pointers taken at create stay valid for the
	// rig's lifetime.
	a := rig.nativeView()
	b := rig.nativeView()
	test.That(t, &a[0].Parameters[0], test.ShouldEqual, &b[0].Parameters[0])
}
