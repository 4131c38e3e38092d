package cuvslam

import "github.com/pkg/errors"

// CameraRig is an ordered, fixed collection of cameras. The index of a
// camera in the rig is the camera_index used for images throughout
// tracking.
//
// The rig owns a native-shaped mirror of every descriptor, including copies
// of each parameter vector, in buffers that stay stable for the rig's
// lifetime. Whether the engine copies those buffers during create or keeps
// pointing into them for the session's whole life is unspecified, so a rig
// must stay alive at least as long as any Tracker built from it; Tracker
// holds the rig to enforce that.
type CameraRig struct {
	cameras []Camera
	native  []nativeCamera
}

// NewCameraRig builds a rig from an ordered, non-empty camera sequence.
// All descriptor data is copied into rig-owned storage; no native call is
// made. Construction fails on an empty sequence or an invalid descriptor
// before the native boundary is ever reached.
func NewCameraRig(cameras []Camera) (*CameraRig, error) {
	if len(cameras) == 0 {
		return nil, errors.New("camera rig must have at least one camera")
	}
	rig := &CameraRig{
		cameras: make([]Camera, len(cameras)),
		native:  make([]nativeCamera, len(cameras)),
	}
	for i, cam := range cameras {
		if err := cam.CheckValid(); err != nil {
			return nil, errors.Wrapf(err, "camera %d", i)
		}
		params := cam.Distortion.Parameters()
		buf := make([]float32, len(params))
		for j, p := range params {
			buf[j] = float32(p)
		}
		rig.cameras[i] = cam
		rig.native[i] = nativeCamera{
			Width:           int32(cam.Width),
			Height:          int32(cam.Height),
			DistortionModel: cam.Distortion.Name(),
			Parameters:      buf,
			BorderTop:       int32(cam.BorderTop),
			BorderBottom:    int32(cam.BorderBottom),
			BorderLeft:      int32(cam.BorderLeft),
			BorderRight:     int32(cam.BorderRight),
			Pose:            poseToNative(cam.Pose),
		}
	}
	return rig, nil
}

// CameraCount returns the number of cameras in the rig.
func (r *CameraRig) CameraCount() int {
	return len(r.cameras)
}

// Camera returns the descriptor at the given index.
func (r *CameraRig) Camera(i int) Camera {
	return r.cameras[i]
}

// nativeView exposes the rig's native-shaped mirrors. The returned slice is
// read-only and must only be consumed at a native call site, never stored
// by anything with a shorter lifetime guarantee than the rig.
func (r *CameraRig) nativeView() []nativeCamera {
	return r.native
}
