package cuvslam

import "github.com/pkg/errors"

// Camera describes one physical camera in a rig: resolution, lens model,
// the valid-region borders in pixels (zero means use the full frame), and
// the camera's pose relative to the rig origin. A Camera is immutable once
// handed to NewCameraRig.
type Camera struct {
	Width  int
	Height int

	Distortion DistortionModel

	BorderTop    int
	BorderBottom int
	BorderLeft   int
	BorderRight  int

	Pose Pose
}

// CheckValid returns an error if the descriptor cannot be sent to the
// engine as is.
func (c Camera) CheckValid() error {
	if c.Width <= 0 || c.Height <= 0 {
		return errors.Errorf("camera resolution must be positive, got %dx%d", c.Width, c.Height)
	}
	if c.BorderTop < 0 || c.BorderBottom < 0 || c.BorderLeft < 0 || c.BorderRight < 0 {
		return errors.New("camera borders cannot be negative")
	}
	if c.Distortion == nil {
		return errors.New("camera has no distortion model")
	}
	if err := c.Distortion.CheckValid(); err != nil {
		return errors.Wrapf(err, "%s distortion model", c.Distortion.Name())
	}
	// The native layer trusts the (name, count) pair; verify it locally so a
	// mismatch never crosses the boundary.
	want, known := distortionParameterCounts[c.Distortion.Name()]
	if !known {
		return errors.Errorf("unknown distortion model %q", c.Distortion.Name())
	}
	if got := len(c.Distortion.Parameters()); got != want {
		return errors.Errorf("%s distortion model takes %d parameters, got %d", c.Distortion.Name(), want, got)
	}
	return nil
}
