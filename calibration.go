package cuvslam

import (
	"encoding/json"
	"os"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// RigConfig is the JSON-file form of a camera rig calibration.
type RigConfig struct {
	Cameras []CameraConfig `json:"cameras"`
}

// CameraConfig is one camera's calibration as stored on disk. Rotation is
// the 3x3 extrinsic rotation in column-major order; translation is in
// meters relative to the rig origin.
type CameraConfig struct {
	Width                int        `json:"width_px"`
	Height               int        `json:"height_px"`
	DistortionModel      string     `json:"distortion_model"`
	DistortionParameters []float64  `json:"distortion_parameters"`
	BorderTop            int        `json:"border_top,omitempty"`
	BorderBottom         int        `json:"border_bottom,omitempty"`
	BorderLeft           int        `json:"border_left,omitempty"`
	BorderRight          int        `json:"border_right,omitempty"`
	Rotation             [9]float64 `json:"rotation"`
	TranslationM         [3]float64 `json:"translation_m"`
}

// Rig builds the camera rig described by the config.
func (rc *RigConfig) Rig() (*CameraRig, error) {
	cameras := make([]Camera, 0, len(rc.Cameras))
	for i, cc := range rc.Cameras {
		model, err := NewDistortionModel(cc.DistortionModel, cc.DistortionParameters)
		if err != nil {
			return nil, errors.Wrapf(err, "camera %d", i)
		}
		cameras = append(cameras, Camera{
			Width:        cc.Width,
			Height:       cc.Height,
			Distortion:   model,
			BorderTop:    cc.BorderTop,
			BorderBottom: cc.BorderBottom,
			BorderLeft:   cc.BorderLeft,
			BorderRight:  cc.BorderRight,
			Pose: NewPose(
				Rotation(cc.Rotation),
				r3.Vector{X: cc.TranslationM[0], Y: cc.TranslationM[1], Z: cc.TranslationM[2]},
			),
		})
	}
	return NewCameraRig(cameras)
}

// NewCameraRigFromJSONFile reads a rig calibration file and builds the rig.
func NewCameraRigFromJSONFile(path string) (*CameraRig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading rig calibration file")
	}
	var rc RigConfig
	if err := json.Unmarshal(data, &rc); err != nil {
		return nil, errors.Wrapf(err, "parsing rig calibration file %q", path)
	}
	return rc.Rig()
}

// DefaultStereoRig returns a two camera 640x480 rig with the cameras level
// and 55mm apart, a stand-in calibration for a small stereo depth module.
// Real deployments should load measured calibration with
// NewCameraRigFromJSONFile instead.
func DefaultStereoRig() (*CameraRig, error) {
	distortion := Brown5k{Cx: 320, Cy: 240, Fx: 385, Fy: 385}
	left := Camera{
		Width:      640,
		Height:     480,
		Distortion: distortion,
		Pose:       IdentityPose(),
	}
	right := left
	right.Pose = NewPose(IdentityRotation(), r3.Vector{X: 0.055})
	return NewCameraRig([]Camera{left, right})
}
