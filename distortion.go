package cuvslam

import "github.com/pkg/errors"

// DistortionModel describes one of the closed set of lens models the engine
// understands. Name and parameter layout are part of the native contract:
// the engine rejects a create call whose model name and parameter count
// disagree, so both are fixed per variant here and verified before any
// native call is issued.
type DistortionModel interface {
	// Name is the model name sent verbatim to the native layer.
	Name() string
	// Parameters is the model's parameter vector in native order.
	Parameters() []float64
	CheckValid() error
}

// Model names and parameter counts from the native header.
const (
	pinholeModelName  = "pinhole"
	brown5kModelName  = "brown5k"
	fisheye4ModelName = "fisheye4"
)

var distortionParameterCounts = map[string]int{
	pinholeModelName:  4,
	brown5kModelName:  9,
	fisheye4ModelName: 8,
}

// Pinhole is an undistorted lens: principal point and focal lengths only.
type Pinhole struct {
	Cx, Cy float64
	Fx, Fy float64
}

// Name returns the native model name.
func (p Pinhole) Name() string { return pinholeModelName }

// Parameters returns cx, cy, fx, fy.
func (p Pinhole) Parameters() []float64 {
	return []float64{p.Cx, p.Cy, p.Fx, p.Fy}
}

// CheckValid returns an error if the focal lengths are not positive.
func (p Pinhole) CheckValid() error {
	return checkFocal(p.Fx, p.Fy)
}

// Brown5k is the Brown-Conrady model with three radial and two tangential
// coefficients.
type Brown5k struct {
	Cx, Cy     float64
	Fx, Fy     float64
	K1, K2, K3 float64
	P1, P2     float64
}

// Name returns the native model name.
func (b Brown5k) Name() string { return brown5kModelName }

// Parameters returns cx, cy, fx, fy, k1, k2, k3, p1, p2.
func (b Brown5k) Parameters() []float64 {
	return []float64{b.Cx, b.Cy, b.Fx, b.Fy, b.K1, b.K2, b.K3, b.P1, b.P2}
}

// CheckValid returns an error if the focal lengths are not positive.
func (b Brown5k) CheckValid() error {
	return checkFocal(b.Fx, b.Fy)
}

// Fisheye4 is the Kannala-Brandt fisheye model with four coefficients.
type Fisheye4 struct {
	Cx, Cy         float64
	Fx, Fy         float64
	K1, K2, K3, K4 float64
}

// Name returns the native model name.
func (f Fisheye4) Name() string { return fisheye4ModelName }

// Parameters returns cx, cy, fx, fy, k1, k2, k3, k4.
func (f Fisheye4) Parameters() []float64 {
	return []float64{f.Cx, f.Cy, f.Fx, f.Fy, f.K1, f.K2, f.K3, f.K4}
}

// CheckValid returns an error if the focal lengths are not positive.
func (f Fisheye4) CheckValid() error {
	return checkFocal(f.Fx, f.Fy)
}

func checkFocal(fx, fy float64) error {
	if fx <= 0 || fy <= 0 {
		return errors.Errorf("focal lengths must be positive, got fx=%v fy=%v", fx, fy)
	}
	return nil
}

// NewDistortionModel builds a model from its native name and parameter
// vector, as read from a calibration file. The parameter count must match
// the named model exactly.
func NewDistortionModel(name string, parameters []float64) (DistortionModel, error) {
	want, known := distortionParameterCounts[name]
	if !known {
		return nil, errors.Errorf("do not know how to parse %q distortion model", name)
	}
	if len(parameters) != want {
		return nil, errors.Errorf("%s distortion model takes %d parameters, got %d", name, want, len(parameters))
	}
	p := parameters
	switch name {
	case pinholeModelName:
		return Pinhole{Cx: p[0], Cy: p[1], Fx: p[2], Fy: p[3]}, nil
	case brown5kModelName:
		return Brown5k{Cx: p[0], Cy: p[1], Fx: p[2], Fy: p[3], K1: p[4], K2: p[5], K3: p[6], P1: p[7], P2: p[8]}, nil
	case fisheye4ModelName:
		return Fisheye4{Cx: p[0], Cy: p[1], Fx: p[2], Fy: p[3], K1: p[4], K2: p[5], K3: p[6], K4: p[7]}, nil
	default:
		return nil, errors.Errorf("do not know how to parse %q distortion model", name)
	}
}
