// Package cuvslam provides a safe session layer over NVIDIA's cuVSLAM
// visual odometry engine. The engine itself is an opaque native library
// reached through a flat C function table; this package owns the parts of
// that contract where misuse would corrupt memory: camera rig descriptors
// whose native shape points into rig-owned buffers, the tracker session
// lifecycle (create, track, save, destroy exactly once), and the per-frame
// image marshaling that lends pixel buffers to the engine for the duration
// of a single call.
//
// The SLAM algorithm, the camera capture subsystem, and the visualization
// sink are all external collaborators. See the capture, viz and driver
// packages for their boundaries.
package cuvslam

// Version identifies the linked engine.
type Version struct {
	Major  int
	Minor  int
	Detail string
}

// Configuration mirrors the engine's tracker configuration. Zero values are
// not meaningful defaults; obtain a starting point from DefaultConfiguration
// and adjust from there.
type Configuration struct {
	// HorizontalStereoCamera enables the rectified horizontal stereo fast path.
	HorizontalStereoCamera bool
	UseMotionModel         bool
	UseDenoising           bool
	UseGPU                 bool
	// EnableLocalizationAndMapping turns on full SLAM rather than pure
	// odometry; required for SaveToSlamDB to produce anything useful.
	EnableLocalizationAndMapping bool
	EnableReadingSLAMInternals   bool
	// MaxFrameDeltaMs is the largest tolerated gap between consecutive
	// frame sets before the motion model is reset.
	MaxFrameDeltaMs    float64
	DebugDumpDirectory string
}

// DefaultConfiguration returns the linked engine's default configuration.
func DefaultConfiguration() (Configuration, error) {
	lib, err := DefaultLibrary()
	if err != nil {
		return Configuration{}, err
	}
	return lib.DefaultConfiguration(), nil
}

// EngineVersion reports the version of the linked engine.
func EngineVersion() (Version, error) {
	lib, err := DefaultLibrary()
	if err != nil {
		return Version{}, err
	}
	ver, status := lib.Version()
	if status != StatusSuccess {
		return Version{}, status
	}
	return ver, nil
}
