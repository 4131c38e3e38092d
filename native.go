package cuvslam

// Handle identifies one live native tracker instance. The zero handle is
// never valid.
type Handle uintptr

// nativePose mirrors the native pose struct: a 3x3 rotation stored
// column-major and a translation in meters, both single precision.
type nativePose struct {
	R [9]float32
	T [3]float32
}

func poseToNative(p Pose) nativePose {
	var np nativePose
	for i, v := range p.Rotation {
		np.R[i] = float32(v)
	}
	np.T[0] = float32(p.Translation.X)
	np.T[1] = float32(p.Translation.Y)
	np.T[2] = float32(p.Translation.Z)
	return np
}

func poseFromNative(np nativePose) Pose {
	var p Pose
	for i, v := range np.R {
		p.Rotation[i] = float64(v)
	}
	p.Translation.X = float64(np.T[0])
	p.Translation.Y = float64(np.T[1])
	p.Translation.Z = float64(np.T[2])
	return p
}

// nativeCamera is the rig-owned mirror of one camera descriptor. Parameters
// is owned by the rig and stays stable for the rig's lifetime; Library
// implementations may read it during any call against a session built from
// the rig but must not assume it outlives the rig.
type nativeCamera struct {
	Width           int32
	Height          int32
	DistortionModel string
	Parameters      []float32
	BorderTop       int32
	BorderBottom    int32
	BorderLeft      int32
	BorderRight     int32
	Pose            nativePose
}

// nativeImage is the engine-facing image descriptor. Pixels aliases a
// caller-owned buffer and is valid only for the duration of the Track call
// it is passed to.
type nativeImage struct {
	Width       int32
	Height      int32
	Pitch       int32
	Pixels      []byte
	CameraIndex int32
	TimestampNs int64
	Encoding    int32
}

// nativePoseEstimate mirrors the native pose estimate: pose, timestamp and
// a 6x6 row-major covariance over (rot_x, rot_y, rot_z, x, y, z).
type nativePoseEstimate struct {
	Pose        nativePose
	TimestampNs int64
	Covariance  [36]float32
}

// Library is the flat native function table, Go shaped. Exactly one status
// comes back from every fallible call and zero-valued success is the only
// code that carries a usable result.
//
// The interface is sealed: its method signatures use package-private types
// so the only implementations are the linked engine bindings and the test
// fakes in this package. Consumers that need to stub out tracking should
// mock Tracker's behavior through the driver.Session interface instead.
type Library interface {
	DefaultConfiguration() Configuration
	Version() (Version, Status)

	// CreateTracker allocates engine state for the given rig. The camera
	// slice is the rig's nativeView; implementations that hand pointers to
	// the engine must copy parameter data into storage they free in
	// DestroyTracker.
	CreateTracker(cameras []nativeCamera, cfg Configuration) (Handle, Status)

	// Track runs one synchronous tracking step. Image pixel buffers are
	// borrowed only until the call returns.
	Track(h Handle, images []nativeImage, predicted *nativePose) (nativePoseEstimate, Status)

	OdometryPose(h Handle) (nativePose, Status)

	// SaveToSlamDB persists the engine's map to the given folder. Blocking
	// and potentially long; there is no mid-call cancellation.
	SaveToSlamDB(h Handle, folder string) Status

	// DestroyTracker releases the handle. Callers guarantee it is invoked
	// at most once per handle and never concurrently with another call on
	// the same handle.
	DestroyTracker(h Handle)
}
