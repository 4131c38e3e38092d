//go:build cuvslam

package cuvslam

/*
#cgo LDFLAGS: -lcuvslam
#include <stdlib.h>
#include <string.h>
#include <cuvslam.h>
*/
import "C"

import (
	"sync"
	"unsafe"
)

// cgoLibrary is the production Library implementation. Because the engine
// may keep pointing into the rig arrays for the whole session, CreateTracker
// copies every camera descriptor, parameter vector and model name into
// C-allocated memory that is retained per handle and freed only in
// DestroyTracker. Pixel buffers, by contrast, are Go memory lent to the
// engine strictly for the duration of a single Track call, which the cgo
// pointer-passing rules permit.
type cgoLibrary struct {
	mu       sync.Mutex
	retained map[Handle]*rigStorage
}

// rigStorage is the C memory backing one session's rig description.
type rigStorage struct {
	cameras unsafe.Pointer   // C array of struct CUVSLAM_Camera
	blocks  []unsafe.Pointer // per-camera parameter arrays and model names
}

func (s *rigStorage) free() {
	for _, b := range s.blocks {
		C.free(b)
	}
	C.free(s.cameras)
}

// DefaultLibrary returns the linked engine bindings.
func DefaultLibrary() (Library, error) {
	return &cgoLibrary{retained: map[Handle]*rigStorage{}}, nil
}

func (l *cgoLibrary) DefaultConfiguration() Configuration {
	ccfg := C.CUVSLAM_GetDefaultConfiguration()
	return Configuration{
		HorizontalStereoCamera:       ccfg.horizontal_stereo_camera != 0,
		UseMotionModel:               ccfg.use_motion_model != 0,
		UseDenoising:                 ccfg.use_denoising != 0,
		UseGPU:                       ccfg.use_gpu != 0,
		EnableLocalizationAndMapping: ccfg.enable_localization_n_mapping != 0,
		EnableReadingSLAMInternals:   ccfg.enable_reading_slam_internals != 0,
		MaxFrameDeltaMs:              float64(ccfg.max_frame_delta_ms),
	}
}

func (l *cgoLibrary) Version() (Version, Status) {
	var major, minor C.int32_t
	var detail *C.char
	C.CUVSLAM_GetVersion(&major, &minor, &detail)
	ver := Version{Major: int(major), Minor: int(minor)}
	if detail != nil {
		ver.Detail = C.GoString(detail)
	}
	return ver, StatusSuccess
}

func (l *cgoLibrary) CreateTracker(cameras []nativeCamera, cfg Configuration) (Handle, Status) {
	storage := &rigStorage{}
	camSize := C.size_t(unsafe.Sizeof(C.struct_CUVSLAM_Camera{}))
	storage.cameras = C.malloc(camSize * C.size_t(len(cameras)))
	camArray := (*[1 << 16]C.struct_CUVSLAM_Camera)(storage.cameras)

	for i, cam := range cameras {
		name := C.CString(cam.DistortionModel)
		storage.blocks = append(storage.blocks, unsafe.Pointer(name))

		paramBytes := C.size_t(len(cam.Parameters)) * C.size_t(unsafe.Sizeof(C.float(0)))
		params := C.malloc(paramBytes)
		storage.blocks = append(storage.blocks, params)
		C.memcpy(params, unsafe.Pointer(&cam.Parameters[0]), paramBytes)

		ccam := &camArray[i]
		ccam.width = C.int32_t(cam.Width)
		ccam.height = C.int32_t(cam.Height)
		ccam.distortion_model = name
		ccam.parameters = (*C.float)(params)
		ccam.num_parameters = C.int32_t(len(cam.Parameters))
		ccam.border_top = C.int32_t(cam.BorderTop)
		ccam.border_bottom = C.int32_t(cam.BorderBottom)
		ccam.border_left = C.int32_t(cam.BorderLeft)
		ccam.border_right = C.int32_t(cam.BorderRight)
		ccam.pose = poseToC(cam.Pose)
	}

	crig := C.struct_CUVSLAM_CameraRig{
		cameras:     (*C.struct_CUVSLAM_Camera)(storage.cameras),
		num_cameras: C.int32_t(len(cameras)),
	}
	ccfg := configurationToC(cfg)
	defer freeConfiguration(&ccfg)

	var handle C.CUVSLAM_TrackerHandle
	code := C.CUVSLAM_CreateTracker(&handle, &crig, &ccfg)
	status := statusFromCode(int32(code))
	if status != StatusSuccess {
		storage.free()
		return 0, status
	}

	h := Handle(uintptr(unsafe.Pointer(handle)))
	l.mu.Lock()
	l.retained[h] = storage
	l.mu.Unlock()
	return h, status
}

func (l *cgoLibrary) Track(h Handle, images []nativeImage, predicted *nativePose) (nativePoseEstimate, Status) {
	cimgs := make([]C.struct_CUVSLAM_Image, len(images))
	for i, img := range images {
		cimgs[i] = C.struct_CUVSLAM_Image{
			pixels:         (*C.uint8_t)(unsafe.Pointer(&img.Pixels[0])),
			timestamp_ns:   C.int64_t(img.TimestampNs),
			width:          C.int32_t(img.Width),
			height:         C.int32_t(img.Height),
			pitch:          C.int32_t(img.Pitch),
			camera_index:   C.int32_t(img.CameraIndex),
			image_encoding: C.CUVSLAM_ImageEncoding(img.Encoding),
		}
	}

	var cpred *C.struct_CUVSLAM_Pose
	if predicted != nil {
		p := nativePoseToC(*predicted)
		cpred = &p
	}

	var cest C.struct_CUVSLAM_PoseEstimate
	code := C.CUVSLAM_Track(
		trackerHandle(h),
		&cimgs[0],
		C.size_t(len(cimgs)),
		cpred,
		&cest,
	)
	status := statusFromCode(int32(code))
	if status != StatusSuccess {
		return nativePoseEstimate{}, status
	}

	est := nativePoseEstimate{
		Pose:        nativePoseFromC(cest.pose),
		TimestampNs: int64(cest.timestamp_ns),
	}
	for i := range est.Covariance {
		est.Covariance[i] = float32(cest.covariance[i])
	}
	return est, status
}

func (l *cgoLibrary) OdometryPose(h Handle) (nativePose, Status) {
	var cpose C.struct_CUVSLAM_Pose
	code := C.CUVSLAM_GetOdometryPose(trackerHandle(h), &cpose)
	status := statusFromCode(int32(code))
	if status != StatusSuccess {
		return nativePose{}, status
	}
	return nativePoseFromC(cpose), status
}

func (l *cgoLibrary) SaveToSlamDB(h Handle, folder string) Status {
	cfolder := C.CString(folder)
	defer C.free(unsafe.Pointer(cfolder))
	code := C.CUVSLAM_SaveToSlamDb(trackerHandle(h), cfolder, nil, nil)
	return statusFromCode(int32(code))
}

func (l *cgoLibrary) DestroyTracker(h Handle) {
	C.CUVSLAM_DestroyTracker(trackerHandle(h))
	l.mu.Lock()
	storage := l.retained[h]
	delete(l.retained, h)
	l.mu.Unlock()
	if storage != nil {
		storage.free()
	}
}

func trackerHandle(h Handle) C.CUVSLAM_TrackerHandle {
	return C.CUVSLAM_TrackerHandle(unsafe.Pointer(uintptr(h)))
}

func poseToC(p nativePose) C.struct_CUVSLAM_Pose {
	return nativePoseToC(p)
}

func nativePoseToC(p nativePose) C.struct_CUVSLAM_Pose {
	var cp C.struct_CUVSLAM_Pose
	for i, v := range p.R {
		cp.r[i] = C.float(v)
	}
	for i, v := range p.T {
		cp.t[i] = C.float(v)
	}
	return cp
}

func nativePoseFromC(cp C.struct_CUVSLAM_Pose) nativePose {
	var p nativePose
	for i := range p.R {
		p.R[i] = float32(cp.r[i])
	}
	for i := range p.T {
		p.T[i] = float32(cp.t[i])
	}
	return p
}

func configurationToC(cfg Configuration) C.struct_CUVSLAM_Configuration {
	ccfg := C.CUVSLAM_GetDefaultConfiguration()
	// The default may carry an engine-owned directory string; drop it so
	// freeConfiguration only ever frees memory this side allocated.
	ccfg.debug_dump_directory = nil
	ccfg.horizontal_stereo_camera = cBool(cfg.HorizontalStereoCamera)
	ccfg.use_motion_model = cBool(cfg.UseMotionModel)
	ccfg.use_denoising = cBool(cfg.UseDenoising)
	ccfg.use_gpu = cBool(cfg.UseGPU)
	ccfg.enable_localization_n_mapping = cBool(cfg.EnableLocalizationAndMapping)
	ccfg.enable_reading_slam_internals = cBool(cfg.EnableReadingSLAMInternals)
	ccfg.max_frame_delta_ms = C.float(cfg.MaxFrameDeltaMs)
	if cfg.DebugDumpDirectory != "" {
		ccfg.debug_dump_directory = C.CString(cfg.DebugDumpDirectory)
	}
	return ccfg
}

func freeConfiguration(ccfg *C.struct_CUVSLAM_Configuration) {
	if ccfg.debug_dump_directory != nil {
		C.free(unsafe.Pointer(ccfg.debug_dump_directory))
		ccfg.debug_dump_directory = nil
	}
}

func cBool(b bool) C.int32_t {
	if b {
		return 1
	}
	return 0
}
