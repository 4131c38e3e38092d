package cuvslam

import "time"

// ImageEncoding is the pixel layout of a marshaled frame. Values match the
// native encoding enumeration.
type ImageEncoding int32

const (
	// EncodingMono8 is a single 8-bit channel.
	EncodingMono8 ImageEncoding = iota
	// EncodingRGB8 is three interleaved 8-bit channels.
	EncodingRGB8
)

// Frame is the minimal view of a captured frame needed for marshaling.
// capture.Frame satisfies it.
type Frame interface {
	Width() int
	Height() int
	// Stride is the row pitch in bytes.
	Stride() int
	// Bytes is the frame's pixel storage. Ownership stays with the capture
	// subsystem.
	Bytes() []byte
}

// Image is the engine-facing descriptor of one captured frame. Pixels
// aliases the source frame's buffer without copying: an Image is valid only
// while its source frame is alive and unmodified, and must be consumed by
// exactly one Track call before the source frame is reused or released.
// Never store an Image or its Pixels in a field or queue.
type Image struct {
	Width  int
	Height int
	// Stride is the row pitch in bytes.
	Stride int
	Pixels []byte
	// CameraIndex is the rig index of the camera that produced the frame.
	CameraIndex int
	TimestampNs int64
	Encoding    ImageEncoding
}

// NewImage marshals one captured frame into the engine's image descriptor.
// Pixel bytes are not copied; see Image for the lifetime contract.
func NewImage(frame Frame, cameraIndex int, encoding ImageEncoding, at time.Time) Image {
	return Image{
		Width:       frame.Width(),
		Height:      frame.Height(),
		Stride:      frame.Stride(),
		Pixels:      frame.Bytes(),
		CameraIndex: cameraIndex,
		TimestampNs: at.UnixNano(),
		Encoding:    encoding,
	}
}
