// Package capture defines the boundary to the camera capture subsystem.
// Device enumeration, stream configuration and frame delivery all live
// behind Source; the tracking layer consumes nothing but synchronized
// frame sets.
package capture

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// ErrFrameTimeout is returned by NextFrameSet when no synchronized frame
// set arrived within the source's wait bound. It is a recoverable no-op
// condition, not a failure of the source.
var ErrFrameTimeout = errors.New("timed out waiting for a synchronized frame set")

// Frame is one captured camera image. The pixel buffer is owned by the
// source: it stays valid and unmodified only until the next NextFrameSet
// call on the source that delivered it, and must never be retained past
// that.
type Frame interface {
	Width() int
	Height() int
	// Stride is the row pitch in bytes.
	Stride() int
	Bytes() []byte
	CapturedAt() time.Time
}

// Source delivers synchronized per-camera frame sets, strictly in capture
// order. Sources are not safe for concurrent NextFrameSet calls.
type Source interface {
	// NextFrameSet blocks until the next synchronized frame set, the
	// source's wait bound elapses (ErrFrameTimeout), or ctx is done.
	// Frames come back in fixed camera order.
	NextFrameSet(ctx context.Context) ([]Frame, error)
	Close() error
}
