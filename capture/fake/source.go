// Package fake implements a synthetic capture source that renders a moving
// gradient pattern, for tests and for running the demo without camera
// hardware.
package fake

import (
	"context"
	"sync"
	"time"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.viam.com/utils"

	"github.com/vyeevani/cuvslam/capture"
)

const (
	defaultWidth    = 640
	defaultHeight   = 480
	defaultCameras  = 2
	defaultInterval = 33 * time.Millisecond
)

// Config sets up a fake source. Zero values fall back to a 2 camera
// 640x480 source at roughly 30 frame sets per second.
type Config struct {
	Width   int
	Height  int
	Cameras int
	// Interval is the simulated inter-frame-set arrival time.
	Interval time.Duration
	// MaxFrameSets, if positive, makes the source report ErrFrameTimeout
	// once that many sets have been delivered.
	MaxFrameSets int
}

// Source is a synthetic capture.Source. Like a real driver it reuses its
// per-camera pixel buffers between frame sets, so frames obey the package
// contract: valid only until the next NextFrameSet call.
type Source struct {
	mu      sync.Mutex
	cfg     Config
	seq     int
	buffers [][]byte
	closed  bool
	logger  golog.Logger
}

// NewSource returns a running fake source.
func NewSource(cfg Config, logger golog.Logger) *Source {
	if cfg.Width <= 0 {
		cfg.Width = defaultWidth
	}
	if cfg.Height <= 0 {
		cfg.Height = defaultHeight
	}
	if cfg.Cameras <= 0 {
		cfg.Cameras = defaultCameras
	}
	if cfg.Interval <= 0 {
		cfg.Interval = defaultInterval
	}
	buffers := make([][]byte, cfg.Cameras)
	for i := range buffers {
		buffers[i] = make([]byte, cfg.Width*cfg.Height)
	}
	return &Source{cfg: cfg, buffers: buffers, logger: logger}
}

// NextFrameSet renders the next synchronized frame set after the configured
// interval.
func (s *Source) NextFrameSet(ctx context.Context) ([]capture.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, errors.New("fake capture source closed")
	}
	if s.cfg.MaxFrameSets > 0 && s.seq >= s.cfg.MaxFrameSets {
		return nil, capture.ErrFrameTimeout
	}
	if !utils.SelectContextOrWait(ctx, s.cfg.Interval) {
		return nil, ctx.Err()
	}
	s.seq++
	now := time.Now()
	frames := make([]capture.Frame, s.cfg.Cameras)
	for i := range frames {
		s.render(s.buffers[i], i)
		frames[i] = &frame{
			width:  s.cfg.Width,
			height: s.cfg.Height,
			stride: s.cfg.Width,
			data:   s.buffers[i],
			at:     now,
		}
	}
	return frames, nil
}

// render fills buf with a gradient that drifts with the sequence number and
// is phase shifted per camera, so consecutive sets and neighboring cameras
// always differ.
func (s *Source) render(buf []byte, cameraIndex int) {
	w, h := s.cfg.Width, s.cfg.Height
	shift := s.seq*3 + cameraIndex*16
	for y := 0; y < h; y++ {
		row := buf[y*w : (y+1)*w]
		for x := range row {
			row[x] = byte(x + y + shift)
		}
	}
}

// Close stops the source. Outstanding frames become invalid.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		s.logger.Debugw("fake capture source closed", "frame_sets_delivered", s.seq)
	}
	return nil
}

type frame struct {
	width, height, stride int
	data                  []byte
	at                    time.Time
}

func (f *frame) Width() int            { return f.width }
func (f *frame) Height() int           { return f.height }
func (f *frame) Stride() int           { return f.stride }
func (f *frame) Bytes() []byte         { return f.data }
func (f *frame) CapturedAt() time.Time { return f.at }
