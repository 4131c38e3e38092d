package viz

import (
	"context"
	"encoding/json"
	"image"
	"image/jpeg"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/utils"
	"goji.io"
	"goji.io/pat"

	"github.com/vyeevani/cuvslam"
)

// trajectoryCap bounds how many translations the web sink remembers.
const trajectoryCap = 4096

// WebSink is a Sink that serves the most recent image per name and the
// accumulated trajectory over HTTP, for eyeballing a live tracking run:
//
//	GET /image/:name   latest image as JPEG
//	GET /trajectory    logged translations as a JSON array
type WebSink struct {
	mu         sync.Mutex
	latest     map[string]*image.Gray
	trajectory []r3.Vector

	listener                net.Listener
	server                  *http.Server
	logger                  golog.Logger
	activeBackgroundWorkers sync.WaitGroup
}

// NewWebSink starts serving on the given address immediately.
func NewWebSink(addr string, logger golog.Logger) (*WebSink, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "listening on %q", addr)
	}
	s := &WebSink{
		latest:   map[string]*image.Gray{},
		listener: listener,
		logger:   logger,
	}
	mux := goji.NewMux()
	mux.HandleFunc(pat.Get("/image/:name"), s.handleImage)
	mux.HandleFunc(pat.Get("/trajectory"), s.handleTrajectory)
	s.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.activeBackgroundWorkers.Add(1)
	utils.PanicCapturingGo(func() {
		defer s.activeBackgroundWorkers.Done()
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorw("viz web server failed", "error", err)
		}
	})
	logger.Infow("viz web server listening", "addr", listener.Addr().String())
	return s, nil
}

// Addr returns the bound address, useful when listening on port 0.
func (s *WebSink) Addr() string {
	return s.listener.Addr().String()
}

// LogImage stores img as the latest image for name.
func (s *WebSink) LogImage(name string, img *image.Gray) error {
	s.mu.Lock()
	s.latest[name] = img
	s.mu.Unlock()
	return nil
}

// LogPose appends the translation to the trajectory, dropping the oldest
// entry once the cap is reached.
func (s *WebSink) LogPose(name string, translation r3.Vector, rotation *cuvslam.Rotation) error {
	s.mu.Lock()
	if len(s.trajectory) >= trajectoryCap {
		s.trajectory = s.trajectory[1:]
	}
	s.trajectory = append(s.trajectory, translation)
	s.mu.Unlock()
	return nil
}

// Close shuts the server down and waits for it.
func (s *WebSink) Close() error {
	err := s.server.Shutdown(context.Background())
	s.activeBackgroundWorkers.Wait()
	return err
}

func (s *WebSink) handleImage(w http.ResponseWriter, r *http.Request) {
	name := pat.Param(r, "name")
	s.mu.Lock()
	img := s.latest[name]
	s.mu.Unlock()
	if img == nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	if err := jpeg.Encode(w, img, nil); err != nil {
		s.logger.Debugw("failed to encode image response", "name", name, "error", err)
	}
}

func (s *WebSink) handleTrajectory(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	points := make([]r3.Vector, len(s.trajectory))
	copy(points, s.trajectory)
	s.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(points); err != nil {
		s.logger.Debugw("failed to encode trajectory response", "error", err)
	}
}
