package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gesturereader/gesturecam/internal/debug"
	"github.com/gesturereader/gesturecam/internal/frame"
	"github.com/gesturereader/gesturecam/internal/state"
)

// ToggleRequest is the body of POST /toggle and POST /toggle_gestures.
// A missing, null or mistyped "enabled" means false.
type ToggleRequest struct {
	Enabled *bool `json:"enabled"`
}

// Value returns the requested flag value, defaulting to false.
func (r ToggleRequest) Value() bool {
	return r.Enabled != nil && *r.Enabled
}

// CameraResponse is returned by POST /toggle.
type CameraResponse struct {
	Success       bool `json:"success"`
	CameraEnabled bool `json:"camera_enabled"`
}

// GesturesResponse is returned by POST /toggle_gestures.
type GesturesResponse struct {
	Success         bool `json:"success"`
	GesturesEnabled bool `json:"gestures_enabled"`
}

// FrameResponse is returned by POST /frame.
type FrameResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	State       *state.State
	Broadcaster *StatusBroadcaster
}

// NewHandlers creates handlers over st. broadcaster may be nil, in which case
// GET /status/stream answers 503.
func NewHandlers(st *state.State, broadcaster *StatusBroadcaster) *Handlers {
	return &Handlers{
		State:       st,
		Broadcaster: broadcaster,
	}
}

// bindToggle decodes a toggle body. Decode errors are ignored on purpose:
// an empty or malformed body turns the flag off.
func bindToggle(c *gin.Context) bool {
	var req ToggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		debug.Verbose("toggle body ignored: %v", err)
	}
	return req.Value()
}

// HandleToggleCamera handles POST /toggle.
func (h *Handlers) HandleToggleCamera(c *gin.Context) {
	enabled := bindToggle(c)
	snap := h.State.SetCamera(enabled)
	debug.Flag("Camera", snap.CameraEnabled)

	c.JSON(http.StatusOK, CameraResponse{Success: true, CameraEnabled: snap.CameraEnabled})
}

// HandleToggleGestures handles POST /toggle_gestures.
func (h *Handlers) HandleToggleGestures(c *gin.Context) {
	enabled := bindToggle(c)
	snap := h.State.SetGestures(enabled)
	debug.Flag("Gestures", snap.GesturesEnabled)

	c.JSON(http.StatusOK, GesturesResponse{Success: true, GesturesEnabled: snap.GesturesEnabled})
}

// HandleStatus handles GET /status.
func (h *Handlers) HandleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.State.Snapshot())
}

// HandleFrame handles POST /frame. Only the decoded size is logged; the
// image itself is dropped.
func (h *Handlers) HandleFrame(c *gin.Context) {
	var sub frame.Submission
	if err := c.ShouldBindJSON(&sub); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			debug.Error(err)
			c.JSON(http.StatusRequestEntityTooLarge, FrameResponse{Error: "frame too large"})
			return
		}
		debug.Verbose("frame body ignored: %v", err)
	}

	data, ok, err := frame.Decode(sub.Image)
	if err != nil {
		debug.Error(err)
		c.JSON(http.StatusBadRequest, FrameResponse{Error: frame.ErrInvalidEncoding.Error()})
		return
	}
	if ok {
		debug.Frame(len(data))
	}

	c.JSON(http.StatusOK, FrameResponse{Success: true})
}

// HandleHealth responds with the server health status and current timestamp.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status: "ok",
		Time:   time.Now().Format(time.RFC3339),
	})
}

// HandleStatusStream handles GET /status/stream for SSE. The first event is
// the current snapshot; later events follow every flag change.
func (h *Handlers) HandleStatusStream(c *gin.Context) {
	if h.Broadcaster == nil {
		c.String(http.StatusServiceUnavailable, "status stream not configured")
		return
	}

	w := c.Writer
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // nginx
	w.WriteHeader(http.StatusOK)

	ch, unsub := h.Broadcaster.Subscribe()
	defer unsub()

	snap := h.State.Snapshot()
	initial, err := json.Marshal(StatusEvent{
		Time:   time.Now().Format(time.RFC3339),
		Level:  "status",
		Status: &snap,
	})
	if err != nil {
		return
	}

	w.WriteString(": connected\n\n")
	w.WriteString("data: " + string(initial) + "\n\n")
	w.Flush()

	// Heartbeat while idle
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	ctx := c.Request.Context()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			w.WriteString("data: " + msg + "\n\n")
			w.Flush()

		case <-ticker.C:
			w.WriteString(": heartbeat\n\n")
			w.Flush()

		case <-ctx.Done():
			return
		}
	}
}
