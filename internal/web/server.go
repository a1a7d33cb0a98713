package web

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/net/netutil"

	"github.com/gesturereader/gesturecam/internal/debug"
	"github.com/gesturereader/gesturecam/internal/state"
)

// Options configures the HTTP server.
type Options struct {
	Addr            string
	MaxConnections  int   // 0 = unlimited
	MaxBodyBytes    int64 // 0 = unlimited
	ShutdownTimeout time.Duration
	AllowedOrigins  []string // ["*"] or empty allows any origin
}

// Server wraps the HTTP server and handlers.
type Server struct {
	opts     Options
	handlers *Handlers
	engine   *gin.Engine
}

// NewServer creates a server configured for the given options and dependencies.
func NewServer(opts Options, st *state.State, broadcaster *StatusBroadcaster) *Server {
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 5 * time.Second
	}
	s := &Server{
		opts:     opts,
		handlers: NewHandlers(st, broadcaster),
	}
	s.engine = s.routes()
	return s
}

// CORSConfig builds the cross-origin policy. Extension pages call the API
// from chrome-extension:// (or moz-extension://) origins.
func CORSConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:           []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:           []string{"Content-Type"},
		AllowBrowserExtensions: true,
		MaxAge:                 12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Recovery(), requestLogger(), cors.New(CORSConfig(s.opts.AllowedOrigins)))
	if s.opts.MaxBodyBytes > 0 {
		r.Use(maxBody(s.opts.MaxBodyBytes))
	}

	r.POST("/toggle", s.handlers.HandleToggleCamera)
	r.POST("/toggle_gestures", s.handlers.HandleToggleGestures)
	r.GET("/status", s.handlers.HandleStatus)
	r.GET("/status/stream", s.handlers.HandleStatusStream)
	r.POST("/frame", s.handlers.HandleFrame)
	r.GET("/health", s.handlers.HandleHealth)

	for _, ri := range r.Routes() {
		debug.Verbose("route %s %s", ri.Method, ri.Path)
	}
	return r
}

// Handler returns an http.Handler with all routes registered.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run listens on the configured address and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln and blocks until ctx is cancelled, then
// shuts down gracefully. Open status streams are closed on shutdown.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	if s.opts.MaxConnections > 0 {
		ln = netutil.LimitListener(ln, s.opts.MaxConnections)
	}

	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()

	srv := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return baseCtx },
	}
	errCh := make(chan error, 1)
	go func() {
		debug.Info("web server listening on %s", ln.Addr())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
		debug.Info("web server shutting down")
		cancelBase()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// requestLogger logs each request at live level.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		debug.Request(c.Request.Method, c.Request.URL.Path, c.ClientIP())
		c.Next()
	}
}

// maxBody caps the request body; reads past n fail with *http.MaxBytesError.
func maxBody(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		}
		c.Next()
	}
}
