package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/gesturereader/gesturecam/internal/config"
	"github.com/gesturereader/gesturecam/internal/debug"
	"github.com/gesturereader/gesturecam/internal/indicator"
	"github.com/gesturereader/gesturecam/internal/state"
	"github.com/gesturereader/gesturecam/internal/web"
)

func main() {
	// CLI flags
	cfgPath := flag.String("config", "", "path to YAML config file (empty = built-in defaults)")
	addr := flag.String("addr", "", "override listen address, e.g. 127.0.0.1:5000")
	debugLevel := &debugFlag{val: -1}
	flag.Var(debugLevel, "debug", "override debug level (0-4)")
	flag.Parse()

	if err := run(*cfgPath, *addr, debugLevel.val); err != nil {
		log.Fatal(err)
	}
}

// run wires the daemon and serves until SIGINT/SIGTERM. Deferred cleanup
// (indicator LEDs, GPIO mapping) runs on every return path.
func run(cfgPath, addr string, debugOverride int) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("load config failed: %w", err)
	}
	if err := applyOverrides(cfg, addr, debugOverride); err != nil {
		return fmt.Errorf("invalid CLI override: %w", err)
	}
	if err := web.CORSConfig(cfg.CORS.AllowedOrigins).Validate(); err != nil {
		return fmt.Errorf("invalid cors config: %w", err)
	}

	debug.Init(cfg.Debug())
	debug.Section("Initialization")
	debug.Value("Config path", cfgPath)
	debug.Value("Debug level", cfg.Debug())
	debug.PrintStruct("Server config", cfg.Server)
	debug.PrintStruct("CORS config", cfg.CORS)
	debug.Value("CORS wildcard", cfg.AllowAllOrigins())

	if cfg.Debug() < debug.LevelTrace {
		gin.SetMode(gin.ReleaseMode)
	}

	st := state.New()
	broadcaster := web.NewStatusBroadcaster()
	st.OnChange(broadcaster.BroadcastStatus)
	debug.SetOutput(io.MultiWriter(os.Stdout, web.BroadcastWriter(broadcaster)))

	if cfg.Indicator.Enabled {
		ind, err := newIndicatorFromConfig(cfg)
		if err != nil {
			return fmt.Errorf("init indicator failed: %w", err)
		}
		defer func() {
			if err := ind.Close(); err != nil {
				log.Printf("closing indicator failed: %v", err)
			}
		}()
		st.OnChange(ind.Apply)
	}

	srv := web.NewServer(web.Options{
		Addr:            cfg.Server.ListenAddr,
		MaxConnections:  cfg.Server.MaxConnections,
		MaxBodyBytes:    cfg.Server.MaxBodyBytes,
		ShutdownTimeout: cfg.ShutdownTimeout(),
		AllowedOrigins:  cfg.CORS.AllowedOrigins,
	}, st, broadcaster)
	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("web server: %w", err)
	}
	return nil
}

// loadConfig reads path, or returns the defaults when path is empty.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

// applyOverrides mutates cfg with CLI values. Empty addr and negative level mean "keep config".
func applyOverrides(cfg *config.Config, addr string, level int) error {
	if addr != "" {
		if _, _, err := net.SplitHostPort(addr); err != nil {
			return fmt.Errorf("addr %q: %w", addr, err)
		}
		cfg.Server.ListenAddr = addr
	}
	if level >= 0 {
		cfg.SetDebug(level)
	}
	return nil
}

// newIndicatorFromConfig opens the GPIO driver and configures the LEDs.
func newIndicatorFromConfig(cfg *config.Config) (*indicator.Indicator, error) {
	drv, err := indicator.NewDriver(cfg.Indicator.MockGPIO)
	if err != nil {
		return nil, err
	}
	ind, err := indicator.New(drv, indicator.Pins{
		Camera:   cfg.Indicator.CameraPin,
		Gestures: cfg.Indicator.GesturesPin,
	})
	if err != nil {
		_ = drv.Close()
		return nil, err
	}
	return ind, nil
}

// debugFlag implements flag.Value for -debug: -1 = not set, 0-4 = level.
type debugFlag struct {
	val int
}

func (d *debugFlag) String() string {
	if d.val < 0 {
		return ""
	}
	return strconv.Itoa(d.val)
}

func (d *debugFlag) Set(s string) error {
	v, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	if v < debug.LevelOff || v > debug.LevelTrace {
		return fmt.Errorf("debug level must be 0-4, got %d", v)
	}
	d.val = v
	return nil
}
