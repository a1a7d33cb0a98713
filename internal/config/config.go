package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// MaxConfigFileBytes caps the size of a config file read by Load.
const MaxConfigFileBytes = 1 << 20

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	ListenAddr        string `yaml:"listen_addr"`         // e.g. "127.0.0.1:5000"
	MaxConnections    int    `yaml:"max_connections"`     // 0 = unlimited
	MaxBodyBytes      int64  `yaml:"max_body_bytes"`      // request body cap
	ShutdownTimeoutMs int    `yaml:"shutdown_timeout_ms"` // graceful shutdown budget
}

// CORSConfig lists the origins allowed to call the API.
// A single "*" entry allows any origin.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// IndicatorConfig describes the optional status LEDs.
type IndicatorConfig struct {
	Enabled     bool `yaml:"enabled"`
	MockGPIO    bool `yaml:"mock_gpio"`    // use mock GPIO (true=dev/test, false=real Raspberry Pi)
	CameraPin   int  `yaml:"camera_pin"`   // BCM pin lit while the camera flag is on. 0 = not used.
	GesturesPin int  `yaml:"gestures_pin"` // BCM pin lit while the gestures flag is on. 0 = not used.
}

// BCM pins usable for an LED. GPIO0 and GPIO1 carry the HAT ID EEPROM bus,
// which is why 0 can mean "no LED".
const (
	minLEDPin = 2
	maxLEDPin = 27
)

// Config aggregates all application configuration.
type Config struct {
	Server     ServerConfig    `yaml:"server"`
	CORS       CORSConfig      `yaml:"cors"`
	Indicator  IndicatorConfig `yaml:"indicator"`
	DebugLevel *int            `yaml:"debug_level"` // 0-4, nil means default (1)
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads a YAML file and returns the configuration.
func Load(path string) (*Config, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat config file: %w", err)
	}
	if info.Size() > MaxConfigFileBytes {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), MaxConfigFileBytes)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal yaml: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.ListenAddr == "" {
		c.Server.ListenAddr = "127.0.0.1:5000"
	}
	if c.Server.MaxBodyBytes <= 0 {
		c.Server.MaxBodyBytes = 10 << 20 // 10 MiB, a few seconds of webcam JPEGs
	}
	if c.Server.ShutdownTimeoutMs <= 0 {
		c.Server.ShutdownTimeoutMs = 5000
	}
	if len(c.CORS.AllowedOrigins) == 0 {
		c.CORS.AllowedOrigins = []string{"*"}
	}
	// Origins compare case-sensitively in the CORS layer; browsers send them lowercase.
	for i, o := range c.CORS.AllowedOrigins {
		c.CORS.AllowedOrigins[i] = strings.ToLower(strings.TrimSpace(o))
	}
	if c.DebugLevel == nil {
		lvl := 1
		c.DebugLevel = &lvl
	}
}

// Validate checks value ranges. Defaults must already be applied.
func (c *Config) Validate() error {
	if c.Server.MaxConnections < 0 {
		return fmt.Errorf("server.max_connections must be >= 0, got %d", c.Server.MaxConnections)
	}
	if lvl := c.Debug(); lvl < 0 || lvl > 4 {
		return fmt.Errorf("debug_level must be between 0 and 4, got %d", lvl)
	}
	for _, o := range c.CORS.AllowedOrigins {
		if o == "*" {
			if len(c.CORS.AllowedOrigins) > 1 {
				return fmt.Errorf("cors.allowed_origins: \"*\" cannot be combined with other origins")
			}
			continue
		}
		if !hasOriginScheme(o) {
			return fmt.Errorf("cors.allowed_origins: %q must start with one of %v", o, originSchemes)
		}
		if strings.Contains(o, "*") {
			return fmt.Errorf("cors.allowed_origins: %q: wildcards are only allowed as a lone \"*\"", o)
		}
		if o != strings.ToLower(o) {
			return fmt.Errorf("cors.allowed_origins: %q must be lowercase", o)
		}
	}
	for name, pin := range map[string]int{"camera_pin": c.Indicator.CameraPin, "gestures_pin": c.Indicator.GesturesPin} {
		if pin != 0 && (pin < minLEDPin || pin > maxLEDPin) {
			return fmt.Errorf("indicator.%s must be 0 (unused) or between %d and %d, got %d", name, minLEDPin, maxLEDPin, pin)
		}
	}
	if c.Indicator.CameraPin != 0 && c.Indicator.CameraPin == c.Indicator.GesturesPin {
		return fmt.Errorf("indicator.camera_pin and indicator.gestures_pin must differ, both are %d", c.Indicator.CameraPin)
	}
	return nil
}

// originSchemes are the origin schemes the CORS layer accepts.
var originSchemes = []string{"http://", "https://", "chrome-extension://", "moz-extension://", "safari-extension://", "ms-browser-extension://"}

func hasOriginScheme(origin string) bool {
	for _, scheme := range originSchemes {
		if strings.HasPrefix(origin, scheme) {
			return true
		}
	}
	return false
}

// AllowAllOrigins reports whether CORS is a wildcard policy.
func (c *Config) AllowAllOrigins() bool {
	return len(c.CORS.AllowedOrigins) == 1 && c.CORS.AllowedOrigins[0] == "*"
}

// Debug returns the configured debug level.
func (c *Config) Debug() int {
	if c.DebugLevel == nil {
		return 1
	}
	return *c.DebugLevel
}

// SetDebug overrides the debug level.
func (c *Config) SetDebug(lvl int) {
	c.DebugLevel = &lvl
}

// ShutdownTimeout returns the graceful shutdown budget.
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.Server.ShutdownTimeoutMs) * time.Millisecond
}
