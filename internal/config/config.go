// Package config loads the mudra configuration: built-in defaults, then an
// optional YAML file, then MUDRA_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/ayusman/mudra/internal/action"
	"github.com/ayusman/mudra/internal/activation"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
)

// EnvPrefix prefixes every environment override, e.g. MUDRA_LOG_LEVEL.
const EnvPrefix = "MUDRA_"

// Config is the complete application configuration.
type Config struct {
	Camera     CameraConfig         `yaml:"camera"`
	Classifier ClassifierConfig     `yaml:"classifier"`
	Smoothing  SmoothingConfig      `yaml:"smoothing"`
	Activation ActivationConfig     `yaml:"activation"`
	Bindings   []action.BindingSpec `yaml:"bindings"`
	Plugins    PluginsConfig        `yaml:"plugins"`
	Store      StoreConfig          `yaml:"store"`
	Server     ServerConfig         `yaml:"server"`
	Log        LogConfig            `yaml:"log"`

	// DryRun shows commands in the status without injecting them.
	DryRun bool `yaml:"dry_run"`
	// Tray shows the system tray icon.
	Tray bool `yaml:"tray"`
}

// CameraConfig selects and paces the camera.
type CameraConfig struct {
	ID     int  `yaml:"id" env:"ID"`
	FPS    int  `yaml:"fps" env:"FPS"`
	Width  int  `yaml:"width" env:"WIDTH"`
	Height int  `yaml:"height" env:"HEIGHT"`
	Mirror bool `yaml:"mirror" env:"MIRROR"`
}

// ClassifierConfig configures hand detection and the confidence floor.
type ClassifierConfig struct {
	// MinConfidence drops classifications below this score.
	MinConfidence     float64         `yaml:"min_confidence" env:"MIN_CONFIDENCE"`
	MaxHands          int             `yaml:"max_hands" env:"MAX_HANDS"`
	MinDetection      float64         `yaml:"min_detection" env:"MIN_DETECTION"`
	MinTracking       float64         `yaml:"min_tracking" env:"MIN_TRACKING"`
	Python            string          `yaml:"python" env:"PYTHON"`
	Script            string          `yaml:"script" env:"SCRIPT"`
	IdleTimeout       action.Duration `yaml:"idle_timeout" env:"IDLE_TIMEOUT"`
	UseTemplates      bool            `yaml:"use_templates" env:"USE_TEMPLATES"`
	TemplateTolerance float64         `yaml:"template_tolerance" env:"TEMPLATE_TOLERANCE"`
}

// SmoothingConfig configures the majority-vote window.
type SmoothingConfig struct {
	Window   int     `yaml:"window" env:"WINDOW"`
	Majority float64 `yaml:"majority" env:"MAJORITY"`
}

// ActivationConfig configures the activation gate.
type ActivationConfig struct {
	ArmingSymbol     gesture.Symbol  `yaml:"arming_symbol" env:"ARMING_SYMBOL"`
	ActivationTime   action.Duration `yaml:"activation_time" env:"ACTIVATION_TIME"`
	DeactivationTime action.Duration `yaml:"deactivation_time" env:"DEACTIVATION_TIME"`
	LockTime         action.Duration `yaml:"lock_time" env:"LOCK_TIME"`
}

// PluginsConfig configures the injection plugins.
type PluginsConfig struct {
	Dir       string          `yaml:"dir" env:"DIR"`
	Timeout   action.Duration `yaml:"timeout" env:"TIMEOUT"`
	QueueSize int             `yaml:"queue_size" env:"QUEUE_SIZE"`
}

// StoreConfig locates the SQLite database.
type StoreConfig struct {
	Path string `yaml:"path" env:"PATH"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Enabled   bool   `yaml:"enabled" env:"ENABLED"`
	Addr      string `yaml:"addr" env:"ADDR"`
	StaticDir string `yaml:"static_dir" env:"STATIC_DIR"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `yaml:"level" env:"LEVEL"`
	Format string `yaml:"format" env:"FORMAT"`
}

// Dir returns the mudra data directory, ~/.mudra.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".mudra"
	}
	return filepath.Join(home, ".mudra")
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

// Default returns the built-in configuration.
func Default() *Config {
	dir := Dir()
	det := detector.DefaultConfig()
	gate := activation.DefaultConfig()

	return &Config{
		Camera: CameraConfig{FPS: 30, Width: 640, Height: 480, Mirror: true},
		Classifier: ClassifierConfig{
			MinConfidence:     0.5,
			MaxHands:          det.MaxHands,
			MinDetection:      det.MinConfidence,
			MinTracking:       det.MinTrackingConf,
			IdleTimeout:       action.Duration(det.IdleTimeout),
			UseTemplates:      true,
			TemplateTolerance: gesture.DefaultTolerance,
		},
		Smoothing: SmoothingConfig{Window: gesture.DefaultWindow, Majority: gesture.DefaultMajority},
		Activation: ActivationConfig{
			ArmingSymbol:     gate.ArmingSymbol,
			ActivationTime:   action.Duration(gate.ActivationTime),
			DeactivationTime: action.Duration(gate.DeactivationTime),
		},
		Bindings: action.DefaultBindings(),
		Plugins: PluginsConfig{
			Dir:       filepath.Join(dir, "plugins"),
			Timeout:   action.Duration(5 * time.Second),
			QueueSize: 64,
		},
		Store:  StoreConfig{Path: filepath.Join(dir, "mudra.db")},
		Server: ServerConfig{Enabled: true, Addr: "127.0.0.1:8080"},
		Log:    LogConfig{Level: "info", Format: "text"},
		Tray:   true,
	}
}

// Load builds the configuration from defaults, the YAML file at path and the
// environment, then validates it. An empty path reads DefaultPath if it
// exists; an explicit path must exist.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	if err := cfg.LoadFile(path); err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	if err := cfg.ApplyEnv(nil); err != nil {
		return nil, err
	}
	cfg.expandPaths()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile overlays the YAML file at path onto c.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overlays MUDRA_* variables onto c, e.g. MUDRA_SMOOTHING_WINDOW.
// A nil environ reads the process environment. Bindings are file only.
func (c *Config) ApplyEnv(environ map[string]string) error {
	flags := struct {
		DryRun bool `env:"DRY_RUN"`
		Tray   bool `env:"TRAY"`
	}{c.DryRun, c.Tray}

	sections := []struct {
		prefix string
		target any
	}{
		{"", &flags},
		{"CAMERA_", &c.Camera},
		{"CLASSIFIER_", &c.Classifier},
		{"SMOOTHING_", &c.Smoothing},
		{"ACTIVATION_", &c.Activation},
		{"PLUGINS_", &c.Plugins},
		{"STORE_", &c.Store},
		{"SERVER_", &c.Server},
		{"LOG_", &c.Log},
	}

	for _, s := range sections {
		opts := env.Options{Prefix: EnvPrefix + s.prefix}
		if environ != nil {
			opts.Environment = environ
		}
		if err := env.ParseWithOptions(s.target, opts); err != nil {
			return fmt.Errorf("parse env: %w", err)
		}
	}

	c.DryRun, c.Tray = flags.DryRun, flags.Tray
	return nil
}

// expandPaths replaces a leading ~ with the home directory.
func (c *Config) expandPaths() {
	c.Store.Path = expandHome(c.Store.Path)
	c.Plugins.Dir = expandHome(c.Plugins.Dir)
	c.Server.StaticDir = expandHome(c.Server.StaticDir)
	c.Classifier.Script = expandHome(c.Classifier.Script)
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(c.Camera.ID >= 0, "camera.id %d must not be negative", c.Camera.ID)
	check(c.Camera.FPS > 0 && c.Camera.FPS <= 120, "camera.fps %d must be in 1..120", c.Camera.FPS)

	check(c.Classifier.MinConfidence >= 0 && c.Classifier.MinConfidence <= 1,
		"classifier.min_confidence %.2f must be in [0, 1]", c.Classifier.MinConfidence)
	check(c.Classifier.MaxHands >= 1, "classifier.max_hands %d must be at least 1", c.Classifier.MaxHands)
	check(c.Classifier.TemplateTolerance > 0, "classifier.template_tolerance must be positive")

	check(c.Smoothing.Window >= 1 && c.Smoothing.Window <= gesture.MaxWindow,
		"smoothing.window %d must be in 1..%d", c.Smoothing.Window, gesture.MaxWindow)
	check(c.Smoothing.Majority > 0 && c.Smoothing.Majority <= 1,
		"smoothing.majority %.2f must be in (0, 1]", c.Smoothing.Majority)

	check(!c.Activation.ArmingSymbol.IsNone(), "activation.arming_symbol must be set")
	check(c.Activation.ActivationTime > 0, "activation.activation_time must be positive")
	check(c.Activation.DeactivationTime > 0, "activation.deactivation_time must be positive")
	check(c.Activation.LockTime >= 0, "activation.lock_time must not be negative")

	if _, err := action.Build(c.Bindings, action.Geometry{Width: 640, Height: 480}); err != nil {
		errs = append(errs, fmt.Errorf("bindings: %w", err))
	}

	check(c.Plugins.Timeout > 0, "plugins.timeout must be positive")
	check(c.Plugins.QueueSize > 0, "plugins.queue_size %d must be positive", c.Plugins.QueueSize)
	check(c.Store.Path != "", "store.path must be set")
	check(!c.Server.Enabled || c.Server.Addr != "", "server.addr must be set when the server is enabled")

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level %q must be debug, info, warn or error", c.Log.Level))
	}
	check(c.Log.Format == "text" || c.Log.Format == "json", "log.format %q must be text or json", c.Log.Format)

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// GateConfig returns the activation gate configuration.
func (c *Config) GateConfig() activation.Config {
	return activation.Config{
		ArmingSymbol:     c.Activation.ArmingSymbol,
		ActivationTime:   c.Activation.ActivationTime.Std(),
		DeactivationTime: c.Activation.DeactivationTime.Std(),
		LockTime:         c.Activation.LockTime.Std(),
	}
}

// DetectorConfig returns the hand detector configuration.
func (c *Config) DetectorConfig() detector.Config {
	return detector.Config{
		MaxHands:        c.Classifier.MaxHands,
		MinConfidence:   c.Classifier.MinDetection,
		MinTrackingConf: c.Classifier.MinTracking,
		Python:          c.Classifier.Python,
		Script:          c.Classifier.Script,
		IdleTimeout:     c.Classifier.IdleTimeout.Std(),
	}
}
