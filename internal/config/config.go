// Package config loads the tunable runtime configuration from a YAML file.
// Detection and calibration thresholds are empirical, so all of them live
// here rather than as constants in the packages that use them.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type CameraConfig struct {
	Device int `yaml:"device"`
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

type DetectionConfig struct {
	Stride         int           `yaml:"stride"`
	Margin         int           `yaml:"margin"`
	Threshold      float64       `yaml:"threshold"`
	Neighborhood   int           `yaml:"neighborhood"`
	MaxCandidates  int           `yaml:"max_candidates"`
	StrengthWeight float64       `yaml:"strength_weight"`
	RectWeight     float64       `yaml:"rect_weight"`
	PollInterval   time.Duration `yaml:"poll_interval"`
}

type CalibrationConfig struct {
	MinConfidence    float64 `yaml:"min_confidence"`
	WeakConfidence   float64 `yaml:"weak_confidence"`
	ManualGuideRatio float64 `yaml:"manual_guide_ratio"`
}

type ViewportConfig struct {
	MinScale float64 `yaml:"min_scale"`
	MaxScale float64 `yaml:"max_scale"`
	ZoomStep float64 `yaml:"zoom_step"`
}

type PageConfig struct {
	HeightCm        float64 `yaml:"height_cm"`
	WidthCm         float64 `yaml:"width_cm"`
	PaddingTopCm    float64 `yaml:"padding_top_cm"`
	PaddingBottomCm float64 `yaml:"padding_bottom_cm"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

// Config is the full runtime configuration.
type Config struct {
	ConfigVersion int               `yaml:"config_version"`
	Camera        CameraConfig      `yaml:"camera"`
	Detection     DetectionConfig   `yaml:"detection"`
	Calibration   CalibrationConfig `yaml:"calibration"`
	Viewport      ViewportConfig    `yaml:"viewport"`
	Page          PageConfig        `yaml:"page"`
	Logging       LoggingConfig     `yaml:"logging"`
}

// Env var names used as overrides.
const (
	EnvCameraDevice = "BOOKFOLD_CAMERA_DEVICE"
	EnvPollInterval = "BOOKFOLD_POLL_INTERVAL"
	EnvLogLevel     = "BOOKFOLD_LOG_LEVEL"
	EnvLogFormat    = "BOOKFOLD_LOG_FORMAT"
	EnvLogFile      = "BOOKFOLD_LOG_FILE"
)

// Defaults returns the application defaults.
func Defaults() Config {
	return Config{
		ConfigVersion: 1,
		Camera:        CameraConfig{Device: 0, Width: 1280, Height: 720},
		Detection: DetectionConfig{
			Stride:         5,
			Margin:         10,
			Threshold:      80,
			Neighborhood:   5,
			MaxCandidates:  20,
			StrengthWeight: 0.6,
			RectWeight:     0.4,
			PollInterval:   500 * time.Millisecond,
		},
		Calibration: CalibrationConfig{MinConfidence: 0.4, WeakConfidence: 0.2, ManualGuideRatio: 0.7},
		Viewport:    ViewportConfig{MinScale: 0.2, MaxScale: 5, ZoomStep: 1.1},
		Page:        PageConfig{HeightCm: 20, WidthCm: 13},
		Logging:     LoggingConfig{Level: "info", Format: "text"},
	}
}

// Validate clamps values to safe ranges. Out-of-range values fall back to defaults.
func (c *Config) Validate() {
	d := Defaults()
	if c.Camera.Width <= 0 || c.Camera.Height <= 0 {
		c.Camera.Width, c.Camera.Height = d.Camera.Width, d.Camera.Height
	}
	if c.Detection.Stride <= 0 {
		c.Detection.Stride = d.Detection.Stride
	}
	if c.Detection.Margin < 1 {
		c.Detection.Margin = d.Detection.Margin
	}
	if c.Detection.Threshold <= 0 || c.Detection.Threshold >= 255 {
		c.Detection.Threshold = d.Detection.Threshold
	}
	if c.Detection.Neighborhood < 3 || c.Detection.Neighborhood%2 == 0 {
		c.Detection.Neighborhood = d.Detection.Neighborhood
	}
	if c.Detection.MaxCandidates < 4 {
		c.Detection.MaxCandidates = d.Detection.MaxCandidates
	}
	if c.Detection.StrengthWeight < 0 || c.Detection.RectWeight < 0 ||
		c.Detection.StrengthWeight+c.Detection.RectWeight <= 0 {
		c.Detection.StrengthWeight, c.Detection.RectWeight = d.Detection.StrengthWeight, d.Detection.RectWeight
	}
	if c.Detection.PollInterval < 50*time.Millisecond {
		c.Detection.PollInterval = d.Detection.PollInterval
	}
	if c.Calibration.MinConfidence < 0 || c.Calibration.MinConfidence > 1 {
		c.Calibration.MinConfidence = d.Calibration.MinConfidence
	}
	if c.Calibration.WeakConfidence < 0 || c.Calibration.WeakConfidence > c.Calibration.MinConfidence {
		c.Calibration.WeakConfidence = c.Calibration.MinConfidence / 2
	}
	if c.Calibration.ManualGuideRatio <= 0 || c.Calibration.ManualGuideRatio > 1 {
		c.Calibration.ManualGuideRatio = d.Calibration.ManualGuideRatio
	}
	if c.Viewport.MinScale <= 0 {
		c.Viewport.MinScale = d.Viewport.MinScale
	}
	if c.Viewport.MaxScale < c.Viewport.MinScale {
		c.Viewport.MaxScale = c.Viewport.MinScale
	}
	if c.Viewport.ZoomStep <= 1 {
		c.Viewport.ZoomStep = d.Viewport.ZoomStep
	}
	if c.Page.HeightCm < 0 {
		c.Page.HeightCm = d.Page.HeightCm
	}
	if c.Page.PaddingTopCm < 0 {
		c.Page.PaddingTopCm = 0
	}
	if c.Page.PaddingBottomCm < 0 {
		c.Page.PaddingBottomCm = 0
	}
}

// Path returns the per-user config file path.
func Path() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		home := os.Getenv("HOME")
		if home == "" {
			return "", errors.New("cannot resolve config directory")
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "bookfold", "config.yaml"), nil
}

// Load reads the config file at path on top of the defaults, then applies
// environment overrides. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				cfg = Defaults()
				applyEnvOverrides(&cfg)
				return cfg, err
			}
		case !os.IsNotExist(err):
			return cfg, err
		}
	}
	applyEnvOverrides(&cfg)
	cfg.Validate()
	return cfg, nil
}

// Save writes cfg as YAML, creating the parent directory.
func Save(path string, cfg Config) error {
	cfg.Validate()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func applyEnvOverrides(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv(EnvCameraDevice)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.Camera.Device = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvPollInterval)); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Detection.PollInterval = d
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}
