// Package config loads the YAML configuration through viper.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/chenBenjamin97/repcounter/pkg/reps"
	"github.com/chenBenjamin97/repcounter/pkg/utils"

	"github.com/spf13/viper"
)

type Config struct {
	Environment string `mapstructure:"environment"`

	HTTP struct {
		Host string `mapstructure:"host"`
		Port int    `mapstructure:"port"`
	} `mapstructure:"http"`

	Directory struct {
		Root       string `mapstructure:"root"`
		Models     string `mapstructure:"models"`
		Recordings string `mapstructure:"recordings"`
		Data       string `mapstructure:"data"`
	} `mapstructure:"directory"`

	Frontend struct {
		StaticFilesPath string `mapstructure:"static-files-path"`
	} `mapstructure:"frontend"`

	Camera struct {
		Device int `mapstructure:"device"`
		Width  int `mapstructure:"width"`
		Height int `mapstructure:"height"`
	} `mapstructure:"camera"`

	Model struct {
		Path          string  `mapstructure:"path"`
		InputSize     int     `mapstructure:"input-size"`
		MinConfidence float64 `mapstructure:"min-confidence"`
	} `mapstructure:"model"`

	Estimator struct {
		// Command runs an external pose estimator for the "process" source.
		Command string `mapstructure:"command"`
	} `mapstructure:"estimator"`

	Tracking struct {
		FrameInterval    time.Duration `mapstructure:"frame-interval"`
		IdleWindow       time.Duration `mapstructure:"idle-window"`
		AssistMode       bool          `mapstructure:"assist-mode"`
		MinKeypointScore float64       `mapstructure:"min-keypoint-score"`
		Smoothing        int           `mapstructure:"smoothing"`
		PushedPoseMaxAge time.Duration `mapstructure:"pushed-pose-max-age"`
		Record           bool          `mapstructure:"record"`
	} `mapstructure:"tracking"`

	Log struct {
		Level  string `mapstructure:"level"`
		File   string `mapstructure:"file"`
		Stdout bool   `mapstructure:"stdout"`
		JSON   bool   `mapstructure:"json"`
	} `mapstructure:"log"`

	Sentry struct {
		Enabled bool   `mapstructure:"enabled"`
		DSN     string `mapstructure:"dsn"`
	} `mapstructure:"sentry"`

	// Exercises overrides the thresholds of the built-in exercises.
	Exercises map[string]reps.Exercise `mapstructure:"exercises"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("http.host", "")
	v.SetDefault("http.port", 8080)
	v.SetDefault("directory.root", "./data")
	v.SetDefault("directory.models", "./data/models")
	v.SetDefault("directory.recordings", "./data/recordings")
	v.SetDefault("directory.data", "./data/db")
	v.SetDefault("camera.device", 0)
	v.SetDefault("camera.width", utils.FrameWidth)
	v.SetDefault("camera.height", utils.FrameHeight)
	v.SetDefault("model.path", "./data/models/graph_opt.pb")
	v.SetDefault("model.input-size", 368)
	v.SetDefault("model.min-confidence", utils.HeatmapMinConfidence)
	v.SetDefault("tracking.frame-interval", utils.FrameInterval)
	v.SetDefault("tracking.idle-window", utils.IdleWindow)
	v.SetDefault("tracking.assist-mode", false)
	v.SetDefault("tracking.min-keypoint-score", utils.MinKeypointScore)
	v.SetDefault("tracking.smoothing", utils.SmoothingWindow)
	v.SetDefault("tracking.pushed-pose-max-age", utils.PushedPoseMaxAge)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.stdout", true)
}

// Load reads the config file at path. With an empty path, config.yaml is
// searched in the working directory; a missing file there is not an error.
// REPCOUNTER_* environment variables override file values
// (e.g. REPCOUNTER_HTTP_PORT).
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("repcounter")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("Load: Could not read config file '%s', got '%w'", path, err)
		}
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("Load: Could not read config file, got '%w'", err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("Load: Could not parse config, got '%w'", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("invalid http.port: %d", c.HTTP.Port)
	}
	if c.Camera.Width <= 0 || c.Camera.Height <= 0 {
		return fmt.Errorf("invalid camera resolution %dx%d", c.Camera.Width, c.Camera.Height)
	}
	if c.Tracking.FrameInterval <= 0 {
		return fmt.Errorf("invalid tracking.frame-interval: %s", c.Tracking.FrameInterval)
	}
	if c.Tracking.IdleWindow <= 0 {
		return fmt.Errorf("invalid tracking.idle-window: %s", c.Tracking.IdleWindow)
	}
	if c.Tracking.MinKeypointScore < 0 || c.Tracking.MinKeypointScore > 1 {
		return fmt.Errorf("invalid tracking.min-keypoint-score: %v", c.Tracking.MinKeypointScore)
	}
	return nil
}

//Catalog returns the built-in exercises with the configured overrides applied
func (c *Config) Catalog() (reps.Catalog, error) {
	catalog := reps.DefaultCatalog()
	if err := catalog.Override(c.Exercises); err != nil {
		return nil, fmt.Errorf("exercises: %w", err)
	}
	return catalog, nil
}

func (c *Config) DBPath() string {
	return filepath.Join(c.Directory.Data, "repcounter.db")
}

//Directories lists the directories that must exist before serving
func (c *Config) Directories() []string {
	return []string{c.Directory.Root, c.Directory.Models, c.Directory.Recordings, c.Directory.Data}
}
