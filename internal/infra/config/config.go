// Package config provides configuration loading from YAML files.
package config

import (
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the server configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Catalog  CatalogConfig  `yaml:"catalog"`
	Player   PlayerConfig   `yaml:"player"`
	Volume   VolumeConfig   `yaml:"volume"`
	Playback PlaybackConfig `yaml:"playback"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig represents the HTTP listener configuration.
type ServerConfig struct {
	Addr            string `yaml:"addr" default:":8090"`
	ReadTimeoutSec  int    `yaml:"read_timeout_sec" default:"15" validate:"gte=1"`
	WriteTimeoutSec int    `yaml:"write_timeout_sec" default:"30" validate:"gte=1"`
}

// CatalogConfig represents the media catalog connection.
type CatalogConfig struct {
	URL        string `yaml:"url" validate:"required,url"`
	Token      string `yaml:"token" validate:"required"`
	TimeoutSec int    `yaml:"timeout_sec" default:"10" validate:"gte=1,lte=120"`
}

// PlayerConfig selects and configures the player backend.
type PlayerConfig struct {
	Type     string         `yaml:"type" default:"mpv" validate:"required"`
	Settings map[string]any `yaml:"settings"`
}

// VolumeConfig bounds the volume levels clients may request. The ceiling
// defaults low: the device usually sits in a shared room.
type VolumeConfig struct {
	Min     int `yaml:"min" default:"0" validate:"gte=0"`
	Max     int `yaml:"max" default:"60" validate:"gte=0,lte=100,gtefield=Min"`
	Initial int `yaml:"initial" default:"30" validate:"gte=0"`
}

// PlaybackConfig represents session behavior.
type PlaybackConfig struct {
	// AutoRecoverSec resets a failed session back to idle after this many
	// seconds. 0 keeps the error on screen until someone resets it.
	AutoRecoverSec int `yaml:"auto_recover_sec" default:"0" validate:"gte=0,lte=3600"`
}

// LogConfig represents logging configuration.
type LogConfig struct {
	Level string `yaml:"level" default:"info"`
	File  string `yaml:"file"`
}

// ClientConfig represents the display client configuration.
type ClientConfig struct {
	ServerURL        string `yaml:"server_url" default:"http://localhost:8090" validate:"required,url"`
	PollIntervalMs   int    `yaml:"poll_interval_ms" default:"2000" validate:"gte=250,lte=60000"`
	VolumeDebounceMs int    `yaml:"volume_debounce_ms" default:"200" validate:"gte=0,lte=5000"`
	RequestTimeoutMs int    `yaml:"request_timeout_ms" default:"5000" validate:"gte=100"`
}

// Load loads the server configuration from a YAML file. Environment
// variables take precedence over file values for catalog credentials.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := loadYAML(path, &cfg); err != nil {
		return nil, err
	}
	cfg.overrideFromEnv()
	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	if cfg.Volume.Initial > cfg.Volume.Max {
		cfg.Volume.Initial = cfg.Volume.Max
	}
	return &cfg, nil
}

// LoadClient loads the display client configuration. A missing file yields
// the defaults so the client runs with zero setup against localhost.
func LoadClient(path string) (*ClientConfig, error) {
	var cfg ClientConfig
	if err := loadYAML(path, &cfg); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}
	if v := os.Getenv("TONBOX_SERVER_URL"); v != "" {
		cfg.ServerURL = v
	}
	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// PollInterval returns the poll interval as a duration.
func (c *ClientConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}

// VolumeDebounce returns the volume debounce window as a duration.
func (c *ClientConfig) VolumeDebounce() time.Duration {
	return time.Duration(c.VolumeDebounceMs) * time.Millisecond
}

// RequestTimeout returns the per-request timeout as a duration.
func (c *ClientConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMs) * time.Millisecond
}

func loadYAML(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "failed to read config file")
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return errors.Wrap(err, "failed to parse config file")
	}
	return nil
}

func validate(cfg any) error {
	if err := validator.New().Struct(cfg); err != nil {
		return errors.Wrap(err, "config validation failed")
	}
	return nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv("TONBOX_CATALOG_URL"); v != "" {
		c.Catalog.URL = v
	}
	if v := os.Getenv("TONBOX_CATALOG_TOKEN"); v != "" {
		c.Catalog.Token = v
	}
}
