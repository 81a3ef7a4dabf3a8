// Package config loads keysound settings from flags, KEYSOUND_* environment
// variables and an optional YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"keysound/internal/store"
	"keysound/pkg/spec"

	"github.com/spf13/viper"
)

const EnvPrefix = "KEYSOUND"

// Config holds every runtime option.
type Config struct {
	Assets       string        `mapstructure:"assets"`
	Ext          string        `mapstructure:"ext"`
	BankKey      string        `mapstructure:"bank_key"`
	Store        string        `mapstructure:"store"`
	StorePath    string        `mapstructure:"store_path"`
	SampleRate   int           `mapstructure:"sample_rate"`
	Buffer       time.Duration `mapstructure:"buffer"`
	BaseGain     float64       `mapstructure:"base_gain"`
	GainRange    float64       `mapstructure:"gain_range"`
	Workers      int           `mapstructure:"workers"`
	FetchTimeout time.Duration `mapstructure:"fetch_timeout"`
}

// Dir is the per-user configuration directory.
func Dir() string {
	if d, err := os.UserConfigDir(); err == nil {
		return filepath.Join(d, "keysound")
	}
	return ".keysound"
}

// DefaultFile is the config file read when none is given.
func DefaultFile() string { return filepath.Join(Dir(), "config.yaml") }

// SetDefaults registers every key so environment overrides apply to all of them.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("assets", "./audio")
	v.SetDefault("ext", spec.DefaultExt)
	v.SetDefault("bank_key", "")
	v.SetDefault("store", store.KindFile)
	v.SetDefault("store_path", "")
	v.SetDefault("sample_rate", spec.SampleRate)
	v.SetDefault("buffer", spec.SpeakerBuffer)
	v.SetDefault("base_gain", spec.BaseGain)
	v.SetDefault("gain_range", spec.GainVariation)
	v.SetDefault("workers", 0)
	v.SetDefault("fetch_timeout", spec.FetchTimeout)
}

// Load reads file (if non-empty) on top of defaults and the environment.
// A missing DefaultFile is not an error; a missing explicit file is.
func Load(v *viper.Viper, file string) (*Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			if !(file == DefaultFile() && errors.Is(err, os.ErrNotExist)) {
				return nil, fmt.Errorf("reading config %s: %w", file, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if cfg.StorePath == "" {
		cfg.StorePath = cfg.defaultStorePath()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) defaultStorePath() string {
	switch c.Store {
	case store.KindSQLite:
		return filepath.Join(Dir(), "prefs.db")
	default:
		return filepath.Join(Dir(), "prefs.yaml")
	}
}

// Validate rejects settings the engine cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.Assets == "":
		return errors.New("assets: location is required")
	case c.SampleRate <= 0:
		return fmt.Errorf("sample_rate: must be positive, got %d", c.SampleRate)
	case c.Buffer <= 0:
		return fmt.Errorf("buffer: must be positive, got %s", c.Buffer)
	case c.BaseGain < 0:
		return fmt.Errorf("base_gain: must not be negative, got %v", c.BaseGain)
	case c.GainRange < 0:
		return fmt.Errorf("gain_range: must not be negative, got %v", c.GainRange)
	case c.Workers < 0:
		return fmt.Errorf("workers: must not be negative, got %d", c.Workers)
	case c.FetchTimeout <= 0:
		return fmt.Errorf("fetch_timeout: must be positive, got %s", c.FetchTimeout)
	}
	switch c.Store {
	case store.KindFile, store.KindSQLite, store.KindMemory:
	default:
		return fmt.Errorf("store: unknown kind %q (want file, sqlite or memory)", c.Store)
	}
	return nil
}
