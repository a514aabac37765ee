// Package config loads gateway settings from defaults, optional YAML files
// and FIX_* environment variables, in increasing precedence.
package config

import (
	"strings"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/xerrors"
)

// EnvPrefix namespaces environment overrides, e.g. FIX_LOG_LEVEL
const EnvPrefix = "FIX"

// Idle strategies accepted by framer.idle_strategy
const (
	IdleSpin    = "spin"
	IdleYield   = "yield"
	IdleBackoff = "backoff"
)

var ErrInvalid = xerrors.New("invalid configuration")

// Config is the full gateway configuration
type Config struct {
	Codecs  CodecsConfig  `mapstructure:"codecs"`
	Framer  FramerConfig  `mapstructure:"framer"`
	Log     LogConfig     `mapstructure:"log"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// CodecsConfig controls encoding and decoding
type CodecsConfig struct {
	// NoValidation turns every message type check into a no-op
	NoValidation bool   `mapstructure:"no_validation"`
	BeginString  string `mapstructure:"begin_string"`
}

// FramerConfig controls the scan loop and its message sources
type FramerConfig struct {
	IdleStrategy string        `mapstructure:"idle_strategy"`
	MaxIdle      time.Duration `mapstructure:"max_idle"`
	RingSize     int           `mapstructure:"ring_size"`
	MaxBatch     int           `mapstructure:"max_batch"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type MetricsConfig struct {
	Namespace string `mapstructure:"namespace"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("codecs.no_validation", false)
	v.SetDefault("codecs.begin_string", "FIX.4.4")
	v.SetDefault("framer.idle_strategy", IdleBackoff)
	v.SetDefault("framer.max_idle", time.Millisecond)
	v.SetDefault("framer.ring_size", 1024)
	v.SetDefault("framer.max_batch", 128)
	v.SetDefault("log.level", "info")
	v.SetDefault("metrics.namespace", "fix_gateway")
}

// Load reads configuration from the OS filesystem
func Load(log *zap.Logger, paths ...string) (*Config, error) {
	return LoadFs(afero.NewOsFs(), log, paths...)
}

// LoadFs reads configuration from fs. Missing files are skipped; every
// file found is merged over the previous ones.
func LoadFs(fs afero.Fs, log *zap.Logger, paths ...string) (*Config, error) {
	if log == nil {
		log = zap.NewNop()
	}

	v := viper.New()
	v.SetFs(fs)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix(EnvPrefix)
	setDefaults(v)

	var loaded []string
	for _, path := range paths {
		exists, err := afero.Exists(fs, path)
		if err != nil {
			return nil, xerrors.Errorf("stat %s: %w", path, err)
		}
		if !exists {
			log.Debug("Config file not found, skipping", zap.String("path", path))
			continue
		}
		v.SetConfigFile(path)
		if err := v.MergeInConfig(); err != nil {
			return nil, xerrors.Errorf("load config file %s: %w", path, err)
		}
		loaded = append(loaded, path)
	}
	if len(loaded) > 0 {
		log.Info("Loaded configuration files", zap.Strings("files", loaded))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, xerrors.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges
func (c *Config) Validate() error {
	switch c.Framer.IdleStrategy {
	case IdleSpin, IdleYield, IdleBackoff:
	default:
		return xerrors.Errorf("framer.idle_strategy %q: %w", c.Framer.IdleStrategy, ErrInvalid)
	}
	if c.Framer.RingSize <= 0 || c.Framer.RingSize&(c.Framer.RingSize-1) != 0 {
		return xerrors.Errorf("framer.ring_size %d is not a power of two: %w", c.Framer.RingSize, ErrInvalid)
	}
	if c.Framer.MaxBatch <= 0 {
		return xerrors.Errorf("framer.max_batch %d: %w", c.Framer.MaxBatch, ErrInvalid)
	}
	if c.Framer.MaxIdle < 0 {
		return xerrors.Errorf("framer.max_idle %s: %w", c.Framer.MaxIdle, ErrInvalid)
	}
	if c.Codecs.BeginString == "" {
		return xerrors.Errorf("codecs.begin_string is empty: %w", ErrInvalid)
	}
	return nil
}
