// Package config loads jolt settings from defaults, an optional YAML file,
// JOLT_* environment variables and bound command-line flags, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/viper"

	"github.com/idelchi/jolt/internal/finder"
)

const (
	// EnvPrefix prefixes environment overrides, e.g. JOLT_FINDER_CEILING.
	EnvPrefix = "JOLT"
	// FileName is the base name of the auto-discovered config file.
	FileName = ".jolt"
)

// Config is the full jolt configuration.
type Config struct {
	LogLevel string       `mapstructure:"log_level"`
	Output   string       `mapstructure:"output"`
	Finder   FinderConfig `mapstructure:"finder"`
	Search   SearchConfig `mapstructure:"search"`
	Server   ServerConfig `mapstructure:"server"`
}

// FinderConfig configures largest-file scans.
type FinderConfig struct {
	Count       int           `mapstructure:"count"`
	Ceiling     int           `mapstructure:"ceiling"`
	Buffer      int           `mapstructure:"buffer"`
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`
	Strict      bool          `mapstructure:"strict"`
	MinSize     string        `mapstructure:"min_size"`
	Denylist    []string      `mapstructure:"denylist"`
	Excludes    []string      `mapstructure:"excludes"`
}

// SearchConfig configures filename searches.
type SearchConfig struct {
	Workers int    `mapstructure:"workers"`
	LogDir  string `mapstructure:"log_dir"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Address          string        `mapstructure:"address"`
	Port             int           `mapstructure:"port"`
	RateLimit        float64       `mapstructure:"rate_limit"`
	RateLimitBurst   int           `mapstructure:"rate_limit_burst"`
	ReadTimeout      time.Duration `mapstructure:"read_timeout"`
	WriteTimeout     time.Duration `mapstructure:"write_timeout"`
	IdleTimeout      time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout  time.Duration `mapstructure:"shutdown_timeout"`
	ProgressInterval time.Duration `mapstructure:"progress_interval"`
	DefaultCount     int           `mapstructure:"default_count"`
}

// SetDefaults registers every key with its default value.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "")
	v.SetDefault("output", "table")

	v.SetDefault("finder.count", finder.DefaultCount)
	v.SetDefault("finder.ceiling", finder.DefaultCeiling)
	v.SetDefault("finder.buffer", finder.DefaultBuffer)
	v.SetDefault("finder.idle_timeout", time.Duration(0))
	v.SetDefault("finder.strict", false)
	v.SetDefault("finder.min_size", "0B")
	v.SetDefault("finder.denylist", finder.DefaultDenylist)
	v.SetDefault("finder.excludes", []string{})

	v.SetDefault("search.workers", 0)
	v.SetDefault("search.log_dir", "/var/log")

	v.SetDefault("server.address", "")
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.rate_limit", 100.0)
	v.SetDefault("server.rate_limit_burst", 200)
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 100*time.Minute)
	v.SetDefault("server.idle_timeout", 120*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)
	v.SetDefault("server.progress_interval", 2*time.Second)
	v.SetDefault("server.default_count", 10)
}

// Default returns the configuration with every key at its default value.
func Default() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("decoding default config: %v", err))
	}

	return &cfg
}

// Load reads configuration into v and decodes it.
//
// An explicit file must exist. Without one, $HOME/.jolt.yaml and ./.jolt.yaml are
// tried and silently skipped when absent.
func Load(v *viper.Viper, file string) (*Config, error) {
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)

		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %q: %w", file, err)
		}
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}

		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName(FileName)

		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("reading config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	return &cfg, nil
}

// Options converts the finder settings into scan options for path.
func (f FinderConfig) Options(path string) (finder.Options, error) {
	minSize, err := humanize.ParseBytes(f.MinSize)
	if err != nil {
		return finder.Options{}, fmt.Errorf("invalid min-size %q: %w", f.MinSize, err)
	}

	if f.Count > finder.MaxCount {
		return finder.Options{}, fmt.Errorf("count %d exceeds the maximum of %d", f.Count, finder.MaxCount)
	}

	if f.Ceiling < 0 {
		return finder.Options{}, errors.New("ceiling cannot be negative")
	}

	policy := finder.EvictAlways
	if f.Strict {
		policy = finder.EvictSmaller
	}

	return finder.Options{
		Path:        path,
		Count:       f.Count,
		Ceiling:     f.Ceiling,
		Buffer:      f.Buffer,
		IdleTimeout: f.IdleTimeout,
		Policy:      policy,
		MinSize:     int64(minSize), //nolint:gosec // Size conversion from humanize is safe
		Excludes:    f.Excludes,
		Denylist:    f.Denylist,
	}, nil
}
