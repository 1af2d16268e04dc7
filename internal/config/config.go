// Package config loads tool-level configuration for jobmon.
//
// Precedence, lowest to highest: built-in defaults, an optional
// jobmon.yaml (current directory or $HOME/.config/jobmon), JOBMON_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Config is the decoded tool configuration.
type Config struct {
	Logging LoggingConfig `mapstructure:"logging"`
	Jobs    JobsConfig    `mapstructure:"jobs"`
	Run     RunConfig     `mapstructure:"run"`
	Server  ServerConfig  `mapstructure:"server"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type JobsConfig struct {
	// Dir is the default directory scanned by `jobmon status` and the
	// status server.
	Dir string `mapstructure:"dir"`
	// LogExt is the terminal log extension.
	LogExt string `mapstructure:"log_ext"`
}

type RunConfig struct {
	// DefaultTimeout bounds subprocess runs with no explicit timeout.
	// Zero means unbounded.
	DefaultTimeout time.Duration `mapstructure:"default_timeout"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	// RateLimit is the per-second request budget of the status server.
	RateLimit float64 `mapstructure:"rate_limit"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("jobs.dir", ".")
	v.SetDefault("jobs.log_ext", ".log")
	v.SetDefault("run.default_timeout", "0s")
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.rate_limit", 20.0)
}

// Load reads the configuration. cfgFile, when non-empty, names an
// explicit config file; a missing explicit file is an error while a
// missing default file is not.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("jobmon")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(filepath.Join("$HOME", ".config", "jobmon"))
	}

	v.SetEnvPrefix("JOBMON")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	decodeHook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, decodeHook); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}
