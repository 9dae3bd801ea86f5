package main

import (
	"fmt"
	"os"
	"time"

	"github.com/daimatz/classparse/pkg/classfile"
	"github.com/daimatz/classparse/pkg/loader"
	"github.com/pelletier/go-toml/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config is the optional TOML file given with -config. Flags override it.
type Config struct {
	WideConstants bool `toml:"wide_constants"`
	CheckMagic    bool `toml:"check_magic"`
	// AllowTrailing lets dump accept input that continues past the class file.
	AllowTrailing bool     `toml:"allow_trailing"`
	Workers       int      `toml:"workers"`
	DecodeTimeout duration `toml:"decode_timeout"`
	LogLevel      string   `toml:"log_level"`
	LogFormat     string   `toml:"log_format"`
	Format        string   `toml:"format"`
}

// duration reads a TOML string such as "5s".
type duration struct{ time.Duration }

func (d *duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d duration) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

func defaultConfig() *Config {
	lc := loader.NewConfig()
	return &Config{
		WideConstants: lc.Options.WideConstants,
		CheckMagic:    lc.Options.CheckMagic,
		Workers:       lc.Workers,
		DecodeTimeout: duration{lc.DecodeTimeout},
		LogLevel:      "warn",
		LogFormat:     "console",
		Format:        "text",
	}
}

// loadConfig reads path over the defaults. An empty path returns the defaults.
func loadConfig(path string) (*Config, error) {
	conf := defaultConfig()
	if path == "" {
		return conf, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := toml.Unmarshal(data, conf); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return conf, conf.validate()
}

func (c *Config) validate() error {
	switch c.Format {
	case "text", "spew", "json":
	default:
		return fmt.Errorf("unknown format %q (want text, spew or json)", c.Format)
	}
	switch c.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("unknown log_format %q (want console or json)", c.LogFormat)
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

func (c *Config) options() classfile.Options {
	return classfile.Options{WideConstants: c.WideConstants, CheckMagic: c.CheckMagic}
}

func (c *Config) loaderConfig(logger *zap.Logger) *loader.Config {
	lc := loader.NewConfig()
	lc.Options = c.options()
	lc.Workers = c.Workers
	lc.DecodeTimeout = c.DecodeTimeout.Duration
	lc.Logger = logger
	return lc
}

// newLogger builds a stderr logger at the configured level.
func (c *Config) newLogger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	if c.LogFormat == "console" {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}
	return zc.Build()
}
