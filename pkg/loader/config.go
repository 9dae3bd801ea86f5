package loader

import (
	"fmt"
	"runtime"
	"time"

	"github.com/daimatz/classparse/pkg/classfile"
	"github.com/rcrowley/go-metrics"
	"go.uber.org/zap"
)

// ConfigurationError is the type of error returned from Config.Validate.
type ConfigurationError string

func (err ConfigurationError) Error() string {
	return "loader: invalid configuration (" + string(err) + ")"
}

// Config is shared by every loader and by DecodeAll.
type Config struct {
	// Options are handed to the class file decoder unchanged.
	Options classfile.Options

	// Workers bounds how many decodes DecodeAll runs at once.
	Workers int

	// DecodeTimeout bounds a single decode. Zero means no limit.
	DecodeTimeout time.Duration

	Logger         *zap.Logger
	MetricRegistry metrics.Registry
}

// NewConfig returns a Config suitable for loading real class files: reserved
// Long/Double slots and a magic check.
func NewConfig() *Config {
	return &Config{
		Options: classfile.Options{
			WideConstants: true,
			CheckMagic:    true,
		},
		Workers:        runtime.NumCPU(),
		DecodeTimeout:  5 * time.Second,
		Logger:         zap.NewNop(),
		MetricRegistry: metrics.NewRegistry(),
	}
}

// Validate checks a Config for obviously bad values.
func (c *Config) Validate() error {
	switch {
	case c.Workers <= 0:
		return ConfigurationError(fmt.Sprintf("Workers must be > 0, got %d", c.Workers))
	case c.DecodeTimeout < 0:
		return ConfigurationError("DecodeTimeout must be >= 0")
	case c.Logger == nil:
		return ConfigurationError("Logger must not be nil")
	case c.MetricRegistry == nil:
		return ConfigurationError("MetricRegistry must not be nil")
	}
	return nil
}
