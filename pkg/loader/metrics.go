package loader

import "github.com/rcrowley/go-metrics"

// Metric names registered on Config.MetricRegistry.
const (
	MetricClassesDecoded   = "classes-decoded"
	MetricDecodeErrors     = "decode-errors"
	MetricClassSize        = "class-size"
	MetricConstantPoolSize = "constant-pool-size"
)

func getOrRegisterHistogram(name string, r metrics.Registry) metrics.Histogram {
	return r.GetOrRegister(name, func() metrics.Histogram {
		return metrics.NewHistogram(metrics.NewExpDecaySample(1028, 0.015))
	}).(metrics.Histogram)
}
