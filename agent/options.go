package agent

import (
	"go.uber.org/zap"

	"github.com/BaSui01/oef-go/internal/metrics"
)

type options struct {
	logger  *zap.Logger
	metrics *metrics.Collector
}

// Option configures an Agent.
type Option func(*options)

// WithLogger sets the logger used by the agent, its proxy and its
// dispatch loop.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics records transport and dispatch metrics on c.
func WithMetrics(c *metrics.Collector) Option {
	return func(o *options) {
		o.metrics = c
	}
}

func buildOptions(opts []Option) options {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
