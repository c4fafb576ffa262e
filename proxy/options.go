package proxy

import (
	"go.uber.org/zap"

	"github.com/BaSui01/oef-go/internal/metrics"
)

type options struct {
	logger        *zap.Logger
	metrics       *metrics.Collector
	onStateChange func(State)
}

// Option configures proxies and Loop.
type Option func(*options)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics records frame, handshake and dispatch metrics on c.
func WithMetrics(c *metrics.Collector) Option {
	return func(o *options) {
		o.metrics = c
	}
}

// WithStateChange registers fn to be called on every state transition.
func WithStateChange(fn func(State)) Option {
	return func(o *options) {
		o.onStateChange = fn
	}
}

func buildOptions(opts []Option) options {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
