package node

import (
	"github.com/BaSui01/oef-go/internal/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const instrumentationName = "github.com/BaSui01/oef-go/node"

// Option configures a LocalNode.
type Option func(*LocalNode)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(n *LocalNode) {
		if logger != nil {
			n.logger = logger
		}
	}
}

// WithMetrics records broker metrics on c.
func WithMetrics(c *metrics.Collector) Option {
	return func(n *LocalNode) {
		n.metrics = c
	}
}

// WithTracerProvider sets where search and relay spans go. The default is
// the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(n *LocalNode) {
		if tp != nil {
			n.tracer = tp.Tracer(instrumentationName)
		}
	}
}

// WithMailboxWarnThreshold logs a warning every time a mailbox backlog
// grows by another threshold messages. Zero disables the warning.
func WithMailboxWarnThreshold(threshold int) Option {
	return func(n *LocalNode) {
		n.warnThreshold = threshold
	}
}

func defaultTracer() trace.Tracer {
	return otel.GetTracerProvider().Tracer(instrumentationName)
}
