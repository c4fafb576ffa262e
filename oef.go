// Package oef wires an OEF agent application together.
//
// Usage:
//
//	cfg, err := config.NewLoader().WithConfigPath("oef.yaml").Load()
//	rt, err := oef.Setup(cfg)
//	defer rt.Shutdown(context.Background())
//
//	n := rt.NewLocalNode()
//	seller := rt.NewLocalAgent("seller", n)
//	buyer := rt.NewNetworkAgent("")
//
// Setup builds the logger, the Prometheus collector and the OpenTelemetry
// providers once from the configuration; every node and agent created by
// the Runtime shares them.
package oef

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BaSui01/oef-go/agent"
	"github.com/BaSui01/oef-go/config"
	"github.com/BaSui01/oef-go/internal/logging"
	"github.com/BaSui01/oef-go/internal/metrics"
	"github.com/BaSui01/oef-go/internal/telemetry"
	"github.com/BaSui01/oef-go/node"
	"github.com/BaSui01/oef-go/proxy"
)

// Runtime holds the shared infrastructure of an OEF application.
type Runtime struct {
	cfg       *config.Config
	logger    *zap.Logger
	metrics   *metrics.Collector
	telemetry *telemetry.Providers
}

type setupOptions struct {
	logger     *zap.Logger
	registerer prometheus.Registerer
}

// Option configures Setup.
type Option func(*setupOptions)

// WithLogger uses logger instead of building one from cfg.Log.
func WithLogger(logger *zap.Logger) Option {
	return func(o *setupOptions) { o.logger = logger }
}

// WithRegisterer registers metrics on reg instead of the default
// Prometheus registerer.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *setupOptions) { o.registerer = reg }
}

// Setup validates cfg and builds the runtime. A nil cfg uses
// config.DefaultConfig. A telemetry exporter that cannot be created is
// logged and telemetry stays disabled.
func Setup(cfg *config.Config, opts ...Option) (*Runtime, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("oef: %w", err)
	}

	var o setupOptions
	for _, opt := range opts {
		opt(&o)
	}

	logger := o.logger
	if logger == nil {
		var err error
		if logger, err = logging.New(cfg.Log); err != nil {
			return nil, fmt.Errorf("oef: %w", err)
		}
	}

	rt := &Runtime{cfg: cfg, logger: logger}

	if cfg.Metrics.Enabled {
		rt.metrics = metrics.NewCollector(cfg.Metrics.Namespace, o.registerer, logger)
	}

	providers, err := telemetry.Init(cfg.Telemetry, logger)
	if err != nil {
		logger.Warn("failed to initialize telemetry", zap.Error(err))
	}
	rt.telemetry = providers

	logger.Info("oef runtime ready",
		zap.String("node", cfg.Node.Address()),
		zap.Bool("metrics", cfg.Metrics.Enabled),
		zap.Bool("telemetry", providers.Enabled()),
	)
	return rt, nil
}

func (r *Runtime) Config() *config.Config { return r.cfg }

func (r *Runtime) Logger() *zap.Logger { return r.logger }

// Metrics returns the collector, or nil when metrics are disabled.
func (r *Runtime) Metrics() *metrics.Collector { return r.metrics }

// NewLocalNode creates an in-process broker. The caller runs it with
// RunLoops or node.LocalNode.Run.
func (r *Runtime) NewLocalNode() *node.LocalNode {
	return node.New(
		node.WithLogger(r.logger),
		node.WithMetrics(r.metrics),
		node.WithTracerProvider(r.telemetry.TracerProvider()),
		node.WithMailboxWarnThreshold(r.cfg.Broker.MailboxWarnThreshold),
	)
}

// NewNetworkAgent creates an agent for the configured node. An empty
// publicKey uses cfg.Agent.PublicKey.
func (r *Runtime) NewNetworkAgent(publicKey string) *agent.Agent {
	return agent.NewNetworkAgent(r.publicKey(publicKey), r.cfg.Node, r.agentOptions()...)
}

// NewLocalAgent creates an agent attached to n. An empty publicKey uses
// cfg.Agent.PublicKey.
func (r *Runtime) NewLocalAgent(publicKey string, n *node.LocalNode) *agent.Agent {
	return agent.NewLocalAgent(r.publicKey(publicKey), n, r.agentOptions()...)
}

func (r *Runtime) publicKey(key string) string {
	if key == "" {
		return r.cfg.Agent.PublicKey
	}
	return key
}

func (r *Runtime) agentOptions() []agent.Option {
	return []agent.Option{agent.WithLogger(r.logger), agent.WithMetrics(r.metrics)}
}

// Runner is anything with a dispatch loop: *agent.Agent and
// *dialogue.Agent both qualify.
type Runner interface {
	Run(ctx context.Context, h proxy.Handler) error
}

// Loop pairs a Runner with the handler its loop dispatches to. A nil
// Handler uses the Runner's defaults.
type Loop struct {
	Runner  Runner
	Handler proxy.Handler
}

// RunLoops runs n (if non-nil) and every loop until ctx is done or one of
// them fails; the first failure cancels the rest and is returned.
func (r *Runtime) RunLoops(ctx context.Context, n *node.LocalNode, loops ...Loop) error {
	g, gctx := errgroup.WithContext(ctx)
	if n != nil {
		g.Go(func() error { return n.Run(gctx) })
	}
	for _, l := range loops {
		g.Go(func() error { return l.Runner.Run(gctx, l.Handler) })
	}
	return g.Wait()
}

// Shutdown flushes telemetry and the logger.
func (r *Runtime) Shutdown(ctx context.Context) error {
	err := r.telemetry.Shutdown(ctx)
	// Sync on a terminal returns ENOTTY.
	_ = r.logger.Sync()
	return err
}
