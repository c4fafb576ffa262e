package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/BaSui01/oef-go/config"
	"github.com/BaSui01/oef-go/internal/metrics"
	"github.com/BaSui01/oef-go/node"
	"github.com/BaSui01/oef-go/protocol"
	"github.com/BaSui01/oef-go/proxy"
	"github.com/BaSui01/oef-go/query"
	"github.com/BaSui01/oef-go/schema"
)

// Agent is an OEF agent bound to one proxy. Outbound methods are safe for
// concurrent use.
type Agent struct {
	proxy   proxy.Proxy
	logger  *zap.Logger
	metrics *metrics.Collector

	mu     sync.Mutex
	state  State
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates an agent on top of p.
func New(p proxy.Proxy, opts ...Option) *Agent {
	return newAgent(p, buildOptions(opts))
}

// NewNetworkAgent creates an agent that talks to the node at cfg.Address()
// over TCP.
func NewNetworkAgent(publicKey string, cfg config.NodeConfig, opts ...Option) *Agent {
	o := buildOptions(opts)
	p := proxy.NewNetworkProxy(publicKey, cfg, proxy.WithLogger(o.logger), proxy.WithMetrics(o.metrics))
	return newAgent(p, o)
}

// NewLocalAgent creates an agent attached to the in-process node n.
func NewLocalAgent(publicKey string, n *node.LocalNode, opts ...Option) *Agent {
	o := buildOptions(opts)
	p := proxy.NewLocalProxy(publicKey, n, proxy.WithLogger(o.logger), proxy.WithMetrics(o.metrics))
	return newAgent(p, o)
}

func newAgent(p proxy.Proxy, o options) *Agent {
	return &Agent{
		proxy: p,
		logger: o.logger.With(
			zap.String("component", "agent"),
			zap.String("agent", p.PublicKey()),
		),
		metrics: o.metrics,
		state:   StateInit,
	}
}

func (a *Agent) PublicKey() string { return a.proxy.PublicKey() }

func (a *Agent) Proxy() proxy.Proxy { return a.proxy }

func (a *Agent) Logger() *zap.Logger { return a.logger }

func (a *Agent) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// =============================================================================
// Lifecycle
// =============================================================================

// Connect attaches the agent to its node. A node that refuses the public
// key yields proxy.ErrIdentifierInUse.
func (a *Agent) Connect(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	ok, err := a.proxy.Connect(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", proxy.ErrIdentifierInUse, a.proxy.PublicKey())
	}
	if a.state == StateInit || a.state == StateStopped {
		a.state = StateConnected
	}
	return nil
}

// Run dispatches inbound notifications to h until ctx is done, Stop is
// called, the connection closes or a handler returns an error. A nil h
// uses the agent's default handlers. Stop and a closed connection end Run
// with a nil error.
func (a *Agent) Run(ctx context.Context, h proxy.Handler) error {
	if h == nil {
		h = a
	}

	a.mu.Lock()
	if a.state == StateRunning {
		a.mu.Unlock()
		return ErrAlreadyRunning
	}
	if !CanTransition(a.state, StateRunning) {
		from := a.state
		a.mu.Unlock()
		return fmt.Errorf("%w: %w", ErrNotConnected, ErrInvalidTransition{From: from, To: StateRunning})
	}
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	a.state, a.cancel, a.done = StateRunning, cancel, done
	a.mu.Unlock()

	a.logger.Debug("dispatch loop started")
	err := proxy.Loop(runCtx, a.proxy, h, proxy.WithLogger(a.logger), proxy.WithMetrics(a.metrics))
	stopped := runCtx.Err() != nil && ctx.Err() == nil
	cancel()

	a.mu.Lock()
	if a.state == StateRunning {
		a.state = StateConnected
	}
	a.cancel, a.done = nil, nil
	a.mu.Unlock()
	close(done)

	if stopped && errors.Is(err, context.Canceled) {
		err = nil
	}
	if err != nil {
		a.logger.Warn("dispatch loop ended", zap.Error(err))
	} else {
		a.logger.Debug("dispatch loop ended")
	}
	return err
}

// Stop asks a running dispatch loop to return. It does not wait, so a
// handler may call it.
func (a *Agent) Stop() {
	a.mu.Lock()
	cancel := a.cancel
	a.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Disconnect stops the dispatch loop, waits for it to return and then
// closes the transport. It must not be called from a handler.
func (a *Agent) Disconnect(ctx context.Context) error {
	a.mu.Lock()
	cancel, done := a.cancel, a.done
	a.mu.Unlock()

	if cancel != nil {
		cancel()
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	err := a.proxy.Disconnect(ctx)

	a.mu.Lock()
	if a.state != StateInit {
		a.state = StateStopped
	}
	a.mu.Unlock()
	return err
}

// =============================================================================
// Directories
// =============================================================================

// RegisterAgent publishes d as the agent's description, replacing any
// previous one.
func (a *Agent) RegisterAgent(ctx context.Context, msgID int32, d *schema.Description) error {
	return a.send(ctx, protocol.RegisterDescription{MsgID: msgID, Description: d})
}

func (a *Agent) UnregisterAgent(ctx context.Context, msgID int32) error {
	return a.send(ctx, protocol.UnregisterDescription{MsgID: msgID})
}

// RegisterService adds d to the services the agent offers.
func (a *Agent) RegisterService(ctx context.Context, msgID int32, d *schema.Description) error {
	return a.send(ctx, protocol.RegisterService{MsgID: msgID, Description: d})
}

func (a *Agent) UnregisterService(ctx context.Context, msgID int32, d *schema.Description) error {
	return a.send(ctx, protocol.UnregisterService{MsgID: msgID, Description: d})
}

// SearchAgents asks the node for agents whose description matches q. The
// answer arrives at OnSearchResult tagged with searchID.
func (a *Agent) SearchAgents(ctx context.Context, searchID int32, q *query.Query) error {
	return a.send(ctx, protocol.SearchAgents{SearchID: searchID, Query: q})
}

// SearchServices is SearchAgents over the service directory.
func (a *Agent) SearchServices(ctx context.Context, searchID int32, q *query.Query) error {
	return a.send(ctx, protocol.SearchServices{SearchID: searchID, Query: q})
}

// =============================================================================
// Agent messages
// =============================================================================

func (a *Agent) SendMessage(ctx context.Context, msgID, dialogueID int32, destination string, content []byte) error {
	return a.sendBody(ctx, msgID, dialogueID, destination, protocol.Content{Data: content})
}

// SendCFP sends a call for proposals. q may be nil, protocol.RawPayload or
// protocol.QueryPayload.
func (a *Agent) SendCFP(ctx context.Context, msgID, dialogueID int32, destination string, target int32, q protocol.CFPPayload) error {
	return a.sendBody(ctx, msgID, dialogueID, destination, protocol.CFP{Target: target, Query: q})
}

func (a *Agent) SendPropose(ctx context.Context, msgID, dialogueID int32, destination string, target int32, proposals protocol.ProposePayload) error {
	return a.sendBody(ctx, msgID, dialogueID, destination, protocol.Propose{Target: target, Proposals: proposals})
}

func (a *Agent) SendAccept(ctx context.Context, msgID, dialogueID int32, destination string, target int32) error {
	return a.sendBody(ctx, msgID, dialogueID, destination, protocol.Accept{Target: target})
}

func (a *Agent) SendDecline(ctx context.Context, msgID, dialogueID int32, destination string, target int32) error {
	return a.sendBody(ctx, msgID, dialogueID, destination, protocol.Decline{Target: target})
}

func (a *Agent) sendBody(ctx context.Context, msgID, dialogueID int32, destination string, body protocol.Body) error {
	return a.send(ctx, protocol.SendMessage{
		MsgID:       msgID,
		DialogueID:  dialogueID,
		Destination: destination,
		Body:        body,
	})
}

func (a *Agent) send(ctx context.Context, msg protocol.Message) error {
	if err := a.proxy.Send(ctx, msg); err != nil {
		return fmt.Errorf("agent %s: %T: %w", a.proxy.PublicKey(), msg, err)
	}
	return nil
}
