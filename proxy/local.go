package proxy

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/BaSui01/oef-go/internal/metrics"
	"github.com/BaSui01/oef-go/node"
	"github.com/BaSui01/oef-go/protocol"
)

const transportLocal = "local"

// LocalProxy attaches an agent to an in-process node. Messages are encoded
// exactly as on the network so both transports behave alike.
type LocalProxy struct {
	publicKey string
	node      *node.LocalNode
	logger    *zap.Logger
	metrics   *metrics.Collector

	mu      sync.Mutex
	mailbox *node.Mailbox

	state stateHolder
}

// NewLocalProxy creates a proxy for n. Every agent that must see the same
// directories has to share the same n.
func NewLocalProxy(publicKey string, n *node.LocalNode, opts ...Option) *LocalProxy {
	o := buildOptions(opts)
	return &LocalProxy{
		publicKey: publicKey,
		node:      n,
		logger: o.logger.With(
			zap.String("component", "local_proxy"),
			zap.String("agent", publicKey),
		),
		metrics: o.metrics,
		state:   stateHolder{state: StateDisconnected, onChange: o.onStateChange},
	}
}

func (p *LocalProxy) PublicKey() string { return p.publicKey }

func (p *LocalProxy) State() State { return p.state.get() }

// Connect claims the public key on the node. A key already held by another
// proxy returns false with a nil error.
func (p *LocalProxy) Connect(_ context.Context) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.mailbox != nil && !p.mailbox.Closed() {
		return true, nil
	}

	p.state.set(StateConnecting)
	mb, ok := p.node.Connect(p.publicKey)
	if !ok {
		p.mailbox = nil
		p.state.set(StateDisconnected)
		p.metrics.RecordHandshake(transportLocal, "refused")
		return false, nil
	}
	p.mailbox = mb
	p.state.set(StateConnected)
	p.metrics.RecordHandshake(transportLocal, "connected")
	p.logger.Debug("connected to local node")
	return true, nil
}

func (p *LocalProxy) current() (*node.Mailbox, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.mailbox == nil {
		return nil, ErrNotConnected
	}
	return p.mailbox, nil
}

// Send encodes msg and submits it to the node.
func (p *LocalProxy) Send(ctx context.Context, msg protocol.Message) error {
	if _, err := p.current(); err != nil {
		return err
	}
	frame, err := protocol.EncodeMessage(msg)
	if err != nil {
		return fmt.Errorf("proxy: encode %T: %w", msg, err)
	}
	p.metrics.RecordFrame(transportLocal, "out", len(frame))
	if err := p.node.Submit(ctx, p.publicKey, frame); err != nil {
		if errors.Is(err, node.ErrNotConnected) || errors.Is(err, node.ErrClosed) {
			return ErrConnectionClosed
		}
		return err
	}
	return nil
}

// Receive returns the next message from the mailbox.
func (p *LocalProxy) Receive(ctx context.Context) ([]byte, error) {
	mb, err := p.current()
	if err != nil {
		return nil, err
	}
	frame, err := mb.Receive(ctx)
	if err != nil {
		if errors.Is(err, node.ErrMailboxClosed) {
			return nil, ErrConnectionClosed
		}
		return nil, err
	}
	p.metrics.RecordFrame(transportLocal, "in", len(frame))
	return frame, nil
}

// Disconnect releases the public key on the node.
func (p *LocalProxy) Disconnect(_ context.Context) error {
	p.mu.Lock()
	mb := p.mailbox
	p.mailbox = nil
	p.mu.Unlock()

	if mb == nil {
		return nil
	}
	p.node.Release(mb)
	p.state.set(StateDisconnected)
	p.logger.Debug("disconnected from local node")
	return nil
}
