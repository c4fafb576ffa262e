package proxy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/oef-go/config"
	"github.com/BaSui01/oef-go/internal/channel"
	"github.com/BaSui01/oef-go/internal/metrics"
	"github.com/BaSui01/oef-go/protocol"
)

const transportTCP = "tcp"

// session is one established TCP connection with its reader and writer.
type session struct {
	conn     net.Conn
	inbound  *channel.Unbounded[[]byte]
	outbound *channel.Unbounded[[]byte]

	readerDone chan struct{}
	writerDone chan struct{}
}

func (s *session) open() bool {
	select {
	case <-s.readerDone:
		return false
	default:
		return true
	}
}

// NetworkProxy connects to an OEF node over TCP.
type NetworkProxy struct {
	publicKey string
	cfg       config.NodeConfig
	logger    *zap.Logger
	metrics   *metrics.Collector

	// connMu serializes Connect and Disconnect.
	connMu sync.Mutex

	mu   sync.Mutex
	sess *session

	state stateHolder
}

// NewNetworkProxy creates a proxy for the node at cfg.Address(). Zero
// timeouts mean no limit; a zero MaxFrameSize uses
// protocol.DefaultMaxFrameSize.
func NewNetworkProxy(publicKey string, cfg config.NodeConfig, opts ...Option) *NetworkProxy {
	o := buildOptions(opts)
	if cfg.MaxFrameSize <= 0 {
		cfg.MaxFrameSize = protocol.DefaultMaxFrameSize
	}
	return &NetworkProxy{
		publicKey: publicKey,
		cfg:       cfg,
		logger: o.logger.With(
			zap.String("component", "network_proxy"),
			zap.String("agent", publicKey),
		),
		metrics: o.metrics,
		state:   stateHolder{state: StateDisconnected, onChange: o.onStateChange},
	}
}

func (p *NetworkProxy) PublicKey() string { return p.publicKey }

func (p *NetworkProxy) State() State { return p.state.get() }

// Connect dials the node and runs the handshake. A refusal of the public
// key returns false with a nil error.
func (p *NetworkProxy) Connect(ctx context.Context) (bool, error) {
	p.connMu.Lock()
	defer p.connMu.Unlock()

	p.mu.Lock()
	old := p.sess
	p.mu.Unlock()
	if old != nil {
		if old.open() {
			return true, nil
		}
		// The node went away; drop the dead session and start over.
		p.teardown(ctx, old)
	}

	addr := p.cfg.Address()
	p.state.set(StateConnecting)

	dialer := net.Dialer{Timeout: p.cfg.DialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		p.state.set(StateDisconnected)
		p.metrics.RecordHandshake(transportTCP, "error")
		return false, fmt.Errorf("proxy: dial %s: %w", addr, err)
	}

	p.state.set(StateAuthenticating)
	ok, err := p.handshake(ctx, conn)
	if err != nil || !ok {
		conn.Close()
		p.state.set(StateDisconnected)
		if err != nil {
			p.metrics.RecordHandshake(transportTCP, "error")
			return false, err
		}
		p.metrics.RecordHandshake(transportTCP, "refused")
		p.logger.Warn("node refused connection", zap.String("addr", addr))
		return false, nil
	}

	sess := &session{
		conn:       conn,
		inbound:    channel.NewUnbounded[[]byte](),
		outbound:   channel.NewUnbounded[[]byte](),
		readerDone: make(chan struct{}),
		writerDone: make(chan struct{}),
	}
	p.mu.Lock()
	p.sess = sess
	p.mu.Unlock()

	go p.readLoop(sess)
	go p.writeLoop(sess)

	p.state.set(StateConnected)
	p.metrics.RecordHandshake(transportTCP, "connected")
	p.logger.Info("connected to node", zap.String("addr", addr))
	return true, nil
}

// handshake runs the four-step exchange on conn. The context and
// HandshakeTimeout bound every read and write.
func (p *NetworkProxy) handshake(ctx context.Context, conn net.Conn) (bool, error) {
	if p.cfg.HandshakeTimeout > 0 {
		conn.SetDeadline(time.Now().Add(p.cfg.HandshakeTimeout))
	}
	stop := context.AfterFunc(ctx, func() {
		conn.SetDeadline(time.Unix(1, 0))
	})
	defer func() {
		stop()
		conn.SetDeadline(time.Time{})
	}()

	wrap := func(step string, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		return fmt.Errorf("proxy: handshake %s: %w", step, err)
	}

	if err := p.writeFrame(conn, protocol.EncodeClientID(p.publicKey)); err != nil {
		return false, wrap("send id", err)
	}

	frame, err := p.readFrame(conn)
	if err != nil {
		return false, wrap("read phrase", err)
	}
	phrase, ok, err := protocol.DecodePhrase(frame)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrHandshake, err)
	}
	if !ok {
		return false, nil
	}

	if err := p.writeFrame(conn, protocol.EncodeAnswer(protocol.ReversePhrase(phrase))); err != nil {
		return false, wrap("send answer", err)
	}

	frame, err = p.readFrame(conn)
	if err != nil {
		return false, wrap("read status", err)
	}
	status, err := protocol.DecodeConnected(frame)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrHandshake, err)
	}
	return status, nil
}

func (p *NetworkProxy) writeFrame(w io.Writer, payload []byte) error {
	if err := protocol.WriteFrame(w, payload); err != nil {
		return err
	}
	p.metrics.RecordFrame(transportTCP, "out", len(payload))
	return nil
}

func (p *NetworkProxy) readFrame(r io.Reader) ([]byte, error) {
	frame, err := protocol.ReadFrame(r, p.cfg.MaxFrameSize)
	if err != nil {
		return nil, err
	}
	p.metrics.RecordFrame(transportTCP, "in", len(frame))
	return frame, nil
}

// readLoop moves frames from the connection to the inbound queue until the
// connection fails or is closed.
func (p *NetworkProxy) readLoop(s *session) {
	// Nothing more will be accepted by the node; stop the writer too.
	defer s.outbound.Close()
	// readerDone closes first so a Receive that sees the closed inbound
	// queue also sees a dead session.
	defer s.inbound.Close()
	defer close(s.readerDone)

	for {
		frame, err := p.readFrame(s.conn)
		if err != nil {
			switch {
			case errors.Is(err, io.EOF), errors.Is(err, net.ErrClosed):
				p.logger.Debug("connection closed")
			default:
				p.logger.Warn("read from node failed", zap.Error(err))
			}
			p.markClosed(s)
			return
		}
		s.inbound.Push(frame)
	}
}

// writeLoop drains the outbound queue onto the connection.
func (p *NetworkProxy) writeLoop(s *session) {
	defer close(s.writerDone)

	for {
		frame, err := s.outbound.Pop(context.Background())
		if err != nil {
			return
		}
		if err := p.writeFrame(s.conn, frame); err != nil {
			p.logger.Warn("write to node failed", zap.Error(err))
			s.conn.Close()
			return
		}
	}
}

func (p *NetworkProxy) markClosed(s *session) {
	p.mu.Lock()
	current := p.sess == s
	p.mu.Unlock()
	if current {
		p.state.set(StateDisconnected)
	}
}

func (p *NetworkProxy) current() (*session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sess == nil {
		return nil, ErrNotConnected
	}
	return p.sess, nil
}

// Send encodes msg and queues it for the writer. It never waits for the
// network.
func (p *NetworkProxy) Send(_ context.Context, msg protocol.Message) error {
	s, err := p.current()
	if err != nil {
		return err
	}
	frame, err := protocol.EncodeMessage(msg)
	if err != nil {
		return fmt.Errorf("proxy: encode %T: %w", msg, err)
	}
	if !s.outbound.Push(frame) {
		return ErrConnectionClosed
	}
	return nil
}

// Receive returns the next frame read from the node. Cancelling ctx never
// loses part of a frame.
func (p *NetworkProxy) Receive(ctx context.Context) ([]byte, error) {
	s, err := p.current()
	if err != nil {
		return nil, err
	}
	frame, err := s.inbound.Pop(ctx)
	if errors.Is(err, channel.ErrClosed) {
		return nil, ErrConnectionClosed
	}
	return frame, err
}

// Disconnect writes out queued messages, waiting at most until ctx is done,
// then closes the connection.
func (p *NetworkProxy) Disconnect(ctx context.Context) error {
	p.connMu.Lock()
	defer p.connMu.Unlock()

	p.mu.Lock()
	s := p.sess
	p.mu.Unlock()
	if s == nil {
		return nil
	}

	err := p.teardown(ctx, s)
	p.state.set(StateDisconnected)
	p.logger.Info("disconnected from node")
	return err
}

func (p *NetworkProxy) teardown(ctx context.Context, s *session) error {
	s.outbound.Close()
	select {
	case <-s.writerDone:
	case <-ctx.Done():
		p.logger.Warn("disconnect before queued messages were written",
			zap.Int("pending", s.outbound.Len()))
	}

	err := s.conn.Close()
	<-s.readerDone

	p.mu.Lock()
	if p.sess == s {
		p.sess = nil
	}
	p.mu.Unlock()

	if err != nil && !errors.Is(err, net.ErrClosed) {
		return fmt.Errorf("proxy: close connection: %w", err)
	}
	return nil
}
