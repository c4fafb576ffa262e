// Package fakenode runs an OEF node on a loopback TCP port for tests.
// Connections go through the network handshake and are then bridged onto
// a node.LocalNode, so registry, search and routing behave exactly as they
// do in-process.
package fakenode

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BaSui01/oef-go/config"
	"github.com/BaSui01/oef-go/internal/server"
	"github.com/BaSui01/oef-go/node"
	"github.com/BaSui01/oef-go/protocol"
)

// Node is a TCP front end for a LocalNode.
type Node struct {
	local  *node.LocalNode
	srv    *server.Manager
	logger *zap.Logger

	maxFrameSize int

	// answers counts handshakes that reached the answer step.
	answers atomic.Int64

	cancel  context.CancelFunc
	runDone chan error
}

// Start listens on an ephemeral loopback port and begins serving. opts are
// passed to the underlying LocalNode.
func Start(logger *zap.Logger, opts ...node.Option) (*Node, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("component", "fakenode"))

	n := &Node{
		local:        node.New(append([]node.Option{node.WithLogger(logger)}, opts...)...),
		logger:       logger,
		maxFrameSize: protocol.DefaultMaxFrameSize,
		runDone:      make(chan error, 1),
	}
	n.srv = server.NewManager(n.serve, server.Config{
		Addr:            "127.0.0.1:0",
		ShutdownTimeout: 2 * time.Second,
	}, logger)

	if err := n.srv.Start(); err != nil {
		n.local.Close()
		return nil, fmt.Errorf("fakenode: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	n.cancel = cancel
	go func() { n.runDone <- n.local.Run(ctx) }()

	return n, nil
}

// Addr returns the listening address.
func (n *Node) Addr() string { return n.srv.Addr() }

// Local returns the broker behind the listener.
func (n *Node) Local() *node.LocalNode { return n.local }

// Answers returns how many clients have sent a handshake answer.
func (n *Node) Answers() int64 { return n.answers.Load() }

// NodeConfig returns a client configuration pointing at this node.
func (n *Node) NodeConfig() config.NodeConfig {
	cfg := config.DefaultNodeConfig()
	host, port, err := net.SplitHostPort(n.Addr())
	if err != nil {
		return cfg
	}
	cfg.Addr = host
	cfg.Port, _ = strconv.Atoi(port)
	cfg.DialTimeout = 2 * time.Second
	cfg.HandshakeTimeout = 2 * time.Second
	cfg.MaxFrameSize = n.maxFrameSize
	return cfg
}

// Close stops accepting connections, drops every client and stops the
// broker.
func (n *Node) Close(ctx context.Context) error {
	err := n.srv.Shutdown(ctx)
	n.local.Close()
	n.cancel()
	return errors.Join(err, <-n.runDone)
}

func (n *Node) serve(ctx context.Context, conn net.Conn) {
	id, mb, err := n.handshake(conn)
	if err != nil {
		n.logger.Debug("handshake failed", zap.String("remote", conn.RemoteAddr().String()), zap.Error(err))
		return
	}
	if mb == nil {
		return
	}
	logger := n.logger.With(zap.String("agent", id))
	logger.Debug("agent connected")

	g, gctx := errgroup.WithContext(ctx)
	stop := context.AfterFunc(gctx, func() { _ = conn.Close() })
	defer stop()

	g.Go(func() error {
		defer n.local.Release(mb)
		for {
			frame, err := protocol.ReadFrame(conn, n.maxFrameSize)
			if err != nil {
				if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
					return nil
				}
				return err
			}
			if err := n.local.Submit(gctx, id, frame); err != nil {
				if errors.Is(err, node.ErrNotConnected) {
					return err
				}
				logger.Warn("rejected envelope", zap.Error(err))
			}
		}
	})
	g.Go(func() error {
		for {
			frame, err := mb.Receive(gctx)
			if err != nil {
				if errors.Is(err, node.ErrMailboxClosed) {
					// Evicted or the reader is gone; either way hang up.
					_ = conn.Close()
					return nil
				}
				return err
			}
			if err := protocol.WriteFrame(conn, frame); err != nil {
				return err
			}
		}
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Debug("connection ended", zap.Error(err))
	}
	logger.Debug("agent disconnected")
}

// handshake returns a nil mailbox when the client was refused.
func (n *Node) handshake(conn net.Conn) (string, *node.Mailbox, error) {
	b, err := protocol.ReadFrame(conn, n.maxFrameSize)
	if err != nil {
		return "", nil, err
	}
	id, err := protocol.DecodeClientID(b)
	if err != nil {
		return "", nil, err
	}

	mb, ok := n.local.Connect(id)
	if !ok {
		n.logger.Info("refusing duplicate identifier", zap.String("agent", id))
		return id, nil, protocol.WriteFrame(conn, protocol.EncodePhraseFailure())
	}

	phrase := uuid.NewString()
	if err := protocol.WriteFrame(conn, protocol.EncodePhrase(phrase)); err != nil {
		n.local.Release(mb)
		return "", nil, err
	}
	b, err = protocol.ReadFrame(conn, n.maxFrameSize)
	if err != nil {
		n.local.Release(mb)
		return "", nil, err
	}
	n.answers.Add(1)
	answer, err := protocol.DecodeAnswer(b)
	if err != nil {
		n.local.Release(mb)
		return "", nil, err
	}

	status := answer == protocol.ReversePhrase(phrase)
	if err := protocol.WriteFrame(conn, protocol.EncodeConnected(status)); err != nil || !status {
		n.local.Release(mb)
		return id, nil, err
	}
	return id, mb, nil
}
