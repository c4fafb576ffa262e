package proxy

import (
	"bytes"
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/BaSui01/oef-go/config"
	"github.com/BaSui01/oef-go/protocol"
	"github.com/BaSui01/oef-go/testutil"
	"github.com/BaSui01/oef-go/testutil/fakenode"
	"github.com/BaSui01/oef-go/testutil/fixtures"
)

func startFakeNode(t *testing.T) *fakenode.Node {
	t.Helper()
	n, err := fakenode.Start(zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		assert.NoError(t, n.Close(ctx))
	})
	return n
}

func connectNetwork(t *testing.T, fn *fakenode.Node, id string, opts ...Option) *NetworkProxy {
	t.Helper()
	opts = append([]Option{WithLogger(zaptest.NewLogger(t))}, opts...)
	p := NewNetworkProxy(id, fn.NodeConfig(), opts...)
	ok, err := p.Connect(testutil.TestContext(t))
	require.NoError(t, err)
	require.True(t, ok)
	t.Cleanup(func() { _ = p.Disconnect(context.Background()) })
	return p
}

type stateLog struct {
	mu     sync.Mutex
	states []State
}

func (l *stateLog) record(s State) {
	l.mu.Lock()
	l.states = append(l.states, s)
	l.mu.Unlock()
}

func (l *stateLog) get() []State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]State(nil), l.states...)
}

func TestNetworkProxy_Handshake(t *testing.T) {
	fn := startFakeNode(t)
	var log stateLog

	p := connectNetwork(t, fn, "alice", WithStateChange(log.record))
	assert.Equal(t, StateConnected, p.State())
	assert.Equal(t, []State{StateConnecting, StateAuthenticating, StateConnected}, log.get())
	assert.Eventually(t, func() bool { return fn.Local().Connected("alice") }, 2*time.Second, 10*time.Millisecond)
}

func TestNetworkProxy_ConnectIsIdempotent(t *testing.T) {
	fn := startFakeNode(t)
	p := connectNetwork(t, fn, "alice")

	ok, err := p.Connect(testutil.TestContext(t))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(1), fn.Answers())
}

func TestNetworkProxy_DuplicateRefused(t *testing.T) {
	fn := startFakeNode(t)
	connectNetwork(t, fn, "alice")

	dup := NewNetworkProxy("alice", fn.NodeConfig())
	ok, err := dup.Connect(testutil.TestContext(t))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, StateDisconnected, dup.State())
	assert.Equal(t, int64(1), fn.Answers())

	assert.ErrorIs(t, dup.Send(context.Background(), protocol.UnregisterDescription{}), ErrNotConnected)
}

func TestNetworkProxy_DialFailure(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().(*net.TCPAddr)
	require.NoError(t, l.Close())

	cfg := config.DefaultNodeConfig()
	cfg.Port = addr.Port
	cfg.DialTimeout = time.Second

	p := NewNetworkProxy("alice", cfg)
	ok, err := p.Connect(testutil.TestContext(t))
	assert.Error(t, err)
	assert.False(t, ok)
	assert.Equal(t, StateDisconnected, p.State())
}

func TestNetworkProxy_HandshakeTimeout(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })

	// Accept and never answer.
	go func() {
		conn, err := l.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		_, _ = protocol.ReadFrame(conn, protocol.DefaultMaxFrameSize)
		time.Sleep(2 * time.Second)
	}()

	cfg := config.DefaultNodeConfig()
	cfg.Port = l.Addr().(*net.TCPAddr).Port
	cfg.HandshakeTimeout = 100 * time.Millisecond

	p := NewNetworkProxy("alice", cfg)
	start := time.Now()
	ok, err := p.Connect(testutil.TestContext(t))
	assert.Error(t, err)
	assert.False(t, ok)
	assert.Less(t, time.Since(start), time.Second)
}

func TestNetworkProxy_SearchRoundTrip(t *testing.T) {
	fn := startFakeNode(t)
	ctx := testutil.TestContext(t)

	seller := connectNetwork(t, fn, "seller")
	buyer := connectNetwork(t, fn, "buyer")

	require.NoError(t, seller.Send(ctx, protocol.RegisterService{MsgID: 1, Description: fixtures.FooBar(15, "BAR")}))
	require.Eventually(t, func() bool {
		return len(fn.Local().SearchServices(ctx, fixtures.FooGreaterThan(10))) == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, buyer.Send(ctx, protocol.SearchServices{SearchID: 5, Query: fixtures.FooGreaterThan(10)}))
	msg := receiveMessage(t, buyer)
	assert.Equal(t, protocol.SearchResult{SearchID: 5, Agents: []string{"seller"}}, msg)
}

func TestNetworkProxy_LargeMessage(t *testing.T) {
	fn := startFakeNode(t)
	ctx := testutil.TestContext(t)

	a := connectNetwork(t, fn, "alice")
	b := connectNetwork(t, fn, "bob")

	payload := bytes.Repeat([]byte("x"), 70000)
	require.NoError(t, a.Send(ctx, protocol.SendMessage{MsgID: 1, DialogueID: 2, Destination: "bob", Body: protocol.Content{Data: payload}}))

	msg := receiveMessage(t, b)
	d, ok := msg.(protocol.Delivery)
	require.True(t, ok)
	assert.Equal(t, payload, d.Body.(protocol.Content).Data)
}

func TestNetworkProxy_DisconnectFlushes(t *testing.T) {
	fn := startFakeNode(t)
	ctx := testutil.TestContext(t)

	a := NewNetworkProxy("alice", fn.NodeConfig())
	ok, err := a.Connect(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	b := connectNetwork(t, fn, "bob")

	for i := range 50 {
		require.NoError(t, a.Send(ctx, protocol.SendMessage{MsgID: int32(i), Destination: "bob", Body: protocol.Content{Data: []byte{byte(i)}}}))
	}
	require.NoError(t, a.Disconnect(ctx))
	require.NoError(t, a.Disconnect(ctx))
	assert.Equal(t, StateDisconnected, a.State())

	for i := range 50 {
		d := receiveMessage(t, b).(protocol.Delivery)
		assert.Equal(t, int32(i), d.MsgID)
	}
}

func TestNetworkProxy_ReconnectAfterNodeDrop(t *testing.T) {
	fn := startFakeNode(t)
	ctx := testutil.TestContext(t)
	p := connectNetwork(t, fn, "alice")

	// Evict the agent; the node closes its side of the connection.
	fn.Local().Disconnect("alice")

	_, err := p.Receive(ctx)
	assert.ErrorIs(t, err, ErrConnectionClosed)
	assert.Eventually(t, func() bool { return p.State() == StateDisconnected }, 2*time.Second, 10*time.Millisecond)
	assert.Eventually(t, func() bool { return !fn.Local().Connected("alice") }, 2*time.Second, 10*time.Millisecond)

	ok, err := p.Connect(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(2), fn.Answers())
}
