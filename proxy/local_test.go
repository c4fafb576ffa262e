package proxy

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/BaSui01/oef-go/node"
	"github.com/BaSui01/oef-go/protocol"
	"github.com/BaSui01/oef-go/testutil"
)

func runLocalNode(t *testing.T) *node.LocalNode {
	t.Helper()
	n := node.New(node.WithLogger(zaptest.NewLogger(t)))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = n.Run(ctx)
	}()
	t.Cleanup(func() {
		n.Close()
		cancel()
		<-done
	})
	return n
}

func receiveMessage(t *testing.T, p Proxy) protocol.ServerMessage {
	t.Helper()
	ctx := testutil.TestContextWithTimeout(t, 2*time.Second)
	frame, err := p.Receive(ctx)
	require.NoError(t, err)
	msg, err := protocol.DecodeServerMessage(frame)
	require.NoError(t, err)
	return msg
}

func TestLocalProxy_Connect(t *testing.T) {
	n := runLocalNode(t)
	ctx := testutil.TestContext(t)

	var states []State
	p := NewLocalProxy("alice", n, WithStateChange(func(s State) { states = append(states, s) }))
	assert.Equal(t, StateDisconnected, p.State())

	ok, err := p.Connect(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, StateConnected, p.State())
	assert.True(t, n.Connected("alice"))

	ok, err = p.Connect(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []State{StateConnecting, StateConnected}, states)
}

func TestLocalProxy_DuplicateRefused(t *testing.T) {
	n := runLocalNode(t)
	ctx := testutil.TestContext(t)

	ok, err := NewLocalProxy("alice", n).Connect(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	dup := NewLocalProxy("alice", n)
	ok, err = dup.Connect(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, StateDisconnected, dup.State())
}

func TestLocalProxy_NotConnected(t *testing.T) {
	n := runLocalNode(t)
	ctx := testutil.TestContext(t)
	p := NewLocalProxy("alice", n)

	assert.ErrorIs(t, p.Send(ctx, protocol.UnregisterDescription{MsgID: 1}), ErrNotConnected)
	_, err := p.Receive(ctx)
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.NoError(t, p.Disconnect(ctx))
}

func TestLocalProxy_SendReceive(t *testing.T) {
	n := runLocalNode(t)
	ctx := testutil.TestContext(t)

	a := NewLocalProxy("alice", n)
	b := NewLocalProxy("bob", n)
	for _, p := range []*LocalProxy{a, b} {
		ok, err := p.Connect(ctx)
		require.NoError(t, err)
		require.True(t, ok)
	}

	require.NoError(t, a.Send(ctx, protocol.SendMessage{
		DialogueID:  0,
		Destination: "bob",
		Body:        protocol.Content{Data: []byte("hello")},
	}))

	msg := receiveMessage(t, b)
	assert.Equal(t, protocol.Delivery{Origin: "alice", Body: protocol.Content{Data: []byte("hello")}}, msg)
}

func TestLocalProxy_Disconnect(t *testing.T) {
	n := runLocalNode(t)
	ctx := testutil.TestContext(t)

	p := NewLocalProxy("alice", n)
	ok, err := p.Connect(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, p.Disconnect(ctx))
	require.NoError(t, p.Disconnect(ctx))
	assert.False(t, n.Connected("alice"))
	assert.Equal(t, StateDisconnected, p.State())

	// The key is free again.
	ok, err = NewLocalProxy("alice", n).Connect(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLocalProxy_ReceiveAfterNodeDisconnect(t *testing.T) {
	n := runLocalNode(t)
	ctx := testutil.TestContext(t)

	p := NewLocalProxy("alice", n)
	ok, err := p.Connect(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	n.Disconnect("alice")
	_, err = p.Receive(ctx)
	assert.ErrorIs(t, err, ErrConnectionClosed)
	assert.ErrorIs(t, p.Send(ctx, protocol.UnregisterDescription{MsgID: 1}), ErrConnectionClosed)
}
