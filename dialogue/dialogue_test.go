package dialogue

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/BaSui01/oef-go/agent"
	"github.com/BaSui01/oef-go/node"
	"github.com/BaSui01/oef-go/protocol"
	"github.com/BaSui01/oef-go/testutil"
	"github.com/BaSui01/oef-go/testutil/fixtures"
)

func runNode(t *testing.T) *node.LocalNode {
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

func localAgent(t *testing.T, n *node.LocalNode, id string) *agent.Agent {
	t.Helper()
	a := agent.NewLocalAgent(id, n, agent.WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, a.Connect(testutil.TestContext(t)))
	t.Cleanup(func() { _ = a.Disconnect(context.Background()) })
	return a
}

// recorder is a dialogue Handler that logs every message it receives.
type recorder struct {
	mu      sync.Mutex
	entries []string
}

func (r *recorder) add(format string, args ...any) error {
	r.mu.Lock()
	r.entries = append(r.entries, fmt.Sprintf(format, args...))
	r.mu.Unlock()
	return nil
}

func (r *recorder) get() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.entries...)
}

func (r *recorder) OnMessage(msgID int32, content []byte) error {
	return r.add("message %d %s", msgID, content)
}

func (r *recorder) OnCFP(msgID, target int32, _ protocol.CFPPayload) error {
	return r.add("cfp %d %d", msgID, target)
}

func (r *recorder) OnPropose(msgID, target int32, _ protocol.ProposePayload) error {
	return r.add("propose %d %d", msgID, target)
}

func (r *recorder) OnAccept(msgID, target int32) error  { return r.add("accept %d %d", msgID, target) }
func (r *recorder) OnDecline(msgID, target int32) error { return r.add("decline %d %d", msgID, target) }
func (r *recorder) OnDialogueError(answerID int32) error {
	return r.add("error %d", answerID)
}

// responder joins every dialogue a peer opens and records it in rec.
type responder struct {
	agent *Agent
	rec   *recorder
}

func (s *responder) OnNewMessage(_, dialogueID int32, origin string, _ []byte) error {
	_, err := s.agent.Join(origin, dialogueID, s.rec)
	return err
}

func (s *responder) OnNewCFP(_, dialogueID int32, origin string, _ int32, _ protocol.CFPPayload) error {
	_, err := s.agent.Join(origin, dialogueID, s.rec)
	return err
}

func newResponder(base *agent.Agent) (*Agent, *recorder) {
	s := &responder{rec: &recorder{}}
	s.agent = NewAgent(base, s)
	return s.agent, s.rec
}

func startLoop(t *testing.T, run func(context.Context) error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

// --- registry ---

func TestOpen_FreshInitiatorDialogue(t *testing.T) {
	da := NewAgent(agent.NewLocalAgent("alice", node.New()), nil)

	d := da.Open("bob", nil)
	assert.True(t, d.Initiator())
	assert.Equal(t, "bob", d.Peer())
	assert.GreaterOrEqual(t, d.ID(), int32(0))
	assert.Equal(t, StatusUnopened, d.Status())

	got, ok := da.Lookup(d.Key())
	require.True(t, ok)
	assert.Same(t, d, got)
}

func TestRegister_Duplicate(t *testing.T) {
	da := NewAgent(agent.NewLocalAgent("alice", node.New()), nil)

	d, err := da.Join("bob", 7, nil)
	require.NoError(t, err)
	assert.False(t, d.Initiator())

	_, err = da.Join("bob", 7, nil)
	assert.ErrorIs(t, err, ErrDialogueExists)

	_, err = da.Join("carol", 7, nil)
	assert.NoError(t, err)
	assert.Equal(t, 2, da.Len())
}

func TestUnregister(t *testing.T) {
	da := NewAgent(agent.NewLocalAgent("alice", node.New()), nil)
	d, err := da.Join("bob", 1, nil)
	require.NoError(t, err)

	require.NoError(t, da.Unregister(d))
	assert.Equal(t, StatusClosed, d.Status())
	_, ok := da.Lookup(d.Key())
	assert.False(t, ok)

	assert.ErrorIs(t, da.Unregister(d), ErrDialogueNotFound)
	assert.NoError(t, d.Close())
}

func TestSendOnClosedDialogue(t *testing.T) {
	da := NewAgent(agent.NewLocalAgent("alice", node.New()), nil)
	d := da.Open("bob", nil)
	require.NoError(t, d.Close())

	err := d.SendMessage(context.Background(), 0, []byte("x"))
	assert.ErrorIs(t, err, ErrDialogueClosed)
}

// --- routing ---

func TestFirstMessageMustOpenDialogue(t *testing.T) {
	da, _ := newResponder(agent.NewLocalAgent("alice", node.New()))

	err := da.OnPropose(1, 9, "bob", 0, protocol.RawPayload("p"))
	assert.ErrorIs(t, err, ErrDialogueNotFound)
	err = da.OnAccept(1, 9, "bob", 0)
	assert.ErrorIs(t, err, ErrDialogueNotFound)
	err = da.OnDecline(1, 9, "bob", 0)
	assert.ErrorIs(t, err, ErrDialogueNotFound)
	assert.Zero(t, da.Len())
}

func TestNewSessionHookThenDelivery(t *testing.T) {
	da, rec := newResponder(agent.NewLocalAgent("alice", node.New()))

	require.NoError(t, da.OnMessage(0, 3, "bob", []byte("hi")))
	require.NoError(t, da.OnMessage(1, 3, "bob", []byte("again")))

	assert.Equal(t, []string{"message 0 hi", "message 1 again"}, rec.get())
	d, ok := da.Lookup(Key{Peer: "bob", ID: 3})
	require.True(t, ok)
	assert.Equal(t, StatusOpen, d.Status())
}

func TestUnknownKeyWithoutHookIsLogged(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	base := agent.NewLocalAgent("alice", node.New(), agent.WithLogger(zap.New(core)))
	da := NewAgent(base, nil)

	require.NoError(t, da.OnMessage(0, 3, "bob", []byte("hi")))
	require.NoError(t, da.OnCFP(0, 4, "bob", 0, nil))
	assert.Equal(t, 2, logs.FilterMessage("handler not implemented").Len())
	assert.Zero(t, da.Len())
}

func TestDialogueErrorRoutedToSession(t *testing.T) {
	da := NewAgent(agent.NewLocalAgent("alice", node.New()), nil)
	rec := &recorder{}
	d := da.Open("bob", rec)

	require.NoError(t, da.OnDialogueError(5, d.ID(), "bob"))
	require.NoError(t, da.OnDialogueError(6, d.ID()+1, "bob"))
	assert.Equal(t, []string{"error 5"}, rec.get())
}

func TestCorrelation_CFPProposeAccept(t *testing.T) {
	n := runNode(t)
	ctx := testutil.TestContext(t)

	buyer := localAgent(t, n, "buyer")
	seller, rec := newResponder(localAgent(t, n, "seller"))
	startLoop(t, func(ctx context.Context) error { return seller.Run(ctx, nil) })

	const dialogueID = 42
	require.NoError(t, buyer.SendCFP(ctx, 1, dialogueID, "seller", 0, nil))
	require.NoError(t, buyer.SendPropose(ctx, 2, dialogueID, "seller", 1, protocol.Proposals{fixtures.Priced(10)}))
	require.NoError(t, buyer.SendAccept(ctx, 3, dialogueID, "seller", 2))

	want := []string{"cfp 1 0", "propose 2 1", "accept 3 2"}
	assert.Eventually(t, func() bool { return assert.ObjectsAreEqual(want, rec.get()) }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, seller.Len())
}

func TestCorrelation_ProposeFirstStopsLoop(t *testing.T) {
	n := runNode(t)
	ctx := testutil.TestContext(t)

	buyer := localAgent(t, n, "buyer")
	seller, _ := newResponder(localAgent(t, n, "seller"))
	done := make(chan error, 1)
	go func() { done <- seller.Run(context.Background(), nil) }()
	require.Eventually(t, func() bool { return seller.State() == agent.StateRunning }, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, buyer.SendPropose(ctx, 2, 9, "seller", 1, protocol.RawPayload("p")))
	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrDialogueNotFound)
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not stop")
	}
}
