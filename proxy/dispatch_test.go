package proxy

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/oef-go/internal/channel"
	"github.com/BaSui01/oef-go/internal/metrics"
	"github.com/BaSui01/oef-go/protocol"
	"github.com/BaSui01/oef-go/testutil/fixtures"
	"github.com/BaSui01/oef-go/testutil/mocks"
)

func TestDispatch(t *testing.T) {
	cfp := protocol.QueryPayload{Query: fixtures.TemperatureQuery()}
	proposals := protocol.Proposals{fixtures.Priced(30)}

	tests := []struct {
		name string
		msg  protocol.ServerMessage
		want mocks.Event
	}{
		{
			name: "search result",
			msg:  protocol.SearchResult{SearchID: 4, Agents: []string{"a", "b"}},
			want: mocks.Event{Kind: "search_result", ID: 4, Agents: []string{"a", "b"}},
		},
		{
			name: "oef error",
			msg:  protocol.OEFError{AnswerID: 2, Operation: protocol.OpUnregisterService},
			want: mocks.Event{Kind: "oef_error", ID: 2, Operation: protocol.OpUnregisterService},
		},
		{
			name: "dialogue error",
			msg:  protocol.DialogueError{AnswerID: 1, DialogueID: 7, Origin: "bob"},
			want: mocks.Event{Kind: "dialogue_error", ID: 1, DialogueID: 7, Origin: "bob"},
		},
		{
			name: "content",
			msg:  protocol.Delivery{MsgID: 0, DialogueID: 0, Origin: "alice", Body: protocol.Content{Data: []byte("hello")}},
			want: mocks.Event{Kind: "content", Origin: "alice", Content: []byte("hello")},
		},
		{
			name: "cfp",
			msg:  protocol.Delivery{MsgID: 1, DialogueID: 3, Origin: "alice", Body: protocol.CFP{Target: 0, Query: cfp}},
			want: mocks.Event{Kind: "cfp", ID: 1, DialogueID: 3, Origin: "alice", CFP: cfp},
		},
		{
			name: "propose",
			msg:  protocol.Delivery{MsgID: 2, DialogueID: 3, Origin: "bob", Body: protocol.Propose{Target: 1, Proposals: proposals}},
			want: mocks.Event{Kind: "propose", ID: 2, DialogueID: 3, Origin: "bob", Target: 1, Proposals: proposals},
		},
		{
			name: "accept",
			msg:  protocol.Delivery{MsgID: 3, DialogueID: 3, Origin: "alice", Body: protocol.Accept{Target: 2}},
			want: mocks.Event{Kind: "accept", ID: 3, DialogueID: 3, Origin: "alice", Target: 2},
		},
		{
			name: "decline",
			msg:  protocol.Delivery{MsgID: 3, DialogueID: 3, Origin: "alice", Body: protocol.Decline{Target: 2}},
			want: mocks.Event{Kind: "decline", ID: 3, DialogueID: 3, Origin: "alice", Target: 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := mocks.NewRecordingHandler()
			require.NoError(t, Dispatch(tt.msg, h))
			events := h.Events()
			require.Len(t, events, 1)
			assert.Equal(t, tt.want, events[0])
		})
	}
}

func TestDispatch_Unknown(t *testing.T) {
	h := mocks.NewRecordingHandler()
	err := Dispatch(nil, h)
	assert.ErrorIs(t, err, protocol.ErrUnknownPayload)

	err = Dispatch(protocol.Delivery{Origin: "alice"}, h)
	assert.ErrorIs(t, err, protocol.ErrUnknownPayload)
	assert.Empty(t, h.Events())
}

// queueProxy serves pre-encoded frames from a queue.
type queueProxy struct {
	frames *channel.Unbounded[[]byte]
}

func newQueueProxy() *queueProxy {
	return &queueProxy{frames: channel.NewUnbounded[[]byte]()}
}

func (p *queueProxy) push(t *testing.T, m protocol.ServerMessage) {
	t.Helper()
	b, err := protocol.EncodeServerMessage(m)
	require.NoError(t, err)
	p.frames.Push(b)
}

func (p *queueProxy) PublicKey() string                            { return "tester" }
func (p *queueProxy) Connect(context.Context) (bool, error)        { return true, nil }
func (p *queueProxy) Send(context.Context, protocol.Message) error { return nil }
func (p *queueProxy) Disconnect(context.Context) error             { p.frames.Close(); return nil }
func (p *queueProxy) State() State                                 { return StateConnected }

func (p *queueProxy) Receive(ctx context.Context) ([]byte, error) {
	b, err := p.frames.Pop(ctx)
	if errors.Is(err, channel.ErrClosed) {
		return nil, ErrConnectionClosed
	}
	return b, err
}

func TestLoop_SkipsMalformedAndEndsOnClose(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := metrics.NewCollector("oef", reg, zap.NewNop())

	p := newQueueProxy()
	p.frames.Push([]byte{0xff, 0xff, 0xff})
	p.push(t, protocol.SearchResult{SearchID: 1, Agents: []string{"a"}})
	p.frames.Close()

	h := mocks.NewRecordingHandler()
	require.NoError(t, Loop(context.Background(), p, h, WithMetrics(c)))

	events := h.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "search_result", events[0].Kind)

	n, err := promtest.GatherAndCount(reg, "oef_messages_dropped_total", "oef_dispatch_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestLoop_HandlerErrorStops(t *testing.T) {
	boom := errors.New("boom")
	p := newQueueProxy()
	p.push(t, protocol.OEFError{AnswerID: 1, Operation: protocol.OpRegisterService})
	p.push(t, protocol.SearchResult{SearchID: 2})

	h := mocks.NewRecordingHandler().WithError(func(e mocks.Event) error {
		if e.Kind == "oef_error" {
			return boom
		}
		return nil
	})

	err := Loop(context.Background(), p, h)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "oef_error handler")
	assert.Len(t, h.Events(), 1)
}

func TestLoop_ContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Loop(ctx, newQueueProxy(), mocks.NewRecordingHandler()) }()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not stop")
	}
}
