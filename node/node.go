package node

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/BaSui01/oef-go/internal/channel"
	"github.com/BaSui01/oef-go/internal/metrics"
	"github.com/BaSui01/oef-go/protocol"
	"github.com/BaSui01/oef-go/schema"
)

// relay is a SendMessage waiting in the intake queue.
type relay struct {
	origin string
	msg    protocol.SendMessage
	link   trace.SpanContext
}

// LocalNode is an in-process OEF node. It is safe for concurrent use.
// Messages between agents are relayed by Run, which must be running for
// deliveries to happen.
type LocalNode struct {
	mu       sync.RWMutex
	agents   map[string]*schema.Description
	services map[string][]*schema.Description

	mbMu      sync.RWMutex
	mailboxes map[string]*Mailbox

	intake *channel.Unbounded[relay]

	logger        *zap.Logger
	metrics       *metrics.Collector
	tracer        trace.Tracer
	warnThreshold int
}

// New creates an empty LocalNode.
func New(opts ...Option) *LocalNode {
	n := &LocalNode{
		agents:    make(map[string]*schema.Description),
		services:  make(map[string][]*schema.Description),
		mailboxes: make(map[string]*Mailbox),
		intake:    channel.NewUnbounded[relay](),
		logger:    zap.NewNop(),
		tracer:    defaultTracer(),
	}
	for _, opt := range opts {
		opt(n)
	}
	n.logger = n.logger.With(zap.String("component", "local_node"))
	return n
}

// Connect attaches id to the node and returns its mailbox. It returns false
// if id is already connected.
func (n *LocalNode) Connect(id string) (*Mailbox, bool) {
	n.mbMu.Lock()
	defer n.mbMu.Unlock()

	if _, ok := n.mailboxes[id]; ok {
		n.logger.Warn("public key already in use", zap.String("agent", id))
		return nil, false
	}
	mb := newMailbox(id)
	n.mailboxes[id] = mb
	n.metrics.SetMailboxes(len(n.mailboxes))
	n.logger.Debug("agent connected", zap.String("agent", id))
	return mb, true
}

// Disconnect closes and removes the mailbox of id. Directory entries are
// kept. Disconnecting an unknown id does nothing.
func (n *LocalNode) Disconnect(id string) {
	n.mbMu.Lock()
	mb, ok := n.mailboxes[id]
	if ok {
		delete(n.mailboxes, id)
		n.metrics.SetMailboxes(len(n.mailboxes))
	}
	n.mbMu.Unlock()

	if ok {
		mb.close()
		n.logger.Debug("agent disconnected", zap.String("agent", id))
	}
}

// Release disconnects the owner of mb if mb is still its current mailbox.
// A connection that was evicted and then reclaimed under the same id is
// left alone.
func (n *LocalNode) Release(mb *Mailbox) {
	n.mbMu.Lock()
	current, ok := n.mailboxes[mb.id]
	ok = ok && current == mb
	if ok {
		delete(n.mailboxes, mb.id)
		n.metrics.SetMailboxes(len(n.mailboxes))
	}
	n.mbMu.Unlock()

	if ok {
		mb.close()
		n.logger.Debug("agent disconnected", zap.String("agent", mb.id))
	}
}

// Connected reports whether id currently has a mailbox.
func (n *LocalNode) Connected(id string) bool {
	n.mbMu.RLock()
	defer n.mbMu.RUnlock()
	_, ok := n.mailboxes[id]
	return ok
}

// Submit decodes an envelope sent by origin and performs it. Registry
// failures are reported to origin as OEFError notifications; only
// transport-level problems are returned.
func (n *LocalNode) Submit(ctx context.Context, origin string, frame []byte) error {
	if !n.Connected(origin) {
		return fmt.Errorf("%w: %s", ErrNotConnected, origin)
	}
	msg, err := protocol.DecodeMessage(frame)
	if err != nil {
		return fmt.Errorf("node: decode envelope from %s: %w", origin, err)
	}
	return n.handle(ctx, origin, msg)
}

func (n *LocalNode) handle(ctx context.Context, origin string, msg protocol.Message) error {
	switch m := msg.(type) {
	case protocol.RegisterDescription:
		n.report(origin, m.MsgID, protocol.OpRegisterDescription, n.RegisterAgent(origin, m.Description))
	case protocol.RegisterService:
		n.report(origin, m.MsgID, protocol.OpRegisterService, n.RegisterService(origin, m.Description))
	case protocol.UnregisterDescription:
		n.report(origin, m.MsgID, protocol.OpUnregisterDescription, n.UnregisterAgent(origin))
	case protocol.UnregisterService:
		n.report(origin, m.MsgID, protocol.OpUnregisterService, n.UnregisterService(origin, m.Description))
	case protocol.SearchAgents:
		n.answer(origin, m.SearchID, n.SearchAgents(ctx, m.Query))
	case protocol.SearchServices:
		n.answer(origin, m.SearchID, n.SearchServices(ctx, m.Query))
	case protocol.SendMessage:
		return n.Send(ctx, origin, m)
	default:
		return fmt.Errorf("node: %w: %T", protocol.ErrUnknownPayload, msg)
	}
	return nil
}

func (n *LocalNode) report(origin string, msgID int32, op protocol.ErrorOperation, err error) {
	if err == nil {
		return
	}
	n.logger.Debug("registry operation failed",
		zap.String("agent", origin),
		zap.Stringer("operation", op),
		zap.Error(err),
	)
	n.deliver(origin, protocol.OEFError{AnswerID: msgID, Operation: op})
}

func (n *LocalNode) answer(origin string, searchID int32, agents []string) {
	if !n.deliver(origin, protocol.SearchResult{SearchID: searchID, Agents: agents}) {
		n.logger.Warn("search result not delivered",
			zap.String("agent", origin),
			zap.Int32("search_id", searchID),
		)
		n.metrics.RecordDropped("requester_gone")
	}
}

// Send queues msg from origin for relay by Run.
func (n *LocalNode) Send(ctx context.Context, origin string, msg protocol.SendMessage) error {
	if err := protocol.ValidateBody(msg.Body); err != nil {
		return fmt.Errorf("node: %w", err)
	}
	r := relay{origin: origin, msg: msg, link: trace.SpanContextFromContext(ctx)}
	if !n.intake.Push(r) {
		return ErrClosed
	}
	return nil
}

// Run relays queued messages until ctx is done or the node is closed. It
// must have exactly one caller at a time. A relay in progress is always
// completed before Run observes cancellation.
func (n *LocalNode) Run(ctx context.Context) error {
	n.logger.Info("local node running")
	defer n.logger.Info("local node stopped")

	for {
		r, err := n.intake.Pop(ctx)
		if err != nil {
			if errors.Is(err, channel.ErrClosed) {
				return nil
			}
			return err
		}
		n.relay(ctx, r)
	}
}

func (n *LocalNode) relay(ctx context.Context, r relay) {
	kind := protocol.BodyKind(r.msg.Body)
	opts := []trace.SpanStartOption{
		trace.WithAttributes(
			attribute.String("oef.origin", r.origin),
			attribute.String("oef.destination", r.msg.Destination),
			attribute.Int("oef.dialogue_id", int(r.msg.DialogueID)),
			attribute.String("oef.kind", kind),
		),
	}
	if r.link.IsValid() {
		opts = append(opts, trace.WithLinks(trace.Link{SpanContext: r.link}))
	}
	_, span := n.tracer.Start(ctx, "oef.node.relay", opts...)
	defer span.End()

	delivery := protocol.Delivery{
		MsgID:      r.msg.MsgID,
		DialogueID: r.msg.DialogueID,
		Origin:     r.origin,
		Body:       r.msg.Body,
	}
	if n.deliver(r.msg.Destination, delivery) {
		n.metrics.RecordRouted(kind)
		return
	}

	span.SetStatus(codes.Error, "destination not connected")
	bounce := protocol.DialogueError{
		AnswerID:   r.msg.MsgID,
		DialogueID: r.msg.DialogueID,
		Origin:     r.msg.Destination,
	}
	if n.deliver(r.origin, bounce) {
		n.logger.Debug("destination not connected, dialogue error sent",
			zap.String("origin", r.origin),
			zap.String("destination", r.msg.Destination),
			zap.Int32("dialogue_id", r.msg.DialogueID),
		)
		n.metrics.RecordRouted("dialogue_error")
		return
	}

	n.logger.Warn("message dropped, neither destination nor origin connected",
		zap.String("origin", r.origin),
		zap.String("destination", r.msg.Destination),
		zap.String("kind", kind),
	)
	n.metrics.RecordDropped("unknown_destination")
}

// deliver encodes msg into the mailbox of id. It returns false if id has no
// open mailbox.
func (n *LocalNode) deliver(id string, msg protocol.ServerMessage) bool {
	frame, err := protocol.EncodeServerMessage(msg)
	if err != nil {
		n.logger.Error("encode server message", zap.String("agent", id), zap.Error(err))
		n.metrics.RecordDropped("encode")
		return false
	}

	n.mbMu.RLock()
	mb, ok := n.mailboxes[id]
	n.mbMu.RUnlock()
	if !ok || !mb.push(frame) {
		return false
	}

	if t := n.warnThreshold; t > 0 {
		if backlog := mb.Len(); backlog >= t && backlog%t == 0 {
			n.logger.Warn("mailbox backlog growing",
				zap.String("agent", id),
				zap.Int("backlog", backlog),
			)
		}
	}
	return true
}

// Close closes every mailbox and makes Run return once the intake is
// drained. Messages still queued at that point are counted as dropped.
func (n *LocalNode) Close() {
	n.intake.Close()

	n.mbMu.Lock()
	boxes := n.mailboxes
	n.mailboxes = make(map[string]*Mailbox)
	n.metrics.SetMailboxes(0)
	n.mbMu.Unlock()

	for _, mb := range boxes {
		mb.close()
	}
}
