package dialogue

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/BaSui01/oef-go/protocol"
)

// Key identifies a dialogue from one agent's point of view.
type Key struct {
	Peer string
	ID   int32
}

func (k Key) String() string { return fmt.Sprintf("%s/%d", k.Peer, k.ID) }

// Status is the lifecycle of a SingleDialogue.
type Status int

const (
	StatusUnopened Status = iota
	StatusOpen
	StatusClosed
)

func (s Status) String() string {
	switch s {
	case StatusUnopened:
		return "unopened"
	case StatusOpen:
		return "open"
	case StatusClosed:
		return "closed"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Handler receives the messages of one dialogue. The peer and dialogue id
// are implied by the dialogue.
type Handler interface {
	OnMessage(msgID int32, content []byte) error
	OnCFP(msgID, target int32, query protocol.CFPPayload) error
	OnPropose(msgID, target int32, proposals protocol.ProposePayload) error
	OnAccept(msgID, target int32) error
	OnDecline(msgID, target int32) error
	OnDialogueError(answerID int32) error
}

// SingleDialogue is one negotiation with one peer.
type SingleDialogue struct {
	agent     *Agent
	key       Key
	initiator bool
	handler   Handler

	mu     sync.Mutex
	status Status
}

func (d *SingleDialogue) Key() Key     { return d.key }
func (d *SingleDialogue) Peer() string { return d.key.Peer }
func (d *SingleDialogue) ID() int32    { return d.key.ID }

// Initiator reports whether this side drew the dialogue id.
func (d *SingleDialogue) Initiator() bool { return d.initiator }

func (d *SingleDialogue) Status() Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.status
}

// open moves an unopened dialogue to Open. It fails once the dialogue is
// closed.
func (d *SingleDialogue) open() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	switch d.status {
	case StatusClosed:
		return fmt.Errorf("%w: %s", ErrDialogueClosed, d.key)
	case StatusUnopened:
		d.status = StatusOpen
	}
	return nil
}

// Close unregisters the dialogue from its agent. Closing twice is a no-op.
func (d *SingleDialogue) Close() error {
	if d.Status() == StatusClosed {
		return nil
	}
	return d.agent.Unregister(d)
}

func (d *SingleDialogue) markClosed() {
	d.mu.Lock()
	d.status = StatusClosed
	d.mu.Unlock()
}

// =============================================================================
// Outbound
// =============================================================================

func (d *SingleDialogue) SendMessage(ctx context.Context, msgID int32, content []byte) error {
	if err := d.open(); err != nil {
		return err
	}
	return d.agent.SendMessage(ctx, msgID, d.key.ID, d.key.Peer, content)
}

func (d *SingleDialogue) SendCFP(ctx context.Context, msgID, target int32, query protocol.CFPPayload) error {
	if err := d.open(); err != nil {
		return err
	}
	return d.agent.SendCFP(ctx, msgID, d.key.ID, d.key.Peer, target, query)
}

func (d *SingleDialogue) SendPropose(ctx context.Context, msgID, target int32, proposals protocol.ProposePayload) error {
	if err := d.open(); err != nil {
		return err
	}
	return d.agent.SendPropose(ctx, msgID, d.key.ID, d.key.Peer, target, proposals)
}

func (d *SingleDialogue) SendAccept(ctx context.Context, msgID, target int32) error {
	if err := d.open(); err != nil {
		return err
	}
	return d.agent.SendAccept(ctx, msgID, d.key.ID, d.key.Peer, target)
}

func (d *SingleDialogue) SendDecline(ctx context.Context, msgID, target int32) error {
	if err := d.open(); err != nil {
		return err
	}
	return d.agent.SendDecline(ctx, msgID, d.key.ID, d.key.Peer, target)
}

// =============================================================================
// Inbound
// =============================================================================

// receive opens the dialogue and hands the message to fn. Messages for a
// dialogue closed concurrently are dropped.
func (d *SingleDialogue) receive(kind string, fn func(Handler) error) error {
	if err := d.open(); err != nil {
		d.agent.Logger().Debug("message for closed dialogue dropped",
			zap.Stringer("dialogue", d.key), zap.String("kind", kind))
		return nil
	}
	return fn(d.handler)
}

// =============================================================================
// Default handler
// =============================================================================

// LoggingHandler implements Handler by logging every message at warn
// level. Embed it to handle only some messages.
type LoggingHandler struct {
	Logger *zap.Logger
}

func (h LoggingHandler) warn(handler string, fields ...zap.Field) error {
	logger := h.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Warn("dialogue handler not implemented", append([]zap.Field{zap.String("handler", handler)}, fields...)...)
	return nil
}

func (h LoggingHandler) OnMessage(msgID int32, content []byte) error {
	return h.warn("OnMessage", zap.Int32("msg_id", msgID), zap.Int("size", len(content)))
}

func (h LoggingHandler) OnCFP(msgID, target int32, _ protocol.CFPPayload) error {
	return h.warn("OnCFP", zap.Int32("msg_id", msgID), zap.Int32("target", target))
}

func (h LoggingHandler) OnPropose(msgID, target int32, _ protocol.ProposePayload) error {
	return h.warn("OnPropose", zap.Int32("msg_id", msgID), zap.Int32("target", target))
}

func (h LoggingHandler) OnAccept(msgID, target int32) error {
	return h.warn("OnAccept", zap.Int32("msg_id", msgID), zap.Int32("target", target))
}

func (h LoggingHandler) OnDecline(msgID, target int32) error {
	return h.warn("OnDecline", zap.Int32("msg_id", msgID), zap.Int32("target", target))
}

func (h LoggingHandler) OnDialogueError(answerID int32) error {
	return h.warn("OnDialogueError", zap.Int32("answer_id", answerID))
}
