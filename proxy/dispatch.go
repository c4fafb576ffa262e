package proxy

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/BaSui01/oef-go/protocol"
)

// Handler receives the notifications a node sends to an agent. A non-nil
// error stops Loop and is returned from it.
type Handler interface {
	OnSearchResult(searchID int32, agents []string) error
	OnOEFError(answerID int32, op protocol.ErrorOperation) error
	OnDialogueError(answerID, dialogueID int32, origin string) error

	OnMessage(msgID, dialogueID int32, origin string, content []byte) error
	OnCFP(msgID, dialogueID int32, origin string, target int32, query protocol.CFPPayload) error
	OnPropose(msgID, dialogueID int32, origin string, target int32, proposals protocol.ProposePayload) error
	OnAccept(msgID, dialogueID int32, origin string, target int32) error
	OnDecline(msgID, dialogueID int32, origin string, target int32) error
}

// Dispatch calls the Handler method matching msg.
func Dispatch(msg protocol.ServerMessage, h Handler) error {
	switch m := msg.(type) {
	case protocol.SearchResult:
		return h.OnSearchResult(m.SearchID, m.Agents)
	case protocol.OEFError:
		return h.OnOEFError(m.AnswerID, m.Operation)
	case protocol.DialogueError:
		return h.OnDialogueError(m.AnswerID, m.DialogueID, m.Origin)
	case protocol.Delivery:
		switch b := m.Body.(type) {
		case protocol.Content:
			return h.OnMessage(m.MsgID, m.DialogueID, m.Origin, b.Data)
		case protocol.CFP:
			return h.OnCFP(m.MsgID, m.DialogueID, m.Origin, b.Target, b.Query)
		case protocol.Propose:
			return h.OnPropose(m.MsgID, m.DialogueID, m.Origin, b.Target, b.Proposals)
		case protocol.Accept:
			return h.OnAccept(m.MsgID, m.DialogueID, m.Origin, b.Target)
		case protocol.Decline:
			return h.OnDecline(m.MsgID, m.DialogueID, m.Origin, b.Target)
		default:
			return fmt.Errorf("%w: body %T", protocol.ErrUnknownPayload, m.Body)
		}
	default:
		return fmt.Errorf("%w: server message %T", protocol.ErrUnknownPayload, msg)
	}
}

// Loop receives from p and dispatches to h until ctx is done, the
// connection closes or a handler fails. Frames that cannot be decoded are
// logged and skipped. A closed connection ends the loop with a nil error.
func Loop(ctx context.Context, p Proxy, h Handler, opts ...Option) error {
	o := buildOptions(opts)
	logger := o.logger.With(
		zap.String("component", "dispatch_loop"),
		zap.String("agent", p.PublicKey()),
	)

	for {
		frame, err := p.Receive(ctx)
		if err != nil {
			if errors.Is(err, ErrConnectionClosed) {
				logger.Debug("connection closed, dispatch loop exiting")
				return nil
			}
			return err
		}

		msg, err := protocol.DecodeServerMessage(frame)
		if err != nil {
			logger.Warn("dropping undecodable message", zap.Int("size", len(frame)), zap.Error(err))
			o.metrics.RecordDropped("malformed")
			continue
		}

		kind := protocol.ServerMessageKind(msg)
		o.metrics.RecordDispatch(kind)
		if err := Dispatch(msg, h); err != nil {
			if errors.Is(err, protocol.ErrUnknownPayload) {
				logger.Warn("dropping message of unknown kind", zap.String("kind", kind), zap.Error(err))
				continue
			}
			return fmt.Errorf("proxy: %s handler: %w", kind, err)
		}
	}
}
