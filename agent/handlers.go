package agent

import (
	"go.uber.org/zap"

	"github.com/BaSui01/oef-go/protocol"
	"github.com/BaSui01/oef-go/proxy"
)

var _ proxy.Handler = (*Agent)(nil)

// The default handlers log that the notification went unhandled and
// return nil so the dispatch loop keeps running.

func (a *Agent) unhandled(handler string, fields ...zap.Field) error {
	a.logger.Warn("handler not implemented", append([]zap.Field{zap.String("handler", handler)}, fields...)...)
	return nil
}

func (a *Agent) OnSearchResult(searchID int32, agents []string) error {
	return a.unhandled("OnSearchResult", zap.Int32("search_id", searchID), zap.Strings("agents", agents))
}

func (a *Agent) OnOEFError(answerID int32, op protocol.ErrorOperation) error {
	return a.unhandled("OnOEFError", zap.Int32("answer_id", answerID), zap.Stringer("operation", op))
}

func (a *Agent) OnDialogueError(answerID, dialogueID int32, origin string) error {
	return a.unhandled("OnDialogueError",
		zap.Int32("answer_id", answerID),
		zap.Int32("dialogue_id", dialogueID),
		zap.String("origin", origin),
	)
}

func (a *Agent) OnMessage(msgID, dialogueID int32, origin string, content []byte) error {
	return a.unhandled("OnMessage", messageFields(msgID, dialogueID, origin, zap.Int("size", len(content)))...)
}

func (a *Agent) OnCFP(msgID, dialogueID int32, origin string, target int32, _ protocol.CFPPayload) error {
	return a.unhandled("OnCFP", messageFields(msgID, dialogueID, origin, zap.Int32("target", target))...)
}

func (a *Agent) OnPropose(msgID, dialogueID int32, origin string, target int32, _ protocol.ProposePayload) error {
	return a.unhandled("OnPropose", messageFields(msgID, dialogueID, origin, zap.Int32("target", target))...)
}

func (a *Agent) OnAccept(msgID, dialogueID int32, origin string, target int32) error {
	return a.unhandled("OnAccept", messageFields(msgID, dialogueID, origin, zap.Int32("target", target))...)
}

func (a *Agent) OnDecline(msgID, dialogueID int32, origin string, target int32) error {
	return a.unhandled("OnDecline", messageFields(msgID, dialogueID, origin, zap.Int32("target", target))...)
}

func messageFields(msgID, dialogueID int32, origin string, extra zap.Field) []zap.Field {
	return []zap.Field{
		zap.Int32("msg_id", msgID),
		zap.Int32("dialogue_id", dialogueID),
		zap.String("origin", origin),
		extra,
	}
}
