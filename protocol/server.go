package protocol

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Server message field numbers.
const (
	srvAnswerID      = 1
	srvContent       = 2
	srvAgents        = 3
	srvOEFError      = 4
	srvDialogueError = 5
)

// EncodeServerMessage builds the notification for m.
func EncodeServerMessage(m ServerMessage) ([]byte, error) {
	switch msg := m.(type) {
	case SearchResult:
		b := appendInt32Field(nil, srvAnswerID, msg.SearchID)
		return appendMessage(b, srvAgents, func(b []byte) []byte {
			for _, id := range msg.Agents {
				b = appendStringField(b, 1, id)
			}
			return b
		}), nil
	case OEFError:
		b := appendInt32Field(nil, srvAnswerID, msg.AnswerID)
		return appendMessage(b, srvOEFError, func(b []byte) []byte {
			return appendVarintField(b, 1, uint64(msg.Operation))
		}), nil
	case DialogueError:
		b := appendInt32Field(nil, srvAnswerID, msg.AnswerID)
		return appendMessage(b, srvDialogueError, func(b []byte) []byte {
			b = appendInt32Field(b, 1, msg.DialogueID)
			return appendStringField(b, 2, msg.Origin)
		}), nil
	case Delivery:
		if err := ValidateBody(msg.Body); err != nil {
			return nil, err
		}
		b := appendInt32Field(nil, srvAnswerID, msg.MsgID)
		return appendMessage(b, srvContent, func(b []byte) []byte {
			return appendAgentMessage(b, msg.DialogueID, msg.Origin, msg.Body)
		}), nil
	case nil:
		return nil, ErrNilPayload
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownPayload, m)
	}
}

// DecodeServerMessage parses a notification sent by a node.
func DecodeServerMessage(b []byte) (ServerMessage, error) {
	var (
		answerID int32
		kind     protowire.Number
		raw      []byte
	)
	err := walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == srvAnswerID:
			v, n, err := consumeInt32(num, typ, b)
			answerID = v
			return n, err
		case num >= srvContent && num <= srvDialogueError:
			v, n, err := consumeBytes(num, typ, b)
			kind, raw = num, v
			return n, err
		}
		return 0, nil
	})
	if err != nil {
		return nil, err
	}

	switch kind {
	case srvAgents:
		agents, err := decodeAgentList(raw)
		if err != nil {
			return nil, err
		}
		return SearchResult{SearchID: answerID, Agents: agents}, nil
	case srvOEFError:
		var op ErrorOperation
		err := walk(raw, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
			if num != 1 {
				return 0, nil
			}
			v, n, err := consumeVarint(num, typ, b)
			op = ErrorOperation(v)
			return n, err
		})
		if err != nil {
			return nil, err
		}
		return OEFError{AnswerID: answerID, Operation: op}, nil
	case srvDialogueError:
		msg := DialogueError{AnswerID: answerID}
		err := walk(raw, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
			switch num {
			case 1:
				v, n, err := consumeInt32(num, typ, b)
				msg.DialogueID = v
				return n, err
			case 2:
				s, n, err := consumeString(num, typ, b)
				msg.Origin = s
				return n, err
			}
			return 0, nil
		})
		if err != nil {
			return nil, err
		}
		return msg, nil
	case srvContent:
		dialogueID, origin, body, err := decodeAgentMessage(raw)
		if err != nil {
			return nil, err
		}
		return Delivery{MsgID: answerID, DialogueID: dialogueID, Origin: origin, Body: body}, nil
	default:
		return nil, fmt.Errorf("%w: server message", ErrUnknownPayload)
	}
}

func decodeAgentList(b []byte) ([]string, error) {
	var agents []string
	err := walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num != 1 {
			return 0, nil
		}
		s, n, err := consumeString(num, typ, b)
		agents = append(agents, s)
		return n, err
	})
	return agents, err
}
