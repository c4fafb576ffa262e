package protocol

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/BaSui01/oef-go/query"
	"github.com/BaSui01/oef-go/schema"
)

// Envelope field numbers.
const (
	envMsgID                 = 1
	envSendMessage           = 2
	envRegisterService       = 3
	envUnregisterService     = 4
	envRegisterDescription   = 5
	envUnregisterDescription = 6
	envSearchServices        = 7
	envSearchAgents          = 8
)

// EncodeMessage builds the envelope for m.
func EncodeMessage(m Message) ([]byte, error) {
	if m == nil {
		return nil, ErrNilPayload
	}
	b := appendInt32Field(nil, envMsgID, m.ID())

	switch msg := m.(type) {
	case RegisterDescription:
		return appendAgentDescription(b, envRegisterDescription, msg.Description)
	case RegisterService:
		return appendAgentDescription(b, envRegisterService, msg.Description)
	case UnregisterService:
		return appendAgentDescription(b, envUnregisterService, msg.Description)
	case UnregisterDescription:
		return appendMessage(b, envUnregisterDescription, emptyMessage), nil
	case SearchAgents:
		return appendAgentSearch(b, envSearchAgents, msg.Query)
	case SearchServices:
		return appendAgentSearch(b, envSearchServices, msg.Query)
	case SendMessage:
		if err := ValidateBody(msg.Body); err != nil {
			return nil, err
		}
		return appendMessage(b, envSendMessage, func(b []byte) []byte {
			return appendAgentMessage(b, msg.DialogueID, msg.Destination, msg.Body)
		}), nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownPayload, m)
	}
}

// AgentDescription{description=1}
func appendAgentDescription(b []byte, num protowire.Number, d *schema.Description) ([]byte, error) {
	if d == nil || d.Model == nil {
		return nil, fmt.Errorf("%w: description", ErrNilPayload)
	}
	return appendMessage(b, num, func(b []byte) []byte {
		return appendMessage(b, 1, func(b []byte) []byte { return appendDescription(b, d) })
	}), nil
}

// AgentSearch{query=1}
func appendAgentSearch(b []byte, num protowire.Number, q *query.Query) ([]byte, error) {
	if q == nil {
		return nil, fmt.Errorf("%w: query", ErrNilPayload)
	}
	return appendMessage(b, num, func(b []byte) []byte {
		return appendMessage(b, 1, func(b []byte) []byte { return appendQuery(b, q) })
	}), nil
}

// DecodeMessage parses an envelope sent by an agent.
func DecodeMessage(b []byte) (Message, error) {
	var (
		msgID int32
		kind  protowire.Number
		raw   []byte
	)
	err := walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == envMsgID:
			v, n, err := consumeInt32(num, typ, b)
			msgID = v
			return n, err
		case num >= envSendMessage && num <= envSearchAgents:
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
	case envRegisterDescription:
		d, err := decodeAgentDescription(raw)
		if err != nil {
			return nil, err
		}
		return RegisterDescription{MsgID: msgID, Description: d}, nil
	case envRegisterService:
		d, err := decodeAgentDescription(raw)
		if err != nil {
			return nil, err
		}
		return RegisterService{MsgID: msgID, Description: d}, nil
	case envUnregisterService:
		d, err := decodeAgentDescription(raw)
		if err != nil {
			return nil, err
		}
		return UnregisterService{MsgID: msgID, Description: d}, nil
	case envUnregisterDescription:
		return UnregisterDescription{MsgID: msgID}, nil
	case envSearchAgents:
		q, err := decodeAgentSearch(raw)
		if err != nil {
			return nil, err
		}
		return SearchAgents{SearchID: msgID, Query: q}, nil
	case envSearchServices:
		q, err := decodeAgentSearch(raw)
		if err != nil {
			return nil, err
		}
		return SearchServices{SearchID: msgID, Query: q}, nil
	case envSendMessage:
		dialogueID, dest, body, err := decodeAgentMessage(raw)
		if err != nil {
			return nil, err
		}
		return SendMessage{MsgID: msgID, DialogueID: dialogueID, Destination: dest, Body: body}, nil
	default:
		return nil, fmt.Errorf("%w: envelope", ErrUnknownPayload)
	}
}

func decodeAgentDescription(b []byte) (*schema.Description, error) {
	var d *schema.Description
	err := walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num != 1 {
			return 0, nil
		}
		raw, n, err := consumeBytes(num, typ, b)
		if err != nil {
			return 0, err
		}
		d, err = decodeDescription(raw)
		return n, err
	})
	if err == nil && d == nil {
		err = fmt.Errorf("%w: missing description", ErrMalformed)
	}
	return d, err
}

func decodeAgentSearch(b []byte) (*query.Query, error) {
	var q *query.Query
	err := walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num != 1 {
			return 0, nil
		}
		raw, n, err := consumeBytes(num, typ, b)
		if err != nil {
			return 0, err
		}
		q, err = decodeQuery(raw)
		return n, err
	})
	if err == nil && q == nil {
		err = fmt.Errorf("%w: missing query", ErrMalformed)
	}
	return q, err
}
