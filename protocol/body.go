package protocol

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/BaSui01/oef-go/query"
	"github.com/BaSui01/oef-go/schema"
)

// The agent message layout is shared by outbound SendMessage and inbound
// Delivery: {dialogue_id=1, peer=2, content=3 | fipa=4}, where peer is the
// destination or the origin depending on direction.
//
// Fipa{target=1, cfp=2 | propose=3 | accept=4 | decline=5}
// Cfp{nothing=1 | query=2 | content=3}
// Propose{proposals=1 {objects=1 repeated Instance} | content=2}

// ValidateBody reports whether body can be encoded.
func ValidateBody(body Body) error {
	switch b := body.(type) {
	case Content, Accept, Decline:
		return nil
	case CFP:
		switch p := b.Query.(type) {
		case nil, RawPayload:
			return nil
		case QueryPayload:
			if p.Query == nil {
				return fmt.Errorf("%w: cfp query", ErrNilPayload)
			}
			return nil
		default:
			return fmt.Errorf("%w: cfp payload %T", ErrUnknownPayload, p)
		}
	case Propose:
		switch p := b.Proposals.(type) {
		case RawPayload:
			return nil
		case Proposals:
			for _, d := range p {
				if d == nil || d.Model == nil {
					return fmt.Errorf("%w: proposal", ErrNilPayload)
				}
			}
			return nil
		case nil:
			return fmt.Errorf("%w: propose payload", ErrNilPayload)
		default:
			return fmt.Errorf("%w: propose payload %T", ErrUnknownPayload, p)
		}
	case nil:
		return fmt.Errorf("%w: body", ErrNilPayload)
	default:
		return fmt.Errorf("%w: body %T", ErrUnknownPayload, body)
	}
}

func appendAgentMessage(b []byte, dialogueID int32, peer string, body Body) []byte {
	b = appendInt32Field(b, 1, dialogueID)
	b = appendStringField(b, 2, peer)

	switch m := body.(type) {
	case Content:
		return appendBytesField(b, 3, m.Data)
	case CFP:
		return appendFipa(b, m.Target, 2, func(b []byte) []byte {
			switch p := m.Query.(type) {
			case RawPayload:
				return appendBytesField(b, 3, p)
			case QueryPayload:
				return appendMessage(b, 2, func(b []byte) []byte { return appendQuery(b, p.Query) })
			default:
				return appendMessage(b, 1, emptyMessage)
			}
		})
	case Propose:
		return appendFipa(b, m.Target, 3, func(b []byte) []byte {
			switch p := m.Proposals.(type) {
			case RawPayload:
				return appendBytesField(b, 2, p)
			case Proposals:
				return appendMessage(b, 1, func(b []byte) []byte {
					for _, d := range p {
						b = appendMessage(b, 1, func(b []byte) []byte { return appendDescription(b, d) })
					}
					return b
				})
			default:
				return b
			}
		})
	case Accept:
		return appendFipa(b, m.Target, 4, emptyMessage)
	case Decline:
		return appendFipa(b, m.Target, 5, emptyMessage)
	default:
		return b
	}
}

func appendFipa(b []byte, target int32, kind protowire.Number, fn func([]byte) []byte) []byte {
	return appendMessage(b, 4, func(b []byte) []byte {
		b = appendInt32Field(b, 1, target)
		return appendMessage(b, kind, fn)
	})
}

func decodeAgentMessage(b []byte) (dialogueID int32, peer string, body Body, err error) {
	err = walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			v, n, err := consumeInt32(num, typ, b)
			dialogueID = v
			return n, err
		case 2:
			s, n, err := consumeString(num, typ, b)
			peer = s
			return n, err
		case 3:
			raw, n, err := consumeBytes(num, typ, b)
			body = Content{Data: cloneBytes(raw)}
			return n, err
		case 4:
			raw, n, err := consumeBytes(num, typ, b)
			if err != nil {
				return 0, err
			}
			body, err = decodeFipa(raw)
			return n, err
		}
		return 0, nil
	})
	if err == nil && body == nil {
		err = fmt.Errorf("%w: agent message", ErrUnknownPayload)
	}
	return dialogueID, peer, body, err
}

func decodeFipa(b []byte) (Body, error) {
	var (
		target int32
		kind   protowire.Number
		raw    []byte
	)
	err := walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == 1:
			v, n, err := consumeInt32(num, typ, b)
			target = v
			return n, err
		case num >= 2 && num <= 5:
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
	case 2:
		payload, err := decodeCFPPayload(raw)
		if err != nil {
			return nil, err
		}
		return CFP{Target: target, Query: payload}, nil
	case 3:
		payload, err := decodeProposePayload(raw)
		if err != nil {
			return nil, err
		}
		return Propose{Target: target, Proposals: payload}, nil
	case 4:
		return Accept{Target: target}, nil
	case 5:
		return Decline{Target: target}, nil
	default:
		return nil, fmt.Errorf("%w: fipa message", ErrUnknownPayload)
	}
}

func decodeCFPPayload(b []byte) (CFPPayload, error) {
	var (
		payload CFPPayload
		seen    bool
	)
	err := walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			_, n, err := consumeBytes(num, typ, b)
			payload, seen = nil, true
			return n, err
		case 2:
			raw, n, err := consumeBytes(num, typ, b)
			if err != nil {
				return 0, err
			}
			var q *query.Query
			q, err = decodeQuery(raw)
			payload, seen = QueryPayload{Query: q}, true
			return n, err
		case 3:
			raw, n, err := consumeBytes(num, typ, b)
			payload, seen = RawPayload(cloneBytes(raw)), true
			return n, err
		}
		return 0, nil
	})
	if err == nil && !seen {
		err = fmt.Errorf("%w: cfp payload", ErrUnknownPayload)
	}
	return payload, err
}

func decodeProposePayload(b []byte) (ProposePayload, error) {
	var payload ProposePayload
	err := walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			raw, n, err := consumeBytes(num, typ, b)
			if err != nil {
				return 0, err
			}
			var proposals Proposals
			err = walk(raw, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
				if num != 1 {
					return 0, nil
				}
				inst, n, err := consumeBytes(num, typ, b)
				if err != nil {
					return 0, err
				}
				var d *schema.Description
				d, err = decodeDescription(inst)
				proposals = append(proposals, d)
				return n, err
			})
			payload = proposals
			return n, err
		case 2:
			raw, n, err := consumeBytes(num, typ, b)
			payload = RawPayload(cloneBytes(raw))
			return n, err
		}
		return 0, nil
	})
	if err == nil && payload == nil {
		err = fmt.Errorf("%w: propose payload", ErrUnknownPayload)
	}
	return payload, err
}
