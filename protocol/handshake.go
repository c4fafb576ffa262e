package protocol

import (
	"fmt"
	"slices"

	"google.golang.org/protobuf/encoding/protowire"
)

// Handshake messages, in the order they are exchanged:
//
//	agent → node  ID{public_key=1}
//	node → agent  Phrase{phrase=1 | failure=2}
//	agent → node  Answer{answer=1}
//	node → agent  Connected{status=1}

func EncodeClientID(publicKey string) []byte {
	return appendStringField(nil, 1, publicKey)
}

func DecodeClientID(b []byte) (string, error) {
	return decodeSingleString(b, "public key")
}

// EncodePhrase sends the challenge phrase.
func EncodePhrase(phrase string) []byte {
	return appendStringField(nil, 1, phrase)
}

// EncodePhraseFailure refuses the connection at the challenge step.
func EncodePhraseFailure() []byte {
	return appendMessage(nil, 2, emptyMessage)
}

// DecodePhrase returns the challenge phrase, or ok == false when the node
// refused the identifier.
func DecodePhrase(b []byte) (phrase string, ok bool, err error) {
	var seen bool
	err = walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			s, n, err := consumeString(num, typ, b)
			phrase, ok, seen = s, true, true
			return n, err
		case 2:
			_, n, err := consumeBytes(num, typ, b)
			phrase, ok, seen = "", false, true
			return n, err
		}
		return 0, nil
	})
	if err == nil && !seen {
		err = fmt.Errorf("%w: phrase", ErrUnknownPayload)
	}
	return phrase, ok, err
}

func EncodeAnswer(answer string) []byte {
	return appendStringField(nil, 1, answer)
}

func DecodeAnswer(b []byte) (string, error) {
	return decodeSingleString(b, "answer")
}

func EncodeConnected(status bool) []byte {
	return appendBoolField(nil, 1, status)
}

func DecodeConnected(b []byte) (bool, error) {
	var status bool
	err := walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num != 1 {
			return 0, nil
		}
		v, n, err := consumeVarint(num, typ, b)
		status = protowire.DecodeBool(v)
		return n, err
	})
	return status, err
}

// ReversePhrase computes the answer to a challenge phrase.
func ReversePhrase(phrase string) string {
	r := []rune(phrase)
	slices.Reverse(r)
	return string(r)
}

func decodeSingleString(b []byte, what string) (string, error) {
	var (
		s    string
		seen bool
	)
	err := walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num != 1 {
			return 0, nil
		}
		v, n, err := consumeString(num, typ, b)
		s, seen = v, true
		return n, err
	})
	if err == nil && !seen {
		err = fmt.Errorf("%w: missing %s", ErrMalformed, what)
	}
	return s, err
}
