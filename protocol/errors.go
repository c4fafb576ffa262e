package protocol

import "errors"

var (
	ErrMalformed      = errors.New("protocol: malformed message")
	ErrUnknownPayload = errors.New("protocol: unknown payload")
	ErrFrameTooLarge  = errors.New("protocol: frame too large")
	ErrNilPayload     = errors.New("protocol: nil payload")
)
