package proxy

import "errors"

var (
	// ErrNotConnected is returned by Send and Receive before Connect.
	ErrNotConnected = errors.New("proxy: not connected")

	// ErrIdentifierInUse reports a node refusing a public key that is
	// already connected.
	ErrIdentifierInUse = errors.New("proxy: public key already in use")

	// ErrConnectionClosed is returned by Receive once the transport has
	// closed and every received frame has been consumed.
	ErrConnectionClosed = errors.New("proxy: connection closed")

	// ErrHandshake reports a node that broke the handshake sequence.
	ErrHandshake = errors.New("proxy: handshake failed")
)
