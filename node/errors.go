package node

import (
	"errors"

	"github.com/BaSui01/oef-go/internal/channel"
)

var (
	// ErrNotRegistered is returned when unregistering an entry that is not
	// in the directory.
	ErrNotRegistered = errors.New("node: not registered")

	// ErrNotConnected is returned for operations on behalf of an id that has
	// no mailbox.
	ErrNotConnected = errors.New("node: agent not connected")

	// ErrNilDescription is returned when registering a nil description.
	ErrNilDescription = errors.New("node: nil description")

	// ErrClosed is returned by Send after Close.
	ErrClosed = errors.New("node: closed")

	// ErrMailboxClosed is returned by Mailbox.Receive once the mailbox is
	// disconnected and drained.
	ErrMailboxClosed = channel.ErrClosed
)
