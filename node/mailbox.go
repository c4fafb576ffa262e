package node

import (
	"context"

	"github.com/BaSui01/oef-go/internal/channel"
)

// Mailbox is the receiving end of a connected agent. It yields encoded
// server messages in the order the node produced them.
type Mailbox struct {
	id string
	q  *channel.Unbounded[[]byte]
}

func newMailbox(id string) *Mailbox {
	return &Mailbox{id: id, q: channel.NewUnbounded[[]byte]()}
}

// ID returns the public key the mailbox was connected with.
func (m *Mailbox) ID() string { return m.id }

// Receive waits for the next encoded server message. After the mailbox is
// disconnected, queued messages are still returned and then
// ErrMailboxClosed.
func (m *Mailbox) Receive(ctx context.Context) ([]byte, error) {
	return m.q.Pop(ctx)
}

// Len returns the number of undelivered messages.
func (m *Mailbox) Len() int { return m.q.Len() }

// Closed reports whether the mailbox has been disconnected.
func (m *Mailbox) Closed() bool { return m.q.Closed() }

func (m *Mailbox) push(frame []byte) bool { return m.q.Push(frame) }

func (m *Mailbox) close() { m.q.Close() }
