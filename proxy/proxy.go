package proxy

import (
	"context"
	"sync"

	"github.com/BaSui01/oef-go/protocol"
)

// State is the connection state of a proxy.
type State string

const (
	StateDisconnected   State = "disconnected"
	StateConnecting     State = "connecting"
	StateAuthenticating State = "authenticating"
	StateConnected      State = "connected"
)

// Proxy is an agent's connection to an OEF node.
type Proxy interface {
	// PublicKey is the identifier the proxy connects with.
	PublicKey() string

	// Connect attaches to the node. It returns false with a nil error when
	// the node refuses the public key. Calling Connect on an open
	// connection returns true without contacting the node.
	Connect(ctx context.Context) (bool, error)

	// Send queues msg for the node without waiting for it to be written.
	Send(ctx context.Context, msg protocol.Message) error

	// Receive waits for the next encoded server message.
	Receive(ctx context.Context) ([]byte, error)

	// Disconnect flushes queued messages and releases the transport.
	// Disconnecting twice is a no-op.
	Disconnect(ctx context.Context) error

	State() State
}

// stateHolder tracks a State and reports transitions.
type stateHolder struct {
	mu       sync.Mutex
	state    State
	onChange func(State)
}

func (s *stateHolder) get() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// set updates the state and fires the callback. Caller must not hold s.mu.
func (s *stateHolder) set(st State) {
	s.mu.Lock()
	changed := s.state != st
	s.state = st
	fn := s.onChange
	s.mu.Unlock()
	if changed && fn != nil {
		fn(st)
	}
}
