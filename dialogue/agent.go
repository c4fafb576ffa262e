package dialogue

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BaSui01/oef-go/agent"
	"github.com/BaSui01/oef-go/protocol"
	"github.com/BaSui01/oef-go/proxy"
)

// NewSessionHandler is consulted for a message or CFP whose key has no
// dialogue. If the hook registers a dialogue under that key, the message is
// then delivered to it; otherwise the hook is considered to have handled
// the message.
type NewSessionHandler interface {
	OnNewMessage(msgID, dialogueID int32, origin string, content []byte) error
	OnNewCFP(msgID, dialogueID int32, origin string, target int32, query protocol.CFPPayload) error
}

// Agent is an agent.Agent that routes agent messages to dialogues.
type Agent struct {
	*agent.Agent

	sessions NewSessionHandler

	mu        sync.RWMutex
	dialogues map[Key]*SingleDialogue
}

var _ proxy.Handler = (*Agent)(nil)

// NewAgent wraps base. sessions may be nil, in which case messages on
// unknown keys are logged and dropped.
func NewAgent(base *agent.Agent, sessions NewSessionHandler) *Agent {
	return &Agent{
		Agent:     base,
		sessions:  sessions,
		dialogues: make(map[Key]*SingleDialogue),
	}
}

// Run runs the dispatch loop. A nil h routes through a itself.
func (a *Agent) Run(ctx context.Context, h proxy.Handler) error {
	if h == nil {
		h = a
	}
	return a.Agent.Run(ctx, h)
}

// =============================================================================
// Registry
// =============================================================================

// Open starts a dialogue with peer under a fresh id. h may be nil.
func (a *Agent) Open(peer string, h Handler) *SingleDialogue {
	a.mu.Lock()
	defer a.mu.Unlock()

	id := freshID()
	for {
		if _, taken := a.dialogues[Key{Peer: peer, ID: id}]; !taken {
			break
		}
		id = freshID()
	}
	d := a.newDialogue(Key{Peer: peer, ID: id}, true, h)
	a.dialogues[d.key] = d
	return d
}

// Join registers the answering side of a dialogue that peer opened with id.
func (a *Agent) Join(peer string, id int32, h Handler) (*SingleDialogue, error) {
	d := a.newDialogue(Key{Peer: peer, ID: id}, false, h)
	if err := a.Register(d); err != nil {
		return nil, err
	}
	return d, nil
}

func (a *Agent) newDialogue(key Key, initiator bool, h Handler) *SingleDialogue {
	if h == nil {
		h = LoggingHandler{Logger: a.Logger().With(zap.Stringer("dialogue", key))}
	}
	return &SingleDialogue{agent: a, key: key, initiator: initiator, handler: h}
}

// Register adds d under its key.
func (a *Agent) Register(d *SingleDialogue) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.dialogues[d.key]; ok {
		return fmt.Errorf("%w: %s", ErrDialogueExists, d.key)
	}
	a.dialogues[d.key] = d
	return nil
}

// Unregister removes d and closes it.
func (a *Agent) Unregister(d *SingleDialogue) error {
	a.mu.Lock()
	current, ok := a.dialogues[d.key]
	ok = ok && current == d
	if ok {
		delete(a.dialogues, d.key)
	}
	a.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrDialogueNotFound, d.key)
	}
	d.markClosed()
	return nil
}

// Lookup returns the dialogue registered under key.
func (a *Agent) Lookup(key Key) (*SingleDialogue, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	d, ok := a.dialogues[key]
	return d, ok
}

// Len returns the number of registered dialogues.
func (a *Agent) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.dialogues)
}

// freshID returns the low 31 bits of a random UUID.
func freshID() int32 {
	u := uuid.New()
	return int32(binary.BigEndian.Uint32(u[12:]) & 0x7fffffff)
}

// =============================================================================
// Routing
// =============================================================================

func (a *Agent) OnMessage(msgID, dialogueID int32, origin string, content []byte) error {
	key := Key{Peer: origin, ID: dialogueID}
	d, ok := a.Lookup(key)
	if !ok {
		if a.sessions == nil {
			return a.Agent.OnMessage(msgID, dialogueID, origin, content)
		}
		if err := a.sessions.OnNewMessage(msgID, dialogueID, origin, content); err != nil {
			return err
		}
		if d, ok = a.Lookup(key); !ok {
			return nil
		}
	}
	return d.receive("content", func(h Handler) error { return h.OnMessage(msgID, content) })
}

func (a *Agent) OnCFP(msgID, dialogueID int32, origin string, target int32, query protocol.CFPPayload) error {
	key := Key{Peer: origin, ID: dialogueID}
	d, ok := a.Lookup(key)
	if !ok {
		if a.sessions == nil {
			return a.Agent.OnCFP(msgID, dialogueID, origin, target, query)
		}
		if err := a.sessions.OnNewCFP(msgID, dialogueID, origin, target, query); err != nil {
			return err
		}
		if d, ok = a.Lookup(key); !ok {
			return nil
		}
	}
	return d.receive("cfp", func(h Handler) error { return h.OnCFP(msgID, target, query) })
}

func (a *Agent) OnPropose(msgID, dialogueID int32, origin string, target int32, proposals protocol.ProposePayload) error {
	d, err := a.existing(origin, dialogueID)
	if err != nil {
		return err
	}
	return d.receive("propose", func(h Handler) error { return h.OnPropose(msgID, target, proposals) })
}

func (a *Agent) OnAccept(msgID, dialogueID int32, origin string, target int32) error {
	d, err := a.existing(origin, dialogueID)
	if err != nil {
		return err
	}
	return d.receive("accept", func(h Handler) error { return h.OnAccept(msgID, target) })
}

func (a *Agent) OnDecline(msgID, dialogueID int32, origin string, target int32) error {
	d, err := a.existing(origin, dialogueID)
	if err != nil {
		return err
	}
	return d.receive("decline", func(h Handler) error { return h.OnDecline(msgID, target) })
}

// OnDialogueError hands the error to the dialogue it concerns, falling
// back to the agent's handler.
func (a *Agent) OnDialogueError(answerID, dialogueID int32, origin string) error {
	d, ok := a.Lookup(Key{Peer: origin, ID: dialogueID})
	if !ok {
		return a.Agent.OnDialogueError(answerID, dialogueID, origin)
	}
	return d.handler.OnDialogueError(answerID)
}

// existing looks up a dialogue that must already exist: a Propose, Accept
// or Decline cannot open one.
func (a *Agent) existing(origin string, dialogueID int32) (*SingleDialogue, error) {
	key := Key{Peer: origin, ID: dialogueID}
	d, ok := a.Lookup(key)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDialogueNotFound, key)
	}
	return d, nil
}
