package dialogue

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/BaSui01/oef-go/protocol"
	"github.com/BaSui01/oef-go/schema"
)

// PriceFunc extracts the price of a proposal. ok is false when the
// proposal carries no usable price.
type PriceFunc func(proposals protocol.ProposePayload) (price float64, ok bool)

// BetterFunc reports whether candidate beats best.
type BetterFunc func(candidate, best float64) bool

// FinishFunc is called once every peer has answered. winner is empty when
// no proposal could be priced.
type FinishFunc func(winner string, price float64)

// PriceAttribute reads the "price" attribute of the first description in
// a Proposals payload. Int and float attributes are accepted.
func PriceAttribute(proposals protocol.ProposePayload) (float64, bool) {
	ps, ok := proposals.(protocol.Proposals)
	if !ok || len(ps) == 0 || ps[0] == nil {
		return 0, false
	}
	v, ok := ps[0].Value("price")
	if !ok {
		return 0, false
	}
	switch v.Type() {
	case schema.AttributeTypeInt:
		return float64(v.Int()), true
	case schema.AttributeTypeFloat:
		return v.Float(), true
	default:
		return 0, false
	}
}

// LowerIsBetter is the default BetterFunc.
func LowerIsBetter(candidate, best float64) bool { return candidate < best }

// GroupOption configures a Group.
type GroupOption func(*Group)

func WithPriceFunc(fn PriceFunc) GroupOption {
	return func(g *Group) {
		if fn != nil {
			g.price = fn
		}
	}
}

func WithBetter(fn BetterFunc) GroupOption {
	return func(g *Group) {
		if fn != nil {
			g.better = fn
		}
	}
}

func WithFinish(fn FinishFunc) GroupOption {
	return func(g *Group) { g.finish = fn }
}

// Group negotiates with several peers at once. It sends each a CFP, waits
// for one Propose per peer, then accepts the best and declines the rest.
// A peer that never answers leaves the group pending.
type Group struct {
	agent  *Agent
	price  PriceFunc
	better BetterFunc
	finish FinishFunc
	logger *zap.Logger

	mu        sync.Mutex
	ctx       context.Context
	dialogues []*SingleDialogue
	answers   map[string]answer
	opened    bool
	done      chan struct{}
}

type answer struct {
	msgID  int32
	price  float64
	priced bool
}

// NewGroup creates a group owned by a.
func NewGroup(a *Agent, opts ...GroupOption) *Group {
	g := &Group{
		agent:   a,
		price:   PriceAttribute,
		better:  LowerIsBetter,
		logger:  a.Logger().With(zap.String("component", "dialogue_group")),
		answers: make(map[string]answer),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Open starts one dialogue per distinct peer and sends each a CFP with
// msgID 1 and target 0. ctx is also used for the closing Accept and Decline messages.
func (g *Group) Open(ctx context.Context, peers []string, cfp protocol.CFPPayload) error {
	if len(peers) == 0 {
		return ErrNoPeers
	}

	g.mu.Lock()
	if g.opened {
		g.mu.Unlock()
		return ErrGroupOpened
	}
	g.opened = true
	g.ctx = ctx
	seen := make(map[string]bool, len(peers))
	for _, peer := range peers {
		if seen[peer] {
			continue
		}
		seen[peer] = true
		g.dialogues = append(g.dialogues, g.agent.Open(peer, &member{
			LoggingHandler: LoggingHandler{Logger: g.logger.With(zap.String("peer", peer))},
			group:          g,
			peer:           peer,
		}))
	}
	dialogues := g.dialogues
	g.mu.Unlock()

	var errs []error
	for _, d := range dialogues {
		if err := d.SendCFP(ctx, 1, 0, cfp); err != nil {
			errs = append(errs, err)
		}
	}
	g.logger.Debug("group opened", zap.Strings("peers", peers))
	return errors.Join(errs...)
}

// Done is closed once the group has accepted a winner.
func (g *Group) Done() <-chan struct{} { return g.done }

// Dialogues returns the group's dialogues in the order the peers were
// given.
func (g *Group) Dialogues() []*SingleDialogue {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]*SingleDialogue(nil), g.dialogues...)
}

// propose records the answer of peer and concludes the group once every
// peer has answered.
func (g *Group) propose(peer string, msgID int32, proposals protocol.ProposePayload) error {
	price, ok := g.price(proposals)
	if !ok {
		g.logger.Warn("proposal has no price", zap.String("peer", peer))
	}

	g.mu.Lock()
	if _, dup := g.answers[peer]; dup {
		g.mu.Unlock()
		g.logger.Warn("duplicate proposal ignored", zap.String("peer", peer))
		return nil
	}
	g.answers[peer] = answer{msgID: msgID, price: price, priced: ok}
	if len(g.answers) < len(g.dialogues) {
		g.mu.Unlock()
		return nil
	}
	winner, best := g.pickLocked()
	ctx := g.ctx
	dialogues := g.dialogues
	answers := g.answers
	g.mu.Unlock()

	return g.conclude(ctx, dialogues, answers, winner, best)
}

// pickLocked walks peers in order; the first priced proposal is the
// initial best.
func (g *Group) pickLocked() (string, float64) {
	var (
		winner string
		best   float64
		first  = true
	)
	for _, d := range g.dialogues {
		a := g.answers[d.Peer()]
		if !a.priced {
			continue
		}
		if first || g.better(a.price, best) {
			winner, best, first = d.Peer(), a.price, false
		}
	}
	return winner, best
}

func (g *Group) conclude(ctx context.Context, dialogues []*SingleDialogue, answers map[string]answer, winner string, best float64) error {
	var errs []error
	for _, d := range dialogues {
		a := answers[d.Peer()]
		var err error
		if d.Peer() == winner {
			err = d.SendAccept(ctx, a.msgID+1, a.msgID)
		} else {
			err = d.SendDecline(ctx, a.msgID+1, a.msgID)
		}
		if err != nil {
			errs = append(errs, err)
		}
		if err := d.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	g.logger.Info("group negotiation finished", zap.String("winner", winner), zap.Float64("price", best))
	if g.finish != nil {
		g.finish(winner, best)
	}
	close(g.done)
	return errors.Join(errs...)
}

// member is the Handler of each dialogue in a group.
type member struct {
	LoggingHandler

	group *Group
	peer  string
}

func (m *member) OnPropose(msgID, _ int32, proposals protocol.ProposePayload) error {
	return m.group.propose(m.peer, msgID, proposals)
}
