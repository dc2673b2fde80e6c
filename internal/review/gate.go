// Package review implements the human checkpoint for newly extracted
// glossary terms: a pending review resolves with the terms a person
// confirms, or with nothing once its countdown runs out.
package review

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/valpere/glossator/internal"
)

var (
	ErrNoPendingReview  = errors.New("no glossary review is pending")
	ErrInvalidSelection = errors.New("selection contains terms that were not proposed")
)

const (
	DefaultTimeout  = 30 * time.Second
	DefaultInterval = time.Second
)

// Ticker is the tick source driving the countdown.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type stdTicker struct{ t *time.Ticker }

func (s stdTicker) C() <-chan time.Time { return s.t.C }
func (s stdTicker) Stop()               { s.t.Stop() }

func newStdTicker(d time.Duration) Ticker {
	return stdTicker{t: time.NewTicker(d)}
}

// Pending is a snapshot of the outstanding review.
type Pending struct {
	Terms     []internal.TermCandidate `json:"terms"`
	Remaining time.Duration            `json:"remaining"`
	Paused    bool                     `json:"paused"`
}

type request struct {
	terms     []internal.TermCandidate
	remaining time.Duration
	paused    bool
	decision  chan []internal.TermCandidate
}

func (r *request) snapshot() Pending {
	return Pending{
		Terms:     append([]internal.TermCandidate(nil), r.terms...),
		Remaining: r.remaining,
		Paused:    r.paused,
	}
}

type Option func(*Gate)

// WithTimeout sets the countdown length.
func WithTimeout(d time.Duration) Option {
	return func(g *Gate) { g.timeout = d }
}

// WithTicker replaces the tick source. Every tick that arrives while the
// review is not paused subtracts interval from the countdown.
func WithTicker(interval time.Duration, newTicker func(time.Duration) Ticker) Option {
	return func(g *Gate) {
		g.interval = interval
		g.newTicker = newTicker
	}
}

// WithNotify registers fn to be told when a review opens. fn must not block.
func WithNotify(fn func(Pending)) Option {
	return func(g *Gate) { g.notify = fn }
}

// Gate serializes reviews: a second Review call waits until the first one
// has resolved. The gate never touches a glossary itself.
type Gate struct {
	timeout   time.Duration
	interval  time.Duration
	newTicker func(time.Duration) Ticker
	notify    func(Pending)

	turn chan struct{}

	mu      sync.Mutex
	current *request
}

func New(opts ...Option) *Gate {
	g := &Gate{
		timeout:   DefaultTimeout,
		interval:  DefaultInterval,
		newTicker: newStdTicker,
		turn:      make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Review proposes terms and blocks until a selection is submitted, the
// countdown expires or ctx is done. Expiry and cancellation both resolve
// with an empty selection.
func (g *Gate) Review(ctx context.Context, terms []internal.TermCandidate) []internal.TermCandidate {
	if len(terms) == 0 {
		return nil
	}

	select {
	case g.turn <- struct{}{}:
	case <-ctx.Done():
		return nil
	}
	defer func() { <-g.turn }()

	req := &request{
		terms:     append([]internal.TermCandidate(nil), terms...),
		remaining: g.timeout,
		decision:  make(chan []internal.TermCandidate, 1),
	}

	g.mu.Lock()
	g.current = req
	snap := req.snapshot()
	g.mu.Unlock()

	if g.notify != nil {
		g.notify(snap)
	}

	ticker := g.newTicker(g.interval)
	defer ticker.Stop()

	for {
		select {
		case accepted := <-req.decision:
			return accepted
		case <-ctx.Done():
			return g.close(req)
		case <-ticker.C():
			g.mu.Lock()
			if !req.paused {
				req.remaining -= g.interval
			}
			expired := req.remaining <= 0
			g.mu.Unlock()
			if expired {
				return g.close(req)
			}
		}
	}
}

// close retires req. A selection that raced with expiry still wins.
func (g *Gate) close(req *request) []internal.TermCandidate {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.current == req {
		g.current = nil
	}
	select {
	case accepted := <-req.decision:
		return accepted
	default:
		return nil
	}
}

// Pending reports the outstanding review, if any.
func (g *Gate) Pending() (Pending, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.current == nil {
		return Pending{}, false
	}
	return g.current.snapshot(), true
}

// Submit resolves the pending review with accepted. Every accepted term
// must have been proposed (compared case-insensitively by input); its
// translation and metadata may have been edited.
func (g *Gate) Submit(accepted []internal.TermCandidate) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	req := g.current
	if req == nil {
		return ErrNoPendingReview
	}

	proposed := make(map[string]bool, len(req.terms))
	for _, t := range req.terms {
		proposed[t.Key()] = true
	}
	for _, t := range accepted {
		if !proposed[t.Key()] {
			return ErrInvalidSelection
		}
	}

	select {
	case req.decision <- append([]internal.TermCandidate(nil), accepted...):
		g.current = nil
		return nil
	default:
		return ErrNoPendingReview
	}
}

// SubmitIndices accepts the proposed terms at the given positions.
func (g *Gate) SubmitIndices(indices []int) error {
	g.mu.Lock()
	req := g.current
	if req == nil {
		g.mu.Unlock()
		return ErrNoPendingReview
	}
	accepted := make([]internal.TermCandidate, 0, len(indices))
	for _, i := range indices {
		if i < 0 || i >= len(req.terms) {
			g.mu.Unlock()
			return ErrInvalidSelection
		}
		accepted = append(accepted, req.terms[i])
	}
	g.mu.Unlock()
	return g.Submit(accepted)
}

// Pause stops the countdown of the pending review.
func (g *Gate) Pause() error {
	return g.setPaused(true)
}

// Resume restarts the countdown where it stopped.
func (g *Gate) Resume() error {
	return g.setPaused(false)
}

func (g *Gate) setPaused(paused bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.current == nil {
		return ErrNoPendingReview
	}
	g.current.paused = paused
	return nil
}
