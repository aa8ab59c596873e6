package merge

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dgallion1/outliner/internal/doctree"
)

// State is the merge lifecycle of a session.
type State string

const (
	StateIdle       State = "idle"
	StateGenerating State = "generating"
	StateSettled    State = "settled"
)

var (
	// ErrGenerationActive means a generation is already running for
	// this session; callers retry after it settles or is cancelled.
	ErrGenerationActive = errors.New("merge: a generation is already active")
	// ErrSessionClosed means the session has been ended.
	ErrSessionClosed = errors.New("merge: session closed")
)

// Fragment is a cumulative partial result for the current generation,
// matched positionally to the session's target addresses. Each
// fragment supersedes the previous one entirely; it is not a delta.
type Fragment struct {
	Nodes []*doctree.Node
}

// Snapshot is a read-only copy of session state handed to external
// consumers. The tree is a deep copy; the renderer must treat node
// identity as Address, recomputed against this tree.
type Snapshot struct {
	ID    string        `json:"doc_id"`
	State State         `json:"state"`
	Tree  *doctree.Node `json:"tree"`
}

// Session owns one document's base tree and the transient state of at
// most one in-flight generation. The base tree mutates only through
// the atomic settlement in Settle; every other path leaves it intact.
type Session struct {
	mu sync.Mutex

	id        string
	state     State
	base      *doctree.Node
	displayed *doctree.Node
	pending   *Fragment
	targets   []doctree.Address

	// gen fences fragment application: Begin bumps it, and any Apply,
	// Settle, or Abort carrying a stale token is ignored. This makes
	// cancellation effective immediately even if a late fragment is
	// already in flight.
	gen    uint64
	cancel context.CancelFunc

	closed    bool
	updatedAt time.Time
	subs      map[chan Snapshot]struct{}
}

// NewSession creates an idle session displaying base.
func NewSession(id string, base *doctree.Node) *Session {
	if base == nil {
		base = &doctree.Node{}
	}
	return &Session{
		id:        id,
		state:     StateIdle,
		base:      base,
		displayed: base,
		updatedAt: time.Now(),
		subs:      make(map[chan Snapshot]struct{}),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Snapshot returns a copy of the current displayed tree and state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	return Snapshot{ID: s.id, State: s.state, Tree: s.displayed.Clone()}
}

// BaseSnapshot returns a copy of the settled base tree, independent of
// any in-flight generation.
func (s *Session) BaseSnapshot() *doctree.Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.base.Clone()
}

// UpdatedAt returns the time of the last state change, for TTL
// eviction.
func (s *Session) UpdatedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updatedAt
}

// SetBase replaces the base tree outside of generation, e.g. when the
// upstream plain-text stream is re-parsed. Rejected while generating.
func (s *Session) SetBase(tree *doctree.Node) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	if s.state == StateGenerating {
		return ErrGenerationActive
	}
	s.base = tree
	s.displayed = tree
	s.state = StateIdle
	s.touchLocked()
	s.notifyLocked()
	return nil
}

// Begin freezes the base tree as the reference for one generation and
// records the filtered target addresses. It returns a fencing token
// that Apply/Settle/Abort must present, and the frozen base for prompt
// building. cancel is invoked when the generation is aborted.
func (s *Session) Begin(targets []doctree.Address, cancel context.CancelFunc) (uint64, *doctree.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, nil, ErrSessionClosed
	}
	if s.state == StateGenerating {
		return 0, nil, ErrGenerationActive
	}
	s.gen++
	s.state = StateGenerating
	s.targets = targets
	s.pending = nil
	s.cancel = cancel
	// Displayed stays exactly base until the first fragment arrives;
	// an empty placeholder here would flicker in the renderer.
	s.displayed = s.base
	s.touchLocked()
	s.notifyLocked()
	return s.gen, s.base, nil
}

// Apply merges a fragment against the frozen base to produce the
// displayed tree. Later fragments supersede earlier ones. A stale
// token (generation cancelled or settled underneath) is a no-op.
func (s *Session) Apply(gen uint64, frag Fragment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.state != StateGenerating || gen != s.gen {
		return
	}
	s.displayed = applyFragment(s.base, s.targets, frag)
	s.pending = &frag
	s.touchLocked()
	s.notifyLocked()
}

// Settle performs the single atomic completion step: apply the final
// fragment, promote the result to the new base, clear all pending
// state, and move to settled. No consumer can observe a new base with
// stale pending state. Returns the settled tree; ok is false when the
// token is stale.
func (s *Session) Settle(gen uint64, frag Fragment) (*doctree.Node, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.state != StateGenerating || gen != s.gen {
		return nil, false
	}
	next := applyFragment(s.base, s.targets, frag)
	s.base = next
	s.displayed = next
	s.pending = nil
	s.targets = nil
	s.cancel = nil
	s.state = StateSettled
	s.touchLocked()
	s.notifyLocked()
	return next, true
}

// Abort discards the in-flight generation: pending state is dropped,
// the displayed tree reverts to the pre-generation base, and the
// session returns to idle. No partial mutation survives.
func (s *Session) Abort(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateGenerating || gen != s.gen {
		return
	}
	s.abortLocked()
}

// CancelGeneration aborts whatever generation is active, if any. Used
// by the host-facing cancel endpoint.
func (s *Session) CancelGeneration() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateGenerating {
		return
	}
	s.abortLocked()
}

func (s *Session) abortLocked() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.pending = nil
	s.targets = nil
	s.displayed = s.base
	s.state = StateIdle
	s.touchLocked()
	s.notifyLocked()
}

// Close ends the session, aborting any active generation and dropping
// all subscribers.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if s.state == StateGenerating {
		s.abortLocked()
	}
	s.closed = true
	for ch := range s.subs {
		close(ch)
		delete(s.subs, ch)
	}
}

// Subscribe registers a consumer for displayed-tree updates. Slow
// consumers are dropped rather than blocking the driver: when the
// buffer is full the update is skipped. The returned func
// unsubscribes and closes the channel.
func (s *Session) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 8)
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	s.subs[ch] = struct{}{}
	s.mu.Unlock()

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.subs[ch]; ok {
			delete(s.subs, ch)
			close(ch)
		}
	}
}

func (s *Session) touchLocked() {
	s.updatedAt = time.Now()
}

func (s *Session) notifyLocked() {
	if len(s.subs) == 0 {
		return
	}
	snap := s.snapshotLocked()
	for ch := range s.subs {
		select {
		case ch <- snap:
		default:
		}
	}
}

// applyFragment splices a fragment's nodes into base at the target
// addresses. A single target uses a subtree replacement; multiple
// targets under one parent use a sibling splice; targets under
// different parents fall back to pairwise subtree replacements, which
// is safe because single replacements never shift sibling indices.
// Missing trailing nodes (the fragment is still partial) leave their
// targets untouched: the sibling splice shrinks its span to the
// targets already covered, so not-yet-regenerated siblings stay
// visible until their rewritten versions arrive.
func applyFragment(base *doctree.Node, targets []doctree.Address, frag Fragment) *doctree.Node {
	if len(frag.Nodes) == 0 || len(targets) == 0 {
		return base
	}
	if len(targets) == 1 {
		return doctree.ReplaceOne(base, targets[0], frag.Nodes[0])
	}
	if sameParent(targets) {
		span := targets
		if len(frag.Nodes) < len(span) {
			span = span[:len(frag.Nodes)]
		}
		next, err := doctree.ReplaceSiblings(base, span, frag.Nodes)
		if err != nil {
			return base
		}
		return next
	}
	out := base
	for i, addr := range targets {
		if i >= len(frag.Nodes) {
			break
		}
		out = doctree.ReplaceOne(out, addr, frag.Nodes[i])
	}
	return out
}

func sameParent(addrs []doctree.Address) bool {
	first, ok := addrs[0].Parent()
	if !ok {
		return false
	}
	for _, a := range addrs[1:] {
		p, ok := a.Parent()
		if !ok || p != first {
			return false
		}
	}
	return true
}
