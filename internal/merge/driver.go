package merge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/dgallion1/outliner/internal/doctree"
)

// Source delivers cumulative fragments for a single generation. Next
// blocks for the next fragment, returns io.EOF when the generation
// completed, or any other error on upstream failure.
type Source interface {
	Next(ctx context.Context) (Fragment, error)
}

// Saver persists a settled tree. Persistence is best-effort: a failed
// save is logged and never rolls back in-memory state.
type Saver interface {
	SaveTree(ctx context.Context, docID string, tree *doctree.Node) error
}

// Driver reconciles a session with a generation's fragment stream. It
// coalesces rapid arrivals so the displayed tree is recomputed at most
// once per tick, applying only the most recent fragment — safe because
// fragments are cumulative, not deltas.
type Driver struct {
	log      *slog.Logger
	saver    Saver
	interval time.Duration
	saveWait time.Duration
}

// NewDriver creates a driver. interval bounds how often the displayed
// tree is recomputed while fragments stream in; saver may be nil to
// skip persistence.
func NewDriver(log *slog.Logger, saver Saver, interval time.Duration) *Driver {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	return &Driver{
		log:      log,
		saver:    saver,
		interval: interval,
		saveWait: 10 * time.Second,
	}
}

// Run consumes src for one generation on s, identified by the fencing
// token from Begin. It blocks until settlement, cancellation, or
// upstream failure. The final fragment always settles: coalescing can
// drop intermediates but never the last one. Cancelling ctx aborts the
// generation and reverts the displayed tree.
func (d *Driver) Run(ctx context.Context, s *Session, gen uint64, src Source) error {
	type recv struct {
		frag Fragment
		err  error
	}
	recvCh := make(chan recv)
	go func() {
		for {
			frag, err := src.Next(ctx)
			select {
			case recvCh <- recv{frag, err}:
			case <-ctx.Done():
				return
			}
			if err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	var latest Fragment
	dirty := false
	for {
		select {
		case <-ctx.Done():
			s.Abort(gen)
			return ctx.Err()

		case r := <-recvCh:
			if errors.Is(r.err, io.EOF) {
				settled, ok := s.Settle(gen, latest)
				if !ok {
					// Cancelled underneath; nothing to persist.
					return ErrSessionClosed
				}
				d.save(s.ID(), settled)
				return nil
			}
			if r.err != nil {
				s.Abort(gen)
				return fmt.Errorf("generation stream: %w", r.err)
			}
			latest = r.frag
			dirty = true

		case <-ticker.C:
			if dirty {
				s.Apply(gen, latest)
				dirty = false
			}
		}
	}
}

// save fires the one per-settlement persistence effect. Fire-and-
// forget: failures are logged, the in-memory tree stays authoritative.
func (d *Driver) save(docID string, tree *doctree.Node) {
	if d.saver == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), d.saveWait)
		defer cancel()
		if err := d.saver.SaveTree(ctx, docID, tree); err != nil {
			d.log.Error("save settled tree failed", "doc_id", docID, "error", err)
		}
	}()
}
