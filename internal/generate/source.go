package generate

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/dgallion1/outliner/internal/doctree"
	"github.com/dgallion1/outliner/internal/merge"
)

// Source adapts one streaming rewrite call into the merge driver's
// fragment source. Transient upstream failures are retried with
// backoff, but only before the first fragment has been delivered — a
// mid-stream retry would replay output the driver already applied.
type Source struct {
	client *Client
	system string
	prompt string
	frag   *Fragmenter

	ch   chan merge.Fragment
	errc chan error
	once sync.Once
}

// NewSource prepares a fragment source for one generation targeting
// the given addresses. The request is issued lazily on the first Next
// call.
func NewSource(client *Client, system, prompt string, targets []doctree.Address) *Source {
	return &Source{
		client: client,
		system: system,
		prompt: prompt,
		frag:   NewFragmenter(targets),
		ch:     make(chan merge.Fragment, 1),
		errc:   make(chan error, 1),
	}
}

// Next returns the next cumulative fragment, io.EOF when the
// generation completed, or the upstream error.
func (s *Source) Next(ctx context.Context) (merge.Fragment, error) {
	s.once.Do(func() { go s.run(ctx) })

	select {
	case f, ok := <-s.ch:
		if !ok {
			return merge.Fragment{}, <-s.errc
		}
		return f, nil
	case <-ctx.Done():
		return merge.Fragment{}, ctx.Err()
	}
}

func (s *Source) run(ctx context.Context) {
	defer close(s.ch)

	var acc string
	emitted := false
	emit := func(text string) {
		acc = text
		emitted = true
		select {
		case s.ch <- s.frag.Fragment(text):
		case <-ctx.Done():
		}
	}

	var err error
	for attempt := 0; attempt < MaxRetries; attempt++ {
		err = s.client.Stream(ctx, s.system, s.prompt, emit)
		if err == nil {
			if acc != "" {
				// Re-parse without the streaming guard so the final
				// unterminated line makes it into the settled tree.
				select {
				case s.ch <- s.frag.Final(acc):
				case <-ctx.Done():
				}
			}
			s.errc <- io.EOF
			return
		}
		if emitted || !IsRetryable(err) {
			break
		}
		select {
		case <-time.After(Backoff(attempt)):
		case <-ctx.Done():
			s.errc <- ctx.Err()
			return
		}
	}
	s.errc <- err
}
