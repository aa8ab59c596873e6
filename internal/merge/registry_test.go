package merge

import (
	"testing"
	"time"

	"github.com/dgallion1/outliner/internal/doctree"
)

func TestRegistryPutGetDelete(t *testing.T) {
	r := NewRegistry(time.Hour)
	s := NewSession("d1", &doctree.Node{Title: "Doc"})
	r.Put(s)

	if got := r.Get("d1"); got != s {
		t.Fatalf("Get returned %v", got)
	}
	if r.Get("missing") != nil {
		t.Error("expected nil for unknown id")
	}

	r.Delete("d1")
	if r.Get("d1") != nil {
		t.Error("session still present after Delete")
	}
	if err := s.SetBase(&doctree.Node{}); err != ErrSessionClosed {
		t.Errorf("deleted session not closed: err = %v", err)
	}
}

func TestRegistryCleanupEvictsIdle(t *testing.T) {
	r := NewRegistry(time.Nanosecond)
	idle := NewSession("idle", &doctree.Node{})
	busy := NewSession("busy", &doctree.Node{Children: []*doctree.Node{{Title: "A"}}})
	r.Put(idle)
	r.Put(busy)
	busy.Begin([]doctree.Address{"root-0"}, nil)

	time.Sleep(5 * time.Millisecond)
	r.Cleanup()

	if r.Get("idle") != nil {
		t.Error("expired idle session survived cleanup")
	}
	if r.Get("busy") == nil {
		t.Error("generating session evicted by cleanup")
	}
	if r.Len() != 1 {
		t.Errorf("Len = %d, want 1", r.Len())
	}
}
