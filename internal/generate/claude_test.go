package generate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dgallion1/outliner/internal/doctree"
)

func sseHandler(chunks []string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fl := w.(http.Flusher)
		fmt.Fprint(w, "event: message_start\ndata: {\"type\":\"message_start\"}\n\n")
		for _, chunk := range chunks {
			fmt.Fprintf(w, "event: content_block_delta\ndata: {\"type\":\"content_block_delta\",\"delta\":{\"type\":\"text_delta\",\"text\":%q}}\n\n", chunk)
			fl.Flush()
		}
		fmt.Fprint(w, "event: message_stop\ndata: {\"type\":\"message_stop\"}\n\n")
	}
}

func testClient(url string) *Client {
	c := NewClient("test-key", "test-model", NewStats(0))
	c.baseURL = url
	return c
}

func TestClientStreamAccumulates(t *testing.T) {
	srv := httptest.NewServer(sseHandler([]string{"## Se", "ction\nbo", "dy text"}))
	defer srv.Close()

	c := testClient(srv.URL)
	var got []string
	err := c.Stream(context.Background(), "sys", "prompt", func(acc string) {
		got = append(got, acc)
	})
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 emissions, got %d: %v", len(got), got)
	}
	want := "## Section\nbody text"
	if got[len(got)-1] != want {
		t.Errorf("final accumulated = %q, want %q", got[len(got)-1], want)
	}
	if c.Stats.Snapshot().Count != 1 {
		t.Errorf("expected one latency sample, got %d", c.Stats.Snapshot().Count)
	}
}

func TestClientStreamRetryableStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"overloaded"}`, http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	err := c.Stream(context.Background(), "", "prompt", func(string) {
		t.Error("emit called for a failed request")
	})
	if !IsRetryable(err) {
		t.Errorf("expected retryable error for 503, got %v", err)
	}
}

func TestClientStreamFatalStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"bad key"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	err := c.Stream(context.Background(), "", "prompt", func(string) {})
	if err == nil || IsRetryable(err) {
		t.Errorf("expected a non-retryable error for 401, got %v", err)
	}
}

func TestClientStreamErrorEvent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "event: error\ndata: {\"type\":\"error\",\"error\":{\"type\":\"overloaded_error\",\"message\":\"busy\"}}\n\n")
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	err := c.Stream(context.Background(), "", "prompt", func(string) {})
	if err == nil {
		t.Fatal("expected error from stream error event")
	}
}

func TestSourceYieldsFragmentsThenEOF(t *testing.T) {
	srv := httptest.NewServer(sseHandler([]string{"## A\ntext a\n", "## B\ntext b"}))
	defer srv.Close()

	c := testClient(srv.URL)
	targets := []doctree.Address{"root-0", "root-1"}
	src := NewSource(c, RewriteSystemPrompt, "prompt", targets)

	ctx := context.Background()
	var last []*doctree.Node
	for {
		frag, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		last = frag.Nodes
	}

	// The final fragment must include the unterminated last line.
	if len(last) != 2 {
		t.Fatalf("final fragment has %d nodes, want 2: %+v", len(last), last)
	}
	if last[0].Title != "A" || last[0].Text != "text a" {
		t.Errorf("node 0 = %+v", last[0])
	}
	if last[1].Title != "B" || last[1].Text != "text b" {
		t.Errorf("node 1 = %+v (trailing line lost?)", last[1])
	}
}

func TestSourceReportsUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	src := NewSource(c, "", "prompt", []doctree.Address{"root-0"})

	_, err := src.Next(context.Background())
	if err == nil || errors.Is(err, io.EOF) {
		t.Fatalf("expected upstream error, got %v", err)
	}
}
