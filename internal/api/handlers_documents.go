package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/dgallion1/outliner/internal/doctree"
	"github.com/dgallion1/outliner/internal/generate"
	"github.com/dgallion1/outliner/internal/merge"
	"github.com/dgallion1/outliner/internal/parser"
	"github.com/dgallion1/outliner/internal/render"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type createDocumentRequest struct {
	Text        string `json:"text"`
	Title       string `json:"title,omitempty"`
	ContentType string `json:"content_type,omitempty"`
}

func (s *Server) handleCreateDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)

	var req createDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	imp, err := parser.ForContentType(req.ContentType)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	tree, err := imp.Parse(strings.NewReader(req.Text))
	if err != nil {
		jsonError(w, "parse document: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Title != "" {
		tree.Title = req.Title
	}

	docID := uuid.New().String()
	sess := merge.NewSession(docID, tree)
	s.registry.Put(sess)

	snap := sess.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(snap)
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	sess := s.registry.Get(chi.URLParam(r, "docID"))
	if sess == nil {
		jsonError(w, "document not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sess.Snapshot())
}

type updateTextRequest struct {
	Text string `json:"text"`
	// Final marks the text as complete; a growing stream leaves it
	// false so an unterminated last line is held back.
	Final bool `json:"final,omitempty"`
}

func (s *Server) handleUpdateText(w http.ResponseWriter, r *http.Request) {
	sess := s.registry.Get(chi.URLParam(r, "docID"))
	if sess == nil {
		jsonError(w, "document not found", http.StatusNotFound)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)

	var req updateTextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	hp := &parser.HeadingParser{Streaming: !req.Final}
	if err := sess.SetBase(hp.Parse(req.Text)); err != nil {
		if errors.Is(err, merge.ErrGenerationActive) {
			jsonError(w, "a generation is active; cancel it first", http.StatusConflict)
			return
		}
		jsonError(w, err.Error(), http.StatusGone)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sess.Snapshot())
}

type rewriteRequest struct {
	Selections  []generate.Selection `json:"selections"`
	Instruction string               `json:"instruction"`
}

func (s *Server) handleRewrite(w http.ResponseWriter, r *http.Request) {
	sess := s.registry.Get(chi.URLParam(r, "docID"))
	if sess == nil {
		jsonError(w, "document not found", http.StatusNotFound)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)

	var req rewriteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if len(req.Selections) == 0 {
		jsonError(w, "at least one selection is required", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Instruction) == "" {
		jsonError(w, "instruction is required", http.StatusBadRequest)
		return
	}

	// Collapse the selection so nested picks don't double-specify a
	// region, then keep only the selections that survived.
	addrs := make([]doctree.Address, len(req.Selections))
	for i, sel := range req.Selections {
		addrs[i] = sel.Address
	}
	targets := doctree.Minimal(addrs)
	kept := make([]generate.Selection, 0, len(targets))
	for _, sel := range req.Selections {
		for _, t := range targets {
			if sel.Address == t {
				kept = append(kept, sel)
				break
			}
		}
	}

	// The generation outlives this request; its context is cancelled
	// by the cancel endpoint or by abort.
	genCtx, cancel := context.WithCancel(context.Background())
	gen, base, err := sess.Begin(targets, cancel)
	if err != nil {
		cancel()
		if errors.Is(err, merge.ErrGenerationActive) {
			jsonError(w, "a generation is already active", http.StatusConflict)
			return
		}
		jsonError(w, err.Error(), http.StatusGone)
		return
	}

	prompt := generate.BuildRewritePrompt(base, kept, req.Instruction)
	src := generate.NewSource(s.claude, generate.RewriteSystemPrompt, prompt, targets)

	log := s.log.With("doc_id", sess.ID(), "targets", len(targets))
	go func() {
		defer cancel()
		if err := s.driver.Run(genCtx, sess, gen, src); err != nil {
			log.Error("generation failed", "error", err)
			return
		}
		log.Info("generation settled")
	}()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]any{
		"doc_id":  sess.ID(),
		"state":   merge.StateGenerating,
		"targets": targets,
	})
}

func (s *Server) handleCancelRewrite(w http.ResponseWriter, r *http.Request) {
	sess := s.registry.Get(chi.URLParam(r, "docID"))
	if sess == nil {
		jsonError(w, "document not found", http.StatusNotFound)
		return
	}
	sess.CancelGeneration()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sess.Snapshot())
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	sess := s.registry.Get(chi.URLParam(r, "docID"))
	if sess == nil {
		jsonError(w, "document not found", http.StatusNotFound)
		return
	}
	tree := sess.Snapshot().Tree

	switch format := r.URL.Query().Get("format"); format {
	case "", "markdown":
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		io.WriteString(w, render.ToMarkdown(tree))
	case "html":
		out, err := render.ToHTML(tree)
		if err != nil {
			jsonError(w, "render html: "+err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		io.WriteString(w, out)
	default:
		jsonError(w, "unsupported format: "+format, http.StatusBadRequest)
	}
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "docID")
	if s.registry.Get(docID) == nil {
		jsonError(w, "document not found", http.StatusNotFound)
		return
	}
	s.registry.Delete(docID)

	if s.docstore != nil {
		if err := s.docstore.DeleteTree(r.Context(), docID); err != nil {
			s.log.Warn("delete persisted document failed", "doc_id", docID, "error", err)
		}
	}

	w.WriteHeader(http.StatusNoContent)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
