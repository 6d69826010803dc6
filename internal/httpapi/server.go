// Package httpapi exposes the graph panel over HTTP.
//
// The API mirrors the panel operations one to one: list configs, fetch a
// config's render graph, run auto-layout, and apply a change batch. It is
// served by the `flowcanvas serve` command.
package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/flowcanvas/flowcanvas/pkg/errors"
	"github.com/flowcanvas/flowcanvas/pkg/layout"
	"github.com/flowcanvas/flowcanvas/pkg/panel"
	"github.com/flowcanvas/flowcanvas/pkg/reconcile"
)

// Server handles the HTTP API on top of a panel controller.
type Server struct {
	panel  *panel.Panel
	logger *log.Logger
}

// NewRouter builds the chi router for a panel.
func NewRouter(p *panel.Panel, logger *log.Logger) http.Handler {
	if logger == nil {
		logger = log.Default()
	}
	s := &Server{panel: p, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", s.healthz)
	r.Get("/configs", s.listConfigs)
	r.Get("/configs/{id}/graph", s.getGraph)
	r.Post("/configs/{id}/layout", s.postLayout)
	r.Post("/configs/{id}/changes", s.postChanges)

	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
		)
	})
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"state":  string(s.panel.State()),
	})
}

// configEntry is the list representation of a discovered config.
type configEntry struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Source    string `json:"source"`
	Namespace string `json:"namespace,omitempty"`
}

func (s *Server) listConfigs(w http.ResponseWriter, r *http.Request) {
	if err := s.panel.Reload(r.Context()); err != nil {
		s.writeError(w, err)
		return
	}
	configs := s.panel.Configs()
	entries := make([]configEntry, 0, len(configs))
	for _, c := range configs {
		entries = append(entries, configEntry{
			ID:        c.ID,
			Name:      c.Name,
			Source:    c.Source,
			Namespace: c.Namespace,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"configs": entries})
}

func (s *Server) getGraph(w http.ResponseWriter, r *http.Request) {
	if err := s.panel.Select(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, err)
		return
	}
	g, err := s.panel.Graph()
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

// layoutRequest is the POST /configs/{id}/layout body. All fields optional.
type layoutRequest struct {
	Direction       string `json:"direction"`
	SpacingX        int    `json:"spacingX"`
	SpacingY        int    `json:"spacingY"`
	UpdateEdgeSides bool   `json:"updateEdgeSides"`
}

func (s *Server) postLayout(w http.ResponseWriter, r *http.Request) {
	var req layoutRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	ctx := r.Context()
	if err := s.panel.Select(ctx, chi.URLParam(r, "id")); err != nil {
		s.writeError(w, err)
		return
	}
	opts := layout.Options{
		Direction:       layout.Direction(req.Direction),
		SpacingX:        req.SpacingX,
		SpacingY:        req.SpacingY,
		UpdateEdgeSides: req.UpdateEdgeSides,
	}
	if err := s.panel.Layout(ctx, opts); err != nil {
		s.writeError(w, err)
		return
	}
	g, err := s.panel.Graph()
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (s *Server) postChanges(w http.ResponseWriter, r *http.Request) {
	var changes reconcile.Changes
	if err := decodeBody(r, &changes); err != nil {
		s.writeError(w, err)
		return
	}

	ctx := r.Context()
	if err := s.panel.Select(ctx, chi.URLParam(r, "id")); err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.panel.Edit(changes); err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.panel.Save(ctx); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"saved": true})
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid request body")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps internal error codes onto HTTP statuses and emits the
// {error, code} body the panel host expects.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := errors.GetCode(err)
	status := http.StatusInternalServerError
	switch code {
	case errors.ErrCodeNotFound, errors.ErrCodeFileNotFound, errors.ErrCodeConfigNotFound:
		status = http.StatusNotFound
	case errors.ErrCodeInvalidInput, errors.ErrCodeInvalidPath:
		status = http.StatusBadRequest
	case errors.ErrCodeParse, errors.ErrCodeInvalidDocument:
		status = http.StatusUnprocessableEntity
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "code", code, "err", err)
	}
	writeJSON(w, status, map[string]string{
		"error": errors.UserMessage(err),
		"code":  string(code),
	})
}
