// Package server exposes the tool surface over HTTP: JSON tool calls
// under /api/v1/tools and a websocket event feed under /api/v1/events.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/domlens/domlens/internal/config"
	"github.com/domlens/domlens/internal/logging"
	"github.com/domlens/domlens/internal/tools"
)

type Server struct {
	cfg      config.ServerConfig
	registry *tools.Registry
	hub      *Hub
	http     *http.Server
}

func New(cfg config.ServerConfig, registry *tools.Registry, hub *Hub) *Server {
	s := &Server{cfg: cfg, registry: registry, hub: hub}
	s.http = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Router builds the chi handler; exposed separately for tests.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/tools", s.handleListTools)
		r.Post("/tools/{name}", s.handleTool)
		r.Get("/events", s.hub.HandleEvents)
	})
	return r
}

// Start blocks serving HTTP until Shutdown.
func (s *Server) Start() error {
	logging.Infof("Server", "listening on %s", s.http.Addr)
	if err := s.http.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Close()
	return s.http.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":      "ok",
		"subscribers": s.hub.Subscribers(),
	})
}

func (s *Server) handleListTools(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"tools": s.registry.List()})
}

// handleTool runs one tool. Domain failures come back 200 with
// is_error set; only transport problems get HTTP error codes.
func (s *Server) handleTool(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"error": "read body: " + err.Error()})
		return
	}
	if len(body) == 0 {
		body = []byte("{}")
	}

	res := s.registry.Execute(r.Context(), name, json.RawMessage(body))
	s.hub.Broadcast("tool_executed", map[string]interface{}{
		"tool":     name,
		"is_error": res.IsError,
	})
	writeJSON(w, http.StatusOK, res)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Warnf("Server", "write response: %v", err)
	}
}
