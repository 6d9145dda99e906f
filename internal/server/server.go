// Package server exposes the snapshot store over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/five82/snapwatch/internal/snapshot"
)

// Store is the persistence the API serves.
type Store interface {
	Find(ctx context.Context, id string) (snapshot.Snapshot, bool, error)
	List(ctx context.Context) ([]snapshot.Snapshot, error)
	Create(ctx context.Context, title, url string) (snapshot.Snapshot, error)
	MarkReady(ctx context.Context, id string, files int, size int64, favicon bool) (bool, error)
	Delete(ctx context.Context, id string) (bool, error)
}

const maxBodyBytes = 1 << 20

// Server is the HTTP API over a Store.
type Server struct {
	store    Store
	log      *slog.Logger
	metrics  *Metrics
	registry *prometheus.Registry
}

// New builds a Server. A nil logger uses slog.Default().
func New(store Store, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	registry := prometheus.NewRegistry()
	return &Server{
		store:    store,
		log:      logger,
		metrics:  NewMetrics(registry),
		registry: registry,
	}
}

// Handler returns the routed API.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.metrics.Middleware)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/snapshot/{id}", s.handleGet)
		r.Get("/snapshots", s.handleList)
		r.Post("/snapshots", s.handleCreate)
		r.Post("/snapshots/{id}/ready", s.handleReady)
		r.Post("/action/delete", s.handleDelete)
	})
	return r
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	snap, found, err := s.store.Find(r.Context(), id)
	if err != nil {
		s.storeFailure(w, r, "find snapshot", err)
		return
	}
	if !found {
		writeMessage(w, http.StatusNotFound, "Snapshot not found.")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	items, err := s.store.List(r.Context())
	if err != nil {
		s.storeFailure(w, r, "list snapshots", err)
		return
	}
	if items == nil {
		items = []snapshot.Snapshot{}
	}
	writeJSON(w, http.StatusOK, snapshot.ListResponse{Items: items})
}

type createRequest struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := decodeBody(r, &req); err != nil || strings.TrimSpace(req.URL) == "" {
		writeMessage(w, http.StatusBadRequest, "A url is required.")
		return
	}
	snap, err := s.store.Create(r.Context(), req.Title, req.URL)
	if err != nil {
		s.storeFailure(w, r, "create snapshot", err)
		return
	}
	s.metrics.SnapshotsCreated.Inc()
	s.log.Info("snapshot created", "id", snap.ID, "url", snap.URL)
	writeJSON(w, http.StatusCreated, snap)
}

type readyRequest struct {
	Files   int   `json:"files"`
	Size    int64 `json:"size"`
	Favicon bool  `json:"favicon"`
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req readyRequest
	if err := decodeBody(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body.")
		return
	}
	if _, found, err := s.store.Find(r.Context(), id); err != nil {
		s.storeFailure(w, r, "find snapshot", err)
		return
	} else if !found {
		writeMessage(w, http.StatusNotFound, "Snapshot not found.")
		return
	}
	changed, err := s.store.MarkReady(r.Context(), id, req.Files, req.Size, req.Favicon)
	if err != nil {
		s.storeFailure(w, r, "mark ready", err)
		return
	}
	if !changed {
		writeMessage(w, http.StatusOK, "Already ready.")
		return
	}
	s.log.Info("snapshot ready", "id", id, "files", req.Files, "size", req.Size)
	writeMessage(w, http.StatusOK, "Marked ready.")
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	var req snapshot.DeleteRequest
	if err := decodeBody(r, &req); err != nil || strings.TrimSpace(req.UUID) == "" {
		writeMessage(w, http.StatusBadRequest, "A snapshot uuid is required.")
		return
	}
	deleted, err := s.store.Delete(r.Context(), req.UUID)
	if err != nil {
		s.storeFailure(w, r, "delete snapshot", err)
		return
	}
	if !deleted {
		writeMessage(w, http.StatusNotFound, "Snapshot not found.")
		return
	}
	s.metrics.SnapshotsDeleted.Inc()
	s.log.Info("snapshot deleted", "id", req.UUID)
	writeMessage(w, http.StatusOK, "Deleted.")
}

func (s *Server) storeFailure(w http.ResponseWriter, r *http.Request, op string, err error) {
	s.metrics.StoreErrors.Inc()
	s.log.Error("store failure", "op", op, "error", err, "request_id", middleware.GetReqID(r.Context()))
	writeMessage(w, http.StatusInternalServerError, "Something went wrong.")
}

func decodeBody(r *http.Request, dest any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dest); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, snapshot.MessageResponse{Message: msg})
}
