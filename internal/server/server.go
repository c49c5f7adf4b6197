// Package server exposes daemon health and per-feed diagnostics over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"outside/internal/models"
	"outside/internal/tasks"

	"github.com/gorilla/mux"
)

const (
	defaultReportLimit = 20
	maxReportLimit     = 500
)

// StatusSource reports the current state of every feed
type StatusSource interface {
	FeedStatuses() []tasks.FeedStatus
}

// ReportReader reads stored poll reports
type ReportReader interface {
	Recent(feed string, limit int) ([]*models.PollReport, error)
}

// Handler serves the status API
type Handler struct {
	status    StatusSource
	reports   ReportReader
	startedAt time.Time
}

func NewHandler(status StatusSource, reports ReportReader) *Handler {
	return &Handler{
		status:    status,
		reports:   reports,
		startedAt: time.Now(),
	}
}

// NewRouter wires the status routes
func NewRouter(h *Handler) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/api/status", h.GetStatus).Methods(http.MethodGet)
	r.HandleFunc("/api/feeds/{feed}/reports", h.GetReports).Methods(http.MethodGet)

	r.HandleFunc("/health", healthCheck).Methods(http.MethodGet)

	return r
}

type statusResponse struct {
	StartedAt time.Time          `json:"started_at"`
	Uptime    string             `json:"uptime"`
	Feeds     []tasks.FeedStatus `json:"feeds"`
}

func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{
		StartedAt: h.startedAt,
		Uptime:    time.Since(h.startedAt).Round(time.Second).String(),
		Feeds:     h.status.FeedStatuses(),
	})
}

func (h *Handler) GetReports(w http.ResponseWriter, r *http.Request) {
	feed := mux.Vars(r)["feed"]

	limit := defaultReportLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 || n > maxReportLimit {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 500")
			return
		}
		limit = n
	}

	reports, err := h.reports.Recent(feed, limit)
	if err != nil {
		slog.Error("Failed to read poll reports", "feed", feed, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to read poll reports")
		return
	}
	if reports == nil {
		reports = []*models.PollReport{}
	}
	writeJSON(w, http.StatusOK, reports)
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// Server runs the status API in the background
type Server struct {
	httpServer *http.Server
}

func New(addr string, h *Handler) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           NewRouter(h),
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Start listens in a goroutine. Listen errors are logged.
func (s *Server) Start() {
	go func() {
		slog.Info("Status server listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Status server stopped", "error", err)
		}
	}()
}

// Shutdown stops accepting requests and waits for in-flight ones
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
