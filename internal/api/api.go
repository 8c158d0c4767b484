package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"fleet_console/internal/config"
	"fleet_console/internal/console"
	"fleet_console/internal/domain"
)

type Console interface {
	Dataset() domain.Dataset
	Script() domain.Script
	Snapshot() domain.PlayerSnapshot
	StartWorkflow() domain.PlayerSnapshot
	PauseWorkflow() domain.PlayerSnapshot
	ResetWorkflow() domain.PlayerSnapshot
	AdvanceWorkflow() domain.PlayerSnapshot
	Journal(ctx context.Context, runID string, limit int) ([]domain.JournalEntry, error)
	Runs(ctx context.Context, limit int) ([]domain.RunSummary, error)
	Subscribe(subscriberID string) <-chan domain.PlayerEvent
	Unsubscribe(subscriberID string)
}

type Server struct {
	console Console
	cfg     config.Config
	logger  zerolog.Logger
}

func New(c Console, cfg config.Config, logger zerolog.Logger) *Server {
	return &Server{
		console: c,
		cfg:     cfg,
		logger:  logger.With().Str("component", "api").Logger(),
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/config", s.handleConfig)
	mux.HandleFunc("/dashboard", s.handleDashboard)
	mux.HandleFunc("/dashboard/", s.handleDashboardSection)
	mux.HandleFunc("/workflow", s.handleWorkflow)
	mux.HandleFunc("/workflow/events", s.handleEvents)
	mux.HandleFunc("/workflow/", s.handleWorkflowAction)
	return s.loggingMiddleware(mux)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleConfig(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"path": s.cfg.Path,
		"raw":  s.cfg.Raw,
	})
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.console.Dataset())
}

func (s *Server) handleDashboardSection(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	section := strings.Trim(strings.TrimPrefix(r.URL.Path, "/dashboard/"), "/")
	data := s.console.Dataset()
	switch section {
	case "":
		writeJSON(w, http.StatusOK, data)
	case "stats":
		writeJSON(w, http.StatusOK, data.Stats)
	case "orders":
		writeJSON(w, http.StatusOK, data.Orders)
	case "clusters":
		writeJSON(w, http.StatusOK, data.Clusters)
	case "routes":
		writeJSON(w, http.StatusOK, data.Routes)
	case "drivers":
		writeJSON(w, http.StatusOK, data.Drivers)
	case "tracking":
		writeJSON(w, http.StatusOK, data.Tracking)
	case "charts":
		writeJSON(w, http.StatusOK, data.Charts)
	default:
		writeError(w, http.StatusNotFound, fmt.Errorf("unknown dashboard section: %s", section))
	}
}

func (s *Server) handleWorkflow(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.console.Snapshot())
}

func (s *Server) handleWorkflowAction(w http.ResponseWriter, r *http.Request) {
	action := strings.Trim(strings.TrimPrefix(r.URL.Path, "/workflow/"), "/")
	switch action {
	case "":
		s.handleWorkflow(w, r)
	case "start", "pause", "reset", "advance":
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var snap domain.PlayerSnapshot
		switch action {
		case "start":
			snap = s.console.StartWorkflow()
		case "pause":
			snap = s.console.PauseWorkflow()
		case "advance":
			snap = s.console.AdvanceWorkflow()
		default:
			snap = s.console.ResetWorkflow()
		}
		writeJSON(w, http.StatusOK, snap)
	case "script":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, http.StatusOK, s.console.Script())
	case "journal":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		limit := queryInt(r, "limit", 200)
		items, err := s.console.Journal(r.Context(), r.URL.Query().Get("run"), limit)
		if err != nil {
			writeError(w, journalStatus(err), err)
			return
		}
		writeJSON(w, http.StatusOK, items)
	case "runs":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		limit := queryInt(r, "limit", 50)
		items, err := s.console.Runs(r.Context(), limit)
		if err != nil {
			writeError(w, journalStatus(err), err)
			return
		}
		writeJSON(w, http.StatusOK, items)
	default:
		writeError(w, http.StatusNotFound, fmt.Errorf("unknown action: %s", action))
	}
}

func journalStatus(err error) int {
	if errors.Is(err, console.ErrJournalDisabled) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]any{
		"error": err.Error(),
	})
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}

// loggingMiddleware leaves the ResponseWriter unwrapped so websocket upgrades
// can still hijack the connection.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("took", time.Since(start)).
			Msg("http request")
	})
}

func queryInt(r *http.Request, key string, def int) int {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return def
	}
	return v
}
