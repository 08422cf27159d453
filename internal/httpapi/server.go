package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ariavoice/aria/internal/capture"
	"github.com/ariavoice/aria/internal/client"
	"github.com/ariavoice/aria/internal/config"
	"github.com/ariavoice/aria/internal/history"
	"github.com/ariavoice/aria/internal/observability"
	"github.com/ariavoice/aria/internal/persona"
	"github.com/ariavoice/aria/internal/transport"
)

// Server exposes the control surface for the voice client: session lifecycle,
// persona selection, the live transcript, and persisted history.
type Server struct {
	cfg      config.Config
	client   *client.Client
	personas *persona.Holder
	store    history.Store
	logger   *zap.Logger
}

func New(cfg config.Config, c *client.Client, personas *persona.Holder, store history.Store, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		cfg:      cfg,
		client:   c,
		personas: personas,
		store:    store,
		logger:   logger,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Get("/v1/session", s.handleSessionStatus)
	r.Get("/v1/session/latency", s.handleSessionLatency)
	r.Post("/v1/session/start", s.handleSessionStart)
	r.Post("/v1/session/stop", s.handleSessionStop)

	r.Get("/v1/persona", s.handleGetPersona)
	r.Put("/v1/persona", s.handlePutPersona)

	r.Get("/v1/transcript", s.handleGetTranscript)
	r.Delete("/v1/transcript", s.handleClearTranscript)

	r.Get("/v1/history", s.handleGetHistory)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"transport_mode": s.cfg.TransportMode,
	})
}

func (s *Server) handleSessionStatus(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, s.client.Snapshot())
}

func (s *Server) handleSessionLatency(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, s.client.Latency())
}

type startSessionRequest struct {
	Greeting string `json:"greeting"`
}

func (s *Server) handleSessionStart(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	err := s.client.Start(r.Context(), strings.TrimSpace(req.Greeting))
	switch {
	case err == nil:
		respondJSON(w, http.StatusOK, s.client.Snapshot())
	case errors.Is(err, client.ErrSessionActive):
		respondError(w, http.StatusConflict, "session_active", err.Error())
	case errors.Is(err, capture.ErrPermission):
		respondError(w, http.StatusForbidden, "mic_permission", err.Error())
	case errors.Is(err, transport.ErrConnect):
		respondError(w, http.StatusBadGateway, "connect_failed", err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "start_failed", err.Error())
	}
}

func (s *Server) handleSessionStop(w http.ResponseWriter, _ *http.Request) {
	s.client.Stop()
	respondJSON(w, http.StatusOK, s.client.Snapshot())
}

func (s *Server) handleGetPersona(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, s.personas.Current())
}

func (s *Server) handlePutPersona(w http.ResponseWriter, r *http.Request) {
	var p persona.Persona
	if err := decodeJSON(r, &p); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if err := s.personas.Set(p); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_persona", err.Error())
		return
	}
	// Takes effect on the next session start.
	respondJSON(w, http.StatusOK, s.personas.Current())
}

func (s *Server) handleGetTranscript(w http.ResponseWriter, _ *http.Request) {
	turns := s.client.Transcript()
	respondJSON(w, http.StatusOK, map[string]any{"turns": turns})
}

func (s *Server) handleClearTranscript(w http.ResponseWriter, _ *http.Request) {
	s.client.ClearTranscript()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	limit := s.cfg.HistoryLimit
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "invalid_request", "limit must be a positive integer")
			return
		}
		limit = n
	}

	turns, err := s.store.RecentTurns(r.Context(), limit)
	if err != nil {
		s.logger.Error("history query failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "history_failed", "could not load history")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"turns": turns})
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}
