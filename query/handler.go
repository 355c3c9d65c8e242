package query

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"learnon/services"
)

type AskRequest struct {
	Question string `json:"question"`
}

type ScheduleResponse struct {
	Teacher string     `json:"teacher,omitempty"`
	Mode    string     `json:"mode,omitempty"`
	Data    []Schedule `json:"data"`
	Error   string     `json:"error,omitempty"`
}

// Handler serves the timetable lookups over HTTP.
type Handler struct {
	Lookup      *Lookup
	Extractor   services.TeacherExtractor
	AllowUnsafe bool
	Logger      *slog.Logger
}

type ctxKey struct{}

// Routes registers the handler's endpoints on a new mux.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", h.handleHealth)
	mux.HandleFunc("/schedule", h.handleSchedule)
	mux.HandleFunc("/schedule/unsafe", h.handleUnsafeSchedule)
	mux.HandleFunc("/ask", h.handleAsk)
	return h.withRequestID(mux)
}

func (h *Handler) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		logger := h.logger().With("request_id", id)
		logger.Debug("request", "method", r.Method, "path", r.URL.Path)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, logger)))
	})
}

func (h *Handler) logger() *slog.Logger {
	if h.Logger == nil {
		return slog.Default()
	}
	return h.Logger
}

func requestLogger(r *http.Request) *slog.Logger {
	if l, ok := r.Context().Value(ctxKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleSchedule(w http.ResponseWriter, r *http.Request) {
	h.serveLookup(w, r, "safe", h.Lookup.Safe)
}

func (h *Handler) handleUnsafeSchedule(w http.ResponseWriter, r *http.Request) {
	if !h.AllowUnsafe {
		http.NotFound(w, r)
		return
	}
	h.serveLookup(w, r, "unsafe", h.Lookup.Unsafe)
}

func (h *Handler) serveLookup(w http.ResponseWriter, r *http.Request, mode string,
	lookup func(context.Context, string) ([]Schedule, error)) {
	if r.Method != http.MethodGet {
		writeJSON(w, r, http.StatusMethodNotAllowed, ScheduleResponse{Error: "only GET method is allowed"})
		return
	}

	values := r.URL.Query()
	if !values.Has("teacher") {
		writeJSON(w, r, http.StatusBadRequest, ScheduleResponse{Error: "teacher is required"})
		return
	}
	teacher := values.Get("teacher")

	h.respond(w, r, mode, teacher, lookup)
}

func (h *Handler) handleAsk(w http.ResponseWriter, r *http.Request) {
	if h.Extractor == nil {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodPost {
		writeJSON(w, r, http.StatusMethodNotAllowed, ScheduleResponse{Error: "only POST method is allowed"})
		return
	}

	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, r, http.StatusBadRequest, ScheduleResponse{Error: "invalid request body"})
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeJSON(w, r, http.StatusBadRequest, ScheduleResponse{Error: "question is required"})
		return
	}

	teacher, err := h.Extractor.ExtractTeacher(r.Context(), req.Question)
	if err != nil {
		if errors.Is(err, services.ErrNoTeacher) {
			writeJSON(w, r, http.StatusUnprocessableEntity, ScheduleResponse{Error: "no teacher found in question"})
			return
		}
		requestLogger(r).Error("teacher extraction failed", "error", err)
		writeJSON(w, r, http.StatusBadGateway, ScheduleResponse{Error: "teacher extraction failed"})
		return
	}

	h.respond(w, r, "safe", teacher, h.Lookup.Safe)
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, mode, teacher string,
	lookup func(context.Context, string) ([]Schedule, error)) {
	logger := requestLogger(r)

	data, err := lookup(r.Context(), teacher)
	if err != nil {
		logger.Error("schedule lookup failed", "mode", mode, "error", err)
		writeJSON(w, r, http.StatusInternalServerError, ScheduleResponse{Mode: mode, Error: "error executing query"})
		return
	}

	logger.Info("schedule lookup", "mode", mode, "rows", len(data))
	writeJSON(w, r, http.StatusOK, ScheduleResponse{Teacher: teacher, Mode: mode, Data: data})
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		requestLogger(r).Error("failed to encode response", "error", err)
	}
}
