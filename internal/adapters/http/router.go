package httpadapter

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/webpage-chat/internal/core/domain"
	"github.com/kirillkom/webpage-chat/internal/core/ports"
	"github.com/kirillkom/webpage-chat/internal/observability/metrics"
)

const maxRequestBodyBytes = 64 << 10

// sessionCounter is implemented by session stores that can report their size.
type sessionCounter interface {
	Len() int
}

type Router struct {
	sessions ports.SessionService
	metrics  *metrics.HTTPServerMetrics
	service  string
}

func NewRouter(sessions ports.SessionService, metrics *metrics.HTTPServerMetrics, service string) *Router {
	if strings.TrimSpace(service) == "" {
		service = "webchat-api"
	}
	return &Router{
		sessions: sessions,
		metrics:  metrics,
		service:  service,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	if rt.metrics != nil {
		mux.Handle("GET /metrics", rt.metrics.Handler())
	}
	mux.HandleFunc("POST /v1/sessions", rt.createSession)
	mux.HandleFunc("GET /v1/sessions/{id}", rt.getSession)
	mux.HandleFunc("DELETE /v1/sessions/{id}", rt.endSession)
	mux.HandleFunc("POST /v1/sessions/{id}/url", rt.submitURL)
	mux.HandleFunc("POST /v1/sessions/{id}/questions", rt.askQuestion)
	mux.HandleFunc("POST /v1/sessions/{id}/clear", rt.clearSession)

	var handler http.Handler = mux
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(rt.service, handler)
	}
	return requestIDMiddleware(accessLogMiddleware(handler))
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) createSession(w http.ResponseWriter, r *http.Request) {
	snapshot, err := rt.sessions.Create(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	rt.observeSessions()
	writeJSON(w, http.StatusCreated, snapshot)
}

func (rt *Router) getSession(w http.ResponseWriter, r *http.Request) {
	snapshot, err := rt.sessions.Snapshot(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

func (rt *Router) endSession(w http.ResponseWriter, r *http.Request) {
	if err := rt.sessions.End(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	rt.observeSessions()
	w.WriteHeader(http.StatusNoContent)
}

func (rt *Router) submitURL(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL string `json:"url"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	start := time.Now()
	result, err := rt.sessions.SubmitURL(r.Context(), r.PathValue("id"), req.URL)
	if err != nil {
		if !domain.IsKind(err, domain.ErrInvalidInput) && !domain.IsKind(err, domain.ErrSessionNotFound) {
			rt.recordIndex("failed", 0, time.Since(start))
		}
		writeError(w, r, err)
		return
	}

	outcome := "indexed"
	if result.Ignored {
		outcome = "ignored"
	}
	rt.recordIndex(outcome, result.Passages, time.Since(start))
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) askQuestion(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Question string `json:"question"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	start := time.Now()
	answer, err := rt.sessions.Ask(r.Context(), r.PathValue("id"), req.Question)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordRAGObservation(rt.service, string(answer.Mode), len(answer.Sources), time.Since(start))
	}
	writeJSON(w, http.StatusOK, answer)
}

func (rt *Router) clearSession(w http.ResponseWriter, r *http.Request) {
	snapshot, err := rt.sessions.Clear(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

func (rt *Router) recordIndex(outcome string, passages int, duration time.Duration) {
	if rt.metrics == nil {
		return
	}
	rt.metrics.RecordIndexOutcome(rt.service, outcome, passages, duration)
}

func (rt *Router) observeSessions() {
	if rt.metrics == nil {
		return
	}
	if counter, ok := rt.sessions.(sessionCounter); ok {
		rt.metrics.SetActiveSessions(counter.Len())
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return domain.WrapError(domain.ErrInvalidInput, "decode request", errors.New("request body is required"))
		}
		return domain.WrapError(domain.ErrInvalidInput, "decode request", errors.New("invalid json"))
	}
	return nil
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := mapErrorToHTTPStatus(err)
	if status >= http.StatusInternalServerError {
		requestLogger(r).Error("http_handler_failed",
			"path", r.URL.Path,
			"status", status,
			"error", err,
		)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
