package http

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/aretw0/formwire/internal/logging"
	"github.com/aretw0/formwire/pkg/domain"
	"github.com/aretw0/formwire/pkg/ports"
)

//go:embed openapi.yaml
var rawSpec []byte

// MaxBodySize bounds request bodies.
const MaxBodySize = 64 << 10

var loadSpec = sync.OnceValues(func() (*openapi3.T, error) {
	doc, err := openapi3.NewLoader().LoadFromData(rawSpec)
	if err != nil {
		return nil, fmt.Errorf("load openapi spec: %w", err)
	}
	if err := doc.Validate(context.Background()); err != nil {
		return nil, fmt.Errorf("invalid openapi spec: %w", err)
	}
	return doc, nil
})

// Server exposes a Kernel over HTTP.
type Server struct {
	Kernel  ports.Kernel
	Streams *StreamManager

	spec    *openapi3.T
	logger  *slog.Logger
	version string
	locale  string
	metrics http.Handler
	ready   func(context.Context) error
}

var _ ServerInterface = (*Server)(nil)

// Option configures the Server.
type Option func(*Server)

// WithLogger configures a logger for the Server.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithVersion sets the version reported by /info.
func WithVersion(v string) Option {
	return func(s *Server) {
		s.version = strings.TrimSpace(v)
	}
}

// WithDefaultLocale sets the locale used when a request carries none.
func WithDefaultLocale(locale string) Option {
	return func(s *Server) {
		s.locale = locale
	}
}

// WithMetricsHandler mounts h on GET /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithReadiness makes /health report 503 while check fails.
func WithReadiness(check func(context.Context) error) Option {
	return func(s *Server) {
		s.ready = check
	}
}

// NewHandler creates the HTTP handler for the kernel.
func NewHandler(kernel ports.Kernel, opts ...Option) (http.Handler, error) {
	spec, err := loadSpec()
	if err != nil {
		return nil, err
	}
	s := &Server{
		Kernel:  kernel,
		Streams: NewStreamManager(),
		spec:    spec,
		logger:  logging.NewNop(),
		version: "dev",
		locale:  "en",
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(enableCORS)

	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		_, _ = w.Write(rawSpec)
	})
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}
	return HandlerWithOptions(s, ChiServerOptions{
		BaseRouter: r,
		ErrorHandlerFunc: func(w http.ResponseWriter, r *http.Request, err error) {
			writeError(w, http.StatusBadRequest, err.Error(), nil)
		},
	}), nil
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept-Language")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// decodeBody checks the JSON body against a component schema of the
// embedded document, then decodes it into v. It reports false after writing
// the error response.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, schema string, v any) bool {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodySize))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large", nil)
		return false
	}
	var value any
	if err := json.Unmarshal(body, &value); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", nil)
		return false
	}
	if ref := s.spec.Components.Schemas[schema]; ref != nil && ref.Value != nil {
		if err := ref.Value.VisitJSON(value); err != nil {
			s.logger.Debug("request rejected by schema", "schema", schema, "err", err)
			writeError(w, http.StatusBadRequest, "invalid request: "+firstLine(err.Error()), nil)
			return false
		}
	}
	if err := json.Unmarshal(body, v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", nil)
		return false
	}
	return true
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

type errorResponse struct {
	Error    string          `json:"error"`
	Retry    bool            `json:"retry,omitempty"`
	Commands json.RawMessage `json:"commands,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string, commands []byte) {
	writeJSON(w, status, errorResponse{Error: msg, Commands: commands})
}

// locale picks the first tag of Accept-Language; matching against the
// available catalogs is the translator's job.
func (s *Server) requestLocale(r *http.Request) string {
	h := r.Header.Get("Accept-Language")
	if h == "" {
		return s.locale
	}
	first := strings.TrimSpace(strings.SplitN(h, ",", 2)[0])
	if i := strings.IndexByte(first, ';'); i >= 0 {
		first = first[:i]
	}
	if first == "" || first == "*" {
		return s.locale
	}
	return first
}

// fail maps kernel errors onto HTTP statuses. Users never see raw internal
// messages: transient failures become a retry prompt and configuration
// errors a generic message.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error, commands []byte) {
	locale := s.requestLocale(r)
	switch {
	case domain.IsTransient(err):
		s.logger.Warn("transient failure", "path", r.URL.Path, "err", err)
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{
			Error: s.Kernel.Translate(locale, domain.KeyRetry),
			Retry: true,
		})
	case domain.IsConfiguration(err):
		s.logger.Error("configuration error", "path", r.URL.Path, "err", err)
		writeError(w, http.StatusInternalServerError, s.Kernel.Translate(locale, domain.KeyInternal), commands)
	case errors.Is(err, domain.ErrSessionNotFound),
		errors.Is(err, domain.ErrFormNotFound),
		errors.Is(err, domain.ErrFieldNotFound):
		writeError(w, http.StatusNotFound, err.Error(), nil)
	case errors.Is(err, domain.ErrUnknownEvent):
		writeError(w, http.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, s.Kernel.Translate(locale, domain.KeyRetry), nil)
	default:
		s.logger.Error("request failed", "path", r.URL.Path, "err", err)
		writeError(w, http.StatusInternalServerError, s.Kernel.Translate(locale, domain.KeyInternal), nil)
	}
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		if err := s.ready(r.Context()); err != nil {
			s.logger.Warn("health check failed", "err", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	apiVersion := "unknown"
	if s.spec.Info != nil {
		apiVersion = s.spec.Info.Version
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"app":         "formwire-http",
		"version":     s.version,
		"api_version": apiVersion,
	})
}

// ListForms handles the GET /forms request.
func (s *Server) ListForms(w http.ResponseWriter, r *http.Request) {
	forms, err := s.Kernel.Forms()
	if err != nil {
		s.fail(w, r, err, nil)
		return
	}
	if forms == nil {
		forms = []string{}
	}
	writeJSON(w, http.StatusOK, FormList{Forms: forms})
}

type openSessionResponse struct {
	SessionID string          `json:"session_id"`
	Commands  json.RawMessage `json:"commands"`
}

// OpenSession handles the POST /sessions request.
func (s *Server) OpenSession(w http.ResponseWriter, r *http.Request) {
	var body OpenSessionJSONRequestBody
	if !s.decodeBody(w, r, "OpenSessionRequest", &body) {
		return
	}
	locale := s.requestLocale(r)
	if body.Locale != nil && *body.Locale != "" {
		locale = *body.Locale
	}

	id, payload, err := s.Kernel.Open(r.Context(), body.FormId, locale)
	if err != nil {
		s.fail(w, r, err, payload)
		return
	}
	s.logger.Info("session opened", "session_id", id, "form_id", body.FormId, "locale", locale)
	writeJSON(w, http.StatusCreated, openSessionResponse{SessionID: id, Commands: payload})
}

// CloseSession handles the DELETE /sessions/{sessionId} request.
func (s *Server) CloseSession(w http.ResponseWriter, r *http.Request, id SessionId) {
	if err := s.Kernel.Close(r.Context(), id); err != nil {
		s.fail(w, r, err, nil)
		return
	}
	s.Streams.Close(id)
	w.WriteHeader(http.StatusNoContent)
}

// SubmitEvent handles the POST /sessions/{sessionId}/events request. The
// response body is the command list exactly as dispatched.
func (s *Server) SubmitEvent(w http.ResponseWriter, r *http.Request, id SessionId) {
	var body SubmitEventJSONRequestBody
	if !s.decodeBody(w, r, "EventRequest", &body) {
		return
	}

	payload, err := s.Kernel.SubmitEvent(r.Context(), id, body.FieldId, body.Value)
	if err != nil {
		s.fail(w, r, err, payload)
		return
	}
	s.Streams.Broadcast(id, string(payload))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}

// StreamSession handles the GET /sessions/{sessionId}/stream request (SSE):
// every command list dispatched for the session is pushed to subscribers,
// so other tabs of the same session stay in sync.
func (s *Server) StreamSession(w http.ResponseWriter, r *http.Request, id SessionId) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported", nil)
		return
	}
	if _, err := s.Kernel.Snapshot(r.Context(), id); err != nil {
		s.fail(w, r, err, nil)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, cancel := s.Streams.Subscribe(id)
	defer cancel()

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-ch:
			if !ok {
				fmt.Fprintf(w, "event: closed\ndata: %s\n\n", id)
				flusher.Flush()
				return
			}
			fmt.Fprintf(w, "event: commands\ndata: %s\n\n", msg)
			flusher.Flush()
		}
	}
}
