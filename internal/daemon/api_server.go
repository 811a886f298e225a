package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/gorilla/handlers"

	"github.com/iabdelrhmaneyad/Gemini-3-Flash-sub001/internal/api"
	"github.com/iabdelrhmaneyad/Gemini-3-Flash-sub001/internal/ingest"
	"github.com/iabdelrhmaneyad/Gemini-3-Flash-sub001/internal/logging"
	"github.com/iabdelrhmaneyad/Gemini-3-Flash-sub001/internal/services"
	"github.com/iabdelrhmaneyad/Gemini-3-Flash-sub001/internal/sessions"
)

const (
	maxUploadBytes   = 64 << 20
	maxUploadMemory  = 16 << 20
	requestIDHeader  = "X-Request-ID"
	longPollDeadline = 25 * time.Second
)

type apiServer struct {
	bind     string
	logger   *slog.Logger
	daemon   *Daemon
	sessions *api.SessionService
	handler  http.Handler

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server
	// streamCtx ends every event stream when the daemon stops; hijacked
	// websocket connections are not closed by Shutdown.
	streamCtx context.Context
}

func newAPIServer(bind string, d *Daemon, logger *slog.Logger) *apiServer {
	s := &apiServer{
		bind:      strings.TrimSpace(bind),
		logger:    logging.NewComponentLogger(logger, "api-server"),
		daemon:    d,
		sessions:  api.NewSessionService(d.workflow),
		streamCtx: context.Background(),
	}
	s.handler = s.routes()
	return s
}

func (s *apiServer) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(s.accessLog)

	r.Get("/api/status", s.handleStatus)
	r.Get("/api/sessions", s.handleListSessions)
	r.Post("/api/sessions/upload", s.handleUpload)
	r.Get("/api/sessions/{id}", s.handleGetSession)
	r.Delete("/api/sessions/{id}", s.handleRemoveSession)
	r.Post("/api/sessions/{id}/retry", s.handleRetry)
	r.Post("/api/sessions/{id}/audit", s.handleAudit)
	r.Post("/api/reset", s.handleReset)
	r.Get("/api/events", s.handleEvents)

	recovered := handlers.RecoveryHandler(
		handlers.RecoveryLogger(recoveryLogger{s.logger}),
		handlers.PrintRecoveryStack(false),
	)(r)
	return handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type", requestIDHeader}),
	)(recovered)
}

func (s *apiServer) start(ctx context.Context) error {
	if s.bind == "" {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	server := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	s.mu.Lock()
	s.listener = listener
	s.server = server
	s.streamCtx = ctx
	s.mu.Unlock()

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()
	s.logger.Info("api server listening",
		logging.String("address", listener.Addr().String()),
		logging.String(logging.FieldEventType, "api_listening"),
	)
	return nil
}

func (s *apiServer) stop() {
	s.mu.Lock()
	server := s.server
	s.server = nil
	s.listener = nil
	s.mu.Unlock()
	if server == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
}

func (s *apiServer) addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) currentStreamCtx() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streamCtx
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := s.daemon.Status(r.Context())
	s.writeJSON(w, http.StatusOK, api.DaemonStatus{
		Running:      status.Running,
		PID:          status.PID,
		DatabasePath: status.DatabasePath,
		LockFilePath: status.LockFilePath,
		Workflow:     api.FromStatusSummary(status.Workflow),
		Dependencies: api.FromPreflight(status.Workflow.Dependencies),
	})
}

func (s *apiServer) handleListSessions(w http.ResponseWriter, r *http.Request) {
	filters, err := api.ParseLifecycles(r.URL.Query()["status"])
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	items, err := s.sessions.List(r.Context(), filters...)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.SessionListResponse{Sessions: items})
}

func (s *apiServer) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	session, err := s.sessions.Describe(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if session == nil {
		s.writeError(w, http.StatusNotFound, "session "+id+" not found")
		return
	}
	s.writeJSON(w, http.StatusOK, api.SessionResponse{Session: *session})
}

func (s *apiServer) handleRemoveSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	removed, err := s.daemon.workflow.Remove(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if !removed {
		s.writeError(w, http.StatusNotFound, "session "+id+" not found")
		return
	}
	s.writeJSON(w, http.StatusOK, api.RemoveResponse{Removed: true})
}

func (s *apiServer) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid upload: "+err.Error())
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "missing form file \"file\"")
		return
	}
	defer file.Close()

	rows, err := ingest.ReadUpload(header.Filename, file)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, ingest.ErrUnsupportedFormat) {
			status = http.StatusUnsupportedMediaType
		}
		s.writeError(w, status, err.Error())
		return
	}
	// A client disconnect must not leave a half-applied batch.
	summary, err := s.daemon.workflow.Ingest(context.WithoutCancel(r.Context()), rows)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.logger.Info("upload ingested",
		logging.String("file", header.Filename),
		logging.Int("rows", len(rows)),
		logging.Int("added", summary.Added),
		logging.Int("queued", summary.Queued),
		logging.String(logging.FieldEventType, "upload_ingested"),
	)
	s.writeJSON(w, http.StatusOK, api.FromIngestSummary(summary))
}

func (s *apiServer) handleRetry(w http.ResponseWriter, r *http.Request) {
	session, err := s.daemon.workflow.Retry(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.SessionResponse{Session: api.FromSession(session)})
}

func (s *apiServer) handleAudit(w http.ResponseWriter, r *http.Request) {
	var req api.AuditRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid audit payload: "+err.Error())
		return
	}
	session, err := s.daemon.workflow.Audit(r.Context(), chi.URLParam(r, "id"), sessions.Audit{
		Comments: strings.TrimSpace(req.Comments),
		Approved: req.Approved,
		Status:   strings.TrimSpace(req.Status),
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.SessionResponse{Session: api.FromSession(session)})
}

func (s *apiServer) handleReset(w http.ResponseWriter, r *http.Request) {
	s.daemon.workflow.Reset()
	s.writeJSON(w, http.StatusOK, api.MessageResponse{Message: "pipelines reset"})
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, api.ErrorResponse{Error: message})
}

// writeServiceError maps workflow error markers onto HTTP status codes.
func (s *apiServer) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrValidation):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		attrs := append(logging.ErrorAttrs(err), logging.String(logging.FieldEventType, "api_error"))
		logging.WithContext(r.Context(), s.logger).Error("api request failed", logging.Args(attrs...)...)
	}
	s.writeError(w, status, services.FailureMessage(err))
}

// requestID tags each request with a correlation id, honoring one supplied
// by the caller.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(services.WithRequestID(r.Context(), id)))
	})
}

func (s *apiServer) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		logging.WithContext(r.Context(), s.logger).Debug("api request",
			logging.String("method", r.Method),
			logging.String("path", r.URL.Path),
			logging.Int("status", ww.Status()),
			logging.Duration("duration", time.Since(start)),
		)
	})
}

// recoveryLogger adapts slog to the gorilla recovery handler.
type recoveryLogger struct {
	logger *slog.Logger
}

func (l recoveryLogger) Println(v ...any) {
	logging.ErrorWithContext(l.logger, "api handler panicked", "api_panic",
		logging.String("panic", fmt.Sprint(v...)),
		logging.String(logging.FieldErrorHint, "report this as a bug"),
	)
}
