package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/couchcryptid/tide-notifier/internal/domain"
	"github.com/couchcryptid/tide-notifier/internal/notify"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Runner triggers a notification run on demand.
type Runner interface {
	RunOnce(ctx context.Context) (notify.Report, error)
}

// Server exposes health, readiness, metrics, and manual-run HTTP endpoints.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics and
// POST /runs routes. A nil runner disables /runs.
func NewServer(addr string, ready sharedobs.ReadinessChecker, runner Runner, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	if runner != nil {
		mux.HandleFunc("POST /runs", s.handleRun(runner))
	}

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

type runResponse struct {
	Day        string `json:"day"`
	Sent       bool   `json:"sent"`
	SkipReason string `json:"skip_reason,omitempty"`
	Severity   string `json:"severity,omitempty"`
	Level      int    `json:"level,omitempty"`
	Recipient  string `json:"recipient,omitempty"`
	Error      string `json:"error,omitempty"`
}

func (s *Server) handleRun(runner Runner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report, err := runner.RunOnce(r.Context())
		resp := runResponse{
			Sent:       report.Sent,
			SkipReason: report.SkipReason,
			Severity:   report.Severity.String(),
			Level:      report.Level,
			Recipient:  report.Subscriber.Email,
		}
		if !report.Day.IsZero() {
			resp.Day = report.Day.Format(domain.DateLayout)
		}
		if err != nil {
			s.logger.Warn("manual run failed", "error", err)
			resp.Error = err.Error()
			sharedobs.WriteJSON(w, runErrorStatus(err), resp)
			return
		}
		sharedobs.WriteJSON(w, http.StatusOK, resp)
	}
}

func runErrorStatus(err error) int {
	switch {
	case errors.Is(err, notify.ErrRunInProgress):
		return http.StatusConflict
	case errors.Is(err, domain.ErrSourceUnavailable), errors.Is(err, domain.ErrDeliveryFailed):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
