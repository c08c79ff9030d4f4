// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/okian/salesbonus/internal/domain/backfill"
	"github.com/okian/salesbonus/internal/domain/model"
	"github.com/okian/salesbonus/internal/domain/types"
	"github.com/okian/salesbonus/pkg/logger"
	"github.com/okian/salesbonus/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Ingest queues a live message. It returns false with a nil error when the message is
	// filtered out.
	Ingest(ctx context.Context, msg model.Message) (bool, error)

	Report(ctx context.Context) (types.Report, error)
	Close(ctx context.Context) (types.Report, error)
	SetBonusRate(ctx context.Context, rate float64) error
	BonusRate() float64
	StartBackfill(ctx context.Context, req backfill.Request) (string, error)
	Status(ctx context.Context) types.Status
}

// Server wires HTTP routes for the business API.
type Server struct {
	deps  Dependencies
	stats StatsProvider

	adminTokens    []string
	corsOrigins    []string
	loc            *time.Location
	commandTimeout time.Duration
	now            func() time.Time
	logger         logger.Logger

	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	messagesHandler *MessagesHandler
	commandsHandler *CommandsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{
		deps:           deps,
		stats:          statsProvider,
		loc:            time.UTC,
		commandTimeout: 30 * time.Second,
		now:            time.Now,
		logger:         logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.healthHandler = NewHealthHandler()
	s.statsHandler = NewStatsHandler(statsProvider)
	s.messagesHandler = NewMessagesHandler(deps, s.now, s.logger)
	s.commandsHandler = NewCommandsHandler(deps, s.loc, s.logger)
	return s
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(chimw.RequestID)
	r.Use(RequestLogger(s.logger))
	r.Use(chimw.Recoverer)

	r.Get("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))
	if s.stats != nil {
		r.Get("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	}
	r.Post("/messages", MetricsMiddleware(s.messagesHandler.HandlePostMessage, "messages"))

	r.Route("/commands", func(r chi.Router) {
		if len(s.corsOrigins) > 0 {
			r.Use(cors.Handler(cors.Options{
				AllowedOrigins: s.corsOrigins,
				AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
				AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
				MaxAge:         300,
			}))
		}
		r.Use(chimw.Timeout(s.commandTimeout))
		r.Use(RequireAdmin(s.adminTokens))

		c := s.commandsHandler
		r.Get("/help", MetricsMiddleware(c.HandleHelp, "commands_help"))
		r.Get("/report", MetricsMiddleware(c.HandleReport, "commands_report"))
		r.Post("/close", MetricsMiddleware(c.HandleClose, "commands_close"))
		r.Put("/bonus-rate", MetricsMiddleware(c.HandleSetBonusRate, "commands_bonus_rate"))
		r.Post("/backfill", MetricsMiddleware(c.HandleBackfill, "commands_backfill"))
		r.Get("/status", MetricsMiddleware(c.HandleStatus, "commands_status"))
	})

	return r
}

type ackResponse struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
	JobID  string `json:"job_id,omitempty"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
