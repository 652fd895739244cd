// Package server espone la pipeline via HTTP con fiber
package server

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/biodoia/contentfactory/internal/agents"
	"github.com/biodoia/contentfactory/internal/factory"
	"github.com/biodoia/contentfactory/pkg/config"
	"github.com/biodoia/contentfactory/pkg/middleware"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Version è riportata da /health
var Version = "dev"

// Server è il server HTTP della content factory
type Server struct {
	config   config.ServerConfig
	service  *factory.Service
	app      *fiber.App
	gatherer prometheus.Gatherer
	metrics  bool
	started  time.Time
}

// Option configura il Server
type Option func(*Server)

// WithGatherer sostituisce il registry Prometheus servito da /metrics
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) { s.gatherer = g }
}

// New crea il server e registra middleware e route
func New(cfg *config.Config, svc *factory.Service, opts ...Option) *Server {
	s := &Server{
		config:   cfg.Server,
		service:  svc,
		gatherer: prometheus.DefaultGatherer,
		metrics:  cfg.Monitoring.Prometheus.Enabled,
		started:  time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.app = fiber.New(fiber.Config{
		AppName:      "Content Factory",
		ServerHeader: "ContentFactory",
		ErrorHandler: errorHandler,
		// la generazione può durare minuti
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.Server.RequestTimeout + 30*time.Second,
	})

	s.setupMiddlewares(cfg.Server.AllowedOrigins)
	s.setupRoutes()

	return s
}

// App restituisce l'applicazione fiber sottostante
func (s *Server) App() *fiber.App {
	return s.app
}

// errorHandler traduce gli errori della pipeline in status HTTP. Il corpo
// contiene solo l'errore, mai un risultato parziale.
func errorHandler(c fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	body := fiber.Map{
		"error":      "internal server error",
		"request_id": middleware.GetRequestID(c),
	}

	var (
		fe *fiber.Error
		ve *agents.PipelineValidationError
		ee *agents.PipelineExecutionError
	)
	switch {
	case errors.As(err, &fe):
		code = fe.Code
		body["error"] = fe.Message
	case errors.As(err, &ve):
		code = fiber.StatusBadRequest
		body["error"] = ve.Error()
	case errors.As(err, &ee):
		code = fiber.StatusBadGateway
		if errors.Is(err, context.DeadlineExceeded) {
			code = fiber.StatusGatewayTimeout
		}
		body["error"] = "pipeline execution failed"
		body["stage_id"] = ee.StageID
		body["stage"] = ee.StageName
		body["details"] = ee.Err.Error()
	case errors.Is(err, context.DeadlineExceeded):
		code = fiber.StatusGatewayTimeout
		body["error"] = "request timed out"
	}

	if code >= fiber.StatusInternalServerError {
		log.Error().
			Err(err).
			Str("request_id", middleware.GetRequestID(c)).
			Int("status", code).
			Msg("Request failed")
	}

	return c.Status(code).JSON(body)
}

// setupMiddlewares configura i middleware globali
func (s *Server) setupMiddlewares(origins []string) {
	// prima il request ID, così anche i panic lo riportano
	s.app.Use(middleware.RequestID())
	s.app.Use(middleware.Recovery())
	s.app.Use(middleware.CORS(middleware.CORSConfig{AllowedOrigins: origins}))
	s.app.Use(middleware.Logging(middleware.LoggingConfig{
		SkipPaths: []string{"/health", "/metrics"},
	}))
}

// setupRoutes configura le route HTTP
func (s *Server) setupRoutes() {
	s.app.Get("/health", s.handleHealth)

	if s.metrics {
		s.app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
	}

	v1 := s.app.Group("/v1")
	v1.Post("/generate", s.handleGenerate)
	v1.Get("/personas", s.handlePersonas)
}

// Start avvia il server; blocca fino allo shutdown
func (s *Server) Start() error {
	addr := s.config.Addr()
	log.Info().Str("addr", addr).Msg("Starting HTTP server")
	return s.app.Listen(addr, fiber.ListenConfig{DisableStartupMessage: true})
}

// Shutdown ferma il server attendendo le richieste in corso
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.app.ShutdownWithContext(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	log.Info().Msg("HTTP server stopped")
	return nil
}
