package api

import (
	"context"
	"log/slog"
	"omiweather/app/config"
	"omiweather/app/service/assistant"
	"omiweather/app/service/weather"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/samber/do"
)

const shutdownTimeout = 10 * time.Second

var _ do.Shutdownable = (*Server)(nil)

type Assistant interface {
	Handle(ctx context.Context, req assistant.Request) (assistant.Result, error)
	ActiveSessions() int
}

type Server struct {
	addr       string
	app        *fiber.App
	assistant  Assistant
	forecaster assistant.Forecaster

	started time.Time
	now     func() time.Time

	shutdownOnce sync.Once
	shutdownErr  error
}

func New(di *do.Injector) (*Server, error) {
	cfg := do.MustInvoke[*config.Config](di)

	return NewServer(
		cfg.Server,
		do.MustInvoke[*assistant.Service](di),
		do.MustInvoke[*weather.Service](di),
		time.Now,
	), nil
}

func NewServer(cfg config.Server, assistantSvc Assistant, forecaster assistant.Forecaster, now func() time.Time) *Server {
	s := &Server{
		addr:       cfg.Addr,
		assistant:  assistantSvc,
		forecaster: forecaster,
		started:    now(),
		now:        now,
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "omiweather",
		ReadTimeout:           cfg.ReadTimeout,
		WriteTimeout:          cfg.WriteTimeout,
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})

	s.app.Use(recover.New())
	s.app.Use(requestLogger)

	s.app.Post("/webhook", s.handleWebhook)
	s.app.Get("/webhook/setup-status", s.handleSetupStatus)
	s.app.Get("/status", s.handleStatus)
	s.app.Get("/weather", s.handleWeather)

	return s
}

// Run blocks until the listener fails or Shutdown is called.
func (s *Server) Run() error {
	slog.Info("Webhook server listening", "addr", s.addr)

	return s.app.Listen(s.addr)
}

func (s *Server) Shutdown() error {
	s.shutdownOnce.Do(func() {
		s.shutdownErr = s.app.ShutdownWithTimeout(shutdownTimeout)
	})

	return s.shutdownErr
}
