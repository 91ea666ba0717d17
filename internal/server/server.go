// Package server wires the HTTP transport for the control-plane process:
// a fiber.App exposing the action ledger, data router and
// self-improvement surfaces, started and stopped through common.Launcher
// like every other deployable component in this module.
package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/LerianStudio/midaz/common"
	"github.com/LerianStudio/midaz/common/mlog"
	"github.com/LerianStudio/midaz/common/mopentelemetry"
	commonHTTP "github.com/LerianStudio/midaz/common/net/http"
	"github.com/gofiber/fiber/v2"
)

// Server is a common.App running a single fiber.App over HTTP until the
// process receives an interrupt/terminate signal, at which point it drains
// in-flight requests before returning.
type Server struct {
	app           *fiber.App
	serverAddress string
	logger        mlog.Logger
}

// New builds a Server. app is expected to already have every route group
// mounted (action ledger, data router, self-improvement ingest).
func New(app *fiber.App, serverAddress string, logger mlog.Logger) *Server {
	return &Server{app: app, serverAddress: serverAddress, logger: logger}
}

// ServerAddress returns the configured listen address.
func (s *Server) ServerAddress() string {
	return s.serverAddress
}

// Run implements common.App. It blocks until the process is signaled to
// stop, then shuts the fiber app down gracefully.
func (s *Server) Run(_ *common.Launcher) error {
	errCh := make(chan error, 1)

	go func() {
		s.logger.Infof("HTTP server listening on %s", s.serverAddress)
		errCh <- s.app.Listen(s.serverAddress)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-sigCh:
		s.logger.Info("shutdown signal received, draining in-flight requests")

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		return s.app.ShutdownWithContext(ctx)
	}
}

// NewFiberApp constructs the fiber.App shared by every route group, wiring
// the sanitizer-backed error renderer as the app-wide ErrorHandler and the
// same middleware chain the teacher mounts on its own unified server:
// tracing, CORS, correlation id, then access logging.
func NewFiberApp(telemetry *mopentelemetry.Telemetry, logger mlog.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return commonHTTP.WithError(c, err)
		},
	})

	tlMid := commonHTTP.NewTelemetryMiddleware(telemetry)
	app.Use(tlMid.WithTelemetry(telemetry))
	commonHTTP.AllowFullOptionsWithCORS(app)
	app.Use(commonHTTP.WithCorrelationID())
	app.Use(commonHTTP.WithHTTPLogging(commonHTTP.WithCustomLogger(logger)))

	app.Get("/health", commonHTTP.Ping)

	app.Use(tlMid.EndTracingSpans)

	return app
}
