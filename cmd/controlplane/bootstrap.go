package main

import (
	"context"
	"fmt"

	"github.com/LerianStudio/midaz/common/mlog"
	"github.com/LerianStudio/midaz/common/mmongo"
	"github.com/LerianStudio/midaz/common/mopentelemetry"
	"github.com/LerianStudio/midaz/common/mpostgres"
	"github.com/LerianStudio/midaz/common/mrabbitmq"
	"github.com/LerianStudio/midaz/common/mzap"
	commonHTTP "github.com/LerianStudio/midaz/common/net/http"
	"github.com/LerianStudio/midaz/internal/actionledger"
	"github.com/LerianStudio/midaz/internal/datarouter"
	"github.com/LerianStudio/midaz/internal/selfimprove"
	"github.com/LerianStudio/midaz/internal/server"
	"github.com/LerianStudio/midaz/pkg/mcircuitbreaker"
	"github.com/LerianStudio/midaz/pkg/mresilience"
	"github.com/LerianStudio/midaz/pkg/mretry"
)

// Service is the application glue: every top-level component the
// launcher needs to run lives behind it, same shape as the teacher's own
// bootstrap.Service.
type Service struct {
	*server.Server
	mlog.Logger
	telemetry *mopentelemetry.Telemetry
}

// Shutdown flushes the logger and tears down the telemetry providers.
// Called once, after the launcher's blocking Run returns.
func (s *Service) Shutdown() {
	s.telemetry.ShutdownTelemetry()
	_ = s.Logger.Sync()
}

// initServers wires C1-C5 and the shared fiber transport into a runnable
// Service. It fails fast on anything that genuinely cannot proceed
// without a dependency (a required connection string missing, Postgres
// or Mongo refusing to connect); components that are meant to degrade
// gracefully (self-improvement's RabbitMQ publish, the ledger's Postgres
// index) are wired as best-effort exactly as their own packages already
// model.
func initServers() (*Service, error) {
	cfg := newConfig()

	logger := mzap.InitializeLogger()

	telemetry := (&mopentelemetry.Telemetry{
		LibraryName:               cfg.OtelLibraryName,
		ServiceName:               cfg.OtelServiceName,
		ServiceVersion:            cfg.OtelServiceVersion,
		DeploymentEnv:             cfg.OtelDeploymentEnv,
		CollectorExporterEndpoint: cfg.OtelColExporterEndpoint,
	}).InitializeTelemetry()

	resilience := mresilience.New(mcircuitbreaker.DefaultConfig, mretry.DefaultConfig())

	ledger, err := initActionLedger(cfg, resilience, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize action ledger: %w", err)
	}

	router, err := initDataRouter(cfg, resilience, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize data router: %w", err)
	}

	improver, err := initSelfImprover(logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize self-improvement engine: %w", err)
	}

	app := server.NewFiberApp(telemetry, logger)

	jwt := commonHTTP.NewJWTMiddleware(cfg.JWKSURI)

	actionledger.NewHandler(ledger).RegisterRoutes(app.Group("/v1/ledger", jwt.Protect()))
	datarouter.NewHandler(router).RegisterRoutes(app.Group("/v1/kb", jwt.Protect()))
	selfimprove.NewHandler(improver).RegisterRoutes(app)

	srv := server.New(app, cfg.ServerAddress(), logger)

	return &Service{Server: srv, Logger: logger, telemetry: telemetry}, nil
}

// initActionLedger wires C3: the authoritative encrypted file always
// comes up; the Postgres sidecar index only if a DSN is configured, and
// its failure to connect is fatal (unlike a failure to write a row,
// which stays best-effort inside Index itself) since an operator who
// configured a DSN clearly wants the index available.
func initActionLedger(cfg *Config, resilience *mresilience.Resilience, logger mlog.Logger) (*actionledger.Ledger, error) {
	fileLedger, err := actionledger.New(actionledger.ConfigFromEnv())
	if err != nil {
		return nil, err
	}

	var index *actionledger.Index

	if cfg.PostgresConnectionStringPrimary != "" {
		pg := &mpostgres.PostgresConnection{
			ConnectionStringPrimary: cfg.PostgresConnectionStringPrimary,
			ConnectionStringReplica: cfg.PostgresConnectionStringReplica,
			Schema:                  actionledger.IndexSchema,
		}

		if pg.ConnectionStringReplica == "" {
			pg.ConnectionStringReplica = pg.ConnectionStringPrimary
		}

		if err := pg.Connect(); err != nil {
			return nil, fmt.Errorf("ledger index postgres connect: %w", err)
		}

		index = actionledger.NewIndex(pg, resilience)
	}

	return actionledger.NewLedger(fileLedger, index, logger), nil
}

// initDataRouter wires C4: ScopeManager starts unseeded (principals are
// admitted exclusively through RegisterAgent, either at startup by an
// operator script or at runtime over the admin HTTP route) against a
// MongoDB-backed KBStore. Unlike the ledger's Postgres index or
// self-improvement's RabbitMQ publish, the knowledge base itself is not
// an optional side channel — a data router with no store behind it
// cannot serve any of its three operations, so a missing or unreachable
// Mongo deployment fails process startup outright.
func initDataRouter(cfg *Config, resilience *mresilience.Resilience, logger mlog.Logger) (*datarouter.Router, error) {
	if cfg.MongoURI == "" {
		return nil, fmt.Errorf("KB_MONGO_URI is required")
	}

	mongoConn := &mmongo.MongoConnection{
		ConnectionStringSource: cfg.MongoURI,
		Database:               cfg.MongoDB,
	}

	if err := mongoConn.Connect(context.Background()); err != nil {
		return nil, fmt.Errorf("knowledge base mongo connect: %w", err)
	}

	scopes := datarouter.NewScopeManager(nil)
	store := datarouter.NewMongoKBStore(mongoConn, resilience)

	return datarouter.NewRouter(scopes, store, logger), nil
}

// initSelfImprover wires C5. RabbitMQ is dialed only when a URI is
// configured; like the Postgres index, a failure to connect to a
// best-effort broker does not prevent self-improvement ingest from
// running in file-only mode. On a dial failure selfCfg.RabbitMQURI is
// cleared, not just the local variable, so selfimprove.New never wraps a
// nil *mrabbitmq.RabbitMQConnection into a non-nil interface value (a nil
// interface, not a nil pointer behind one, is what FileBackedRepository's
// "rabbit != nil" check actually needs).
func initSelfImprover(logger mlog.Logger) (*selfimprove.SelfImprover, error) {
	selfCfg := selfimprove.ConfigFromEnv()

	var rabbit *mrabbitmq.RabbitMQConnection

	if selfCfg.RabbitMQURI != "" {
		rabbit = &mrabbitmq.RabbitMQConnection{
			ConnectionStringSource: selfCfg.RabbitMQURI,
			Logger:                 logger,
		}

		if err := rabbit.Connect(context.Background()); err != nil {
			logger.WithFields("error", err.Error()).Warn("self-improvement rabbitmq connect failed; continuing in file-only mode")
			rabbit = nil
			selfCfg.RabbitMQURI = ""
		}
	}

	if rabbit == nil {
		return selfimprove.New(selfCfg, nil, logger)
	}

	return selfimprove.New(selfCfg, rabbit, logger)
}
