package main

import (
	"github.com/LerianStudio/midaz/common"
)

// Config is the top level configuration for the control-plane process,
// populated from the environment by common.SetConfigFromEnvVars. The
// pieces owned directly by C3/C5 (ledger encryption key, self-improve
// flags) are loaded by those packages' own ConfigFromEnv instead of
// duplicated here.
type Config struct {
	HTTPPort string `env:"HTTP_PORT"`
	LogLevel string `env:"LOG_LEVEL"`

	OtelLibraryName         string `env:"OTEL_LIBRARY_NAME"`
	OtelServiceName         string `env:"OTEL_RESOURCE_SERVICE_NAME"`
	OtelServiceVersion      string `env:"OTEL_RESOURCE_SERVICE_VERSION"`
	OtelDeploymentEnv       string `env:"OTEL_RESOURCE_DEPLOYMENT_ENVIRONMENT"`
	OtelColExporterEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`

	PostgresConnectionStringPrimary string `env:"LEDGER_INDEX_POSTGRES_DSN"`
	PostgresConnectionStringReplica string `env:"LEDGER_INDEX_POSTGRES_REPLICA_DSN"`

	MongoURI string `env:"KB_MONGO_URI"`
	MongoDB  string `env:"KB_MONGO_DATABASE"`

	RabbitMQURI string `env:"SELF_IMPROVE_RABBITMQ_URI"`

	JWKSURI string `env:"JWT_JWKS_URI"`
}

// newConfig loads Config from the environment. SetConfigFromEnvVars
// always assigns from os.Getenv for string fields (even when unset, to
// ""), so defaults are applied afterward rather than as zero values on
// the struct literal.
func newConfig() *Config {
	cfg := common.EnsureConfigFromEnvVars(&Config{}).(*Config)

	if cfg.HTTPPort == "" {
		cfg.HTTPPort = "8080"
	}

	return cfg
}

// ServerAddress returns the fiber listen address derived from HTTPPort.
func (c *Config) ServerAddress() string {
	return ":" + c.HTTPPort
}
