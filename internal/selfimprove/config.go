package selfimprove

import (
	"os"
	"strings"
)

// Config are the flags governing whether the engine accepts failures at
// all, and whether adaptation is allowed to do more than log.
type Config struct {
	// Enabled gates ingestion: when false, Submit is a no-op and creates
	// no backing file.
	Enabled bool
	// LiveApplyEnabled allows a non-logging adaptation engine to run.
	// Must default to false.
	LiveApplyEnabled bool
	// StorePath is the NDJSON file the repository appends to.
	StorePath string
	// RabbitMQURI, when non-empty, enables the best-effort publish of
	// accepted records to the phoenix.self_improve topic exchange.
	RabbitMQURI string
}

// ConfigFromEnv builds a Config from environment variables. It never
// panics: unparsable or absent values fall back to conservative defaults.
func ConfigFromEnv() Config {
	return Config{
		Enabled:          parseBoolVar("SELF_IMPROVE_ENABLED"),
		LiveApplyEnabled: parseBoolVar("SELF_IMPROVE_LIVE_APPLY"),
		StorePath:        envOrDefault("SELF_IMPROVE_STORE_PATH", "data/self-improve/records.ndjson"),
		RabbitMQURI:      os.Getenv("SELF_IMPROVE_RABBITMQ_URI"),
	}
}

// parseBoolVar implements the truthy set 1|true|yes|on, case-insensitive,
// defaulting to false for anything else including an unset variable.
func parseBoolVar(name string) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(name)))

	switch v {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

func envOrDefault(name, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		return v
	}

	return fallback
}
