package selfimprove

import (
	"context"

	"github.com/LerianStudio/midaz/common/mlog"
)

// AdaptationResult reports whether an adaptation engine actually mutated
// any live prompt/config, as opposed to merely proposing one.
type AdaptationResult struct {
	Applied bool
	Summary string
}

// AdaptationEngine reacts to a persisted ErrorRecord. The default engine
// only logs a proposed change; a future engine may mutate live
// prompts/configs, but only once live-apply has been explicitly enabled.
type AdaptationEngine interface {
	Apply(ctx context.Context, record ErrorRecord) (AdaptationResult, error)
}

// LoggingAdaptationEngine is the conservative default: it never mutates
// anything and always reports Applied=false.
type LoggingAdaptationEngine struct {
	logger mlog.Logger
}

// NewLoggingAdaptationEngine wires a LoggingAdaptationEngine against logger.
func NewLoggingAdaptationEngine(logger mlog.Logger) *LoggingAdaptationEngine {
	return &LoggingAdaptationEngine{logger: logger}
}

// Apply implements AdaptationEngine.
func (e *LoggingAdaptationEngine) Apply(_ context.Context, record ErrorRecord) (AdaptationResult, error) {
	e.logger.WithFields(
		"request_id", record.RequestID,
		"error_category", record.ErrorCategory,
		"proposed_corrections", record.ProposedCorrections,
	).Info("self-improvement proposed correction recorded; no live mutation applied")

	return AdaptationResult{Applied: false, Summary: "logged proposed correction; live-apply disabled"}, nil
}

// defaultEngine selects the adaptation engine for a configuration. No
// live-mutating engine ships with this package yet, so the logging engine
// is returned either way; when a mutating engine is added it plugs in here
// behind liveApplyEnabled instead of unconditionally. Until then, a
// deployment that set the flag expecting live mutation is warned that it's
// getting the logging engine instead of failing silently into it.
func defaultEngine(liveApplyEnabled bool, logger mlog.Logger) AdaptationEngine {
	if liveApplyEnabled {
		logger.Warn("self-improvement live-apply is enabled but no live-mutating engine is registered; falling back to the logging engine")
	}

	return NewLoggingAdaptationEngine(logger)
}
