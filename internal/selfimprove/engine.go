package selfimprove

import (
	"context"

	"github.com/LerianStudio/midaz/common/mlog"
)

// SelfImprover is the core self-improvement engine: it classifies an
// incoming CriticalFailure, persists the resulting ErrorRecord, and hands
// it to an adaptation engine. Every step is designed to never panic.
type SelfImprover struct {
	cfg        Config
	repo       ErrorRecordRepository
	classifier FailureClassifier
	adaptation AdaptationEngine
	logger     mlog.Logger
}

// New constructs a SelfImprover from cfg. When cfg.Enabled is false, the
// returned engine's Submit is a no-op and no repository is constructed, so
// no backing file is ever created.
func New(cfg Config, rabbit mrabbitmqConnector, logger mlog.Logger) (*SelfImprover, error) {
	engine := &SelfImprover{
		cfg:        cfg,
		classifier: HeuristicFailureClassifier{},
		adaptation: defaultEngine(cfg.LiveApplyEnabled, logger),
		logger:     logger,
	}

	if !cfg.Enabled {
		return engine, nil
	}

	var rabbitConn mrabbitmqConnector
	if cfg.RabbitMQURI != "" {
		rabbitConn = rabbit
	}

	repo, err := NewFileBackedRepository(cfg.StorePath, rabbitConn, logger)
	if err != nil {
		return nil, err
	}

	engine.repo = repo

	return engine, nil
}

// newWithComponents builds a SelfImprover from already-constructed
// components, bypassing New's environment wiring. Used by tests that need
// to substitute a mock repository or adaptation engine.
func newWithComponents(cfg Config, repo ErrorRecordRepository, classifier FailureClassifier, adaptation AdaptationEngine, logger mlog.Logger) *SelfImprover {
	return &SelfImprover{
		cfg:        cfg,
		repo:       repo,
		classifier: classifier,
		adaptation: adaptation,
		logger:     logger,
	}
}

// Submit processes a single critical failure: classify, persist, adapt.
// When the engine is disabled this is a pure no-op — it does not touch
// the filesystem and returns nil unconditionally.
func (s *SelfImprover) Submit(ctx context.Context, failure CriticalFailure) error {
	if !s.cfg.Enabled {
		s.logger.Debug("self-improvement disabled; skipping submitted failure")
		return nil
	}

	classification := s.classifier.Classify(failure)
	record := recordFromFailure(failure, classification)

	if err := s.repo.Insert(ctx, record); err != nil {
		return err
	}

	if _, err := s.adaptation.Apply(ctx, record); err != nil {
		return err
	}

	return nil
}
