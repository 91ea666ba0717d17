// Package selfimprove ingests critical orchestration failures, classifies
// them heuristically, persists them as a durable NDJSON record, and hands
// the record to a pluggable adaptation engine that is logging-only unless
// live-apply has been explicitly enabled.
package selfimprove

import "time"

// CriticalFailure is the high-level shape callers (an orchestrator, a
// reflection loop, any critical-path component) report a failure with. It
// is deliberately loose: most fields are optional because different
// callers have different amounts of context available at the failure
// site.
type CriticalFailure struct {
	RequestID       string            `json:"request_id"`
	FailureType     string            `json:"failure_type"`
	Stage           string            `json:"stage,omitempty"`
	TargetService   string            `json:"target_service,omitempty"`
	ErrorType       string            `json:"error_type,omitempty"`
	ErrorMessage    string            `json:"error_message,omitempty"`
	OriginalQuery   string            `json:"original_query,omitempty"`
	PlanJSON        string            `json:"plan_json,omitempty"`
	ToolTranscripts string            `json:"tool_transcripts,omitempty"`
	FinalAnswer     string            `json:"final_answer,omitempty"`
	Metadata        map[string]string `json:"metadata,omitempty"`
}

// FailureClassification is the classifier's enrichment of a
// CriticalFailure, folded into the persisted ErrorRecord.
type FailureClassification struct {
	ErrorCategory             string   `json:"error_category"`
	ContributingTools         []string `json:"contributing_tools,omitempty"`
	SuspectedPromptsOrConfigs []string `json:"suspected_prompts_or_configs,omitempty"`
	ProposedCorrections       []string `json:"proposed_corrections,omitempty"`
}

// ErrorRecord is the persistent, append-only record derived from a
// CriticalFailure plus its classification. One ErrorRecord is one line of
// the NDJSON store.
type ErrorRecord struct {
	RequestID                 string            `json:"request_id"`
	FailureType                string           `json:"failure_type"`
	Stage                      string           `json:"stage,omitempty"`
	TargetService              string           `json:"target_service,omitempty"`
	ErrorType                  string           `json:"error_type,omitempty"`
	ErrorMessage               string           `json:"error_message,omitempty"`
	ErrorCategory              string           `json:"error_category"`
	ContributingTools          []string         `json:"contributing_tools,omitempty"`
	SuspectedPromptsOrConfigs  []string         `json:"suspected_prompts_or_configs,omitempty"`
	ProposedCorrections        []string         `json:"proposed_corrections,omitempty"`
	OriginalQuerySnapshot      string           `json:"original_query_snapshot,omitempty"`
	PlanSummary                string           `json:"plan_summary,omitempty"`
	ToolErrorSummaries         string           `json:"tool_error_summaries,omitempty"`
	Metadata                   map[string]string `json:"metadata,omitempty"`
	CreatedAt                  time.Time        `json:"created_at"`
}

// recordFromFailure assembles the persistent ErrorRecord from a
// CriticalFailure and its classification.
func recordFromFailure(failure CriticalFailure, classification FailureClassification) ErrorRecord {
	return ErrorRecord{
		RequestID:                 failure.RequestID,
		FailureType:               failure.FailureType,
		Stage:                     failure.Stage,
		TargetService:             failure.TargetService,
		ErrorType:                 failure.ErrorType,
		ErrorMessage:              failure.ErrorMessage,
		ErrorCategory:             classification.ErrorCategory,
		ContributingTools:         classification.ContributingTools,
		SuspectedPromptsOrConfigs: classification.SuspectedPromptsOrConfigs,
		ProposedCorrections:       classification.ProposedCorrections,
		OriginalQuerySnapshot:     failure.OriginalQuery,
		PlanSummary:               failure.PlanJSON,
		ToolErrorSummaries:        failure.ToolTranscripts,
		Metadata:                  failure.Metadata,
		CreatedAt:                 time.Now().UTC(),
	}
}
