// Package actionledger implements the append-only, encrypted, hash-chained
// evidence log for critical orchestration actions: a pre-execution commit
// records intent, a post-execution commit records outcome, and neither ever
// mutates an earlier entry.
package actionledger

import (
	"time"

	"github.com/google/uuid"
)

// ActionPlanStep is a single step in an action plan about to be executed.
type ActionPlanStep struct {
	RequestID         string            `json:"request_id,omitempty"`
	Actor             string            `json:"actor" validate:"required"`
	ToolOrActionName  string            `json:"tool_or_action_name" validate:"required"`
	ParametersJSON    string            `json:"parameters_json"`
	UserQuerySnapshot string            `json:"user_query_snapshot,omitempty"`
	Critical          bool              `json:"critical"`
	Metadata          map[string]string `json:"metadata,omitempty"`
}

// ActionOutcomeStatus is the status of an executed action.
type ActionOutcomeStatus string

const (
	OutcomePending ActionOutcomeStatus = "pending"
	OutcomeSuccess ActionOutcomeStatus = "success"
	OutcomeFailed  ActionOutcomeStatus = "failed"
)

// ActionOutcome is the result of an executed action.
type ActionOutcome struct {
	Status        ActionOutcomeStatus `json:"status" validate:"required,oneof=pending success failed"`
	ResultSummary string              `json:"result_summary,omitempty"`
	ErrorSummary  string              `json:"error_summary,omitempty"`
	Metadata      map[string]string   `json:"metadata,omitempty"`
	Timestamp     time.Time           `json:"timestamp"`
}

// eventKind distinguishes a pre-execution entry from a post-execution one.
type eventKind string

const (
	eventPreCommit  eventKind = "pre_commit"
	eventPostCommit eventKind = "post_commit"
)

// ledgerEvent is the plaintext event that gets encrypted per entry. Two
// entries sharing the same ID form one logical action: a PreCommit entry
// carrying Step, and a later PostCommit entry carrying Outcome.
type ledgerEvent struct {
	ID        uuid.UUID      `json:"id"`
	Kind      eventKind      `json:"kind"`
	Step      *ActionPlanStep `json:"step,omitempty"`
	Outcome   *ActionOutcome  `json:"outcome,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}
