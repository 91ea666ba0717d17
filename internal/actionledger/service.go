package actionledger

import (
	"context"

	"github.com/LerianStudio/midaz/common"
	"github.com/LerianStudio/midaz/common/mlog"
	"github.com/google/uuid"
)

// Ledger composes the encrypted file (authoritative, see ActionLedger) with
// the best-effort Postgres query index: a failed index write is logged and
// never fails the caller, since the file alone satisfies every integrity
// property (L1-L4) this component promises.
type Ledger struct {
	file   *ActionLedger
	index  *Index
	logger mlog.Logger
}

// NewLedger wires file and index (index may be nil to run without the
// sidecar query index at all, e.g. in tests) behind logger.
func NewLedger(file *ActionLedger, index *Index, logger mlog.Logger) *Ledger {
	return &Ledger{file: file, index: index, logger: logger}
}

// CommitPreExecution appends a PreCommit entry to the authoritative file,
// then best-effort mirrors it into the query index.
func (l *Ledger) CommitPreExecution(ctx context.Context, step ActionPlanStep) (uuid.UUID, error) {
	id, err := l.file.CommitPreExecution(step)
	if err != nil {
		return uuid.Nil, err
	}

	if l.index != nil {
		if err := l.index.RecordPreCommit(ctx, id, step); err != nil {
			l.reportIndexFailure(id, err)
		}
	}

	return id, nil
}

// CommitPostExecution appends a PostCommit entry to the authoritative file,
// then best-effort mirrors the outcome status into the query index.
func (l *Ledger) CommitPostExecution(ctx context.Context, id uuid.UUID, outcome ActionOutcome) error {
	if err := l.file.CommitPostExecution(id, outcome); err != nil {
		return err
	}

	if l.index != nil {
		if err := l.index.RecordPostCommit(ctx, id, outcome); err != nil {
			l.reportIndexFailure(id, err)
		}
	}

	return nil
}

// reportIndexFailure logs a best-effort index write failure through the
// error model's own Report path when possible, falling back to a plain log
// line for anything that isn't a *common.Error.
func (l *Ledger) reportIndexFailure(id uuid.UUID, err error) {
	if cpErr, ok := err.(*common.Error); ok {
		cpErr.WithContext("ledger_entry_id", id.String()).Report(l.logger)
		return
	}

	l.logger.WithFields("ledger_entry_id", id.String()).Warnf("ledger index write failed: %v", err)
}
