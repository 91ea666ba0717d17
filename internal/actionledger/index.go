package actionledger

import (
	"context"
	"time"

	"github.com/LerianStudio/midaz/common"
	"github.com/LerianStudio/midaz/common/mpostgres"
	"github.com/LerianStudio/midaz/pkg/mresilience"
	sqrl "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
)

// IndexSchema is the idempotent DDL for the ledger query index, handed to
// mpostgres.PostgresConnection.Schema so Connect applies it once at boot
// instead of requiring a migration runner.
const IndexSchema = `CREATE TABLE IF NOT EXISTS ledger_index (
	id UUID PRIMARY KEY,
	kind TEXT NOT NULL,
	actor TEXT NOT NULL,
	tool_or_action_name TEXT NOT NULL,
	critical BOOLEAN NOT NULL,
	status TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL
)`

// Index projects a queryable subset of the ledger's entries into Postgres,
// so operators can ask "show me every critical action by actor X in the
// last hour" without scanning and decrypting the whole file. It is
// best-effort: nothing here ever fails a CommitPreExecution/
// CommitPostExecution call; index writes are logged and reported through
// the error model instead.
type Index struct {
	conn       *mpostgres.PostgresConnection
	resilience *mresilience.Resilience
}

// NewIndex wires an Index against an already-configured PostgresConnection
// (Schema should already be set to IndexSchema before Connect is called) and
// a shared resilience facade, keyed by service name "ledger-index".
func NewIndex(conn *mpostgres.PostgresConnection, resilience *mresilience.Resilience) *Index {
	return &Index{conn: conn, resilience: resilience}
}

// RecordPreCommit inserts a row for a newly committed PreCommit entry; an
// existing row with the same id is left unchanged.
func (idx *Index) RecordPreCommit(ctx context.Context, id uuid.UUID, step ActionPlanStep) error {
	return idx.resilience.Execute(ctx, "ledger-index", func(ctx context.Context) error {
		db, err := idx.conn.GetDB(ctx)
		if err != nil {
			return common.New(common.KindStorage, "failed to get ledger index connection").WithCause(err).WithTransient()
		}

		query, args, err := sqrl.Insert("ledger_index").
			Columns("id", "kind", "actor", "tool_or_action_name", "critical", "status", "created_at").
			Values(id, string(eventPreCommit), step.Actor, step.ToolOrActionName, step.Critical, "", time.Now().UTC()).
			Suffix("ON CONFLICT (id) DO NOTHING").
			PlaceholderFormat(sqrl.Dollar).
			ToSql()
		if err != nil {
			return common.New(common.KindProcessing, "failed to build ledger index insert").WithCause(err)
		}

		if _, err := db.ExecContext(ctx, query, args...); err != nil {
			return common.New(common.KindStorage, "failed to write ledger index row").WithCause(err).WithTransient()
		}

		return nil
	})
}

// RecordPostCommit updates the status column for the logical action id.
func (idx *Index) RecordPostCommit(ctx context.Context, id uuid.UUID, outcome ActionOutcome) error {
	return idx.resilience.Execute(ctx, "ledger-index", func(ctx context.Context) error {
		db, err := idx.conn.GetDB(ctx)
		if err != nil {
			return common.New(common.KindStorage, "failed to get ledger index connection").WithCause(err).WithTransient()
		}

		query, args, err := sqrl.Update("ledger_index").
			Set("status", string(outcome.Status)).
			Where(sqrl.Eq{"id": id}).
			PlaceholderFormat(sqrl.Dollar).
			ToSql()
		if err != nil {
			return common.New(common.KindProcessing, "failed to build ledger index update").WithCause(err)
		}

		if _, err := db.ExecContext(ctx, query, args...); err != nil {
			return common.New(common.KindStorage, "failed to update ledger index row").WithCause(err).WithTransient()
		}

		return nil
	})
}
