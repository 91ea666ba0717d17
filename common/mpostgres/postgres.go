package mpostgres

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	_ "github.com/jackc/pgx/v5/stdlib"

	"go.uber.org/zap"

	"github.com/bxcodec/dbresolver/v2"
)

// PostgresConnection is a hub which deals with postgres connections. Unlike
// the multi-service ledger this was lifted from, this module has a single
// sidecar table (the action ledger's query index, see internal/actionledger),
// so there is no migration runner: Schema, if set, is executed once with
// CREATE TABLE IF NOT EXISTS semantics instead of a versioned migration
// chain.
type PostgresConnection struct {
	ConnectionStringPrimary string
	ConnectionStringReplica string
	PrimaryDBName           string
	ReplicaDBName           string
	// Schema is idempotent DDL (CREATE TABLE IF NOT EXISTS ...) applied to
	// the primary connection right after it is established.
	Schema       string
	ConnectionDB *dbresolver.DB
	Connected    bool
}

// Connect keeps a singleton connection with postgres.
func (pc *PostgresConnection) Connect() error {
	fmt.Println("Connecting to primary and replica databases...")

	dbPrimary, err := sql.Open("pgx", pc.ConnectionStringPrimary)
	if err != nil {
		log.Printf("failed to open connection to primary database: %v", zap.Error(err))
		return err
	}

	dbReadOnlyReplica, err := sql.Open("pgx", pc.ConnectionStringReplica)
	if err != nil {
		log.Printf("failed to open connection to replica database: %v", zap.Error(err))
		return err
	}

	connectionDB := dbresolver.New(
		dbresolver.WithPrimaryDBs(dbPrimary),
		dbresolver.WithReplicaDBs(dbReadOnlyReplica),
		dbresolver.WithLoadBalancer(dbresolver.RoundRobinLB))

	if pc.Schema != "" {
		if _, err := dbPrimary.ExecContext(context.Background(), pc.Schema); err != nil {
			log.Printf("failed to apply schema: %v", zap.Error(err))
			return err
		}
	}

	if err := connectionDB.Ping(); err != nil {
		log.Printf("PostgresConnection.Ping %v", zap.Error(err))
		return err
	}

	pc.Connected = true
	pc.ConnectionDB = &connectionDB

	fmt.Println("Connected to postgres")

	return nil
}

// GetDB returns a pointer to the postgres connection, initializing it if necessary.
func (pc *PostgresConnection) GetDB(ctx context.Context) (dbresolver.DB, error) {
	if pc.ConnectionDB == nil {
		if err := pc.Connect(); err != nil {
			log.Printf("ERRCONECT %s", err)
			return nil, err
		}
	}

	return *pc.ConnectionDB, nil
}
