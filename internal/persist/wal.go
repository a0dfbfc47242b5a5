package persist

import (
	"context"
	"fmt"

	"github.com/intrets/mem/internal/core/entitystore"
)

// MutationOp names the kind of entity-store mutation a WALEntry records.
type MutationOp string

const (
	OpAddComponent    MutationOp = "add_component"
	OpRemoveComponent MutationOp = "remove_component"
	OpRemoveEntity    MutationOp = "remove_entity"
)

// WALEntry is one write-ahead log record of a mutation applied to the
// entity store, batched and flushed once per tick's PhasePersist.
type WALEntry struct {
	Entity    entitystore.Entity
	Qualifier uint64
	Op        MutationOp
	Component string // empty for OpRemoveEntity
}

type WALRepo struct {
	db *DB
}

func NewWALRepo(db *DB) *WALRepo {
	return &WALRepo{db: db}
}

// WriteWAL atomically writes a batch of mutation entries in a single
// transaction. On failure the caller should retry the whole batch rather
// than re-derive which entries succeeded — per spec.md's §6 invariant that
// persisted state must round-trip, a half-applied batch is worse than a
// retried one.
func (r *WALRepo) WriteWAL(ctx context.Context, entries []WALEntry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("wal begin: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, e := range entries {
		if _, err := tx.Exec(ctx,
			`INSERT INTO entity_mutation_wal (entity, qualifier, op, component, processed)
			 VALUES ($1, $2, $3, $4, FALSE)`,
			e.Entity.Raw(), e.Qualifier, string(e.Op), e.Component,
		); err != nil {
			return fmt.Errorf("wal insert: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// MarkProcessed marks every unprocessed WAL entry as processed. Nothing in
// this module calls it; the demo's snapshot loop leaves entries unprocessed.
func (r *WALRepo) MarkProcessed(ctx context.Context) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE entity_mutation_wal SET processed = TRUE WHERE processed = FALSE`,
	)
	return err
}
