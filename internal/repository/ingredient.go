package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/deppfellow/foodgram-entrypoint/internal/model"
	"github.com/jackc/pgx/v5"
)

// batchSize bounds the number of statements queued in one pgx batch.
//
// The dataset holds a couple of thousand rows; sending them in a handful of
// round trips instead of one per row keeps the boot fast on a remote DB.
const batchSize = 500

// DB is the part of a pgx connection pool the repository needs.
//
// *pgxpool.Pool satisfies it, and so does anything else that can open a
// transaction and run a single-row query (a test double, a *pgx.Conn
// wrapper, ...).
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// IngredientRepository writes the ingredient dataset.
//
// db is the connection pool opened after the readiness gate.
// table is the already-quoted target table.
// lockKey is the advisory lock shared by every loader.
type IngredientRepository struct {
	db      DB
	table   string
	lockKey int64
}

// NewIngredientRepository returns a repository for table (optionally
// schema-qualified, e.g. "public.recipes_ingredient").
//
// lockKey is the pg_advisory_xact_lock key that serializes loaders running
// in several containers at once.
func NewIngredientRepository(db DB, table string, lockKey int64) *IngredientRepository {
	return &IngredientRepository{
		db:      db,
		table:   QuoteTable(table),
		lockKey: lockKey,
	}
}

// QuoteTable sanitizes a possibly schema-qualified table name.
//
// The table name comes from configuration and is pasted into SQL text
// (identifiers can not be bind parameters), so every part is quoted:
//
//	public.recipes_ingredient -> "public"."recipes_ingredient"
func QuoteTable(table string) string {
	return pgx.Identifier(strings.Split(table, ".")).Sanitize()
}

// insertMissingSQL inserts a row unless the same pair already exists.
//
// The Django model has no unique constraint on (name, measurement_unit),
// so ON CONFLICT can not be used. The explicit ::text casts let Postgres
// infer the parameter types, which it can not do for a bare SELECT list.
func insertMissingSQL(table string) string {
	return fmt.Sprintf(
		`INSERT INTO %[1]s ("name", "measurement_unit")
SELECT $1::text, $2::text
WHERE NOT EXISTS (
	SELECT 1 FROM %[1]s WHERE "name" = $1::text AND "measurement_unit" = $2::text
)`,
		table,
	)
}

// InsertMissing inserts every ingredient that is not stored yet and
// returns how many rows were created.
//
// Behavior:
//   - Open one transaction for the whole dataset
//   - Take a transaction-scoped advisory lock, so a second loader waits
//     here until the first one commits and then sees its rows
//   - Queue one insert-if-missing statement per item, batchSize at a time
//   - Commit; any error rolls back everything, so nothing is half loaded
//
// The result is the same whether one or many loaders run, once or repeatedly.
func (r *IngredientRepository) InsertMissing(ctx context.Context, items []model.Ingredient) (int, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	// Rollback after Commit is a no-op, so this only matters on error paths.
	// WithoutCancel: a cancelled boot must still release the lock.
	defer tx.Rollback(context.WithoutCancel(ctx))

	// Released automatically at commit/rollback; no unlock call needed.
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, r.lockKey); err != nil {
		return 0, fmt.Errorf("acquiring ingredient load lock: %w", err)
	}

	query := insertMissingSQL(r.table)
	created := 0
	for start := 0; start < len(items); start += batchSize {
		end := min(start+batchSize, len(items))

		batch := &pgx.Batch{}
		for _, item := range items[start:end] {
			batch.Queue(query, item.Name, item.MeasurementUnit)
		}

		n, err := execBatch(ctx, tx, batch)
		if err != nil {
			// The deferred rollback discards earlier batches too.
			return 0, err
		}
		created += n
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("committing ingredients: %w", err)
	}
	return created, nil
}

// execBatch sends batch and sums the affected rows.
//
// Each statement affects one row when it inserted and zero when the pair
// already existed.
func execBatch(ctx context.Context, tx pgx.Tx, batch *pgx.Batch) (int, error) {
	results := tx.SendBatch(ctx, batch)
	defer results.Close()

	created := 0
	for i := 0; i < batch.Len(); i++ {
		tag, err := results.Exec()
		if err != nil {
			return created, fmt.Errorf("inserting ingredient: %w", err)
		}
		created += int(tag.RowsAffected())
	}
	// Close surfaces errors that were not tied to a single statement.
	return created, results.Close()
}

// Count returns the number of stored ingredients.
func (r *IngredientRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM `+r.table).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting ingredients: %w", err)
	}
	return n, nil
}
