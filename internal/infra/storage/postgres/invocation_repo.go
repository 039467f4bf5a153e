package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/chris-de-leon-archive/block-feed-prototype-sub001/internal/core/domain"
)

// InvocationLogRepo implements storage.InvocationLogRepository over
// PostgreSQL.
type InvocationLogRepo struct {
	db *DB
}

// NewInvocationLogRepo creates a PostgreSQL invocation log repository.
func NewInvocationLogRepo(db *DB) *InvocationLogRepo {
	return &InvocationLogRepo{db: db}
}

type invocationRow struct {
	SubscriptionID string `db:"subscription_id"`
	Metadata       []byte `db:"metadata"`
}

// AppendBatch inserts every entry in a single statement. An empty batch
// is a no-op.
func (r *InvocationLogRepo) AppendBatch(
	ctx context.Context,
	entries []domain.InvocationLogEntry,
) error {
	if len(entries) == 0 {
		return nil
	}

	rows := make([]invocationRow, 0, len(entries))
	for _, entry := range entries {
		metadata, err := entry.MarshalMetadata()
		if err != nil {
			return fmt.Errorf("failed to encode invocation metadata: %w", err)
		}
		rows = append(rows, invocationRow{
			SubscriptionID: entry.SubscriptionID,
			Metadata:       metadata,
		})
	}

	const query = `
		INSERT INTO invocation_log (subscription_id, metadata)
		VALUES (:subscription_id, :metadata)
	`
	if _, err := r.db.NamedExecContext(ctx, query, rows); err != nil {
		return fmt.Errorf("failed to append invocation log entries: %w", err)
	}
	return nil
}

// DeleteOlderThan removes entries created before the cutoff.
func (r *InvocationLogRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM invocation_log WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune invocation log: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count pruned invocation log rows: %w", err)
	}
	return deleted, nil
}
