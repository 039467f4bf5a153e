package postgres

import (
	"context"
	"fmt"

	"github.com/chris-de-leon-archive/block-feed-prototype-sub001/internal/core/domain"
)

// CursorRepo implements storage.CursorRepository over PostgreSQL.
type CursorRepo struct {
	db *DB
}

// NewCursorRepo creates a PostgreSQL cursor repository.
func NewCursorRepo(db *DB) *CursorRepo {
	return &CursorRepo{db: db}
}

// Upsert creates the cursor row for a chain instance if absent. The id is
// derived from the chain identity, so repeated bootstraps collapse onto
// the same row and an existing height is never reset.
func (r *CursorRepo) Upsert(ctx context.Context, chain domain.ChainInfo) error {
	const query = `
		INSERT INTO block_cursor (id, blockchain, network_url, height)
		VALUES ($1, $2, $3, 0)
		ON CONFLICT (id) DO NOTHING
	`
	if _, err := r.db.ExecContext(ctx, query, chain.ID, string(chain.Name), chain.NetworkURL); err != nil {
		return fmt.Errorf("failed to upsert cursor: %w", err)
	}
	return nil
}
