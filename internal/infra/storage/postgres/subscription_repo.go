package postgres

import (
	"context"
	"fmt"

	"github.com/chris-de-leon-archive/block-feed-prototype-sub001/internal/core/domain"
)

// SubscriptionRepo implements storage.SubscriptionRepository over
// PostgreSQL.
type SubscriptionRepo struct {
	db *DB
}

// NewSubscriptionRepo creates a PostgreSQL subscription repository.
func NewSubscriptionRepo(db *DB) *SubscriptionRepo {
	return &SubscriptionRepo{db: db}
}

// CountActiveByMethod counts active subscribers per delivery method.
// Both counts come from one statement, so they reflect a single snapshot
// of the subscription table.
func (r *SubscriptionRepo) CountActiveByMethod(
	ctx context.Context,
	cursorID string,
) (domain.MethodCounts, error) {
	const query = `
		SELECT
			COUNT(*) FILTER (WHERE method = 'WEBHOOK') AS webhook_count,
			COUNT(*) FILTER (WHERE method = 'EMAIL')   AS email_count
		FROM subscriptions
		WHERE cursor_id = $1 AND is_active
	`
	var counts domain.MethodCounts
	if err := r.db.GetContext(ctx, &counts, query, cursorID); err != nil {
		return domain.MethodCounts{}, fmt.Errorf("failed to count subscribers: %w", err)
	}
	return counts, nil
}

type subscriptionRow struct {
	ID          string `db:"id"`
	UserID      string `db:"user_id"`
	CursorID    string `db:"cursor_id"`
	Method      string `db:"method"`
	IsActive    bool   `db:"is_active"`
	URL         string `db:"url"`
	ContentType string `db:"content_type"`
	Email       string `db:"email"`
}

// FindActiveSubscribers resolves one page of the active subscriber set.
// Ordering by id keeps the (limit, offset) windows deterministic across
// the divide and consume stages.
func (r *SubscriptionRepo) FindActiveSubscribers(
	ctx context.Context,
	cursorID string,
	method domain.DeliveryMethod,
	limit, offset int64,
) ([]domain.Subscription, error) {
	const query = `
		SELECT id, user_id, cursor_id, method, is_active, url, content_type, email
		FROM subscriptions
		WHERE cursor_id = $1 AND method = $2 AND is_active
		ORDER BY id
		LIMIT $3 OFFSET $4
	`
	var rows []subscriptionRow
	if err := r.db.SelectContext(ctx, &rows, query, cursorID, string(method), limit, offset); err != nil {
		return nil, fmt.Errorf("failed to find subscribers: %w", err)
	}

	subs := make([]domain.Subscription, 0, len(rows))
	for _, row := range rows {
		subs = append(subs, domain.Subscription{
			ID:       row.ID,
			UserID:   row.UserID,
			CursorID: row.CursorID,
			Method:   domain.DeliveryMethod(row.Method),
			IsActive: row.IsActive,
			Details: domain.DeliveryDetails{
				URL:         row.URL,
				ContentType: row.ContentType,
				Email:       row.Email,
			},
		})
	}
	return subs, nil
}
