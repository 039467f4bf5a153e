// Package storage defines the narrow store interfaces the pipeline
// consumes. Subscriptions are read-only here; their lifecycle belongs to
// the CRUD layer outside this repository.
package storage

import (
	"context"
	"time"

	"github.com/chris-de-leon-archive/block-feed-prototype-sub001/internal/core/domain"
)

// SubscriptionRepository is the read API over the subscription store.
type SubscriptionRepository interface {
	// CountActiveByMethod returns active-subscriber counts for every
	// delivery method in one consistent snapshot (a single query), so a
	// subscription created mid-count cannot be double-counted or skipped.
	CountActiveByMethod(ctx context.Context, cursorID string) (domain.MethodCounts, error)

	// FindActiveSubscribers resolves one deterministic slice of the active
	// subscriber set for a chain and method.
	FindActiveSubscribers(
		ctx context.Context,
		cursorID string,
		method domain.DeliveryMethod,
		limit, offset int64,
	) ([]domain.Subscription, error)
}

// CursorRepository persists the per-chain block cursor row.
type CursorRepository interface {
	// Upsert creates the cursor row for a chain instance if it does not
	// exist. ChainInfo.ID is the idempotency key, so bootstrapping the
	// same chain twice is a no-op.
	Upsert(ctx context.Context, chain domain.ChainInfo) error
}

// InvocationLogRepository is the append-only sink for delivery outcomes.
type InvocationLogRepository interface {
	// AppendBatch inserts every entry in one statement. Entries are never
	// updated afterwards.
	AppendBatch(ctx context.Context, entries []domain.InvocationLogEntry) error

	// DeleteOlderThan removes entries created before the cutoff and
	// reports how many rows were deleted.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
