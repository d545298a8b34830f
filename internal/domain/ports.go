package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransferRepository defines the interface for durable transfer persistence.
// It is the source of truth once a request has been admitted.
type TransferRepository interface {
	// Create persists a new PENDING transfer. When the transfer carries an
	// idempotency key that is already stored, Create returns
	// ErrDuplicateIdempotencyKey and persists nothing.
	Create(ctx context.Context, t *Transfer) error

	// Update persists the terminal state of a previously created transfer.
	Update(ctx context.Context, t *Transfer) error

	// FindByReference retrieves a transfer by its reference.
	// Returns ErrNotFound when no transfer matches.
	FindByReference(ctx context.Context, reference uuid.UUID) (*Transfer, error)

	// FindByIdempotencyKey retrieves the transfer admitted under the given
	// idempotency key. Returns ErrNotFound when no transfer matches.
	FindByIdempotencyKey(ctx context.Context, key string) (*Transfer, error)

	// FindByAccount lists transfers where the account is either leg,
	// most recent first. An empty result is an empty slice, not an error.
	FindByAccount(ctx context.Context, account string) ([]*Transfer, error)

	// FindOutgoing lists transfers where the account is the source,
	// most recent first.
	FindOutgoing(ctx context.Context, account string) ([]*Transfer, error)

	// FindIncoming lists transfers where the account is the destination,
	// most recent first.
	FindIncoming(ctx context.Context, account string) ([]*Transfer, error)
}

// IdempotencyCache is the ephemeral idempotency-key -> reference mapping.
// It is an optimization only: the durable store's uniqueness constraint is
// authoritative if the cache is evicted or unavailable.
type IdempotencyCache interface {
	// Get returns the reference recorded for key, and whether one exists.
	Get(ctx context.Context, key string) (uuid.UUID, bool, error)

	// Set records the mapping for key with a bounded TTL.
	Set(ctx context.Context, key string, reference uuid.UUID, ttl time.Duration) error
}

// EventPublisher emits transfer lifecycle events to a durable message
// channel with at-least-once, per-key-ordered delivery.
type EventPublisher interface {
	Publish(ctx context.Context, key string, event Event) error
}

// AccountLedger is the external balance store. Each call mutates a single
// account under a per-account exclusive lock held by the ledger for the
// duration of the call; the saga treats each call as blocking and atomic.
type AccountLedger interface {
	// Debit withdraws amount from the account and returns the ledger
	// transaction id.
	Debit(ctx context.Context, account string, amount decimal.Decimal, currency string) (string, error)

	// Credit deposits amount into the account and returns the ledger
	// transaction id.
	Credit(ctx context.Context, account string, amount decimal.Decimal, currency string) (string, error)

	// Reverse puts back a previously debited amount, referencing the
	// original debit transaction id.
	Reverse(ctx context.Context, account string, amount decimal.Decimal, currency string, originalTxnID string) (string, error)
}
