package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/corepay/transfer-saga-service/internal/domain"
)

// DefaultTTL is the retention window of the ephemeral mapping. It only needs
// to cover client retry storms; the durable store remains authoritative after
// eviction.
const DefaultTTL = 24 * time.Hour

// Admission is the outcome of admitting a request.
type Admission struct {
	// IsNew is true when no prior transfer exists for the key (or no key was
	// supplied) and the caller should run the saga.
	IsNew bool

	// Existing is the previously admitted transfer when IsNew is false.
	Existing *domain.Transfer
}

// Guard decides whether a request is a fresh attempt or a replay of an
// already-admitted one. The cache is consulted first, then the durable store,
// so a replay is recognized even after cache eviction or a restart.
//
// The guard never reserves a key: uniqueness is enforced by the store's
// constraint at persistence time, which converts a concurrent-admission race
// into a well-defined insert failure for the loser.
type Guard struct {
	cache domain.IdempotencyCache
	repo  domain.TransferRepository
	log   *logrus.Logger

	// TTL bounds the lifetime of cache entries written by Remember.
	TTL time.Duration
}

// NewGuard creates a Guard with the default retention window.
func NewGuard(cache domain.IdempotencyCache, repo domain.TransferRepository, log *logrus.Logger) *Guard {
	return &Guard{
		cache: cache,
		repo:  repo,
		log:   log,
		TTL:   DefaultTTL,
	}
}

// Admit checks key against the cache and then the durable store. An empty key
// always admits a new attempt: the caller accepts at-least-once execution.
// On a hit, the stored transfer's fingerprint must match the request's;
// a mismatch means the key was reused for a different payload.
func (g *Guard) Admit(ctx context.Context, key, fingerprint string) (Admission, error) {
	if key == "" {
		return Admission{IsNew: true}, nil
	}

	if reference, ok := g.lookupCache(ctx, key); ok {
		existing, err := g.repo.FindByReference(ctx, reference)
		if err == nil {
			return g.replay(existing, fingerprint)
		}

		// Cache points at a record the store does not have (e.g. the store
		// was restored from backup). Fall through to the authoritative path.
		if !errors.Is(err, domain.ErrNotFound) {
			return Admission{}, fmt.Errorf("fetch cached transfer: %w", err)
		}
	}

	existing, err := g.repo.FindByIdempotencyKey(ctx, key)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return Admission{IsNew: true}, nil
		}
		return Admission{}, fmt.Errorf("lookup idempotency key: %w", err)
	}

	return g.replay(existing, fingerprint)
}

// Remember populates the ephemeral mapping after the transfer reached a
// durable state, so retries within the window skip the store round trip.
// Cache failures are logged and swallowed: the store is authoritative.
func (g *Guard) Remember(ctx context.Context, key string, reference uuid.UUID) {
	if key == "" {
		return
	}

	if err := g.cache.Set(ctx, key, reference, g.TTL); err != nil {
		g.log.WithFields(logrus.Fields{
			"reference": reference,
			"error":     err.Error(),
		}).Warn("idempotency cache write failed")
	}
}

func (g *Guard) replay(existing *domain.Transfer, fingerprint string) (Admission, error) {
	if existing.Fingerprint != fingerprint {
		return Admission{}, domain.ErrIdempotencyConflict
	}

	return Admission{Existing: existing}, nil
}

func (g *Guard) lookupCache(ctx context.Context, key string) (uuid.UUID, bool) {
	reference, ok, err := g.cache.Get(ctx, key)
	if err != nil {
		g.log.WithField("error", err.Error()).Warn("idempotency cache read failed")
		return uuid.Nil, false
	}

	return reference, ok
}
