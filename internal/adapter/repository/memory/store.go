// Package memory provides an in-process implementation of the transfer store
// for tests and local runs without Postgres. It mirrors the durable store's
// contracts, including the idempotency-key uniqueness constraint.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/corepay/transfer-saga-service/internal/domain"
)

// Store implements domain.TransferRepository in memory.
type Store struct {
	mu          sync.RWMutex
	byReference map[uuid.UUID]*domain.Transfer
	byKey       map[string]uuid.UUID
}

// NewStore creates an empty in-memory transfer store.
func NewStore() *Store {
	return &Store{
		byReference: make(map[uuid.UUID]*domain.Transfer),
		byKey:       make(map[string]uuid.UUID),
	}
}

// Create persists a new transfer, enforcing idempotency-key uniqueness the
// way the Postgres unique index does.
func (s *Store) Create(ctx context.Context, t *domain.Transfer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t.IdempotencyKey != "" {
		if _, exists := s.byKey[t.IdempotencyKey]; exists {
			return domain.ErrDuplicateIdempotencyKey
		}
	}

	snapshot := *t
	s.byReference[t.Reference] = &snapshot

	if t.IdempotencyKey != "" {
		s.byKey[t.IdempotencyKey] = t.Reference
	}

	return nil
}

// Update persists the current state of a previously created transfer.
func (s *Store) Update(ctx context.Context, t *domain.Transfer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byReference[t.Reference]; !exists {
		return domain.ErrNotFound
	}

	snapshot := *t
	s.byReference[t.Reference] = &snapshot

	return nil
}

// FindByReference retrieves a transfer by reference.
func (s *Store) FindByReference(ctx context.Context, reference uuid.UUID) (*domain.Transfer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, exists := s.byReference[reference]
	if !exists {
		return nil, domain.ErrNotFound
	}

	snapshot := *stored

	return &snapshot, nil
}

// FindByIdempotencyKey retrieves the transfer admitted under key.
func (s *Store) FindByIdempotencyKey(ctx context.Context, key string) (*domain.Transfer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	reference, exists := s.byKey[key]
	if !exists {
		return nil, domain.ErrNotFound
	}

	snapshot := *s.byReference[reference]

	return &snapshot, nil
}

// FindByAccount lists transfers where account is either leg, most recent first.
func (s *Store) FindByAccount(ctx context.Context, account string) ([]*domain.Transfer, error) {
	return s.filter(func(t *domain.Transfer) bool {
		return t.FromAccount == account || t.ToAccount == account
	}), nil
}

// FindOutgoing lists transfers where account is the source, most recent first.
func (s *Store) FindOutgoing(ctx context.Context, account string) ([]*domain.Transfer, error) {
	return s.filter(func(t *domain.Transfer) bool {
		return t.FromAccount == account
	}), nil
}

// FindIncoming lists transfers where account is the destination, most recent first.
func (s *Store) FindIncoming(ctx context.Context, account string) ([]*domain.Transfer, error) {
	return s.filter(func(t *domain.Transfer) bool {
		return t.ToAccount == account
	}), nil
}

func (s *Store) filter(match func(*domain.Transfer) bool) []*domain.Transfer {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Transfer, 0)

	for _, stored := range s.byReference {
		if match(stored) {
			snapshot := *stored
			result = append(result, &snapshot)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].InitiatedAt.After(result[j].InitiatedAt)
	})

	return result
}
