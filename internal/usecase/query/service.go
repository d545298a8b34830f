package query

import (
	"context"

	"github.com/google/uuid"

	"github.com/corepay/transfer-saga-service/internal/domain"
)

// Service is the read path. It never touches the saga: all reads go straight
// to the transfer store.
type Service struct {
	repo domain.TransferRepository
}

// NewService creates a new query Service.
func NewService(repo domain.TransferRepository) *Service {
	return &Service{repo: repo}
}

// GetByReference returns the transfer for reference, or domain.ErrNotFound.
func (s *Service) GetByReference(ctx context.Context, reference uuid.UUID) (*domain.Transfer, error) {
	return s.repo.FindByReference(ctx, reference)
}

// ListByAccount returns transfers where account is either leg, most recent
// first. No matches yields an empty slice, not an error.
func (s *Service) ListByAccount(ctx context.Context, account string) ([]*domain.Transfer, error) {
	return s.repo.FindByAccount(ctx, account)
}

// ListOutgoing returns transfers where account is the source.
func (s *Service) ListOutgoing(ctx context.Context, account string) ([]*domain.Transfer, error) {
	return s.repo.FindOutgoing(ctx, account)
}

// ListIncoming returns transfers where account is the destination.
func (s *Service) ListIncoming(ctx context.Context, account string) ([]*domain.Transfer, error) {
	return s.repo.FindIncoming(ctx, account)
}
