package intake

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/corepay/transfer-saga-service/internal/domain"
	"github.com/corepay/transfer-saga-service/internal/usecase/idempotency"
	"github.com/corepay/transfer-saga-service/internal/usecase/saga"
)

// InitiateInput carries a transfer request. Validation failures are rejected
// before admission and never create a Transfer record.
type InitiateInput struct {
	FromAccount    string              `validate:"required,min=6"`
	ToAccount      string              `validate:"required,min=6,nefield=FromAccount"`
	Amount         decimal.Decimal     `validate:"-"`
	Currency       string              `validate:"required,len=3,alpha"`
	Type           domain.TransferType `validate:"required,oneof=INTERNAL EXTERNAL"`
	Description    string              `validate:"max=255"`
	IdempotencyKey string              `validate:"omitempty,min=8,max=128"`
}

// Service is the orchestration entry point, composing admission, persistence,
// the saga and event emission in a fixed order:
// dedup -> persist PENDING -> run saga -> persist terminal -> publish.
type Service struct {
	guard     *idempotency.Guard
	repo      domain.TransferRepository
	saga      *saga.Orchestrator
	publisher domain.EventPublisher
	log       *logrus.Logger
	validate  *validator.Validate
}

// NewService creates a new intake Service.
func NewService(
	guard *idempotency.Guard,
	repo domain.TransferRepository,
	orchestrator *saga.Orchestrator,
	publisher domain.EventPublisher,
	log *logrus.Logger,
) *Service {
	return &Service{
		guard:     guard,
		repo:      repo,
		saga:      orchestrator,
		publisher: publisher,
		log:       log,
		validate:  validator.New(),
	}
}

// Initiate admits, executes and finalizes a transfer request. A replay of an
// already-admitted request returns the stored transfer without running the
// saga again: no additional ledger calls, no additional events.
//
// A compensation failure returns both the persisted transfer (status
// COMPENSATION_FAILED) and domain.ErrCompensationFailed.
func (s *Service) Initiate(ctx context.Context, in InitiateInput) (*domain.Transfer, error) {
	if err := s.validateInput(in); err != nil {
		return nil, err
	}

	fingerprint := Fingerprint(in)

	admission, err := s.guard.Admit(ctx, in.IdempotencyKey, fingerprint)
	if err != nil {
		return nil, err
	}

	if !admission.IsNew {
		s.log.WithFields(logrus.Fields{
			"reference": admission.Existing.Reference,
			"status":    admission.Existing.Status,
		}).Info("idempotent replay, returning stored transfer")

		return admission.Existing, nil
	}

	transfer, err := domain.NewTransfer(domain.NewTransferParams{
		Reference:      uuid.New(),
		FromAccount:    in.FromAccount,
		ToAccount:      in.ToAccount,
		Amount:         in.Amount,
		Currency:       in.Currency,
		Type:           in.Type,
		Description:    in.Description,
		IdempotencyKey: in.IdempotencyKey,
		Fingerprint:    fingerprint,
		Now:            time.Now().UTC(),
	})
	if err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, transfer); err != nil {
		if errors.Is(err, domain.ErrDuplicateIdempotencyKey) {
			// Lost the admission race: another request with the same key
			// inserted first. Return its record instead.
			return s.resolveLostRace(ctx, in.IdempotencyKey, fingerprint)
		}

		return nil, fmt.Errorf("persist pending transfer: %w", err)
	}

	s.emit(ctx, domain.EventInitiated, transfer)

	sagaErr := s.saga.Execute(ctx, transfer)

	// The terminal state is always durable before the terminal event is
	// published, so consumers never observe an event for a state that is
	// not yet stored.
	if err := s.repo.Update(ctx, transfer); err != nil {
		return nil, fmt.Errorf("persist terminal transfer: %w", err)
	}

	s.guard.Remember(ctx, in.IdempotencyKey, transfer.Reference)

	if kind, ok := domain.TerminalEventKind(transfer.Status); ok {
		s.emit(ctx, kind, transfer)
	}

	if sagaErr != nil {
		return transfer, sagaErr
	}

	return transfer, nil
}

func (s *Service) validateInput(in InitiateInput) error {
	if err := s.validate.Struct(in); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	if !in.Amount.IsPositive() {
		return fmt.Errorf("%w: %w", domain.ErrValidation, domain.ErrInvalidAmount)
	}

	return nil
}

// resolveLostRace fetches the record of the request that won the concurrent
// admission race for the same idempotency key.
func (s *Service) resolveLostRace(ctx context.Context, key, fingerprint string) (*domain.Transfer, error) {
	existing, err := s.repo.FindByIdempotencyKey(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("resolve admission race: %w", err)
	}

	if existing.Fingerprint != fingerprint {
		return nil, domain.ErrIdempotencyConflict
	}

	return existing, nil
}

// emit publishes fire-and-forget: the caller gets the durable transfer back
// without waiting on broker acknowledgment, and publish failures are logged
// for the reconciliation sweep rather than surfaced.
func (s *Service) emit(ctx context.Context, kind domain.EventKind, t *domain.Transfer) {
	event := domain.NewEvent(kind, t, time.Now().UTC())

	if err := s.publisher.Publish(ctx, t.Reference.String(), event); err != nil {
		s.log.WithFields(logrus.Fields{
			"reference": t.Reference,
			"kind":      kind,
			"error":     err.Error(),
		}).Error("event publish failed")
	}
}
