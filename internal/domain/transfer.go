package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransferType classifies a transfer. It is informational only and does not
// change how the saga executes.
type TransferType string

const (
	TypeInternal TransferType = "INTERNAL"
	TypeExternal TransferType = "EXTERNAL"
)

// Status is the transfer state machine. PENDING is the only non-terminal
// state; no transition ever leaves a terminal state.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
	// StatusCompensated means the debit succeeded, the credit failed and the
	// debit was reversed: money moved and was put back.
	StatusCompensated Status = "COMPENSATED"
	// StatusCompensationFailed means the debit succeeded, the credit failed
	// and the reversal of the debit also failed. Funds have left the source
	// account with no confirmed return; requires operator intervention.
	StatusCompensationFailed Status = "COMPENSATION_FAILED"
)

// IsTerminal reports whether no further transition is allowed from s.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCompensated, StatusCompensationFailed:
		return true
	}
	return false
}

// Transfer is the unit of work: one logical movement of funds between two
// accounts owned by independent services.
type Transfer struct {
	Reference      uuid.UUID
	FromAccount    string
	ToAccount      string
	Amount         decimal.Decimal
	Currency       string
	Type           TransferType
	Description    string
	IdempotencyKey string
	Fingerprint    string

	Status        Status
	DebitTxnID    string
	CreditTxnID   string
	FailureReason string

	InitiatedAt time.Time
	CompletedAt time.Time
}

// NewTransferParams carries the validated inputs for NewTransfer.
type NewTransferParams struct {
	Reference      uuid.UUID
	FromAccount    string
	ToAccount      string
	Amount         decimal.Decimal
	Currency       string
	Type           TransferType
	Description    string
	IdempotencyKey string
	Fingerprint    string
	Now            time.Time
}

// NewTransfer builds a PENDING transfer, enforcing the core domain rules
// that hold regardless of how the request arrived.
func NewTransfer(p NewTransferParams) (*Transfer, error) {
	if p.Reference == uuid.Nil {
		return nil, ErrInvalidReference
	}

	from := strings.TrimSpace(p.FromAccount)
	to := strings.TrimSpace(p.ToAccount)

	if from == "" || to == "" {
		return nil, ErrInvalidAccount
	}

	if from == to {
		return nil, ErrSameAccount
	}

	if !p.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	cur := strings.ToUpper(strings.TrimSpace(p.Currency))
	if len(cur) != 3 {
		return nil, ErrInvalidCurrency
	}

	if p.Type != TypeInternal && p.Type != TypeExternal {
		return nil, ErrInvalidTransferType
	}

	if p.Now.IsZero() {
		p.Now = time.Now().UTC()
	}

	return &Transfer{
		Reference:      p.Reference,
		FromAccount:    from,
		ToAccount:      to,
		Amount:         p.Amount,
		Currency:       cur,
		Type:           p.Type,
		Description:    strings.TrimSpace(p.Description),
		IdempotencyKey: strings.TrimSpace(p.IdempotencyKey),
		Fingerprint:    p.Fingerprint,
		Status:         StatusPending,
		InitiatedAt:    p.Now,
	}, nil
}

// RecordDebit stores the ledger transaction id of the successful debit leg.
func (t *Transfer) RecordDebit(txnID string) {
	t.DebitTxnID = txnID
}

// Complete marks the transfer COMPLETED after both legs succeeded.
// The debit must already be recorded: a credit without a debit is impossible.
func (t *Transfer) Complete(creditTxnID string, now time.Time) error {
	if t.Status.IsTerminal() {
		return ErrAlreadyFinalized
	}

	if t.DebitTxnID == "" || creditTxnID == "" {
		return ErrMissingTxnID
	}

	t.Status = StatusCompleted
	t.CreditTxnID = creditTxnID
	t.stampCompleted(now)

	return nil
}

// Fail marks the transfer FAILED: the debit leg itself was rejected, so no
// funds moved and no compensation is needed.
func (t *Transfer) Fail(reason string, now time.Time) error {
	if t.Status.IsTerminal() {
		return ErrAlreadyFinalized
	}

	reason = strings.TrimSpace(reason)
	if reason == "" {
		return ErrMissingFailureReason
	}

	t.Status = StatusFailed
	t.FailureReason = reason
	t.stampCompleted(now)

	return nil
}

// Compensate marks the transfer COMPENSATED: the debit succeeded, the credit
// failed, and the debit has been confirmed reversed.
func (t *Transfer) Compensate(reason string, now time.Time) error {
	if t.Status.IsTerminal() {
		return ErrAlreadyFinalized
	}

	if t.DebitTxnID == "" {
		return ErrMissingTxnID
	}

	reason = strings.TrimSpace(reason)
	if reason == "" {
		return ErrMissingFailureReason
	}

	t.Status = StatusCompensated
	t.FailureReason = reason
	t.stampCompleted(now)

	return nil
}

// FailCompensation marks the transfer COMPENSATION_FAILED: the reversal of a
// successful debit could not be confirmed. This is never conflated with
// FAILED or COMPENSATED.
func (t *Transfer) FailCompensation(reason string, now time.Time) error {
	if t.Status.IsTerminal() {
		return ErrAlreadyFinalized
	}

	if t.DebitTxnID == "" {
		return ErrMissingTxnID
	}

	reason = strings.TrimSpace(reason)
	if reason == "" {
		return ErrMissingFailureReason
	}

	t.Status = StatusCompensationFailed
	t.FailureReason = reason
	t.stampCompleted(now)

	return nil
}

// stampCompleted sets CompletedAt exactly once, on the terminal transition.
func (t *Transfer) stampCompleted(now time.Time) {
	if now.IsZero() {
		now = time.Now().UTC()
	}
	if t.CompletedAt.IsZero() {
		t.CompletedAt = now
	}
}
