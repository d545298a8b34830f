package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EventKind identifies a transfer lifecycle event. There are exactly four
// kinds: one for admission and one per terminal status that emits events.
type EventKind string

const (
	EventInitiated   EventKind = "transfer.initiated"
	EventCompleted   EventKind = "transfer.completed"
	EventFailed      EventKind = "transfer.failed"
	EventCompensated EventKind = "transfer.compensated"
)

// Event is the message emitted to downstream consumers (ledgers, compliance,
// notification) on each state transition. Delivery is at-least-once and
// ordered per reference, so consumers must be idempotent on
// (Reference, Kind).
type Event struct {
	Kind          EventKind       `json:"kind"`
	Reference     uuid.UUID       `json:"reference"`
	FromAccount   string          `json:"from_account"`
	ToAccount     string          `json:"to_account"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	Status        Status          `json:"status"`
	Type          TransferType    `json:"transfer_type"`
	Description   string          `json:"description,omitempty"`
	InitiatedAt   time.Time       `json:"initiated_at"`
	CompletedAt   *time.Time      `json:"completed_at,omitempty"`
	DebitTxnID    string          `json:"debit_txn_id,omitempty"`
	CreditTxnID   string          `json:"credit_txn_id,omitempty"`
	FailureReason string          `json:"failure_reason,omitempty"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

// NewEvent snapshots a transfer into an event of the given kind.
func NewEvent(kind EventKind, t *Transfer, now time.Time) Event {
	if now.IsZero() {
		now = time.Now().UTC()
	}

	e := Event{
		Kind:          kind,
		Reference:     t.Reference,
		FromAccount:   t.FromAccount,
		ToAccount:     t.ToAccount,
		Amount:        t.Amount,
		Currency:      t.Currency,
		Status:        t.Status,
		Type:          t.Type,
		Description:   t.Description,
		InitiatedAt:   t.InitiatedAt,
		DebitTxnID:    t.DebitTxnID,
		CreditTxnID:   t.CreditTxnID,
		FailureReason: t.FailureReason,
		OccurredAt:    now,
	}

	if !t.CompletedAt.IsZero() {
		completed := t.CompletedAt
		e.CompletedAt = &completed
	}

	return e
}

// TerminalEventKind maps a terminal status to the event kind announcing it.
// COMPENSATION_FAILED emits no lifecycle event; it is surfaced through the
// stored status and operational alerting instead.
func TerminalEventKind(s Status) (EventKind, bool) {
	switch s {
	case StatusCompleted:
		return EventCompleted, true
	case StatusFailed:
		return EventFailed, true
	case StatusCompensated:
		return EventCompensated, true
	}
	return "", false
}
