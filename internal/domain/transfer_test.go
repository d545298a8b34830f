package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validParams() NewTransferParams {
	return NewTransferParams{
		Reference:      uuid.New(),
		FromAccount:    "acc-source-001",
		ToAccount:      "acc-dest-002",
		Amount:         decimal.NewFromInt(500),
		Currency:       "usd",
		Type:           TypeInternal,
		IdempotencyKey: "key-1234567890",
	}
}

func TestNewTransfer_Valid(t *testing.T) {
	transfer, err := NewTransfer(validParams())
	require.NoError(t, err)

	assert.Equal(t, StatusPending, transfer.Status)
	assert.Equal(t, "USD", transfer.Currency, "currency should be normalized to uppercase")
	assert.False(t, transfer.InitiatedAt.IsZero())
	assert.True(t, transfer.CompletedAt.IsZero())
}

func TestNewTransfer_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*NewTransferParams)
		wantErr error
	}{
		{"nil reference", func(p *NewTransferParams) { p.Reference = uuid.Nil }, ErrInvalidReference},
		{"empty from account", func(p *NewTransferParams) { p.FromAccount = " " }, ErrInvalidAccount},
		{"same account", func(p *NewTransferParams) { p.ToAccount = p.FromAccount }, ErrSameAccount},
		{"zero amount", func(p *NewTransferParams) { p.Amount = decimal.Zero }, ErrInvalidAmount},
		{"negative amount", func(p *NewTransferParams) { p.Amount = decimal.NewFromInt(-5) }, ErrInvalidAmount},
		{"bad currency", func(p *NewTransferParams) { p.Currency = "USDT" }, ErrInvalidCurrency},
		{"bad type", func(p *NewTransferParams) { p.Type = "WIRE" }, ErrInvalidTransferType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validParams()
			tt.mutate(&p)

			_, err := NewTransfer(p)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestComplete_RequiresDebit(t *testing.T) {
	transfer, err := NewTransfer(validParams())
	require.NoError(t, err)

	err = transfer.Complete("cdt-1", time.Now())
	assert.ErrorIs(t, err, ErrMissingTxnID, "credit without a recorded debit must be impossible")
}

func TestComplete_SetsTerminalState(t *testing.T) {
	transfer, err := NewTransfer(validParams())
	require.NoError(t, err)

	transfer.RecordDebit("dbt-1")

	now := time.Now().UTC()
	require.NoError(t, transfer.Complete("cdt-1", now))

	assert.Equal(t, StatusCompleted, transfer.Status)
	assert.Equal(t, "dbt-1", transfer.DebitTxnID)
	assert.Equal(t, "cdt-1", transfer.CreditTxnID)
	assert.Equal(t, now, transfer.CompletedAt)
}

func TestFail_NoCompensationPath(t *testing.T) {
	transfer, err := NewTransfer(validParams())
	require.NoError(t, err)

	require.NoError(t, transfer.Fail("insufficient funds", time.Now()))

	assert.Equal(t, StatusFailed, transfer.Status)
	assert.Equal(t, "insufficient funds", transfer.FailureReason)
	assert.Empty(t, transfer.DebitTxnID)
	assert.Empty(t, transfer.CreditTxnID)
}

func TestCompensate(t *testing.T) {
	transfer, err := NewTransfer(validParams())
	require.NoError(t, err)

	// Compensation only makes sense after a successful debit.
	assert.ErrorIs(t, transfer.Compensate("credit failed", time.Now()), ErrMissingTxnID)

	transfer.RecordDebit("dbt-1")
	require.NoError(t, transfer.Compensate("credit failed", time.Now()))

	assert.Equal(t, StatusCompensated, transfer.Status)
	assert.Equal(t, "dbt-1", transfer.DebitTxnID)
	assert.Empty(t, transfer.CreditTxnID)
}

func TestFailCompensation_DistinctFromCompensated(t *testing.T) {
	transfer, err := NewTransfer(validParams())
	require.NoError(t, err)

	transfer.RecordDebit("dbt-1")
	require.NoError(t, transfer.FailCompensation("reversal timed out", time.Now()))

	assert.Equal(t, StatusCompensationFailed, transfer.Status)
	assert.NotEqual(t, StatusCompensated, transfer.Status)
	assert.NotEqual(t, StatusFailed, transfer.Status)
}

func TestTerminalStatusIsSticky(t *testing.T) {
	transfer, err := NewTransfer(validParams())
	require.NoError(t, err)

	transfer.RecordDebit("dbt-1")
	require.NoError(t, transfer.Complete("cdt-1", time.Now()))

	completedAt := transfer.CompletedAt

	assert.ErrorIs(t, transfer.Fail("late failure", time.Now()), ErrAlreadyFinalized)
	assert.ErrorIs(t, transfer.Compensate("late", time.Now()), ErrAlreadyFinalized)
	assert.ErrorIs(t, transfer.FailCompensation("late", time.Now()), ErrAlreadyFinalized)
	assert.ErrorIs(t, transfer.Complete("cdt-2", time.Now()), ErrAlreadyFinalized)

	assert.Equal(t, StatusCompleted, transfer.Status)
	assert.Equal(t, completedAt, transfer.CompletedAt, "CompletedAt is set exactly once")
}

func TestStatusIsTerminal(t *testing.T) {
	assert.False(t, StatusPending.IsTerminal())
	assert.True(t, StatusCompleted.IsTerminal())
	assert.True(t, StatusFailed.IsTerminal())
	assert.True(t, StatusCompensated.IsTerminal())
	assert.True(t, StatusCompensationFailed.IsTerminal())
}

func TestTerminalEventKind(t *testing.T) {
	kind, ok := TerminalEventKind(StatusCompleted)
	assert.True(t, ok)
	assert.Equal(t, EventCompleted, kind)

	kind, ok = TerminalEventKind(StatusFailed)
	assert.True(t, ok)
	assert.Equal(t, EventFailed, kind)

	kind, ok = TerminalEventKind(StatusCompensated)
	assert.True(t, ok)
	assert.Equal(t, EventCompensated, kind)

	// COMPENSATION_FAILED is alertable through stored state, not an event.
	_, ok = TerminalEventKind(StatusCompensationFailed)
	assert.False(t, ok)

	_, ok = TerminalEventKind(StatusPending)
	assert.False(t, ok)
}
