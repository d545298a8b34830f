package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corepay/transfer-saga-service/internal/domain"
)

func newTransfer(t *testing.T, key string) *domain.Transfer {
	t.Helper()

	transfer, err := domain.NewTransfer(domain.NewTransferParams{
		Reference:      uuid.New(),
		FromAccount:    "acc-source-001",
		ToAccount:      "acc-dest-002",
		Amount:         decimal.NewFromInt(100),
		Currency:       "USD",
		Type:           domain.TypeInternal,
		IdempotencyKey: key,
	})
	require.NoError(t, err)

	return transfer
}

func TestCreate_EnforcesIdempotencyKeyUniqueness(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	require.NoError(t, store.Create(ctx, newTransfer(t, "key-1234567890")))

	err := store.Create(ctx, newTransfer(t, "key-1234567890"))
	assert.ErrorIs(t, err, domain.ErrDuplicateIdempotencyKey)
}

func TestCreate_AllowsMultipleKeylessTransfers(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	require.NoError(t, store.Create(ctx, newTransfer(t, "")))
	require.NoError(t, store.Create(ctx, newTransfer(t, "")))
}

func TestUpdate_UnknownTransfer(t *testing.T) {
	store := NewStore()

	err := store.Update(context.Background(), newTransfer(t, ""))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestFindByIdempotencyKey(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	created := newTransfer(t, "key-1234567890")
	require.NoError(t, store.Create(ctx, created))

	found, err := store.FindByIdempotencyKey(ctx, "key-1234567890")
	require.NoError(t, err)
	assert.Equal(t, created.Reference, found.Reference)

	_, err = store.FindByIdempotencyKey(ctx, "key-other-0000")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestReadsReturnSnapshots(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	created := newTransfer(t, "")
	require.NoError(t, store.Create(ctx, created))

	read, err := store.FindByReference(ctx, created.Reference)
	require.NoError(t, err)

	// Mutating the returned value must not leak into the store.
	read.Status = domain.StatusFailed

	again, err := store.FindByReference(ctx, created.Reference)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, again.Status)
}

func TestListOrdering(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	base := time.Now().UTC()

	older := newTransfer(t, "")
	older.InitiatedAt = base.Add(-time.Hour)
	require.NoError(t, store.Create(ctx, older))

	newer := newTransfer(t, "")
	newer.InitiatedAt = base
	require.NoError(t, store.Create(ctx, newer))

	listed, err := store.FindOutgoing(ctx, "acc-source-001")
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, newer.Reference, listed[0].Reference)
	assert.Equal(t, older.Reference, listed[1].Reference)
}
