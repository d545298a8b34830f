package query

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	repomem "github.com/corepay/transfer-saga-service/internal/adapter/repository/memory"
	"github.com/corepay/transfer-saga-service/internal/domain"
)

func seedTransfer(t *testing.T, store *repomem.Store, from, to string, initiatedAt time.Time) *domain.Transfer {
	t.Helper()

	transfer, err := domain.NewTransfer(domain.NewTransferParams{
		Reference:   uuid.New(),
		FromAccount: from,
		ToAccount:   to,
		Amount:      decimal.NewFromInt(100),
		Currency:    "USD",
		Type:        domain.TypeInternal,
		Now:         initiatedAt,
	})
	require.NoError(t, err)
	require.NoError(t, store.Create(context.Background(), transfer))

	return transfer
}

func TestGetByReference_NotFound(t *testing.T) {
	service := NewService(repomem.NewStore())

	_, err := service.GetByReference(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGetByReference_Found(t *testing.T) {
	store := repomem.NewStore()
	service := NewService(store)

	seeded := seedTransfer(t, store, "acc-alpha-01", "acc-beta-02", time.Now().UTC())

	got, err := service.GetByReference(context.Background(), seeded.Reference)
	require.NoError(t, err)
	assert.Equal(t, seeded.Reference, got.Reference)
}

func TestListOperations(t *testing.T) {
	ctx := context.Background()
	store := repomem.NewStore()
	service := NewService(store)

	base := time.Now().UTC()
	older := seedTransfer(t, store, "acc-alpha-01", "acc-beta-02", base.Add(-time.Hour))
	newer := seedTransfer(t, store, "acc-beta-02", "acc-alpha-01", base)
	seedTransfer(t, store, "acc-gamma-03", "acc-delta-04", base.Add(-2*time.Hour))

	both, err := service.ListByAccount(ctx, "acc-alpha-01")
	require.NoError(t, err)
	require.Len(t, both, 2)
	assert.Equal(t, newer.Reference, both[0].Reference, "most recent first")
	assert.Equal(t, older.Reference, both[1].Reference)

	outgoing, err := service.ListOutgoing(ctx, "acc-alpha-01")
	require.NoError(t, err)
	require.Len(t, outgoing, 1)
	assert.Equal(t, older.Reference, outgoing[0].Reference)

	incoming, err := service.ListIncoming(ctx, "acc-alpha-01")
	require.NoError(t, err)
	require.Len(t, incoming, 1)
	assert.Equal(t, newer.Reference, incoming[0].Reference)
}

func TestListReturnsEmptySliceNotError(t *testing.T) {
	service := NewService(repomem.NewStore())

	transfers, err := service.ListByAccount(context.Background(), "acc-unknown-99")
	require.NoError(t, err)
	assert.NotNil(t, transfers)
	assert.Empty(t, transfers)
}
