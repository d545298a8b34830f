package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/corepay/transfer-saga-service/internal/domain"
)

// uniqueViolation is the Postgres error code raised when an insert hits a
// unique index. It is what arbitrates concurrent admissions for one
// idempotency key.
const uniqueViolation = "23505"

// Schema is the DDL for the transfer store. The partial unique index on
// idempotency_key is the authoritative dedup constraint; the 24h cache in
// front of it is an optimization only.
const Schema = `
CREATE TABLE IF NOT EXISTS transfers (
	reference        UUID PRIMARY KEY,
	from_account     TEXT NOT NULL,
	to_account       TEXT NOT NULL,
	amount           NUMERIC(20, 4) NOT NULL,
	currency         CHAR(3) NOT NULL,
	transfer_type    TEXT NOT NULL,
	description      TEXT NOT NULL DEFAULT '',
	idempotency_key  TEXT,
	fingerprint      TEXT NOT NULL DEFAULT '',
	status           TEXT NOT NULL,
	debit_txn_id     TEXT NOT NULL DEFAULT '',
	credit_txn_id    TEXT NOT NULL DEFAULT '',
	failure_reason   TEXT NOT NULL DEFAULT '',
	initiated_at     TIMESTAMPTZ NOT NULL,
	completed_at     TIMESTAMPTZ
);

CREATE UNIQUE INDEX IF NOT EXISTS transfers_idempotency_key_idx
	ON transfers (idempotency_key) WHERE idempotency_key IS NOT NULL;

CREATE INDEX IF NOT EXISTS transfers_from_account_idx ON transfers (from_account, initiated_at DESC);
CREATE INDEX IF NOT EXISTS transfers_to_account_idx ON transfers (to_account, initiated_at DESC);
`

// transferRepository implements domain.TransferRepository
type transferRepository struct {
	db *DB
}

// NewTransferRepository creates a new transfer repository
func NewTransferRepository(db *DB) domain.TransferRepository {
	return &transferRepository{db: db}
}

// EnsureSchema creates the transfers table and indexes if they do not exist.
func EnsureSchema(ctx context.Context, db *DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("failed to ensure transfers schema: %w", err)
	}

	return nil
}

// Create persists a new PENDING transfer. Persisting the record is its own
// transaction: the saga steps that follow call out to another service and are
// deliberately not wrapped in a database transaction.
func (r *transferRepository) Create(ctx context.Context, t *domain.Transfer) error {
	query := `
		INSERT INTO transfers (
			reference, from_account, to_account, amount, currency,
			transfer_type, description, idempotency_key, fingerprint,
			status, debit_txn_id, credit_txn_id, failure_reason,
			initiated_at, completed_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err := r.db.ExecContext(ctx, query,
		t.Reference,
		t.FromAccount,
		t.ToAccount,
		t.Amount.String(),
		t.Currency,
		string(t.Type),
		t.Description,
		nullableKey(t.IdempotencyKey),
		t.Fingerprint,
		string(t.Status),
		t.DebitTxnID,
		t.CreditTxnID,
		t.FailureReason,
		t.InitiatedAt,
		nullableTime(t.CompletedAt),
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation &&
			strings.Contains(pqErr.Constraint, "idempotency_key") {
			return domain.ErrDuplicateIdempotencyKey
		}

		return fmt.Errorf("failed to insert transfer: %w", err)
	}

	return nil
}

// Update persists the terminal state of a previously created transfer.
func (r *transferRepository) Update(ctx context.Context, t *domain.Transfer) error {
	query := `
		UPDATE transfers
		SET status = $2, debit_txn_id = $3, credit_txn_id = $4,
			failure_reason = $5, completed_at = $6
		WHERE reference = $1
	`

	res, err := r.db.ExecContext(ctx, query,
		t.Reference,
		string(t.Status),
		t.DebitTxnID,
		t.CreditTxnID,
		t.FailureReason,
		nullableTime(t.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to update transfer: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}

	if affected == 0 {
		return domain.ErrNotFound
	}

	return nil
}

// FindByReference retrieves a transfer by its reference.
func (r *transferRepository) FindByReference(ctx context.Context, reference uuid.UUID) (*domain.Transfer, error) {
	row := r.db.QueryRowContext(ctx, selectQuery+` WHERE reference = $1`, reference)

	return scanTransfer(row)
}

// FindByIdempotencyKey retrieves the transfer admitted under key.
func (r *transferRepository) FindByIdempotencyKey(ctx context.Context, key string) (*domain.Transfer, error) {
	row := r.db.QueryRowContext(ctx, selectQuery+` WHERE idempotency_key = $1`, key)

	return scanTransfer(row)
}

// FindByAccount lists transfers where account is either leg, most recent first.
func (r *transferRepository) FindByAccount(ctx context.Context, account string) ([]*domain.Transfer, error) {
	query := selectQuery + ` WHERE from_account = $1 OR to_account = $1 ORDER BY initiated_at DESC`

	return r.list(ctx, query, account)
}

// FindOutgoing lists transfers where account is the source, most recent first.
func (r *transferRepository) FindOutgoing(ctx context.Context, account string) ([]*domain.Transfer, error) {
	query := selectQuery + ` WHERE from_account = $1 ORDER BY initiated_at DESC`

	return r.list(ctx, query, account)
}

// FindIncoming lists transfers where account is the destination, most recent first.
func (r *transferRepository) FindIncoming(ctx context.Context, account string) ([]*domain.Transfer, error) {
	query := selectQuery + ` WHERE to_account = $1 ORDER BY initiated_at DESC`

	return r.list(ctx, query, account)
}

const selectQuery = `
	SELECT reference, from_account, to_account, amount, currency,
		transfer_type, description, idempotency_key, fingerprint,
		status, debit_txn_id, credit_txn_id, failure_reason,
		initiated_at, completed_at
	FROM transfers
`

func (r *transferRepository) list(ctx context.Context, query string, account string) ([]*domain.Transfer, error) {
	rows, err := r.db.QueryContext(ctx, query, account)
	if err != nil {
		return nil, fmt.Errorf("failed to query transfers: %w", err)
	}
	defer rows.Close()

	transfers := make([]*domain.Transfer, 0)

	for rows.Next() {
		t, err := scanTransfer(rows)
		if err != nil {
			return nil, err
		}
		transfers = append(transfers, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transfers: %w", err)
	}

	return transfers, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransfer(row rowScanner) (*domain.Transfer, error) {
	var (
		t           domain.Transfer
		amount      string
		key         sql.NullString
		completedAt sql.NullTime
		status      string
		typ         string
	)

	err := row.Scan(
		&t.Reference,
		&t.FromAccount,
		&t.ToAccount,
		&amount,
		&t.Currency,
		&typ,
		&t.Description,
		&key,
		&t.Fingerprint,
		&status,
		&t.DebitTxnID,
		&t.CreditTxnID,
		&t.FailureReason,
		&t.InitiatedAt,
		&completedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}

		return nil, fmt.Errorf("failed to scan transfer: %w", err)
	}

	parsed, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("failed to parse stored amount: %w", err)
	}

	t.Amount = parsed
	t.Currency = strings.TrimSpace(t.Currency)
	t.Status = domain.Status(status)
	t.Type = domain.TransferType(typ)

	if key.Valid {
		t.IdempotencyKey = key.String
	}

	if completedAt.Valid {
		t.CompletedAt = completedAt.Time
	}

	return &t, nil
}

func nullableKey(key string) any {
	if key == "" {
		return nil
	}

	return key
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}

	return t
}
