package domain

import "errors"

var (
	// Construction / validation errors. These are rejected before admission
	// and never create a Transfer record.
	ErrValidation          = errors.New("transfer: invalid request")
	ErrInvalidReference    = errors.New("transfer: invalid reference")
	ErrInvalidAccount      = errors.New("transfer: account identifier is required")
	ErrSameAccount         = errors.New("transfer: from_account equals to_account")
	ErrInvalidAmount       = errors.New("transfer: amount must be positive")
	ErrInvalidCurrency     = errors.New("transfer: currency must be a 3-letter ISO code")
	ErrInvalidTransferType = errors.New("transfer: type must be INTERNAL or EXTERNAL")

	// State machine errors.
	ErrAlreadyFinalized     = errors.New("transfer: transfer already reached a terminal status")
	ErrMissingTxnID         = errors.New("transfer: ledger transaction id is required")
	ErrMissingFailureReason = errors.New("transfer: failure reason is required")

	// ErrNotFound is returned by the read path for an unknown reference.
	ErrNotFound = errors.New("transfer: not found")

	// Ledger rejections. InsufficientFunds and the account-state errors are
	// permanent: retrying cannot help. LedgerUnavailable is transient.
	ErrInsufficientFunds = errors.New("ledger: insufficient funds")
	ErrAccountNotFound   = errors.New("ledger: account not found")
	ErrAccountInactive   = errors.New("ledger: account is not active")
	ErrLedgerUnavailable = errors.New("ledger: temporarily unavailable")
	ErrReversalRejected  = errors.New("ledger: reversal rejected")

	// ErrCompensationFailed escalates a failed reversal of a successful
	// debit: funds left the source account with no confirmed return.
	ErrCompensationFailed = errors.New("saga: compensation failed")

	// ErrDuplicateIdempotencyKey is returned by TransferRepository.Create
	// when the idempotency key uniqueness constraint rejects the insert.
	// The intake layer converts it into a read of the winning record.
	ErrDuplicateIdempotencyKey = errors.New("store: idempotency key already used")

	// ErrIdempotencyConflict means an idempotency key was reused with a
	// different payload. This is a client bug, not a retry.
	ErrIdempotencyConflict = errors.New("idempotency: key reused with a different payload")
)

// IsTransient reports whether a ledger error is worth retrying within the
// bounded retry budget. Permanent rejections and domain errors are not.
func IsTransient(err error) bool {
	return errors.Is(err, ErrLedgerUnavailable)
}
