// Package memory is an in-process AccountLedger for tests and local runs.
// It reproduces the contract the saga depends on: every debit, credit and
// reversal mutates a single account under that account's exclusive lock.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/corepay/transfer-saga-service/internal/domain"
)

type account struct {
	mu      sync.Mutex
	balance decimal.Decimal
	active  bool
}

// Ledger implements domain.AccountLedger in memory with per-account locks
// and failure injection hooks for exercising the saga's compensation paths.
type Ledger struct {
	mu       sync.Mutex
	accounts map[string]*account

	// CreditFailure, when set, makes every credit fail with this error.
	CreditFailure error
	// ReverseFailure, when set, makes every reversal fail with this error.
	ReverseFailure error

	// TransientDebitFailures fails that many debit calls with
	// ErrLedgerUnavailable before letting one through, for retry tests.
	TransientDebitFailures int

	callMu    sync.Mutex
	debits    int
	credits   int
	reversals int
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{accounts: make(map[string]*account)}
}

// CreateAccount registers an active account with an opening balance.
func (l *Ledger) CreateAccount(id string, balance decimal.Decimal) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.accounts[id] = &account{balance: balance, active: true}
}

// Deactivate marks an account inactive; further mutations are rejected.
func (l *Ledger) Deactivate(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if acc, ok := l.accounts[id]; ok {
		acc.active = false
	}
}

// Balance returns the current balance of an account.
func (l *Ledger) Balance(id string) decimal.Decimal {
	acc, err := l.lookup(id)
	if err != nil {
		return decimal.Zero
	}

	acc.mu.Lock()
	defer acc.mu.Unlock()

	return acc.balance
}

// Calls reports how many debits, credits and reversals were performed.
func (l *Ledger) Calls() (debits, credits, reversals int) {
	l.callMu.Lock()
	defer l.callMu.Unlock()

	return l.debits, l.credits, l.reversals
}

// Debit withdraws amount under the account's exclusive lock.
func (l *Ledger) Debit(ctx context.Context, accountID string, amount decimal.Decimal, currency string) (string, error) {
	l.callMu.Lock()
	l.debits++
	if l.TransientDebitFailures > 0 {
		l.TransientDebitFailures--
		l.callMu.Unlock()
		return "", domain.ErrLedgerUnavailable
	}
	l.callMu.Unlock()

	acc, err := l.lookup(accountID)
	if err != nil {
		return "", err
	}

	acc.mu.Lock()
	defer acc.mu.Unlock()

	if !acc.active {
		return "", domain.ErrAccountInactive
	}

	if acc.balance.LessThan(amount) {
		return "", fmt.Errorf("%w: balance %s, requested %s", domain.ErrInsufficientFunds, acc.balance, amount)
	}

	acc.balance = acc.balance.Sub(amount)

	return newTxnID("dbt"), nil
}

// Credit deposits amount under the account's exclusive lock.
func (l *Ledger) Credit(ctx context.Context, accountID string, amount decimal.Decimal, currency string) (string, error) {
	l.callMu.Lock()
	l.credits++
	l.callMu.Unlock()

	if l.CreditFailure != nil {
		return "", l.CreditFailure
	}

	acc, err := l.lookup(accountID)
	if err != nil {
		return "", err
	}

	acc.mu.Lock()
	defer acc.mu.Unlock()

	if !acc.active {
		return "", domain.ErrAccountInactive
	}

	acc.balance = acc.balance.Add(amount)

	return newTxnID("cdt"), nil
}

// Reverse puts back a previously debited amount.
func (l *Ledger) Reverse(ctx context.Context, accountID string, amount decimal.Decimal, currency string, originalTxnID string) (string, error) {
	l.callMu.Lock()
	l.reversals++
	l.callMu.Unlock()

	if l.ReverseFailure != nil {
		return "", l.ReverseFailure
	}

	if originalTxnID == "" {
		return "", domain.ErrReversalRejected
	}

	acc, err := l.lookup(accountID)
	if err != nil {
		return "", err
	}

	acc.mu.Lock()
	defer acc.mu.Unlock()

	acc.balance = acc.balance.Add(amount)

	return newTxnID("rev"), nil
}

func (l *Ledger) lookup(id string) (*account, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	acc, ok := l.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}

	return acc, nil
}

func newTxnID(prefix string) string {
	return prefix + "-" + uuid.NewString()
}
