package saga

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/corepay/transfer-saga-service/internal/backoff"
	"github.com/corepay/transfer-saga-service/internal/domain"
)

const (
	defaultMaxAttempts = 3
	defaultRetryBase   = 50 * time.Millisecond
)

// Orchestrator runs the two-leg transfer saga: debit the source account,
// credit the destination, and on credit failure reverse the debit. Only two
// participants are involved and only one failure mode (credit failure) needs
// compensation, so no two-phase protocol is required.
type Orchestrator struct {
	ledger domain.AccountLedger
	log    *logrus.Logger

	// MaxAttempts bounds the retry budget per ledger call; retries apply to
	// transient errors only.
	MaxAttempts int
	// RetryBase is the base delay of the exponential backoff schedule.
	RetryBase time.Duration
}

// NewOrchestrator creates an Orchestrator with the default retry budget.
func NewOrchestrator(ledger domain.AccountLedger, log *logrus.Logger) *Orchestrator {
	return &Orchestrator{
		ledger:      ledger,
		log:         log,
		MaxAttempts: defaultMaxAttempts,
		RetryBase:   defaultRetryBase,
	}
}

// Execute drives the transfer to a terminal status, mutating it in place.
// The returned error is non-nil only for the compensation-failure escalation:
// every other outcome, including FAILED and COMPENSATED, is a normal terminal
// state and not an error to the caller.
func (o *Orchestrator) Execute(ctx context.Context, t *domain.Transfer) error {
	debitTxn, err := o.callWithRetry(ctx, func(c context.Context) (string, error) {
		return o.ledger.Debit(c, t.FromAccount, t.Amount, t.Currency)
	})
	if err != nil {
		// No funds moved; no compensation needed.
		if failErr := t.Fail(err.Error(), time.Now().UTC()); failErr != nil {
			return failErr
		}

		o.log.WithFields(logrus.Fields{
			"reference": t.Reference,
			"account":   t.FromAccount,
			"reason":    err.Error(),
		}).Info("transfer failed at debit step")

		return nil
	}

	t.RecordDebit(debitTxn)

	creditTxn, creditErr := o.callWithRetry(ctx, func(c context.Context) (string, error) {
		return o.ledger.Credit(c, t.ToAccount, t.Amount, t.Currency)
	})
	if creditErr == nil {
		return t.Complete(creditTxn, time.Now().UTC())
	}

	o.log.WithFields(logrus.Fields{
		"reference":    t.Reference,
		"account":      t.ToAccount,
		"debit_txn_id": debitTxn,
		"reason":       creditErr.Error(),
	}).Warn("credit step failed, attempting compensation")

	return o.compensate(ctx, t, creditErr)
}

// compensate reverses the recorded debit after a credit failure.
func (o *Orchestrator) compensate(ctx context.Context, t *domain.Transfer, creditErr error) error {
	_, err := o.callWithRetry(ctx, func(c context.Context) (string, error) {
		return o.ledger.Reverse(c, t.FromAccount, t.Amount, t.Currency, t.DebitTxnID)
	})
	if err == nil {
		return t.Compensate(creditErr.Error(), time.Now().UTC())
	}

	reason := fmt.Sprintf("credit failed: %v; reversal failed: %v", creditErr, err)
	if markErr := t.FailCompensation(reason, time.Now().UTC()); markErr != nil {
		return markErr
	}

	// Money has left the source account with no confirmed return. This must
	// never be absorbed silently.
	o.log.WithFields(logrus.Fields{
		"reference":    t.Reference,
		"from_account": t.FromAccount,
		"debit_txn_id": t.DebitTxnID,
		"amount":       t.Amount,
		"currency":     t.Currency,
	}).Error("compensation failed, operator intervention required")

	return fmt.Errorf("%w: %s", domain.ErrCompensationFailed, reason)
}

// callWithRetry invokes a ledger operation under the bounded retry budget.
// Only transient errors are retried; permanent rejections return immediately.
func (o *Orchestrator) callWithRetry(ctx context.Context, op func(context.Context) (string, error)) (string, error) {
	attempts := o.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error

	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			if err := backoff.Sleep(ctx, backoff.ExponentialWithJitter(o.RetryBase, attempt-1)); err != nil {
				return "", lastErr
			}
		}

		txnID, err := op(ctx)
		if err == nil {
			return txnID, nil
		}

		lastErr = err
		if !domain.IsTransient(err) {
			return "", err
		}
	}

	return "", lastErr
}
