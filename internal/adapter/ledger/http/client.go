// Package http is the AccountLedger client for the external balance store.
// The ledger serializes mutations per account with its own exclusive locks;
// this client only has to map its responses onto the domain error taxonomy
// and keep a circuit breaker between the saga and a misbehaving ledger.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"

	"github.com/corepay/transfer-saga-service/internal/domain"
)

const defaultTimeout = 10 * time.Second

// Client implements domain.AccountLedger against the ledger's HTTP API.
type Client struct {
	http    *resty.Client
	breaker *gobreaker.CircuitBreaker
}

// NewClient creates a ledger client for the given base URL.
func NewClient(baseURL string) *Client {
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(defaultTimeout).
		SetHeader("Content-Type", "application/json")

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "account-ledger",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	return &Client{http: httpClient, breaker: breaker}
}

type mutationRequest struct {
	Amount        string `json:"amount"`
	Currency      string `json:"currency"`
	OriginalTxnID string `json:"original_txn_id,omitempty"`
}

type mutationResponse struct {
	TxnID string `json:"txn_id"`
	Error string `json:"error,omitempty"`
}

// Debit withdraws amount from the account.
func (c *Client) Debit(ctx context.Context, account string, amount decimal.Decimal, currency string) (string, error) {
	return c.mutate(ctx, fmt.Sprintf("/accounts/%s/debits", account), mutationRequest{
		Amount:   amount.String(),
		Currency: currency,
	})
}

// Credit deposits amount into the account.
func (c *Client) Credit(ctx context.Context, account string, amount decimal.Decimal, currency string) (string, error) {
	return c.mutate(ctx, fmt.Sprintf("/accounts/%s/credits", account), mutationRequest{
		Amount:   amount.String(),
		Currency: currency,
	})
}

// Reverse puts back a previously debited amount.
func (c *Client) Reverse(ctx context.Context, account string, amount decimal.Decimal, currency string, originalTxnID string) (string, error) {
	return c.mutate(ctx, fmt.Sprintf("/accounts/%s/reversals", account), mutationRequest{
		Amount:        amount.String(),
		Currency:      currency,
		OriginalTxnID: originalTxnID,
	})
}

func (c *Client) mutate(ctx context.Context, path string, req mutationRequest) (string, error) {
	result, err := c.breaker.Execute(func() (any, error) {
		var body mutationResponse

		resp, err := c.http.R().
			SetContext(ctx).
			SetBody(req).
			SetResult(&body).
			SetError(&body).
			Post(path)
		if err != nil {
			// Transport-level failure: timeout, connection refused.
			return nil, fmt.Errorf("%w: %v", domain.ErrLedgerUnavailable, err)
		}

		if err := mapStatus(resp.StatusCode(), body.Error); err != nil {
			return nil, err
		}

		if body.TxnID == "" {
			return nil, fmt.Errorf("%w: ledger returned no txn_id", domain.ErrLedgerUnavailable)
		}

		return body.TxnID, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return "", fmt.Errorf("%w: %v", domain.ErrLedgerUnavailable, err)
		}

		return "", err
	}

	return result.(string), nil
}

// mapStatus converts the ledger's HTTP statuses into the domain taxonomy.
// 5xx responses are transient; the 4xx rejections are permanent.
func mapStatus(status int, detail string) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusPaymentRequired || status == http.StatusUnprocessableEntity:
		return wrapDetail(domain.ErrInsufficientFunds, detail)
	case status == http.StatusNotFound:
		return wrapDetail(domain.ErrAccountNotFound, detail)
	case status == http.StatusConflict:
		return wrapDetail(domain.ErrAccountInactive, detail)
	case status >= 500:
		return wrapDetail(domain.ErrLedgerUnavailable, detail)
	default:
		return fmt.Errorf("ledger: rejected with status %d: %s", status, detail)
	}
}

func wrapDetail(sentinel error, detail string) error {
	if detail == "" {
		return sentinel
	}

	return fmt.Errorf("%w: %s", sentinel, detail)
}
