// Package httpapi exposes the initiate/get/list operations over HTTP.
package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/corepay/transfer-saga-service/internal/domain"
	"github.com/corepay/transfer-saga-service/internal/usecase/intake"
	"github.com/corepay/transfer-saga-service/internal/usecase/query"
)

// Handler routes transfer requests to the intake and query services.
type Handler struct {
	intake *intake.Service
	query  *query.Service
	log    *logrus.Logger
}

// NewHandler creates a Handler.
func NewHandler(intakeSvc *intake.Service, querySvc *query.Service, log *logrus.Logger) *Handler {
	return &Handler{intake: intakeSvc, query: querySvc, log: log}
}

// Register mounts the transfer routes on the router.
func (h *Handler) Register(r *gin.Engine) {
	r.POST("/transfers", h.initiateTransfer)
	r.GET("/transfers/:reference", h.getTransfer)
	r.GET("/accounts/:account/transfers", h.listTransfers)
}

type initiateRequest struct {
	FromAccount    string `json:"from_account"`
	ToAccount      string `json:"to_account"`
	Amount         string `json:"amount"`
	Currency       string `json:"currency"`
	TransferType   string `json:"transfer_type"`
	Description    string `json:"description"`
	IdempotencyKey string `json:"idempotency_key"`
}

func (h *Handler) initiateTransfer(c *gin.Context) {
	var req initiateRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount must be a decimal string"})
		return
	}

	transfer, err := h.intake.Initiate(c.Request.Context(), intake.InitiateInput{
		FromAccount:    req.FromAccount,
		ToAccount:      req.ToAccount,
		Amount:         amount,
		Currency:       req.Currency,
		Type:           domain.TransferType(req.TransferType),
		Description:    req.Description,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		// A compensation failure still produced a durable transfer; report
		// both the record and the operational condition.
		if errors.Is(err, domain.ErrCompensationFailed) && transfer != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":    err.Error(),
				"transfer": toResponse(transfer),
			})
			return
		}

		h.writeError(c, err)

		return
	}

	c.JSON(http.StatusCreated, toResponse(transfer))
}

func (h *Handler) getTransfer(c *gin.Context) {
	reference, err := uuid.Parse(c.Param("reference"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "reference must be a UUID"})
		return
	}

	transfer, err := h.query.GetByReference(c.Request.Context(), reference)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, toResponse(transfer))
}

func (h *Handler) listTransfers(c *gin.Context) {
	account := c.Param("account")

	var (
		transfers []*domain.Transfer
		err       error
	)

	switch c.Query("direction") {
	case "outgoing":
		transfers, err = h.query.ListOutgoing(c.Request.Context(), account)
	case "incoming":
		transfers, err = h.query.ListIncoming(c.Request.Context(), account)
	default:
		transfers, err = h.query.ListByAccount(c.Request.Context(), account)
	}

	if err != nil {
		h.writeError(c, err)
		return
	}

	responses := make([]transferResponse, 0, len(transfers))
	for _, t := range transfers {
		responses = append(responses, toResponse(t))
	}

	c.JSON(http.StatusOK, responses)
}

func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "transfer not found"})
	case errors.Is(err, domain.ErrIdempotencyConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrInvalidCurrency),
		errors.Is(err, domain.ErrSameAccount),
		errors.Is(err, domain.ErrInvalidTransferType):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.log.WithField("error", err.Error()).Error("transfer request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

type transferResponse struct {
	Reference     string `json:"reference"`
	FromAccount   string `json:"from_account"`
	ToAccount     string `json:"to_account"`
	Amount        string `json:"amount"`
	Currency      string `json:"currency"`
	TransferType  string `json:"transfer_type"`
	Description   string `json:"description,omitempty"`
	Status        string `json:"status"`
	DebitTxnID    string `json:"debit_txn_id,omitempty"`
	CreditTxnID   string `json:"credit_txn_id,omitempty"`
	FailureReason string `json:"failure_reason,omitempty"`
	InitiatedAt   string `json:"initiated_at"`
	CompletedAt   string `json:"completed_at,omitempty"`
}

func toResponse(t *domain.Transfer) transferResponse {
	resp := transferResponse{
		Reference:     t.Reference.String(),
		FromAccount:   t.FromAccount,
		ToAccount:     t.ToAccount,
		Amount:        t.Amount.String(),
		Currency:      t.Currency,
		TransferType:  string(t.Type),
		Description:   t.Description,
		Status:        string(t.Status),
		DebitTxnID:    t.DebitTxnID,
		CreditTxnID:   t.CreditTxnID,
		FailureReason: t.FailureReason,
		InitiatedAt:   t.InitiatedAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	}

	if !t.CompletedAt.IsZero() {
		resp.CompletedAt = t.CompletedAt.UTC().Format("2006-01-02T15:04:05.000Z07:00")
	}

	return resp
}
