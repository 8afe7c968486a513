package handler

import (
	"context"
	"strconv"

	"company-wallet/internal/adapter/http/dto"
	"company-wallet/internal/core/domain"
	"company-wallet/internal/core/ports"
	"company-wallet/pkg/apperror"
	"company-wallet/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// HeaderIdempotencyKey lets merchants retry a payout request safely.
const HeaderIdempotencyKey = "Idempotency-Key"

// PayoutHandler handles merchant payout and admin review endpoints.
type PayoutHandler struct {
	svc ports.PayoutService
}

// NewPayoutHandler creates a new PayoutHandler.
func NewPayoutHandler(svc ports.PayoutService) *PayoutHandler {
	return &PayoutHandler{svc: svc}
}

// Request handles POST /api/v1/payouts.
func (h *PayoutHandler) Request(c *gin.Context) {
	p, ok := caller(c)
	if !ok {
		return
	}
	var req dto.PayoutRequest
	if !bindJSON(c, &req) {
		return
	}
	dto.SanitizeStruct(&req)

	var hdr dto.PayoutHeaders
	if err := c.ShouldBindHeader(&hdr); err != nil {
		response.Error(c, apperror.Validation("invalid "+HeaderIdempotencyKey))
		return
	}

	payout, err := h.svc.Request(c.Request.Context(), ports.PayoutInput{
		MerchantID:     p.AccountID,
		Amount:         req.Amount,
		BankAccount:    req.BankAccount,
		IdempotencyKey: hdr.IdempotencyKey,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, payout)
}

// ListMine handles GET /api/v1/payouts.
func (h *PayoutHandler) ListMine(c *gin.Context) {
	p, ok := caller(c)
	if !ok {
		return
	}
	h.list(c, p.AccountID)
}

// ListAll handles GET /api/v1/admin/payouts with an optional ?merchant_id=.
func (h *PayoutHandler) ListAll(c *gin.Context) {
	var merchantID int64
	if raw := c.Query("merchant_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			response.Error(c, apperror.Validation("invalid merchant_id"))
			return
		}
		merchantID = id
	}
	h.list(c, merchantID)
}

func (h *PayoutHandler) list(c *gin.Context, merchantID int64) {
	params := ports.PayoutListParams{MerchantID: merchantID}
	if s := c.Query("status"); s != "" {
		status := domain.PayoutStatus(s)
		params.Status = &status
	}
	params.Limit, _ = strconv.Atoi(c.Query("limit"))

	payouts, err := h.svc.List(c.Request.Context(), params)
	if err != nil {
		response.Error(c, err)
		return
	}
	if payouts == nil {
		payouts = []domain.PayoutRequest{}
	}
	response.OK(c, payouts)
}

// Approve handles POST /api/v1/admin/payouts/:id/approve.
func (h *PayoutHandler) Approve(c *gin.Context) {
	h.decide(c, func(ctx context.Context, id uuid.UUID, admin int64) (*domain.PayoutRequest, error) {
		return h.svc.Approve(ctx, id, admin)
	})
}

// Reject handles POST /api/v1/admin/payouts/:id/reject.
func (h *PayoutHandler) Reject(c *gin.Context) {
	var req dto.RejectPayoutRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}
	dto.SanitizeStruct(&req)

	h.decide(c, func(ctx context.Context, id uuid.UUID, admin int64) (*domain.PayoutRequest, error) {
		return h.svc.Reject(ctx, id, admin, req.Notes)
	})
}

// MarkPaid handles POST /api/v1/admin/payouts/:id/paid.
func (h *PayoutHandler) MarkPaid(c *gin.Context) {
	h.decide(c, func(ctx context.Context, id uuid.UUID, admin int64) (*domain.PayoutRequest, error) {
		return h.svc.MarkPaid(ctx, id, admin)
	})
}

func (h *PayoutHandler) decide(c *gin.Context, fn func(context.Context, uuid.UUID, int64) (*domain.PayoutRequest, error)) {
	p, ok := caller(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	payout, err := fn(c.Request.Context(), id, p.AccountID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, payout)
}
