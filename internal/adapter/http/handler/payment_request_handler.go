package handler

import (
	"company-wallet/internal/adapter/http/dto"
	"company-wallet/internal/core/ports"
	"company-wallet/pkg/response"

	"github.com/gin-gonic/gin"
)

// PaymentRequestHandler handles the OTP-gated checkout endpoints.
type PaymentRequestHandler struct {
	svc ports.PaymentRequestService
}

// NewPaymentRequestHandler creates a new PaymentRequestHandler.
func NewPaymentRequestHandler(svc ports.PaymentRequestService) *PaymentRequestHandler {
	return &PaymentRequestHandler{svc: svc}
}

// Create handles POST /api/v1/payment-requests.
func (h *PaymentRequestHandler) Create(c *gin.Context) {
	p, ok := caller(c)
	if !ok {
		return
	}
	var req dto.CreatePaymentRequest
	if !bindJSON(c, &req) {
		return
	}
	dto.SanitizeStruct(&req)

	pr, err := h.svc.Create(c.Request.Context(), ports.CreatePaymentRequest{
		MerchantID: p.AccountID,
		EmployeeID: req.EmployeeID,
		NationalID: req.NationalID,
		CategoryID: req.CategoryID,
		Amount:     req.Amount,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, pr)
}

// Confirm handles POST /api/v1/payment-requests/:id/confirm.
func (h *PaymentRequestHandler) Confirm(c *gin.Context) {
	p, ok := caller(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req dto.ConfirmPaymentRequest
	if !bindJSON(c, &req) {
		return
	}

	pr, err := h.svc.Confirm(c.Request.Context(), ports.ConfirmPaymentRequest{
		RequestID: id,
		Caller:    p,
		OTP:       req.OTP,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, pr)
}

// Get handles GET /api/v1/payment-requests/:id.
func (h *PaymentRequestHandler) Get(c *gin.Context) {
	p, ok := caller(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	pr, err := h.svc.Get(c.Request.Context(), id, p)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, pr)
}
