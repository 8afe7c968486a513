package handler

import (
	"math"
	"strconv"

	"company-wallet/internal/adapter/http/dto"
	"company-wallet/internal/core/domain"
	"company-wallet/internal/core/ports"
	"company-wallet/pkg/apperror"
	"company-wallet/pkg/response"

	"github.com/gin-gonic/gin"
)

// WalletHandler handles balance reads and funding endpoints.
type WalletHandler struct {
	ledger ports.WalletLedger
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(ledger ports.WalletLedger) *WalletHandler {
	return &WalletHandler{ledger: ledger}
}

// GetBalance handles GET /api/v1/wallets/balance.
func (h *WalletHandler) GetBalance(c *gin.Context) {
	p, ok := caller(c)
	if !ok {
		return
	}

	w, err := h.ledger.GetBalance(c.Request.Context(), p.AccountID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.WalletBalanceResponse{
		AccountID: w.AccountID,
		Balance:   w.Balance.String(),
		Currency:  w.Currency,
	})
}

// Charge handles POST /api/v1/wallets/charge.
func (h *WalletHandler) Charge(c *gin.Context) {
	p, ok := caller(c)
	if !ok {
		return
	}
	var req dto.ChargeRequest
	if !bindJSON(c, &req) {
		return
	}

	entry, err := h.ledger.Charge(c.Request.Context(), p.AccountID, req.EmployeeID, req.Amount)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, entry)
}

// Adjust handles POST /api/v1/admin/wallets/adjust.
func (h *WalletHandler) Adjust(c *gin.Context) {
	p, ok := caller(c)
	if !ok {
		return
	}
	var req dto.AdjustRequest
	if !bindJSON(c, &req) {
		return
	}
	dto.SanitizeStruct(&req)

	move := ports.MovementRequest{
		AccountID: req.AccountID,
		Amount:    req.Amount,
		ActorID:   p.AccountID,
		Note:      req.Note,
	}
	var (
		entry *domain.LedgerEntry
		err   error
	)
	if req.Direction == "debit" {
		entry, err = h.ledger.Debit(c.Request.Context(), move)
	} else {
		entry, err = h.ledger.Credit(c.Request.Context(), move)
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, entry)
}

// BulkCredit handles POST /api/v1/admin/wallets/bulk-credit.
func (h *WalletHandler) BulkCredit(c *gin.Context) {
	p, ok := caller(c)
	if !ok {
		return
	}
	var req dto.BulkCreditRequest
	if !bindJSON(c, &req) {
		return
	}

	items := make([]ports.BulkCreditItem, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, ports.BulkCreditItem{AccountID: it.AccountID, Amount: it.Amount})
	}

	entries, err := h.ledger.BulkCredit(c.Request.Context(), ports.BulkCreditRequest{ActorID: p.AccountID, Items: items})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, entries)
}

// History handles GET /api/v1/transactions.
// Admins may inspect another account with ?account_id=.
func (h *WalletHandler) History(c *gin.Context) {
	p, ok := caller(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	params := ports.LedgerListParams{AccountID: p.AccountID, Page: page, PageSize: pageSize}
	if raw := c.Query("account_id"); raw != "" && p.Role == domain.RoleAdmin {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			response.Error(c, apperror.Validation("invalid account_id"))
			return
		}
		params.AccountID = id
	}
	if t := c.Query("type"); t != "" {
		entryType := domain.EntryType(t)
		params.Type = &entryType
	}

	entries, total, err := h.ledger.History(c.Request.Context(), params)
	if err != nil {
		response.Error(c, err)
		return
	}
	if entries == nil {
		entries = []domain.LedgerEntry{}
	}

	response.OK(c, dto.ListResponse[domain.LedgerEntry]{
		Items:      entries,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: int(math.Ceil(float64(total) / float64(pageSize))),
	})
}
