package handler

import (
	"company-wallet/internal/adapter/http/dto"
	"company-wallet/internal/core/domain"
	"company-wallet/internal/core/ports"
	"company-wallet/pkg/response"

	"github.com/gin-gonic/gin"
)

// AllowanceHandler exposes category spending limits.
type AllowanceHandler struct {
	allowances ports.AllowanceService
	categories ports.MerchantCategoryService
}

// NewAllowanceHandler creates a new AllowanceHandler.
func NewAllowanceHandler(allowances ports.AllowanceService, categories ports.MerchantCategoryService) *AllowanceHandler {
	return &AllowanceHandler{allowances: allowances, categories: categories}
}

// SetLimits handles PUT /api/v1/admin/allowances/:employee_id.
func (h *AllowanceHandler) SetLimits(c *gin.Context) {
	employeeID, ok := accountParam(c, "employee_id")
	if !ok {
		return
	}
	var req dto.SetLimitsRequest
	if !bindJSON(c, &req) {
		return
	}

	specs := make([]domain.LimitSpec, 0, len(req.Limits))
	for _, l := range req.Limits {
		specs = append(specs, domain.LimitSpec{CategoryID: l.CategoryID, Limit: l.Limit})
	}
	if err := h.allowances.SetLimits(c.Request.Context(), employeeID, req.CompanyID, specs); err != nil {
		response.Error(c, err)
		return
	}
	h.respondLimits(c, employeeID)
}

// ListMine handles GET /api/v1/allowances.
func (h *AllowanceHandler) ListMine(c *gin.Context) {
	p, ok := caller(c)
	if !ok {
		return
	}
	h.respondLimits(c, p.AccountID)
}

// ListFor handles GET /api/v1/admin/allowances/:employee_id.
func (h *AllowanceHandler) ListFor(c *gin.Context) {
	employeeID, ok := accountParam(c, "employee_id")
	if !ok {
		return
	}
	h.respondLimits(c, employeeID)
}

func (h *AllowanceHandler) respondLimits(c *gin.Context, employeeID int64) {
	limits, err := h.allowances.ListLimits(c.Request.Context(), employeeID)
	if err != nil {
		response.Error(c, err)
		return
	}

	out := make([]dto.AllowanceResponse, 0, len(limits))
	for i := range limits {
		a := &limits[i]
		out = append(out, dto.AllowanceResponse{
			CategoryID:    a.CategoryID,
			SpendingLimit: a.SpendingLimit.String(),
			SpentAmount:   a.SpentAmount.String(),
			Remaining:     a.Remaining().String(),
		})
	}
	response.OK(c, out)
}

// AssignCategories handles PUT /api/v1/admin/merchants/:merchant_id/categories.
func (h *AllowanceHandler) AssignCategories(c *gin.Context) {
	merchantID, ok := accountParam(c, "merchant_id")
	if !ok {
		return
	}
	var req dto.AssignCategoriesRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.categories.Assign(c.Request.Context(), merchantID, req.CategoryIDs); err != nil {
		response.Error(c, err)
		return
	}
	h.respondCategories(c, merchantID)
}

// ListCategories handles GET /api/v1/admin/merchants/:merchant_id/categories.
func (h *AllowanceHandler) ListCategories(c *gin.Context) {
	merchantID, ok := accountParam(c, "merchant_id")
	if !ok {
		return
	}
	h.respondCategories(c, merchantID)
}

func (h *AllowanceHandler) respondCategories(c *gin.Context, merchantID int64) {
	ids, err := h.categories.List(c.Request.Context(), merchantID)
	if err != nil {
		response.Error(c, err)
		return
	}
	if ids == nil {
		ids = []int64{}
	}
	response.OK(c, dto.CategoriesResponse{MerchantID: merchantID, CategoryIDs: ids})
}
