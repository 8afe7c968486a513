package handler

import (
	"company-wallet/internal/adapter/http/middleware"
	"company-wallet/internal/core/domain"
	"company-wallet/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	Ledger         ports.WalletLedger
	Payments       ports.PaymentRequestService
	Payouts        ports.PayoutService
	Allowances     ports.AllowanceService
	Categories     ports.MerchantCategoryService
	TokenSvc       ports.TokenService
	RateLimitStore middleware.RateLimitStore // nil = rate limiting disabled
	RateLimitRules map[string]middleware.RateLimitRule
	HealthCheckers []ports.HealthChecker
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()

	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20))

	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	rules := deps.RateLimitRules
	if rules == nil {
		rules = middleware.DefaultRateLimitRules(0, 0)
	}
	rl := func(group string) gin.HandlerFunc {
		rule, ok := rules[group]
		if deps.RateLimitStore == nil || !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	wallets := NewWalletHandler(deps.Ledger)
	payments := NewPaymentRequestHandler(deps.Payments)
	payouts := NewPayoutHandler(deps.Payouts)
	allowances := NewAllowanceHandler(deps.Allowances, deps.Categories)

	role := middleware.RequireRole
	v1 := r.Group("/api/v1", middleware.JWTAuth(deps.TokenSvc, deps.Logger))

	v1.GET("/wallets/balance", rl("read"), wallets.GetBalance)
	v1.POST("/wallets/charge", role(domain.RoleCompany), wallets.Charge)
	v1.GET("/transactions", rl("read"), wallets.History)

	pr := v1.Group("/payment-requests")
	{
		pr.POST("", role(domain.RoleMerchant), rl("payment_requests"), payments.Create)
		pr.POST("/:id/confirm", role(domain.RoleEmployee), rl("otp_confirm"), payments.Confirm)
		pr.GET("/:id", role(domain.RoleMerchant, domain.RoleEmployee, domain.RoleAdmin), rl("read"), payments.Get)
	}

	po := v1.Group("/payouts", role(domain.RoleMerchant))
	{
		po.POST("", rl("payouts"), payouts.Request)
		po.GET("", rl("read"), payouts.ListMine)
	}

	v1.GET("/allowances", role(domain.RoleEmployee), rl("read"), allowances.ListMine)

	admin := v1.Group("/admin", role(domain.RoleAdmin), rl("admin"))
	{
		admin.POST("/wallets/adjust", wallets.Adjust)
		admin.POST("/wallets/bulk-credit", wallets.BulkCredit)

		admin.GET("/payouts", payouts.ListAll)
		admin.POST("/payouts/:id/approve", payouts.Approve)
		admin.POST("/payouts/:id/reject", payouts.Reject)
		admin.POST("/payouts/:id/paid", payouts.MarkPaid)

		admin.PUT("/allowances/:employee_id", allowances.SetLimits)
		admin.GET("/allowances/:employee_id", allowances.ListFor)

		admin.PUT("/merchants/:merchant_id/categories", allowances.AssignCategories)
		admin.GET("/merchants/:merchant_id/categories", allowances.ListCategories)
	}

	return r
}
