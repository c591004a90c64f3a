package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	adminapi "dealflow-api/internal/api/admin"
	"dealflow-api/internal/api/billing"
	listingsapi "dealflow-api/internal/api/listings"
	"dealflow-api/internal/api/matches"
	"dealflow-api/internal/api/plans"
	stripewebhooks "dealflow-api/internal/api/stripewebhook"
	"dealflow-api/internal/api/users"
	"dealflow-api/internal/app/http/middleware"
	domainusers "dealflow-api/internal/domain/users"
)

// Handlers bundles everything the router needs.
type Handlers struct {
	JWTSecret    string
	Entitlements middleware.EntitlementSource
	Gatherer     prometheus.Gatherer
	Log          zerolog.Logger

	Webhook  *stripewebhooks.Handler
	Billing  *billing.Handler
	Plans    *plans.Handler
	Users    *users.Handler
	Listings *listingsapi.Handler
	Matches  *matches.Handler
	Admin    *adminapi.Handler
}

func RegisterRoutes(r *gin.Engine, h Handlers) {
	// The webhook reads the raw body for signature checks; nothing may touch it first.
	r.POST("/webhook", h.Webhook.StripeWebhook)
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if h.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(h.Gatherer, promhttp.HandlerOpts{})))
	}

	public := r.Group("/")
	public.Use(middleware.SanitizeAndCleanInputMiddleware())
	public.GET("/plans", h.Plans.ListPlans)

	// Authenticated
	auth := r.Group("/")
	auth.Use(middleware.AuthMiddleware(h.JWTSecret), middleware.SanitizeAndCleanInputMiddleware())
	auth.GET("/me", h.Users.GetCurrentUser)
	auth.GET("/payments", h.Billing.GetPaymentHistory)
	auth.POST("/checkout", h.Billing.CreateCheckoutSession)
	auth.POST("/create-checkout-session", h.Billing.CreateCheckoutSession)
	auth.POST("/evaluations/checkout", h.Billing.CreateEvaluationCheckout)
	auth.POST("/billing-portal", h.Billing.CreateBillingPortal)
	auth.GET("/listings/badges", h.Listings.Badges)

	// Members
	entitled := auth.Group("/")
	entitled.Use(middleware.RequireEntitlement(h.Entitlements, h.Log))
	entitled.POST("/listings/:id/publish", h.Listings.Publish)
	entitled.GET("/matches/investors", middleware.RequireMarketplaceRole(domainusers.RoleBusiness), h.Matches.Investors)
	entitled.GET("/matches/listings", middleware.RequireMarketplaceRole(domainusers.RoleInvestor), h.Matches.Listings)

	// Admin routes
	admin := r.Group("/admin")
	admin.Use(middleware.AuthMiddleware(h.JWTSecret), middleware.RequireRole("admin"))
	admin.GET("/payments", h.Admin.ListAllPayments)
	admin.GET("/users/:id", h.Admin.GetUserDetails)
	admin.POST("/evaluations/:id/status", h.Admin.AdvanceEvaluation)
	admin.POST("/sync-plans", h.Plans.SyncPlans)
}
