// Package app wires repositories, the payment gateway and services into the
// gin engine.
package app

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"dealflow-api/config"
	adminapi "dealflow-api/internal/api/admin"
	"dealflow-api/internal/api/billing"
	listingsapi "dealflow-api/internal/api/listings"
	"dealflow-api/internal/api/matches"
	plansapi "dealflow-api/internal/api/plans"
	stripewebhooks "dealflow-api/internal/api/stripewebhook"
	"dealflow-api/internal/api/users"
	routes "dealflow-api/internal/app/http"
	"dealflow-api/internal/domain/access"
	"dealflow-api/internal/domain/plans"
	"dealflow-api/internal/infra/logging"
	"dealflow-api/internal/infra/metrics"
	"dealflow-api/internal/monetization"
	"dealflow-api/internal/repository"
)

// PriceCatalog is a cached price source that admins can flush.
type PriceCatalog interface {
	monetization.PriceCatalog
	Invalidate(priceID string)
}

type Deps struct {
	Config   *config.Config
	Log      zerolog.Logger
	Repos    repository.Set
	Provider monetization.PaymentProvider
	Catalog  PriceCatalog
	Metrics  metrics.Recorder
	// Gatherer backs /metrics; nil disables the endpoint.
	Gatherer prometheus.Gatherer
}

func NewRouter(d Deps) *gin.Engine {
	cfg := d.Config
	if d.Metrics == nil {
		d.Metrics = metrics.Noop{}
	}
	repos := d.Repos
	whitelist := plans.NewWhitelist(cfg.Prices)

	ledger := monetization.NewCustomerLedger(repos.Customers, d.Provider, d.Log.With().Str("component", "customers").Logger())
	pricer := monetization.NewEvaluationPricer(repos.Subscriptions, d.Catalog,
		cfg.EvaluationMemberPrice, cfg.EvaluationPublicPrice, d.Log.With().Str("component", "pricer").Logger())
	checkout := monetization.NewCheckoutOrchestrator(monetization.CheckoutDeps{
		Users:         repos.Users,
		Listings:      repos.Listings,
		Subscriptions: repos.Subscriptions,
		Evaluations:   repos.Evaluations,
		Ledger:        ledger,
		Pricer:        pricer,
		Whitelist:     whitelist,
		Catalog:       d.Catalog,
		Provider:      d.Provider,
		Metrics:       d.Metrics,
		Log:           d.Log.With().Str("component", "checkout").Logger(),
		AppURL:        cfg.AppURL,
	})
	reconciler := monetization.NewReconciler(monetization.ReconcilerDeps{
		Events:        repos.WebhookEvents,
		Subscriptions: repos.Subscriptions,
		Customers:     repos.Customers,
		Evaluations:   repos.Evaluations,
		Payments:      repos.Payments,
		Listings:      repos.Listings,
		Whitelist:     whitelist,
		Provider:      d.Provider,
		Metrics:       d.Metrics,
		Log:           d.Log.With().Str("component", "webhook").Logger(),
	})
	entitlements := monetization.NewEntitlements(repos.Users, repos.Subscriptions, d.Metrics, d.Log.With().Str("component", "entitlements").Logger())
	account := monetization.NewAccount(repos.Customers, d.Provider, d.Catalog, whitelist, cfg.AppURL, d.Log)
	publisher := monetization.NewPublisher(repos.Listings, repos.Subscriptions, access.PublishGate{
		Enforce:       cfg.EnforceListingPlanLimit,
		BaseAllowance: cfg.BaseListingAllowance,
	}, d.Log.With().Str("component", "publish").Logger())

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), logging.Middleware(d.Log))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.CORSOrigin},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	routes.RegisterRoutes(r, routes.Handlers{
		JWTSecret:    cfg.JWTSecret,
		Entitlements: entitlements,
		Gatherer:     d.Gatherer,
		Log:          d.Log,
		Webhook:      stripewebhooks.NewHandler(cfg.StripeWebhookSecret, reconciler, d.Log, d.Metrics),
		Billing:      billing.NewHandler(checkout, account, repos.Payments, d.Log),
		Plans:        plansapi.NewHandler(account, d.Catalog, whitelist, d.Log),
		Users:        users.NewHandler(repos.Users, repos.Subscriptions, entitlements, d.Log),
		Listings:     listingsapi.NewHandler(publisher, monetization.NewBadgeResolver(repos.Subscriptions, repos.Evaluations)),
		Matches:      matches.NewHandler(monetization.NewMatcher(repos.Listings, repos.Investors, d.Log)),
		Admin:        adminapi.NewHandler(repos, entitlements, monetization.NewEvaluationDesk(repos.Evaluations, d.Log), d.Log),
	})
	return r
}
