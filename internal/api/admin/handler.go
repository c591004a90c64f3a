package admin

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"dealflow-api/internal/api/billing"
	"dealflow-api/internal/api/respond"
	"dealflow-api/internal/domain/access"
	domain "dealflow-api/internal/domain/billing"
	"dealflow-api/internal/monetization"
	"dealflow-api/internal/repository"
)

type AdminUser struct {
	ID               uint               `json:"id"`
	Name             string             `json:"name"`
	Email            string             `json:"email"`
	Role             string             `json:"role"`
	IsVerified       bool               `json:"is_verified"`
	StripeCustomerID *string            `json:"stripe_customer_id,omitempty"`
	Access           access.Entitlement `json:"access"`
}

type AdminPayment struct {
	ID          uint    `json:"id"`
	UserID      uint    `json:"user_id"`
	AmountCents int64   `json:"amount_cents"`
	Currency    string  `json:"currency"`
	Status      string  `json:"status"`
	InvoiceID   string  `json:"invoice_id"`
	ReceiptURL  *string `json:"receipt_url,omitempty"`
	CreatedAt   string  `json:"created_at"`
}

type Entitlements interface {
	Evaluate(ctx context.Context, userID uint) (access.Entitlement, error)
}

type Handler struct {
	users        repository.Users
	customers    repository.Customers
	subs         repository.Subscriptions
	payments     repository.Payments
	entitlements Entitlements
	desk         *monetization.EvaluationDesk
	log          zerolog.Logger
}

func NewHandler(repos repository.Set, ent Entitlements, desk *monetization.EvaluationDesk, log zerolog.Logger) *Handler {
	return &Handler{
		users:        repos.Users,
		customers:    repos.Customers,
		subs:         repos.Subscriptions,
		payments:     repos.Payments,
		entitlements: ent,
		desk:         desk,
		log:          log,
	}
}

func toAdminPayments(in []domain.Payment) []AdminPayment {
	out := make([]AdminPayment, 0, len(in))
	for _, p := range in {
		out = append(out, AdminPayment{
			ID:          p.ID,
			UserID:      p.UserID,
			AmountCents: p.AmountCents,
			Currency:    p.Currency,
			Status:      p.Status,
			InvoiceID:   p.InvoiceID,
			ReceiptURL:  p.ReceiptURL,
			CreatedAt:   p.CreatedAt.Format("2006-01-02 15:04"),
		})
	}
	return out
}

func (h *Handler) ListAllPayments(c *gin.Context) {
	payments, err := h.payments.ListAll(c.Request.Context(), billing.PageLimit(c))
	if err != nil {
		h.log.Error().Err(err).Msg("admin: load payments")
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, toAdminPayments(payments))
}

func (h *Handler) GetUserDetails(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respond.Error(c, domain.Invalid("Invalid user id"))
		return
	}
	ctx := c.Request.Context()
	userID := uint(id)

	user, err := h.users.GetByID(ctx, userID)
	if err != nil {
		respond.Error(c, err)
		return
	}

	out := AdminUser{
		ID:         user.ID,
		Name:       user.Name,
		Email:      user.Email,
		Role:       string(user.Role),
		IsVerified: user.IsVerified,
	}
	if m, err := h.customers.GetByUserID(ctx, userID); err == nil {
		out.StripeCustomerID = &m.ExternalCustomerID
	} else if !errors.Is(err, domain.ErrNotFound) {
		respond.Error(c, err)
		return
	}

	// A degraded entitlement is still shown; admins need to see the failure.
	ent, err := h.entitlements.Evaluate(ctx, userID)
	if err != nil {
		h.log.Warn().Err(err).Uint("user_id", userID).Msg("admin: entitlement degraded")
	}
	out.Access = ent

	subs, err := h.subs.ListByUser(ctx, userID)
	if err != nil {
		respond.Error(c, err)
		return
	}
	payments, err := h.payments.ListByUser(ctx, userID, billing.PageLimit(c))
	if err != nil {
		respond.Error(c, err)
		return
	}
	if subs == nil {
		subs = []domain.Subscription{}
	}

	c.JSON(http.StatusOK, gin.H{
		"user":          out,
		"subscriptions": subs,
		"payments":      toAdminPayments(payments),
	})
}

type advanceBody struct {
	Status string `json:"status" binding:"required"`
}

// AdvanceEvaluation moves an evaluation purchase forward; it is how the
// valuation provider reports progress.
func (h *Handler) AdvanceEvaluation(c *gin.Context) {
	var body advanceBody
	if err := c.ShouldBindJSON(&body); err != nil {
		respond.Error(c, domain.Invalid("Missing status"))
		return
	}
	to, ok := domain.ParseEvaluationStatus(body.Status)
	if !ok {
		respond.Error(c, domain.Invalid("Invalid status"))
		return
	}

	ev, err := h.desk.Advance(c.Request.Context(), c.Param("id"), to)
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, ev)
}
