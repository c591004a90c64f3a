package users

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"dealflow-api/internal/api/respond"
	"dealflow-api/internal/domain/access"
	"dealflow-api/internal/domain/billing"
	"dealflow-api/internal/repository"
)

// EntitlementSource evaluates the membership gate for a user.
type EntitlementSource interface {
	Evaluate(ctx context.Context, userID uint) (access.Entitlement, error)
}

type Handler struct {
	users        repository.Users
	subs         repository.Subscriptions
	entitlements EntitlementSource
	log          zerolog.Logger
}

func NewHandler(u repository.Users, subs repository.Subscriptions, ent EntitlementSource, log zerolog.Logger) *Handler {
	return &Handler{users: u, subs: subs, entitlements: ent, log: log}
}

func (h *Handler) GetCurrentUser(c *gin.Context) {
	userID := c.GetUint("user_id")
	if userID == 0 {
		respond.Error(c, billing.ErrUnauthenticated)
		return
	}
	ctx := c.Request.Context()

	user, err := h.users.GetByID(ctx, userID)
	if err != nil {
		respond.Error(c, err)
		return
	}

	ent, err := h.entitlements.Evaluate(ctx, userID)
	if err != nil {
		h.log.Error().Err(err).Uint("user_id", userID).Msg("entitlement unavailable for /me")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Entitlement temporarily unavailable"})
		return
	}
	subs, err := h.subs.ListByUser(ctx, userID)
	if err != nil {
		h.log.Error().Err(err).Uint("user_id", userID).Msg("load subscriptions for /me")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Entitlement temporarily unavailable"})
		return
	}

	c.JSON(http.StatusOK, MeResponse{
		User:    BuildUserDTO(user),
		Billing: BuildBillingDTO(time.Now(), subs),
		Access:  BuildAccessDTO(ent, subs),
	})
}
