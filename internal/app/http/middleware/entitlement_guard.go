package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"dealflow-api/internal/domain/access"
	"dealflow-api/internal/domain/users"
)

// EntitlementKey holds the evaluated access.Entitlement on the context.
const EntitlementKey = "entitlement"

type EntitlementSource interface {
	Evaluate(ctx context.Context, userID uint) (access.Entitlement, error)
}

// RequireEntitlement gates membership features. Unverified users are
// rejected before the subscription is even considered, and a failed read
// denies with 503 instead of letting the request through.
func RequireEntitlement(src EntitlementSource, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("user_id")
		if userID == 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		ent, err := src.Evaluate(c.Request.Context(), userID)
		if err != nil {
			log.Error().Err(err).Uint("user_id", userID).Msg("entitlement check failed closed")
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "Entitlement temporarily unavailable"})
			return
		}
		if ent.Unverified {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Please verify your email first"})
			return
		}
		if !ent.Entitled {
			c.AbortWithStatusJSON(http.StatusPaymentRequired, gin.H{"error": "Active membership required"})
			return
		}

		c.Set(EntitlementKey, ent)
		c.Next()
	}
}

// RequireMarketplaceRole runs after RequireEntitlement and admits only the
// given side of the marketplace, as recorded on the profile.
func RequireMarketplaceRole(role users.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		v, _ := c.Get(EntitlementKey)
		ent, ok := v.(access.Entitlement)
		if !ok || ent.Role == nil || *ent.Role != role {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Access denied"})
			return
		}
		c.Next()
	}
}
