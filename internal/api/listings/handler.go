// Package listings serves publish gating and listing badges.
package listings

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"dealflow-api/internal/api/respond"
	"dealflow-api/internal/domain/billing"
	"dealflow-api/internal/monetization"
)

type Handler struct {
	publisher *monetization.Publisher
	badges    *monetization.BadgeResolver
}

func NewHandler(p *monetization.Publisher, b *monetization.BadgeResolver) *Handler {
	return &Handler{publisher: p, badges: b}
}

func (h *Handler) Publish(c *gin.Context) {
	id := c.Param("id")
	if err := h.publisher.Publish(c.Request.Context(), c.GetUint("user_id"), id); err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "is_active": true})
}

// Badges takes ids as ?ids=a,b or repeated ?ids=a&ids=b.
func (h *Handler) Badges(c *gin.Context) {
	var ids []string
	for _, raw := range c.QueryArray("ids") {
		for _, id := range strings.Split(raw, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
	}
	if len(ids) > monetization.MaxBadgeIDs {
		respond.Error(c, billing.Invalid("Too many ids"))
		return
	}

	b, err := h.badges.Badges(c.Request.Context(), ids)
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}
