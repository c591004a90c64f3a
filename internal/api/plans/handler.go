// Package plans lists the purchasable prices and lets admins refresh them.
package plans

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"dealflow-api/internal/domain/plans"
	"dealflow-api/internal/monetization"
)

// PriceCache is the part of the price catalog admins can flush.
type PriceCache interface {
	Invalidate(priceID string)
}

type Handler struct {
	account   *monetization.Account
	cache     PriceCache
	whitelist *plans.Whitelist
	log       zerolog.Logger
}

func NewHandler(account *monetization.Account, cache PriceCache, whitelist *plans.Whitelist, log zerolog.Logger) *Handler {
	return &Handler{account: account, cache: cache, whitelist: whitelist, log: log}
}

func (h *Handler) ListPlans(c *gin.Context) {
	c.JSON(http.StatusOK, h.account.Plans(c.Request.Context()))
}

// SyncPlans drops every whitelisted price from the cache and reloads them,
// so price edits made in the provider dashboard show up immediately.
func (h *Handler) SyncPlans(c *gin.Context) {
	flushed := 0
	for _, purpose := range h.whitelist.Purposes() {
		for _, id := range h.whitelist.AllowedPrices(purpose) {
			h.cache.Invalidate(id)
			flushed++
		}
	}
	views := h.account.Plans(c.Request.Context())
	h.log.Info().Int("flushed", flushed).Int("active", len(views)).Msg("plan prices refreshed")

	c.JSON(http.StatusOK, gin.H{
		"flushed": flushed,
		"active":  len(views),
		"plans":   views,
	})
}
