// Package matches serves the dashboard match lists for both marketplace sides.
package matches

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"dealflow-api/internal/monetization"
)

type Handler struct {
	matcher *monetization.Matcher
}

func NewHandler(m *monetization.Matcher) *Handler {
	return &Handler{matcher: m}
}

// Investors matches published investors to the caller's own listings.
func (h *Handler) Investors(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"matches": h.matcher.InvestorsForOwner(c.Request.Context(), c.GetUint("user_id"))})
}

// Listings matches active listings to the caller's investor profile.
func (h *Handler) Listings(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"matches": h.matcher.ListingsForInvestor(c.Request.Context(), c.GetUint("user_id"))})
}
