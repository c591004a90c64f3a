package billing

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"dealflow-api/internal/api/respond"
	"dealflow-api/internal/domain/billing"
)

const maxPaymentPage = 100

func (h *Handler) GetPaymentHistory(c *gin.Context) {
	userID := c.GetUint("user_id")
	if userID == 0 {
		respond.Error(c, billing.ErrUnauthenticated)
		return
	}

	payments, err := h.payments.ListByUser(c.Request.Context(), userID, PageLimit(c))
	if err != nil {
		h.log.Error().Err(err).Uint("user_id", userID).Msg("load payments")
		respond.Error(c, err)
		return
	}
	if payments == nil {
		payments = []billing.Payment{}
	}
	c.JSON(http.StatusOK, payments)
}

// PageLimit reads ?limit=, defaulting to 50 and capped at 100.
func PageLimit(c *gin.Context) int {
	n, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || n <= 0 {
		return 50
	}
	if n > maxPaymentPage {
		return maxPaymentPage
	}
	return n
}
