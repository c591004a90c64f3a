package billing

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"dealflow-api/internal/api/respond"
	"dealflow-api/internal/domain/billing"
	"dealflow-api/internal/monetization"
)

type checkoutBody struct {
	PriceID    string            `json:"priceId" form:"priceId"`
	Quantity   int64             `json:"quantity" form:"quantity"`
	Purpose    string            `json:"purpose" form:"purpose"`
	ListingID  string            `json:"listingId" form:"listingId"`
	SuccessURL string            `json:"successUrl" form:"successUrl"`
	CancelURL  string            `json:"cancelUrl" form:"cancelUrl"`
	Metadata   map[string]string `json:"metadata" form:"-"`
}

// CreateCheckoutSession accepts JSON or form bodies and answers errors in
// plain text.
func (h *Handler) CreateCheckoutSession(c *gin.Context) {
	var body checkoutBody
	if err := c.ShouldBind(&body); err != nil {
		respond.Text(c, billing.Invalid("Invalid request body"))
		return
	}
	if c.ContentType() != binding.MIMEJSON {
		body.Metadata = c.PostFormMap("metadata")
	}

	res, err := h.checkout.CreateCheckout(c.Request.Context(), monetization.CheckoutRequest{
		UserID:     c.GetUint("user_id"),
		PriceID:    body.PriceID,
		Quantity:   body.Quantity,
		Purpose:    body.Purpose,
		ListingID:  strings.TrimSpace(body.ListingID),
		SuccessURL: body.SuccessURL,
		CancelURL:  body.CancelURL,
		Metadata:   body.Metadata,
	})
	if err != nil {
		respond.Text(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type evaluationBody struct {
	ListingID  string `json:"listingId" form:"listingId"`
	SuccessURL string `json:"successUrl" form:"successUrl"`
	CancelURL  string `json:"cancelUrl" form:"cancelUrl"`
}

func (h *Handler) CreateEvaluationCheckout(c *gin.Context) {
	var body evaluationBody
	if err := c.ShouldBind(&body); err != nil {
		respond.Text(c, billing.Invalid("Invalid request body"))
		return
	}

	res, err := h.checkout.CreateEvaluationCheckout(c.Request.Context(), monetization.EvaluationCheckoutRequest{
		UserID:     c.GetUint("user_id"),
		ListingID:  body.ListingID,
		SuccessURL: body.SuccessURL,
		CancelURL:  body.CancelURL,
	})
	if err != nil {
		respond.Text(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) CreateBillingPortal(c *gin.Context) {
	url, err := h.account.PortalURL(c.Request.Context(), c.GetUint("user_id"))
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}
