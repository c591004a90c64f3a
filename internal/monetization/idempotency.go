package monetization

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"dealflow-api/internal/domain/billing"
)

const noListing = "none"

// CheckoutKey derives the provider idempotency key for one logical checkout.
// Identical inputs always give the same key; any differing field changes it.
func CheckoutKey(userID uint, priceID string, quantity int64, listingID string, purpose billing.Purpose) string {
	if listingID == "" {
		listingID = noListing
	}
	sum := sha256.Sum256([]byte(fmt.Sprintf("%d|%s|%d|%s|%s", userID, priceID, quantity, listingID, purpose)))
	return "checkout_" + hex.EncodeToString(sum[:])
}
