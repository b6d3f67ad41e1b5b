package pricing

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"transfera/models"
)

// canonicalQuote is the checksummed subset of a quote: prices,
// selected_category and details, in fixed field order. The checksum and
// version fields are volatile and excluded.
type canonicalQuote struct {
	Prices           []models.CategoryPrice `json:"prices"`
	SelectedCategory string                 `json:"selected_category"`
	Details          models.QuoteDetails    `json:"details"`
}

// ComputeChecksum returns the hex SHA-256 over the canonical serialization
// of the quote body.
func ComputeChecksum(q *models.QuoteResponse) string {
	b, err := json.Marshal(canonicalQuote{
		Prices:           q.Prices,
		SelectedCategory: q.SelectedCategory,
		Details:          q.Details,
	})
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// VerifyChecksum recomputes the checksum and compares it with the one the
// response carried. A response without a checksum field passes.
func VerifyChecksum(q *models.QuoteResponse) bool {
	if q.Checksum == "" {
		return true
	}
	return ComputeChecksum(q) == q.Checksum
}
