package pricing

import (
	"encoding/json"
	"time"

	"transfera/models"
)

// Accepted layouts for the pickup_time echoed by the pricing backend.
var pickupTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// ParseQuoteResponse is the single parse-and-validate boundary for pricing
// responses. Anything that comes back from the backend passes through here
// before it is trusted; structurally invalid or non-JSON bodies are rejected
// regardless of HTTP status.
func ParseQuoteResponse(body []byte) (*models.QuoteResponse, error) {
	var q models.QuoteResponse
	if err := json.Unmarshal(body, &q); err != nil {
		return nil, newPricingError("invalidResponse", "response is not valid JSON: %v", err)
	}

	if len(q.Prices) == 0 {
		return nil, newPricingError("invalidResponse", "prices array is empty")
	}
	for i, p := range q.Prices {
		if p.Category == "" {
			return nil, newPricingError("invalidResponse", "price %d has no category", i)
		}
		if p.Currency == "" {
			return nil, newPricingError("invalidResponse", "price %d (%s) has no currency", i, p.Category)
		}
		if p.Price <= 0 {
			return nil, newPricingError("invalidResponse", "price %d (%s) is not positive", i, p.Category)
		}
	}

	if !validPickupTime(q.Details.PickupTime) {
		return nil, newPricingError("invalidResponse", "details.pickup_time %q is not a valid ISO date", q.Details.PickupTime)
	}
	if !validPoint(q.Details.PickupLocation) {
		return nil, newPricingError("invalidResponse", "details.pickup_location out of range")
	}
	if !validPoint(q.Details.DropoffLocation) {
		return nil, newPricingError("invalidResponse", "details.dropoff_location out of range")
	}

	return &q, nil
}

func validPickupTime(s string) bool {
	if s == "" {
		return false
	}
	for _, layout := range pickupTimeLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}

func validPoint(p models.LocationPoint) bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}
