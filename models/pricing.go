package models

// QuoteRequest is the wire request sent to the pricing backend.
type QuoteRequest struct {
	PickupLat     float64 `json:"pickup_lat"`
	PickupLng     float64 `json:"pickup_lng"`
	DropoffLat    float64 `json:"dropoff_lat"`
	DropoffLng    float64 `json:"dropoff_lng"`
	PickupTime    string  `json:"pickup_time"` // ISO-8601, local-aware
	TripType      string  `json:"trip_type"`   // "1" one-way, "2" round trip
	CorrelationID string  `json:"correlation_id,omitempty"`
	SessionID     string  `json:"session_id,omitempty"`
}

// CategoryPrice is one priced vehicle category of a quote.
type CategoryPrice struct {
	Category string  `json:"category"`
	Price    float64 `json:"price"`
	Currency string  `json:"currency"`
}

// LocationPoint is a validated lat/lng pair from the pricing response.
type LocationPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// QuoteDetails echoes the trip the backend priced.
type QuoteDetails struct {
	PickupTime      string        `json:"pickup_time"`
	PickupLocation  LocationPoint `json:"pickup_location"`
	DropoffLocation LocationPoint `json:"dropoff_location"`
}

// QuoteResponse is the validated pricing response. Version and Checksum are
// volatile fields excluded from checksum recomputation.
type QuoteResponse struct {
	Prices           []CategoryPrice `json:"prices"`
	SelectedCategory string          `json:"selected_category,omitempty"`
	Details          QuoteDetails    `json:"details"`
	Version          string          `json:"version,omitempty"`
	Checksum         string          `json:"checksum,omitempty"`
}

// Clone returns a deep copy with its own prices slice, so callers can mutate
// the result without reaching into shared state.
func (q *QuoteResponse) Clone() *QuoteResponse {
	if q == nil {
		return nil
	}
	out := *q
	out.Prices = make([]CategoryPrice, len(q.Prices))
	copy(out.Prices, q.Prices)
	return &out
}

// PriceFor returns the quoted price for a vehicle category, if present.
func (q *QuoteResponse) PriceFor(category string) (CategoryPrice, bool) {
	for _, p := range q.Prices {
		if p.Category == category {
			return p, true
		}
	}
	return CategoryPrice{}, false
}
