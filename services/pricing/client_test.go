package pricing

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"transfera/models"
	"transfera/services/request"
)

func testCoords() (*models.Coordinates, *models.Coordinates) {
	return &models.Coordinates{Lat: 41.9028, Lng: 12.4964},
		&models.Coordinates{Lat: 41.8003, Lng: 12.2389}
}

func validQuoteBody(t *testing.T, withChecksum bool) []byte {
	t.Helper()
	q := models.QuoteResponse{
		Prices: []models.CategoryPrice{
			{Category: "sedan", Price: 55, Currency: "EUR"},
			{Category: "minivan", Price: 85, Currency: "EUR"},
		},
		SelectedCategory: "sedan",
		Details: models.QuoteDetails{
			PickupTime:      "2026-09-01T10:30:00",
			PickupLocation:  models.LocationPoint{Lat: 41.9028, Lng: 12.4964},
			DropoffLocation: models.LocationPoint{Lat: 41.8003, Lng: 12.2389},
		},
		Version: "2",
	}
	if withChecksum {
		q.Checksum = ComputeChecksum(&q)
	}
	b, err := json.Marshal(q)
	require.NoError(t, err)
	return b
}

func newTestClient(url string) *Client {
	c := NewClient(url, request.NewTracker(zap.NewNop()), zap.NewNop())
	// Keep test retries fast.
	c.retry = Policy{MaxAttempts: 3, InitialDelay: 10 * time.Millisecond, Factor: 2, Timeout: 5 * time.Second}
	return c
}

func quoteInput(sessionID string, pickupAt time.Time) QuoteInput {
	pickup, dropoff := testCoords()
	return QuoteInput{
		Pickup:    pickup,
		Dropoff:   dropoff,
		PickupAt:  &pickupAt,
		SessionID: sessionID,
	}
}

func TestGetQuoteSuccess(t *testing.T) {
	body := validQuoteBody(t, true)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req models.QuoteRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, models.TripOneWay, req.TripType)
		assert.NotEmpty(t, req.CorrelationID)
		w.Write(body)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	quote, err := c.GetQuote(context.Background(), quoteInput("sess-1", time.Now().Add(5*time.Hour)), nil)
	require.NoError(t, err)
	require.NotNil(t, quote)
	assert.Equal(t, "sedan", quote.SelectedCategory)

	// Scenario A: the selected category maps onto a catalog vehicle.
	_, ok := models.VehicleByCategory(quote.SelectedCategory)
	assert.True(t, ok)
}

func TestGetQuotePreconditionsFailFast(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	pickup, dropoff := testCoords()
	at := time.Now().Add(time.Hour)

	_, err := c.GetQuote(context.Background(), QuoteInput{Dropoff: dropoff, PickupAt: &at}, nil)
	var locErr *LocationError
	assert.ErrorAs(t, err, &locErr)

	_, err = c.GetQuote(context.Background(), QuoteInput{Pickup: pickup, Dropoff: dropoff}, nil)
	var timeErr *TimeError
	assert.ErrorAs(t, err, &timeErr)

	// Round trip with return before pickup.
	back := at.Add(-2 * time.Hour)
	_, err = c.GetQuote(context.Background(), QuoteInput{
		Pickup: pickup, Dropoff: dropoff, PickupAt: &at, ReturnAt: &back, IsReturn: true,
	}, nil)
	assert.ErrorAs(t, err, &timeErr)

	assert.Equal(t, int32(0), hits.Load(), "preconditions must not reach the network")
}

func TestGetQuoteEmptyPricesRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"prices": []}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	quote, err := c.GetQuote(context.Background(), quoteInput("sess-e", time.Now().Add(time.Hour)), nil)
	assert.Nil(t, quote)
	var pErr *PricingError
	require.ErrorAs(t, err, &pErr)
	assert.Equal(t, "invalidResponse", pErr.Code)
}

func TestGetQuoteChecksumMismatchRejected(t *testing.T) {
	q := models.QuoteResponse{
		Prices: []models.CategoryPrice{{Category: "sedan", Price: 55, Currency: "EUR"}},
		Details: models.QuoteDetails{
			PickupTime:      "2026-09-01T10:30:00",
			PickupLocation:  models.LocationPoint{Lat: 41.9, Lng: 12.5},
			DropoffLocation: models.LocationPoint{Lat: 41.8, Lng: 12.2},
		},
	}
	q.Checksum = ComputeChecksum(&q)
	// Tamper with the body after checksumming.
	q.Prices[0].Price = 5

	body, err := json.Marshal(q)
	require.NoError(t, err)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(body)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	quote, err := c.GetQuote(context.Background(), quoteInput("sess-c", time.Now().Add(time.Hour)), nil)
	assert.Nil(t, quote, "tampered quote must never be returned")
	var pErr *PricingError
	require.ErrorAs(t, err, &pErr)
	assert.Equal(t, "checksumMismatch", pErr.Code)
}

func TestGetQuoteRateLimit(t *testing.T) {
	var hits atomic.Int32
	body := validQuoteBody(t, false)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write(body)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	base := time.Now().Add(24 * time.Hour)
	for i := 0; i < 3; i++ {
		// Distinct pickup times keep the dedupe cache out of the picture.
		_, err := c.GetQuote(context.Background(), quoteInput("sess-rl", base.Add(time.Duration(i)*time.Hour)), nil)
		require.NoError(t, err)
	}
	require.Equal(t, int32(3), hits.Load())

	_, err := c.GetQuote(context.Background(), quoteInput("sess-rl", base.Add(10*time.Hour)), nil)
	var rlErr *RateLimitError
	require.ErrorAs(t, err, &rlErr)
	assert.Greater(t, rlErr.RetryAfter, time.Duration(0))
	assert.Equal(t, int32(3), hits.Load(), "4th attempt must not reach the network")

	// A different session is unaffected.
	_, err = c.GetQuote(context.Background(), quoteInput("sess-other", base), nil)
	assert.NoError(t, err)
}

func TestGetQuoteDeduplicatesIdenticalRequests(t *testing.T) {
	var hits atomic.Int32
	body := validQuoteBody(t, false)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write(body)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	at := time.Now().Add(3 * time.Hour).Truncate(time.Second)

	first, err := c.GetQuote(context.Background(), quoteInput("sess-d", at), nil)
	require.NoError(t, err)
	second, err := c.GetQuote(context.Background(), quoteInput("sess-d", at), nil)
	require.NoError(t, err)

	assert.Equal(t, int32(1), hits.Load(), "identical request must be served from cache")
	assert.Equal(t, first, second)
}

func TestGetQuoteCachedResponsesAreIndependent(t *testing.T) {
	body := validQuoteBody(t, false)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(body)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	at := time.Now().Add(3 * time.Hour).Truncate(time.Second)

	// Two sessions on the same trip share a fingerprint, never a quote object.
	quoteA, err := c.GetQuote(context.Background(), quoteInput("sess-a", at), nil)
	require.NoError(t, err)
	quoteA.SelectedCategory = "minivan"
	quoteA.Prices[0].Price = 1

	quoteB, err := c.GetQuote(context.Background(), quoteInput("sess-b", at), nil)
	require.NoError(t, err)
	assert.Equal(t, "sedan", quoteB.SelectedCategory, "one session's vehicle choice must not leak into another")
	assert.Equal(t, 55.0, quoteB.Prices[0].Price)
}

func TestGetQuoteRetriesThenSucceeds(t *testing.T) {
	var hits atomic.Int32
	body := validQuoteBody(t, false)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write(body)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	var retries int
	onRetry := func(attempt int, err error, delay time.Duration) {
		retries++
		assert.Error(t, err)
	}
	quote, err := c.GetQuote(context.Background(), quoteInput("sess-r", time.Now().Add(time.Hour)), onRetry)
	require.NoError(t, err)
	require.NotNil(t, quote)
	assert.Equal(t, int32(3), hits.Load())
	assert.Equal(t, 2, retries)
}

func TestParseQuoteResponseRejectsBadShapes(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", "<html>502</html>"},
		{"empty prices", `{"prices":[],"details":{"pickup_time":"2026-09-01T10:00:00","pickup_location":{"lat":1,"lng":1},"dropoff_location":{"lat":1,"lng":1}}}`},
		{"bad pickup time", `{"prices":[{"category":"sedan","price":10,"currency":"EUR"}],"details":{"pickup_time":"not-a-date","pickup_location":{"lat":1,"lng":1},"dropoff_location":{"lat":1,"lng":1}}}`},
		{"lat out of range", `{"prices":[{"category":"sedan","price":10,"currency":"EUR"}],"details":{"pickup_time":"2026-09-01T10:00:00","pickup_location":{"lat":95,"lng":1},"dropoff_location":{"lat":1,"lng":1}}}`},
		{"zero price", `{"prices":[{"category":"sedan","price":0,"currency":"EUR"}],"details":{"pickup_time":"2026-09-01T10:00:00","pickup_location":{"lat":1,"lng":1},"dropoff_location":{"lat":1,"lng":1}}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseQuoteResponse([]byte(tt.body))
			assert.Error(t, err)
		})
	}
}
