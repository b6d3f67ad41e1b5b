package pricing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"transfera/models"
	"transfera/services/request"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// The pickup time is sent as full local time, not just a date; the backend
// prices against the pickup timezone.
const pickupTimeLayout = "2006-01-02T15:04:05"

// QuoteInput is everything the client needs to price a candidate trip.
// Coordinates must already be resolved; the client never geocodes.
type QuoteInput struct {
	Pickup    *models.Coordinates
	Dropoff   *models.Coordinates
	PickupAt  *time.Time
	ReturnAt  *time.Time
	IsReturn  bool
	SessionID string
}

// Client obtains priced quotes from the pricing backend. Every call runs
// under the request tracker, behind the dedupe cache and the per-session
// sliding-window rate limit.
type Client struct {
	httpClient *http.Client
	baseURL    string
	tracker    *request.Tracker
	logger     *zap.Logger
	limiter    *quoteLimiter
	dedupe     *dedupeCache
	retry      Policy
}

func NewClient(baseURL string, tracker *request.Tracker, logger *zap.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 35 * time.Second},
		baseURL:    baseURL,
		tracker:    tracker,
		logger:     logger,
		limiter:    newQuoteLimiter(),
		dedupe:     newDedupeCache(),
		retry: Policy{
			MaxAttempts:  3,
			InitialDelay: 1000 * time.Millisecond,
			Factor:       2,
			Timeout:      30 * time.Second,
		},
	}
}

// GetQuote prices the trip. onRetry may be nil. Preconditions fail fast with
// LocationError/TimeError and issue no network call; a rate-limited session
// gets a RateLimitError, likewise without any call. Identical requests
// within the dedupe window return the cached response synchronously.
func (c *Client) GetQuote(ctx context.Context, in QuoteInput, onRetry OnRetry) (*models.QuoteResponse, error) {
	if in.Pickup == nil || in.Dropoff == nil {
		return nil, &LocationError{Message: "pickup and dropoff locations must be resolved before requesting a quote"}
	}
	if in.PickupAt == nil {
		return nil, &TimeError{Message: "pickup time is required"}
	}
	tripType := models.TripOneWay
	if in.IsReturn {
		tripType = models.TripRoundTrip
		if in.ReturnAt == nil {
			return nil, &TimeError{Message: "return time is required for a round trip"}
		}
		if !in.ReturnAt.After(*in.PickupAt) {
			return nil, &TimeError{Message: "return time must be after the pickup time"}
		}
	}

	wireReq := models.QuoteRequest{
		PickupLat:  in.Pickup.Lat,
		PickupLng:  in.Pickup.Lng,
		DropoffLat: in.Dropoff.Lat,
		DropoffLng: in.Dropoff.Lng,
		PickupTime: in.PickupAt.Format(pickupTimeLayout),
		TripType:   tripType,
	}

	key := fingerprint(wireReq)
	if cached, ok := c.dedupe.Get(key); ok {
		c.logger.Debug("quote served from dedupe cache", zap.String("sessionId", in.SessionID))
		return cached, nil
	}

	if ok, wait := c.limiter.Allow(in.SessionID); !ok {
		return nil, &RateLimitError{RetryAfter: wait}
	}

	wireReq.CorrelationID = uuid.New().String()
	wireReq.SessionID = in.SessionID

	payload, err := json.Marshal(wireReq)
	if err != nil {
		return nil, newPricingError("internal", "failed to encode quote request: %v", err)
	}

	reqID := c.tracker.Start(c.baseURL, http.MethodPost)
	// Aborting the tracked request (watchdog or explicit) cancels the call.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(c.tracker.Context(reqID), cancel)
	defer stop()

	c.tracker.Advance(reqID, request.StageNetwork)

	var body []byte
	err = DoWithRetry(ctx, c.retry, onRetry, func(ctx context.Context) error {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
		if err != nil {
			return err
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("X-Correlation-ID", wireReq.CorrelationID)

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		b, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return fmt.Errorf("pricing backend returned status %d", resp.StatusCode)
		}
		body = b
		return nil
	})
	if err != nil {
		c.tracker.Abort(reqID, err.Error())
		c.logger.Warn("quote fetch failed",
			zap.String("sessionId", in.SessionID),
			zap.String("correlationId", wireReq.CorrelationID),
			zap.Error(err),
		)
		return nil, newPricingError("quoteFailed", "failed to fetch a quote: %v", err)
	}

	c.tracker.Advance(reqID, request.StageProcessing)

	quote, err := ParseQuoteResponse(body)
	if err != nil {
		c.tracker.Abort(reqID, "response validation failed")
		c.logger.Error("quote response rejected",
			zap.String("sessionId", in.SessionID),
			zap.String("correlationId", wireReq.CorrelationID),
			zap.Error(err),
		)
		return nil, err
	}

	if !VerifyChecksum(quote) {
		c.tracker.Abort(reqID, "checksum mismatch")
		c.logger.Error("quote checksum mismatch",
			zap.String("sessionId", in.SessionID),
			zap.String("correlationId", wireReq.CorrelationID),
		)
		return nil, newPricingError("checksumMismatch", "quote integrity check failed")
	}

	c.tracker.Advance(reqID, request.StageComplete)
	c.dedupe.Put(key, quote)
	return quote, nil
}

// SlowConnection exposes the tracker's heuristic so the surface layer can
// adapt its messaging while a quote is loading.
func (c *Client) SlowConnection() bool {
	return c.tracker.SlowConnection()
}
