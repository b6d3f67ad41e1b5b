package booking

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"transfera/models"
	"transfera/services/geocode"
	"transfera/services/pricing"
	"transfera/services/request"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"googlemaps.github.io/maps"
)

type stubPlacesAPI struct {
	display string
	lat     float64
	lng     float64
	types   []string
	err     error
}

func (s *stubPlacesAPI) PlaceDetails(_ context.Context, r *maps.PlaceDetailsRequest) (maps.PlaceDetailsResult, error) {
	if s.err != nil {
		return maps.PlaceDetailsResult{}, s.err
	}
	return maps.PlaceDetailsResult{
		FormattedAddress: s.display,
		Geometry:         maps.AddressGeometry{Location: maps.LatLng{Lat: s.lat, Lng: s.lng}},
		Types:            s.types,
	}, nil
}

func (s *stubPlacesAPI) Geocode(_ context.Context, r *maps.GeocodingRequest) ([]maps.GeocodingResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []maps.GeocodingResult{{
		FormattedAddress: s.display,
		Geometry:         maps.AddressGeometry{Location: maps.LatLng{Lat: s.lat, Lng: s.lng}},
		Types:            s.types,
	}}, nil
}

func quoteServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"prices": [
				{"category": "sedan", "price": 52.5, "currency": "EUR"},
				{"category": "minivan", "price": 78, "currency": "EUR"}
			],
			"details": {
				"pickup_time": "2026-09-14T10:30:00",
				"pickup_location": {"lat": 41.8003, "lng": 12.2389},
				"dropoff_location": {"lat": 41.9028, "lng": 12.4964}
			}
		}`))
	}))
}

func newTestService(t *testing.T, pricingURL string, api geocode.PlacesAPI) (*DefaultBookingFlowService, *MemorySessionStore) {
	t.Helper()
	logger := zap.NewNop()
	store := NewMemorySessionStore()
	tracker := request.NewTracker(logger)
	pc := pricing.NewClient(pricingURL, tracker, logger)
	resolver := geocode.NewResolver(api, logger)
	sub := newTestSubmitter("http://unused", nil)
	return NewBookingFlowService(store, pc, resolver, sub, logger), store
}

func seededSession(t *testing.T, svc *DefaultBookingFlowService) *models.BookingSession {
	t.Helper()
	pickup := time.Date(2026, 9, 14, 10, 30, 0, 0, time.UTC)
	s, err := svc.StartSession(context.Background(), &SessionSeed{
		From:       "rome-fiumicino-airport-fco",
		To:         "via-del-corso-12-rome",
		PickupAt:   &pickup,
		Passengers: 3,
		VehicleID:  "minivan",
	})
	require.NoError(t, err)
	s.Route.FromCoords = &models.Coordinates{Lat: 41.8003, Lng: 12.2389}
	s.Route.ToCoords = &models.Coordinates{Lat: 41.9028, Lng: 12.4964}
	s.Route.ToValid = true
	require.NoError(t, svc.store.Save(context.Background(), s))
	return s
}

func TestServiceSessionLifecycle(t *testing.T) {
	svc, _ := newTestService(t, "http://unused", &stubPlacesAPI{})
	ctx := context.Background()

	s, err := svc.StartSession(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, models.StepVehicle, s.Step)
	assert.Equal(t, 1, s.Passengers)

	got, err := svc.GetSession(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, s.ID, got.ID)

	require.NoError(t, svc.CancelSession(ctx, s.ID))
	_, err = svc.GetSession(ctx, s.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestServiceUpdateRouteResolvesAndInvalidatesQuote(t *testing.T) {
	api := &stubPlacesAPI{
		display: "Piazza Navona 1, 00186 Roma RM, Italy",
		lat:     41.8992, lng: 12.4731,
		types: []string{"establishment", "point_of_interest"},
	}
	svc, _ := newTestService(t, "http://unused", api)
	ctx := context.Background()
	s := seededSession(t, svc)
	s.SetQuote(&models.QuoteResponse{Prices: []models.CategoryPrice{{Category: "minivan", Price: 78, Currency: "EUR"}}})
	require.NoError(t, svc.store.Save(ctx, s))

	got, err := svc.UpdateRoute(ctx, s.ID, RouteUpdate{To: "Piazza Navona 1, Rome"})
	require.NoError(t, err)
	assert.Equal(t, "Piazza Navona 1, 00186 Roma RM, Italy", got.Route.ToDisplay)
	require.NotNil(t, got.Route.ToCoords)
	assert.InDelta(t, 41.8992, got.Route.ToCoords.Lat, 1e-6)
	assert.True(t, got.Route.ToValid)
	assert.Nil(t, got.Quote, "route change must drop the quote")
	// Untouched side stays put.
	assert.True(t, got.Route.FromValid)
}

func TestServiceScheduleAndPassengerChangesInvalidateQuote(t *testing.T) {
	svc, _ := newTestService(t, "http://unused", &stubPlacesAPI{})
	ctx := context.Background()

	s := seededSession(t, svc)
	s.SetQuote(&models.QuoteResponse{Prices: []models.CategoryPrice{{Category: "minivan", Price: 78, Currency: "EUR"}}})
	require.NoError(t, svc.store.Save(ctx, s))

	later := time.Date(2026, 9, 15, 8, 0, 0, 0, time.UTC)
	got, err := svc.UpdateSchedule(ctx, s.ID, ScheduleUpdate{PickupAt: &later})
	require.NoError(t, err)
	assert.Nil(t, got.Quote)

	got.SetQuote(&models.QuoteResponse{Prices: []models.CategoryPrice{{Category: "minivan", Price: 80, Currency: "EUR"}}})
	require.NoError(t, svc.store.Save(ctx, got))

	got, err = svc.UpdatePassengers(ctx, s.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, 5, got.Passengers)
	assert.Nil(t, got.Quote)

	// Same passenger count is not a mutation.
	got.SetQuote(&models.QuoteResponse{Prices: []models.CategoryPrice{{Category: "minivan", Price: 80, Currency: "EUR"}}})
	require.NoError(t, svc.store.Save(ctx, got))
	got, err = svc.UpdatePassengers(ctx, s.ID, 5)
	require.NoError(t, err)
	assert.NotNil(t, got.Quote)
}

func TestServicePassengerCountClampedToBounds(t *testing.T) {
	svc, _ := newTestService(t, "http://unused", &stubPlacesAPI{})
	ctx := context.Background()
	s := seededSession(t, svc)

	got, err := svc.UpdatePassengers(ctx, s.ID, 10000)
	require.NoError(t, err)
	assert.Equal(t, models.MaxPassengers, got.Passengers)

	got, err = svc.UpdatePassengers(ctx, s.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, models.MinPassengers, got.Passengers)

	// Deep-link seeds obey the same bounds.
	seeded, err := svc.StartSession(ctx, &SessionSeed{Passengers: 500})
	require.NoError(t, err)
	assert.Equal(t, models.MaxPassengers, seeded.Passengers)
}

func TestServiceSelectVehicleRetargetsQuoteCategory(t *testing.T) {
	svc, _ := newTestService(t, "http://unused", &stubPlacesAPI{})
	ctx := context.Background()
	s := seededSession(t, svc)
	s.SetQuote(&models.QuoteResponse{
		Prices:           []models.CategoryPrice{{Category: "sedan", Price: 52.5, Currency: "EUR"}, {Category: "van", Price: 95, Currency: "EUR"}},
		SelectedCategory: "minivan",
	})
	require.NoError(t, svc.store.Save(ctx, s))

	got, err := svc.SelectVehicle(ctx, s.ID, "van")
	require.NoError(t, err)
	require.NotNil(t, got.Vehicle)
	assert.Equal(t, "van", got.Vehicle.ID)
	assert.Equal(t, "van", got.Quote.SelectedCategory)
	assert.NotNil(t, got.Quote, "vehicle change keeps the quote")

	got, err = svc.SelectVehicle(ctx, s.ID, "hovercraft")
	require.NoError(t, err)
	require.NotEmpty(t, got.Errors)
	assert.Equal(t, "vehicle", got.Errors[0].Field)
}

func TestServiceAdvanceFetchesQuoteOnFirstForwardMove(t *testing.T) {
	srv := quoteServer(t)
	defer srv.Close()

	svc, _ := newTestService(t, srv.URL, &stubPlacesAPI{})
	ctx := context.Background()
	s := seededSession(t, svc)
	require.False(t, s.HasQuoteOutcome())

	got, err := svc.AdvanceStep(ctx, s.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Quote)
	assert.Equal(t, "minivan", got.Quote.SelectedCategory)
	assert.Equal(t, models.StepPersonalDetails, got.Step)

	p, ok := got.Quote.PriceFor("minivan")
	require.True(t, ok)
	assert.Equal(t, 78.0, p.Price)
}

func TestServiceAdvanceBlockedWhenPricingFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	svc, _ := newTestService(t, srv.URL, &stubPlacesAPI{})
	ctx := context.Background()
	s := seededSession(t, svc)

	got, err := svc.AdvanceStep(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StepVehicle, got.Step)
	assert.NotEmpty(t, got.QuoteError)
	require.NotEmpty(t, got.Errors)
	assert.Equal(t, models.ErrKindPricing, got.Errors[len(got.Errors)-1].Kind)
}

func TestServiceRetreatFromFirstStepLeavesFlow(t *testing.T) {
	svc, _ := newTestService(t, "http://unused", &stubPlacesAPI{})
	ctx := context.Background()
	s := seededSession(t, svc)

	_, left, err := svc.RetreatStep(ctx, s.ID)
	require.NoError(t, err)
	assert.True(t, left)
}

func TestServiceUnknownSession(t *testing.T) {
	svc, _ := newTestService(t, "http://unused", &stubPlacesAPI{})
	_, err := svc.GetSession(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = svc.AdvanceStep(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}
