package booking

import (
	"testing"
	"time"

	"transfera/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readySession(t *testing.T) *models.BookingSession {
	t.Helper()
	s := sampleSession(t)
	s.Step = models.StepVehicle
	return s
}

func TestAdvanceHappyPath(t *testing.T) {
	s := readySession(t)

	errs := Advance(s)
	assert.Empty(t, errs)
	assert.Equal(t, models.StepPersonalDetails, s.Step)

	errs = Advance(s)
	assert.Empty(t, errs)
	assert.Equal(t, models.StepPayment, s.Step)

	// Step 3 is the last step; advancing again validates but never moves past.
	errs = Advance(s)
	assert.Empty(t, errs)
	assert.Equal(t, models.StepPayment, s.Step)
}

func TestAdvanceBlockedByValidation(t *testing.T) {
	s := readySession(t)
	s.Vehicle = nil
	s.VehicleID = ""

	errs := Advance(s)
	require.NotEmpty(t, errs)
	assert.Equal(t, models.StepVehicle, s.Step)
	assert.Equal(t, errs, s.Errors)
	assert.Equal(t, "vehicle", errs[0].Field)
}

func TestAdvanceReturnBeforePickup(t *testing.T) {
	s := readySession(t)
	pickup := time.Date(2026, 9, 14, 10, 0, 0, 0, time.UTC)
	ret := pickup.Add(-2 * time.Hour)
	s.Schedule = models.Schedule{IsReturn: true, PickupAt: &pickup, ReturnAt: &ret}

	errs := Advance(s)
	require.NotEmpty(t, errs)
	assert.Equal(t, models.StepVehicle, s.Step)

	var found *models.FieldError
	for i := range errs {
		if errs[i].Field == "returnAt" {
			found = &errs[i]
		}
	}
	require.NotNil(t, found)
	assert.Equal(t, models.ErrKindTime, found.Kind)
}

func TestAdvanceBlockedByIncompleteAddress(t *testing.T) {
	s := readySession(t)
	// City-only pickup: geocoded fine but not precise enough to price.
	s.Route.From = "Rome"
	s.Route.FromDisplay = "Rome, Metropolitan City of Rome, Italy"
	s.Route.FromValid = false

	errs := Advance(s)
	require.NotEmpty(t, errs)
	assert.Equal(t, models.StepVehicle, s.Step)
	assert.Equal(t, "from", errs[0].Field)
	assert.Equal(t, models.ErrKindLocation, errs[0].Kind)
	assert.Contains(t, errs[0].Message, "not just a city")
}

func TestAdvanceRequiresQuoteOutcome(t *testing.T) {
	s := readySession(t)
	s.InvalidateQuote()

	errs := Advance(s)
	require.NotEmpty(t, errs)
	assert.Equal(t, models.StepVehicle, s.Step)
	assert.Equal(t, "quote", errs[0].Field)
	assert.Equal(t, models.ErrKindPricing, errs[0].Kind)
}

func TestAdvanceBlockedByQuoteError(t *testing.T) {
	s := readySession(t)
	s.SetQuoteError("too many quote requests, try again in 42 seconds")

	errs := Advance(s)
	require.NotEmpty(t, errs)
	assert.Equal(t, models.StepVehicle, s.Step)
	assert.Equal(t, models.ErrKindPricing, errs[len(errs)-1].Kind)
}

func TestAdvanceSeatCapacity(t *testing.T) {
	s := readySession(t)
	s.Passengers = 7 // minivan seats 6

	errs := Advance(s)
	require.NotEmpty(t, errs)
	assert.Contains(t, errs[0].Message, "seats up to")
}

func TestRetreat(t *testing.T) {
	s := readySession(t)
	s.Step = models.StepPayment
	s.Errors = []models.FieldError{{Field: "x", Message: "y", Kind: models.ErrKindValidation}}

	assert.False(t, Retreat(s))
	assert.Equal(t, models.StepPersonalDetails, s.Step)
	assert.Nil(t, s.Errors)

	assert.False(t, Retreat(s))
	assert.Equal(t, models.StepVehicle, s.Step)

	// Backing off step 1 leaves the flow without changing the step.
	assert.True(t, Retreat(s))
	assert.Equal(t, models.StepVehicle, s.Step)
}

func TestQuoteMutualExclusion(t *testing.T) {
	s := readySession(t)
	require.NotNil(t, s.Quote)
	require.Empty(t, s.QuoteError)

	s.SetQuoteError("backend down")
	assert.Nil(t, s.Quote)
	assert.Equal(t, "backend down", s.QuoteError)

	s.SetQuote(&models.QuoteResponse{Prices: []models.CategoryPrice{{Category: "sedan", Price: 40, Currency: "EUR"}}})
	assert.NotNil(t, s.Quote)
	assert.Empty(t, s.QuoteError)

	s.InvalidateQuote()
	assert.Nil(t, s.Quote)
	assert.Empty(t, s.QuoteError)
	assert.False(t, s.HasQuoteOutcome())
}

func TestDetailsStepFlightNumberRequiredForAirports(t *testing.T) {
	s := readySession(t)
	s.Step = models.StepPersonalDetails
	s.Personal.FlightNumber = ""

	errs := ValidateStep(s, models.StepPersonalDetails)
	require.NotEmpty(t, errs)
	assert.Equal(t, "flightNumber", errs[0].Field)

	// No airport on either side, no flight number needed.
	s.Route.From = "Hotel Danieli, Venice"
	s.Route.FromDisplay = "Hotel Danieli, Riva degli Schiavoni, Venice"
	errs = ValidateStep(s, models.StepPersonalDetails)
	assert.Empty(t, errs)
}

func TestDetailsStepEmptyExtraStop(t *testing.T) {
	s := readySession(t)
	s.Personal.ExtraStops = append(s.Personal.ExtraStops, models.ExtraStop{Address: "  "})

	errs := ValidateStep(s, models.StepPersonalDetails)
	require.Len(t, errs, 1)
	assert.Equal(t, "extraStops[1]", errs[0].Field)
}

func TestValidEmail(t *testing.T) {
	cases := map[string]bool{
		"ada@example.com":     true,
		"a.b+tag@example.org": true,
		"no-at-sign":          false,
		"noname@":             false,
		"a@b":                 false,
		"a@b.c":               false,
		"  ada@example.com ":  true,
	}
	for addr, want := range cases {
		assert.Equal(t, want, ValidEmail(addr), addr)
	}
}

func TestSeedFillsOnlyMissingFields(t *testing.T) {
	pickup := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
	s := NewSession()
	ApplySeed(s, SessionSeed{
		From:       "rome-fiumicino-airport-fco",
		To:         "florence",
		PickupAt:   &pickup,
		Passengers: 4,
		VehicleID:  "minivan",
	})

	assert.Equal(t, "Rome Fiumicino Airport (FCO)", s.Route.FromDisplay)
	assert.True(t, s.Route.FromValid, "hub match marks the side valid before geocoding")
	assert.Equal(t, "Florence", s.Route.ToDisplay)
	assert.False(t, s.Route.ToValid)
	assert.Equal(t, 4, s.Passengers)
	require.NotNil(t, s.Vehicle)
	assert.Equal(t, "minivan", s.Vehicle.ID)

	// A second seed never clobbers what is already there.
	later := pickup.Add(24 * time.Hour)
	ApplySeed(s, SessionSeed{From: "milan", PickupAt: &later, Passengers: 2, VehicleID: "van"})
	assert.Equal(t, "rome-fiumicino-airport-fco", s.Route.From)
	assert.True(t, s.Schedule.PickupAt.Equal(pickup))
	assert.Equal(t, 4, s.Passengers)
	assert.Equal(t, "minivan", s.Vehicle.ID)
}
