package booking

import (
	"fmt"
	"regexp"
	"strings"

	"transfera/models"
	"transfera/services/geocode"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]{2,}$`)

var airportPattern = regexp.MustCompile(`(?i)\b(airport|aeroporto|aeropuerto|flughafen|a[eé]roport)\b`)

// ValidEmail reports whether the address has a plausible mailbox shape.
// Deliverability is the mail provider's problem, not ours.
func ValidEmail(addr string) bool {
	return emailPattern.MatchString(strings.TrimSpace(addr))
}

// ValidateStep runs the validation rules for the given wizard step and
// returns every violation it finds, in field order.
func ValidateStep(s *models.BookingSession, step int) []models.FieldError {
	switch step {
	case models.StepVehicle:
		return validateVehicleStep(s)
	case models.StepPersonalDetails:
		return validateDetailsStep(s)
	case models.StepPayment:
		return validatePaymentStep(s)
	}
	return nil
}

func validateVehicleStep(s *models.BookingSession) []models.FieldError {
	var errs []models.FieldError

	if strings.TrimSpace(s.Route.From) == "" {
		errs = append(errs, models.FieldError{Field: "from", Message: "pickup location is required", Kind: models.ErrKindLocation})
	} else if !s.Route.FromValid {
		errs = append(errs, models.FieldError{Field: "from", Message: "pickup location needs a specific street address, not just a city", Kind: models.ErrKindLocation})
	}
	if strings.TrimSpace(s.Route.To) == "" {
		errs = append(errs, models.FieldError{Field: "to", Message: "drop-off location is required", Kind: models.ErrKindLocation})
	} else if !s.Route.ToValid {
		errs = append(errs, models.FieldError{Field: "to", Message: "drop-off location needs a specific street address, not just a city", Kind: models.ErrKindLocation})
	}

	if s.Schedule.PickupAt == nil {
		errs = append(errs, models.FieldError{Field: "pickupAt", Message: "pickup date and time are required", Kind: models.ErrKindTime})
	}
	if s.Schedule.IsReturn {
		if s.Schedule.ReturnAt == nil {
			errs = append(errs, models.FieldError{Field: "returnAt", Message: "return date and time are required for a round trip", Kind: models.ErrKindTime})
		} else if s.Schedule.PickupAt != nil && !s.Schedule.ReturnAt.After(*s.Schedule.PickupAt) {
			errs = append(errs, models.FieldError{Field: "returnAt", Message: "return time must be after the pickup time", Kind: models.ErrKindTime})
		}
	}

	if s.Vehicle == nil {
		errs = append(errs, models.FieldError{Field: "vehicle", Message: "please select a vehicle", Kind: models.ErrKindValidation})
	} else if s.Passengers > s.Vehicle.Seats {
		errs = append(errs, models.FieldError{
			Field:   "vehicle",
			Message: fmt.Sprintf("%s seats up to %d passengers", s.Vehicle.Name, s.Vehicle.Seats),
			Kind:    models.ErrKindValidation,
		})
	}

	// Leaving step 1 needs a completed pricing attempt; AdvanceStep fetches
	// one before validating, so this only fires when that attempt was
	// skipped or invalidated.
	if s.QuoteError != "" {
		errs = append(errs, models.FieldError{Field: "quote", Message: s.QuoteError, Kind: models.ErrKindPricing})
	} else if !s.HasQuoteOutcome() {
		errs = append(errs, models.FieldError{Field: "quote", Message: "the price for this trip has not been confirmed yet", Kind: models.ErrKindPricing})
	}

	return errs
}

func validateDetailsStep(s *models.BookingSession) []models.FieldError {
	var errs []models.FieldError
	p := s.Personal

	if strings.TrimSpace(p.FirstName) == "" {
		errs = append(errs, models.FieldError{Field: "firstName", Message: "first name is required", Kind: models.ErrKindValidation})
	}
	if strings.TrimSpace(p.LastName) == "" {
		errs = append(errs, models.FieldError{Field: "lastName", Message: "last name is required", Kind: models.ErrKindValidation})
	}
	if strings.TrimSpace(p.Email) == "" {
		errs = append(errs, models.FieldError{Field: "email", Message: "email address is required", Kind: models.ErrKindValidation})
	} else if !ValidEmail(p.Email) {
		errs = append(errs, models.FieldError{Field: "email", Message: "email address does not look valid", Kind: models.ErrKindValidation})
	}
	if strings.TrimSpace(p.Country) == "" {
		errs = append(errs, models.FieldError{Field: "country", Message: "country is required", Kind: models.ErrKindValidation})
	}

	if routeTouchesAirport(s.Route) && strings.TrimSpace(p.FlightNumber) == "" {
		errs = append(errs, models.FieldError{Field: "flightNumber", Message: "flight number is required for airport transfers", Kind: models.ErrKindValidation})
	}

	for i, stop := range p.ExtraStops {
		if strings.TrimSpace(stop.Address) == "" {
			errs = append(errs, models.FieldError{
				Field:   fmt.Sprintf("extraStops[%d]", i),
				Message: "extra stop address cannot be empty",
				Kind:    models.ErrKindValidation,
			})
		}
	}

	return errs
}

// validatePaymentStep is a final defensive sweep before submission: the
// earlier steps should have caught everything, but the session may have been
// restored from storage in a state those steps never passed through.
func validatePaymentStep(s *models.BookingSession) []models.FieldError {
	var errs []models.FieldError
	if s.Vehicle == nil {
		errs = append(errs, models.FieldError{Field: "vehicle", Message: "please select a vehicle", Kind: models.ErrKindValidation})
	}
	p := s.Personal
	if strings.TrimSpace(p.FirstName) == "" || strings.TrimSpace(p.LastName) == "" {
		errs = append(errs, models.FieldError{Field: "name", Message: "passenger name is incomplete", Kind: models.ErrKindValidation})
	}
	if !ValidEmail(p.Email) {
		errs = append(errs, models.FieldError{Field: "email", Message: "a valid email address is required", Kind: models.ErrKindValidation})
	}
	if s.Payment.Method != models.PaymentCard && s.Payment.Method != models.PaymentCash {
		errs = append(errs, models.FieldError{Field: "paymentMethod", Message: "please choose a payment method", Kind: models.ErrKindValidation})
	}
	return errs
}

func routeTouchesAirport(r models.Route) bool {
	return airportPattern.MatchString(r.From) || airportPattern.MatchString(r.FromDisplay) ||
		airportPattern.MatchString(r.To) || airportPattern.MatchString(r.ToDisplay) ||
		geocode.HasAirportCode(r.FromDisplay) || geocode.HasAirportCode(r.ToDisplay)
}
