package booking

import (
	"time"

	"transfera/models"

	"github.com/google/uuid"
)

// NewSession creates a fresh session positioned at the vehicle step with a
// single passenger and no vehicle selected.
func NewSession() *models.BookingSession {
	now := time.Now()
	return &models.BookingSession{
		ID:         uuid.New().String(),
		Step:       models.StepVehicle,
		Passengers: 1,
		Personal: models.PersonalDetails{
			Extras:     make(map[string]bool),
			ChildSeats: make(map[string]int),
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Advance validates the current step and moves forward when clean. When
// validation fails the step stays put and the errors are stored on the
// session for the surface layer to render; scroll-to-first-error semantics
// belong to the caller.
func Advance(s *models.BookingSession) []models.FieldError {
	errs := ValidateStep(s, s.Step)
	if len(errs) > 0 {
		s.Errors = errs
		return errs
	}
	s.Errors = nil
	if s.Step < models.StepPayment {
		s.Step++
	}
	return nil
}

// Retreat steps backward. On step 1 it reports that the caller should leave
// the flow entirely (back to search); otherwise it decrements the step and
// clears validation errors.
func Retreat(s *models.BookingSession) (leftFlow bool) {
	if s.Step <= models.StepVehicle {
		return true
	}
	s.Step--
	s.Errors = nil
	return false
}
