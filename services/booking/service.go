package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"transfera/models"
	"transfera/services/geocode"
	"transfera/services/pricing"

	"go.uber.org/zap"
)

// RouteUpdate mutates one or both sides of the route. A non-empty PlaceID
// lets the geocoder skip the free-text lookup for that side.
type RouteUpdate struct {
	From        string
	To          string
	FromPlaceID string
	ToPlaceID   string
}

// ScheduleUpdate mutates the pickup schedule.
type ScheduleUpdate struct {
	IsReturn bool
	PickupAt *time.Time
	ReturnAt *time.Time
}

// BookingFlowService drives one booking session through the three-step
// wizard. All methods load the session, mutate it, persist it, and return the
// updated aggregate.
type BookingFlowService interface {
	StartSession(ctx context.Context, seed *SessionSeed) (*models.BookingSession, error)
	GetSession(ctx context.Context, id string) (*models.BookingSession, error)
	CancelSession(ctx context.Context, id string) error

	UpdateRoute(ctx context.Context, id string, upd RouteUpdate) (*models.BookingSession, error)
	UpdateSchedule(ctx context.Context, id string, upd ScheduleUpdate) (*models.BookingSession, error)
	UpdatePassengers(ctx context.Context, id string, count int) (*models.BookingSession, error)
	SelectVehicle(ctx context.Context, id, vehicleID string) (*models.BookingSession, error)
	UpdatePersonal(ctx context.Context, id string, details models.PersonalDetails, extras []string) (*models.BookingSession, error)
	UpdatePayment(ctx context.Context, id string, details models.PaymentDetails) (*models.BookingSession, error)

	AdvanceStep(ctx context.Context, id string) (*models.BookingSession, error)
	RetreatStep(ctx context.Context, id string) (*models.BookingSession, bool, error)
	RequestQuote(ctx context.Context, id string) (*models.BookingSession, error)
	Submit(ctx context.Context, id string) (*SubmissionResult, error)
}

// DefaultBookingFlowService is the production implementation.
type DefaultBookingFlowService struct {
	store     SessionStore
	pricing   *pricing.Client
	geocoder  *geocode.Resolver
	submitter *Submitter
	logger    *zap.Logger
}

func NewBookingFlowService(store SessionStore, pc *pricing.Client, geo *geocode.Resolver, sub *Submitter, logger *zap.Logger) *DefaultBookingFlowService {
	return &DefaultBookingFlowService{
		store:     store,
		pricing:   pc,
		geocoder:  geo,
		submitter: sub,
		logger:    logger,
	}
}

func (svc *DefaultBookingFlowService) StartSession(ctx context.Context, seed *SessionSeed) (*models.BookingSession, error) {
	s := NewSession()
	if seed != nil {
		ApplySeed(s, *seed)
	}
	svc.persist(ctx, s)
	return s, nil
}

func (svc *DefaultBookingFlowService) GetSession(ctx context.Context, id string) (*models.BookingSession, error) {
	return svc.store.Load(ctx, id)
}

func (svc *DefaultBookingFlowService) CancelSession(ctx context.Context, id string) error {
	return svc.store.Delete(ctx, id)
}

func (svc *DefaultBookingFlowService) UpdateRoute(ctx context.Context, id string, upd RouteUpdate) (*models.BookingSession, error) {
	s, err := svc.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if upd.From != "" && upd.From != s.Route.From {
		s.Route.From = upd.From
		svc.resolveSide(ctx, s, "from", upd.From, upd.FromPlaceID)
		s.InvalidateQuote()
	}
	if upd.To != "" && upd.To != s.Route.To {
		s.Route.To = upd.To
		svc.resolveSide(ctx, s, "to", upd.To, upd.ToPlaceID)
		s.InvalidateQuote()
	}
	svc.persist(ctx, s)
	return s, nil
}

// resolveSide geocodes one route endpoint and records display text,
// coordinates, and validity on the session. A failed lookup leaves the side
// invalid with the raw text as display; the validation step reports it.
func (svc *DefaultBookingFlowService) resolveSide(ctx context.Context, s *models.BookingSession, side, address, placeID string) {
	place, err := svc.geocoder.Resolve(ctx, address, side, placeID)
	if err != nil {
		svc.logger.Warn("route endpoint could not be resolved",
			zap.String("sessionID", s.ID),
			zap.String("side", side),
			zap.Error(err))
		if side == "from" {
			s.Route.FromDisplay = address
			s.Route.FromCoords = nil
			s.Route.FromValid = geocode.MatchesHubPattern(address)
		} else {
			s.Route.ToDisplay = address
			s.Route.ToCoords = nil
			s.Route.ToValid = geocode.MatchesHubPattern(address)
		}
		return
	}
	validity := geocode.Classify(place)
	coords := place.Coords
	if side == "from" {
		s.Route.FromDisplay = place.Display
		s.Route.FromCoords = &coords
		s.Route.FromValid = validity.Valid
	} else {
		s.Route.ToDisplay = place.Display
		s.Route.ToCoords = &coords
		s.Route.ToValid = validity.Valid
	}
}

func (svc *DefaultBookingFlowService) UpdateSchedule(ctx context.Context, id string, upd ScheduleUpdate) (*models.BookingSession, error) {
	s, err := svc.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	s.Schedule.IsReturn = upd.IsReturn
	if upd.PickupAt != nil {
		t := *upd.PickupAt
		s.Schedule.PickupAt = &t
	}
	if upd.IsReturn {
		if upd.ReturnAt != nil {
			t := *upd.ReturnAt
			s.Schedule.ReturnAt = &t
		}
	} else {
		s.Schedule.ReturnAt = nil
	}
	s.InvalidateQuote()
	svc.persist(ctx, s)
	return s, nil
}

func (svc *DefaultBookingFlowService) UpdatePassengers(ctx context.Context, id string, count int) (*models.BookingSession, error) {
	s, err := svc.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if count < models.MinPassengers {
		count = models.MinPassengers
	}
	if count > models.MaxPassengers {
		count = models.MaxPassengers
	}
	if count != s.Passengers {
		s.Passengers = count
		s.InvalidateQuote()
	}
	svc.persist(ctx, s)
	return s, nil
}

func (svc *DefaultBookingFlowService) SelectVehicle(ctx context.Context, id, vehicleID string) (*models.BookingSession, error) {
	s, err := svc.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	v, ok := models.VehicleByID(vehicleID)
	if !ok {
		s.Errors = []models.FieldError{{Field: "vehicle", Message: "unknown vehicle", Kind: models.ErrKindValidation}}
		return s, nil
	}
	s.Vehicle = &v
	s.VehicleID = v.ID
	s.Errors = nil
	if s.Quote != nil {
		s.Quote.SelectedCategory = v.Category
	}
	svc.persist(ctx, s)
	return s, nil
}

func (svc *DefaultBookingFlowService) UpdatePersonal(ctx context.Context, id string, details models.PersonalDetails, extras []string) (*models.BookingSession, error) {
	s, err := svc.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if details.Extras == nil {
		details.Extras = make(map[string]bool, len(extras))
	}
	for _, e := range extras {
		if e = strings.TrimSpace(e); e != "" {
			details.Extras[e] = true
		}
	}
	if details.ChildSeats == nil {
		details.ChildSeats = make(map[string]int)
	}
	s.Personal = details
	svc.persist(ctx, s)
	return s, nil
}

func (svc *DefaultBookingFlowService) UpdatePayment(ctx context.Context, id string, details models.PaymentDetails) (*models.BookingSession, error) {
	s, err := svc.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	s.Payment = details
	svc.persist(ctx, s)
	return s, nil
}

func (svc *DefaultBookingFlowService) AdvanceStep(ctx context.Context, id string) (*models.BookingSession, error) {
	s, err := svc.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	// Moving off the vehicle step needs a priced quote; fetch one if no
	// attempt has completed yet.
	if s.Step == models.StepVehicle && !s.HasQuoteOutcome() {
		svc.fetchQuote(ctx, s)
	}
	Advance(s)
	svc.persist(ctx, s)
	return s, nil
}

func (svc *DefaultBookingFlowService) RetreatStep(ctx context.Context, id string) (*models.BookingSession, bool, error) {
	s, err := svc.store.Load(ctx, id)
	if err != nil {
		return nil, false, err
	}
	left := Retreat(s)
	svc.persist(ctx, s)
	return s, left, nil
}

func (svc *DefaultBookingFlowService) RequestQuote(ctx context.Context, id string) (*models.BookingSession, error) {
	s, err := svc.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	svc.fetchQuote(ctx, s)
	svc.persist(ctx, s)
	return s, nil
}

func (svc *DefaultBookingFlowService) fetchQuote(ctx context.Context, s *models.BookingSession) {
	in := pricing.QuoteInput{
		Pickup:    s.Route.FromCoords,
		Dropoff:   s.Route.ToCoords,
		PickupAt:  s.Schedule.PickupAt,
		ReturnAt:  s.Schedule.ReturnAt,
		IsReturn:  s.Schedule.IsReturn,
		SessionID: s.ID,
	}
	onRetry := func(attempt int, err error, delay time.Duration) {
		svc.logger.Warn("quote request retrying",
			zap.String("sessionID", s.ID),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err))
	}
	quote, err := svc.pricing.GetQuote(ctx, in, onRetry)
	if err != nil {
		s.SetQuoteError(quoteErrorMessage(err))
		return
	}
	s.SetQuote(quote)
	if s.Vehicle != nil {
		s.Quote.SelectedCategory = s.Vehicle.Category
	}
}

// quoteErrorMessage maps pricing failures to the message stored on the
// session and shown to the customer.
func quoteErrorMessage(err error) string {
	var rl *pricing.RateLimitError
	if errors.As(err, &rl) {
		return fmt.Sprintf("too many quote requests, try again in %d seconds", int(rl.RetryAfter.Seconds())+1)
	}
	var le *pricing.LocationError
	if errors.As(err, &le) {
		return le.Message
	}
	var te *pricing.TimeError
	if errors.As(err, &te) {
		return te.Message
	}
	var pe *pricing.PricingError
	if errors.As(err, &pe) {
		return "we could not price this trip right now, please try again"
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return "the pricing request timed out, please try again"
	}
	return "we could not price this trip right now, please try again"
}

func (svc *DefaultBookingFlowService) Submit(ctx context.Context, id string) (*SubmissionResult, error) {
	s, err := svc.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	result, err := svc.submitter.Submit(ctx, s)
	if err != nil {
		return nil, err
	}
	s.BookingRef = result.BookingRef
	svc.persist(ctx, s)
	return result, nil
}

// persist writes the session back to storage. Failures are logged and
// swallowed: the in-memory aggregate is still valid for this request, and a
// lost write only costs session restore fidelity.
func (svc *DefaultBookingFlowService) persist(ctx context.Context, s *models.BookingSession) {
	s.UpdatedAt = time.Now()
	if err := svc.store.Save(ctx, s); err != nil {
		svc.logger.Warn("failed to persist booking session",
			zap.String("sessionID", s.ID),
			zap.Error(err))
	}
}
