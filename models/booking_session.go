package models

import "time"

// Step positions of the booking wizard.
const (
	StepVehicle         = 1
	StepPersonalDetails = 2
	StepPayment         = 3
)

// Trip type flags as the pricing backend expects them.
const (
	TripOneWay    = "1"
	TripRoundTrip = "2"
)

// Passenger count bounds for one transfer.
const (
	MinPassengers = 1
	MaxPassengers = 100
)

// Payment methods accepted at step 3.
const (
	PaymentCard = "card"
	PaymentCash = "cash"
)

// FieldError kinds.
const (
	ErrKindLocation   = "location"
	ErrKindTime       = "time"
	ErrKindPricing    = "pricing"
	ErrKindValidation = "validation"
)

// Coordinates is a geographic point returned by the geocoder.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Route holds both endpoints of the transfer. The *Valid flags are true only
// once the geocoder has produced usable coordinates for the side, or the text
// matched a recognized transportation-hub pattern.
type Route struct {
	From        string       `json:"from"`
	To          string       `json:"to"`
	FromDisplay string       `json:"fromDisplay"`
	ToDisplay   string       `json:"toDisplay"`
	FromCoords  *Coordinates `json:"fromCoords,omitempty"`
	ToCoords    *Coordinates `json:"toCoords,omitempty"`
	FromValid   bool         `json:"fromValid"`
	ToValid     bool         `json:"toValid"`
}

// Schedule holds the pickup time and, for round trips, the return pickup
// time. ReturnAt is only meaningful when IsReturn is true and must be
// strictly later than PickupAt.
type Schedule struct {
	IsReturn bool       `json:"isReturn"`
	PickupAt *time.Time `json:"pickupAt,omitempty"`
	ReturnAt *time.Time `json:"returnAt,omitempty"`
}

// ExtraStop is an intermediate stop on the transfer route.
type ExtraStop struct {
	Address string       `json:"address"`
	Coords  *Coordinates `json:"coords,omitempty"`
}

// PersonalDetails carries the contact and extras data collected at step 2.
// Extras is a set of extra-id strings; it is converted to a sorted array when
// the session is serialized.
type PersonalDetails struct {
	FirstName    string          `json:"firstName"`
	LastName     string          `json:"lastName"`
	Email        string          `json:"email"`
	Phone        string          `json:"phone"`
	Country      string          `json:"country"`
	FlightNumber string          `json:"flightNumber,omitempty"`
	Extras       map[string]bool `json:"-"`
	ChildSeats   map[string]int  `json:"childSeats,omitempty"`
	ExtraStops   []ExtraStop     `json:"extraStops,omitempty"`
	Luggage      int             `json:"luggage"`
}

// PaymentDetails never carries card numbers; the card itself is collected by
// the external checkout page.
type PaymentDetails struct {
	Method       string `json:"method"` // "card" or "cash"
	DiscountCode string `json:"discountCode,omitempty"`
}

// FieldError is a single per-field validation failure. Kind tags the error
// family ("location", "time", "pricing", "validation") so callers can react
// to a specific class without parsing messages.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Kind    string `json:"kind"`
}

// BookingSession is the central aggregate for one in-progress booking. It is
// owned by a single browser session, mutated only through the booking flow
// service, and persisted as a JSON blob with a TTL.
//
// Exactly one of Quote/QuoteError is set once a pricing attempt has
// completed; both may be unset before any attempt.
type BookingSession struct {
	ID         string          `json:"sessionId"`
	Step       int             `json:"step"`
	Route      Route           `json:"route"`
	Schedule   Schedule        `json:"schedule"`
	Passengers int             `json:"passengers"`
	VehicleID  string          `json:"vehicleId,omitempty"`
	Vehicle    *Vehicle        `json:"vehicle,omitempty"`
	Quote      *QuoteResponse  `json:"quote,omitempty"`
	QuoteError string          `json:"quoteError,omitempty"`
	Personal   PersonalDetails `json:"personal"`
	Payment    PaymentDetails  `json:"payment"`
	Errors     []FieldError    `json:"validationErrors,omitempty"`
	BookingRef string          `json:"bookingRef,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

// HasQuoteOutcome reports whether a pricing attempt has completed.
func (s *BookingSession) HasQuoteOutcome() bool {
	return s.Quote != nil || s.QuoteError != ""
}

// SetQuote stores a successful quote and clears any previous pricing error.
func (s *BookingSession) SetQuote(q *QuoteResponse) {
	s.Quote = q
	s.QuoteError = ""
}

// SetQuoteError stores a pricing failure and clears any previous quote.
func (s *BookingSession) SetQuoteError(msg string) {
	s.Quote = nil
	s.QuoteError = msg
}

// InvalidateQuote clears both quote and quote error. Called on every mutation
// of route, schedule, or passenger count so the next forward transition
// forces a re-quote.
func (s *BookingSession) InvalidateQuote() {
	s.Quote = nil
	s.QuoteError = ""
}
