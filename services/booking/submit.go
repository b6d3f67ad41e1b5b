package booking

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"transfera/models"
	"transfera/utils"

	"github.com/stripe/stripe-go/v76"
	checkoutsession "github.com/stripe/stripe-go/v76/checkout/session"
	"go.uber.org/zap"
)

// SubmissionResult is the outcome of a successful submission. RedirectURL is
// set only on the card path and points at the hosted checkout page.
type SubmissionResult struct {
	BookingRef  string `json:"bookingRef"`
	RedirectURL string `json:"redirectUrl,omitempty"`
}

// EmailEnqueuer hands a confirmation email off to the background queue.
type EmailEnqueuer func(payload models.EmailPayload) error

// CheckoutCreator creates a hosted checkout session. Injectable so tests do
// not hit the payment provider.
type CheckoutCreator func(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)

// Submitter turns a completed session into a booking: card payments go
// through a hosted checkout session, cash bookings post straight to the
// booking backend and queue a confirmation email.
type Submitter struct {
	httpClient     *http.Client
	logger         *zap.Logger
	bookingAPIURL  string
	successURL     string
	cancelURL      string
	enqueue        EmailEnqueuer
	createCheckout CheckoutCreator
}

func NewSubmitter(bookingAPIURL, successURL, cancelURL string, enqueue EmailEnqueuer, logger *zap.Logger) *Submitter {
	return &Submitter{
		httpClient:    &http.Client{Timeout: 20 * time.Second},
		logger:        logger,
		bookingAPIURL: bookingAPIURL,
		successURL:    successURL,
		cancelURL:     cancelURL,
		enqueue:       enqueue,
		createCheckout: func(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
			return checkoutsession.New(params)
		},
	}
}

// Submit finalizes the booking. The email check runs before anything else so
// no booking reference is ever minted for an unreachable customer.
func (b *Submitter) Submit(ctx context.Context, s *models.BookingSession) (*SubmissionResult, error) {
	if !ValidEmail(s.Personal.Email) {
		return nil, newSubmissionError(http.StatusUnprocessableEntity, "a valid email address is required", "")
	}
	if errs := ValidateStep(s, models.StepPayment); len(errs) > 0 {
		return nil, newSubmissionError(http.StatusUnprocessableEntity, "booking is incomplete", errs[0].Message)
	}

	if s.BookingRef == "" {
		s.BookingRef = utils.NewBookingReference()
	}
	price, currency := effectivePrice(s)

	switch s.Payment.Method {
	case models.PaymentCard:
		return b.submitCard(s, price, currency)
	case models.PaymentCash:
		return b.submitCash(ctx, s, price, currency)
	default:
		return nil, newSubmissionError(http.StatusUnprocessableEntity, "unsupported payment method", s.Payment.Method)
	}
}

func (b *Submitter) submitCard(s *models.BookingSession, price float64, currency string) (*SubmissionResult, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(b.successURL),
		CancelURL:         stripe.String(b.cancelURL),
		ClientReferenceID: stripe.String(s.BookingRef),
		CustomerEmail:     stripe.String(s.Personal.Email),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			Quantity: stripe.Int64(1),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(strings.ToLower(currency)),
				UnitAmount: stripe.Int64(int64(math.Round(price * 100))),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(checkoutItemName(s)),
				},
			},
		}},
	}
	params.AddMetadata("booking_reference", s.BookingRef)
	params.AddMetadata("session_id", s.ID)
	if s.Personal.FlightNumber != "" {
		params.AddMetadata("flight_number", s.Personal.FlightNumber)
	}

	cs, err := b.createCheckout(params)
	if err != nil {
		b.logger.Error("checkout session creation failed",
			zap.String("sessionID", s.ID),
			zap.String("bookingRef", s.BookingRef),
			zap.Error(err))
		return nil, newSubmissionError(http.StatusBadGateway, "payment could not be started", err.Error())
	}
	if cs.URL == "" {
		return nil, newSubmissionError(http.StatusBadGateway, "payment could not be started", "checkout session has no redirect URL")
	}
	return &SubmissionResult{BookingRef: s.BookingRef, RedirectURL: cs.URL}, nil
}

// bookingPayload is the wire shape posted to the booking backend on the cash
// path.
type bookingPayload struct {
	Reference     string   `json:"reference"`
	From          string   `json:"from"`
	To            string   `json:"to"`
	PickupTime    string   `json:"pickup_time"`
	ReturnTime    string   `json:"return_time,omitempty"`
	TripType      string   `json:"trip_type"`
	Passengers    int      `json:"passengers"`
	Vehicle       string   `json:"vehicle"`
	FirstName     string   `json:"first_name"`
	LastName      string   `json:"last_name"`
	Email         string   `json:"email"`
	Phone         string   `json:"phone,omitempty"`
	Country       string   `json:"country"`
	FlightNumber  string   `json:"flight_number,omitempty"`
	Extras        []string `json:"extras,omitempty"`
	Luggage       int      `json:"luggage"`
	PaymentMethod string   `json:"payment_method"`
	Total         float64  `json:"total"`
	Currency      string   `json:"currency"`
	DiscountCode  string   `json:"discount_code,omitempty"`
}

func (b *Submitter) submitCash(ctx context.Context, s *models.BookingSession, price float64, currency string) (*SubmissionResult, error) {
	payload := bookingPayload{
		Reference:     s.BookingRef,
		From:          s.Route.FromDisplay,
		To:            s.Route.ToDisplay,
		TripType:      models.TripOneWay,
		Passengers:    s.Passengers,
		FirstName:     s.Personal.FirstName,
		LastName:      s.Personal.LastName,
		Email:         s.Personal.Email,
		Phone:         s.Personal.Phone,
		Country:       s.Personal.Country,
		FlightNumber:  s.Personal.FlightNumber,
		Luggage:       s.Personal.Luggage,
		PaymentMethod: models.PaymentCash,
		Total:         price,
		Currency:      currency,
		DiscountCode:  s.Payment.DiscountCode,
	}
	if s.Schedule.PickupAt != nil {
		payload.PickupTime = s.Schedule.PickupAt.Format(time.RFC3339)
	}
	if s.Schedule.IsReturn {
		payload.TripType = models.TripRoundTrip
		if s.Schedule.ReturnAt != nil {
			payload.ReturnTime = s.Schedule.ReturnAt.Format(time.RFC3339)
		}
	}
	for id, on := range s.Personal.Extras {
		if on {
			payload.Extras = append(payload.Extras, id)
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal booking payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.bookingAPIURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build booking request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		b.logger.Error("booking submission failed",
			zap.String("sessionID", s.ID),
			zap.String("bookingRef", s.BookingRef),
			zap.Error(err))
		return nil, newSubmissionError(http.StatusBadGateway, "booking backend unreachable", err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail := readErrorDetail(resp.Body)
		b.logger.Error("booking backend rejected submission",
			zap.String("sessionID", s.ID),
			zap.String("bookingRef", s.BookingRef),
			zap.Int("status", resp.StatusCode),
			zap.String("detail", detail))
		return nil, newSubmissionError(resp.StatusCode, "booking was not accepted", detail)
	}

	b.queueConfirmation(s, price, currency)
	return &SubmissionResult{BookingRef: s.BookingRef}, nil
}

func (b *Submitter) queueConfirmation(s *models.BookingSession, price float64, currency string) {
	if b.enqueue == nil {
		return
	}
	payload := models.EmailPayload{
		EmailType:  models.EmailTypeBookingReference,
		Email:      s.Personal.Email,
		FirstName:  s.Personal.FirstName,
		BookingRef: s.BookingRef,
		From:       s.Route.FromDisplay,
		To:         s.Route.ToDisplay,
		Vehicle:    vehicleName(s),
		Total:      fmt.Sprintf("%.2f %s", price, currency),
	}
	if s.Schedule.PickupAt != nil {
		payload.PickupTime = s.Schedule.PickupAt.Format(time.RFC3339)
	}
	// The booking is already accepted; a lost email is recoverable, a lost
	// booking is not.
	if err := b.enqueue(payload); err != nil {
		b.logger.Error("failed to enqueue confirmation email",
			zap.String("bookingRef", s.BookingRef),
			zap.Error(err))
	}
}

// effectivePrice prefers the quoted price for the selected vehicle's category
// and falls back to the catalog base price when no quote survived.
func effectivePrice(s *models.BookingSession) (float64, string) {
	if s.Vehicle == nil {
		return 0, "EUR"
	}
	if s.Quote != nil {
		if p, ok := s.Quote.PriceFor(s.Vehicle.Category); ok {
			return p.Price, p.Currency
		}
	}
	return s.Vehicle.BasePrice, s.Vehicle.Currency
}

func vehicleName(s *models.BookingSession) string {
	if s.Vehicle == nil {
		return ""
	}
	return s.Vehicle.Name
}

func checkoutItemName(s *models.BookingSession) string {
	name := "Private transfer"
	if s.Vehicle != nil {
		name = s.Vehicle.Name
	}
	if s.Route.FromDisplay != "" && s.Route.ToDisplay != "" {
		return fmt.Sprintf("%s: %s to %s", name, s.Route.FromDisplay, s.Route.ToDisplay)
	}
	return name
}

func readErrorDetail(r io.Reader) string {
	body, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil {
		return ""
	}
	var parsed struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &parsed) == nil {
		if parsed.Error != "" {
			return parsed.Error
		}
		if parsed.Message != "" {
			return parsed.Message
		}
	}
	return strings.TrimSpace(string(body))
}
