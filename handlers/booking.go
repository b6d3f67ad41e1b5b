package handlers

import (
	"errors"
	"net/http"
	"time"

	"transfera/config"
	"transfera/models"
	"transfera/services/booking"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// BookingHandler exposes the booking flow over HTTP. All session mutations go
// through the injected service; the handler only translates between wire
// shapes and service calls.
type BookingHandler struct {
	svc    booking.BookingFlowService
	logger *zap.Logger
}

func NewBookingHandler(svc booking.BookingFlowService, logger *zap.Logger) *BookingHandler {
	return &BookingHandler{svc: svc, logger: logger}
}

type seedInput struct {
	From       string     `json:"from"`
	To         string     `json:"to"`
	PickupAt   *time.Time `json:"pickupAt"`
	ReturnAt   *time.Time `json:"returnAt"`
	IsReturn   bool       `json:"isReturn"`
	Passengers int        `json:"passengers"`
	VehicleID  string     `json:"vehicleId"`
}

// StartSession creates a new booking session, optionally pre-filled from a
// deep link.
func (h *BookingHandler) StartSession(c *gin.Context) {
	var input seedInput
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
			return
		}
	}
	seed := &booking.SessionSeed{
		From:       input.From,
		To:         input.To,
		PickupAt:   input.PickupAt,
		ReturnAt:   input.ReturnAt,
		IsReturn:   input.IsReturn,
		Passengers: input.Passengers,
		VehicleID:  input.VehicleID,
	}
	session, err := h.svc.StartSession(c.Request.Context(), seed)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, session)
}

// GetSession returns the current session state.
func (h *BookingHandler) GetSession(c *gin.Context) {
	session, err := h.svc.GetSession(c.Request.Context(), c.Param("sessionID"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// CancelSession discards the session.
func (h *BookingHandler) CancelSession(c *gin.Context) {
	if err := h.svc.CancelSession(c.Request.Context(), c.Param("sessionID")); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cancelled"})
}

// UpdateRoute changes one or both route endpoints and triggers geocoding.
func (h *BookingHandler) UpdateRoute(c *gin.Context) {
	var input struct {
		From        string `json:"from"`
		To          string `json:"to"`
		FromPlaceID string `json:"fromPlaceId"`
		ToPlaceID   string `json:"toPlaceId"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}
	session, err := h.svc.UpdateRoute(c.Request.Context(), c.Param("sessionID"), booking.RouteUpdate{
		From:        input.From,
		To:          input.To,
		FromPlaceID: input.FromPlaceID,
		ToPlaceID:   input.ToPlaceID,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// UpdateSchedule changes the pickup and return times.
func (h *BookingHandler) UpdateSchedule(c *gin.Context) {
	var input struct {
		IsReturn bool       `json:"isReturn"`
		PickupAt *time.Time `json:"pickupAt"`
		ReturnAt *time.Time `json:"returnAt"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}
	session, err := h.svc.UpdateSchedule(c.Request.Context(), c.Param("sessionID"), booking.ScheduleUpdate{
		IsReturn: input.IsReturn,
		PickupAt: input.PickupAt,
		ReturnAt: input.ReturnAt,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// UpdatePassengers changes the passenger count.
func (h *BookingHandler) UpdatePassengers(c *gin.Context) {
	var input struct {
		Passengers int `json:"passengers"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}
	session, err := h.svc.UpdatePassengers(c.Request.Context(), c.Param("sessionID"), input.Passengers)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// SelectVehicle picks a catalog vehicle for the session.
func (h *BookingHandler) SelectVehicle(c *gin.Context) {
	var input struct {
		VehicleID string `json:"vehicleId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}
	session, err := h.svc.SelectVehicle(c.Request.Context(), c.Param("sessionID"), input.VehicleID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// UpdateDetails stores the passenger and extras data from step 2.
func (h *BookingHandler) UpdateDetails(c *gin.Context) {
	var input struct {
		models.PersonalDetails
		Extras []string `json:"extras"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}
	session, err := h.svc.UpdatePersonal(c.Request.Context(), c.Param("sessionID"), input.PersonalDetails, input.Extras)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// UpdatePayment stores the payment method choice. Card data never passes
// through here; the hosted checkout page collects it.
func (h *BookingHandler) UpdatePayment(c *gin.Context) {
	var input models.PaymentDetails
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}
	session, err := h.svc.UpdatePayment(c.Request.Context(), c.Param("sessionID"), input)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// NextStep validates the current step and advances when clean. The response
// always carries the session; a blocked transition shows up as an unchanged
// step with validationErrors set.
func (h *BookingHandler) NextStep(c *gin.Context) {
	session, err := h.svc.AdvanceStep(c.Request.Context(), c.Param("sessionID"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// PrevStep steps backward; leftFlow tells the client to return to search.
func (h *BookingHandler) PrevStep(c *gin.Context) {
	session, left, err := h.svc.RetreatStep(c.Request.Context(), c.Param("sessionID"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": session, "leftFlow": left})
}

// RequestQuote forces a fresh pricing attempt for the session.
func (h *BookingHandler) RequestQuote(c *gin.Context) {
	session, err := h.svc.RequestQuote(c.Request.Context(), c.Param("sessionID"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// Submit finalizes the booking.
func (h *BookingHandler) Submit(c *gin.Context) {
	result, err := h.svc.Submit(c.Request.Context(), c.Param("sessionID"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ListVehicles returns the static vehicle catalog.
func ListVehicles(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"vehicles": models.VehicleCatalog()})
}

// fail maps service errors to HTTP responses. Submission detail is only
// exposed outside production.
func (h *BookingHandler) fail(c *gin.Context, err error) {
	if errors.Is(err, booking.ErrSessionNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "booking session not found or expired"})
		return
	}
	var se *booking.SubmissionError
	if errors.As(err, &se) {
		status := se.Status
		if status < 400 || status > 599 {
			status = http.StatusBadGateway
		}
		body := gin.H{"error": se.Message}
		if !config.IsProduction() && se.Detail != "" {
			body["details"] = se.Detail
		}
		c.JSON(status, body)
		return
	}
	getLogger(c).Error("booking request failed", zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}
