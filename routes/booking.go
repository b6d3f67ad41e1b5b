package routes

import (
	"transfera/handlers"

	"github.com/gin-gonic/gin"
)

// RegisterBookingRoutes registers all endpoints for the booking flow.
func RegisterBookingRoutes(r *gin.Engine, bh *handlers.BookingHandler) {
	booking := r.Group("/api/booking")
	{
		booking.POST("/session", bh.StartSession)
		booking.GET("/session/:sessionID", bh.GetSession)
		booking.DELETE("/session/:sessionID", bh.CancelSession)

		booking.PUT("/session/:sessionID/route", bh.UpdateRoute)
		booking.PUT("/session/:sessionID/schedule", bh.UpdateSchedule)
		booking.PUT("/session/:sessionID/passengers", bh.UpdatePassengers)
		booking.PUT("/session/:sessionID/vehicle", bh.SelectVehicle)
		booking.PUT("/session/:sessionID/details", bh.UpdateDetails)
		booking.PUT("/session/:sessionID/payment", bh.UpdatePayment)

		booking.GET("/vehicles", handlers.ListVehicles)

		booking.POST("/session/:sessionID/advance", bh.NextStep)
		booking.POST("/session/:sessionID/back", bh.PrevStep)
		booking.POST("/session/:sessionID/quote", bh.RequestQuote)
		booking.POST("/session/:sessionID/submit", bh.Submit)
	}
}
