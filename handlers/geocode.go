package handlers

import (
	"net/http"

	"transfera/services/geocode"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// GeocodeHandler exposes address resolution so clients can validate a
// location before committing it to the session.
type GeocodeHandler struct {
	resolver *geocode.Resolver
	logger   *zap.Logger
}

func NewGeocodeHandler(resolver *geocode.Resolver, logger *zap.Logger) *GeocodeHandler {
	return &GeocodeHandler{resolver: resolver, logger: logger}
}

// Resolve geocodes a free-text address (or place id) and classifies whether
// it is precise enough to price a transfer from.
func (h *GeocodeHandler) Resolve(c *gin.Context) {
	address := c.Query("address")
	if address == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "address query parameter is required"})
		return
	}
	field := c.DefaultQuery("field", "from")
	placeID := c.Query("placeId")

	place, err := h.resolver.Resolve(c.Request.Context(), address, field, placeID)
	if err != nil {
		getLogger(c).Warn("address resolution failed", zap.String("address", address), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "could not resolve this address right now"})
		return
	}

	validity := geocode.Classify(place)
	resp := gin.H{
		"display": place.Display,
		"coords":  place.Coords,
		"valid":   validity.Valid,
	}
	if !validity.Valid {
		resp["reason"] = validity.Reason
	}
	c.JSON(http.StatusOK, resp)
}
