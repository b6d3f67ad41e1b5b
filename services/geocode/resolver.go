package geocode

import (
	"context"
	"fmt"
	"time"

	"transfera/models"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"googlemaps.github.io/maps"
)

// PlacesAPI is the slice of the Google Maps client the resolver needs.
// *maps.Client satisfies it.
type PlacesAPI interface {
	PlaceDetails(ctx context.Context, r *maps.PlaceDetailsRequest) (maps.PlaceDetailsResult, error)
	Geocode(ctx context.Context, r *maps.GeocodingRequest) ([]maps.GeocodingResult, error)
}

// NewMapsClient creates the Google Maps client with the given API key.
func NewMapsClient(apiKey string) (*maps.Client, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return client, nil
}

// Component is one address component of a resolved place.
type Component struct {
	Name  string
	Types []string
}

// Place is a resolved location with everything the completeness validator
// needs to classify it.
type Place struct {
	Query      string
	Display    string
	Coords     models.Coordinates
	Components []Component
	Types      []string
}

const (
	geocodeRetries   = 2
	geocodeBaseDelay = 500 * time.Millisecond
)

// Resolver turns a free-text address (optionally with a provider place ID)
// into coordinates. A supplied place ID takes the direct detail-lookup fast
// path; on failure it silently falls back to free-text geocoding with
// retries. Concurrent lookups for the same address+field collapse into one
// API call.
type Resolver struct {
	api    PlacesAPI
	logger *zap.Logger
	group  singleflight.Group
}

func NewResolver(api PlacesAPI, logger *zap.Logger) *Resolver {
	return &Resolver{api: api, logger: logger}
}

// Resolve looks up the address for the given route field ("from"/"to").
// Returns nil with an error when all paths are exhausted; the caller decides
// user-facing messaging.
func (r *Resolver) Resolve(ctx context.Context, address, field, placeID string) (*Place, error) {
	key := field + ":" + address
	v, err, _ := r.group.Do(key, func() (interface{}, error) {
		return r.resolve(ctx, address, placeID)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Place), nil
}

func (r *Resolver) resolve(ctx context.Context, address, placeID string) (*Place, error) {
	if placeID != "" {
		detail, err := r.api.PlaceDetails(ctx, &maps.PlaceDetailsRequest{PlaceID: placeID})
		if err == nil {
			return placeFromDetails(address, detail), nil
		}
		// Fast path failed; fall back to free-text geocoding.
		r.logger.Debug("place detail lookup failed, falling back to geocoding",
			zap.String("placeId", placeID), zap.Error(err))
	}

	var lastErr error
	delay := geocodeBaseDelay
	for attempt := 0; attempt <= geocodeRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}

		results, err := r.api.Geocode(ctx, &maps.GeocodingRequest{Address: address})
		if err == nil && len(results) == 0 {
			err = fmt.Errorf("no geocoding results for %q", address)
		}
		if err != nil {
			lastErr = err
			continue
		}
		return placeFromGeocoding(address, results[0]), nil
	}

	r.logger.Error("geocoding failed",
		zap.String("context", "GEOCODING"),
		zap.String("severity", "MEDIUM"),
		zap.String("address", address),
		zap.Error(lastErr),
	)
	return nil, fmt.Errorf("geocoding %q: %w", address, lastErr)
}

func placeFromDetails(query string, d maps.PlaceDetailsResult) *Place {
	display := d.FormattedAddress
	if display == "" {
		display = d.Name
	}
	return &Place{
		Query:      query,
		Display:    display,
		Coords:     models.Coordinates{Lat: d.Geometry.Location.Lat, Lng: d.Geometry.Location.Lng},
		Components: components(d.AddressComponents),
		Types:      d.Types,
	}
}

func placeFromGeocoding(query string, g maps.GeocodingResult) *Place {
	return &Place{
		Query:      query,
		Display:    g.FormattedAddress,
		Coords:     models.Coordinates{Lat: g.Geometry.Location.Lat, Lng: g.Geometry.Location.Lng},
		Components: components(g.AddressComponents),
		Types:      g.Types,
	}
}

func components(in []maps.AddressComponent) []Component {
	out := make([]Component, 0, len(in))
	for _, c := range in {
		out = append(out, Component{Name: c.LongName, Types: c.Types})
	}
	return out
}
