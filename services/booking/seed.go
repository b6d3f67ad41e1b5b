package booking

import (
	"strings"
	"time"

	"transfera/models"
	"transfera/services/geocode"
)

// SessionSeed carries the route and schedule parameters from a deep link or
// search result so a new session starts pre-filled.
type SessionSeed struct {
	From       string
	To         string
	PickupAt   *time.Time
	ReturnAt   *time.Time
	IsReturn   bool
	Passengers int
	VehicleID  string
}

// ApplySeed merges seed data into the session, filling only fields that are
// not already present so a seed can never clobber user input on an existing
// session.
func ApplySeed(s *models.BookingSession, seed SessionSeed) {
	if s.Route.From == "" && seed.From != "" {
		s.Route.From = seed.From
		s.Route.FromDisplay = displayName(seed.From)
		// Hub matches are trusted before any geocoding happens.
		s.Route.FromValid = geocode.MatchesHubPattern(s.Route.FromDisplay)
	}
	if s.Route.To == "" && seed.To != "" {
		s.Route.To = seed.To
		s.Route.ToDisplay = displayName(seed.To)
		s.Route.ToValid = geocode.MatchesHubPattern(s.Route.ToDisplay)
	}
	if s.Schedule.PickupAt == nil && seed.PickupAt != nil {
		t := *seed.PickupAt
		s.Schedule.PickupAt = &t
	}
	if seed.IsReturn {
		s.Schedule.IsReturn = true
		if s.Schedule.ReturnAt == nil && seed.ReturnAt != nil {
			t := *seed.ReturnAt
			s.Schedule.ReturnAt = &t
		}
	}
	if s.Passengers <= models.MinPassengers && seed.Passengers > models.MinPassengers {
		s.Passengers = seed.Passengers
		if s.Passengers > models.MaxPassengers {
			s.Passengers = models.MaxPassengers
		}
	}
	if s.Vehicle == nil && seed.VehicleID != "" {
		if v, ok := models.VehicleByID(seed.VehicleID); ok {
			s.Vehicle = &v
			s.VehicleID = v.ID
		}
	}
}

// displayName turns a URL slug like "rome-fiumicino-airport-fco" into a
// readable label. Parenthesized codes survive as-is; everything else gets
// hyphens replaced and words title-cased.
func displayName(slug string) string {
	if strings.ContainsAny(slug, " (") {
		return slug
	}
	words := strings.Split(slug, "-")
	for i, w := range words {
		if w == "" {
			continue
		}
		if len(w) == 3 && i == len(words)-1 && isAlpha(w) && looksLikeCode(words) {
			words[i] = "(" + strings.ToUpper(w) + ")"
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// looksLikeCode reports whether the slug plausibly ends in an IATA code, i.e.
// it names an airport.
func looksLikeCode(words []string) bool {
	for _, w := range words {
		if strings.EqualFold(w, "airport") || strings.EqualFold(w, "aeroporto") {
			return true
		}
	}
	return false
}

func isAlpha(s string) bool {
	for _, r := range s {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}
