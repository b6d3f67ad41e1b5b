package geocode

import (
	"regexp"
	"strings"
)

// Validity is the completeness classification of a resolved place.
type Validity struct {
	Valid  bool
	Reason string
}

var hubKeywords = regexp.MustCompile(`(?i)\b(airport|aeroporto|aeropuerto|flughafen|a[eé]roport|station|stazione|termini|bahnhof|hauptbahnhof|gare|terminal|cruise port|seaport)\b`)

// Parenthesized IATA-style code, e.g. "Rome Fiumicino (FCO)".
var hubCode = regexp.MustCompile(`\(([A-Z]{3})\)`)

var hubPlaceTypes = map[string]bool{
	"airport":            true,
	"train_station":      true,
	"transit_station":    true,
	"bus_station":        true,
	"subway_station":     true,
	"light_rail_station": true,
}

// MatchesHubPattern reports whether free text names a recognized
// transportation hub. Used both by the validator and by route seeding, where
// a hub match marks the side valid before any geocoding happens.
func MatchesHubPattern(text string) bool {
	return hubKeywords.MatchString(text) || hubCode.MatchString(text)
}

// HasAirportCode reports whether the text carries a parenthesized IATA-style
// airport code.
func HasAirportCode(text string) bool {
	return hubCode.MatchString(text)
}

// Classify decides whether a resolved place is precise enough to price a
// transfer from. Valid when it is a transportation hub, has both a street
// number and a route component, or is an establishment/POI with coordinates.
// Otherwise it is incomplete with a human-readable reason.
func Classify(p *Place) Validity {
	if MatchesHubPattern(p.Display) || MatchesHubPattern(p.Query) {
		return Validity{Valid: true}
	}
	for _, t := range p.Types {
		if hubPlaceTypes[t] {
			return Validity{Valid: true}
		}
	}

	var hasStreetNumber, hasRoute bool
	for _, c := range p.Components {
		for _, t := range c.Types {
			switch t {
			case "street_number":
				hasStreetNumber = true
			case "route":
				hasRoute = true
			}
		}
	}
	if hasStreetNumber && hasRoute {
		return Validity{Valid: true}
	}

	if hasPOIType(p.Types) && (p.Coords.Lat != 0 || p.Coords.Lng != 0) {
		return Validity{Valid: true}
	}

	if isLocalityOnly(p.Types) {
		return Validity{Valid: false, Reason: "needs a specific street address, not just a city"}
	}
	return Validity{Valid: false, Reason: "needs a specific street address"}
}

func hasPOIType(types []string) bool {
	for _, t := range types {
		if t == "establishment" || t == "point_of_interest" {
			return true
		}
	}
	return false
}

func isLocalityOnly(types []string) bool {
	for _, t := range types {
		if strings.HasPrefix(t, "locality") || t == "administrative_area_level_3" || t == "political" {
			return true
		}
	}
	return false
}
