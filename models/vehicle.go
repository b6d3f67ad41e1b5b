package models

// Vehicle describes one entry of the static vehicle catalog. Category is the
// key the pricing backend quotes against.
type Vehicle struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Category  string  `json:"category"`
	Seats     int     `json:"seats"`
	Luggage   int     `json:"luggage"`
	BasePrice float64 `json:"basePrice"`
	Currency  string  `json:"currency"`
}

// vehicleCatalog is the static catalog; prices are defaults used only when no
// quote is available for the vehicle's category.
var vehicleCatalog = []Vehicle{
	{
		ID:        "sedan-standard",
		Name:      "Standard Sedan",
		Category:  "sedan",
		Seats:     3,
		Luggage:   3,
		BasePrice: 55,
		Currency:  "EUR",
	},
	{
		ID:        "sedan-business",
		Name:      "Business Sedan",
		Category:  "business",
		Seats:     3,
		Luggage:   3,
		BasePrice: 75,
		Currency:  "EUR",
	},
	{
		ID:        "minivan",
		Name:      "Minivan",
		Category:  "minivan",
		Seats:     6,
		Luggage:   6,
		BasePrice: 85,
		Currency:  "EUR",
	},
	{
		ID:        "van",
		Name:      "Van",
		Category:  "van",
		Seats:     8,
		Luggage:   10,
		BasePrice: 110,
		Currency:  "EUR",
	},
	{
		ID:        "minibus",
		Name:      "Minibus",
		Category:  "minibus",
		Seats:     16,
		Luggage:   16,
		BasePrice: 180,
		Currency:  "EUR",
	},
}

// VehicleCatalog returns a copy of the static vehicle catalog.
func VehicleCatalog() []Vehicle {
	out := make([]Vehicle, len(vehicleCatalog))
	copy(out, vehicleCatalog)
	return out
}

// VehicleByID resolves a catalog entry by ID.
func VehicleByID(id string) (Vehicle, bool) {
	for _, v := range vehicleCatalog {
		if v.ID == id {
			return v, true
		}
	}
	return Vehicle{}, false
}

// VehicleByCategory resolves the first catalog entry for a pricing category.
func VehicleByCategory(category string) (Vehicle, bool) {
	for _, v := range vehicleCatalog {
		if v.Category == category {
			return v, true
		}
	}
	return Vehicle{}, false
}

// DefaultVehicle is the catalog fallback used when a persisted vehicle ID is
// no longer known.
func DefaultVehicle() Vehicle {
	return vehicleCatalog[0]
}
