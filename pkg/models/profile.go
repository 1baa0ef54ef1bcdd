package models

type DietaryPreference string

const (
	DietNone   DietaryPreference = "none"
	DietVeg    DietaryPreference = "veg"
	DietNonVeg DietaryPreference = "non_veg"
	DietVegan  DietaryPreference = "vegan"
)

// RequiresVegOnly reports whether only veg-only kitchens are acceptable.
func (d DietaryPreference) RequiresVegOnly() bool {
	return d == DietVeg || d == DietVegan
}

type PriceSensitivity string

const (
	PriceSensitivityLow    PriceSensitivity = "low"
	PriceSensitivityMedium PriceSensitivity = "medium"
	PriceSensitivityHigh   PriceSensitivity = "high"
)

// PreferredPriceTier maps a sensitivity label onto the 1-4 price tier scale.
// Unknown labels return 0 so callers can apply their own default.
func (p PriceSensitivity) PreferredPriceTier() float64 {
	switch p {
	case PriceSensitivityLow:
		return 1.5
	case PriceSensitivityMedium:
		return 2.5
	case PriceSensitivityHigh:
		return 3.5
	default:
		return 0
	}
}

// UserProfile is materialized per request and never mutated by ranking.
type UserProfile struct {
	UserID          string            `json:"user_id" db:"user_id"`
	OrderCount      int               `json:"order_count" db:"order_count"`
	Dietary         DietaryPreference `json:"dietary" db:"dietary"`
	PriceTier       float64           `json:"price_tier" db:"price_tier"`
	FavoriteCuisine string            `json:"favorite_cuisine" db:"favorite_cuisine"`
	Location        GeoPoint          `json:"location"`
	CuisineHistory  map[string]int    `json:"cuisine_history,omitempty"`
	// OrderedRestaurants lists every restaurant the user has ordered from.
	OrderedRestaurants []string `json:"ordered_restaurants,omitempty"`
}

// InteractionVector is a sparse restaurant_id -> weight view. Absent
// entries are zero.
type InteractionVector map[string]float64

// IsZero reports whether the vector carries no positive weight.
func (v InteractionVector) IsZero() bool {
	for _, w := range v {
		if w > 0 {
			return false
		}
	}
	return true
}

// SimilarUser is one neighbor of a user in the similarity snapshot.
type SimilarUser struct {
	UserID     string  `json:"user_id"`
	Similarity float64 `json:"similarity"`
}
