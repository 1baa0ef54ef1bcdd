package models

// GeoPoint is a WGS84 coordinate in decimal degrees.
type GeoPoint struct {
	Lat float64 `json:"lat" db:"lat" validate:"min=-90,max=90"`
	Lon float64 `json:"lon" db:"lon" validate:"min=-180,max=180"`
}

// IsZero reports whether the point was left unset.
func (p GeoPoint) IsZero() bool {
	return p.Lat == 0 && p.Lon == 0
}

type Restaurant struct {
	ID                 string   `json:"id" db:"restaurant_id"`
	Name               string   `json:"name" db:"name"`
	Cuisine            string   `json:"cuisine" db:"cuisine"`
	AvgRating          float64  `json:"avg_rating" db:"avg_rating"`
	ReviewCount        int      `json:"review_count" db:"review_count"`
	PriceTier          int      `json:"price_tier" db:"price_tier"`
	AvgDeliveryMinutes float64  `json:"avg_delivery_minutes" db:"avg_delivery_minutes"`
	IsVegOnly          bool     `json:"is_veg_only" db:"is_veg_only"`
	IsAcceptingOrders  bool     `json:"is_accepting_orders" db:"is_accepting_orders"`
	Location           GeoPoint `json:"location"`
	PopularityScore    float64  `json:"popularity_score" db:"popularity_score"`
}

// HasReliableRating reports whether the rating is backed by at least one
// review. Ratings without reviews are ignored by scoring and filtering.
func (r *Restaurant) HasReliableRating() bool {
	return r.ReviewCount > 0
}
