package models

import "time"

type TimeBucket string

const (
	TimeBreakfast TimeBucket = "breakfast"
	TimeLunch     TimeBucket = "lunch"
	TimeDinner    TimeBucket = "dinner"
	TimeLateNight TimeBucket = "late_night"
)

// TimeBucketAt classifies a wall-clock time into a meal bucket.
func TimeBucketAt(t time.Time) TimeBucket {
	switch h := t.Hour(); {
	case h >= 6 && h < 11:
		return TimeBreakfast
	case h >= 11 && h < 16:
		return TimeLunch
	case h >= 16 && h < 22:
		return TimeDinner
	default:
		return TimeLateNight
	}
}

type Weather string

const (
	WeatherClear Weather = "clear"
	WeatherRainy Weather = "rainy"
	WeatherHot   Weather = "hot"
	WeatherCold  Weather = "cold"
)

// RequestContext is the situational input of a single recommendation call.
type RequestContext struct {
	TimeBucket TimeBucket   `json:"time_bucket"`
	Weather    Weather      `json:"weather"`
	DayOfWeek  time.Weekday `json:"day_of_week"`
	Location   GeoPoint     `json:"location"`
}
