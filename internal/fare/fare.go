// Package fare computes trip fare estimates. The server uses it as the
// canonical estimator; the client uses it as the local fallback when
// the estimate call fails.
package fare

import (
	"math"

	"github.com/example/hande/internal/models"
)

// Pricing constants. Total is floored at MinFare.
const (
	BaseFare       = 2.5
	PerKm          = 1.0
	PerMinute      = 0.25
	MinFare        = 5.0
	MinutesPerKm   = 3.0 // naive city-speed duration estimate
	DailyFeeAmount = 1.0 // the "$1/day" driver subscription
)

// VehicleMultiplier scales the estimate by vehicle class.
func VehicleMultiplier(vehicleType string) float64 {
	switch vehicleType {
	case "hatchback":
		return 0.9
	case "suv":
		return 1.3
	default:
		return 1.0
	}
}

// Estimate computes the fallback fare between two points.
func Estimate(pickup, dropoff models.Location) models.FareEstimate {
	distKm := HaversineKm(pickup.Latitude, pickup.Longitude, dropoff.Latitude, dropoff.Longitude)
	durationMin := int(math.Round(distKm * MinutesPerKm))

	distanceCharge := distKm * PerKm
	timeCharge := float64(durationMin) * PerMinute
	total := BaseFare + distanceCharge + timeCharge
	if total < MinFare {
		total = MinFare
	}

	return models.FareEstimate{
		EstimatedFare: total,
		DistanceKm:    distKm,
		DurationMin:   durationMin,
		Breakdown: models.FareBreakdown{
			BaseFare:       BaseFare,
			DistanceCharge: distanceCharge,
			TimeCharge:     timeCharge,
			Total:          total,
		},
	}
}

// HaversineKm is the great-circle distance in kilometers.
func HaversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	const R = 6371.0
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180
	a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return R * c
}
