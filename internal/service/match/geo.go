package match

import "math"

const earthRadiusKm = 6371.0

// avgSpeedKmh is the urban average used for rough ETA estimates.
const avgSpeedKmh = 30.0

// HaversineKm returns the great-circle distance in kilometres between two
// points specified in decimal degrees.
func HaversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := degreesToRadians(lat2 - lat1)
	dLng := degreesToRadians(lng2 - lng1)

	rLat1 := degreesToRadians(lat1)
	rLat2 := degreesToRadians(lat2)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rLat1)*math.Cos(rLat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}

// EtaMinutes converts a distance into a rough travel estimate, never below
// one minute.
func EtaMinutes(distanceKm float64) int {
	m := int(math.Ceil(distanceKm / avgSpeedKmh * 60))
	if m < 1 {
		m = 1
	}
	return m
}

// ValidCoordinates reports whether lat/lng are inside the geographic range.
func ValidCoordinates(lat, lng float64) bool {
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

func degreesToRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}
