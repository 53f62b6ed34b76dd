package rules

import "math"

const earthRadiusKM = 6371.0

// DistanceKM returns the great-circle distance between two points.
func DistanceKM(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180

	cos := math.Cos(phi1)*math.Cos(phi2)*math.Cos(dLon) + math.Sin(phi1)*math.Sin(phi2)
	cos = math.Min(1, math.Max(-1, cos))
	return earthRadiusKM * math.Acos(cos)
}
