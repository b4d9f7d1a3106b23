// Package coverage computes distance-to-nearest-station metrics, coverage
// bands, and population-weighted inequity aggregates. The whole package is
// a stateless batch transform: fully materialized inputs in, fully
// materialized aggregates out.
package coverage

import "math"

// EarthRadiusKM is the mean sphere radius used for great-circle distances.
const EarthRadiusKM = 6371.0

// HaversineKM returns the great-circle distance in kilometers between two
// (lat, lon) pairs given in degrees. Coordinates span a continental extent,
// so a planar approximation is not acceptable; band thresholds sit close
// enough to real distances that the exact spherical formula matters.
func HaversineKM(lat1, lon1, lat2, lon2 float64) float64 {
	const degToRad = math.Pi / 180

	phi1 := lat1 * degToRad
	phi2 := lat2 * degToRad
	dPhi := (lat2 - lat1) * degToRad
	dLambda := (lon2 - lon1) * degToRad

	sinPhi := math.Sin(dPhi / 2)
	sinLambda := math.Sin(dLambda / 2)

	a := sinPhi*sinPhi + math.Cos(phi1)*math.Cos(phi2)*sinLambda*sinLambda
	return 2 * EarthRadiusKM * math.Asin(math.Min(1, math.Sqrt(a)))
}
