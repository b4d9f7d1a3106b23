package coverage

import "math"

// VulnerabilityScore is a relative ranking metric: population times
// distance, additionally weighted by the poverty index when one is
// defined. It is monotone in each factor; no normalization is promised.
func VulnerabilityScore(population, distanceKM, poverty float64) float64 {
	score := population * distanceKM
	if !math.IsNaN(poverty) {
		score *= poverty
	}
	return score
}
