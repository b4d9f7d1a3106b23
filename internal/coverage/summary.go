package coverage

import (
	"math"

	"github.com/rotisserie/eris"

	"github.com/breathe-india/aqcover/internal/model"
)

// DefaultHighPovertyCutoff is the poverty-index threshold above which a
// point counts as high-poverty in the national summary. It is a fixed
// constant (overridable in config as analysis.high_poverty_cutoff), not a
// per-run quantile, so results stay comparable across datasets of
// different size.
const DefaultHighPovertyCutoff = 0.5

// Summary holds the national rollup across every result, labeled or not.
type Summary struct {
	Points                    int              `json:"points"`
	TotalPopulation           float64          `json:"total_population"`
	BandPopulation            map[Band]float64 `json:"band_population"`
	BandPct                   map[Band]float64 `json:"band_pct"`
	WeightedMeanDistanceKM    float64          `json:"weighted_mean_distance_km"`
	HighPovertyPopulation     float64          `json:"high_poverty_population"`
	HighPovertyUnderservedPct float64          `json:"high_poverty_underserved_pct"`
}

// NationalSummary computes national band shares and the share of the
// high-poverty population that is underserved (band FAR). Points with an
// undefined poverty index are excluded from both sides of the high-poverty
// ratio but still count toward population and band totals. Zero total
// population yields ErrInsufficientData.
func NationalSummary(results []Result, highPovertyCutoff float64) (Summary, error) {
	s := Summary{
		Points:         len(results),
		BandPopulation: make(map[Band]float64, len(Bands)),
		BandPct:        make(map[Band]float64, len(Bands)),
	}
	for _, b := range Bands {
		s.BandPopulation[b] = 0
	}

	var distWeighted, highPovertyFar float64
	for _, r := range results {
		pop := r.Point.Population
		s.TotalPopulation += pop
		s.BandPopulation[r.Band] += pop
		distWeighted += pop * r.DistanceKM
		if r.Point.HasPoverty() && r.Point.Poverty > highPovertyCutoff {
			s.HighPovertyPopulation += pop
			if r.Band == BandFar {
				highPovertyFar += pop
			}
		}
	}

	if s.TotalPopulation == 0 {
		s.WeightedMeanDistanceKM = math.NaN()
		s.HighPovertyUnderservedPct = math.NaN()
		for _, b := range Bands {
			s.BandPct[b] = math.NaN()
		}
		return s, eris.Wrap(model.ErrInsufficientData, "national summary")
	}

	s.WeightedMeanDistanceKM = distWeighted / s.TotalPopulation
	for _, b := range Bands {
		s.BandPct[b] = 100 * s.BandPopulation[b] / s.TotalPopulation
	}
	if s.HighPovertyPopulation > 0 {
		s.HighPovertyUnderservedPct = 100 * highPovertyFar / s.HighPovertyPopulation
	} else {
		s.HighPovertyUnderservedPct = math.NaN()
	}
	return s, nil
}
