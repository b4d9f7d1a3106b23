package coverage

import (
	"math"
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/breathe-india/aqcover/internal/model"
)

// RegionAggregate is the per-state (or other administrative label) rollup
// of coverage results. Weighted fields are NaN when the region has zero
// usable population.
type RegionAggregate struct {
	Region                 string           `json:"region"`
	Points                 int              `json:"points"`
	Population             float64          `json:"population"`
	BandPopulation         map[Band]float64 `json:"band_population"`
	BandPct                map[Band]float64 `json:"band_pct"`
	WeightedMeanDistanceKM float64          `json:"weighted_mean_distance_km"`
	MeanPoverty            float64          `json:"mean_poverty"`
	Vulnerability          float64          `json:"vulnerability"`
}

// AggregateByRegion groups results by their region label and computes the
// per-region rollups. Points without a label are excluded here (they still
// count in the national summary). A region whose usable population is zero
// is kept in the output with NaN weighted fields rather than aborting the
// run.
func AggregateByRegion(results []Result) map[string]RegionAggregate {
	grouped := make(map[string][]Result)
	for _, r := range results {
		if r.Point.Region == "" {
			continue
		}
		grouped[r.Point.Region] = append(grouped[r.Point.Region], r)
	}

	out := make(map[string]RegionAggregate, len(grouped))
	for region, rs := range grouped {
		agg, err := aggregateRegion(region, rs)
		if err != nil {
			zap.L().Warn("coverage: region has no usable population",
				zap.String("region", region),
				zap.Int("points", len(rs)),
			)
		}
		out[region] = agg
	}
	return out
}

// SortedRegions returns region names ordered by descending FAR-band share,
// NaN regions last, ties broken alphabetically. Used by report writers and
// the API for stable ranking output.
func SortedRegions(aggs map[string]RegionAggregate) []string {
	names := make([]string, 0, len(aggs))
	for name := range aggs {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		a, b := aggs[names[i]].BandPct[BandFar], aggs[names[j]].BandPct[BandFar]
		switch {
		case math.IsNaN(a) && math.IsNaN(b):
			return names[i] < names[j]
		case math.IsNaN(a):
			return false
		case math.IsNaN(b):
			return true
		case a != b:
			return a > b
		default:
			return names[i] < names[j]
		}
	})
	return names
}

// aggregateRegion computes one region's rollup. Returns ErrInsufficientData
// (alongside a NaN-filled aggregate) when the summed population is zero,
// so the caller can report the region as undefined instead of dividing by
// zero.
func aggregateRegion(region string, rs []Result) (RegionAggregate, error) {
	agg := RegionAggregate{
		Region:         region,
		Points:         len(rs),
		BandPopulation: make(map[Band]float64, len(Bands)),
		BandPct:        make(map[Band]float64, len(Bands)),
	}
	for _, b := range Bands {
		agg.BandPopulation[b] = 0
	}

	var distWeighted, povWeighted, povPop float64
	for _, r := range rs {
		pop := r.Point.Population
		agg.Population += pop
		agg.BandPopulation[r.Band] += pop
		agg.Vulnerability += r.Vulnerability
		distWeighted += pop * r.DistanceKM
		if r.Point.HasPoverty() {
			povWeighted += pop * r.Point.Poverty
			povPop += pop
		}
	}

	if agg.Population == 0 {
		agg.WeightedMeanDistanceKM = math.NaN()
		agg.MeanPoverty = math.NaN()
		for _, b := range Bands {
			agg.BandPct[b] = math.NaN()
		}
		return agg, eris.Wrapf(model.ErrInsufficientData, "region %s", region)
	}

	agg.WeightedMeanDistanceKM = distWeighted / agg.Population
	for _, b := range Bands {
		agg.BandPct[b] = 100 * agg.BandPopulation[b] / agg.Population
	}
	if povPop > 0 {
		agg.MeanPoverty = povWeighted / povPop
	} else {
		agg.MeanPoverty = math.NaN()
	}
	return agg, nil
}
