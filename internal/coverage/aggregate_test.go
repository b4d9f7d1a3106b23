package coverage

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/breathe-india/aqcover/internal/model"
)

func mkResult(region string, pop, km, poverty float64) Result {
	return Result{
		Point:         model.PopulationPoint{Region: region, Population: pop, Poverty: poverty},
		DistanceKM:    km,
		Band:          ClassifyBand(km),
		Vulnerability: VulnerabilityScore(pop, km, poverty),
	}
}

func TestAggregateByRegion(t *testing.T) {
	results := []Result{
		mkResult("GUJARAT", 1000, 10, 0.2),
		mkResult("GUJARAT", 3000, 40, math.NaN()),
		mkResult("GUJARAT", 1000, 80, 0.6),
		mkResult("KERALA", 500, 5, math.NaN()),
		mkResult("", 9999, 300, math.NaN()), // unlabeled: national only
	}

	aggs := AggregateByRegion(results)
	require.Len(t, aggs, 2)

	guj := aggs["GUJARAT"]
	assert.Equal(t, 3, guj.Points)
	assert.InDelta(t, 5000, guj.Population, 1e-9)
	assert.InDelta(t, 1000, guj.BandPopulation[BandNear], 1e-9)
	assert.InDelta(t, 3000, guj.BandPopulation[BandMid], 1e-9)
	assert.InDelta(t, 1000, guj.BandPopulation[BandFar], 1e-9)

	// Weighted mean distance: (1000*10 + 3000*40 + 1000*80) / 5000 = 42.
	assert.InDelta(t, 42, guj.WeightedMeanDistanceKM, 1e-9)

	// Poverty mean uses only the two defined-poverty points:
	// (1000*0.2 + 1000*0.6) / 2000 = 0.4.
	assert.InDelta(t, 0.4, guj.MeanPoverty, 1e-9)

	// Band percentages sum to 100 within rounding tolerance.
	sum := guj.BandPct[BandNear] + guj.BandPct[BandMid] + guj.BandPct[BandFar]
	assert.InDelta(t, 100, sum, 0.1)

	// Single-point region: weighted mean equals the point's own distance.
	ker := aggs["KERALA"]
	assert.InDelta(t, 5, ker.WeightedMeanDistanceKM, 1e-9)
	assert.InDelta(t, 100, ker.BandPct[BandNear], 1e-9)
	assert.True(t, math.IsNaN(ker.MeanPoverty))
}

func TestAggregateByRegionZeroPopulation(t *testing.T) {
	results := []Result{
		mkResult("LAKSHADWEEP", 0, 120, math.NaN()),
		mkResult("LAKSHADWEEP", 0, 90, math.NaN()),
	}

	aggs := AggregateByRegion(results)
	agg, ok := aggs["LAKSHADWEEP"]
	require.True(t, ok, "zero-population region must still be reported")
	assert.Equal(t, 2, agg.Points)
	assert.True(t, math.IsNaN(agg.WeightedMeanDistanceKM))
	assert.True(t, math.IsNaN(agg.BandPct[BandFar]))
	assert.True(t, math.IsNaN(agg.MeanPoverty))
}

func TestSortedRegions(t *testing.T) {
	aggs := AggregateByRegion([]Result{
		mkResult("A", 100, 80, math.NaN()),  // 100% FAR
		mkResult("B", 100, 10, math.NaN()),  // 0% FAR
		mkResult("C", 100, 80, math.NaN()),  // 100% FAR, ties with A
		mkResult("D", 0, 80, math.NaN()),    // NaN, sorts last
	})

	assert.Equal(t, []string{"A", "C", "B", "D"}, SortedRegions(aggs))
}

func TestVulnerabilityScore(t *testing.T) {
	assert.InDelta(t, 5000, VulnerabilityScore(100, 50, math.NaN()), 1e-9)
	assert.InDelta(t, 2500, VulnerabilityScore(100, 50, 0.5), 1e-9)
	assert.InDelta(t, 0, VulnerabilityScore(0, 50, 0.5), 1e-9)
}
