// Package report renders analysis output: per-region CSV, national markdown
// summaries, station-density rankings, and a GeoJSON station export.
//
// Formatting contract: percentages carry one decimal, populations print as
// integers, distances in km carry one decimal.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"

	"github.com/rotisserie/eris"

	"github.com/breathe-india/aqcover/internal/coverage"
)

// WriteRegionsCSV writes one row per region, ordered by descending FAR-band
// share. Undefined weighted fields print as empty cells.
func WriteRegionsCSV(w io.Writer, regions map[string]coverage.RegionAggregate) error {
	cw := csv.NewWriter(w)

	header := []string{
		"region", "points", "population",
		"near_pct", "mid_pct", "far_pct",
		"weighted_mean_distance_km", "mean_poverty", "vulnerability",
	}
	if err := cw.Write(header); err != nil {
		return eris.Wrap(err, "report: write csv header")
	}

	for _, name := range coverage.SortedRegions(regions) {
		agg := regions[name]
		row := []string{
			agg.Region,
			fmt.Sprintf("%d", agg.Points),
			formatPopulation(agg.Population),
			formatPct(agg.BandPct[coverage.BandNear]),
			formatPct(agg.BandPct[coverage.BandMid]),
			formatPct(agg.BandPct[coverage.BandFar]),
			formatKM(agg.WeightedMeanDistanceKM),
			formatPoverty(agg.MeanPoverty),
			formatPopulation(agg.Vulnerability),
		}
		if err := cw.Write(row); err != nil {
			return eris.Wrapf(err, "report: write csv row %s", agg.Region)
		}
	}

	cw.Flush()
	return eris.Wrap(cw.Error(), "report: flush csv")
}

func formatPct(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return fmt.Sprintf("%.1f", v)
}

func formatKM(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return fmt.Sprintf("%.1f", v)
}

func formatPoverty(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return fmt.Sprintf("%.3f", v)
}

func formatPopulation(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return fmt.Sprintf("%.0f", v)
}
