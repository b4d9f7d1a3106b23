package report

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/breathe-india/aqcover/internal/coverage"
)

// WriteSummaryMarkdown renders the national rollup with a most-underserved
// regions table (top topN by FAR-band share).
func WriteSummaryMarkdown(w io.Writer, summary coverage.Summary, regions map[string]coverage.RegionAggregate, topN int) error {
	var b markdownBuilder

	b.line("# Air Quality Monitoring Coverage Analysis")
	b.line("")
	b.line("## National Summary")
	b.line("")
	b.linef("- Population points analyzed: %d", summary.Points)
	b.linef("- Total population: %s", formatPopulation(summary.TotalPopulation))
	if !math.IsNaN(summary.WeightedMeanDistanceKM) {
		b.linef("- Population-weighted mean distance to nearest station: %.1f km", summary.WeightedMeanDistanceKM)
	}
	b.line("")
	b.line("## Coverage Bands")
	b.line("")
	b.line("| Band | Population | Share |")
	b.line("|------|------------|-------|")
	b.linef("| Well served (<%.0f km) | %s | %s%% |",
		coverage.NearThresholdKM,
		formatPopulation(summary.BandPopulation[coverage.BandNear]),
		formatPct(summary.BandPct[coverage.BandNear]))
	b.linef("| Poorly served (%.0f-%.0f km) | %s | %s%% |",
		coverage.NearThresholdKM, coverage.FarThresholdKM,
		formatPopulation(summary.BandPopulation[coverage.BandMid]),
		formatPct(summary.BandPct[coverage.BandMid]))
	b.linef("| Underserved (>=%.0f km) | %s | %s%% |",
		coverage.FarThresholdKM,
		formatPopulation(summary.BandPopulation[coverage.BandFar]),
		formatPct(summary.BandPct[coverage.BandFar]))
	b.line("")

	b.line("## High-Poverty Coverage")
	b.line("")
	if summary.HighPovertyPopulation > 0 && !math.IsNaN(summary.HighPovertyUnderservedPct) {
		b.linef("- High-poverty population: %s", formatPopulation(summary.HighPovertyPopulation))
		b.linef("- Share of high-poverty population underserved: %.1f%%", summary.HighPovertyUnderservedPct)
	} else {
		b.line("- No poverty data available for this source.")
	}
	b.line("")

	if len(regions) > 0 {
		b.linef("## Most Underserved Regions (top %d by underserved share)", topN)
		b.line("")
		b.line("| Rank | Region | Underserved % | Mean Distance (km) | Population |")
		b.line("|------|--------|---------------|--------------------|------------|")
		for i, name := range coverage.SortedRegions(regions) {
			if i >= topN {
				break
			}
			agg := regions[name]
			b.linef("| %d | %s | %s | %s | %s |",
				i+1, agg.Region,
				orDash(formatPct(agg.BandPct[coverage.BandFar])),
				orDash(formatKM(agg.WeightedMeanDistanceKM)),
				formatPopulation(agg.Population))
		}
		b.line("")
	}

	_, err := io.WriteString(w, b.String())
	return eris.Wrap(err, "report: write summary markdown")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

type markdownBuilder struct {
	strings.Builder
}

func (b *markdownBuilder) line(s string) {
	b.WriteString(s)
	b.WriteByte('\n')
}

func (b *markdownBuilder) linef(format string, args ...any) {
	b.line(fmt.Sprintf(format, args...))
}
