package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/rotisserie/eris"

	"github.com/breathe-india/aqcover/internal/model"
)

// DensityRow is one state's monitoring-density figures.
type DensityRow struct {
	State              string  `json:"state"`
	Population         float64 `json:"population"`
	Stations           int     `json:"stations"`
	PeoplePerStation   float64 `json:"people_per_station"`   // +Inf when no stations
	StationsPerMillion float64 `json:"stations_per_million"` // 0 when no population
}

// BuildDensity joins state populations with per-state station counts.
// States present only in one input still get a row.
func BuildDensity(populations []model.PopulationPoint, stationCounts map[string]int) []DensityRow {
	popByState := make(map[string]float64, len(populations))
	for _, p := range populations {
		if p.Region != "" {
			popByState[p.Region] += p.Population
		}
	}

	seen := make(map[string]bool)
	var rows []DensityRow
	add := func(state string) {
		if state == "" || seen[state] {
			return
		}
		seen[state] = true

		pop := popByState[state]
		count := stationCounts[state]
		row := DensityRow{State: state, Population: pop, Stations: count}
		if count > 0 {
			row.PeoplePerStation = pop / float64(count)
		} else {
			row.PeoplePerStation = math.Inf(1)
		}
		if pop > 0 {
			row.StationsPerMillion = float64(count) / (pop / 1e6)
		}
		rows = append(rows, row)
	}

	for state := range popByState {
		add(state)
	}
	for state := range stationCounts {
		add(state)
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].State < rows[j].State })
	return rows
}

// BestCoverage returns the n states with the most stations per million
// people.
func BestCoverage(rows []DensityRow, n int) []DensityRow {
	out := filterRank(rows, n, func(a, b DensityRow) bool {
		if a.StationsPerMillion != b.StationsPerMillion {
			return a.StationsPerMillion > b.StationsPerMillion
		}
		return a.State < b.State
	}, func(r DensityRow) bool { return r.Population > 0 })
	return out
}

// WorstCoverage returns the n monitored states with the fewest stations per
// million people. States with zero stations are excluded, matching the
// historical report.
func WorstCoverage(rows []DensityRow, n int) []DensityRow {
	return filterRank(rows, n, func(a, b DensityRow) bool {
		if a.StationsPerMillion != b.StationsPerMillion {
			return a.StationsPerMillion < b.StationsPerMillion
		}
		return a.State < b.State
	}, func(r DensityRow) bool { return r.Stations > 0 && r.Population > 0 })
}

// MostUnderserved returns the n monitored states with the most people per
// station.
func MostUnderserved(rows []DensityRow, n int) []DensityRow {
	return filterRank(rows, n, func(a, b DensityRow) bool {
		if a.PeoplePerStation != b.PeoplePerStation {
			return a.PeoplePerStation > b.PeoplePerStation
		}
		return a.State < b.State
	}, func(r DensityRow) bool { return r.Stations > 0 })
}

func filterRank(rows []DensityRow, n int, less func(a, b DensityRow) bool, keep func(DensityRow) bool) []DensityRow {
	var out []DensityRow
	for _, r := range rows {
		if keep(r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// WriteDensityMarkdown renders the station-density inequity report.
func WriteDensityMarkdown(w io.Writer, rows []DensityRow, topN int) error {
	var b markdownBuilder

	b.line("# Population-Level Monitoring Inequity")
	b.line("")

	var totalPop float64
	var totalStations int
	for _, r := range rows {
		totalPop += r.Population
		totalStations += r.Stations
	}
	b.linef("- States and union territories: %d", len(rows))
	b.linef("- Total population: %s", formatPopulation(totalPop))
	b.linef("- Total stations: %d", totalStations)
	if totalPop > 0 {
		b.linef("- National average: %.2f stations per million people",
			float64(totalStations)/(totalPop/1e6))
	}
	b.line("")

	writeRanking := func(title string, ranked []DensityRow) {
		b.linef("## %s", title)
		b.line("")
		b.line("| Rank | State | Stations per Million | Stations | Population (millions) |")
		b.line("|------|-------|----------------------|----------|-----------------------|")
		for i, r := range ranked {
			b.linef("| %d | %s | %.2f | %d | %.1f |",
				i+1, r.State, r.StationsPerMillion, r.Stations, r.Population/1e6)
		}
		b.line("")
	}

	writeRanking("Best Coverage", BestCoverage(rows, topN))
	writeRanking("Worst Coverage (monitored states)", WorstCoverage(rows, topN))

	b.line("## Most Underserved (people per station)")
	b.line("")
	b.line("| Rank | State | People per Station (millions) | Stations | Population (millions) |")
	b.line("|------|-------|-------------------------------|----------|-----------------------|")
	for i, r := range MostUnderserved(rows, topN) {
		b.linef("| %d | %s | %.2f | %d | %.1f |",
			i+1, r.State, r.PeoplePerStation/1e6, r.Stations, r.Population/1e6)
	}
	b.line("")

	_, err := io.WriteString(w, b.String())
	return eris.Wrap(err, "report: write density markdown")
}

// WriteDensityCSV writes the full density table.
func WriteDensityCSV(w io.Writer, rows []DensityRow) error {
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{
		"state", "population", "stations", "people_per_station", "stations_per_million",
	}); err != nil {
		return eris.Wrap(err, "report: write density header")
	}

	for _, r := range rows {
		pps := ""
		if !math.IsInf(r.PeoplePerStation, 1) {
			pps = fmt.Sprintf("%.0f", r.PeoplePerStation)
		}
		if err := cw.Write([]string{
			r.State,
			formatPopulation(r.Population),
			fmt.Sprintf("%d", r.Stations),
			pps,
			fmt.Sprintf("%.2f", r.StationsPerMillion),
		}); err != nil {
			return eris.Wrapf(err, "report: write density row %s", r.State)
		}
	}

	cw.Flush()
	return eris.Wrap(cw.Error(), "report: flush density csv")
}
