// Package popsource builds the population point set an analysis run consumes.
// Three source kinds feed the same []model.PopulationPoint: state-level census
// aggregates, a synthetic grid, and gridded raster exports.
package popsource

import (
	_ "embed"
	"math"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/breathe-india/aqcover/internal/fetcher"
	"github.com/breathe-india/aqcover/internal/model"
)

//go:embed census_2011.yaml
var censusYAML []byte

type censusTable struct {
	States []censusEntry `yaml:"states"`
}

type censusEntry struct {
	State      string  `yaml:"state"`
	Population float64 `yaml:"population"`
	Lat        float64 `yaml:"lat"`
	Lon        float64 `yaml:"lon"`
}

// CensusAggregate returns one population point per state at its approximate
// centroid, carrying the bundled 2011 census population. Poverty is not part
// of the census table and is reported as missing.
func CensusAggregate() ([]model.PopulationPoint, model.Diagnostics, error) {
	var table censusTable
	if err := yaml.Unmarshal(censusYAML, &table); err != nil {
		return nil, model.Diagnostics{}, eris.Wrap(err, "popsource: parse bundled census table")
	}
	return censusPoints(table.States)
}

// CensusFromXLSX reads an updated state population table from a workbook with
// (state, population) columns and places each state at the bundled centroid.
// States absent from the bundled table are skipped and counted.
func CensusFromXLSX(path string, opts fetcher.XLSXOptions) ([]model.PopulationPoint, model.Diagnostics, error) {
	rows, err := fetcher.ReadXLSX(path, opts)
	if err != nil {
		return nil, model.Diagnostics{}, err
	}

	var bundled censusTable
	if err := yaml.Unmarshal(censusYAML, &bundled); err != nil {
		return nil, model.Diagnostics{}, eris.Wrap(err, "popsource: parse bundled census table")
	}
	centroids := make(map[string]censusEntry, len(bundled.States))
	for _, e := range bundled.States {
		centroids[e.State] = e
	}

	var (
		entries []censusEntry
		diags   model.Diagnostics
	)
	for _, row := range rows {
		if len(row) < 2 {
			diags.Skipped++
			continue
		}
		state := model.NormalizeState(row[0])
		pop, err := strconv.ParseFloat(strings.ReplaceAll(row[1], ",", ""), 64)
		if err != nil {
			diags.Skipped++
			continue
		}
		ref, ok := centroids[state]
		if !ok {
			zap.L().Warn("popsource: no centroid for state, skipping", zap.String("state", state))
			diags.Skipped++
			continue
		}
		entries = append(entries, censusEntry{State: state, Population: pop, Lat: ref.Lat, Lon: ref.Lon})
	}

	points, loadDiags, err := censusPoints(entries)
	loadDiags.Skipped += diags.Skipped
	return points, loadDiags, err
}

func censusPoints(entries []censusEntry) ([]model.PopulationPoint, model.Diagnostics, error) {
	var (
		out   []model.PopulationPoint
		diags model.Diagnostics
	)
	for _, e := range entries {
		p := model.PopulationPoint{
			Lat:        e.Lat,
			Lon:        e.Lon,
			Population: e.Population,
			Poverty:    math.NaN(),
			Region:     model.NormalizeState(e.State),
		}
		if err := p.Validate(); err != nil {
			diags.Skipped++
			zap.L().Debug("popsource: skipping census entry", zap.String("state", e.State), zap.Error(err))
			continue
		}
		out = append(out, p)
		diags.Loaded++
	}
	if len(out) == 0 {
		return nil, diags, eris.Wrap(model.ErrConfiguration, "popsource: census table yielded no points")
	}
	return out, diags, nil
}
