// Package stations loads the CPCB monitoring station table.
package stations

import (
	"context"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/breathe-india/aqcover/internal/fetcher"
	"github.com/breathe-india/aqcover/internal/model"
)

// Load reads a station CSV from r. The header row names the columns;
// id, lat and long are required, name, city and state are optional.
// Malformed rows are skipped and counted, not fatal.
func Load(ctx context.Context, r io.Reader) ([]model.Station, model.Diagnostics, error) {
	headerCh := make(chan []string, 1)
	rowCh, errCh := fetcher.StreamCSV(ctx, r, fetcher.CSVOptions{
		HasHeader: true,
		HeaderCh:  headerCh,
		TrimSpace: true,
	})

	var (
		cols  map[string]int
		out   []model.Station
		diags model.Diagnostics
	)

	for row := range rowCh {
		if cols == nil {
			header, ok := <-headerCh
			if !ok {
				return nil, diags, eris.New("stations: missing header row")
			}
			var err error
			cols, err = indexColumns(header)
			if err != nil {
				return nil, diags, err
			}
		}

		st, err := parseRow(row, cols)
		if err != nil {
			diags.Skipped++
			zap.L().Debug("stations: skipping row", zap.Error(err))
			continue
		}
		out = append(out, st)
		diags.Loaded++
	}
	if err := <-errCh; err != nil {
		return nil, diags, eris.Wrap(err, "stations: read csv")
	}

	if diags.Skipped > 0 {
		zap.L().Warn("stations: skipped malformed rows",
			zap.Int("loaded", diags.Loaded), zap.Int("skipped", diags.Skipped))
	}
	return out, diags, nil
}

// LoadFile reads a station CSV from disk.
func LoadFile(ctx context.Context, path string) ([]model.Station, model.Diagnostics, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, model.Diagnostics{}, eris.Wrap(err, "stations: open file")
	}
	defer f.Close() //nolint:errcheck
	return Load(ctx, f)
}

// column aliases seen across CPCB exports
var columnAliases = map[string]string{
	"id":         "id",
	"station_id": "id",
	"lat":        "lat",
	"latitude":   "lat",
	"long":       "lon",
	"lon":        "lon",
	"longitude":  "lon",
	"name":       "name",
	"station":    "name",
	"city":       "city",
	"state":      "state",
}

func indexColumns(header []string) (map[string]int, error) {
	cols := make(map[string]int)
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		if canonical, ok := columnAliases[key]; ok {
			if _, dup := cols[canonical]; !dup {
				cols[canonical] = i
			}
		}
	}
	for _, required := range []string{"id", "lat", "lon"} {
		if _, ok := cols[required]; !ok {
			return nil, eris.Errorf("stations: required column %q not found in header", required)
		}
	}
	return cols, nil
}

func parseRow(row []string, cols map[string]int) (model.Station, error) {
	field := func(name string) string {
		i, ok := cols[name]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	lat, err := strconv.ParseFloat(field("lat"), 64)
	if err != nil {
		return model.Station{}, eris.Wrapf(model.ErrInvalidPoint, "bad latitude %q", field("lat"))
	}
	lon, err := strconv.ParseFloat(field("lon"), 64)
	if err != nil {
		return model.Station{}, eris.Wrapf(model.ErrInvalidPoint, "bad longitude %q", field("lon"))
	}

	st := model.Station{
		ID:    field("id"),
		Name:  field("name"),
		City:  field("city"),
		State: model.NormalizeState(field("state")),
		Lat:   lat,
		Lon:   lon,
	}
	if st.ID == "" {
		return model.Station{}, eris.Wrap(model.ErrInvalidPoint, "empty station id")
	}
	if err := st.Validate(); err != nil {
		return model.Station{}, err
	}
	return st, nil
}

// CityCount is a station tally for one city.
type CityCount struct {
	City     string
	Lat, Lon float64 // centroid of the city's stations
	Count    int
}

// TopCities returns the n cities with the most stations, ordered by count
// descending then city name. Stations without a city are ignored.
func TopCities(sts []model.Station, n int) []CityCount {
	type acc struct {
		lat, lon float64
		count    int
	}
	byCity := make(map[string]*acc)
	for _, st := range sts {
		if st.City == "" {
			continue
		}
		a, ok := byCity[st.City]
		if !ok {
			a = &acc{}
			byCity[st.City] = a
		}
		a.lat += st.Lat
		a.lon += st.Lon
		a.count++
	}

	out := make([]CityCount, 0, len(byCity))
	for city, a := range byCity {
		out = append(out, CityCount{
			City:  city,
			Lat:   a.lat / float64(a.count),
			Lon:   a.lon / float64(a.count),
			Count: a.count,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].City < out[j].City
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// CountByState tallies stations per (normalized) state name. Stations with
// no state are grouped under the empty key.
func CountByState(sts []model.Station) map[string]int {
	counts := make(map[string]int)
	for _, st := range sts {
		counts[st.State]++
	}
	return counts
}
