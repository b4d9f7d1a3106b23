// Package model defines the typed records shared across the analysis
// pipeline: monitoring stations, population-bearing points, and the
// validation rules applied at the load boundary.
package model

import (
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Station is one CPCB air-quality monitoring station. The table is loaded
// once per run and never mutated.
type Station struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	City  string  `json:"city"`
	State string  `json:"state"`
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
}

var upperCaser = cases.Upper(language.English)

// NormalizeState uppercases and trims a state/UT name so station rows,
// census rows, and shapefile attributes join on the same key. Ampersand
// spellings ("JAMMU & KASHMIR") collapse to the AND form.
func NormalizeState(s string) string {
	s = upperCaser.String(strings.TrimSpace(s))
	return strings.ReplaceAll(s, " & ", " AND ")
}

// Validate checks the station's coordinates. Stations with out-of-range
// coordinates are skipped at load time, not carried into the analysis.
func (s Station) Validate() error {
	if err := ValidateCoords(s.Lat, s.Lon); err != nil {
		return eris.Wrapf(err, "station %s", s.ID)
	}
	return nil
}
