package model

import (
	"math"

	"github.com/rotisserie/eris"
)

// SourceKind identifies which population source produced a set of points.
type SourceKind string

const (
	SourceCensusAggregate SourceKind = "census_aggregate"
	SourceSyntheticGrid   SourceKind = "synthetic_grid"
	SourceGriddedRaster   SourceKind = "gridded_raster"
)

// PopulationPoint is one population-bearing location: a state centroid for
// the census source, or a grid cell for the synthetic and raster sources.
// Poverty is NaN when the cell has no poverty value; such points are
// excluded from poverty-weighted averages but still count toward
// population aggregates. Region is empty when the point falls outside
// every known administrative polygon.
type PopulationPoint struct {
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
	Population float64 `json:"population"`
	Poverty    float64 `json:"poverty"`
	Region     string  `json:"region,omitempty"`
}

// HasPoverty reports whether the point carries a defined poverty index.
func (p PopulationPoint) HasPoverty() bool {
	return !math.IsNaN(p.Poverty)
}

// Validate rejects points that cannot participate in the analysis:
// out-of-range coordinates, non-finite or negative population, or a
// poverty index outside [0,1] (NaN poverty is allowed and means missing).
func (p PopulationPoint) Validate() error {
	if err := ValidateCoords(p.Lat, p.Lon); err != nil {
		return err
	}
	if math.IsNaN(p.Population) || math.IsInf(p.Population, 0) || p.Population < 0 {
		return eris.Wrapf(ErrInvalidPoint, "population %v", p.Population)
	}
	if !math.IsNaN(p.Poverty) && (p.Poverty < 0 || p.Poverty > 1) {
		return eris.Wrapf(ErrInvalidPoint, "poverty index %v outside [0,1]", p.Poverty)
	}
	return nil
}

// ValidateCoords checks latitude/longitude ranges.
func ValidateCoords(lat, lon float64) error {
	if math.IsNaN(lat) || lat < -90 || lat > 90 {
		return eris.Wrapf(ErrInvalidPoint, "latitude %v", lat)
	}
	if math.IsNaN(lon) || lon < -180 || lon > 180 {
		return eris.Wrapf(ErrInvalidPoint, "longitude %v", lon)
	}
	return nil
}

// Diagnostics counts per-source load outcomes. Skipped rows are recoverable
// per-point failures; the run carries on without them.
type Diagnostics struct {
	Loaded  int `json:"loaded"`
	Skipped int `json:"skipped"`
}
