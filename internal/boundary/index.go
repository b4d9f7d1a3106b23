// Package boundary loads administrative boundary shapefiles and labels
// coordinates with the state they fall in.
package boundary

import (
	"math"
	"sort"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
)

// Index maps coordinates to state names via point-in-polygon tests against
// dissolved state multipolygons.
type Index struct {
	states []stateGeom
}

type stateGeom struct {
	name   string
	mp     *geom.MultiPolygon
	bounds *geom.Bounds
}

func newIndex(byState map[string]*geom.MultiPolygon) *Index {
	idx := &Index{states: make([]stateGeom, 0, len(byState))}
	for name, mp := range byState {
		idx.states = append(idx.states, stateGeom{
			name:   name,
			mp:     mp,
			bounds: mp.Bounds(),
		})
	}
	sort.Slice(idx.states, func(i, j int) bool {
		return idx.states[i].name < idx.states[j].name
	})
	return idx
}

// States returns the sorted state names in the index.
func (idx *Index) States() []string {
	names := make([]string, len(idx.states))
	for i, s := range idx.states {
		names[i] = s.name
	}
	return names
}

// Bounds returns the bounding box of all indexed geometry as
// (minLat, minLon, maxLat, maxLon).
func (idx *Index) Bounds() (minLat, minLon, maxLat, maxLon float64) {
	first := true
	for _, s := range idx.states {
		if first {
			minLon, minLat = s.bounds.Min(0), s.bounds.Min(1)
			maxLon, maxLat = s.bounds.Max(0), s.bounds.Max(1)
			first = false
			continue
		}
		minLon = math.Min(minLon, s.bounds.Min(0))
		minLat = math.Min(minLat, s.bounds.Min(1))
		maxLon = math.Max(maxLon, s.bounds.Max(0))
		maxLat = math.Max(maxLat, s.bounds.Max(1))
	}
	return minLat, minLon, maxLat, maxLon
}

// Locate returns the name of the state containing (lat, lon), or "" when
// the point falls outside every polygon.
func (idx *Index) Locate(lat, lon float64) string {
	p := geom.Coord{lon, lat}
	for _, s := range idx.states {
		if !boundsContain(s.bounds, lon, lat) {
			continue
		}
		if multiPolygonContains(s.mp, p) {
			return s.name
		}
	}
	return ""
}

func boundsContain(b *geom.Bounds, x, y float64) bool {
	return x >= b.Min(0) && x <= b.Max(0) && y >= b.Min(1) && y <= b.Max(1)
}

// multiPolygonContains applies the even-odd rule over every ring: a point in
// an odd number of rings is inside. This handles holes without tracking ring
// orientation, which varies across shapefile producers.
func multiPolygonContains(mp *geom.MultiPolygon, p geom.Coord) bool {
	crossings := 0
	for i := 0; i < mp.NumPolygons(); i++ {
		poly := mp.Polygon(i)
		for j := 0; j < poly.NumLinearRings(); j++ {
			if xy.IsPointInRing(geom.XY, p, poly.LinearRing(j).FlatCoords()) {
				crossings++
			}
		}
	}
	return crossings%2 == 1
}
