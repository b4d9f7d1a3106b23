package report

import (
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/breathe-india/aqcover/internal/model"
)

// WriteStationsGeoJSON exports the station table as a GeoJSON
// FeatureCollection of points for GIS tools.
func WriteStationsGeoJSON(w io.Writer, sts []model.Station) error {
	fc := &geojson.FeatureCollection{
		Features: make([]*geojson.Feature, 0, len(sts)),
	}
	for _, st := range sts {
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:       st.ID,
			Geometry: geom.NewPointFlat(geom.XY, []float64{st.Lon, st.Lat}).SetSRID(4326),
			Properties: map[string]any{
				"name":  st.Name,
				"city":  st.City,
				"state": st.State,
			},
		})
	}

	enc := json.NewEncoder(w)
	if err := enc.Encode(fc); err != nil {
		return eris.Wrap(err, "report: encode stations geojson")
	}
	return nil
}
