package boundary

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/breathe-india/aqcover/internal/model"
)

// state name attribute across common India admin shapefile releases
var stateFieldNames = []string{"ST_NM", "STATE", "STATE_NAME", "NAME_1", "STNAME"}

// Load reads a boundary shapefile (.shp, or a .zip containing one) and
// dissolves district polygons into per-state multipolygons.
func Load(path string) (*Index, error) {
	shpPath := path
	if strings.EqualFold(filepath.Ext(path), ".zip") {
		extractDir, err := os.MkdirTemp("", "boundary-*")
		if err != nil {
			return nil, eris.Wrap(err, "boundary: create extract dir")
		}
		defer os.RemoveAll(extractDir) //nolint:errcheck

		if err := extractZIP(path, extractDir); err != nil {
			return nil, eris.Wrap(err, "boundary: extract zip")
		}
		shpPath, err = findFileByExt(extractDir, ".shp")
		if err != nil {
			return nil, eris.Wrap(err, "boundary: find .shp in zip")
		}
	}

	reader, err := shp.Open(shpPath)
	if err != nil {
		return nil, eris.Wrap(err, "boundary: open shapefile")
	}
	defer func() { _ = reader.Close() }()

	stateIdx := -1
	for _, name := range stateFieldNames {
		if stateIdx = fieldIndex(reader, name); stateIdx >= 0 {
			break
		}
	}
	if stateIdx < 0 {
		return nil, eris.Errorf("boundary: no state name field found (tried %s)",
			strings.Join(stateFieldNames, ", "))
	}

	byState := make(map[string]*geom.MultiPolygon)
	var records, skipped int
	for reader.Next() {
		records++
		_, shape := reader.Shape()
		poly, ok := shape.(*shp.Polygon)
		if !ok || poly == nil || poly.NumParts == 0 {
			skipped++
			continue
		}

		state := model.NormalizeState(reader.Attribute(stateIdx))
		if state == "" {
			skipped++
			continue
		}

		mp, ok := byState[state]
		if !ok {
			mp = geom.NewMultiPolygon(geom.XY).SetSRID(4326)
			byState[state] = mp
		}
		appendPolygonParts(mp, poly)
	}

	if len(byState) == 0 {
		return nil, eris.Wrap(model.ErrConfiguration, "boundary: shapefile contains no usable polygons")
	}

	zap.L().Info("boundary: loaded shapefile",
		zap.String("path", shpPath),
		zap.Int("records", records),
		zap.Int("skipped", skipped),
		zap.Int("states", len(byState)))

	return newIndex(byState), nil
}

// appendPolygonParts adds each ring of a shapefile polygon to the state's
// multipolygon as a single-ring polygon. Containment uses the even-odd rule,
// so holes need no special grouping here.
func appendPolygonParts(mp *geom.MultiPolygon, p *shp.Polygon) {
	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		end := int32(len(p.Points))
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		}
		if end-start < 3 {
			continue
		}

		flat := make([]float64, 0, (end-start)*2)
		for j := start; j < end; j++ {
			flat = append(flat, p.Points[j].X, p.Points[j].Y)
		}

		ring := geom.NewLinearRingFlat(geom.XY, flat)
		poly := geom.NewPolygon(geom.XY)
		if err := poly.Push(ring); err != nil {
			zap.L().Debug("boundary: skipping malformed ring", zap.Int32("part", i), zap.Error(err))
			continue
		}
		if err := mp.Push(poly); err != nil {
			zap.L().Debug("boundary: skipping malformed polygon part", zap.Int32("part", i), zap.Error(err))
		}
	}
}

func extractZIP(zipPath, destDir string) error {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return eris.Wrap(err, "open zip")
	}
	defer r.Close() //nolint:errcheck

	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		destPath := filepath.Join(destDir, filepath.Base(f.Name))

		rc, err := f.Open()
		if err != nil {
			return eris.Wrapf(err, "open zip entry %s", f.Name)
		}

		outFile, err := os.Create(destPath)
		if err != nil {
			_ = rc.Close()
			return eris.Wrapf(err, "create %s", destPath)
		}

		if _, err := io.Copy(outFile, rc); err != nil {
			_ = outFile.Close()
			_ = rc.Close()
			return eris.Wrapf(err, "extract %s", f.Name)
		}
		_ = outFile.Close()
		_ = rc.Close()
	}

	return nil
}

func findFileByExt(dir, ext string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", eris.Wrap(err, "read directory")
	}
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(strings.ToLower(e.Name()), ext) {
			return filepath.Join(dir, e.Name()), nil
		}
	}
	return "", eris.Errorf("no %s file found in %s", ext, dir)
}

func fieldIndex(reader *shp.Reader, name string) int {
	for i, f := range reader.Fields() {
		if strings.EqualFold(strings.TrimRight(f.String(), "\x00"), name) {
			return i
		}
	}
	return -1
}
