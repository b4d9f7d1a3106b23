package popsource

import (
	"bufio"
	"context"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/breathe-india/aqcover/internal/boundary"
	"github.com/breathe-india/aqcover/internal/fetcher"
	"github.com/breathe-india/aqcover/internal/model"
)

// ascGrid is one parsed ESRI ASCII grid.
type ascGrid struct {
	ncols, nrows       int
	xll, yll, cellsize float64
	nodata             float64
	values             []float64 // row-major, first row is the northernmost
}

// cellCenter returns the (lat, lon) of the cell at (row, col), row 0 north.
func (g *ascGrid) cellCenter(row, col int) (lat, lon float64) {
	lon = g.xll + (float64(col)+0.5)*g.cellsize
	lat = g.yll + (float64(g.nrows-row)-0.5)*g.cellsize
	return lat, lon
}

func (g *ascGrid) at(row, col int) float64 { return g.values[row*g.ncols+col] }

func (g *ascGrid) isNodata(v float64) bool {
	return math.IsNaN(v) || v == g.nodata
}

// parseASC reads an ESRI ASCII grid (.asc). Header keys are case-insensitive;
// xllcenter/yllcenter are converted to the corner convention.
func parseASC(r io.Reader) (*ascGrid, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)

	g := &ascGrid{nodata: -9999}
	var (
		centered   bool
		headerDone bool
	)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)

		if !headerDone {
			key := strings.ToLower(fields[0])
			if _, err := strconv.ParseFloat(fields[0], 64); err != nil {
				if len(fields) != 2 {
					return nil, eris.Errorf("asc: malformed header line %q", line)
				}
				val, err := strconv.ParseFloat(fields[1], 64)
				if err != nil {
					return nil, eris.Wrapf(err, "asc: header %s", key)
				}
				switch key {
				case "ncols":
					g.ncols = int(val)
				case "nrows":
					g.nrows = int(val)
				case "xllcorner":
					g.xll = val
				case "yllcorner":
					g.yll = val
				case "xllcenter":
					g.xll = val
					centered = true
				case "yllcenter":
					g.yll = val
					centered = true
				case "cellsize":
					g.cellsize = val
				case "nodata_value":
					g.nodata = val
				default:
					return nil, eris.Errorf("asc: unknown header key %q", key)
				}
				continue
			}
			// First numeric line ends the header.
			if g.ncols <= 0 || g.nrows <= 0 || g.cellsize <= 0 {
				return nil, eris.New("asc: incomplete header (need ncols, nrows, cellsize)")
			}
			if centered {
				g.xll -= g.cellsize / 2
				g.yll -= g.cellsize / 2
			}
			g.values = make([]float64, 0, g.ncols*g.nrows)
			headerDone = true
		}

		for _, f := range fields {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, eris.Wrapf(err, "asc: bad value %q", f)
			}
			g.values = append(g.values, v)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, eris.Wrap(err, "asc: read")
	}
	if !headerDone {
		return nil, eris.New("asc: no data rows")
	}
	if len(g.values) != g.ncols*g.nrows {
		return nil, eris.Errorf("asc: got %d values, want %d (%dx%d)",
			len(g.values), g.ncols*g.nrows, g.nrows, g.ncols)
	}
	return g, nil
}

// RasterASC loads a population raster from an ESRI ASCII grid, with an
// optional poverty grid of identical shape. Nodata population cells are
// dropped; nodata poverty becomes missing.
func RasterASC(popPath, povertyPath string, idx *boundary.Index) ([]model.PopulationPoint, model.Diagnostics, error) {
	pop, err := readASCFile(popPath)
	if err != nil {
		return nil, model.Diagnostics{}, err
	}

	var poverty *ascGrid
	if povertyPath != "" {
		poverty, err = readASCFile(povertyPath)
		if err != nil {
			return nil, model.Diagnostics{}, err
		}
		if poverty.ncols != pop.ncols || poverty.nrows != pop.nrows {
			return nil, model.Diagnostics{}, eris.Wrapf(model.ErrConfiguration,
				"popsource: poverty grid %dx%d does not match population grid %dx%d",
				poverty.nrows, poverty.ncols, pop.nrows, pop.ncols)
		}
	}

	var (
		out   []model.PopulationPoint
		diags model.Diagnostics
	)
	for row := 0; row < pop.nrows; row++ {
		for col := 0; col < pop.ncols; col++ {
			v := pop.at(row, col)
			if pop.isNodata(v) {
				diags.Skipped++
				continue
			}

			lat, lon := pop.cellCenter(row, col)
			pov := math.NaN()
			if poverty != nil {
				if pv := poverty.at(row, col); !poverty.isNodata(pv) {
					pov = pv
				}
			}

			p := model.PopulationPoint{
				Lat:        lat,
				Lon:        lon,
				Population: v,
				Poverty:    pov,
				Region:     locate(idx, lat, lon),
			}
			if err := p.Validate(); err != nil {
				diags.Skipped++
				continue
			}
			out = append(out, p)
			diags.Loaded++
		}
	}

	if len(out) == 0 {
		return nil, diags, eris.Wrapf(model.ErrConfiguration, "popsource: raster %s yielded no points", popPath)
	}
	logRasterDiags("asc", popPath, diags)
	return out, diags, nil
}

// RasterXYZ loads population points from a CSV of lon,lat,population and an
// optional fourth poverty column. A header row is detected and skipped.
// Malformed rows are skipped and counted.
func RasterXYZ(ctx context.Context, r io.Reader, idx *boundary.Index) ([]model.PopulationPoint, model.Diagnostics, error) {
	rowCh, errCh := fetcher.StreamCSV(ctx, r, fetcher.CSVOptions{TrimSpace: true})

	var (
		out   []model.PopulationPoint
		diags model.Diagnostics
		first = true
	)
	for row := range rowCh {
		if first {
			first = false
			if _, err := strconv.ParseFloat(row[0], 64); err != nil {
				continue // header row
			}
		}
		p, err := parseXYZRow(row)
		if err != nil {
			diags.Skipped++
			zap.L().Debug("popsource: skipping xyz row", zap.Error(err))
			continue
		}
		p.Region = locate(idx, p.Lat, p.Lon)
		out = append(out, p)
		diags.Loaded++
	}
	if err := <-errCh; err != nil {
		return nil, diags, eris.Wrap(err, "popsource: read xyz csv")
	}
	if len(out) == 0 {
		return nil, diags, eris.Wrap(model.ErrConfiguration, "popsource: xyz csv yielded no points")
	}

	logRasterDiags("xyz", "", diags)
	return out, diags, nil
}

// RasterXYZFile loads an xyz CSV from disk.
func RasterXYZFile(ctx context.Context, path string, idx *boundary.Index) ([]model.PopulationPoint, model.Diagnostics, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, model.Diagnostics{}, eris.Wrap(err, "popsource: open xyz file")
	}
	defer f.Close() //nolint:errcheck
	return RasterXYZ(ctx, f, idx)
}

func parseXYZRow(row []string) (model.PopulationPoint, error) {
	if len(row) < 3 {
		return model.PopulationPoint{}, eris.Wrap(model.ErrInvalidPoint, "xyz row needs lon,lat,population")
	}
	lon, err := strconv.ParseFloat(row[0], 64)
	if err != nil {
		return model.PopulationPoint{}, eris.Wrapf(model.ErrInvalidPoint, "bad longitude %q", row[0])
	}
	lat, err := strconv.ParseFloat(row[1], 64)
	if err != nil {
		return model.PopulationPoint{}, eris.Wrapf(model.ErrInvalidPoint, "bad latitude %q", row[1])
	}
	pop, err := strconv.ParseFloat(row[2], 64)
	if err != nil {
		return model.PopulationPoint{}, eris.Wrapf(model.ErrInvalidPoint, "bad population %q", row[2])
	}

	pov := math.NaN()
	if len(row) > 3 && row[3] != "" {
		pov, err = strconv.ParseFloat(row[3], 64)
		if err != nil {
			return model.PopulationPoint{}, eris.Wrapf(model.ErrInvalidPoint, "bad poverty %q", row[3])
		}
	}

	p := model.PopulationPoint{Lat: lat, Lon: lon, Population: pop, Poverty: pov}
	if err := p.Validate(); err != nil {
		return model.PopulationPoint{}, err
	}
	return p, nil
}

func readASCFile(path string) (*ascGrid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "popsource: open asc file")
	}
	defer f.Close() //nolint:errcheck
	return parseASC(f)
}

func locate(idx *boundary.Index, lat, lon float64) string {
	if idx == nil {
		return ""
	}
	return idx.Locate(lat, lon)
}

func logRasterDiags(kind, path string, diags model.Diagnostics) {
	fields := []zap.Field{
		zap.String("kind", kind),
		zap.Int("loaded", diags.Loaded),
		zap.Int("skipped", diags.Skipped),
	}
	if path != "" {
		fields = append(fields, zap.String("path", path))
	}
	if diags.Skipped > 0 {
		zap.L().Warn("popsource: raster loaded with skipped cells", fields...)
		return
	}
	zap.L().Info("popsource: raster loaded", fields...)
}
