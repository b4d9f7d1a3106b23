package popsource

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/breathe-india/aqcover/internal/boundary"
	"github.com/breathe-india/aqcover/internal/model"
)

// oneStateShapefile writes a single-state square boundary covering
// [75,80]x[15,20] and returns the loaded index.
func oneStateIndex(t *testing.T) *boundary.Index {
	t.Helper()

	path := filepath.Join(t.TempDir(), "state.shp")
	w, err := shp.Create(path, shp.POLYGON)
	require.NoError(t, err)
	require.NoError(t, w.SetFields([]shp.Field{shp.StringField("ST_NM", 30)}))

	w.Write(&shp.Polygon{
		NumParts:  1,
		NumPoints: 5,
		Parts:     []int32{0},
		Points: []shp.Point{
			{X: 75, Y: 15},
			{X: 75, Y: 20},
			{X: 80, Y: 20},
			{X: 80, Y: 15},
			{X: 75, Y: 15},
		},
	})
	require.NoError(t, w.WriteAttribute(0, 0, "Testland"))
	w.Close()

	// go-shp's writer names the attribute file <base>dbf; the reader
	// opens <base>.dbf.
	base := strings.TrimSuffix(path, ".shp")
	require.NoError(t, os.Rename(base+"dbf", base+".dbf"))

	idx, err := boundary.Load(path)
	require.NoError(t, err)
	return idx
}

func TestSyntheticGrid(t *testing.T) {
	idx := oneStateIndex(t)
	sts := []model.Station{
		{ID: "S1", City: "Midtown", Lat: 17.5, Lon: 77.5},
		{ID: "S2", City: "Midtown", Lat: 17.5, Lon: 77.5},
	}

	params := DefaultGridParams()
	params.CellDeg = 0.5

	points, diags, err := SyntheticGrid(params, sts, idx)
	require.NoError(t, err)
	require.NotEmpty(t, points)
	assert.Equal(t, len(points), diags.Loaded)

	var atCity, farAway *model.PopulationPoint
	for i := range points {
		p := &points[i]
		assert.Equal(t, "TESTLAND", p.Region)
		assert.GreaterOrEqual(t, p.Population, params.BasePop)
		assert.False(t, p.HasPoverty())

		if p.Lat == 17.5 && p.Lon == 77.5 {
			atCity = p
		}
		if p.Lat == 15.0 && p.Lon == 75.0 {
			farAway = p
		}
	}
	require.NotNil(t, atCity)
	require.NotNil(t, farAway)

	// Density decays with distance from the station city.
	assert.InDelta(t, params.BasePop+params.PeakPop, atCity.Population, 1)
	assert.Less(t, farAway.Population, atCity.Population)
	assert.Less(t, farAway.Population, params.BasePop*2)
}

func TestSyntheticGridRejectsBadParams(t *testing.T) {
	idx := oneStateIndex(t)

	_, _, err := SyntheticGrid(GridParams{CellDeg: 0}, nil, idx)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrConfiguration)

	_, _, err = SyntheticGrid(DefaultGridParams(), nil, nil)
	require.Error(t, err)
}

func TestRasterASCWithPoverty(t *testing.T) {
	dir := t.TempDir()
	popPath := filepath.Join(dir, "pop.asc")
	povPath := filepath.Join(dir, "pov.asc")

	writeFile(t, popPath, `ncols 2
nrows 2
xllcorner 76.0
yllcorner 17.0
cellsize 1.0
NODATA_value -9999
1000 -9999
3000 4000
`)
	writeFile(t, povPath, `ncols 2
nrows 2
xllcorner 76.0
yllcorner 17.0
cellsize 1.0
NODATA_value -9999
0.3 0.1
-9999 0.6
`)

	points, diags, err := RasterASC(popPath, povPath, oneStateIndex(t))
	require.NoError(t, err)

	assert.Equal(t, 3, diags.Loaded)
	assert.Equal(t, 1, diags.Skipped, "nodata population cell is dropped")
	require.Len(t, points, 3)

	assert.InDelta(t, 1000, points[0].Population, 1e-9)
	assert.InDelta(t, 0.3, points[0].Poverty, 1e-9)
	assert.False(t, points[1].HasPoverty(), "nodata poverty is missing, not zero")
	assert.Equal(t, "TESTLAND", points[0].Region)
}

func TestRasterASCAllNodata(t *testing.T) {
	popPath := filepath.Join(t.TempDir(), "pop.asc")
	writeFile(t, popPath, `ncols 2
nrows 1
xllcorner 76.0
yllcorner 17.0
cellsize 1.0
NODATA_value -9999
-9999 -9999
`)

	_, diags, err := RasterASC(popPath, "", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrConfiguration)
	assert.Zero(t, diags.Loaded)
	assert.Equal(t, 2, diags.Skipped)
}

func TestRasterASCShapeMismatch(t *testing.T) {
	dir := t.TempDir()
	popPath := filepath.Join(dir, "pop.asc")
	povPath := filepath.Join(dir, "pov.asc")

	writeFile(t, popPath, "ncols 1\nnrows 1\nxllcorner 0\nyllcorner 0\ncellsize 1\n10\n")
	writeFile(t, povPath, "ncols 2\nnrows 1\nxllcorner 0\nyllcorner 0\ncellsize 1\n0.1 0.2\n")

	_, _, err := RasterASC(popPath, povPath, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrConfiguration)
}
