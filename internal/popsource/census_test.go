package popsource

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/breathe-india/aqcover/internal/fetcher"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestCensusFromXLSX(t *testing.T) {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Population")
	require.NoError(t, err)

	for _, row := range [][]string{
		{"State", "Population"},
		{"Kerala", "35,000,000"},
		{"Jammu & Kashmir", "13000000"},
		{"Atlantis", "12345"},
		{"Goa", "not-a-number"},
	} {
		r := sheet.AddRow()
		for _, cell := range row {
			r.AddCell().SetString(cell)
		}
	}

	path := filepath.Join(t.TempDir(), "census.xlsx")
	require.NoError(t, f.Save(path))

	points, diags, err := CensusFromXLSX(path, fetcher.XLSXOptions{SheetName: "Population", SkipRows: 1})
	require.NoError(t, err)

	// Atlantis has no centroid; the Goa row has a bad population.
	assert.Equal(t, 2, diags.Loaded)
	assert.Equal(t, 2, diags.Skipped)
	require.Len(t, points, 2)

	assert.Equal(t, "KERALA", points[0].Region)
	assert.InDelta(t, 35000000, points[0].Population, 0.5)
	assert.Equal(t, "JAMMU AND KASHMIR", points[1].Region)
}

func TestCensusFromXLSXEmpty(t *testing.T) {
	f := xlsx.NewFile()
	_, err := f.AddSheet("Empty")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "census.xlsx")
	require.NoError(t, f.Save(path))

	_, _, err = CensusFromXLSX(path, fetcher.XLSXOptions{SheetName: "Empty"})
	require.Error(t, err)
}
