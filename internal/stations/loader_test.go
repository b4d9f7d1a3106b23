package stations

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = `id,lat,long,name,city,state
DL001,28.6508,77.3152,Anand Vihar,Delhi,Delhi
DL002,28.5672,77.2100,Siri Fort,Delhi,delhi
MH001,19.1075,72.8263,Andheri,Mumbai,Maharashtra
BAD01,not-a-number,77.0,Broken,Delhi,Delhi
BAD02,95.0,77.0,OutOfRange,Delhi,Delhi
TN001,13.0524,80.2508,Alandur,Chennai,Tamil Nadu
`

func TestLoadParsesAndSkips(t *testing.T) {
	sts, diags, err := Load(context.Background(), strings.NewReader(sampleCSV))
	require.NoError(t, err)

	assert.Equal(t, 4, diags.Loaded)
	assert.Equal(t, 2, diags.Skipped)
	require.Len(t, sts, 4)

	assert.Equal(t, "DL001", sts[0].ID)
	assert.Equal(t, "Anand Vihar", sts[0].Name)
	assert.InDelta(t, 28.6508, sts[0].Lat, 1e-9)
	// State names are normalized to uppercase
	assert.Equal(t, "DELHI", sts[0].State)
	assert.Equal(t, "DELHI", sts[1].State)
}

func TestLoadColumnAliases(t *testing.T) {
	csv := "station_id,latitude,longitude\nS1,10.5,76.2\n"
	sts, diags, err := Load(context.Background(), strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, sts, 1)
	assert.Equal(t, "S1", sts[0].ID)
	assert.InDelta(t, 76.2, sts[0].Lon, 1e-9)
	assert.Equal(t, 1, diags.Loaded)
}

func TestLoadMissingRequiredColumn(t *testing.T) {
	csv := "id,lat,name\nS1,10.5,NoLongitude\n"
	_, _, err := Load(context.Background(), strings.NewReader(csv))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"lon"`)
}

func TestLoadEmptyID(t *testing.T) {
	csv := "id,lat,long\n,10.5,76.2\nS2,11.0,77.0\n"
	sts, diags, err := Load(context.Background(), strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, sts, 1)
	assert.Equal(t, "S2", sts[0].ID)
	assert.Equal(t, 1, diags.Skipped)
}

func TestTopCities(t *testing.T) {
	sts, _, err := Load(context.Background(), strings.NewReader(sampleCSV))
	require.NoError(t, err)

	top := TopCities(sts, 2)
	require.Len(t, top, 2)
	assert.Equal(t, "Delhi", top[0].City)
	assert.Equal(t, 2, top[0].Count)
	// Centroid of the two Delhi stations
	assert.InDelta(t, (28.6508+28.5672)/2, top[0].Lat, 1e-9)
	// Chennai and Mumbai tie at 1; alphabetical order breaks the tie
	assert.Equal(t, "Chennai", top[1].City)
}

func TestCountByState(t *testing.T) {
	sts, _, err := Load(context.Background(), strings.NewReader(sampleCSV))
	require.NoError(t, err)

	counts := CountByState(sts)
	assert.Equal(t, 2, counts["DELHI"])
	assert.Equal(t, 1, counts["MAHARASHTRA"])
	assert.Equal(t, 1, counts["TAMIL NADU"])
}
