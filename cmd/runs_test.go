//go:build !integration

package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/breathe-india/aqcover/internal/model"
)

func TestFormatRunsList(t *testing.T) {
	now := time.Date(2026, 8, 20, 10, 30, 0, 0, time.UTC)
	runs := []model.AnalysisRun{
		{
			ID:            "abc12345-6789-0000-0000-000000000000",
			Source:        model.SourceCensusAggregate,
			Stations:      540,
			PointsLoaded:  36,
			PointsSkipped: 1,
			CreatedAt:     now,
		},
		{
			ID:           "def12345-6789-0000-0000-000000000000",
			Source:       model.SourceSyntheticGrid,
			Stations:     540,
			PointsLoaded: 24310,
			CreatedAt:    now.Add(-time.Hour),
		},
	}

	var buf bytes.Buffer
	formatRunsList(&buf, runs)

	output := buf.String()
	assert.Contains(t, output, "ID")
	assert.Contains(t, output, "SOURCE")
	assert.Contains(t, output, "census_aggregate")
	assert.Contains(t, output, "synthetic_grid")
	assert.Contains(t, output, "24310")
	assert.Contains(t, output, "2026-08-20 10:30")
	assert.Contains(t, output, "abc12345")
	assert.NotContains(t, output, "abc12345-6789")
}

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "abc12345", truncateID("abc12345-6789-0000-0000-000000000000"))
	assert.Equal(t, "short", truncateID("short"))
}
