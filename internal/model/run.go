package model

import "time"

// AnalysisRun records one completed (or failed) coverage analysis.
type AnalysisRun struct {
	ID            string     `json:"id"`
	Source        SourceKind `json:"source"`
	Stations      int        `json:"stations"`
	PointsLoaded  int        `json:"points_loaded"`
	PointsSkipped int        `json:"points_skipped"`
	CreatedAt     time.Time  `json:"created_at"`
}
