package coverage

import (
	"context"
	"runtime"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"

	"github.com/breathe-india/aqcover/internal/model"
)

// Result is the per-point outcome of the nearest-station query.
type Result struct {
	Point         model.PopulationPoint `json:"point"`
	DistanceKM    float64               `json:"distance_km"`
	StationIndex  int                   `json:"station_index"`
	Band          Band                  `json:"band"`
	Vulnerability float64               `json:"vulnerability"`
}

// Nearest computes, for every population point, the great-circle distance
// to its nearest station, the station's index, the coverage band, and the
// vulnerability score. Exact distance ties resolve to the lowest station
// index, so results are deterministic for a fixed station order.
//
// Station counts stay in the hundreds and point counts in the tens of
// thousands, so the brute-force scan is well within budget for a one-shot
// batch run.
func Nearest(points []model.PopulationPoint, stations []model.Station) ([]Result, error) {
	if len(stations) == 0 {
		return nil, eris.Wrap(model.ErrConfiguration, "coverage: no stations provided")
	}

	results := make([]Result, len(points))
	for i, p := range points {
		results[i] = nearestOne(p, stations)
	}
	return results, nil
}

// NearestParallel is Nearest fanned out across worker goroutines. Each
// worker owns a disjoint slice range, so output is identical to the
// sequential scan. workers <= 0 selects GOMAXPROCS.
func NearestParallel(ctx context.Context, points []model.PopulationPoint, stations []model.Station, workers int) ([]Result, error) {
	if len(stations) == 0 {
		return nil, eris.Wrap(model.ErrConfiguration, "coverage: no stations provided")
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers == 1 || len(points) < 2*workers {
		return Nearest(points, stations)
	}

	results := make([]Result, len(points))
	g, _ := errgroup.WithContext(ctx)

	chunk := (len(points) + workers - 1) / workers
	for start := 0; start < len(points); start += chunk {
		end := min(start+chunk, len(points))
		g.Go(func() error {
			for i := start; i < end; i++ {
				results[i] = nearestOne(points[i], stations)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func nearestOne(p model.PopulationPoint, stations []model.Station) Result {
	best := 0
	bestKM := HaversineKM(p.Lat, p.Lon, stations[0].Lat, stations[0].Lon)
	for j := 1; j < len(stations); j++ {
		// Strict < keeps the lowest index on exact ties.
		if d := HaversineKM(p.Lat, p.Lon, stations[j].Lat, stations[j].Lon); d < bestKM {
			best, bestKM = j, d
		}
	}
	return Result{
		Point:         p,
		DistanceKM:    bestKM,
		StationIndex:  best,
		Band:          ClassifyBand(bestKM),
		Vulnerability: VulnerabilityScore(p.Population, bestKM, p.Poverty),
	}
}
