package coverage

import (
	"encoding/json"
	"math"
)

// Weighted fields are NaN when a rollup has no usable population, and
// encoding/json refuses NaN. On the wire those fields are null; the codecs
// below translate in both directions so stored runs round-trip exactly.

type regionAggregateJSON struct {
	Region                 string            `json:"region"`
	Points                 int               `json:"points"`
	Population             float64           `json:"population"`
	BandPopulation         map[Band]float64  `json:"band_population"`
	BandPct                map[Band]*float64 `json:"band_pct"`
	WeightedMeanDistanceKM *float64          `json:"weighted_mean_distance_km"`
	MeanPoverty            *float64          `json:"mean_poverty"`
	Vulnerability          float64           `json:"vulnerability"`
}

func (a RegionAggregate) MarshalJSON() ([]byte, error) {
	return json.Marshal(regionAggregateJSON{
		Region:                 a.Region,
		Points:                 a.Points,
		Population:             a.Population,
		BandPopulation:         a.BandPopulation,
		BandPct:                floatMapToNullable(a.BandPct),
		WeightedMeanDistanceKM: nullableFloat(a.WeightedMeanDistanceKM),
		MeanPoverty:            nullableFloat(a.MeanPoverty),
		Vulnerability:          a.Vulnerability,
	})
}

func (a *RegionAggregate) UnmarshalJSON(data []byte) error {
	var j regionAggregateJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	*a = RegionAggregate{
		Region:                 j.Region,
		Points:                 j.Points,
		Population:             j.Population,
		BandPopulation:         j.BandPopulation,
		BandPct:                nullableMapToFloat(j.BandPct),
		WeightedMeanDistanceKM: floatOrNaN(j.WeightedMeanDistanceKM),
		MeanPoverty:            floatOrNaN(j.MeanPoverty),
		Vulnerability:          j.Vulnerability,
	}
	return nil
}

type summaryJSON struct {
	Points                    int               `json:"points"`
	TotalPopulation           float64           `json:"total_population"`
	BandPopulation            map[Band]float64  `json:"band_population"`
	BandPct                   map[Band]*float64 `json:"band_pct"`
	WeightedMeanDistanceKM    *float64          `json:"weighted_mean_distance_km"`
	HighPovertyPopulation     float64           `json:"high_poverty_population"`
	HighPovertyUnderservedPct *float64          `json:"high_poverty_underserved_pct"`
}

func (s Summary) MarshalJSON() ([]byte, error) {
	return json.Marshal(summaryJSON{
		Points:                    s.Points,
		TotalPopulation:           s.TotalPopulation,
		BandPopulation:            s.BandPopulation,
		BandPct:                   floatMapToNullable(s.BandPct),
		WeightedMeanDistanceKM:    nullableFloat(s.WeightedMeanDistanceKM),
		HighPovertyPopulation:     s.HighPovertyPopulation,
		HighPovertyUnderservedPct: nullableFloat(s.HighPovertyUnderservedPct),
	})
}

func (s *Summary) UnmarshalJSON(data []byte) error {
	var j summaryJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	*s = Summary{
		Points:                    j.Points,
		TotalPopulation:           j.TotalPopulation,
		BandPopulation:            j.BandPopulation,
		BandPct:                   nullableMapToFloat(j.BandPct),
		WeightedMeanDistanceKM:    floatOrNaN(j.WeightedMeanDistanceKM),
		HighPovertyPopulation:     j.HighPovertyPopulation,
		HighPovertyUnderservedPct: floatOrNaN(j.HighPovertyUnderservedPct),
	}
	return nil
}

func nullableFloat(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	return &v
}

func floatOrNaN(p *float64) float64 {
	if p == nil {
		return math.NaN()
	}
	return *p
}

func floatMapToNullable(m map[Band]float64) map[Band]*float64 {
	if m == nil {
		return nil
	}
	out := make(map[Band]*float64, len(m))
	for k, v := range m {
		out[k] = nullableFloat(v)
	}
	return out
}

func nullableMapToFloat(m map[Band]*float64) map[Band]float64 {
	if m == nil {
		return nil
	}
	out := make(map[Band]float64, len(m))
	for k, v := range m {
		out[k] = floatOrNaN(v)
	}
	return out
}
