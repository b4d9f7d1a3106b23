package coverage

// Band classifies a point's access to monitoring by distance to the
// nearest station.
type Band string

const (
	BandNear Band = "NEAR"
	BandMid  Band = "MID"
	BandFar  Band = "FAR"
)

// Band thresholds in kilometers. Intervals are half-open and left-closed:
// a point at exactly 25.0 km is MID, at exactly 50.0 km FAR.
const (
	NearThresholdKM = 25.0
	FarThresholdKM  = 50.0
)

// Bands lists the bands in increasing-distance order.
var Bands = []Band{BandNear, BandMid, BandFar}

// ClassifyBand maps a nearest-station distance to its coverage band.
func ClassifyBand(distanceKM float64) Band {
	switch {
	case distanceKM < NearThresholdKM:
		return BandNear
	case distanceKM < FarThresholdKM:
		return BandMid
	default:
		return BandFar
	}
}
