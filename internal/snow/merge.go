package snow

// Coordinates extracts the (lat, lng) pair of each observation, in table
// order.
func Coordinates(observations []Observation) []Coordinate {
	points := make([]Coordinate, len(observations))
	for i, obs := range observations {
		points[i] = Coordinate{Lat: obs.Lat, Lng: obs.Lng}
	}
	return points
}

// MergeElevations joins observations with elevation lookups. The
// elevation slice is expected to be positionally aligned with the
// observations it was fetched for, so the join carries the row index
// instead of re-matching floating-point coordinates. Rows without a
// matching elevation entry are dropped.
func MergeElevations(observations []Observation, elevations []ElevationPoint) []EnrichedObservation {
	n := len(observations)
	if len(elevations) < n {
		n = len(elevations)
	}

	merged := make([]EnrichedObservation, 0, n)
	for i := 0; i < n; i++ {
		if elevations[i].Lat != observations[i].Lat || elevations[i].Lng != observations[i].Lng {
			continue
		}
		merged = append(merged, EnrichedObservation{
			Observation: observations[i],
			Elevation:   elevations[i].Elevation,
		})
	}
	return merged
}
