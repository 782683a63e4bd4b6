package snow

import (
	"fmt"
	"time"
)

// BoundingBox is an axis-aligned rectangle in latitude/longitude space,
// used both as a query filter and as a sampling domain.
type BoundingBox struct {
	MinLat float64 `json:"min_lat"`
	MaxLat float64 `json:"max_lat"`
	MinLng float64 `json:"min_lng"`
	MaxLng float64 `json:"max_lng"`
}

// Validate checks the min/max ordering invariant on both axes.
func (b BoundingBox) Validate() error {
	if b.MinLat > b.MaxLat {
		return fmt.Errorf("bounding box: min_lat %v greater than max_lat %v", b.MinLat, b.MaxLat)
	}
	if b.MinLng > b.MaxLng {
		return fmt.Errorf("bounding box: min_lng %v greater than max_lng %v", b.MinLng, b.MaxLng)
	}
	return nil
}

// Coordinate is a single (lat, lng) point.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"long"`
}

// Observation is one normalized snow-conditions report.
// AuthorName and SnowDepth are nil when the source omitted them.
type Observation struct {
	ID         string    `json:"id"`
	AuthorName *string   `json:"author_name"`
	Timestamp  int64     `json:"timestamp"` // ms epoch
	Date       time.Time `json:"date"`
	Lat        float64   `json:"lat"`
	Lng        float64   `json:"long"`
	Type       string    `json:"type"`
	SnowDepth  *float64  `json:"snow_depth"`
}

// Complete reports whether every nullable field carries a value.
func (o Observation) Complete() bool {
	return o.AuthorName != nil && o.SnowDepth != nil
}

// ElevationPoint is one elevation lookup result attached back to its
// input coordinate.
type ElevationPoint struct {
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"long"`
	Elevation float64 `json:"elevation"`
}

// EnrichedObservation is an observation joined with its ground elevation.
type EnrichedObservation struct {
	Observation
	Elevation float64 `json:"elevation"`
}

// TimelineQuery holds the high-level parameters of one timeline request.
// Nil Start/End/Box mean unrestricted; a zero Limit falls back to the
// provider default.
type TimelineQuery struct {
	Limit  int
	Start  *time.Time
	End    *time.Time
	Box    *BoundingBox
	Filter bool
}

// Region is a named bounding box tracked by the scheduler.
type Region struct {
	Name string      `json:"name"`
	Box  BoundingBox `json:"box"`
}

// Snapshot is one stored fetch result for a region.
type Snapshot struct {
	Region       string        `json:"region"`
	FetchedAt    time.Time     `json:"fetched_at"` // always UTC
	Observations []Observation `json:"observations"`
}
