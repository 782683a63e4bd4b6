package snow

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// TimelineProvider abstracts the snow observation source.
type TimelineProvider interface {
	SnowData(ctx context.Context, query TimelineQuery) ([]Observation, error)
}

// ElevationSource abstracts the ground elevation source.
type ElevationSource interface {
	ElevationData(ctx context.Context, points []Coordinate) ([]ElevationPoint, error)
	AverageElevation(ctx context.Context, box BoundingBox, gridSize int) (float64, error)
}

// Store is the contract the in-memory store (and any future persistent
// store) must satisfy.
type Store interface {
	SaveSnapshot(region string, snapshot Snapshot)
	GetLatest(region string) (Snapshot, error)
	GetRange(region string, from, to time.Time) ([]Snapshot, error)
}

// Service orchestrates the two providers and the snapshot store.
type Service struct {
	store     Store
	timeline  TimelineProvider
	elevation ElevationSource
	logger    *zap.SugaredLogger
}

// NewService creates a new Service.
func NewService(store Store, timeline TimelineProvider, elevation ElevationSource, logger *zap.SugaredLogger) *Service {
	return &Service{
		store:     store,
		timeline:  timeline,
		elevation: elevation,
		logger:    logger,
	}
}

// Observations runs a live timeline query.
func (s *Service) Observations(ctx context.Context, query TimelineQuery) ([]Observation, error) {
	return s.timeline.SnowData(ctx, query)
}

// Enriched runs a live timeline query and attaches ground elevation to
// every returned row.
func (s *Service) Enriched(ctx context.Context, query TimelineQuery) ([]EnrichedObservation, error) {
	observations, err := s.timeline.SnowData(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(observations) == 0 {
		return []EnrichedObservation{}, nil
	}

	elevations, err := s.elevation.ElevationData(ctx, Coordinates(observations))
	if err != nil {
		return nil, err
	}

	return MergeElevations(observations, elevations), nil
}

// AverageElevation estimates the mean ground elevation over a bounding
// box.
func (s *Service) AverageElevation(ctx context.Context, box BoundingBox, gridSize int) (float64, error) {
	return s.elevation.AverageElevation(ctx, box, gridSize)
}

// FetchAndStore pulls the most recent filtered observations for a region
// and saves them as a snapshot. A fetch that returns no rows still stores
// an empty snapshot so callers can tell "no snow reports" from "never
// fetched".
func (s *Service) FetchAndStore(ctx context.Context, region Region, limit int) error {
	box := region.Box
	observations, err := s.timeline.SnowData(ctx, TimelineQuery{
		Limit:  limit,
		Box:    &box,
		Filter: true,
	})
	if err != nil {
		return err
	}

	snapshot := Snapshot{
		Region:       region.Name,
		FetchedAt:    time.Now().UTC(),
		Observations: observations,
	}
	s.store.SaveSnapshot(region.Name, snapshot)

	s.logger.Infow("stored region snapshot", "region", region.Name, "observations", len(observations))
	return nil
}

// GetLatest delegates to the underlying store.
func (s *Service) GetLatest(region string) (Snapshot, error) {
	return s.store.GetLatest(region)
}

// GetRange delegates to the underlying store.
func (s *Service) GetRange(region string, from, to time.Time) ([]Snapshot, error) {
	return s.store.GetRange(region, from, to)
}
