package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/nivalis/snow-data-service/internal/snow"
)

const (
	// DefaultElevationURL is the Google Maps elevation endpoint.
	DefaultElevationURL = "https://maps.googleapis.com/maps/api/elevation/json"

	// maxLocationsPerRequest is the provider's per-request location cap.
	maxLocationsPerRequest = 256

	// maxGridSize keeps a full lattice within one elevation request.
	maxGridSize = 16
)

// ElevationProvider retrieves ground elevation from the Google Maps
// elevation API. The API key is supplied once at construction rather than
// read from ambient configuration.
type ElevationProvider struct {
	apiKey  string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
	logger  *zap.SugaredLogger
}

// NewElevationProvider creates an elevation client. An empty baseURL
// selects the production endpoint.
func NewElevationProvider(client *http.Client, baseURL, apiKey string, logger *zap.SugaredLogger) *ElevationProvider {
	if baseURL == "" {
		baseURL = DefaultElevationURL
	}
	return &ElevationProvider{
		apiKey:  apiKey,
		baseURL: baseURL,
		httpCfg: HTTPClientConfig{Client: client},
		circuit: newCircuitBreaker("elevation"),
		logger:  logger,
	}
}

// ElevationData looks up ground elevation for each point, in order.
// Points are split into request-sized batches; each request carries only
// its own batch's locations and its results are zipped back against that
// batch, so output order matches input order across batch boundaries.
func (p *ElevationProvider) ElevationData(ctx context.Context, points []snow.Coordinate) ([]snow.ElevationPoint, error) {
	if p.apiKey == "" {
		return nil, fmt.Errorf("elevation api key is not configured")
	}

	out := make([]snow.ElevationPoint, 0, len(points))
	for _, batch := range batches(points, maxLocationsPerRequest) {
		records, err := p.fetchBatch(ctx, formatLocations(batch))
		if err != nil {
			return nil, err
		}
		if len(records) != len(batch) {
			return nil, fmt.Errorf("elevation returned %d results for %d locations", len(records), len(batch))
		}
		for i, raw := range records {
			elevation, err := parseElevationRecord(raw)
			if err != nil {
				return nil, err
			}
			out = append(out, snow.ElevationPoint{
				Lat:       batch[i].Lat,
				Lng:       batch[i].Lng,
				Elevation: elevation,
			})
		}
	}
	return out, nil
}

// AverageElevation approximates the mean ground elevation over a bounding
// box by sampling a gridSize x gridSize lattice, inclusive of the box
// edges. gridSize must be at least 2 and is capped at maxGridSize so the
// whole lattice fits in a single request.
func (p *ElevationProvider) AverageElevation(ctx context.Context, box snow.BoundingBox, gridSize int) (float64, error) {
	if p.apiKey == "" {
		return 0, fmt.Errorf("elevation api key is not configured")
	}
	if gridSize < 2 {
		return 0, fmt.Errorf("grid size must be at least 2, got %d", gridSize)
	}
	if gridSize > maxGridSize {
		gridSize = maxGridSize
	}

	lats := floats.Span(make([]float64, gridSize), box.MinLat, box.MaxLat)
	lngs := floats.Span(make([]float64, gridSize), box.MinLng, box.MaxLng)

	parts := make([]string, 0, gridSize*gridSize)
	for _, lat := range lats {
		for _, lng := range lngs {
			parts = append(parts, fmt.Sprintf("%.4f,%.4f", lat, lng))
		}
	}
	locations := strings.Join(parts, "|")

	records, err := p.fetchBatch(ctx, locations)
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, fmt.Errorf("elevation returned no results for %d locations", len(parts))
	}

	elevations := make([]float64, len(records))
	for i, raw := range records {
		elevation, err := parseElevationRecord(raw)
		if err != nil {
			return 0, err
		}
		elevations[i] = elevation
	}

	mean := stat.Mean(elevations, nil)
	p.logger.Debugw("estimated average elevation",
		"locations", locations, "results", len(records), "mean", mean)

	return mean, nil
}

// fetchBatch issues one elevation request for a pre-rendered locations
// string.
func (p *ElevationProvider) fetchBatch(ctx context.Context, locations string) ([]json.RawMessage, error) {
	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("locations", locations)
		values.Set("key", p.apiKey)

		u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
		req, err := http.NewRequest(http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		return req, nil
	}

	return fetchResults(ctx, p.httpCfg, p.circuit, buildRequest)
}

// formatLocations renders points as the pipe-separated "lat,lng" list the
// elevation API expects.
func formatLocations(points []snow.Coordinate) string {
	parts := make([]string, len(points))
	for i, pt := range points {
		parts[i] = strconv.FormatFloat(pt.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(pt.Lng, 'f', -1, 64)
	}
	return strings.Join(parts, "|")
}

// parseElevationRecord projects the elevation field out of one result
// record.
func parseElevationRecord(raw json.RawMessage) (float64, error) {
	var rec struct {
		Elevation *float64 `json:"elevation"`
	}
	if err := json.Unmarshal(raw, &rec); err != nil {
		return 0, fmt.Errorf("malformed elevation record: %w: %s", err, raw)
	}
	if rec.Elevation == nil {
		return 0, fmt.Errorf("elevation record missing elevation: %s", raw)
	}
	return *rec.Elevation, nil
}
