package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/nivalis/snow-data-service/internal/snow"
)

const (
	// DefaultTimelineURL is the MountainHub timeline endpoint.
	DefaultTimelineURL = "https://api.mountainhub.com/timeline"

	defaultLimit = 100
)

// MountainHubProvider retrieves snow-conditions observations from the
// MountainHub timeline API.
type MountainHubProvider struct {
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
	logger  *zap.SugaredLogger
}

// NewMountainHubProvider creates a timeline client. An empty baseURL
// selects the production endpoint.
func NewMountainHubProvider(client *http.Client, baseURL string, logger *zap.SugaredLogger) *MountainHubProvider {
	if baseURL == "" {
		baseURL = DefaultTimelineURL
	}
	return &MountainHubProvider{
		baseURL: baseURL,
		httpCfg: HTTPClientConfig{Client: client},
		circuit: newCircuitBreaker("mountainhub"),
		logger:  logger,
	}
}

// SnowData retrieves snow observations matching the query. With
// query.Filter set, rows missing an author name or a usable snow depth
// are dropped; otherwise they are returned with nil fields.
func (p *MountainHubProvider) SnowData(ctx context.Context, query snow.TimelineQuery) ([]snow.Observation, error) {
	limit := query.Limit
	if limit <= 0 {
		limit = defaultLimit
	}

	params := map[string]any{
		"publisher": "all",
		"obs_type":  "snow_conditions",
		"limit":     limit,
		"since":     dateToTimestamp(query.Start),
		"before":    dateToTimestamp(query.End),
	}
	for k, v := range makeBox(query.Box) {
		params[k] = v
	}
	params = removeEmptyParams(params)

	buildRequest := func() (*http.Request, error) {
		u := fmt.Sprintf("%s?%s", p.baseURL, queryValues(params).Encode())
		req, err := http.NewRequest(http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept-version", "1")
		return req, nil
	}

	records, err := fetchResults(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return nil, err
	}

	observations := make([]snow.Observation, 0, len(records))
	for _, raw := range records {
		obs, err := parseSnowRecord(raw)
		if err != nil {
			return nil, err
		}
		if query.Filter && !obs.Complete() {
			continue
		}
		observations = append(observations, obs)
	}

	p.logger.Debugw("fetched snow observations",
		"requested", limit, "returned", len(records), "kept", len(observations))

	return observations, nil
}

// timelineRecord mirrors the nested observation/actor shape of one
// timeline record. Pointer fields distinguish absent from zero.
type timelineRecord struct {
	Observation *struct {
		ID         *string          `json:"_id"`
		ReportedAt any              `json:"reported_at"`
		Location   []float64        `json:"location"`
		Type       *string          `json:"type"`
		Details    []map[string]any `json:"details"`
	} `json:"observation"`
	Actor *struct {
		FullName    *string `json:"full_name"`
		FullNameAlt *string `json:"fullName"`
	} `json:"actor"`
}

// parseSnowRecord normalizes one timeline record. Structurally missing
// required fields fail with the offending record in the error; malformed
// records are never silently skipped here.
func parseSnowRecord(raw json.RawMessage) (snow.Observation, error) {
	var rec timelineRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return snow.Observation{}, fmt.Errorf("malformed timeline record: %w: %s", err, raw)
	}
	if rec.Observation == nil || rec.Actor == nil {
		return snow.Observation{}, fmt.Errorf("timeline record missing observation or actor: %s", raw)
	}

	obs := rec.Observation
	if obs.ID == nil {
		return snow.Observation{}, fmt.Errorf("timeline record missing _id: %s", raw)
	}
	if obs.Type == nil {
		return snow.Observation{}, fmt.Errorf("timeline record missing type: %s", raw)
	}
	// The source stores location as [longitude, latitude].
	if len(obs.Location) < 2 {
		return snow.Observation{}, fmt.Errorf("timeline record missing location: %s", raw)
	}

	timestamp, err := coerceInt64(obs.ReportedAt)
	if err != nil {
		return snow.Observation{}, fmt.Errorf("timeline record has invalid reported_at: %v: %s", err, raw)
	}

	depth, err := parseSnowDepth(obs.Details)
	if err != nil {
		return snow.Observation{}, fmt.Errorf("timeline record has invalid details: %v: %s", err, raw)
	}

	return snow.Observation{
		ID:         *obs.ID,
		AuthorName: authorName(rec.Actor.FullName, rec.Actor.FullNameAlt),
		Timestamp:  timestamp,
		Date:       *timestampToDate(&timestamp),
		Lat:        obs.Location[1],
		Lng:        obs.Location[0],
		Type:       *obs.Type,
		SnowDepth:  depth,
	}, nil
}

// authorName prefers full_name over fullName; blank values count as
// absent.
func authorName(candidates ...*string) *string {
	for _, c := range candidates {
		if c != nil && *c != "" {
			return c
		}
	}
	return nil
}

// parseSnowDepth reads snowpack_depth from the first details entry. A
// missing entry, a null value, or the provider's "undefined" sentinel all
// yield a nil depth.
func parseSnowDepth(details []map[string]any) (*float64, error) {
	if len(details) == 0 || details[0] == nil {
		return nil, nil
	}
	v, ok := details[0]["snowpack_depth"]
	if !ok || v == nil {
		return nil, nil
	}
	switch depth := v.(type) {
	case string:
		if depth == "undefined" {
			return nil, nil
		}
		f, err := strconv.ParseFloat(depth, 64)
		if err != nil {
			return nil, fmt.Errorf("snowpack_depth %q is not a number", depth)
		}
		return &f, nil
	case float64:
		return &depth, nil
	default:
		return nil, fmt.Errorf("snowpack_depth has unexpected type %T", v)
	}
}

// coerceInt64 accepts the numeric and string encodings the timeline API
// uses for millisecond timestamps.
func coerceInt64(v any) (int64, error) {
	switch n := v.(type) {
	case float64:
		return int64(n), nil
	case string:
		return strconv.ParseInt(n, 10, 64)
	case json.Number:
		return n.Int64()
	case nil:
		return 0, fmt.Errorf("value is missing")
	default:
		return 0, fmt.Errorf("value has unexpected type %T", v)
	}
}
