package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"time"

	"github.com/sony/gobreaker"

	"github.com/nivalis/snow-data-service/internal/snow"
)

// HTTPClientConfig bundles the outbound HTTP client settings.
type HTTPClientConfig struct {
	Client *http.Client
}

var (
	errRateLimited  = errors.New("rate limited")
	errServerError  = errors.New("server error")
	errUnexpected   = errors.New("unexpected status code")
	errCircuitOpen  = errors.New("circuit breaker open")
	errNoHTTPClient = errors.New("http client not configured")
)

func newCircuitBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})
}

// doRequest executes a single HTTP request through the circuit breaker.
// There are no retries: upstream failures propagate immediately to the
// caller, and the breaker only serves to fail fast while an upstream is
// unhealthy.
func doRequest(
	ctx context.Context,
	cfg HTTPClientConfig,
	cb *gobreaker.CircuitBreaker,
	buildRequest func() (*http.Request, error),
) (*http.Response, error) {
	if cfg.Client == nil {
		return nil, errNoHTTPClient
	}

	req, err := buildRequest()
	if err != nil {
		return nil, err
	}
	req = req.WithContext(ctx)

	result, err := cb.Execute(func() (interface{}, error) {
		resp, execErr := cfg.Client.Do(req)
		if execErr != nil {
			return nil, execErr
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			return nil, errRateLimited
		}
		if resp.StatusCode >= 500 {
			return nil, errServerError
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, fmt.Errorf("%w: %d", errUnexpected, resp.StatusCode)
		}

		return resp, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", errCircuitOpen, err)
		}
		return nil, err
	}

	resp, ok := result.(*http.Response)
	if !ok {
		return nil, fmt.Errorf("unexpected result type from circuit breaker")
	}
	return resp, nil
}

// fetchResults issues one GET and returns the records under the body's
// "results" key. A body without that key fails with the whole body as
// error detail.
func fetchResults(
	ctx context.Context,
	cfg HTTPClientConfig,
	cb *gobreaker.CircuitBreaker,
	buildRequest func() (*http.Request, error),
) ([]json.RawMessage, error) {
	resp, err := doRequest(ctx, cfg, cb, buildRequest)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decoding response: %w: %s", err, body)
	}

	raw, ok := envelope["results"]
	if !ok {
		return nil, fmt.Errorf("response missing results: %s", body)
	}

	var records []json.RawMessage
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("decoding results: %w: %s", err, body)
	}
	return records, nil
}

// removeEmptyParams returns a copy of params with unset values dropped.
// Only genuinely absent values (nil, or a nil pointer) are removed; zero
// values and empty strings are kept. Non-nil pointers are dereferenced so
// the result holds plain values.
func removeEmptyParams(params map[string]any) map[string]any {
	out := make(map[string]any, len(params))
	for k, v := range params {
		if v == nil {
			continue
		}
		if rv := reflect.ValueOf(v); rv.Kind() == reflect.Pointer {
			if rv.IsNil() {
				continue
			}
			v = rv.Elem().Interface()
		}
		out[k] = v
	}
	return out
}

// queryValues renders a parameter map as URL query values.
func queryValues(params map[string]any) url.Values {
	values := url.Values{}
	for k, v := range params {
		values.Set(k, fmt.Sprint(v))
	}
	return values
}

// dateToTimestamp converts a calendar time to a whole-millisecond Unix
// epoch, truncating sub-second components. A nil input passes through.
func dateToTimestamp(t *time.Time) *int64 {
	if t == nil {
		return nil
	}
	ts := t.Unix() * 1000
	return &ts
}

// timestampToDate is the inverse of dateToTimestamp. A nil input passes
// through.
func timestampToDate(ts *int64) *time.Time {
	if ts == nil {
		return nil
	}
	t := time.UnixMilli(*ts).UTC()
	return &t
}

// makeBox renders a bounding box under the timeline API's corner field
// names. An absent box yields no spatial restriction.
func makeBox(box *snow.BoundingBox) map[string]any {
	if box == nil {
		return map[string]any{}
	}
	return map[string]any{
		"north_east_lat": box.MaxLat,
		"north_east_lng": box.MaxLng,
		"south_west_lat": box.MinLat,
		"south_west_lng": box.MinLng,
	}
}

// batches splits points into contiguous chunks of at most size elements.
func batches(points []snow.Coordinate, size int) [][]snow.Coordinate {
	var out [][]snow.Coordinate
	for i := 0; i < len(points); i += size {
		end := i + size
		if end > len(points) {
			end = len(points)
		}
		out = append(out, points[i:end])
	}
	return out
}
