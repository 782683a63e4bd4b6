package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/nivalis/snow-data-service/internal/snow"
)

// newElevationServer echoes one result per requested location, with
// elevation = 2*lat, and records the locations string of every request.
func newElevationServer(t *testing.T) (*httptest.Server, *[]string) {
	t.Helper()
	var requests []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("key") == "" {
			t.Error("expected key parameter")
		}
		locations := r.URL.Query().Get("locations")
		requests = append(requests, locations)

		type result struct {
			Elevation float64 `json:"elevation"`
		}
		var results []result
		for _, pair := range strings.Split(locations, "|") {
			latStr, _, ok := strings.Cut(pair, ",")
			if !ok {
				t.Errorf("malformed location pair %q", pair)
				continue
			}
			lat, err := strconv.ParseFloat(latStr, 64)
			if err != nil {
				t.Errorf("malformed latitude %q", latStr)
				continue
			}
			results = append(results, result{Elevation: 2 * lat})
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"results": results})
	}))
	return server, &requests
}

func TestElevationDataBatching(t *testing.T) {
	server, requests := newElevationServer(t)
	defer server.Close()

	provider := NewElevationProvider(server.Client(), server.URL, "test-key", testLogger())

	points := make([]snow.Coordinate, 300)
	for i := range points {
		points[i] = snow.Coordinate{Lat: float64(i), Lng: float64(-i)}
	}

	out, err := provider.ElevationData(context.Background(), points)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(*requests) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(*requests))
	}
	if got := strings.Count((*requests)[0], "|") + 1; got != 256 {
		t.Errorf("expected 256 locations in first request, got %d", got)
	}
	if got := strings.Count((*requests)[1], "|") + 1; got != 44 {
		t.Errorf("expected 44 locations in second request, got %d", got)
	}
	// The second request must carry its own batch, not the full list.
	if !strings.HasPrefix((*requests)[1], "256,-256") {
		t.Errorf("second request should start at point 256, got %q", (*requests)[1][:20])
	}

	if len(out) != 300 {
		t.Fatalf("expected 300 elevation points, got %d", len(out))
	}
	for i, pt := range out {
		if pt.Lat != points[i].Lat || pt.Lng != points[i].Lng {
			t.Fatalf("point %d coordinates not preserved: %+v", i, pt)
		}
		if pt.Elevation != 2*points[i].Lat {
			t.Fatalf("point %d zipped against the wrong result: %+v", i, pt)
		}
	}
}

func TestElevationDataMissingResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"error":"bad"}`)
	}))
	defer server.Close()

	provider := NewElevationProvider(server.Client(), server.URL, "test-key", testLogger())

	_, err := provider.ElevationData(context.Background(), []snow.Coordinate{{Lat: 1, Lng: 2}})
	if err == nil {
		t.Fatal("expected error for missing results")
	}
	if !strings.Contains(err.Error(), `"error":"bad"`) {
		t.Errorf("error should surface the response body, got: %v", err)
	}
}

func TestElevationDataMissingKey(t *testing.T) {
	provider := NewElevationProvider(http.DefaultClient, "http://invalid", "", testLogger())

	if _, err := provider.ElevationData(context.Background(), nil); err == nil {
		t.Fatal("expected error for missing api key")
	}
}

func TestAverageElevationGrid(t *testing.T) {
	var locations string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		locations = r.URL.Query().Get("locations")
		fmt.Fprint(w, `{"results":[{"elevation":100},{"elevation":200},{"elevation":300},{"elevation":400}]}`)
	}))
	defer server.Close()

	provider := NewElevationProvider(server.Client(), server.URL, "test-key", testLogger())

	box := snow.BoundingBox{MinLat: 1, MaxLat: 2, MinLng: 3, MaxLng: 4}
	mean, err := provider.AverageElevation(context.Background(), box, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// A 2x2 grid samples exactly the four corners, lat-major.
	want := "1.0000,3.0000|1.0000,4.0000|2.0000,3.0000|2.0000,4.0000"
	if locations != want {
		t.Errorf("expected locations %q, got %q", want, locations)
	}
	if mean != 250 {
		t.Errorf("expected mean 250, got %v", mean)
	}
}

func TestAverageElevationGridTooSmall(t *testing.T) {
	provider := NewElevationProvider(http.DefaultClient, "http://invalid", "test-key", testLogger())

	_, err := provider.AverageElevation(context.Background(), snow.BoundingBox{}, 1)
	if err == nil {
		t.Fatal("expected error for grid size below 2")
	}
}

func TestAverageElevationGridClamped(t *testing.T) {
	server, requests := newElevationServer(t)
	defer server.Close()

	provider := NewElevationProvider(server.Client(), server.URL, "test-key", testLogger())

	box := snow.BoundingBox{MinLat: 1, MaxLat: 2, MinLng: 3, MaxLng: 4}
	if _, err := provider.AverageElevation(context.Background(), box, 40); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(*requests) != 1 {
		t.Fatalf("expected a single request, got %d", len(*requests))
	}
	// Clamped to a 16x16 lattice, which fits one request exactly.
	if got := strings.Count((*requests)[0], "|") + 1; got != 256 {
		t.Errorf("expected 256 lattice points, got %d", got)
	}
}
