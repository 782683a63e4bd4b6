package providers

import (
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/nivalis/snow-data-service/internal/snow"
)

func testLogger() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

func TestRemoveEmptyParams(t *testing.T) {
	var absent *int64
	params := map[string]any{
		"a": 1,
		"b": nil,
		"c": 0,
		"d": absent,
		"e": "",
	}

	got := removeEmptyParams(params)

	if _, ok := got["b"]; ok {
		t.Error("nil value should be dropped")
	}
	if _, ok := got["d"]; ok {
		t.Error("nil pointer should be dropped")
	}
	if v, ok := got["a"]; !ok || v != 1 {
		t.Errorf("expected a=1, got %v", v)
	}
	if v, ok := got["c"]; !ok || v != 0 {
		t.Errorf("zero should be kept, got %v", v)
	}
	if v, ok := got["e"]; !ok || v != "" {
		t.Errorf("empty string should be kept, got %v", v)
	}
}

func TestRemoveEmptyParamsDereferencesPointers(t *testing.T) {
	ts := int64(1517000000000)
	got := removeEmptyParams(map[string]any{"since": &ts})

	if v, ok := got["since"]; !ok || v != ts {
		t.Errorf("expected since=%d, got %v", ts, v)
	}
}

func TestTimestampRoundTrip(t *testing.T) {
	date := time.Date(2024, 1, 15, 8, 30, 45, 0, time.UTC)

	ts := dateToTimestamp(&date)
	if ts == nil {
		t.Fatal("expected timestamp, got nil")
	}
	if *ts != date.Unix()*1000 {
		t.Fatalf("expected %d, got %d", date.Unix()*1000, *ts)
	}

	back := timestampToDate(ts)
	if back == nil {
		t.Fatal("expected date, got nil")
	}
	if !back.Equal(date) {
		t.Errorf("round trip mismatch: %v != %v", back, date)
	}
}

func TestTimestampTruncatesSubSecond(t *testing.T) {
	date := time.Date(2024, 1, 15, 8, 30, 45, 500e6, time.UTC)

	ts := dateToTimestamp(&date)
	if *ts%1000 != 0 {
		t.Errorf("expected whole-second timestamp, got %d", *ts)
	}
}

func TestTimestampNilPassThrough(t *testing.T) {
	if got := dateToTimestamp(nil); got != nil {
		t.Errorf("expected nil, got %v", got)
	}
	if got := timestampToDate(nil); got != nil {
		t.Errorf("expected nil, got %v", got)
	}
}

func TestMakeBox(t *testing.T) {
	if got := makeBox(nil); len(got) != 0 {
		t.Errorf("expected empty params for absent box, got %v", got)
	}

	box := &snow.BoundingBox{MinLat: 1, MaxLat: 2, MinLng: 3, MaxLng: 4}
	got := makeBox(box)

	want := map[string]any{
		"north_east_lat": 2.0,
		"north_east_lng": 4.0,
		"south_west_lat": 1.0,
		"south_west_lng": 3.0,
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("expected %s=%v, got %v", k, v, got[k])
		}
	}
}

func TestBatches(t *testing.T) {
	points := make([]snow.Coordinate, 300)
	for i := range points {
		points[i] = snow.Coordinate{Lat: float64(i), Lng: float64(i)}
	}

	got := batches(points, 256)

	if len(got) != 2 {
		t.Fatalf("expected 2 batches, got %d", len(got))
	}
	if len(got[0]) != 256 || len(got[1]) != 44 {
		t.Fatalf("expected sizes 256 and 44, got %d and %d", len(got[0]), len(got[1]))
	}
	if got[0][0].Lat != 0 || got[0][255].Lat != 255 {
		t.Error("first batch does not hold the first contiguous slice")
	}
	if got[1][0].Lat != 256 || got[1][43].Lat != 299 {
		t.Error("second batch does not hold the remaining slice")
	}
}

func TestBatchesEmpty(t *testing.T) {
	if got := batches(nil, 256); len(got) != 0 {
		t.Errorf("expected no batches, got %d", len(got))
	}
}
