package store

import (
	"errors"
	"testing"
	"time"

	"github.com/nivalis/snow-data-service/internal/snow"
)

func snapshotAt(region string, ts time.Time) snow.Snapshot {
	return snow.Snapshot{Region: region, FetchedAt: ts}
}

func TestMemoryStoreLatest(t *testing.T) {
	s := NewMemoryStore(0, 0)

	if _, err := s.GetLatest("cascades"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	now := time.Now().UTC()
	s.SaveSnapshot("cascades", snapshotAt("cascades", now.Add(-time.Hour)))
	s.SaveSnapshot("cascades", snapshotAt("cascades", now))

	latest, err := s.GetLatest("cascades")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !latest.FetchedAt.Equal(now) {
		t.Errorf("expected most recent snapshot, got %v", latest.FetchedAt)
	}
}

func TestMemoryStoreRange(t *testing.T) {
	s := NewMemoryStore(0, 0)

	base := time.Now().UTC().Add(-3 * time.Hour)
	for i := 0; i < 3; i++ {
		s.SaveSnapshot("alps", snapshotAt("alps", base.Add(time.Duration(i)*time.Hour)))
	}

	got, err := s.GetRange("alps", base.Add(30*time.Minute), base.Add(150*time.Minute))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 snapshots in range, got %d", len(got))
	}

	if _, err := s.GetRange("alps", base.Add(-2*time.Hour), base.Add(-time.Hour)); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for empty range, got %v", err)
	}
}

func TestMemoryStoreCountRetention(t *testing.T) {
	s := NewMemoryStore(2, 0)

	base := time.Now().UTC()
	for i := 0; i < 3; i++ {
		s.SaveSnapshot("rockies", snapshotAt("rockies", base.Add(time.Duration(i)*time.Minute)))
	}

	got, err := s.GetRange("rockies", base.Add(-time.Hour), base.Add(time.Hour))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected retention to keep 2 snapshots, got %d", len(got))
	}
	if !got[0].FetchedAt.Equal(base.Add(time.Minute)) {
		t.Errorf("expected oldest snapshot to be dropped, got %v", got[0].FetchedAt)
	}
}
