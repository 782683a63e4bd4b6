package store

import (
	"errors"
	"sync"
	"time"

	"github.com/nivalis/snow-data-service/internal/snow"
)

var (
	// ErrNotFound is returned when no snapshot is available for a region.
	ErrNotFound = errors.New("no snapshots for region")
)

// snapshotHistory holds a time-ordered list of snapshots for one region.
type snapshotHistory struct {
	snapshots []snow.Snapshot
}

// MemoryStore is a concurrency-safe in-memory implementation of the
// snapshot store.
type MemoryStore struct {
	mu sync.RWMutex

	// key: region name, value: history
	data map[string]*snapshotHistory

	// retention configuration
	maxHistory int           // max number of snapshots per region
	maxAge     time.Duration // optional max age for snapshots
}

// NewMemoryStore creates a new MemoryStore with optional limits.
// If maxHistory is <= 0, it is treated as unlimited.
func NewMemoryStore(maxHistory int, maxAge time.Duration) *MemoryStore {
	return &MemoryStore{
		data:       make(map[string]*snapshotHistory),
		maxHistory: maxHistory,
		maxAge:     maxAge,
	}
}

// SaveSnapshot appends a new snapshot for a region and enforces retention.
func (s *MemoryStore) SaveSnapshot(region string, snapshot snow.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	history, ok := s.data[region]
	if !ok {
		history = &snapshotHistory{}
		s.data[region] = history
	}

	history.snapshots = append(history.snapshots, snapshot)

	// Enforce retention by count.
	if s.maxHistory > 0 && len(history.snapshots) > s.maxHistory {
		over := len(history.snapshots) - s.maxHistory
		history.snapshots = history.snapshots[over:]
	}

	// Enforce retention by age.
	if s.maxAge > 0 {
		cutoff := time.Now().Add(-s.maxAge)
		i := 0
		for ; i < len(history.snapshots); i++ {
			if !history.snapshots[i].FetchedAt.Before(cutoff) {
				break
			}
		}
		if i > 0 && i < len(history.snapshots) {
			history.snapshots = history.snapshots[i:]
		}
	}
}

// GetLatest returns the most recent snapshot for a region.
func (s *MemoryStore) GetLatest(region string) (snow.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.data[region]
	if !ok || len(history.snapshots) == 0 {
		return snow.Snapshot{}, ErrNotFound
	}
	return history.snapshots[len(history.snapshots)-1], nil
}

// GetRange returns all snapshots for a region fetched between from and to
// (inclusive).
func (s *MemoryStore) GetRange(region string, from, to time.Time) ([]snow.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.data[region]
	if !ok || len(history.snapshots) == 0 {
		return nil, ErrNotFound
	}

	var result []snow.Snapshot
	for _, snap := range history.snapshots {
		if !snap.FetchedAt.Before(from) && !snap.FetchedAt.After(to) {
			result = append(result, snap)
		}
	}

	if len(result) == 0 {
		return nil, ErrNotFound
	}

	return result, nil
}
