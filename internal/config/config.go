package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/nivalis/snow-data-service/internal/snow"
)

type AppConfig struct {
	// GoogleAPIKey authenticates elevation and geocoding requests. It is
	// read once here and passed explicitly to the clients that need it.
	GoogleAPIKey string

	// Upstream endpoint overrides; empty means production defaults.
	MountainHubBaseURL string
	ElevationBaseURL   string

	// HTTPTimeout applies to the shared outbound HTTP client.
	HTTPTimeout time.Duration

	// FetchInterval controls how often the scheduler refreshes each region.
	FetchInterval time.Duration

	// FetchLimit is the per-region observation count requested per fetch.
	FetchLimit int

	// Regions to track.
	Regions []snow.Region

	// In-memory store retention.
	StoreMaxHistory int           // max number of snapshots per region (0 = unlimited)
	StoreMaxAge     time.Duration // max age of snapshots (0 = unlimited)

	Port  string
	Debug bool
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	cfg := &AppConfig{}

	cfg.GoogleAPIKey = os.Getenv("GOOGLE_API_KEY")
	cfg.MountainHubBaseURL = os.Getenv("MOUNTAINHUB_BASE_URL")
	cfg.ElevationBaseURL = os.Getenv("ELEVATION_BASE_URL")

	timeoutStr := getenvDefault("HTTP_TIMEOUT", "15s")
	timeout, err := time.ParseDuration(timeoutStr)
	if err != nil {
		return nil, fmt.Errorf("invalid HTTP_TIMEOUT: %w", err)
	}
	cfg.HTTPTimeout = timeout

	// Scheduler interval: default 15 minutes.
	intervalStr := getenvDefault("FETCH_INTERVAL", "15m")
	interval, err := time.ParseDuration(intervalStr)
	if err != nil {
		return nil, fmt.Errorf("invalid FETCH_INTERVAL: %w", err)
	}
	cfg.FetchInterval = interval

	cfg.FetchLimit = getenvInt("FETCH_LIMIT", 100)

	// Store retention.
	cfg.StoreMaxHistory = getenvInt("STORE_MAX_HISTORY", 96) // roughly 24h at 15-minute intervals

	maxAgeStr := getenvDefault("STORE_MAX_AGE", "24h")
	maxAge, err := time.ParseDuration(maxAgeStr)
	if err != nil {
		return nil, fmt.Errorf("invalid STORE_MAX_AGE: %w", err)
	}
	cfg.StoreMaxAge = maxAge

	cfg.Port = getenvDefault("PORT", "8080")
	cfg.Debug = getenvDefault("DEBUG", "false") == "true"

	regions, err := parseRegions(os.Getenv("REGIONS"))
	if err != nil {
		return nil, err
	}
	cfg.Regions = regions

	return cfg, nil
}

// parseRegions parses REGIONS of the form
// "name:minLat,minLng,maxLat,maxLng;name2:...".
func parseRegions(s string) ([]snow.Region, error) {
	if s == "" {
		return nil, nil
	}

	var regions []snow.Region
	for _, part := range strings.Split(s, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		name, coords, ok := strings.Cut(part, ":")
		if !ok {
			return nil, fmt.Errorf("invalid region %q: want name:minLat,minLng,maxLat,maxLng", part)
		}

		fields := strings.Split(coords, ",")
		if len(fields) != 4 {
			return nil, fmt.Errorf("invalid region %q: want 4 coordinates, got %d", part, len(fields))
		}

		var vals [4]float64
		for i, f := range fields {
			v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
			if err != nil {
				return nil, fmt.Errorf("invalid region %q: %w", part, err)
			}
			vals[i] = v
		}

		box := snow.BoundingBox{MinLat: vals[0], MinLng: vals[1], MaxLat: vals[2], MaxLng: vals[3]}
		if err := box.Validate(); err != nil {
			return nil, fmt.Errorf("region %q: %w", name, err)
		}

		regions = append(regions, snow.Region{Name: name, Box: box})
	}

	return regions, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}
