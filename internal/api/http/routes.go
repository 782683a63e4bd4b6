package httpapi

import (
	"errors"
	"math"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/kelvins/geocoder"

	"github.com/nivalis/snow-data-service/internal/snow"
	"github.com/nivalis/snow-data-service/internal/store"
)

var validate = validator.New()

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service *snow.Service) {
	v1 := app.Group("/api/v1")

	v1.Get("/snow/observations", func(c *fiber.Ctx) error {
		query, err := bindTimelineQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		observations, err := service.Observations(c.Context(), query)
		if err != nil {
			return fiber.NewError(fiber.StatusBadGateway, err.Error())
		}

		return c.JSON(fiber.Map{
			"count":        len(observations),
			"observations": observations,
		})
	})

	v1.Get("/snow/observations/enriched", func(c *fiber.Ctx) error {
		query, err := bindTimelineQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		observations, err := service.Enriched(c.Context(), query)
		if err != nil {
			return fiber.NewError(fiber.StatusBadGateway, err.Error())
		}

		return c.JSON(fiber.Map{
			"count":        len(observations),
			"observations": observations,
		})
	})

	v1.Get("/elevation/average", func(c *fiber.Ctx) error {
		var req averageElevationQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		mean, err := service.AverageElevation(c.Context(), *req.Box, req.GridSize)
		if err != nil {
			return fiber.NewError(fiber.StatusBadGateway, err.Error())
		}

		return c.JSON(fiber.Map{
			"box":       req.Box,
			"grid_size": req.GridSize,
			"elevation": mean,
		})
	})

	v1.Get("/snow/regions/geocode", func(c *fiber.Ctx) error {
		city := c.Query("city")
		country := c.Query("country")
		if city == "" || country == "" {
			return fiber.NewError(fiber.StatusBadRequest, "city and country query parameters are required")
		}

		spanKm := c.QueryFloat("span_km", 10)
		if spanKm <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "span_km must be positive")
		}

		location, err := geocoder.Geocoding(geocoder.Address{City: city, Country: country})
		if err != nil {
			return fiber.NewError(fiber.StatusBadGateway, err.Error())
		}

		return c.JSON(fiber.Map{
			"location": snow.Coordinate{Lat: location.Latitude, Lng: location.Longitude},
			"box":      boxAround(location.Latitude, location.Longitude, spanKm),
		})
	})

	v1.Get("/snow/regions/:name/latest", func(c *fiber.Ctx) error {
		snapshot, err := service.GetLatest(c.Params("name"))
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no snapshots for requested region")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch snapshot")
		}

		return c.JSON(snapshot)
	})

	v1.Get("/snow/regions/:name/history", func(c *fiber.Ctx) error {
		var req historyQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		region := c.Params("name")
		snapshots, err := service.GetRange(region, req.From, req.To)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no snapshots for requested range")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch snapshot history")
		}

		return c.JSON(fiber.Map{
			"region":    region,
			"from":      req.From,
			"to":        req.To,
			"snapshots": snapshots,
		})
	})
}

// bindTimelineQuery reads the live-query parameters shared by the
// observation endpoints.
func bindTimelineQuery(c *fiber.Ctx) (snow.TimelineQuery, error) {
	var query snow.TimelineQuery

	query.Limit = c.QueryInt("limit", 0)
	if query.Limit < 0 {
		return query, errors.New("limit must not be negative")
	}
	query.Filter = c.QueryBool("filter", true)

	if s := c.Query("since"); s != "" {
		ts, err := parseTime(s)
		if err != nil {
			return query, err
		}
		query.Start = &ts
	}
	if s := c.Query("before"); s != "" {
		ts, err := parseTime(s)
		if err != nil {
			return query, err
		}
		query.End = &ts
	}
	if query.Start != nil && query.End != nil && query.End.Before(*query.Start) {
		return query, errors.New("before must not precede since")
	}

	box, err := parseBoxQuery(c)
	if err != nil {
		return query, err
	}
	query.Box = box

	return query, nil
}

// parseBoxQuery reads the four bounding-box corners. All four must be
// present together; none at all means an unrestricted query.
func parseBoxQuery(c *fiber.Ctx) (*snow.BoundingBox, error) {
	keys := [4]string{"min_lat", "min_lng", "max_lat", "max_lng"}

	var raw [4]string
	present := 0
	for i, key := range keys {
		raw[i] = c.Query(key)
		if raw[i] != "" {
			present++
		}
	}

	if present == 0 {
		return nil, nil
	}
	if present != len(keys) {
		return nil, errors.New("bounding box requires min_lat, min_lng, max_lat and max_lng together")
	}

	var vals [4]float64
	for i, s := range raw {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, errors.New("invalid " + keys[i] + ": " + s)
		}
		vals[i] = v
	}

	box := snow.BoundingBox{MinLat: vals[0], MinLng: vals[1], MaxLat: vals[2], MaxLng: vals[3]}
	if err := box.Validate(); err != nil {
		return nil, err
	}
	return &box, nil
}

// averageElevationQuery holds query parameters for the average elevation
// endpoint.
type averageElevationQuery struct {
	Box      *snow.BoundingBox `validate:"required"`
	GridSize int               `validate:"required,gte=2,lte=16"`
}

func (q *averageElevationQuery) bind(c *fiber.Ctx) error {
	box, err := parseBoxQuery(c)
	if err != nil {
		return err
	}
	q.Box = box
	q.GridSize = c.QueryInt("grid_size", 16)
	return nil
}

// historyQuery holds query parameters for the history endpoint.
type historyQuery struct {
	From time.Time `validate:"required"`
	To   time.Time `validate:"required,gtefield=From"`
}

func (h *historyQuery) bind(c *fiber.Ctx) error {
	fromStr := c.Query("from")
	toStr := c.Query("to")
	if fromStr == "" || toStr == "" {
		return errors.New("from and to query parameters are required")
	}

	from, err := parseTime(fromStr)
	if err != nil {
		return err
	}
	to, err := parseTime(toStr)
	if err != nil {
		return err
	}

	h.From = from
	h.To = to
	return nil
}

// parseTime tries to parse either RFC3339 or Unix seconds.
func parseTime(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, errors.New("invalid time format; use RFC3339 or unix seconds")
}

// boxAround builds a bounding box spanning spanKm kilometers in each
// direction around a center point.
func boxAround(lat, lng, spanKm float64) snow.BoundingBox {
	// One degree of latitude is ~111.32 km; longitude degrees shrink with
	// the cosine of the latitude.
	halfLat := spanKm / 2 / 111.32
	halfLng := spanKm / 2 / (111.32 * math.Cos(lat*math.Pi/180))
	return snow.BoundingBox{
		MinLat: lat - halfLat,
		MaxLat: lat + halfLat,
		MinLng: lng - halfLng,
		MaxLng: lng + halfLng,
	}
}
