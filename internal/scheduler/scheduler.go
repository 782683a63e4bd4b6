package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"github.com/nivalis/snow-data-service/internal/snow"
)

// Scheduler periodically fetches snow observations for configured regions.
type Scheduler struct {
	scheduler *gocron.Scheduler
	service   *snow.Service
	regions   []snow.Region
	interval  time.Duration
	limit     int
	logger    *zap.SugaredLogger
}

// New creates a new Scheduler. limit is the per-region observation count
// requested on each fetch.
func New(regions []snow.Region, interval time.Duration, limit int, service *snow.Service, logger *zap.SugaredLogger) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	return &Scheduler{
		scheduler: s,
		service:   service,
		regions:   regions,
		interval:  interval,
		limit:     limit,
		logger:    logger,
	}
}

// Start schedules the periodic job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	if len(s.regions) == 0 {
		s.logger.Info("scheduler: no regions configured; nothing to schedule")
		return nil
	}

	minutes := int(s.interval.Minutes())
	if minutes <= 0 {
		minutes = 15
	}

	_, err := s.scheduler.Every(minutes).Minutes().Do(func() {
		s.logger.Debug("scheduler: running snow fetch job")

		var wg sync.WaitGroup
		for _, region := range s.regions {
			region := region
			wg.Add(1)
			go func() {
				defer wg.Done()

				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()

				if err := s.service.FetchAndStore(ctx, region, s.limit); err != nil {
					s.logger.Errorw("scheduler: fetch failed", "region", region.Name, "error", err)
				}
			}()
		}
		wg.Wait()
		s.logger.Debug("scheduler: completed snow fetch job")
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
