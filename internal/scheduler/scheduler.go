// Package scheduler periodically re-evaluates how favorable the expected
// weather is for each stored event.
package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"

	"eventcast/internal/forecast"
	"eventcast/internal/logger"
	"eventcast/internal/orchestrate"
	"eventcast/internal/store"
)

// DefaultInterval is how often stored events are re-evaluated.
const DefaultInterval = 6 * time.Hour

// Evaluator rates stored events against their expected weather. Background
// evaluation talks to the router and geocoder directly so it never consumes
// the interactive request budget.
type Evaluator struct {
	store    *store.Store
	source   orchestrate.WeatherSource
	geocoder orchestrate.Geocoder
}

// NewEvaluator creates an Evaluator.
func NewEvaluator(s *store.Store, source orchestrate.WeatherSource, geocoder orchestrate.Geocoder) *Evaluator {
	return &Evaluator{store: s, source: source, geocoder: geocoder}
}

// EvaluateAll re-rates every stored event whose date is still parseable.
// Individual failures are logged and skipped; one broken event must not
// starve the rest.
func (e *Evaluator) EvaluateAll(ctx context.Context) {
	events, err := e.store.ListEvents()
	if err != nil {
		logger.Error("Favorability sweep could not list events: %v", err)
		return
	}
	if len(events) == 0 {
		return
	}

	logger.Info("Starting favorability sweep over %d events", len(events))
	for _, event := range events {
		if ctx.Err() != nil {
			logger.Warn("Favorability sweep interrupted: %v", ctx.Err())
			return
		}
		rating := e.evaluate(ctx, event)
		if err := e.store.SetFavorability(event.ID, rating); err != nil {
			logger.Warn("Could not record favorability for event %s: %v", event.ID, err)
		}
	}
}

func (e *Evaluator) evaluate(ctx context.Context, event store.Event) string {
	date, err := time.Parse("2006-01-02", event.Date)
	if err != nil {
		logger.Warn("Event %s has unparseable date %q", event.ID, event.Date)
		return store.FavorabilityUnknown
	}

	coords, err := e.geocoder.Resolve(ctx, event.Location)
	if err != nil {
		logger.Warn("Could not geocode %q for event %s: %v", event.Location, event.ID, err)
		return store.FavorabilityUnknown
	}

	summary := e.source.Summary(ctx, coords, date)
	return RateEvent(event, summary)
}

// RateEvent scores expected conditions against an event's wishes.
// Temperature within the desired range plus matching rain expectations is
// Good; one mismatch is Fair; both off is Poor; missing data is Unknown.
func RateEvent(event store.Event, summary *forecast.Summary) string {
	if !summary.OK() {
		return store.FavorabilityUnknown
	}
	temp := summary.Conditions.Temperature.Value
	if temp == nil {
		return store.FavorabilityUnknown
	}

	tempOK := *temp >= event.TemperatureRange[0] && *temp <= event.TemperatureRange[1]

	rainOK := true
	if summary.QuickEvaluation != nil {
		wantsRain := event.Weather == "rainy"
		rainOK = summary.QuickEvaluation.IsRainy == wantsRain
	}

	switch {
	case tempOK && rainOK:
		return store.FavorabilityGood
	case tempOK || rainOK:
		return store.FavorabilityFair
	default:
		return store.FavorabilityPoor
	}
}

// Scheduler drives periodic favorability sweeps.
type Scheduler struct {
	evaluator *Evaluator
	interval  time.Duration
	cron      *gocron.Scheduler
	cancel    context.CancelFunc
}

// New creates a Scheduler sweeping at the given interval. A non-positive
// interval falls back to the default.
func New(evaluator *Evaluator, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{
		evaluator: evaluator,
		interval:  interval,
		cron:      gocron.NewScheduler(time.UTC),
	}
}

// Start begins the sweep loop in the background.
func (s *Scheduler) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	_, err := s.cron.Every(s.interval).Do(func() {
		s.evaluator.EvaluateAll(ctx)
	})
	if err != nil {
		cancel()
		return err
	}

	s.cron.StartAsync()
	logger.Info("Favorability scheduler started, sweeping every %s", s.interval)
	return nil
}

// Stop halts the sweep loop and interrupts any sweep in progress.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.cron.Stop()
	logger.Info("Favorability scheduler stopped")
}
