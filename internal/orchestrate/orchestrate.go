// Package orchestrate coordinates a single weather lookup end to end:
// admission control, cache consultation, temporal routing, and explanation.
package orchestrate

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"eventcast/internal/cache"
	"eventcast/internal/explain"
	"eventcast/internal/forecast"
	"eventcast/internal/logger"
	"eventcast/internal/ratelimit"
)

// Admission errors. These are soft denials: the caller should surface a
// friendly message and let the user try again, not treat them as failures.
var (
	// ErrBusy means another lookup is already in flight.
	ErrBusy = errors.New("a weather lookup is already in progress, please wait")
	// ErrRateLimited means the request gates denied admission.
	ErrRateLimited = errors.New("too many requests, please wait a moment before selecting another location")
	// ErrShuttingDown means the service completed the lookup but is no
	// longer delivering results.
	ErrShuttingDown = errors.New("service is shutting down")
)

// WeatherSource resolves conditions for a point and date. *forecast.Router
// satisfies it.
type WeatherSource interface {
	Summary(ctx context.Context, coords forecast.Coordinates, date time.Time) *forecast.Summary
}

// Geocoder resolves place names to coordinates. *api.GeocodeClient
// satisfies it.
type Geocoder interface {
	Resolve(ctx context.Context, locationName string) (forecast.Coordinates, error)
}

// Outcome is the result of one admitted lookup.
type Outcome struct {
	Summary     *forecast.Summary
	Explanation *explain.Result
	FromCache   bool
}

// Orchestrator runs lookups with single-flight admission, rate limiting,
// and result caching. It is safe for concurrent use; concurrent callers
// beyond the first are denied with ErrBusy rather than queued.
type Orchestrator struct {
	source    WeatherSource
	geocoder  Geocoder
	explainer *explain.Service
	limiter   *ratelimit.Limiter
	results   *cache.ResultCache

	inFlight atomic.Bool
	stopped  atomic.Bool
}

// New creates an Orchestrator over its collaborators.
func New(source WeatherSource, geocoder Geocoder, explainer *explain.Service, limiter *ratelimit.Limiter, results *cache.ResultCache) *Orchestrator {
	return &Orchestrator{
		source:    source,
		geocoder:  geocoder,
		explainer: explainer,
		limiter:   limiter,
		results:   results,
	}
}

// Shutdown stops delivery of in-flight results. Lookups that already left
// for upstream still complete and populate the cache, but their outcomes are
// discarded.
func (o *Orchestrator) Shutdown() {
	o.stopped.Store(true)
}

// Reset reopens the rate limiter and clears the cache, mirroring what the
// client does when it returns to the foreground.
func (o *Orchestrator) Reset() {
	o.limiter.Reset()
	o.results.Clear()
	logger.Info("Orchestrator state reset: rate limiter reopened, result cache cleared")
}

// Lookup runs one weather lookup for a point and date. The admission order
// is fixed: in-flight guard, then rate gates, then cache. A cache hit skips
// the rate gates' budget but not their check, so denial behavior is stable
// whether or not the result is cached.
func (o *Orchestrator) Lookup(ctx context.Context, coords forecast.Coordinates, date time.Time, desired *explain.DesiredConditions) (*Outcome, error) {
	if o.stopped.Load() {
		return nil, ErrShuttingDown
	}
	if !o.inFlight.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer o.inFlight.Store(false)

	if !o.limiter.CanMakeRequest() {
		return nil, ErrRateLimited
	}

	key := cache.Key(coords, date)
	if cached := o.results.Get(key); cached != nil {
		logger.Debug("Cache hit for %s", key)
		return o.deliver(ctx, cached, desired, true)
	}

	o.limiter.RecordRequest()

	summary := o.source.Summary(ctx, coords, date)

	// The result is cached no matter what happened to the caller in the
	// meantime: the upstream work is already paid for, and the next tap
	// on the same spot should not repeat it.
	o.results.Put(key, summary)

	if err := ctx.Err(); err != nil {
		logger.Debug("Lookup for %s completed after cancellation, result cached but not delivered", key)
		return nil, err
	}
	if o.stopped.Load() {
		return nil, ErrShuttingDown
	}

	return o.deliver(ctx, summary, desired, false)
}

// LookupByName geocodes a place name and then runs a Lookup at the resolved
// coordinates.
func (o *Orchestrator) LookupByName(ctx context.Context, locationName string, date time.Time, desired *explain.DesiredConditions) (*Outcome, error) {
	coords, err := o.geocoder.Resolve(ctx, locationName)
	if err != nil {
		return nil, err
	}

	outcome, err := o.Lookup(ctx, coords, date, desired)
	if err != nil {
		return nil, err
	}
	// Replace the synthesized coordinate label with the name the user
	// actually asked about. Copy first so cached entries stay untouched.
	if outcome.Summary != nil {
		relabeled := *outcome.Summary
		relabeled.Query.Location = locationName
		outcome.Summary = &relabeled
	}
	return outcome, nil
}

func (o *Orchestrator) deliver(ctx context.Context, summary *forecast.Summary, desired *explain.DesiredConditions, fromCache bool) (*Outcome, error) {
	outcome := &Outcome{
		Summary:   summary,
		FromCache: fromCache,
	}
	if o.explainer != nil {
		outcome.Explanation = o.explainer.Generate(ctx, summary, desired)
	}
	return outcome, nil
}
