package forecast

import (
	"context"
	"fmt"
	"time"

	"eventcast/internal/logger"
)

// Model identifies which upstream model a forecast request should use.
type Model string

const (
	// ModelMix blends operational models and covers the short-term window.
	ModelMix Model = "mix"
	// ModelEnsemble is the ECMWF ensemble used for seasonal outlooks.
	ModelEnsemble Model = "ecmwf_ensemble"
	// ModelClimateScenario is the SSP5-8.5 climate projection run.
	ModelClimateScenario Model = "mri-esm2-ssp585"
)

// HistoricalProvider serves observed climate data for past dates and acts as
// the last-resort fallback for every other range.
type HistoricalProvider interface {
	HistoricalSummary(ctx context.Context, coords Coordinates, date time.Time) (*Summary, error)
}

// ForecastProvider serves model-based forecasts for present and future dates.
type ForecastProvider interface {
	Forecast(ctx context.Context, coords Coordinates, date time.Time, model Model) (*Summary, error)
}

// RouterOptions carries the temporal thresholds and the clock. Zero values
// fall back to the defaults.
type RouterOptions struct {
	// ShortTermDays is the inclusive upper bound of the operational
	// forecast window, in days from today.
	ShortTermDays int
	// SeasonalDays is the inclusive upper bound of the seasonal window,
	// in days from today.
	SeasonalDays int
	// Now supplies the current time. Defaults to time.Now.
	Now func() time.Time
}

const (
	defaultShortTermDays = 15
	defaultSeasonalDays  = 210 // roughly seven months
)

// Router dispatches a weather lookup to the provider responsible for the
// requested date's distance from today, with a single fallback to the
// historical provider when the primary choice fails.
type Router struct {
	historical HistoricalProvider
	forecaster ForecastProvider
	opts       RouterOptions
}

// NewRouter creates a Router over the given providers.
func NewRouter(historical HistoricalProvider, forecaster ForecastProvider, opts RouterOptions) *Router {
	if opts.ShortTermDays <= 0 {
		opts.ShortTermDays = defaultShortTermDays
	}
	if opts.SeasonalDays <= 0 {
		opts.SeasonalDays = defaultSeasonalDays
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Router{
		historical: historical,
		forecaster: forecaster,
		opts:       opts,
	}
}

// midnightUTC maps a timestamp to its calendar date at midnight UTC, so two
// dates from different zones compare as whole days.
func midnightUTC(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysFromToday returns the signed whole-day distance between the target
// date and the current date. Negative values are in the past; zero is today.
func (r *Router) DaysFromToday(date time.Time) int {
	today := midnightUTC(r.opts.Now())
	target := midnightUTC(date)
	return int(target.Sub(today).Hours() / 24)
}

// Summary resolves weather conditions for a point and date. It never returns
// an error: every failure mode is folded into the returned Summary's Status
// and Message so callers have a single shape to handle.
func (r *Router) Summary(ctx context.Context, coords Coordinates, date time.Time) *Summary {
	daysDiff := r.DaysFromToday(date)

	summary, err := r.dispatch(ctx, coords, date, daysDiff)
	if err == nil {
		return summary
	}

	// Past dates already went to the historical provider; nothing left to
	// fall back to.
	if daysDiff < 0 {
		logger.Error("Historical lookup failed for %s on %s: %v", coords, date.Format("2006-01-02"), err)
		return ErrorSummary(coords, date, err)
	}

	logger.Warn("Primary weather source failed for %s on %s, falling back to historical data: %v",
		coords, date.Format("2006-01-02"), err)

	fallback, fallbackErr := r.historical.HistoricalSummary(ctx, coords, date)
	if fallbackErr != nil {
		logger.Error("Fallback to historical data also failed: %v", fallbackErr)
		s := ErrorSummary(coords, date, err)
		s.Status = StatusCriticalFailure
		s.Message = fmt.Sprintf("Failed to get information from all sources. Please check API credentials and network connection. Last error: %v", fallbackErr)
		return s
	}
	return fallback
}

// dispatch performs the primary temporal routing decision.
func (r *Router) dispatch(ctx context.Context, coords Coordinates, date time.Time, daysDiff int) (*Summary, error) {
	dateStr := date.Format("2006-01-02")

	switch {
	case daysDiff < 0:
		logger.Debug("Routing %s on %s to historical archive (%d days in the past)", coords, dateStr, -daysDiff)
		return r.historical.HistoricalSummary(ctx, coords, date)
	case daysDiff <= r.opts.ShortTermDays:
		logger.Debug("Routing %s on %s to operational forecast (%d days out)", coords, dateStr, daysDiff)
		return r.forecaster.Forecast(ctx, coords, date, ModelMix)
	case daysDiff <= r.opts.SeasonalDays:
		logger.Debug("Routing %s on %s to seasonal ensemble (%d days out)", coords, dateStr, daysDiff)
		return r.forecaster.Forecast(ctx, coords, date, ModelEnsemble)
	default:
		logger.Debug("Routing %s on %s to climate projection (%d days out)", coords, dateStr, daysDiff)
		return r.forecaster.Forecast(ctx, coords, date, ModelClimateScenario)
	}
}
