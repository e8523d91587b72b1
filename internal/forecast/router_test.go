package forecast

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func floatPtr(v float64) *float64 {
	return &v
}

type stubHistorical struct {
	calls int
	err   error
}

func (s *stubHistorical) HistoricalSummary(ctx context.Context, coords Coordinates, date time.Time) (*Summary, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &Summary{
		Query:  Query{Location: coords.String(), Date: date.Format("2006-01-02")},
		Source: "NASA POWER Project (Historical Climate Baseline)",
		Status: StatusHistorical,
	}, nil
}

type stubForecaster struct {
	calls     int
	lastModel Model
	err       error
}

func (s *stubForecaster) Forecast(ctx context.Context, coords Coordinates, date time.Time, model Model) (*Summary, error) {
	s.calls++
	s.lastModel = model
	if s.err != nil {
		return nil, s.err
	}
	return &Summary{
		Query:  Query{Location: coords.String(), Date: date.Format("2006-01-02"), Model: string(model)},
		Source: "Meteomatics",
		Status: StatusForecast,
	}, nil
}

func fixedClock(t *testing.T, value string) func() time.Time {
	t.Helper()
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		t.Fatalf("bad clock value %q: %v", value, err)
	}
	return func() time.Time { return parsed }
}

func TestRouterTemporalDispatch(t *testing.T) {
	coords := Coordinates{Latitude: 40.7128, Longitude: -74.006}

	tests := []struct {
		name          string
		date          string
		wantHist      bool
		wantModel     Model
	}{
		{"distant past", "1995-03-10", true, ""},
		{"yesterday", "2026-08-30", true, ""},
		{"today", "2026-08-31", false, ModelMix},
		{"tomorrow", "2026-09-01", false, ModelMix},
		{"short-term boundary", "2026-09-15", false, ModelMix},
		{"just past short-term", "2026-09-16", false, ModelEnsemble},
		{"mid seasonal", "2026-12-01", false, ModelEnsemble},
		{"seasonal boundary", "2027-03-29", false, ModelEnsemble},
		{"just past seasonal", "2027-03-30", false, ModelClimateScenario},
		{"far future", "2080-07-01", false, ModelClimateScenario},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hist := &stubHistorical{}
			fc := &stubForecaster{}
			router := NewRouter(hist, fc, RouterOptions{
				Now: fixedClock(t, "2026-08-31T14:30:00Z"),
			})

			date, err := time.Parse("2006-01-02", tt.date)
			if err != nil {
				t.Fatalf("bad test date: %v", err)
			}

			summary := router.Summary(context.Background(), coords, date)
			if summary == nil {
				t.Fatal("expected a summary, got nil")
			}
			if !summary.OK() {
				t.Fatalf("expected a successful summary, got status %q (%s)", summary.Status, summary.Message)
			}

			if tt.wantHist {
				if hist.calls != 1 {
					t.Errorf("expected 1 historical call, got %d", hist.calls)
				}
				if fc.calls != 0 {
					t.Errorf("expected no forecast calls, got %d", fc.calls)
				}
			} else {
				if fc.calls != 1 {
					t.Errorf("expected 1 forecast call, got %d", fc.calls)
				}
				if fc.lastModel != tt.wantModel {
					t.Errorf("expected model %q, got %q", tt.wantModel, fc.lastModel)
				}
				if hist.calls != 0 {
					t.Errorf("expected no historical calls on success, got %d", hist.calls)
				}
			}
		})
	}
}

func TestRouterTimeOfDayIgnored(t *testing.T) {
	// The same calendar date must route identically no matter the
	// time-of-day on either side of the comparison.
	hist := &stubHistorical{}
	fc := &stubForecaster{}
	router := NewRouter(hist, fc, RouterOptions{
		Now: fixedClock(t, "2026-08-31T23:59:59Z"),
	})

	date := time.Date(2026, 8, 31, 0, 0, 1, 0, time.UTC)
	if diff := router.DaysFromToday(date); diff != 0 {
		t.Fatalf("expected same-day difference 0, got %d", diff)
	}

	summary := router.Summary(context.Background(), Coordinates{Latitude: 1, Longitude: 2}, date)
	if fc.lastModel != ModelMix {
		t.Errorf("expected same-day request on the operational model, got %q", fc.lastModel)
	}
	if !summary.OK() {
		t.Errorf("unexpected error summary: %s", summary.Message)
	}
}

func TestRouterFallbackToHistorical(t *testing.T) {
	hist := &stubHistorical{}
	fc := &stubForecaster{err: errors.New("upstream 503")}
	router := NewRouter(hist, fc, RouterOptions{
		Now: fixedClock(t, "2026-08-31T08:00:00Z"),
	})

	date := time.Date(2026, 9, 5, 0, 0, 0, 0, time.UTC)
	summary := router.Summary(context.Background(), Coordinates{Latitude: 35.68, Longitude: 139.69}, date)

	if fc.calls != 1 {
		t.Errorf("expected a single forecast attempt, got %d", fc.calls)
	}
	if hist.calls != 1 {
		t.Errorf("expected one fallback historical call, got %d", hist.calls)
	}
	if summary.Status != StatusHistorical {
		t.Errorf("expected fallback historical summary, got status %q", summary.Status)
	}
}

func TestRouterAllSourcesFail(t *testing.T) {
	hist := &stubHistorical{err: errors.New("nasa unreachable")}
	fc := &stubForecaster{err: errors.New("meteomatics unreachable")}
	router := NewRouter(hist, fc, RouterOptions{
		Now: fixedClock(t, "2026-08-31T08:00:00Z"),
	})

	date := time.Date(2026, 9, 5, 0, 0, 0, 0, time.UTC)
	summary := router.Summary(context.Background(), Coordinates{Latitude: 0, Longitude: 0}, date)

	if summary == nil {
		t.Fatal("router must never return nil")
	}
	if summary.OK() {
		t.Fatal("expected an error summary when every source fails")
	}
	if summary.Status != StatusCriticalFailure {
		t.Errorf("expected critical failure status, got %q", summary.Status)
	}
	if !strings.Contains(summary.Message, "all sources") {
		t.Errorf("expected message to mention all sources failing, got %q", summary.Message)
	}
}

func TestRouterPastDateNoDoubleFallback(t *testing.T) {
	hist := &stubHistorical{err: errors.New("nasa down")}
	fc := &stubForecaster{}
	router := NewRouter(hist, fc, RouterOptions{
		Now: fixedClock(t, "2026-08-31T08:00:00Z"),
	})

	date := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	summary := router.Summary(context.Background(), Coordinates{}, date)

	if hist.calls != 1 {
		t.Errorf("past-date failure must not retry the same provider, got %d calls", hist.calls)
	}
	if fc.calls != 0 {
		t.Errorf("past dates must never reach the forecaster, got %d calls", fc.calls)
	}
	if summary.OK() {
		t.Error("expected an error summary")
	}
}

func TestCleanValue(t *testing.T) {
	tests := []struct {
		name string
		in   *float64
		want *float64
	}{
		{"nil passthrough", nil, nil},
		{"missing sentinel", floatPtr(-999), nil},
		{"plain value rounds", floatPtr(23.456), floatPtr(23.46)},
		{"already clean", floatPtr(18.2), floatPtr(18.2)},
		{"negative survives", floatPtr(-12.345), floatPtr(-12.35)},
		{"zero is data", floatPtr(0), floatPtr(0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CleanValue(tt.in)
			switch {
			case tt.want == nil && got != nil:
				t.Errorf("expected nil, got %v", *got)
			case tt.want != nil && got == nil:
				t.Errorf("expected %v, got nil", *tt.want)
			case tt.want != nil && got != nil && *got != *tt.want:
				t.Errorf("expected %v, got %v", *tt.want, *got)
			}
		})
	}
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name      string
		temp      *float64
		precip    *float64
		wantHot   bool
		wantRainy bool
	}{
		{"mild and dry", floatPtr(22), floatPtr(0), false, false},
		{"hot", floatPtr(30.5), floatPtr(1), true, false},
		{"exactly at hot threshold", floatPtr(30), floatPtr(0), false, false},
		{"rainy", floatPtr(20), floatPtr(5.1), false, true},
		{"exactly at rain threshold", floatPtr(20), floatPtr(5), false, false},
		{"missing data is calm", nil, nil, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eval := Evaluate(Conditions{
				Temperature:   Measurement{Value: tt.temp},
				Precipitation: Measurement{Value: tt.precip},
			})
			if eval.IsHot != tt.wantHot {
				t.Errorf("IsHot = %v, want %v", eval.IsHot, tt.wantHot)
			}
			if eval.IsRainy != tt.wantRainy {
				t.Errorf("IsRainy = %v, want %v", eval.IsRainy, tt.wantRainy)
			}
		})
	}
}
