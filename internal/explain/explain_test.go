package explain

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"eventcast/api"
	"eventcast/internal/forecast"
)

func floatPtr(v float64) *float64 {
	return &v
}

func mustDate(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse("2006-01-02", value)
	if err != nil {
		t.Fatalf("bad date %q: %v", value, err)
	}
	return parsed
}

type stubGenerator struct {
	text  string
	err   error
	calls int
}

func (s *stubGenerator) GenerateText(ctx context.Context, systemContext, prompt string) (*api.TextResponse, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &api.TextResponse{Text: s.text}, nil
}

func successSummary(temp, rain, wind *float64) *forecast.Summary {
	return &forecast.Summary{
		Query: forecast.Query{Location: "Oslo", Date: "2026-09-14"},
		Conditions: forecast.Conditions{
			Temperature:   forecast.Measurement{Value: temp, Unit: "C", Label: "Forecasted Temperature"},
			Precipitation: forecast.Measurement{Value: rain, Unit: "mm", Label: "Forecasted Precipitation"},
			WindSpeed:     forecast.Measurement{Value: wind, Unit: "m/s", Label: "Forecasted Wind Speed"},
		},
		Source: "Meteomatics (Standard Forecast)",
		Status: forecast.StatusForecast,
	}
}

func TestGenerateUsesAIWhenAvailable(t *testing.T) {
	gen := &stubGenerator{text: "Lovely day for a picnic."}
	svc := NewService(gen)

	result := svc.Generate(context.Background(), successSummary(floatPtr(21), floatPtr(0), floatPtr(2)), nil)

	if result.Explanation != "Lovely day for a picnic." {
		t.Errorf("expected AI text, got %q", result.Explanation)
	}
	if result.Comparison != nil {
		t.Error("comparison must be nil when no desired conditions are given")
	}
	if gen.calls != 1 {
		t.Errorf("expected one AI call, got %d", gen.calls)
	}
}

func TestGenerateComparisonOnlyWithDesired(t *testing.T) {
	gen := &stubGenerator{text: "Close enough."}
	svc := NewService(gen)

	desired := &DesiredConditions{Temperature: 20, Condition: "sunny", Humidity: 50}
	result := svc.Generate(context.Background(), successSummary(floatPtr(21), nil, nil), desired)

	if result.Comparison == nil || *result.Comparison != "Close enough." {
		t.Errorf("expected AI comparison, got %v", result.Comparison)
	}
	if gen.calls != 2 {
		t.Errorf("expected two AI calls (explain + compare), got %d", gen.calls)
	}
}

func TestGenerateFallsBackOnAIFailure(t *testing.T) {
	gen := &stubGenerator{err: errors.New("api unreachable")}
	svc := NewService(gen)

	desired := &DesiredConditions{Temperature: 20}
	result := svc.Generate(context.Background(), successSummary(floatPtr(25), floatPtr(0), nil), desired)

	if result.Explanation == "" {
		t.Fatal("fallback explanation must not be empty")
	}
	if !strings.Contains(result.Explanation, "25.0") {
		t.Errorf("fallback explanation should mention the temperature, got %q", result.Explanation)
	}
	if result.Comparison == nil || !strings.Contains(*result.Comparison, "warmer") {
		t.Errorf("expected warmer-tier fallback comparison, got %v", result.Comparison)
	}
}

func TestNilGeneratorAlwaysFallsBack(t *testing.T) {
	svc := NewService(nil)

	result := svc.Generate(context.Background(), successSummary(floatPtr(10), floatPtr(7), nil), nil)

	if !strings.Contains(result.Explanation, "significant rainfall") {
		t.Errorf("expected rain mention in fallback, got %q", result.Explanation)
	}
}

func TestFallbackComparisonTiers(t *testing.T) {
	tests := []struct {
		name    string
		actual  *float64
		desired float64
		want    string
	}{
		{"exact match", floatPtr(20), 20, "matches"},
		{"within tolerance high", floatPtr(22), 20, "matches"},
		{"within tolerance low", floatPtr(18), 20, "matches"},
		{"warmer", floatPtr(22.1), 20, "warmer"},
		{"cooler", floatPtr(17.9), 20, "cooler"},
		{"much warmer", floatPtr(35), 20, "warmer"},
		{"no temperature data", nil, 20, "Sorry"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			summary := successSummary(tt.actual, nil, nil)
			got := FallbackComparison(summary, &DesiredConditions{Temperature: tt.desired})
			if !strings.Contains(got, tt.want) {
				t.Errorf("expected %q in comparison, got %q", tt.want, got)
			}
		})
	}
}

func TestErrorSummaryGetsApology(t *testing.T) {
	gen := &stubGenerator{text: "should never be used"}
	svc := NewService(gen)

	errSummary := forecast.ErrorSummary(forecast.Coordinates{}, mustDate(t, "2026-09-14"), errors.New("everything failed"))
	result := svc.Generate(context.Background(), errSummary, &DesiredConditions{Temperature: 20})

	if !strings.Contains(result.Explanation, "unavailable") {
		t.Errorf("expected unavailability apology, got %q", result.Explanation)
	}
	if gen.calls != 0 {
		t.Errorf("failed lookups must not reach the AI, got %d calls", gen.calls)
	}
}
