// Package explain turns a weather summary into conversational text, using
// the Claude API when available and deterministic local phrasing when not.
package explain

import (
	"context"
	"fmt"
	"strings"

	"eventcast/api"
	"eventcast/internal/forecast"
	"eventcast/internal/logger"
)

// comparableTolerance is the temperature band, in degrees Celsius, within
// which actual and desired conditions count as a match.
const comparableTolerance = 2.0

// Generator produces text completions. *api.ClaudeClient satisfies it.
type Generator interface {
	GenerateText(ctx context.Context, systemContext, prompt string) (*api.TextResponse, error)
}

// DesiredConditions carries the user's preferred weather for comparison.
// All three fields arrive together or not at all.
type DesiredConditions struct {
	Temperature float64 `json:"temperature"`
	Condition   string  `json:"condition"`
	Humidity    float64 `json:"humidity"`
}

// Result is the explanation payload returned to clients. Comparison is nil
// when no desired conditions were supplied.
type Result struct {
	Explanation string  `json:"aiExplanation"`
	Comparison  *string `json:"aiComparison"`
}

// Service generates weather explanations. A nil generator is valid and
// means every request takes the local fallback path.
type Service struct {
	generator Generator
}

// NewService creates an explanation service over the given text generator.
func NewService(generator Generator) *Service {
	return &Service{generator: generator}
}

const systemContext = "You are a friendly weather assistant for an event-planning app. " +
	"Answer in two or three plain sentences, no markdown, no preamble."

// Generate produces the explanation and, when desired conditions are given,
// the comparison. AI failures are absorbed: the result always carries text.
func (s *Service) Generate(ctx context.Context, summary *forecast.Summary, desired *DesiredConditions) *Result {
	result := &Result{
		Explanation: s.explain(ctx, summary),
	}
	if desired != nil {
		comparison := s.compare(ctx, summary, desired)
		result.Comparison = &comparison
	}
	return result
}

func (s *Service) explain(ctx context.Context, summary *forecast.Summary) string {
	if !summary.OK() {
		return fallbackUnavailable()
	}

	if s.generator != nil {
		prompt := fmt.Sprintf(
			"Explain these weather conditions for %s on %s to someone planning an outdoor event:\n%s",
			summary.Query.Location, summary.Query.Date, describeConditions(summary))

		resp, err := s.generator.GenerateText(ctx, systemContext, prompt)
		if err == nil && resp.Text != "" {
			return resp.Text
		}
		if err != nil {
			logger.Warn("AI explanation failed, using local fallback: %v", err)
		}
	}

	return FallbackExplanation(summary)
}

func (s *Service) compare(ctx context.Context, summary *forecast.Summary, desired *DesiredConditions) string {
	if !summary.OK() {
		return fallbackUnavailable()
	}

	if s.generator != nil {
		prompt := fmt.Sprintf(
			"The user wants %.0f°C, %s conditions, and about %.0f%% humidity for %s on %s.\n"+
				"The expected conditions are:\n%s\nTell them how well reality matches their wish.",
			desired.Temperature, desired.Condition, desired.Humidity,
			summary.Query.Location, summary.Query.Date, describeConditions(summary))

		resp, err := s.generator.GenerateText(ctx, systemContext, prompt)
		if err == nil && resp.Text != "" {
			return resp.Text
		}
		if err != nil {
			logger.Warn("AI comparison failed, using local fallback: %v", err)
		}
	}

	return FallbackComparison(summary, desired)
}

// describeConditions renders the summary's readings as prompt context,
// skipping variables with no data.
func describeConditions(summary *forecast.Summary) string {
	var lines []string
	for _, m := range []forecast.Measurement{
		summary.Conditions.Temperature,
		summary.Conditions.Precipitation,
		summary.Conditions.WindSpeed,
	} {
		if m.Value == nil {
			continue
		}
		lines = append(lines, fmt.Sprintf("- %s: %.2f %s", m.Label, *m.Value, m.Unit))
	}
	if len(lines) == 0 {
		lines = append(lines, "- No measurements available")
	}
	lines = append(lines, fmt.Sprintf("- Source: %s", summary.Source))
	return strings.Join(lines, "\n")
}

// FallbackExplanation builds a plain-language reading of the summary
// without any AI involvement.
func FallbackExplanation(summary *forecast.Summary) string {
	temp := summary.Conditions.Temperature.Value
	rain := summary.Conditions.Precipitation.Value
	wind := summary.Conditions.WindSpeed.Value

	if temp == nil && rain == nil && wind == nil {
		return fallbackUnavailable()
	}

	var parts []string
	if temp != nil {
		switch {
		case *temp > 30:
			parts = append(parts, fmt.Sprintf("Expect hot conditions around %.1f°C", *temp))
		case *temp < 5:
			parts = append(parts, fmt.Sprintf("Expect cold conditions around %.1f°C", *temp))
		default:
			parts = append(parts, fmt.Sprintf("Expect mild conditions around %.1f°C", *temp))
		}
	}
	if rain != nil {
		if *rain > 5 {
			parts = append(parts, fmt.Sprintf("significant rainfall (%.1f mm) is likely", *rain))
		} else if *rain > 0 {
			parts = append(parts, fmt.Sprintf("light precipitation (%.1f mm) is possible", *rain))
		} else {
			parts = append(parts, "no rain is expected")
		}
	}
	if wind != nil && *wind > 8 {
		parts = append(parts, fmt.Sprintf("winds may be strong at %.1f m/s", *wind))
	}

	sentence := strings.Join(parts, ", ") + "."
	return fmt.Sprintf("%s Data from %s.", sentence, summary.Source)
}

// FallbackComparison compares actual conditions against the user's wish
// using fixed temperature tiers.
func FallbackComparison(summary *forecast.Summary, desired *DesiredConditions) string {
	temp := summary.Conditions.Temperature.Value
	if temp == nil {
		return "Sorry, there is no temperature data available for that date, so I can't compare it with your preferences."
	}

	diff := *temp - desired.Temperature
	switch {
	case diff >= -comparableTolerance && diff <= comparableTolerance:
		return fmt.Sprintf("Great news: the expected %.1f°C closely matches your desired %.0f°C.", *temp, desired.Temperature)
	case diff > 0:
		return fmt.Sprintf("The expected %.1f°C is about %.1f°C warmer than your desired %.0f°C.", *temp, diff, desired.Temperature)
	default:
		return fmt.Sprintf("The expected %.1f°C is about %.1f°C cooler than your desired %.0f°C.", *temp, -diff, desired.Temperature)
	}
}

func fallbackUnavailable() string {
	return "Sorry, weather data for that location and date is currently unavailable, so I can't offer an explanation right now."
}
