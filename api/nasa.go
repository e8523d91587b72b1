package api

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"

	"eventcast/internal/errorutil"
	"eventcast/internal/forecast"
	"eventcast/internal/logger"
)

const (
	nasaPowerBaseURL  = "https://power.larc.nasa.gov"
	nasaPointEndpoint = "/api/temporal/daily/point"

	// NASA POWER parameter keys
	nasaTempParam = "T2M"     // Daily mean 2 meter air temperature
	nasaRainParam = "PRECTOT" // Daily total precipitation
	nasaWindParam = "WS2M"    // Daily mean 2 meter wind speed

	// Default timeout for API requests
	defaultTimeout = 5 * time.Second

	// User-Agent for API requests
	userAgent = "Eventcast/1.0"
)

// NASAClient fetches observed daily climate data from the NASA POWER
// archive. It serves past dates and acts as a fallback for failed forecast
// lookups.
type NASAClient struct {
	client  *resty.Client
	breaker *gobreaker.CircuitBreaker
}

// NewNASAClient creates a NASA POWER API client. The archive requires no
// credentials.
func NewNASAClient() *NASAClient {
	client := resty.New().
		SetBaseURL(nasaPowerBaseURL).
		SetHeader("User-Agent", userAgent).
		SetTimeout(defaultTimeout).
		SetRetryCount(3).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(5 * time.Second)

	client.OnBeforeRequest(func(c *resty.Client, req *resty.Request) error {
		headers := make(map[string]string)
		for key, values := range req.Header {
			if len(values) > 0 {
				headers[key] = values[0]
			}
		}
		logger.LogAPIRequest(req.Method, req.URL, headers)
		return nil
	})

	client.OnAfterResponse(func(c *resty.Client, resp *resty.Response) error {
		logger.LogAPIResponse(resp.Request.Method, resp.Request.URL, resp.StatusCode(), resp.Time().String(), len(resp.Body()))
		return nil
	})

	return &NASAClient{
		client:  client,
		breaker: newProviderBreaker("nasa-power"),
	}
}

// SetBaseURL overrides the API endpoint, used by tests.
func (n *NASAClient) SetBaseURL(url string) {
	n.client.SetBaseURL(url)
}

// SetTimeout configures the HTTP client timeout
func (n *NASAClient) SetTimeout(timeout time.Duration) {
	n.client.SetTimeout(timeout)
}

// nasaPowerResponse mirrors the subset of the POWER daily point response we
// read. Values are keyed by YYYYMMDD date strings.
type nasaPowerResponse struct {
	Properties struct {
		Parameter map[string]map[string]float64 `json:"parameter"`
	} `json:"properties"`
}

// parameterValue extracts one parameter reading for a date key, returning
// nil when the parameter or the date is absent.
func (r *nasaPowerResponse) parameterValue(param, dateKey string) *float64 {
	readings, ok := r.Properties.Parameter[param]
	if !ok {
		return nil
	}
	v, ok := readings[dateKey]
	if !ok {
		return nil
	}
	return &v
}

// HistoricalSummary fetches the observed conditions for a point and date and
// shapes them into the uniform summary format.
func (n *NASAClient) HistoricalSummary(ctx context.Context, coords forecast.Coordinates, date time.Time) (*forecast.Summary, error) {
	dateStr := date.Format("2006-01-02")
	dateKey := strings.ReplaceAll(dateStr, "-", "")

	complete := logger.LogOperationStart("nasa_power_daily", map[string]any{
		"latitude":  coords.Latitude,
		"longitude": coords.Longitude,
		"date":      dateStr,
	})

	result, err := n.breaker.Execute(func() (interface{}, error) {
		var powerResp nasaPowerResponse
		resp, err := n.client.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"latitude":   fmt.Sprintf("%g", coords.Latitude),
				"longitude":  fmt.Sprintf("%g", coords.Longitude),
				"start":      dateKey,
				"end":        dateKey,
				"parameters": strings.Join([]string{nasaTempParam, nasaRainParam, nasaWindParam}, ","),
				"community":  "AG",
				"format":     "JSON",
			}).
			SetResult(&powerResp).
			Get(nasaPointEndpoint)

		if err != nil {
			return nil, errorutil.NewProviderError("nasa-power", "daily point lookup", nasaPointEndpoint, 0, err)
		}
		if resp.IsError() {
			return nil, errorutil.NewProviderError("nasa-power", "daily point lookup", resp.Request.URL, resp.StatusCode(),
				fmt.Errorf("unexpected response: %s", resp.Status()))
		}
		return &powerResp, nil
	})
	if err != nil {
		complete(err)
		return nil, fmt.Errorf("could not retrieve climate summary from NASA POWER: %w", err)
	}
	complete(nil)

	powerResp := result.(*nasaPowerResponse)

	conditions := forecast.Conditions{
		Temperature: forecast.Measurement{
			Value: forecast.CleanValue(powerResp.parameterValue(nasaTempParam, dateKey)),
			Unit:  "C",
			Label: "Average Historical Temperature",
		},
		Precipitation: forecast.Measurement{
			Value: forecast.CleanValue(powerResp.parameterValue(nasaRainParam, dateKey)),
			Unit:  "mm",
			Label: "Total Historical Rainfall",
		},
		WindSpeed: forecast.Measurement{
			Value: forecast.CleanValue(powerResp.parameterValue(nasaWindParam, dateKey)),
			Unit:  "m/s",
			Label: "Average Historical Wind Speed",
		},
	}

	eval := forecast.Evaluate(conditions)

	return &forecast.Summary{
		Query: forecast.Query{
			Location:  coords.String(),
			Latitude:  coords.Latitude,
			Longitude: coords.Longitude,
			Date:      dateStr,
		},
		Conditions:      conditions,
		QuickEvaluation: &eval,
		Source:          "NASA POWER Project (Historical Climate Baseline)",
		Confidence:      "HIGH (Observed)",
		Status:          forecast.StatusHistorical,
	}, nil
}

// newProviderBreaker creates the circuit breaker shared by provider
// clients: trip after 5 consecutive failures, probe again after 30 seconds.
func newProviderBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    name,
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker %s transitioned from %s to %s", name, from, to)
		},
	})
}
