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
	meteomaticsBaseURL = "https://api.meteomatics.com"

	// Meteomatics parameter identifiers
	meteoTempParam = "t2m:C"        // 2 meter air temperature
	meteoRainParam = "precip_24h:mm" // 24 hour precipitation sum
	meteoWindParam = "wind_speed_10m:ms" // 10 meter wind speed
)

// MeteomaticsClient fetches model-based forecasts from the Meteomatics API.
// The same endpoint serves the operational mix, the seasonal ensemble, and
// the climate scenario run; only the model selector changes.
type MeteomaticsClient struct {
	client  *resty.Client
	breaker *gobreaker.CircuitBreaker
}

// NewMeteomaticsClient creates an authenticated Meteomatics API client.
func NewMeteomaticsClient(username, password string) *MeteomaticsClient {
	client := resty.New().
		SetBaseURL(meteomaticsBaseURL).
		SetBasicAuth(username, password).
		SetHeader("User-Agent", userAgent).
		SetHeader("Accept", "application/json").
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

	return &MeteomaticsClient{
		client:  client,
		breaker: newProviderBreaker("meteomatics"),
	}
}

// SetBaseURL overrides the API endpoint, used by tests.
func (m *MeteomaticsClient) SetBaseURL(url string) {
	m.client.SetBaseURL(url)
}

// SetTimeout configures the HTTP client timeout
func (m *MeteomaticsClient) SetTimeout(timeout time.Duration) {
	m.client.SetTimeout(timeout)
}

// meteomaticsResponse mirrors the JSON route response: one entry per
// requested parameter, each with coordinate and date series.
type meteomaticsResponse struct {
	Data []struct {
		Parameter   string `json:"parameter"`
		Coordinates []struct {
			Lat   float64 `json:"lat"`
			Lon   float64 `json:"lon"`
			Dates []struct {
				Date  string   `json:"date"`
				Value *float64 `json:"value"`
			} `json:"dates"`
		} `json:"coordinates"`
	} `json:"data"`
}

// parameterValue extracts the first reading for a parameter, returning nil
// when the series is empty.
func (r *meteomaticsResponse) parameterValue(param string) *float64 {
	for _, entry := range r.Data {
		if entry.Parameter != param {
			continue
		}
		if len(entry.Coordinates) == 0 || len(entry.Coordinates[0].Dates) == 0 {
			return nil
		}
		return entry.Coordinates[0].Dates[0].Value
	}
	return nil
}

// Forecast fetches the noon reading for a point and date under the given
// model and shapes it into the uniform summary format.
func (m *MeteomaticsClient) Forecast(ctx context.Context, coords forecast.Coordinates, date time.Time, model forecast.Model) (*forecast.Summary, error) {
	dateStr := date.Format("2006-01-02")
	isoInstant := dateStr + "T12:00:00Z"
	parameters := strings.Join([]string{meteoTempParam, meteoRainParam, meteoWindParam}, ",")
	location := fmt.Sprintf("%g,%g", coords.Latitude, coords.Longitude)
	path := fmt.Sprintf("/%s/%s/%s/json", isoInstant, parameters, location)

	complete := logger.LogOperationStart("meteomatics_forecast", map[string]any{
		"latitude":  coords.Latitude,
		"longitude": coords.Longitude,
		"date":      dateStr,
		"model":     string(model),
	})

	result, err := m.breaker.Execute(func() (interface{}, error) {
		var meteoResp meteomaticsResponse
		resp, err := m.client.R().
			SetContext(ctx).
			SetQueryParam("model", string(model)).
			SetResult(&meteoResp).
			Get(path)

		if err != nil {
			return nil, errorutil.NewProviderError("meteomatics", "forecast lookup", path, 0, err)
		}
		if resp.IsError() {
			return nil, errorutil.NewProviderError("meteomatics", "forecast lookup", path, resp.StatusCode(),
				fmt.Errorf("unexpected response: %s: %s", resp.Status(), strings.TrimSpace(string(resp.Body()))))
		}
		return &meteoResp, nil
	})
	if err != nil {
		complete(err)
		return nil, fmt.Errorf("meteomatics %s forecast failed: %w", model, err)
	}
	complete(nil)

	meteoResp := result.(*meteomaticsResponse)

	labelPrefix := "Forecasted"
	if model == forecast.ModelClimateScenario {
		labelPrefix = "Projected"
	}

	conditions := forecast.Conditions{
		Temperature: forecast.Measurement{
			Value: forecast.CleanValue(meteoResp.parameterValue(meteoTempParam)),
			Unit:  "C",
			Label: labelPrefix + " Temperature",
		},
		Precipitation: forecast.Measurement{
			Value: forecast.CleanValue(meteoResp.parameterValue(meteoRainParam)),
			Unit:  "mm",
			Label: labelPrefix + " Precipitation",
		},
		WindSpeed: forecast.Measurement{
			Value: forecast.CleanValue(meteoResp.parameterValue(meteoWindParam)),
			Unit:  "m/s",
			Label: labelPrefix + " Wind Speed",
		},
	}

	eval := forecast.Evaluate(conditions)

	summary := &forecast.Summary{
		Query: forecast.Query{
			Location:  coords.String(),
			Latitude:  coords.Latitude,
			Longitude: coords.Longitude,
			Date:      dateStr,
			Model:     string(model),
		},
		Conditions:      conditions,
		QuickEvaluation: &eval,
	}

	switch model {
	case forecast.ModelMix:
		summary.Source = "Meteomatics (Standard Forecast)"
		summary.Confidence = "HIGH (Operational Forecast)"
		summary.Status = forecast.StatusForecast
	case forecast.ModelEnsemble:
		summary.Source = "Meteomatics (Seasonal Forecast)"
		summary.Confidence = "MEDIUM (Seasonal Ensemble)"
		summary.Status = forecast.StatusForecast
	case forecast.ModelClimateScenario:
		summary.Source = "Meteomatics Climate Projection (Model: SSP585)"
		summary.Confidence = "LOW (Model Simulation)"
		summary.Status = forecast.StatusClimate
	default:
		summary.Source = fmt.Sprintf("Meteomatics (%s)", model)
		summary.Status = forecast.StatusForecast
	}

	return summary, nil
}
