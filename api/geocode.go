package api

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"eventcast/internal/errorutil"
	"eventcast/internal/forecast"
	"eventcast/internal/logger"
)

const (
	nominatimBaseURL = "https://nominatim.openstreetmap.org"
	searchEndpoint   = "/search"
)

// GeocodeClient resolves free-text place names to coordinates using the
// Nominatim search API.
type GeocodeClient struct {
	client *resty.Client
}

// NewGeocodeClient creates a Nominatim geocoding client. Nominatim's usage
// policy requires an identifying User-Agent and no more than one request per
// second, which the retry wait respects.
func NewGeocodeClient() *GeocodeClient {
	client := resty.New().
		SetBaseURL(nominatimBaseURL).
		SetHeader("User-Agent", userAgent).
		SetTimeout(defaultTimeout).
		SetRetryCount(2).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(3 * time.Second)

	client.OnAfterResponse(func(c *resty.Client, resp *resty.Response) error {
		logger.LogAPIResponse(resp.Request.Method, resp.Request.URL, resp.StatusCode(), resp.Time().String(), len(resp.Body()))
		return nil
	})

	return &GeocodeClient{client: client}
}

// SetBaseURL overrides the API endpoint, used by tests.
func (g *GeocodeClient) SetBaseURL(url string) {
	g.client.SetBaseURL(url)
}

// nominatimResult is one entry of the Nominatim search response. The API
// returns coordinates as strings.
type nominatimResult struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// Resolve turns a place name into coordinates. Implausible names are
// rejected before any network call, and an empty result set is an error so
// callers never proceed with a half-resolved location.
func (g *GeocodeClient) Resolve(ctx context.Context, locationName string) (forecast.Coordinates, error) {
	if vErr := errorutil.ValidateLocationName("location", locationName); vErr != nil {
		return forecast.Coordinates{}, &errorutil.GeocodingError{Query: locationName, Err: vErr}
	}

	complete := logger.LogOperationStart("geocode_resolve", map[string]any{
		"location": locationName,
	})

	var results []nominatimResult
	resp, err := g.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"q":      locationName,
			"format": "json",
			"limit":  "1",
		}).
		SetResult(&results).
		Get(searchEndpoint)

	if err != nil {
		complete(err)
		return forecast.Coordinates{}, &errorutil.GeocodingError{Query: locationName, Err: err}
	}
	if resp.IsError() {
		err := fmt.Errorf("geocoding API error: status %d", resp.StatusCode())
		complete(err)
		return forecast.Coordinates{}, &errorutil.GeocodingError{Query: locationName, Err: err}
	}

	if len(results) == 0 {
		err := fmt.Errorf("no match found, please check the spelling and try a different location")
		complete(err)
		return forecast.Coordinates{}, &errorutil.GeocodingError{Query: locationName, Err: err}
	}

	lat, latErr := strconv.ParseFloat(results[0].Lat, 64)
	lon, lonErr := strconv.ParseFloat(results[0].Lon, 64)
	if latErr != nil || lonErr != nil {
		err := fmt.Errorf("geocoding returned malformed coordinates %q,%q", results[0].Lat, results[0].Lon)
		complete(err)
		return forecast.Coordinates{}, &errorutil.GeocodingError{Query: locationName, Err: err}
	}

	coords := forecast.Coordinates{Latitude: lat, Longitude: lon}
	logger.Debug("Resolved %q to %s (%s)", locationName, coords, results[0].DisplayName)
	complete(nil)
	return coords, nil
}
