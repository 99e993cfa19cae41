// Package weather fetches current conditions from OpenWeather.
package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const (
	DefaultBaseURL = "https://api.openweathermap.org/data/2.5/weather"

	// RequestTimeout bounds one fetch so a hung request cannot stall the task.
	RequestTimeout = 5 * time.Second
)

// Field layout follows https://openweathermap.org/current#current_JSON.

type Coord struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

type Condition struct {
	ID          uint64 `json:"id"`
	Main        string `json:"main"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

type Main struct {
	Temp      float64 `json:"temp"`
	FeelsLike float64 `json:"feels_like"`
	TempMin   float64 `json:"temp_min"`
	TempMax   float64 `json:"temp_max"`
	Pressure  float64 `json:"pressure"`
	Humidity  float64 `json:"humidity"`
}

type Wind struct {
	Speed float64 `json:"speed"`
	Deg   float64 `json:"deg"`
}

type Clouds struct {
	All float64 `json:"all"`
}

type Sys struct {
	Country string `json:"country"`
	Sunrise int64  `json:"sunrise"`
	Sunset  int64  `json:"sunset"`
}

// Data is one current-conditions document.
type Data struct {
	Coord      Coord       `json:"coord"`
	Weather    []Condition `json:"weather"`
	Main       Main        `json:"main"`
	Visibility float64     `json:"visibility"`
	Wind       Wind        `json:"wind"`
	Clouds     Clouds      `json:"clouds"`
	Dt         int64       `json:"dt"`
	Sys        Sys         `json:"sys"`
	Timezone   int         `json:"timezone"` // UTC offset in seconds
	ID         uint64      `json:"id"`
	Name       string      `json:"name"`
}

// Client requests conditions for one city.
type Client struct {
	BaseURL string
	APIKey  string
	CityID  uint64
	Units   string
	HTTP    *http.Client
}

// NewClient returns a client with the default endpoint and request timeout.
func NewClient(cityID uint64, apiKey, units string) *Client {
	if units == "" {
		units = "metric"
	}
	return &Client{
		BaseURL: DefaultBaseURL,
		APIKey:  apiKey,
		CityID:  cityID,
		Units:   units,
		HTTP:    &http.Client{Timeout: RequestTimeout},
	}
}

type apiError struct {
	Cod     json.RawMessage `json:"cod"`
	Message string          `json:"message"`
}

// Fetch performs one request. Errors carry text suitable for display.
func (c *Client) Fetch(ctx context.Context) (Data, error) {
	var data Data
	if c.APIKey == "" {
		return data, errors.New("weather: API key is not configured")
	}

	q := url.Values{}
	q.Set("id", strconv.FormatUint(c.CityID, 10))
	q.Set("units", c.Units)
	q.Set("APPID", c.APIKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"?"+q.Encode(), nil)
	if err != nil {
		return data, fmt.Errorf("weather: build request: %w", err)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return data, fmt.Errorf("weather: request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return data, fmt.Errorf("weather: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		var apiErr apiError
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Message != "" {
			return data, fmt.Errorf("weather: %s (HTTP %d)", apiErr.Message, resp.StatusCode)
		}
		return data, fmt.Errorf("weather: unexpected status %s", resp.Status)
	}
	if err := json.Unmarshal(body, &data); err != nil {
		return data, fmt.Errorf("weather: decode response: %w", err)
	}
	if len(data.Weather) == 0 {
		return data, errors.New("weather: response has no conditions")
	}
	return data, nil
}
