package weather

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `{
  "coord": {"lon": 10.75, "lat": 59.91},
  "weather": [{"id": 500, "main": "Rain", "description": "light rain", "icon": "10d"}],
  "main": {"temp": 7.4, "feels_like": 4.9, "temp_min": 6.1, "temp_max": 8.3, "pressure": 1009, "humidity": 87},
  "visibility": 10000,
  "wind": {"speed": 4.1, "deg": 220},
  "clouds": {"all": 75},
  "dt": 1700000000,
  "sys": {"country": "NO", "sunrise": 1699944000, "sunset": 1699972800},
  "timezone": 3600,
  "id": 3143244,
  "name": "Oslo"
}`

func newServer(t *testing.T, status int, body string) (*httptest.Server, <-chan url.Values) {
	t.Helper()
	queries := make(chan url.Values, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case queries <- r.URL.Query():
		default:
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, queries
}

func TestFetchDecodes(t *testing.T) {
	t.Parallel()
	srv, queries := newServer(t, http.StatusOK, sample)
	c := NewClient(3143244, "secret", "")
	c.BaseURL = srv.URL

	data, err := c.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Oslo", data.Name)
	assert.Equal(t, 7.4, data.Main.Temp)
	assert.Equal(t, 3600, data.Timezone)
	require.Len(t, data.Weather, 1)
	assert.Equal(t, "10d", data.Weather[0].Icon)

	q := <-queries
	assert.Equal(t, "3143244", q.Get("id"))
	assert.Equal(t, "metric", q.Get("units"))
	assert.Equal(t, "secret", q.Get("APPID"))
}

func TestFetchErrorsAreReadable(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"api message", http.StatusUnauthorized, `{"cod":401,"message":"Invalid API key"}`, "Invalid API key"},
		{"plain status", http.StatusBadGateway, `upstream`, "502"},
		{"malformed json", http.StatusOK, `{"weather":`, "decode"},
		{"no conditions", http.StatusOK, `{"name":"Oslo","weather":[]}`, "no conditions"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			srv, _ := newServer(t, tc.status, tc.body)
			c := NewClient(1, "k", "metric")
			c.BaseURL = srv.URL
			_, err := c.Fetch(context.Background())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestFetchTimesOut(t *testing.T) {
	t.Parallel()
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(block)
		srv.Close()
	})
	c := NewClient(1, "k", "metric")
	c.BaseURL = srv.URL
	c.HTTP.Timeout = 50 * time.Millisecond

	_, err := c.Fetch(context.Background())
	assert.Error(t, err)
}

func TestFetchWithoutKey(t *testing.T) {
	t.Parallel()
	_, err := NewClient(1, "", "").Fetch(context.Background())
	assert.ErrorContains(t, err, "API key")
}

func TestPresentation(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "🌦️", Icon("10d"))
	assert.Equal(t, "", Icon("x"))
	assert.Equal(t, "", Icon("99n"))
	assert.Equal(t, "Light Rain", Title("light rain"))
	assert.Equal(t, "1:00 AM", SunTime(0, 3600))
	assert.Equal(t, "7:00 PM", SunTime(0, -5*3600))
	assert.Equal(t, "https://openweathermap.org/city/42#weather-widget", ForecastURL(42))
}

func TestStatusOK(t *testing.T) {
	t.Parallel()
	assert.False(t, Status{}.OK())
	assert.False(t, Status{Sampled: true, Err: "boom", Data: Data{Weather: []Condition{{}}}}.OK())
	assert.True(t, Status{Sampled: true, Data: Data{Weather: []Condition{{}}}}.OK())
}
