package weather

import (
	"fmt"
	"strings"
	"time"
	"unicode"
)

var icons = map[string]string{
	"01": "☀️",
	"02": "🌤️",
	"03": "🌥️",
	"04": "☁️",
	"09": "🌧️",
	"10": "🌦️",
	"11": "🌩️",
	"13": "🌨️",
	"50": "🌫️",
}

// Status is what consumers see for the weather domain on a given tick.
type Status struct {
	Sampled   bool
	Data      Data
	FetchedAt time.Time
	Err       string // shown verbatim in place of data when set
}

// OK reports whether Data is displayable.
func (s Status) OK() bool { return s.Sampled && s.Err == "" && len(s.Data.Weather) > 0 }

// Icon maps an OpenWeather icon code ("10d") to a glyph; unknown codes map to "".
func Icon(code string) string {
	if len(code) < 2 {
		return ""
	}
	return icons[code[:2]]
}

// Title capitalizes each word of a condition description.
func Title(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

// SunTime formats a unix timestamp in the city's UTC offset, e.g. "6:42 AM".
func SunTime(unix int64, offsetSeconds int) string {
	zone := time.FixedZone("", offsetSeconds)
	return time.Unix(unix, 0).In(zone).Format("3:04 PM")
}

// ForecastURL links the provider's page for the city.
func ForecastURL(cityID uint64) string {
	return fmt.Sprintf("https://openweathermap.org/city/%d#weather-widget", cityID)
}
