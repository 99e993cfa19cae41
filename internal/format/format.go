// Package format renders sizes, rates and durations for display.
package format

import (
	"fmt"
	"math"
	"time"

	"github.com/dustin/go-humanize"
)

// Size formats a byte count in IEC units, e.g. "1.5 GiB".
func Size(b uint64) string { return humanize.IBytes(b) }

// Speed formats a byte rate, e.g. "320 KiB/s". Negative or NaN rates show as 0.
func Speed(bytesPerSec float64) string {
	if bytesPerSec <= 0 || math.IsNaN(bytesPerSec) {
		return "0 B/s"
	}
	return humanize.IBytes(uint64(bytesPerSec)) + "/s"
}

// Used formats "used/total = pct%".
func Used(used, total uint64) string {
	pct := 0.0
	if total > 0 {
		pct = float64(used) / float64(total) * 100
	}
	return fmt.Sprintf("%s/%s = %3.0f%%", Size(used), Size(total), pct)
}

// Duration renders whole seconds as "45s", "3m 07s", "2h 03m 07s" or
// "1d 02h 03m 07s".
func Duration(d time.Duration) string {
	total := int64(d / time.Second)
	if total < 0 {
		total = 0
	}
	minutes, seconds := total/60, total%60
	if minutes == 0 {
		return fmt.Sprintf("%ds", seconds)
	}
	hours, minutes := minutes/60, minutes%60
	if hours == 0 {
		return fmt.Sprintf("%dm %02ds", minutes, seconds)
	}
	days, hours := hours/24, hours%24
	if days == 0 {
		return fmt.Sprintf("%dh %02dm %02ds", hours, minutes, seconds)
	}
	return fmt.Sprintf("%dd %02dh %02dm %02ds", days, hours, minutes, seconds)
}

// Truncate shortens s to n runes, marking the cut with an ellipsis.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
