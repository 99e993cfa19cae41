package format

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDuration(t *testing.T) {
	t.Parallel()
	cases := []struct {
		in   time.Duration
		want string
	}{
		{0, "0s"},
		{45 * time.Second, "45s"},
		{3*time.Minute + 7*time.Second, "3m 07s"},
		{2*time.Hour + 3*time.Minute + 7*time.Second, "2h 03m 07s"},
		{26*time.Hour + 3*time.Minute + 4*time.Second, "1d 02h 03m 04s"},
		{-time.Second, "0s"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Duration(tc.in), "%v", tc.in)
	}
}

func TestSizes(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "512 B", Size(512))
	assert.Equal(t, "1.5 KiB", Size(1536))
	assert.Equal(t, "1.0 KiB/s", Speed(1024))
	assert.Equal(t, "0 B/s", Speed(-4))
	assert.Equal(t, "0 B/s", Speed(math.NaN()))
	assert.Equal(t, "1.0 KiB/2.0 KiB =  50%", Used(1024, 2048))
	assert.Equal(t, "0 B/0 B =   0%", Used(0, 0))
}

func TestTruncate(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "/usr/bin/…", Truncate("/usr/bin/python3", 10))
	assert.Equal(t, "a", Truncate("abc", 1))
}
