// Package sampler turns OS and vendor counters into per-domain samples and
// keeps each domain's rolling history.
//
// Every sampler is owned by exactly one polling task and is not safe for
// concurrent use. Sources are small interfaces so tests can substitute
// synthetic counters; System implements all of them with gopsutil.
package sampler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/Dicklesworthstone/vitals/internal/ring"
)

var (
	// ErrNoCPU means the host reported no CPUs at startup.
	ErrNoCPU = errors.New("sampler: no CPUs reported")
	// ErrSensorNotFound means the configured temperature label never appeared.
	ErrSensorNotFound = errors.New("sampler: temperature sensor not found")
	// ErrGPUUnavailable means no vendor GPU tool is installed; GPU sampling is skipped.
	ErrGPUUnavailable = errors.New("sampler: GPU management tool unavailable")
)

func discardLogger(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return l
}

// clampRatio keeps plotted values inside [0,1].
func clampRatio(v float64) float64 {
	switch {
	case v < 0 || v != v:
		return 0
	case v > 1:
		return 1
	}
	return v
}

func pushRatio(b *ring.Buffer[float64], v float64) { b.Push(clampRatio(v)) }

// Helpers
func parseFloat(s string) float64 {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%"))
	f, _ := strconv.ParseFloat(s, 64)
	return f
}

func runCmd(timeout time.Duration, name string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	out, err := exec.CommandContext(ctx, name, args...).Output()
	if ctx.Err() == context.DeadlineExceeded {
		return "", ctx.Err()
	}
	return string(out), err
}
