// Package cache persists the last good value of a slow external source in a
// JSON file whose modification time is the staleness clock.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// ErrFetch wraps every refresh failure so callers can tell it from cache I/O.
var ErrFetch = errors.New("fetch failed")

// Policy is the timing of one cache instance.
type Policy struct {
	// TTL is the maximum age before a refresh is attempted.
	TTL time.Duration
	// Interval is the delay before the next poll after a good value.
	Interval time.Duration
	// RetryTimeout is the delay before the next poll after a failed refresh.
	RetryTimeout time.Duration
}

// Result is the outcome of one Poll.
type Result[T any] struct {
	Value     T
	FetchedAt time.Time
	Cached    bool // served from the file without a fetch
	Err       error
	Next      time.Duration
}

// TTLCache guards a single cache file. Poll calls are serialized, so at most
// one refresh is in flight per instance.
type TTLCache[T any] struct {
	path   string
	policy Policy
	logger *slog.Logger
	now    func() time.Time

	mu sync.Mutex
}

// New returns a cache backed by path. If logger is nil, a no-op logger is used.
func New[T any](path string, policy Policy, logger *slog.Logger) *TTLCache[T] {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &TTLCache[T]{path: path, policy: policy, logger: logger, now: time.Now}
}

// Path is the backing file.
func (c *TTLCache[T]) Path() string { return c.path }

// Load reads the cached value. fresh reports whether it is younger than the
// TTL. Missing or corrupt files return an error and must be treated as stale.
func (c *TTLCache[T]) Load() (value T, fetchedAt time.Time, fresh bool, err error) {
	info, err := os.Stat(c.path)
	if err != nil {
		return value, time.Time{}, false, fmt.Errorf("cache: stat %s: %w", c.path, err)
	}
	data, err := os.ReadFile(c.path)
	if err != nil {
		return value, time.Time{}, false, fmt.Errorf("cache: read %s: %w", c.path, err)
	}
	if err := json.Unmarshal(data, &value); err != nil {
		return value, time.Time{}, false, fmt.Errorf("cache: decode %s: %w", c.path, err)
	}
	fetchedAt = info.ModTime()
	return value, fetchedAt, c.now().Sub(fetchedAt) < c.policy.TTL, nil
}

// Poll serves the cached value while fresh and otherwise calls fetch. A good
// fetch is persisted and schedules the next poll after Interval. A failed
// fetch leaves the file untouched, reports the error, and schedules the next
// poll after RetryTimeout.
func (c *TTLCache[T]) Poll(ctx context.Context, fetch func(context.Context) (T, error)) Result[T] {
	c.mu.Lock()
	defer c.mu.Unlock()

	cached, at, fresh, err := c.Load()
	switch {
	case err != nil:
		c.logger.Debug("cache miss", "path", c.path, "error", err)
	case fresh:
		return Result[T]{Value: cached, FetchedAt: at, Cached: true, Next: c.policy.Interval}
	}

	value, err := fetch(ctx)
	if err != nil {
		c.logger.Warn("cache refresh failed", "path", c.path, "retry_in", c.policy.RetryTimeout, "error", err)
		return Result[T]{Err: fmt.Errorf("%w: %w", ErrFetch, err), Next: c.policy.RetryTimeout}
	}

	now := c.now()
	if err := c.store(value, now); err != nil {
		// the value is still good for this tick
		c.logger.Warn("cache write failed", "path", c.path, "error", err)
	}
	return Result[T]{Value: value, FetchedAt: now, Next: c.policy.Interval}
}

// GetOrRefresh is Poll without the scheduling details.
func (c *TTLCache[T]) GetOrRefresh(ctx context.Context, fetch func(context.Context) (T, error)) (T, error) {
	r := c.Poll(ctx, fetch)
	return r.Value, r.Err
}

// store writes atomically (temp file then rename) and stamps the file with at.
func (c *TTLCache[T]) store(value T, at time.Time) error {
	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache: marshal: %w", err)
	}
	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("cache: create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-"+filepath.Base(c.path)+"-*")
	if err != nil {
		return fmt.Errorf("cache: create temp: %w", err)
	}
	tmpName := tmp.Name()
	success := false
	defer func() {
		if !success {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(encoded); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("cache: write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("cache: close temp: %w", err)
	}
	if err := os.Chtimes(tmpName, at, at); err != nil {
		return fmt.Errorf("cache: stamp temp: %w", err)
	}
	if err := os.Rename(tmpName, c.path); err != nil {
		return fmt.Errorf("cache: rename temp: %w", err)
	}
	success = true
	return nil
}
