// Package clock abstracts the current time so staleness checks, titles and
// response timestamps can be pinned in tests and when replaying recorded
// feeds.
package clock

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
)

// Clock reports the current time.
type Clock interface {
	Now() time.Time
	// NowUnixMilli is Now as Unix milliseconds, the unit of response
	// envelopes.
	NowUnixMilli() int64
}

// RealClock is the system clock.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

func (RealClock) NowUnixMilli() int64 { return time.Now().UnixMilli() }

// MockClock is a settable clock for tests. It is safe for concurrent use.
type MockClock struct {
	mu  sync.Mutex
	now time.Time
}

func NewMockClock(t time.Time) *MockClock {
	return &MockClock{now: t}
}

func (m *MockClock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *MockClock) NowUnixMilli() int64 { return m.Now().UnixMilli() }

func (m *MockClock) Set(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = t
}

// Advance moves the clock by d, which may be negative.
func (m *MockClock) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
}

// ReplayClock reads the current time from an environment variable, then a
// file, and falls back to the system clock. It is used to inspect recorded
// feeds as of the time they were captured. Both sources are re-read on
// every call.
type ReplayClock struct {
	envVar   string
	filePath string
	location *time.Location
	logger   *slog.Logger
}

// NewReplayClock returns a clock reading envVar and then filePath. Either may
// be empty. location applies to times written without a zone; when nil,
// only RFC 3339 times are accepted.
func NewReplayClock(envVar, filePath string, location *time.Location) *ReplayClock {
	return &ReplayClock{
		envVar:   envVar,
		filePath: filePath,
		location: location,
		logger:   slog.Default().With(slog.String("component", "replay_clock")),
	}
}

func (c *ReplayClock) Now() time.Time {
	if t, err := c.fromEnv(); err == nil {
		return t
	}
	if t, err := c.fromFile(); err == nil {
		return t
	}
	c.logger.Warn("no replay time available, using system time",
		slog.String("env_var", c.envVar), slog.String("file", c.filePath))
	return time.Now()
}

func (c *ReplayClock) NowUnixMilli() int64 { return c.Now().UnixMilli() }

func (c *ReplayClock) fromEnv() (time.Time, error) {
	if c.envVar == "" {
		return time.Time{}, errors.New("no environment variable configured")
	}
	v := os.Getenv(c.envVar)
	if v == "" {
		return time.Time{}, fmt.Errorf("%s is empty", c.envVar)
	}
	return c.parse(v)
}

func (c *ReplayClock) fromFile() (time.Time, error) {
	if c.filePath == "" {
		return time.Time{}, errors.New("no file configured")
	}
	b, err := os.ReadFile(c.filePath)
	if err != nil {
		return time.Time{}, err
	}
	return c.parse(string(b))
}

// replayLayouts are tried, in order, for times without a zone.
var replayLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func (c *ReplayClock) parse(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if c.location == nil {
		return time.Time{}, fmt.Errorf("time %q has no zone and no location is configured", s)
	}
	for _, layout := range replayLayouts {
		if t, err := time.ParseInLocation(layout, s, c.location); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse time %q: want RFC 3339 or one of %s", s, strings.Join(replayLayouts, ", "))
}
