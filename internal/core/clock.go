package core

import "time"

// Clock abstracts time for components whose rules depend on it (UTC-day
// limits, duplicate windows, posted_at stamps).
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func NewClock() Clock { return realClock{} }

// ManualClock is a settable clock for tests.
type ManualClock struct {
	Current time.Time
}

func NewManualClock(t time.Time) *ManualClock {
	return &ManualClock{Current: t}
}

func (c *ManualClock) Now() time.Time { return c.Current }

func (c *ManualClock) Advance(d time.Duration) { c.Current = c.Current.Add(d) }

func (c *ManualClock) Set(t time.Time) { c.Current = t }
