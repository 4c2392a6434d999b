// Package clock provides an injectable source of wall-clock time so that
// time-dependent behavior (lock timestamps, stale-lock expiry) can be pinned
// in tests.
package clock

import "time"

// Layout is the canonical ISO-8601 serialization of an instant. The width is
// fixed (microsecond precision, UTC offset), so lexicographic comparison of
// two serialized instants equals chronological comparison. DynamoDB condition
// expressions rely on this when comparing stored lock timestamps.
const Layout = "2006-01-02T15:04:05.000000Z07:00"

// Clock returns the current instant.
type Clock interface {
	Now() time.Time
}

type utcClock struct{}

func (utcClock) Now() time.Time {
	return time.Now().UTC()
}

// New returns a Clock backed by the system wall clock, in UTC.
func New() Clock {
	return utcClock{}
}

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time {
	return c.now
}

// Fixed returns a Clock pinned to the given instant. Test use only.
func Fixed(now time.Time) Clock {
	return fixedClock{now: now.UTC()}
}

// Format serializes t using Layout, in UTC.
func Format(t time.Time) string {
	return t.UTC().Format(Layout)
}
