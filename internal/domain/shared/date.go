package shared

import "time"

// DateOf truncates t to its calendar date in t's location and returns it as
// midnight UTC, so that dates from different zones compare by day only.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DatePtr normalizes an optional date with DateOf.
func DatePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := DateOf(*t)
	return &d
}

// SameDate reports whether two optional dates denote the same calendar day.
func SameDate(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return DateOf(*a).Equal(DateOf(*b))
}

// Clock returns the current time. Services accept one so tests can pin "today".
type Clock func() time.Time

// SystemClock is the wall clock.
func SystemClock() time.Time { return time.Now() }
