package domain

import "time"

// FallbackHour is the UTC hour of the daily retry wake used when a cycle
// cannot derive a wake time from an observed expiry.
const FallbackHour = 10

// NextWake computes when the control loop should run again after observing
// freeUntil at instant now. On the success path that is exactly freeUntil,
// the moment the current promotion is expected to roll over. A non-positive
// delta (expiry already passed, or exactly now) means the page data is stale
// and the daily fallback applies instead; the returned bool reports whether
// the fallback was taken.
func NextWake(now, freeUntil time.Time) (time.Time, bool) {
	if freeUntil.After(now) {
		return freeUntil.UTC(), false
	}
	return FallbackWake(now), true
}

// FallbackWake returns 10:00 UTC on the calendar day after now. Retrying
// once a day keeps the loop from hammering the storefront after a failure
// while still guaranteeing forward progress.
func FallbackWake(now time.Time) time.Time {
	u := now.UTC().AddDate(0, 0, 1)
	return time.Date(u.Year(), u.Month(), u.Day(), FallbackHour, 0, 0, 0, time.UTC)
}
