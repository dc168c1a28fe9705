package domain

import (
	"fmt"
	"strings"
	"time"
)

// Offer is one promotional period: the promoted game's title and the
// instant the promotion ends. FreeUntil is always UTC; anything read from
// the page or from storage is normalized before it becomes an Offer.
type Offer struct {
	Title     string
	FreeUntil time.Time
}

// Decision is the outcome of comparing a fresh extraction against the
// last stored offer.
type Decision int

const (
	// DecisionFailed means extraction did not produce an offer.
	DecisionFailed Decision = iota
	// DecisionNew means the extracted offer differs from the stored one.
	DecisionNew
	// DecisionUnchanged means the stored offer is still the live one.
	DecisionUnchanged
)

func (d Decision) String() string {
	switch d {
	case DecisionNew:
		return "new"
	case DecisionUnchanged:
		return "unchanged"
	default:
		return "failed"
	}
}

// Decide compares an extracted offer against the last stored offer.
// extracted == nil means extraction failed. Equality is by title only:
// repeated scrapes of the same live offer can render the expiry slightly
// differently, and that must not count as a new offer.
func Decide(extracted, stored *Offer) Decision {
	switch {
	case extracted == nil:
		return DecisionFailed
	case stored == nil || stored.Title != extracted.Title:
		return DecisionNew
	default:
		return DecisionUnchanged
	}
}

// timestampLayouts are tried in order by ParseTimestamp after offset
// normalization. The storefront's datetime attribute has been seen both
// with and without fractional seconds.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05.000-07:00",
	"2006-01-02T15:04-07:00",
	"2006-01-02 15:04:05-07:00",
}

// ParseTimestamp decodes an ISO-8601 timestamp into a UTC instant.
// A trailing literal "UTC" or "Z" marker is rewritten to an explicit
// +00:00 offset first, so both machine and cosmetic renderings parse
// to the same instant.
func ParseTimestamp(s string) (time.Time, error) {
	norm := strings.TrimSpace(s)
	switch {
	case strings.HasSuffix(norm, "UTC"):
		norm = strings.TrimSpace(strings.TrimSuffix(norm, "UTC")) + "+00:00"
	case strings.HasSuffix(norm, "Z"):
		norm = strings.TrimSuffix(norm, "Z") + "+00:00"
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, norm); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// FormatTimestamp is the canonical storage encoding: RFC 3339 in UTC.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
