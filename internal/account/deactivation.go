package account

import (
	"strings"
	"time"
)

// DeactivatedUntil reports the moment an account becomes usable again, or nil
// when it is active. An account is active when until is unset or not after now.
func DeactivatedUntil(until *time.Time, now time.Time) *time.Time {
	if until == nil || until.IsZero() {
		return nil
	}

	if !until.After(now) {
		return nil
	}

	t := *until
	return &t
}

var deactivationLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseDeactivation accepts ISO-8601 timestamps. Anything it cannot parse
// yields nil, which callers treat as "no deactivation".
func ParseDeactivation(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	for _, layout := range deactivationLayouts {
		t, err := time.Parse(layout, raw)
		if err == nil {
			t = t.UTC()
			return &t
		}
	}

	return nil
}
