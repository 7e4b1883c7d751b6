package roster

import "time"

// DateLayout is the wire format for calendar dates. All dates are
// UTC-anchored day granularity.
const DateLayout = "2006-01-02"

// ParseDate validates a YYYY-MM-DD string and returns its canonical form.
// The value must round-trip through calendar reconstruction, so day 31 of
// a 30-day month is rejected even though it parses structurally.
func ParseDate(s string) (string, error) {
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil || t.Format(DateLayout) != s {
		return "", &DateError{Value: s}
	}
	return s, nil
}

// Today returns the current UTC date in wire format.
func Today() string {
	return time.Now().UTC().Format(DateLayout)
}
