// Package shared holds small cross-cutting helpers.
package shared

import (
	"fmt"
	"time"
)

// ISODate is the wire format for all dates.
const ISODate = "2006-01-02"

// ParseISODate parses a YYYY-MM-DD string into a UTC date.
func ParseISODate(value string) (time.Time, error) {
	t, err := time.Parse(ISODate, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", value)
	}
	return t.UTC(), nil
}

// Today returns the current UTC date truncated to midnight.
func Today() time.Time {
	return time.Now().UTC().Truncate(24 * time.Hour)
}
