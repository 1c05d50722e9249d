// Package query builds lexical query fragments for the full-text index.
package query

import (
	"fmt"
	"strings"
	"time"
)

const dateLayout = "2006-01-02T15:04:05"

// Sentinel bounds used when a range end is not given. They are emitted verbatim.
const (
	ZeroDate   = `1970\-01\-01T00:00:00`
	FutureDate = `3000\-12\-31T00:00:00`
)

var queryEscaper = strings.NewReplacer("-", `\-`)

// FormatDate formats t as YYYY-MM-DDTHH:mm:ss in t's own location, with hyphens
// escaped for the query parser (2020\-01\-01T00:00:00).
func FormatDate(t time.Time) string {
	return queryEscaper.Replace(t.Format(dateLayout))
}

var parseLayouts = []string{
	time.RFC3339Nano,
	dateLayout,
	"2006-01-02",
}

// ParseDate parses RFC 3339, YYYY-MM-DDTHH:mm:ss or YYYY-MM-DD. Values without
// an offset are read as UTC. An empty string yields the zero time.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range parseLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}
