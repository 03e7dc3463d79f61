// Package events holds the motion-event review logic: translating user
// filters into upstream queries and tracking per-viewer review sessions.
package events

import (
	"net/url"
	"strconv"
	"strings"
)

// DefaultLimit caps the event list when no explicit limit is configured.
const DefaultLimit = 60

// Filters are the user-entered list filters. All fields are optional; an
// empty field is omitted from the built query rather than widened to a
// wildcard. Date accepts a calendar day with or without separators
// (2024-05-01 or 20240501); StartTime and EndTime are HH:MM clock bounds.
type Filters struct {
	Camera    string
	Date      string
	StartTime string
	EndTime   string
	Limit     int
}

// Query canonicalizes the filters into the upstream query encoding: the date
// becomes an eight-digit YYYYMMDD token and the time bounds become six-digit
// HHMMSS tokens. StartTime gains "00" seconds and EndTime gains "59" seconds
// so that a minute entered as an end bound captures the whole minute. The
// result-count limit is always present.
func (f Filters) Query() url.Values {
	q := url.Values{}
	if f.Camera != "" {
		q.Set("camera", f.Camera)
	}
	if f.Date != "" {
		q.Set("date", strings.ReplaceAll(f.Date, "-", ""))
	}
	if f.StartTime != "" {
		q.Set("start_time", strings.ReplaceAll(f.StartTime, ":", "")+"00")
	}
	if f.EndTime != "" {
		q.Set("end_time", strings.ReplaceAll(f.EndTime, ":", "")+"59")
	}
	limit := f.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	q.Set("limit", strconv.Itoa(limit))
	return q
}

// Empty reports whether no narrowing filter is set.
func (f Filters) Empty() bool {
	return f.Camera == "" && f.Date == "" && f.StartTime == "" && f.EndTime == ""
}
