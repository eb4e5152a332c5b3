// Package cyclepoint handles cycle point parsing, path-template token
// substitution, and wall-clock arithmetic.
//
// A cycle point identifies one iteration of a recurring schedule. It is
// either a calendar timestamp (ISO 8601, basic or extended form) or a plain
// integer string for integer-cycling suites. Integer points never parse as
// timestamps, so calendar-only operations silently pass them through.
package cyclepoint

import (
	"fmt"
	"strings"
	"time"
)

// Layouts accepted for calendar cycle points, tried in order. Layouts
// without a zone designator parse as "unknown zone"; see PointAsSeconds
// for how that is corrected.
var pointLayouts = []struct {
	layout string
	zoned  bool
}{
	{"20060102T150405Z07:00", true},
	{"20060102T150405Z0700", true},
	{"20060102T1504Z0700", true},
	{"2006-01-02T15:04:05Z07:00", true},
	{"2006-01-02T15:04Z07:00", true},
	{"20060102T150405", false},
	{"20060102T1504", false},
	{"20060102T15", false},
	{"2006-01-02T15:04:05", false},
	{"2006-01-02T15:04", false},
	{"20060102", false},
	{"2006-01-02", false},
}

// Parse interprets a cycle point as a calendar timestamp.
// The second return value reports whether the point carried an explicit
// time zone. Integer points and anything else non-calendar return an error.
func Parse(point string) (time.Time, bool, error) {
	for _, l := range pointLayouts {
		t, err := time.Parse(l.layout, point)
		if err == nil {
			return t, l.zoned, nil
		}
	}
	return time.Time{}, false, fmt.Errorf("cannot parse cycle point %q as a timestamp", point)
}

// Substitute expands path-template tokens from the calendar fields of the
// given cycle point:
//
//	&Y year, &m month, &d day, &H hour, &M minute
//	&0m &0d &0H &0M zero-padded to width 2
//
// A point that does not parse as a calendar timestamp (integer cycling)
// leaves the template untouched. This is silent, not an error.
func Substitute(template, point string) string {
	t, _, err := Parse(point)
	if err != nil {
		return template
	}
	r := strings.NewReplacer(
		"&Y", fmt.Sprintf("%d", t.Year()),
		"&0m", fmt.Sprintf("%02d", int(t.Month())),
		"&m", fmt.Sprintf("%d", int(t.Month())),
		"&0d", fmt.Sprintf("%02d", t.Day()),
		"&d", fmt.Sprintf("%d", t.Day()),
		"&0H", fmt.Sprintf("%02d", t.Hour()),
		"&H", fmt.Sprintf("%d", t.Hour()),
		"&0M", fmt.Sprintf("%02d", t.Minute()),
		"&M", fmt.Sprintf("%d", t.Minute()),
	)
	return r.Replace(template)
}

// PointAsSeconds converts a cycle point to Unix seconds. A point with no
// explicit time zone is corrected by the local UTC offset, matching how the
// owning scheduler anchors zone-less points.
func PointAsSeconds(point string) (int64, error) {
	t, zoned, err := Parse(point)
	if err != nil {
		return 0, err
	}
	secs := t.Unix()
	if !zoned {
		_, offset := time.Now().Zone()
		secs += int64(offset)
	}
	return secs, nil
}
