package cyclepoint

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Nominal calendar unit lengths used when flattening an ISO 8601 duration
// to seconds. Years and months are nominal, matching the interval parser
// the scheduler itself uses for trigger offsets.
const (
	secondsPerDay   = 24 * 60 * 60
	secondsPerWeek  = 7 * secondsPerDay
	secondsPerMonth = 30 * secondsPerDay
	secondsPerYear  = 365 * secondsPerDay
)

// ParseDuration parses an ISO 8601 duration (e.g. PT5M, PT4H30M, P1DT6H,
// P2W) into a time.Duration.
func ParseDuration(s string) (time.Duration, error) {
	orig := s
	if s == "" || (s[0] != 'P' && s[0] != 'p') {
		return 0, fmt.Errorf("invalid ISO 8601 duration %q", orig)
	}
	s = s[1:]

	var total int64
	inTime := false
	seenField := false
	for len(s) > 0 {
		if s[0] == 'T' || s[0] == 't' {
			inTime = true
			s = s[1:]
			continue
		}
		i := 0
		for i < len(s) && (s[i] >= '0' && s[i] <= '9' || s[i] == '.') {
			i++
		}
		if i == 0 || i == len(s) {
			return 0, fmt.Errorf("invalid ISO 8601 duration %q", orig)
		}
		value, err := strconv.ParseFloat(s[:i], 64)
		if err != nil {
			return 0, fmt.Errorf("invalid ISO 8601 duration %q: %w", orig, err)
		}
		unit := s[i]
		s = s[i+1:]
		seenField = true

		var scale int64
		switch {
		case !inTime && (unit == 'Y' || unit == 'y'):
			scale = secondsPerYear
		case !inTime && (unit == 'M' || unit == 'm'):
			scale = secondsPerMonth
		case !inTime && (unit == 'W' || unit == 'w'):
			scale = secondsPerWeek
		case !inTime && (unit == 'D' || unit == 'd'):
			scale = secondsPerDay
		case inTime && (unit == 'H' || unit == 'h'):
			scale = 3600
		case inTime && (unit == 'M' || unit == 'm'):
			scale = 60
		case inTime && (unit == 'S' || unit == 's'):
			scale = 1
		default:
			return 0, fmt.Errorf("invalid unit %q in ISO 8601 duration %q", string(unit), orig)
		}
		total += int64(value * float64(scale))
	}
	if !seenField {
		return 0, fmt.Errorf("empty ISO 8601 duration %q", orig)
	}
	return time.Duration(total) * time.Second, nil
}

// MustDuration is ParseDuration for trusted literals; it panics on error.
// Intended for tests and compiled-in defaults only.
func MustDuration(s string) time.Duration {
	d, err := ParseDuration(s)
	if err != nil {
		panic(err)
	}
	return d
}

// IsInteger reports whether a cycle point is a plain integer
// (integer-cycling suite), allowing a leading sign.
func IsInteger(point string) bool {
	s := strings.TrimPrefix(strings.TrimPrefix(point, "+"), "-")
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
