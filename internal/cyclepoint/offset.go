package cyclepoint

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// AddOffset shifts a cycle point by an ISO 8601 interval, rendering the
// result in the same layout the point arrived in. Calendar points take
// calendar intervals (e.g. -PT6H, P1D); integer points take cycle-count
// intervals (e.g. P1, -P3). An empty offset returns the point unchanged.
func AddOffset(point, offset string) (string, error) {
	if offset == "" {
		return point, nil
	}
	neg := strings.HasPrefix(offset, "-")
	abs := strings.TrimPrefix(strings.TrimPrefix(offset, "-"), "+")

	if t, layout, err := parseLayout(point); err == nil {
		d, err := ParseDuration(abs)
		if err != nil {
			return "", fmt.Errorf("bad cycle offset %q: %w", offset, err)
		}
		if neg {
			d = -d
		}
		return t.Add(d).Format(layout), nil
	}

	if !IsInteger(point) {
		return "", fmt.Errorf("cannot offset cycle point %q", point)
	}
	n, err := strconv.Atoi(strings.TrimPrefix(abs, "P"))
	if err != nil {
		return "", fmt.Errorf("bad integer cycle offset %q: %w", offset, err)
	}
	base, err := strconv.Atoi(point)
	if err != nil {
		return "", fmt.Errorf("bad integer cycle point %q: %w", point, err)
	}
	if neg {
		n = -n
	}
	return strconv.Itoa(base + n), nil
}

// parseLayout is Parse, but also reports which layout matched so the
// caller can re-render a shifted point in the same form.
func parseLayout(point string) (time.Time, string, error) {
	for _, l := range pointLayouts {
		t, err := time.Parse(l.layout, point)
		if err == nil {
			return t, l.layout, nil
		}
	}
	return time.Time{}, "", fmt.Errorf("cannot parse cycle point %q as a timestamp", point)
}
