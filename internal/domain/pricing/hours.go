package pricing

import (
	"fmt"
	"math"
	"strings"
	"time"
)

var clockLayouts = []string{
	"15:04",
	"15:04:05",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
}

// ManualHours resolves the billed driving hours a customer declared. An explicit value
// wins; otherwise the difference between start and end is used, clamped at zero. ok is
// false when nothing usable was given.
func ManualHours(explicit *float64, start, end string) (hours float64, ok bool) {
	if explicit != nil {
		return *explicit, true
	}
	if strings.TrimSpace(start) == "" || strings.TrimSpace(end) == "" {
		return 0, false
	}
	from, err := parseClock(start)
	if err != nil {
		return 0, false
	}
	to, err := parseClock(end)
	if err != nil {
		return 0, false
	}
	h := math.Max(to.Sub(from).Hours(), 0)
	return math.Round(h*100) / 100, true
}

func parseClock(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range clockLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time: %q", s)
}
