package agenda

import "time"

// Calendar answers "what day is it" in the business's time zone.
type Calendar struct {
	loc *time.Location
	now func() time.Time
}

// NewCalendar loads tz, falling back to a fixed UTC-3 offset when the zone database does
// not know it.
func NewCalendar(tz string) *Calendar {
	loc, err := time.LoadLocation(tz)
	if err != nil || tz == "" {
		loc = time.FixedZone("ART", -3*60*60)
	}
	return &Calendar{loc: loc, now: time.Now}
}

// FixedCalendar always reports the given instant. Tests use it.
func FixedCalendar(loc *time.Location, at time.Time) *Calendar {
	return &Calendar{loc: loc, now: func() time.Time { return at }}
}

// Today returns the local date as YYYY-MM-DD.
func (c *Calendar) Today() string {
	return c.now().In(c.loc).Format(DateLayout)
}

// Now returns the current instant in UTC.
func (c *Calendar) Now() time.Time {
	return c.now().UTC()
}

func (c *Calendar) Location() *time.Location { return c.loc }
