// internal/schedule/window.go
package schedule

import (
	"fmt"
	"time"

	"github.com/paynudge/reminder-backend/internal/model"
)

// ParseClock parses a "HH:MM" call-window bound into minutes since midnight.
func ParseClock(v string) (int, error) {
	var h, m int
	if _, err := fmt.Sscanf(v, "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("invalid clock value %q: %w", v, err)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("clock value %q out of range", v)
	}
	return h*60 + m, nil
}

// WithinCallWindow reports whether now, converted to the account's timezone,
// falls on an allowed weekday inside [CallWindowStart, CallWindowEnd].
func WithinCallWindow(now time.Time, s *model.ReminderSettings) (bool, error) {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return false, fmt.Errorf("invalid timezone %q: %w", s.Timezone, err)
	}
	local := now.In(loc)

	dayAllowed := false
	for _, d := range s.DaysOfWeek {
		if int(local.Weekday()) == d {
			dayAllowed = true
			break
		}
	}
	if !dayAllowed {
		return false, nil
	}

	start, err := ParseClock(s.CallWindowStart)
	if err != nil {
		return false, err
	}
	end, err := ParseClock(s.CallWindowEnd)
	if err != nil {
		return false, err
	}
	minute := local.Hour()*60 + local.Minute()
	return minute >= start && minute <= end, nil
}
