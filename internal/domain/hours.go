package domain

import (
	"strconv"
	"strings"
	"time"
)

// Status classifies whether a facility is usable right now.
type Status string

const (
	StatusOpen        Status = "open"
	StatusClosingSoon Status = "closing_soon"
	StatusOpeningSoon Status = "opening_soon"
	StatusClosed      Status = "closed"
	StatusUnknown     Status = "unknown"
)

const (
	minutesPerDay = 24 * 60

	// soonWindowMinutes is the closing/opening-soon horizon.
	soonWindowMinutes = 30
)

// span is one day's hours in minutes since midnight. close may equal 1440
// ("2400"); close < open means the span crosses midnight.
type span struct {
	open  int
	close int
}

func (s span) wraps() bool { return s.close < s.open }

// alwaysOpen reports the registry's round-the-clock conventions: an open value
// equal to close (commonly "0000"/"0000"), or the explicit "0000"-"2400" pair.
func (s span) alwaysOpen() bool {
	return s.open == s.close || (s.open == 0 && s.close == minutesPerDay)
}

// StatusNow computes the facility's status at the current clock time.
func StatusNow(h WeeklyHours) Status {
	return StatusAt(h, clock.Now())
}

// StatusAt computes the facility's status at time t using the weekday columns.
// Unparseable or missing hours yield StatusUnknown, never an error.
func StatusAt(h WeeklyHours, t time.Time) Status {
	now := t.Hour()*60 + t.Minute()

	// The previous day's span may wrap past midnight into this morning,
	// e.g. a night pharmacy listed 0900-0200 is still open at 01:30.
	if sp, ok := parseSpan(h.Day(t.AddDate(0, 0, -1).Weekday())); ok && sp.wraps() && now < sp.close {
		return openStatus(sp.close - now)
	}

	sp, ok := parseSpan(h.Day(t.Weekday()))
	if !ok {
		return StatusUnknown
	}

	switch {
	case sp.alwaysOpen():
		return StatusOpen
	case sp.wraps():
		// Tonight's wrapped span: open from sp.open through midnight;
		// the morning tail is handled by tomorrow's previous-day check.
		if now >= sp.open {
			return openStatus(sp.close + minutesPerDay - now)
		}
	case now >= sp.open && now < sp.close:
		return openStatus(sp.close - now)
	}

	if now < sp.open && sp.open-now <= soonWindowMinutes {
		return StatusOpeningSoon
	}
	return StatusClosed
}

func openStatus(minutesToClose int) Status {
	if minutesToClose <= soonWindowMinutes {
		return StatusClosingSoon
	}
	return StatusOpen
}

// parseSpan parses a day's HHMM pair. ok is false when either side is missing
// or garbled.
func parseSpan(d DayHours) (span, bool) {
	open, okOpen := hhmmMinutes(d.Open)
	close, okClose := hhmmMinutes(d.Close)
	if !okOpen || !okClose {
		return span{}, false
	}
	return span{open: open, close: close}, true
}

// hhmmMinutes converts a registry HHMM string to minutes since midnight.
// Three-digit values are zero-padded ("930" → "0930"); "2400" maps to 1440.
func hhmmMinutes(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if len(s) == 3 {
		s = "0" + s
	}
	if len(s) != 4 {
		return 0, false
	}

	hour, errH := strconv.Atoi(s[:2])
	mins, errM := strconv.Atoi(s[2:])
	if errH != nil || errM != nil || mins < 0 || mins > 59 || hour < 0 || hour > 24 || (hour == 24 && mins != 0) {
		return 0, false
	}
	return hour*60 + mins, true
}
