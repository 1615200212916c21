package market

import (
	"fmt"
	"strings"
	"time"

	// Session zones must resolve on hosts without a zoneinfo database.
	_ "time/tzdata"
)

// Session is a daily trading window in a fixed location. Open and Close are
// offsets from local midnight. A zero-length session means "trade all day"
// and disables time-of-day filtering.
type Session struct {
	Location *time.Location
	Open     time.Duration
	Close    time.Duration
}

// RTH is the US equity-index regular trading session.
func RTH() Session {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		loc = time.UTC
	}
	return Session{Location: loc, Open: 9*time.Hour + 30*time.Minute, Close: 16 * time.Hour}
}

// ParseSession builds a session from a timezone name and "HH:MM" clock strings.
// Empty open and close produce an all-day session.
func ParseSession(tz, open, close string) (Session, error) {
	loc := time.UTC
	if tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			return Session{}, fmt.Errorf("session timezone %q: %w", tz, err)
		}
		loc = l
	}
	if open == "" && close == "" {
		return Session{Location: loc}, nil
	}

	o, err := parseClock(open)
	if err != nil {
		return Session{}, fmt.Errorf("session open: %w", err)
	}
	c, err := parseClock(close)
	if err != nil {
		return Session{}, fmt.Errorf("session close: %w", err)
	}
	if c <= o {
		return Session{}, fmt.Errorf("session close %s must be after open %s", close, open)
	}
	return Session{Location: loc, Open: o, Close: c}, nil
}

func parseClock(s string) (time.Duration, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("bad clock %q (want HH:MM)", s)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

// Bounded reports whether the session has an open and close time.
func (s Session) Bounded() bool {
	return s.Close > s.Open
}

func (s Session) loc() *time.Location {
	if s.Location == nil {
		return time.UTC
	}
	return s.Location
}

// Day returns local midnight of the trading day containing t. Two bars belong
// to the same day when their Day values are Equal.
func (s Session) Day(t time.Time) time.Time {
	lt := t.In(s.loc())
	return time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, s.loc())
}

// SinceMidnight is the local clock time of t as an offset from midnight.
func (s Session) SinceMidnight(t time.Time) time.Duration {
	lt := t.In(s.loc())
	return time.Duration(lt.Hour())*time.Hour +
		time.Duration(lt.Minute())*time.Minute +
		time.Duration(lt.Second())*time.Second +
		time.Duration(lt.Nanosecond())
}

// Contains reports whether t falls inside [Open, Close]. Unbounded sessions
// contain every instant.
func (s Session) Contains(t time.Time) bool {
	if !s.Bounded() {
		return true
	}
	m := s.SinceMidnight(t)
	return m >= s.Open && m <= s.Close
}

// Length is the session duration, 24h when unbounded.
func (s Session) Length() time.Duration {
	if !s.Bounded() {
		return 24 * time.Hour
	}
	return s.Close - s.Open
}

func (s Session) String() string {
	if !s.Bounded() {
		return fmt.Sprintf("all-day %s", s.loc())
	}
	return fmt.Sprintf("%s-%s %s", clock(s.Open), clock(s.Close), s.loc())
}

func clock(d time.Duration) string {
	return fmt.Sprintf("%02d:%02d", int(d.Hours()), int(d.Minutes())%60)
}
