// Package calendar provides the wall-clock Calendar seasonal events are checked against.
package calendar

import (
	"time"

	"github.com/jwebster45206/narrative-engine/pkg/event"
)

// System reads the current date from the system clock in a fixed location
type System struct {
	loc *time.Location
	now func() time.Time
}

var _ event.Calendar = (*System)(nil)

// NewSystem returns a calendar in loc; nil means UTC
func NewSystem(loc *time.Location) *System {
	if loc == nil {
		loc = time.UTC
	}
	return &System{loc: loc, now: time.Now}
}

// NewFixed returns a calendar stopped at t, in t's location
func NewFixed(t time.Time) *System {
	return &System{loc: t.Location(), now: func() time.Time { return t }}
}

func (s *System) Now() time.Time {
	return s.now().In(s.loc)
}

// InRange reports whether today falls inside the inclusive month/day range
func (s *System) InRange(startMonth, startDay, endMonth, endDay int) bool {
	t := s.Now()
	return event.DateInRange(int(t.Month()), t.Day(), startMonth, startDay, endMonth, endDay)
}

// Season returns the season of the current month
func (s *System) Season() event.Season {
	return event.SeasonOf(int(s.Now().Month()))
}
