package event

import (
	"strings"
	"time"
)

// Calendar supplies the current date and the date-range predicate seasonal
// events are checked with
type Calendar interface {
	Now() time.Time
	InRange(startMonth, startDay, endMonth, endDay int) bool
}

type Season string

const (
	Spring Season = "spring"
	Summer Season = "summer"
	Autumn Season = "autumn"
	Winter Season = "winter"
)

// SeasonOf buckets a month: spring 3-5, summer 6-8, autumn 9-11, winter 12-2.
// Months outside 1-12 are not checked; callers validate first.
func SeasonOf(month int) Season {
	switch month {
	case 3, 4, 5:
		return Spring
	case 6, 7, 8:
		return Summer
	case 9, 10, 11:
		return Autumn
	default:
		return Winter
	}
}

// ParseSeason accepts a season name, including "fall" for autumn
func ParseSeason(s string) (Season, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "spring":
		return Spring, true
	case "summer":
		return Summer, true
	case "autumn", "fall":
		return Autumn, true
	case "winter":
		return Winter, true
	}
	return "", false
}

// DateInRange reports whether month/day falls inside the inclusive range.
// A range whose start is after its end wraps the year boundary.
func DateInRange(month, day, startMonth, startDay, endMonth, endDay int) bool {
	d := month*100 + day
	start := startMonth*100 + startDay
	end := endMonth*100 + endDay
	if start <= end {
		return start <= d && d <= end
	}
	return d >= start || d <= end
}
