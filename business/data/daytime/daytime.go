// Package daytime implements service day arithmetic on the extended gtfs
// clock, where times run from 00:00:00 up to 28:59:59 so that early morning
// passages stay attached to the service day they belong to.
package daytime

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	// MaximumHour is the largest hour accepted on the extended clock.
	MaximumHour = 28

	// DayLayout is the yyyymmdd layout used for service days.
	DayLayout = "20060102"

	secondsInDay  = 24 * 60 * 60
	halfDay       = secondsInDay / 2
	earlyMorning  = 3 // observed hours below this belong to the prior service day
	extendedShift = 24 * 60 * 60
)

var networkLocation = loadNetworkLocation()

// loadNetworkLocation resolves the network's single fixed timezone.
func loadNetworkLocation() *time.Location {
	location, err := time.LoadLocation("Europe/Paris")
	if err != nil {
		return time.FixedZone("CET", 3600)
	}
	return location
}

// NetworkLocation returns the timezone every service day is interpreted in.
func NetworkLocation() *time.Location {
	return networkLocation
}

// DayTime pairs a service day in yyyymmdd format with a second count on the
// extended clock.
type DayTime struct {
	Day     string
	Seconds int
}

// ParseExtended parses an extended clock string in hh:mm:ss format.
// Hours from 0 to MaximumHour are accepted, anything else is rejected.
func ParseExtended(value string) (int, error) {
	parts := strings.Split(value, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("expected hh:mm:ss in extended time %q", value)
	}
	hours, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("bad hours in extended time %q: %v", value, err)
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("bad minutes in extended time %q: %v", value, err)
	}
	seconds, err := strconv.Atoi(parts[2])
	if err != nil {
		return 0, fmt.Errorf("bad seconds in extended time %q: %v", value, err)
	}
	if hours < 0 || hours > MaximumHour {
		return 0, fmt.Errorf("hours out of range in extended time %q", value)
	}
	if minutes < 0 || minutes > 59 || seconds < 0 || seconds > 59 {
		return 0, fmt.Errorf("minutes or seconds out of range in extended time %q", value)
	}
	return hours*3600 + minutes*60 + seconds, nil
}

// FormatExtended renders a second count as an extended clock string.
func FormatExtended(seconds int) string {
	return fmt.Sprintf("%02d:%02d:%02d", seconds/3600, (seconds/60)%60, seconds%60)
}

// ParseDay parses a yyyymmdd service day at midnight network time.
func ParseDay(day string) (time.Time, error) {
	return time.ParseInLocation(DayLayout, day, networkLocation)
}

// FormatDay renders the calendar date of t as a yyyymmdd service day.
func FormatDay(t time.Time) string {
	return t.Format(DayLayout)
}

// FromWallClock reduces an observed wall clock moment to its service day.
// Hours before 3am reinterpret as the previous service day with 24 added to
// the hour, so 2016-07-01 01:32 becomes day 20160630 at 25:32:00.
func FromWallClock(t time.Time) DayTime {
	seconds := t.Hour()*3600 + t.Minute()*60 + t.Second()
	if t.Hour() < earlyMorning {
		return DayTime{
			Day:     FormatDay(t.AddDate(0, 0, -1)),
			Seconds: seconds + extendedShift,
		}
	}
	return DayTime{Day: FormatDay(t), Seconds: seconds}
}

// WallClock converts the DayTime back to a wall clock instant in network time.
// Extended hours past 24 land on the next calendar day.
func (d DayTime) WallClock() (time.Time, error) {
	midnight, err := ParseDay(d.Day)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad service day %q: %w", d.Day, err)
	}
	return time.Date(midnight.Year(), midnight.Month(), midnight.Day(),
		0, 0, d.Seconds, 0, networkLocation), nil
}

// DelayFrom returns the signed number of seconds separating the wall clock
// instant at from the extended moment d. Positive when at is later.
func DelayFrom(at time.Time, d DayTime) (int, error) {
	moment, err := d.WallClock()
	if err != nil {
		return 0, err
	}
	return int(at.Sub(moment) / time.Second), nil
}

// DelayBetween returns real minus scheduled in signed seconds, each side an
// extended moment on its own service day.
func DelayBetween(real DayTime, scheduled DayTime) (int, error) {
	realMoment, err := real.WallClock()
	if err != nil {
		return 0, err
	}
	scheduledMoment, err := scheduled.WallClock()
	if err != nil {
		return 0, err
	}
	return int(realMoment.Sub(scheduledMoment) / time.Second), nil
}

// CompareClock returns real minus scheduled in signed seconds from two clock
// strings with no day attached. A difference above twelve hours is taken as a
// midnight crossing and wrapped, so 23:59:00 against 00:01:00 yields 120.
func CompareClock(scheduled string, real string) (int, error) {
	scheduledSeconds, err := ParseExtended(scheduled)
	if err != nil {
		return 0, err
	}
	realSeconds, err := ParseExtended(real)
	if err != nil {
		return 0, err
	}
	// bring extended hours back onto the plain clock before wrapping
	scheduledSeconds %= secondsInDay
	realSeconds %= secondsInDay

	diff := realSeconds - scheduledSeconds
	if diff > halfDay {
		diff -= secondsInDay
	} else if diff < -halfDay {
		diff += secondsInDay
	}
	return diff, nil
}
