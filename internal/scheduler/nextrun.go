package scheduler

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/magharvest/magharvest/internal/model"
)

// defaultWeeklyTime is the fire time for weekly values that omit one.
const (
	defaultWeeklyHour   = 9
	defaultWeeklyMinute = 0
)

// NextRun computes the next fire time for a recurrence rule, evaluated at
// now. lastRun anchors interval schedules and is nil before the first run.
//
// An unrecognized kind or a malformed value falls back to now plus one hour
// rather than erroring; a definition with a bad rule keeps rescheduling
// instead of wedging the poll loop.
func NextRun(kind model.ScheduleKind, value string, lastRun *time.Time, now time.Time) time.Time {
	switch kind {
	case model.ScheduleDaily:
		hour, minute, err := parseClock(value)
		if err != nil {
			break
		}
		next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
		if !next.After(now) {
			next = next.AddDate(0, 0, 1)
		}
		return next

	case model.ScheduleWeekly:
		weekday, hour, minute, err := parseWeekly(value)
		if err != nil {
			break
		}
		daysAhead := (weekday - int(now.Weekday()) + 7) % 7
		next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location()).AddDate(0, 0, daysAhead)
		if !next.After(now) {
			next = next.AddDate(0, 0, 7)
		}
		return next

	case model.ScheduleInterval:
		minutes, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil || minutes <= 0 {
			break
		}
		d := time.Duration(minutes) * time.Minute
		if lastRun != nil {
			return lastRun.Add(d)
		}
		return now.Add(d)
	}

	return now.Add(time.Hour)
}

// ValidateSchedule rejects rules NextRun would only be able to serve via the
// one-hour fallback. Used at definition add/update time so bad rules are
// surfaced to the caller instead of silently degrading.
func ValidateSchedule(kind model.ScheduleKind, value string) error {
	switch kind {
	case model.ScheduleDaily:
		_, _, err := parseClock(value)
		return err
	case model.ScheduleWeekly:
		_, _, _, err := parseWeekly(value)
		return err
	case model.ScheduleInterval:
		minutes, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil || minutes <= 0 {
			return fmt.Errorf("interval value must be a positive minute count: %q", value)
		}
		return nil
	default:
		return fmt.Errorf("unknown schedule kind: %q", kind)
	}
}

// parseClock parses an "HH:MM" wall-clock time.
func parseClock(value string) (hour, minute int, err error) {
	parts := strings.SplitN(strings.TrimSpace(value), ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("time must be HH:MM: %q", value)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", value)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", value)
	}
	return hour, minute, nil
}

// parseWeekly parses "D" or "D:HH:MM" where D is a weekday index with
// Sunday = 0. The time defaults to 09:00.
func parseWeekly(value string) (weekday, hour, minute int, err error) {
	day, clock, hasClock := strings.Cut(strings.TrimSpace(value), ":")
	weekday, err = strconv.Atoi(day)
	if err != nil || weekday < 0 || weekday > 6 {
		return 0, 0, 0, fmt.Errorf("weekday index must be in [0, 6]: %q", value)
	}
	if !hasClock {
		return weekday, defaultWeeklyHour, defaultWeeklyMinute, nil
	}
	hour, minute, err = parseClock(clock)
	if err != nil {
		return 0, 0, 0, err
	}
	return weekday, hour, minute, nil
}
