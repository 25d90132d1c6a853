// Package schedule runs jobs at a fixed wall-clock time each day, with a
// persisted watermark so a trigger missed while the process was down still
// fires once on the next check.
package schedule

import (
	"fmt"
	"time"

	"github.com/rogerio-castellano/warehouse-ledger/internal/config"
)

type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// DailyTrigger is a time of day in a given zone.
type DailyTrigger struct {
	Hour     int
	Minute   int
	Location *time.Location
}

// ParseTrigger builds a trigger from an "HH:MM" clock string.
func ParseTrigger(clock string, loc *time.Location) (DailyTrigger, error) {
	h, m, err := config.ParseClock(clock)
	if err != nil {
		return DailyTrigger{}, err
	}
	if loc == nil {
		loc = time.Local
	}
	return DailyTrigger{Hour: h, Minute: m, Location: loc}, nil
}

func (t DailyTrigger) String() string {
	return fmt.Sprintf("%02d:%02d %s", t.Hour, t.Minute, t.loc())
}

func (t DailyTrigger) loc() *time.Location {
	if t.Location == nil {
		return time.Local
	}
	return t.Location
}

// LastInstant returns the most recent trigger instant at or before now.
func (t DailyTrigger) LastInstant(now time.Time) time.Time {
	local := now.In(t.loc())
	instant := time.Date(local.Year(), local.Month(), local.Day(), t.Hour, t.Minute, 0, 0, t.loc())
	if instant.After(local) {
		instant = time.Date(local.Year(), local.Month(), local.Day()-1, t.Hour, t.Minute, 0, 0, t.loc())
	}
	return instant
}

// Next returns the first trigger instant strictly after now.
func (t DailyTrigger) Next(now time.Time) time.Time {
	last := t.LastInstant(now)
	return time.Date(last.Year(), last.Month(), last.Day()+1, t.Hour, t.Minute, 0, 0, t.loc())
}
