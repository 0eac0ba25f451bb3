package scheduler

import (
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// ErrInvalidTrigger is returned by Submit when a trigger cannot fire,
// e.g. an Interval with a zero-length period.
var ErrInvalidTrigger = errors.New("scheduler: invalid trigger")

type triggerKind int

const (
	kindImmediate triggerKind = iota
	kindInterval
	kindAt
	kindCustom
)

// Trigger declares when a job fires. Build one with Immediate, Interval,
// At, Cron or Custom; the zero value is an Immediate trigger.
type Trigger struct {
	kind triggerKind

	seconds int
	minutes int
	hours   int

	at time.Time

	custom cron.Schedule
}

// Immediate fires once, as soon as possible.
func Immediate() Trigger {
	return Trigger{kind: kindImmediate}
}

// Interval fires repeatedly every seconds + 60*minutes + 3600*hours.
func Interval(seconds, minutes, hours int) Trigger {
	return Trigger{kind: kindInterval, seconds: seconds, minutes: minutes, hours: hours}
}

// Every is shorthand for an interval trigger from a duration.
func Every(d time.Duration) Trigger {
	return Interval(int(d/time.Second), 0, 0)
}

// At fires exactly once at the given point in time. A time already in the
// past fires immediately rather than being skipped.
func At(t time.Time) Trigger {
	return Trigger{kind: kindAt, at: t}
}

// Cron fires on a standard 5-field cron expression.
func Cron(expr string) (Trigger, error) {
	sched, err := cron.ParseStandard(expr)
	if err != nil {
		return Trigger{}, fmt.Errorf("%w: parse cron expression %q: %v", ErrInvalidTrigger, expr, err)
	}
	return Custom(sched), nil
}

// Custom wraps a caller-supplied schedule; the scheduler treats it as
// opaque and only asks it for the next fire time.
func Custom(sched cron.Schedule) Trigger {
	return Trigger{kind: kindCustom, custom: sched}
}

func (t Trigger) period() time.Duration {
	return time.Duration(t.seconds)*time.Second +
		time.Duration(t.minutes)*time.Minute +
		time.Duration(t.hours)*time.Hour
}

func (t Trigger) validate() error {
	switch t.kind {
	case kindInterval:
		if t.period() <= 0 {
			return fmt.Errorf("%w: interval has zero length", ErrInvalidTrigger)
		}
	case kindAt:
		if t.at.IsZero() {
			return fmt.Errorf("%w: trigger date not set", ErrInvalidTrigger)
		}
	case kindCustom:
		if t.custom == nil {
			return fmt.Errorf("%w: nil custom schedule", ErrInvalidTrigger)
		}
	}
	return nil
}

// first returns the initial fire time after submission at now.
func (t Trigger) first(now time.Time) (time.Time, bool) {
	switch t.kind {
	case kindImmediate:
		return now, true
	case kindInterval:
		return now.Add(t.period()), true
	case kindAt:
		return t.at, true
	case kindCustom:
		next := t.custom.Next(now)
		return next, !next.IsZero()
	}
	return time.Time{}, false
}

// next returns the fire time following prev, or false for one-shot
// triggers that are spent.
func (t Trigger) next(prev, now time.Time) (time.Time, bool) {
	switch t.kind {
	case kindImmediate, kindAt:
		return time.Time{}, false
	case kindInterval:
		return prev.Add(t.period()), true
	case kindCustom:
		next := t.custom.Next(now)
		return next, !next.IsZero()
	}
	return time.Time{}, false
}

func (t Trigger) String() string {
	switch t.kind {
	case kindImmediate:
		return "immediate"
	case kindInterval:
		return fmt.Sprintf("interval %ds %dm %dh", t.seconds, t.minutes, t.hours)
	case kindAt:
		return "date " + t.at.Format(time.RFC3339)
	case kindCustom:
		return "custom"
	}
	return "unknown"
}
