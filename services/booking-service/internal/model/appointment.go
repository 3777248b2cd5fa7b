package model

import (
	"fmt"
	"time"
)

const (
	StatusPending   = "Pending"
	StatusConfirmed = "Confirmed"
	StatusCancelled = "Cancelled"
	StatusCompleted = "Completed"
)

// KnownStatuses are the values the dashboard offers. Status is free text; any other
// value an operator submits is stored as given.
var KnownStatuses = []string{StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted}

// Column limits shared by both store backends.
const (
	MaxNameLen    = 100
	MaxEmailLen   = 120
	MaxPhoneLen   = 20
	MaxServiceLen = 100
	MaxStatusLen  = 20
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

type Appointment struct {
	ID        int64
	Name      string
	Email     string
	Phone     string
	Service   string
	Date      time.Time // calendar date at UTC midnight
	Time      TimeOfDay
	Message   string
	Status    string
	CreatedAt time.Time
}

// DateString renders Date in YYYY-MM-DD form.
func (a Appointment) DateString() string {
	return a.Date.Format(DateLayout)
}

// TimeOfDay is a wall clock time with minute precision and no zone.
type TimeOfDay struct {
	Hour   int
	Minute int
}

func ParseDate(s string) (time.Time, error) {
	d, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, err
	}
	return d, nil
}

func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse(TimeLayout, s)
	if err != nil {
		return TimeOfDay{}, err
	}
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}, nil
}

// TimeOfDayFromMinutes converts minutes since midnight.
func TimeOfDayFromMinutes(m int) TimeOfDay {
	return TimeOfDay{Hour: m / 60, Minute: m % 60}
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

func (t TimeOfDay) Minutes() int {
	return t.Hour*60 + t.Minute
}

func (t TimeOfDay) Before(o TimeOfDay) bool {
	return t.Minutes() < o.Minutes()
}

// On returns the instant the time of day falls on date, in date's location.
func (t TimeOfDay) On(date time.Time) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, t.Hour, t.Minute, 0, 0, date.Location())
}
