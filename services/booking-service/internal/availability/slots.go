package availability

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/model"
)

// Hours is the bookable part of a day: start times from Open up to but excluding Close,
// every Step.
type Hours struct {
	Open  model.TimeOfDay
	Close model.TimeOfDay
	Step  time.Duration
}

// ParseHours reads "HH:MM-HH:MM".
func ParseHours(raw string, step time.Duration) (Hours, error) {
	openRaw, closeRaw, ok := strings.Cut(strings.TrimSpace(raw), "-")
	if !ok {
		return Hours{}, fmt.Errorf("opening hours %q: want HH:MM-HH:MM", raw)
	}
	open, err := model.ParseTimeOfDay(strings.TrimSpace(openRaw))
	if err != nil {
		return Hours{}, fmt.Errorf("opening hours %q: %w", raw, err)
	}
	closing, err := model.ParseTimeOfDay(strings.TrimSpace(closeRaw))
	if err != nil {
		return Hours{}, fmt.Errorf("opening hours %q: %w", raw, err)
	}
	if !open.Before(closing) {
		return Hours{}, errors.New("opening hours must open before they close")
	}
	if step < time.Minute || step%time.Minute != 0 {
		return Hours{}, fmt.Errorf("slot step %s must be a whole number of minutes", step)
	}
	return Hours{Open: open, Close: closing, Step: step}, nil
}

// FreeTimes returns the start times on date that are inside h, not yet booked and not
// before now. A slot is taken only by an appointment at exactly that time.
func FreeTimes(date time.Time, h Hours, booked []model.TimeOfDay, now time.Time) []model.TimeOfDay {
	step := int(h.Step / time.Minute)
	if step <= 0 || !h.Open.Before(h.Close) {
		return nil
	}

	taken := make(map[int]struct{}, len(booked))
	for _, b := range booked {
		taken[b.Minutes()] = struct{}{}
	}

	var free []model.TimeOfDay
	for m := h.Open.Minutes(); m < h.Close.Minutes(); m += step {
		t := model.TimeOfDayFromMinutes(m)
		if t.On(date).Before(now) {
			continue
		}
		if _, ok := taken[m]; ok {
			continue
		}
		free = append(free, t)
	}
	return free
}
