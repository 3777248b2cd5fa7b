package booking

import (
	"fmt"
	"time"

	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/model"
)

// ValidationError reports a missing or oversized submission field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// ParseError reports a date, time or id that is not in the expected form.
type ParseError struct {
	Field string
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s %q: %v", e.Field, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ConflictError reports that the requested slot already has an appointment.
// errors.Is(err, model.ErrSlotTaken) holds for it.
type ConflictError struct {
	Date time.Time
	Time model.TimeOfDay
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("slot %s %s: %v", e.Date.Format(model.DateLayout), e.Time, model.ErrSlotTaken)
}

func (e *ConflictError) Unwrap() error { return model.ErrSlotTaken }

// StoreError wraps an infrastructure failure while talking to the store.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }
