package outbox

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/model"
)

// Event is the domain event envelope written to the outbox table.
// The Kafka topic name equals EventType (one topic per event type).
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

const (
	AggregateAppointment = "appointment"

	TypeAppointmentBooked        = "appointment.booked"
	TypeAppointmentStatusChanged = "appointment.status_changed"
	TypeAppointmentDeleted       = "appointment.deleted"
)

type appointmentPayload struct {
	AppointmentID  int64     `json:"appointment_id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	Phone          string    `json:"phone"`
	Service        string    `json:"service"`
	Date           string    `json:"date"`
	Time           string    `json:"time"`
	Status         string    `json:"status"`
	PreviousStatus string    `json:"previous_status,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	OccurredAt     time.Time `json:"occurred_at"`
}

func AppointmentBooked(a model.Appointment) (Event, error) {
	return newAppointmentEvent(TypeAppointmentBooked, a, "", a.CreatedAt)
}

func AppointmentStatusChanged(a model.Appointment, previous string, at time.Time) (Event, error) {
	return newAppointmentEvent(TypeAppointmentStatusChanged, a, previous, at)
}

func AppointmentDeleted(a model.Appointment, at time.Time) (Event, error) {
	return newAppointmentEvent(TypeAppointmentDeleted, a, "", at)
}

func newAppointmentEvent(eventType string, a model.Appointment, previous string, at time.Time) (Event, error) {
	payload, err := json.Marshal(appointmentPayload{
		AppointmentID:  a.ID,
		Name:           a.Name,
		Email:          a.Email,
		Phone:          a.Phone,
		Service:        a.Service,
		Date:           a.DateString(),
		Time:           a.Time.String(),
		Status:         a.Status,
		PreviousStatus: previous,
		CreatedAt:      a.CreatedAt.UTC(),
		OccurredAt:     at.UTC(),
	})
	if err != nil {
		return Event{}, err
	}
	return Event{
		AggregateType: AggregateAppointment,
		AggregateID:   strconv.FormatInt(a.ID, 10),
		EventType:     eventType,
		Payload:       payload,
	}, nil
}
