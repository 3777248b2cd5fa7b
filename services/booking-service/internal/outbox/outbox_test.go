package outbox

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/md-rashed-zaman/apptbook/libs/kafkax"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleAppointment() model.Appointment {
	return model.Appointment{
		ID:        7,
		Name:      "Alice",
		Email:     "alice@example.com",
		Phone:     "555-0100",
		Service:   "Consultation",
		Date:      time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		Time:      model.TimeOfDay{Hour: 9},
		Status:    model.StatusConfirmed,
		CreatedAt: time.Date(2025, 2, 20, 8, 0, 0, 0, time.UTC),
	}
}

func TestAppointmentStatusChangedPayload(t *testing.T) {
	at := time.Date(2025, 2, 21, 10, 0, 0, 0, time.UTC)
	evt, err := AppointmentStatusChanged(sampleAppointment(), model.StatusPending, at)
	require.NoError(t, err)

	assert.Equal(t, AggregateAppointment, evt.AggregateType)
	assert.Equal(t, "7", evt.AggregateID)
	assert.Equal(t, TypeAppointmentStatusChanged, evt.EventType)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(evt.Payload, &payload))
	assert.Equal(t, "2025-03-01", payload["date"])
	assert.Equal(t, "09:00", payload["time"])
	assert.Equal(t, "Confirmed", payload["status"])
	assert.Equal(t, "Pending", payload["previous_status"])
	assert.Equal(t, "2025-02-21T10:00:00Z", payload["occurred_at"])
}

func TestBookedEventOmitsPreviousStatus(t *testing.T) {
	evt, err := AppointmentBooked(sampleAppointment())
	require.NoError(t, err)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(evt.Payload, &payload))
	_, ok := payload["previous_status"]
	assert.False(t, ok)
	assert.Equal(t, "2025-02-20T08:00:00Z", payload["occurred_at"])
}

func TestBuildMessage(t *testing.T) {
	rec := Record{
		ID:          1,
		EventID:     "0b6f7c1e-1111-4a4a-9a9a-123456789abc",
		AggregateID: "7",
		EventType:   TypeAppointmentDeleted,
		Payload:     []byte(`{"appointment_id":7}`),
		Traceparent: "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01",
		CreatedAt:   time.Date(2025, 2, 21, 10, 0, 0, 0, time.UTC),
	}
	msg := buildMessage(context.Background(), rec)

	assert.Equal(t, TypeAppointmentDeleted, msg.Topic)
	assert.Equal(t, []byte("7"), msg.Key)
	assert.Equal(t, rec.Payload, msg.Value)
	assert.Equal(t, rec.EventID, kafkax.HeaderValue(msg.Headers, "event_id"))
	assert.Equal(t, TypeAppointmentDeleted, kafkax.HeaderValue(msg.Headers, "event_type"))
}
