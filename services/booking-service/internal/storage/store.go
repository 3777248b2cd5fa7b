package storage

import (
	"context"
	"time"

	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/model"
)

// Store is the appointment persistence contract implemented by the PostgreSQL and SQLite backends.
//
// Lookups that miss return model.ErrNotFound. Insert returns model.ErrSlotTaken when the
// (date, time) pair is already held by another appointment.
type Store interface {
	Insert(ctx context.Context, a *model.Appointment) error
	FindConflict(ctx context.Context, date time.Time, at model.TimeOfDay) (model.Appointment, bool, error)
	FindByID(ctx context.Context, id int64) (model.Appointment, error)
	FindLatestByEmail(ctx context.Context, email string) (model.Appointment, error)
	FindByIDAndEmail(ctx context.Context, id int64, email string) (model.Appointment, error)
	ListAll(ctx context.Context) ([]model.Appointment, error)
	ListByDate(ctx context.Context, date time.Time) ([]model.Appointment, error)
	UpdateStatus(ctx context.Context, id int64, status string) (model.Appointment, error)
	Delete(ctx context.Context, id int64) error
	Ping(ctx context.Context) error
	Close()
}

var (
	_ Store = (*PostgresStore)(nil)
	_ Store = (*SQLiteStore)(nil)
)

const appointmentColumns = `id, name, email, phone, service, appointment_date, appointment_time, message, status, created_at`

// listOrder puts the latest date first and, within a day, the latest time first.
const listOrder = `ORDER BY appointment_date DESC, appointment_time DESC, id DESC`

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
