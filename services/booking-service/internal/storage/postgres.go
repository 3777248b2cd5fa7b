package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/md-rashed-zaman/apptbook/libs/db"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/outbox"
)

type PostgresStore struct {
	pool   *db.Pool
	events *outbox.Repository
	now    func() time.Time
}

// NewPostgresStore returns a store on pool. When events is non-nil every mutation also
// writes an outbox event in the same transaction.
func NewPostgresStore(pool *db.Pool, events *outbox.Repository) *PostgresStore {
	return &PostgresStore{
		pool:   pool,
		events: events,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *PostgresStore) Insert(ctx context.Context, a *model.Appointment) error {
	err := s.pool.InTx(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO appointments (name, email, phone, service, appointment_date, appointment_time, message, status, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING id
		`, a.Name, a.Email, a.Phone, a.Service, pgDate(a.Date), pgTime(a.Time), a.Message, a.Status, a.CreatedAt).Scan(&a.ID)
		if err != nil {
			return err
		}
		if s.events == nil {
			return nil
		}
		evt, err := outbox.AppointmentBooked(*a)
		if err != nil {
			return err
		}
		return s.events.Insert(ctx, tx, evt)
	})
	if err != nil {
		if db.IsUniqueViolation(err) {
			return model.ErrSlotTaken
		}
		return fmt.Errorf("insert appointment: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindConflict(ctx context.Context, date time.Time, at model.TimeOfDay) (model.Appointment, bool, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE appointment_date = $1 AND appointment_time = $2
		ORDER BY id
		LIMIT 1
	`, pgDate(date), pgTime(at))
	a, err := scanPostgres(row)
	if err != nil {
		if db.IsNoRows(err) {
			return model.Appointment{}, false, nil
		}
		return model.Appointment{}, false, fmt.Errorf("find conflict: %w", err)
	}
	return a, true, nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id int64) (model.Appointment, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id = $1`, id)
	return s.one(row, "find appointment")
}

func (s *PostgresStore) FindLatestByEmail(ctx context.Context, email string) (model.Appointment, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE email = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, email)
	return s.one(row, "find latest appointment")
}

func (s *PostgresStore) FindByIDAndEmail(ctx context.Context, id int64, email string) (model.Appointment, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id = $1 AND email = $2`, id, email)
	return s.one(row, "find appointment")
}

func (s *PostgresStore) ListAll(ctx context.Context) ([]model.Appointment, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+appointmentColumns+` FROM appointments `+listOrder)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	return collectPostgres(rows)
}

func (s *PostgresStore) ListByDate(ctx context.Context, date time.Time) ([]model.Appointment, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE appointment_date = $1
		ORDER BY appointment_time
	`, pgDate(date))
	if err != nil {
		return nil, fmt.Errorf("list appointments by date: %w", err)
	}
	return collectPostgres(rows)
}

func (s *PostgresStore) UpdateStatus(ctx context.Context, id int64, status string) (model.Appointment, error) {
	var updated model.Appointment
	err := s.pool.InTx(ctx, func(tx pgx.Tx) error {
		current, err := scanPostgres(tx.QueryRow(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id = $1 FOR UPDATE`, id))
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `UPDATE appointments SET status = $2 WHERE id = $1`, id, status); err != nil {
			return err
		}
		updated = current
		updated.Status = status
		if s.events == nil {
			return nil
		}
		evt, err := outbox.AppointmentStatusChanged(updated, current.Status, s.now())
		if err != nil {
			return err
		}
		return s.events.Insert(ctx, tx, evt)
	})
	if err != nil {
		if db.IsNoRows(err) {
			return model.Appointment{}, model.ErrNotFound
		}
		return model.Appointment{}, fmt.Errorf("update appointment status: %w", err)
	}
	return updated, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id int64) error {
	err := s.pool.InTx(ctx, func(tx pgx.Tx) error {
		deleted, err := scanPostgres(tx.QueryRow(ctx, `DELETE FROM appointments WHERE id = $1 RETURNING `+appointmentColumns, id))
		if err != nil {
			return err
		}
		if s.events == nil {
			return nil
		}
		evt, err := outbox.AppointmentDeleted(deleted, s.now())
		if err != nil {
			return err
		}
		return s.events.Insert(ctx, tx, evt)
	})
	if err != nil {
		if db.IsNoRows(err) {
			return model.ErrNotFound
		}
		return fmt.Errorf("delete appointment: %w", err)
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return db.ReadyCheck(s.pool)(ctx)
}

// Close is a no-op: the pool belongs to the caller.
func (s *PostgresStore) Close() {}

func (s *PostgresStore) one(row pgx.Row, op string) (model.Appointment, error) {
	a, err := scanPostgres(row)
	if err != nil {
		if db.IsNoRows(err) {
			return model.Appointment{}, model.ErrNotFound
		}
		return model.Appointment{}, fmt.Errorf("%s: %w", op, err)
	}
	return a, nil
}

func scanPostgres(row pgx.Row) (model.Appointment, error) {
	var (
		a model.Appointment
		d pgtype.Date
		t pgtype.Time
	)
	if err := row.Scan(&a.ID, &a.Name, &a.Email, &a.Phone, &a.Service, &d, &t, &a.Message, &a.Status, &a.CreatedAt); err != nil {
		return model.Appointment{}, err
	}
	a.Date = dateOnly(d.Time)
	a.Time = model.TimeOfDayFromMinutes(int(t.Microseconds / int64(time.Minute/time.Microsecond)))
	a.CreatedAt = a.CreatedAt.UTC()
	return a, nil
}

func collectPostgres(rows pgx.Rows) ([]model.Appointment, error) {
	defer rows.Close()
	out := []model.Appointment{}
	for rows.Next() {
		a, err := scanPostgres(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func pgDate(d time.Time) pgtype.Date {
	return pgtype.Date{Time: dateOnly(d), Valid: true}
}

func pgTime(t model.TimeOfDay) pgtype.Time {
	return pgtype.Time{Microseconds: int64(t.Minutes()) * int64(time.Minute/time.Microsecond), Valid: true}
}
