package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/md-rashed-zaman/apptbook/libs/db"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/model"
)

// createdAtLayout is fixed width so created_at sorts lexically in chronological order.
const createdAtLayout = "2006-01-02 15:04:05.000000000"

// SQLiteStore keeps dates and times as canonical TEXT (YYYY-MM-DD, HH:MM).
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(conn *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: conn}
}

func (s *SQLiteStore) Insert(ctx context.Context, a *model.Appointment) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO appointments (name, email, phone, service, appointment_date, appointment_time, message, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, a.Name, a.Email, a.Phone, a.Service, a.DateString(), a.Time.String(), a.Message, a.Status, a.CreatedAt.UTC().Format(createdAtLayout))
	if err != nil {
		if db.IsSQLiteUniqueViolation(err) {
			return model.ErrSlotTaken
		}
		return fmt.Errorf("insert appointment: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert appointment: %w", err)
	}
	a.ID = id
	return nil
}

func (s *SQLiteStore) FindConflict(ctx context.Context, date time.Time, at model.TimeOfDay) (model.Appointment, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE appointment_date = ? AND appointment_time = ?
		ORDER BY id
		LIMIT 1
	`, date.Format(model.DateLayout), at.String())
	a, err := scanSQLite(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Appointment{}, false, nil
		}
		return model.Appointment{}, false, fmt.Errorf("find conflict: %w", err)
	}
	return a, true, nil
}

func (s *SQLiteStore) FindByID(ctx context.Context, id int64) (model.Appointment, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id = ?`, id)
	return one(row, "find appointment")
}

func (s *SQLiteStore) FindLatestByEmail(ctx context.Context, email string) (model.Appointment, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE email = ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, email)
	return one(row, "find latest appointment")
}

func (s *SQLiteStore) FindByIDAndEmail(ctx context.Context, id int64, email string) (model.Appointment, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id = ? AND email = ?`, id, email)
	return one(row, "find appointment")
}

func (s *SQLiteStore) ListAll(ctx context.Context) ([]model.Appointment, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+appointmentColumns+` FROM appointments `+listOrder)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	return collectSQLite(rows)
}

func (s *SQLiteStore) ListByDate(ctx context.Context, date time.Time) ([]model.Appointment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE appointment_date = ?
		ORDER BY appointment_time
	`, date.Format(model.DateLayout))
	if err != nil {
		return nil, fmt.Errorf("list appointments by date: %w", err)
	}
	return collectSQLite(rows)
}

func (s *SQLiteStore) UpdateStatus(ctx context.Context, id int64, status string) (model.Appointment, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE appointments SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return model.Appointment{}, fmt.Errorf("update appointment status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return model.Appointment{}, fmt.Errorf("update appointment status: %w", err)
	}
	if n == 0 {
		return model.Appointment{}, model.ErrNotFound
	}
	return s.FindByID(ctx, id)
}

func (s *SQLiteStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM appointments WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete appointment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete appointment: %w", err)
	}
	if n == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() {
	_ = s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func one(row rowScanner, op string) (model.Appointment, error) {
	a, err := scanSQLite(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Appointment{}, model.ErrNotFound
		}
		return model.Appointment{}, fmt.Errorf("%s: %w", op, err)
	}
	return a, nil
}

func scanSQLite(row rowScanner) (model.Appointment, error) {
	var (
		a                      model.Appointment
		date, clock, createdAt string
	)
	if err := row.Scan(&a.ID, &a.Name, &a.Email, &a.Phone, &a.Service, &date, &clock, &a.Message, &a.Status, &createdAt); err != nil {
		return model.Appointment{}, err
	}

	var err error
	if a.Date, err = model.ParseDate(date); err != nil {
		return model.Appointment{}, fmt.Errorf("appointment %d: bad stored date %q: %w", a.ID, date, err)
	}
	if a.Time, err = model.ParseTimeOfDay(clock); err != nil {
		return model.Appointment{}, fmt.Errorf("appointment %d: bad stored time %q: %w", a.ID, clock, err)
	}
	if a.CreatedAt, err = time.ParseInLocation(createdAtLayout, createdAt, time.UTC); err != nil {
		return model.Appointment{}, fmt.Errorf("appointment %d: bad stored created_at %q: %w", a.ID, createdAt, err)
	}
	return a, nil
}

func collectSQLite(rows *sql.Rows) ([]model.Appointment, error) {
	defer rows.Close()
	out := []model.Appointment{}
	for rows.Next() {
		a, err := scanSQLite(rows)
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
