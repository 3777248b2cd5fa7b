package booking

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/clock"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/metrics"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/model"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type Repository interface {
	Insert(ctx context.Context, a *model.Appointment) error
	FindConflict(ctx context.Context, date time.Time, at model.TimeOfDay) (model.Appointment, bool, error)
	FindByID(ctx context.Context, id int64) (model.Appointment, error)
	FindLatestByEmail(ctx context.Context, email string) (model.Appointment, error)
	FindByIDAndEmail(ctx context.Context, id int64, email string) (model.Appointment, error)
	ListByDate(ctx context.Context, date time.Time) ([]model.Appointment, error)
}

// Submission is a booking request as typed by the visitor.
type Submission struct {
	Name    string
	Email   string
	Phone   string
	Service string
	Date    string
	Time    string
	Message string
}

type Service struct {
	repo    Repository
	clock   clock.Clock
	hours   availability.Hours
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

func NewService(repo Repository, clk clock.Clock, hours availability.Hours, logger *slog.Logger, m *metrics.Metrics) *Service {
	return &Service{
		repo:    repo,
		clock:   clk,
		hours:   hours,
		logger:  logger,
		metrics: m,
		tracer:  otel.Tracer("booking-service/booking"),
	}
}

// Book validates sub, refuses a taken slot and stores a Pending appointment.
// Errors are *ValidationError, *ParseError, *ConflictError or *StoreError.
func (s *Service) Book(ctx context.Context, sub Submission) (model.Appointment, error) {
	ctx, span := s.tracer.Start(ctx, "booking.Book")
	defer span.End()

	appt, err := s.book(ctx, sub)
	if err != nil {
		s.metrics.IncBooking(bookingResult(err))
		endWithError(span, err)
		return model.Appointment{}, err
	}
	s.metrics.IncBooking("created")
	span.SetAttributes(attribute.Int64("appointment.id", appt.ID))
	s.logger.InfoContext(ctx, "appointment booked",
		"appointment_id", appt.ID,
		"date", appt.DateString(),
		"time", appt.Time.String(),
	)
	return appt, nil
}

func (s *Service) book(ctx context.Context, sub Submission) (model.Appointment, error) {
	sub = trimSubmission(sub)
	if err := validateSubmission(sub); err != nil {
		return model.Appointment{}, err
	}

	date, err := model.ParseDate(sub.Date)
	if err != nil {
		return model.Appointment{}, &ParseError{Field: "date", Value: sub.Date, Err: err}
	}
	at, err := model.ParseTimeOfDay(sub.Time)
	if err != nil {
		return model.Appointment{}, &ParseError{Field: "time", Value: sub.Time, Err: err}
	}

	_, found, err := s.repo.FindConflict(ctx, date, at)
	if err != nil {
		return model.Appointment{}, &StoreError{Op: "check slot", Err: err}
	}
	if found {
		return model.Appointment{}, &ConflictError{Date: date, Time: at}
	}

	appt := model.Appointment{
		Name:      sub.Name,
		Email:     sub.Email,
		Phone:     sub.Phone,
		Service:   sub.Service,
		Date:      date,
		Time:      at,
		Message:   sub.Message,
		Status:    model.StatusPending,
		CreatedAt: s.clock.Now(),
	}
	if err := s.repo.Insert(ctx, &appt); err != nil {
		// Lost a race with another request for the same slot.
		if errors.Is(err, model.ErrSlotTaken) {
			return model.Appointment{}, &ConflictError{Date: date, Time: at}
		}
		return model.Appointment{}, &StoreError{Op: "insert appointment", Err: err}
	}
	return appt, nil
}

// Confirmation returns the appointment shown after a successful booking.
func (s *Service) Confirmation(ctx context.Context, id int64) (model.Appointment, error) {
	appt, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.Appointment{}, err
		}
		return model.Appointment{}, &StoreError{Op: "find appointment", Err: err}
	}
	return appt, nil
}

// Lookup finds a visitor's appointment by email and, when idText is given, by id as well.
// A miss is reported as found == false with a nil error.
func (s *Service) Lookup(ctx context.Context, email, idText string) (model.Appointment, bool, error) {
	ctx, span := s.tracer.Start(ctx, "booking.Lookup")
	defer span.End()

	email = strings.TrimSpace(email)
	idText = strings.TrimSpace(idText)
	if email == "" {
		return model.Appointment{}, false, &ValidationError{Field: "email", Reason: "is required"}
	}

	var (
		appt model.Appointment
		err  error
	)
	if idText != "" {
		id, perr := strconv.ParseInt(idText, 10, 64)
		if perr != nil || id <= 0 {
			return model.Appointment{}, false, &ParseError{Field: "appointment_id", Value: idText, Err: errors.New("not a positive integer")}
		}
		appt, err = s.repo.FindByIDAndEmail(ctx, id, email)
	} else {
		appt, err = s.repo.FindLatestByEmail(ctx, email)
	}
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			s.metrics.IncLookup("not_found")
			return model.Appointment{}, false, nil
		}
		endWithError(span, err)
		return model.Appointment{}, false, &StoreError{Op: "lookup appointment", Err: err}
	}
	s.metrics.IncLookup("found")
	return appt, true, nil
}

// AvailableTimes lists the unbooked start times within opening hours on the given day.
func (s *Service) AvailableTimes(ctx context.Context, dateText string) ([]model.TimeOfDay, error) {
	dateText = strings.TrimSpace(dateText)
	date, err := model.ParseDate(dateText)
	if err != nil {
		return nil, &ParseError{Field: "date", Value: dateText, Err: err}
	}
	booked, err := s.repo.ListByDate(ctx, date)
	if err != nil {
		return nil, &StoreError{Op: "list day", Err: err}
	}
	taken := make([]model.TimeOfDay, 0, len(booked))
	for _, a := range booked {
		taken = append(taken, a.Time)
	}
	return availability.FreeTimes(date, s.hours, taken, s.clock.Now()), nil
}

// Today is the default date offered by the booking form.
func (s *Service) Today() string {
	return s.clock.Now().Format(model.DateLayout)
}

func trimSubmission(sub Submission) Submission {
	return Submission{
		Name:    strings.TrimSpace(sub.Name),
		Email:   strings.TrimSpace(sub.Email),
		Phone:   strings.TrimSpace(sub.Phone),
		Service: strings.TrimSpace(sub.Service),
		Date:    strings.TrimSpace(sub.Date),
		Time:    strings.TrimSpace(sub.Time),
		Message: strings.TrimSpace(sub.Message),
	}
}

func validateSubmission(sub Submission) error {
	fields := []struct {
		name  string
		value string
		max   int
	}{
		{"name", sub.Name, model.MaxNameLen},
		{"email", sub.Email, model.MaxEmailLen},
		{"phone", sub.Phone, model.MaxPhoneLen},
		{"service", sub.Service, model.MaxServiceLen},
		{"date", sub.Date, 0},
		{"time", sub.Time, 0},
	}
	for _, f := range fields {
		if f.value == "" {
			return &ValidationError{Field: f.name, Reason: "is required"}
		}
		if f.max > 0 && utf8.RuneCountInString(f.value) > f.max {
			return &ValidationError{Field: f.name, Reason: "must be at most " + strconv.Itoa(f.max) + " characters"}
		}
	}
	return nil
}

func bookingResult(err error) string {
	var (
		verr *ValidationError
		perr *ParseError
		cerr *ConflictError
	)
	switch {
	case errors.As(err, &cerr):
		return "conflict"
	case errors.As(err, &verr), errors.As(err, &perr):
		return "invalid"
	default:
		return "error"
	}
}

func endWithError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
