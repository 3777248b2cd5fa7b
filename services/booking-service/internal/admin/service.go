package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/metrics"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/model"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type Repository interface {
	ListAll(ctx context.Context) ([]model.Appointment, error)
	FindByID(ctx context.Context, id int64) (model.Appointment, error)
	UpdateStatus(ctx context.Context, id int64, status string) (model.Appointment, error)
	Delete(ctx context.Context, id int64) error
}

// Service is the operator workflow. Every store-touching method authorizes the session
// token before it reads or writes anything.
type Service struct {
	repo     Repository
	auth     Authenticator
	sessions *SessionManager
	logger   *slog.Logger
	metrics  *metrics.Metrics
	tracer   trace.Tracer
}

func NewService(repo Repository, authn Authenticator, sessions *SessionManager, logger *slog.Logger, m *metrics.Metrics) *Service {
	return &Service{
		repo:     repo,
		auth:     authn,
		sessions: sessions,
		logger:   logger,
		metrics:  m,
		tracer:   otel.Tracer("booking-service/admin"),
	}
}

func (s *Service) Login(ctx context.Context, username, password string) (Session, error) {
	ctx, span := s.tracer.Start(ctx, "admin.Login")
	defer span.End()

	op, err := s.auth.Authenticate(ctx, username, password)
	if err != nil {
		s.metrics.IncLogin("failure")
		if errors.Is(err, ErrInvalidCredentials) {
			s.logger.WarnContext(ctx, "operator login rejected", "username", strings.TrimSpace(username))
		}
		return Session{}, err
	}
	sess, err := s.sessions.Issue(op)
	if err != nil {
		return Session{}, fmt.Errorf("issue session: %w", err)
	}
	s.metrics.IncLogin("success")
	s.logger.InfoContext(ctx, "operator logged in", "operator", op.Username)
	return sess, nil
}

// Authorize resolves a session token to its operator or returns ErrUnauthorized.
func (s *Service) Authorize(ctx context.Context, token string) (Operator, error) {
	return s.sessions.Verify(ctx, token)
}

// SessionTTL is how long a session issued by Login stays valid.
func (s *Service) SessionTTL() time.Duration { return s.sessions.TTL() }

func (s *Service) Dashboard(ctx context.Context, token string) ([]model.Appointment, error) {
	if _, err := s.Authorize(ctx, token); err != nil {
		return nil, err
	}
	list, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, &booking.StoreError{Op: "list appointments", Err: err}
	}
	return list, nil
}

// UpdateStatus stores status verbatim after trimming. Status is free text up to the
// column width.
func (s *Service) UpdateStatus(ctx context.Context, token string, id int64, status string) (model.Appointment, error) {
	ctx, span := s.tracer.Start(ctx, "admin.UpdateStatus", trace.WithAttributes(attribute.Int64("appointment.id", id)))
	defer span.End()

	op, err := s.Authorize(ctx, token)
	if err != nil {
		return model.Appointment{}, err
	}
	status = strings.TrimSpace(status)
	if verr := validateStatus(status); verr != nil {
		// A missing appointment wins over a bad status.
		if _, err := s.repo.FindByID(ctx, id); err != nil {
			if errors.Is(err, model.ErrNotFound) {
				return model.Appointment{}, err
			}
			return model.Appointment{}, &booking.StoreError{Op: "find appointment", Err: err}
		}
		return model.Appointment{}, verr
	}

	appt, err := s.repo.UpdateStatus(ctx, id, status)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.Appointment{}, err
		}
		return model.Appointment{}, &booking.StoreError{Op: "update status", Err: err}
	}
	s.metrics.IncAdminAction("update_status")
	s.logger.InfoContext(ctx, "appointment status updated", "operator", op.Username, "appointment_id", id, "status", status)
	return appt, nil
}

func validateStatus(status string) error {
	if status == "" {
		return &booking.ValidationError{Field: "status", Reason: "is required"}
	}
	if utf8.RuneCountInString(status) > model.MaxStatusLen {
		return &booking.ValidationError{Field: "status", Reason: fmt.Sprintf("must be at most %d characters", model.MaxStatusLen)}
	}
	return nil
}

func (s *Service) Delete(ctx context.Context, token string, id int64) error {
	ctx, span := s.tracer.Start(ctx, "admin.Delete", trace.WithAttributes(attribute.Int64("appointment.id", id)))
	defer span.End()

	op, err := s.Authorize(ctx, token)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return err
		}
		return &booking.StoreError{Op: "delete appointment", Err: err}
	}
	s.metrics.IncAdminAction("delete")
	s.logger.InfoContext(ctx, "appointment deleted", "operator", op.Username, "appointment_id", id)
	return nil
}

// Logout revokes the token. Tokens that are already invalid are accepted silently.
func (s *Service) Logout(ctx context.Context, token string) error {
	if err := s.sessions.Revoke(ctx, token); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}
