package admin

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/apptbook/libs/auth"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/clock"
)

var ErrUnauthorized = errors.New("unauthorized")

const roleAdmin = "admin"

// MinSecretLen is the shortest accepted signing secret, in bytes.
const MinSecretLen = 32

// Session is an issued operator session token.
type Session struct {
	Token     string
	Operator  Operator
	ExpiresAt time.Time
}

// SessionManager issues and verifies HS256 session tokens bound to an operator.
type SessionManager struct {
	secret  string
	ttl     time.Duration
	clock   clock.Clock
	revoked Revocations
}

func NewSessionManager(secret string, ttl time.Duration, clk clock.Clock, revoked Revocations) (*SessionManager, error) {
	if len(secret) < MinSecretLen {
		return nil, fmt.Errorf("session secret must be at least %d bytes", MinSecretLen)
	}
	if ttl <= 0 {
		return nil, errors.New("session ttl must be positive")
	}
	return &SessionManager{secret: secret, ttl: ttl, clock: clk, revoked: revoked}, nil
}

func (m *SessionManager) Issue(op Operator) (Session, error) {
	now := m.clock.Now()
	exp := now.Add(m.ttl)
	token, err := auth.SignHS256(auth.Claims{
		Sub:  op.Username,
		Name: op.Name,
		Role: roleAdmin,
		ID:   uuid.NewString(),
		Iat:  now.Unix(),
		Exp:  exp.Unix(),
	}, m.secret)
	if err != nil {
		return Session{}, err
	}
	return Session{Token: token, Operator: op, ExpiresAt: time.Unix(exp.Unix(), 0).UTC()}, nil
}

// Verify returns the session's operator, or ErrUnauthorized when the token is missing,
// malformed, expired or revoked.
func (m *SessionManager) Verify(ctx context.Context, token string) (Operator, error) {
	claims, err := m.claims(token)
	if err != nil {
		return Operator{}, err
	}
	revoked, err := m.revoked.IsRevoked(ctx, claims.ID)
	if err != nil {
		return Operator{}, fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		return Operator{}, ErrUnauthorized
	}
	return Operator{Username: claims.Sub, Name: claims.Name}, nil
}

// Revoke invalidates token until it would have expired anyway. Invalid tokens are ignored.
func (m *SessionManager) Revoke(ctx context.Context, token string) error {
	claims, err := m.claims(token)
	if err != nil {
		return nil
	}
	return m.revoked.Revoke(ctx, claims.ID, time.Unix(claims.Exp, 0).Sub(m.clock.Now()))
}

func (m *SessionManager) claims(token string) (*auth.Claims, error) {
	if token == "" {
		return nil, ErrUnauthorized
	}
	claims, err := auth.ParseAndVerifyHS256(token, m.secret, m.clock.Now())
	if err != nil {
		return nil, ErrUnauthorized
	}
	if claims.Role != roleAdmin || claims.Sub == "" || claims.ID == "" {
		return nil, ErrUnauthorized
	}
	return claims, nil
}

// TTL is how long issued sessions stay valid.
func (m *SessionManager) TTL() time.Duration { return m.ttl }
