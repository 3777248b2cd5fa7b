package admin

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/md-rashed-zaman/apptbook/libs/auth"
	"gopkg.in/yaml.v3"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// Operator is an authenticated member of staff.
type Operator struct {
	Username string `json:"username"`
	Name     string `json:"name"`
}

// Authenticator checks operator credentials. Implementations return ErrInvalidCredentials
// for an unknown user and for a wrong password alike.
type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) (Operator, error)
}

// Credential is one operator entry with a bcrypt password hash.
type Credential struct {
	Username     string `yaml:"username"`
	Name         string `yaml:"name"`
	PasswordHash string `yaml:"password_hash"`
}

// StaticAuthenticator authenticates against a fixed set of hashed credentials.
type StaticAuthenticator struct {
	creds map[string]Credential
	// dummyHash is compared against for unknown users so both failure paths cost one bcrypt run.
	dummyHash string
}

func NewStaticAuthenticator(creds ...Credential) (*StaticAuthenticator, error) {
	if len(creds) == 0 {
		return nil, errors.New("no operator credentials configured")
	}
	byName := make(map[string]Credential, len(creds))
	for i, c := range creds {
		c.Username = strings.TrimSpace(c.Username)
		if c.Username == "" {
			return nil, fmt.Errorf("operator %d: username is required", i+1)
		}
		if !auth.IsPasswordHash(c.PasswordHash) {
			return nil, fmt.Errorf("operator %q: password_hash is not a bcrypt hash", c.Username)
		}
		if _, dup := byName[c.Username]; dup {
			return nil, fmt.Errorf("operator %q: duplicate username", c.Username)
		}
		if c.Name == "" {
			c.Name = c.Username
		}
		byName[c.Username] = c
	}
	dummy, err := auth.HashPassword("not-a-real-operator-password")
	if err != nil {
		return nil, err
	}
	return &StaticAuthenticator{creds: byName, dummyHash: dummy}, nil
}

func (a *StaticAuthenticator) Authenticate(_ context.Context, username, password string) (Operator, error) {
	cred, ok := a.creds[strings.TrimSpace(username)]
	if !ok {
		_ = auth.VerifyPassword(a.dummyHash, password)
		return Operator{}, ErrInvalidCredentials
	}
	if err := auth.VerifyPassword(cred.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return Operator{}, ErrInvalidCredentials
		}
		return Operator{}, fmt.Errorf("verify password: %w", err)
	}
	return Operator{Username: cred.Username, Name: cred.Name}, nil
}

type operatorsFile struct {
	Operators []Credential `yaml:"operators"`
}

// LoadOperatorsFile reads operators from YAML. ${VAR} references in a field are expanded
// from the environment; a literal bcrypt hash is used as written.
//
//	operators:
//	  - username: admin
//	    name: Front Desk
//	    password_hash: ${ADMIN_PASSWORD_HASH}
func LoadOperatorsFile(path string) (*StaticAuthenticator, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read operators file: %w", err)
	}
	var f operatorsFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse operators file %s: %w", path, err)
	}
	for i, c := range f.Operators {
		c.Username = os.ExpandEnv(c.Username)
		c.Name = os.ExpandEnv(c.Name)
		// A literal bcrypt hash is full of '$' and must not be expanded.
		if !auth.IsPasswordHash(c.PasswordHash) {
			c.PasswordHash = os.ExpandEnv(c.PasswordHash)
		}
		f.Operators[i] = c
	}
	return NewStaticAuthenticator(f.Operators...)
}
