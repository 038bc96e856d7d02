// Package accounts implements sign-up and login on top of the flat-file record store.
package accounts

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/celerix-dev/celerix-accounts/internal/engine"
	"github.com/celerix-dev/celerix-accounts/internal/logging"
	"github.com/celerix-dev/celerix-accounts/internal/vault"
	"github.com/celerix-dev/celerix-accounts/pkg/schema"
)

// Messages returned to callers.
const (
	MsgFieldsRequired    = "Email and password are required."
	MsgPasswordTooLong   = "Password must be at most 72 bytes."
	MsgSignupOK          = "Signup successful!"
	MsgSignupReadFailed  = "Error reading user data."
	MsgSignupSaveFailed  = "Signup failed: Could not save user data."
	MsgLoginOK           = "Login successful!"
	MsgLoginReadFailed   = "Login failed: Could not read user data."
	MsgLoginParseFailed  = "Login failed: Error processing user data."
	MsgLoginInvalidCreds = "Login failed: Invalid email or password."
)

// DefaultTimeout bounds a single request's store I/O when none is configured.
const DefaultTimeout = 5 * time.Second

// Kind classifies the result of an account operation.
type Kind int

const (
	KindOK Kind = iota
	KindBadRequest
	KindUnauthorized
	KindServerError
)

func (k Kind) String() string {
	switch k {
	case KindOK:
		return "ok"
	case KindBadRequest:
		return "bad_request"
	case KindUnauthorized:
		return "unauthorized"
	case KindServerError:
		return "server_error"
	}
	return "unknown"
}

// HTTPStatus maps the kind onto a response code.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindOK:
		return http.StatusOK
	case KindBadRequest:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}

// Outcome is the terminal result of Register or Authenticate.
// Err carries the underlying cause for server errors and is never shown to clients.
type Outcome struct {
	Kind    Kind
	Message string
	Err     error
}

func (o Outcome) OK() bool { return o.Kind == KindOK }

func ok(msg string) Outcome         { return Outcome{Kind: KindOK, Message: msg} }
func badRequest(msg string) Outcome { return Outcome{Kind: KindBadRequest, Message: msg} }
func unauthorized(msg string) Outcome {
	return Outcome{Kind: KindUnauthorized, Message: msg}
}
func serverError(msg string, err error) Outcome {
	return Outcome{Kind: KindServerError, Message: msg, Err: err}
}

// Service registers and authenticates users. It keeps no state between
// calls; the record store file is the only shared resource.
type Service struct {
	store   engine.RecordStore
	hasher  vault.PasswordHasher
	log     logging.Logger
	timeout time.Duration
	now     func() time.Time
}

// NewService wires a Service. A zero timeout selects DefaultTimeout.
func NewService(store engine.RecordStore, hasher vault.PasswordHasher, log logging.Logger, timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Service{
		store:   store,
		hasher:  hasher,
		log:     log,
		timeout: timeout,
		now:     time.Now,
	}
}

// Register appends a new record for email. Duplicate emails are accepted and
// produce a second record. An unparseable users file is treated as empty.
func (s *Service) Register(ctx context.Context, email, password string) Outcome {
	if email == "" || password == "" {
		return badRequest(MsgFieldsRequired)
	}

	stored, err := s.hasher.Hash(password)
	if err != nil {
		if errors.Is(err, vault.ErrPasswordTooLong) {
			return badRequest(MsgPasswordTooLong)
		}
		s.log.Error(ctx, "hash password", "error", err)
		return serverError(MsgSignupSaveFailed, err)
	}

	rec := schema.UserRecord{
		Email:     email,
		Password:  stored,
		CreatedAt: s.now().UTC(),
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	err = s.store.Update(ctx, func(users schema.Collection, loadErr error) (schema.Collection, error) {
		switch {
		case errors.Is(loadErr, engine.ErrCorrupt):
			s.log.Warn(ctx, "users file unparseable, starting from empty", "error", loadErr)
			users = schema.Collection{}
		case loadErr != nil:
			return nil, loadErr
		}
		return users.Append(rec), nil
	})
	if err != nil {
		if errors.Is(err, engine.ErrRead) {
			s.log.Error(ctx, "signup: read users file", "error", err)
			return serverError(MsgSignupReadFailed, err)
		}
		s.log.Error(ctx, "signup: save users file", "error", err)
		return serverError(MsgSignupSaveFailed, err)
	}

	s.log.Info(ctx, "user registered", "email", email)
	return ok(MsgSignupOK)
}

// Authenticate reports whether some record matches email and password.
// The first record in file order whose email matches and whose password
// verifies wins. Unlike Register, an unparseable file is a server error.
func (s *Service) Authenticate(ctx context.Context, email, password string) Outcome {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	users, err := s.store.Load(ctx)
	if err != nil {
		if errors.Is(err, engine.ErrCorrupt) {
			s.log.Error(ctx, "login: parse users file", "error", err)
			return serverError(MsgLoginParseFailed, err)
		}
		s.log.Error(ctx, "login: read users file", "error", err)
		return serverError(MsgLoginReadFailed, err)
	}

	if email == "" || password == "" {
		return badRequest(MsgFieldsRequired)
	}

	_, found := users.FindFirst(func(rec schema.UserRecord) bool {
		return rec.Email == email && s.hasher.Verify(rec.Password, password)
	})
	if !found {
		return unauthorized(MsgLoginInvalidCreds)
	}
	return ok(MsgLoginOK)
}
