package sdk

import (
	"context"
	"os"
	"time"

	"github.com/celerix-dev/celerix-accounts/internal/accounts"
	"github.com/celerix-dev/celerix-accounts/internal/engine"
	"github.com/celerix-dev/celerix-accounts/internal/logging"
	"github.com/celerix-dev/celerix-accounts/internal/vault"
)

// Embedded runs the account service in-process against a local users file.
type Embedded struct {
	svc *accounts.Service
}

type embeddedOptions struct {
	hasher    vault.PasswordHasher
	log       logging.Logger
	ioTimeout time.Duration
}

// Option customizes the in-process service behind NewEmbedded and New.
type Option func(*embeddedOptions)

// WithHasher sets how passwords are stored. The default is bcrypt.
func WithHasher(h vault.PasswordHasher) Option {
	return func(o *embeddedOptions) { o.hasher = h }
}

// WithLogger routes service logs somewhere other than the void.
func WithLogger(l logging.Logger) Option {
	return func(o *embeddedOptions) { o.log = l }
}

// WithIOTimeout bounds each users-file operation. Zero keeps the service default.
func WithIOTimeout(d time.Duration) Option {
	return func(o *embeddedOptions) { o.ioTimeout = d }
}

// NewEmbedded opens the users file at path, with bcrypt hashing unless an
// option says otherwise.
func NewEmbedded(path string, opts ...Option) (*Embedded, error) {
	o := embeddedOptions{log: logging.Discard()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.hasher == nil {
		hasher, err := vault.NewHasher(vault.SchemeBcrypt, 0)
		if err != nil {
			return nil, err
		}
		o.hasher = hasher
	}

	store, err := engine.NewFileStore(path)
	if err != nil {
		return nil, err
	}
	return &Embedded{svc: accounts.NewService(store, o.hasher, o.log, o.ioTimeout)}, nil
}

func (e *Embedded) Register(email, password string) (string, error) {
	return outcomeResult(e.svc.Register(context.Background(), email, password))
}

func (e *Embedded) Authenticate(email, password string) (string, error) {
	return outcomeResult(e.svc.Authenticate(context.Background(), email, password))
}

func (e *Embedded) Close() error { return nil }

func outcomeResult(out accounts.Outcome) (string, error) {
	if out.OK() {
		return out.Message, nil
	}
	return "", &Error{Code: out.Kind.HTTPStatus(), Message: out.Message}
}

// New initializes the store based on the environment.
// It returns the interface, so the caller doesn't care if it's local or remote.
// opts only apply when it falls back to the embedded store.
func New(path string, opts ...Option) (AccountStore, error) {
	if remoteAddr := os.Getenv("ACCOUNTS_ADDR"); remoteAddr != "" {
		client, err := Connect(remoteAddr)
		if err == nil {
			return client, nil
		}
		// Unreachable daemon: fall back to the local file.
	}
	return NewEmbedded(path, opts...)
}
