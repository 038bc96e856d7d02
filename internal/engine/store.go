// Package engine implements the flat-file record store behind the Celerix account service.
package engine

import (
	"context"
	"errors"

	"github.com/celerix-dev/celerix-accounts/pkg/schema"
)

var (
	// ErrCorrupt is returned when the users file exists but is not a valid record list.
	ErrCorrupt = errors.New("user data is corrupt")
	// ErrRead is returned when the users file exists but cannot be read.
	ErrRead = errors.New("could not read user data")
	// ErrWrite is returned when the users file cannot be written.
	ErrWrite = errors.New("could not write user data")
	// ErrBusy is returned when the context ends while waiting for the writer slot.
	ErrBusy = errors.New("record store busy")
)

// UpdateFunc receives the loaded collection together with the error Load
// produced, if any. Returning a nil error commits the returned collection.
type UpdateFunc func(users schema.Collection, loadErr error) (schema.Collection, error)

// RecordStore is the persistence contract used by the account service.
type RecordStore interface {
	// Load reads the full collection. A missing file yields an empty collection.
	Load(ctx context.Context) (schema.Collection, error)
	// Save overwrites the backing file with users.
	Save(ctx context.Context, users schema.Collection) error
	// Update runs load-modify-save as one critical section.
	Update(ctx context.Context, fn UpdateFunc) error
}
