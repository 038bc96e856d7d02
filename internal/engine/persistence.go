package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/celerix-dev/celerix-accounts/pkg/schema"
)

// FileStore keeps the whole user collection in a single JSON file.
type FileStore struct {
	path string
	// writer is a one-slot semaphore guarding load-modify-save.
	writer chan struct{}
}

// NewFileStore prepares a store backed by path. The parent directory is
// created if needed; the file itself is created on the first save.
func NewFileStore(path string) (*FileStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}
	return &FileStore{
		path:   path,
		writer: make(chan struct{}, 1),
	}, nil
}

// Path returns the backing file location.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads and decodes the users file.
func (s *FileStore) Load(ctx context.Context) (schema.Collection, error) {
	if err := ctx.Err(); err != nil {
		return schema.Collection{}, fmt.Errorf("%w: %v", ErrRead, err)
	}

	content, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return schema.Collection{}, nil
		}
		return schema.Collection{}, fmt.Errorf("%w: %v", ErrRead, err)
	}

	var users schema.Collection
	if err := json.Unmarshal(content, &users); err != nil {
		return schema.Collection{}, fmt.Errorf("%w: %s: %v", ErrCorrupt, s.path, err)
	}
	if users == nil {
		users = schema.Collection{}
	}
	return users, nil
}

// Save writes the collection to a temporary file and renames it over the
// users file, so readers see either the old or the new contents.
func (s *FileStore) Save(ctx context.Context, users schema.Collection) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	if users == nil {
		users = schema.Collection{}
	}

	bytes, err := json.MarshalIndent(users, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}

	if err := writeFileAtomic(s.path, bytes, 0600); err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	return nil
}

// writeFileAtomic writes data to a uniquely named temp file next to path and
// renames it into place. Concurrent callers never share a temp file.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Update holds the writer slot for the whole load-modify-save cycle so two
// concurrent updates cannot overwrite each other's append.
func (s *FileStore) Update(ctx context.Context, fn UpdateFunc) error {
	select {
	case s.writer <- struct{}{}:
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", ErrBusy, ctx.Err())
	}
	defer func() { <-s.writer }()

	users, loadErr := s.Load(ctx)
	next, err := fn(users, loadErr)
	if err != nil {
		return err
	}

	if errors.Is(loadErr, ErrCorrupt) {
		if err := s.quarantine(); err != nil {
			return fmt.Errorf("%w: keep corrupt copy: %v", ErrWrite, err)
		}
	}
	return s.Save(ctx, next)
}

// quarantine copies the current (unparseable) file aside before it is replaced.
func (s *FileStore) quarantine() error {
	content, err := os.ReadFile(s.path)
	if err != nil {
		return err
	}
	return os.WriteFile(s.path+".corrupt", content, 0600)
}
