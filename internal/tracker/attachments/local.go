package attachments

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dmitrijs2005/testtracker/internal/common"
	"github.com/dmitrijs2005/testtracker/internal/filex"
)

// LocalStore keeps attachments in one directory.
type LocalStore struct {
	dir string
}

// NewLocalStore creates dir when missing.
func NewLocalStore(dir string) (*LocalStore, error) {
	abs, err := filex.EnsureDir(dir)
	if err != nil {
		return nil, err
	}
	return &LocalStore{dir: abs}, nil
}

func (s *LocalStore) Dir() string { return s.dir }

func (s *LocalStore) Put(ctx context.Context, name string, data []byte) error {
	if err := validName(name); err != nil {
		return fmt.Errorf("%w: %w", common.ErrAttachmentWrite, err)
	}
	if err := filex.WriteAtomic(filepath.Join(s.dir, name), data, 0o660); err != nil {
		return fmt.Errorf("%w: %w", common.ErrAttachmentWrite, err)
	}
	return nil
}

func (s *LocalStore) Get(ctx context.Context, name string) ([]byte, error) {
	if err := validName(name); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrNotFound, err)
	}
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: attachment %s", common.ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read attachment %s: %w", common.ErrStorage, name, err)
	}
	return data, nil
}

func (s *LocalStore) Exists(ctx context.Context, name string) (bool, error) {
	if err := validName(name); err != nil {
		return false, err
	}
	_, err := os.Stat(filepath.Join(s.dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: stat attachment %s: %w", common.ErrStorage, name, err)
	}
	return true, nil
}

// Delete is idempotent: a missing file is not an error.
func (s *LocalStore) Delete(ctx context.Context, name string) error {
	if err := validName(name); err != nil {
		return err
	}
	err := os.Remove(filepath.Join(s.dir, name))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: remove attachment %s: %w", common.ErrStorage, name, err)
	}
	return nil
}
