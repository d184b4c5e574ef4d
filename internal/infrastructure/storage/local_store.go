package storage

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/turtacn/advisorhub/internal/domain/service"
	"github.com/turtacn/advisorhub/pkg/errors"
	"github.com/turtacn/advisorhub/pkg/logger"
)

var _ service.DocumentStore = (*LocalStore)(nil)

// LocalStore keeps objects as files under a root directory.
type LocalStore struct {
	root   string
	logger logger.Logger
}

// NewLocalStore creates root if needed and returns a store rooted there.
func NewLocalStore(root string, log logger.Logger) (*LocalStore, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve storage root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &LocalStore{root: abs, logger: log.WithComponent("LocalStore")}, nil
}

func (s *LocalStore) path(key string) (string, error) {
	p := filepath.Join(s.root, filepath.FromSlash(key))
	if !strings.HasPrefix(p, s.root+string(filepath.Separator)) {
		return "", errors.ErrInvalidRequest("invalid storage key")
	}
	return p, nil
}

// Put writes body to key via a temporary file so readers never see partial objects.
func (s *LocalStore) Put(ctx context.Context, key, contentType string, body io.Reader, size int64) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
		return errors.ErrStorage("put", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(p), ".upload-*")
	if err != nil {
		return errors.ErrStorage("put", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, body); err != nil {
		tmp.Close()
		return errors.ErrStorage("put", err)
	}
	if err := tmp.Close(); err != nil {
		return errors.ErrStorage("put", err)
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		return errors.ErrStorage("put", err)
	}
	s.logger.Debug(ctx, "Stored object", logger.String("key", key), logger.Int64("size", size))
	return nil
}

func (s *LocalStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return nil, errors.ErrNotFound("object", key)
		}
		return nil, errors.ErrStorage("get", err)
	}
	return f, nil
}

// Delete removes key; a missing object is not an error.
func (s *LocalStore) Delete(ctx context.Context, key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !stderrors.Is(err, fs.ErrNotExist) {
		return errors.ErrStorage("delete", err)
	}
	return nil
}
