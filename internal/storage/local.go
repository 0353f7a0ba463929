package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// LocalStore keeps images in a directory on disk, created on first write.
type LocalStore struct {
	dir string
}

var _ ImageStore = (*LocalStore)(nil)

// NewLocalStore creates a store rooted at dir
func NewLocalStore(dir string) *LocalStore {
	return &LocalStore{dir: dir}
}

// Dir returns the directory images are written to
func (s *LocalStore) Dir() string {
	return s.dir
}

// Put streams r into a temporary file and renames it into place once the
// stream completed, so readers never observe a partial image.
func (s *LocalStore) Put(ctx context.Context, name string, r io.Reader) (err error) {
	if err := validName(name); err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create images directory: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if _, err = io.Copy(tmp, readerWithContext(ctx, r)); err != nil {
		return fmt.Errorf("failed to write image: %w", err)
	}
	if err = tmp.Chmod(0o644); err != nil {
		return fmt.Errorf("failed to set image permissions: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync image: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close image: %w", err)
	}
	if err = os.Rename(tmp.Name(), filepath.Join(s.dir, name)); err != nil {
		return fmt.Errorf("failed to move image into place: %w", err)
	}
	return nil
}

// Delete removes the named image. A missing file is not an error.
func (s *LocalStore) Delete(_ context.Context, name string) error {
	if err := validName(name); err != nil {
		return err
	}
	err := os.Remove(filepath.Join(s.dir, name))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete image: %w", err)
	}
	return nil
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func readerWithContext(ctx context.Context, r io.Reader) io.Reader {
	return &ctxReader{ctx: ctx, r: r}
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
