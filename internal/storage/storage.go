// Package storage holds processed garment images, addressed by file name.
package storage

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// ImageStore writes and removes images by name. Put is all-or-nothing: on
// error no image is visible under name.
type ImageStore interface {
	Put(ctx context.Context, name string, r io.Reader) error
	Delete(ctx context.Context, name string) error
}

// validName rejects names that could escape the store's namespace.
func validName(name string) error {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || filepath.Base(name) != name {
		return fmt.Errorf("invalid image name %q", name)
	}
	return nil
}
