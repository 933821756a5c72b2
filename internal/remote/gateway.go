// Package remote is the storage gateway. A local root and a remote root
// share one relative layout: every operation takes a slash-separated path
// relative to both roots. Remote content is only mutated by Upload.
//
// Two backends implement [Gateway]: [Rclone], which shells out to the
// rclone binary, and [S3], which talks to an S3-compatible object store.
package remote

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

var (
	// ErrNotFound is returned by Download when the remote path does not exist.
	ErrNotFound = errors.New("remote path not found")
	// ErrEscapesRoot is returned for relative paths that climb out of the root.
	ErrEscapesRoot = errors.New("path escapes storage root")
)

// Gateway is the mirrored local/remote filesystem.
type Gateway interface {
	// List returns the names of the immediate children of the remote
	// directory rel, or only its subdirectories when dirsOnly is set.
	// When rel names a single file the result is that file's name if it
	// exists. A missing path yields an empty slice and no error.
	List(ctx context.Context, rel string, dirsOnly bool) ([]string, error)
	// Download copies remote rel to local rel, overwriting.
	Download(ctx context.Context, rel string) error
	// Upload copies local rel (a file or a tree) to remote rel.
	Upload(ctx context.Context, rel string) error
	// DeleteLocal removes the local file or tree; absent is not an error.
	DeleteLocal(rel string) error
	// MakeLocalDir creates the local directory and its parents.
	MakeLocalDir(rel string) error
	// LocalPath is the absolute local path for rel.
	LocalPath(rel string) string
}

// Mirror implements the local half of a Gateway.
type Mirror struct {
	root string
}

// NewMirror returns a Mirror rooted at dir.
func NewMirror(dir string) Mirror {
	return Mirror{root: dir}
}

// LocalPath joins rel onto the local root.
func (m Mirror) LocalPath(rel string) string {
	return filepath.Join(m.root, filepath.FromSlash(rel))
}

// DeleteLocal removes the local file or directory tree at rel.
func (m Mirror) DeleteLocal(rel string) error {
	if err := CheckRel(rel); err != nil {
		return err
	}
	if err := os.RemoveAll(m.LocalPath(rel)); err != nil {
		return fmt.Errorf("delete %s: %w", rel, err)
	}
	return nil
}

// MakeLocalDir creates the local directory at rel and its parents.
func (m Mirror) MakeLocalDir(rel string) error {
	if err := CheckRel(rel); err != nil {
		return err
	}
	if err := os.MkdirAll(m.LocalPath(rel), 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", rel, err)
	}
	return nil
}

// CheckRel rejects absolute paths and paths that leave the root after
// cleaning.
func CheckRel(rel string) error {
	if rel == "" {
		return nil
	}
	slashed := filepath.ToSlash(rel)
	if path.IsAbs(slashed) || filepath.IsAbs(rel) {
		return fmt.Errorf("%w: %s", ErrEscapesRoot, rel)
	}
	clean := path.Clean(slashed)
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return fmt.Errorf("%w: %s", ErrEscapesRoot, rel)
	}
	return nil
}

// Join builds a relative path from slash-separated parts.
func Join(parts ...string) string {
	return path.Join(parts...)
}
