// Package remotetest provides an in-memory remote.Gateway for tests.
package remotetest

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/backmassage/fishframes/internal/remote"
)

// Fake keeps the remote tree in memory and the local tree on disk under a
// caller-provided directory.
type Fake struct {
	remote.Mirror

	mu      sync.Mutex
	objects map[string][]byte
	calls   []string

	// FailDownload makes Download of the listed paths fail.
	FailDownload map[string]error
	// FailUpload makes every Upload fail with this error.
	FailUpload error
}

// New returns a Fake whose local root is dir.
func New(dir string) *Fake {
	return &Fake{
		Mirror:       remote.NewMirror(dir),
		objects:      map[string][]byte{},
		FailDownload: map[string]error{},
	}
}

// Put stores a remote object.
func (f *Fake) Put(rel string, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[path.Clean(rel)] = data
}

// Object returns a remote object and whether it exists.
func (f *Fake) Object(rel string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.objects[path.Clean(rel)]
	return b, ok
}

// Keys returns all remote object paths below prefix, sorted.
func (f *Fake) Keys(prefix string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var keys []string
	for k := range f.objects {
		if prefix == "" || strings.HasPrefix(k, prefix+"/") {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// Calls returns the recorded "op rel" strings in call order.
func (f *Fake) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *Fake) record(op, rel string) {
	f.mu.Lock()
	f.calls = append(f.calls, op+" "+rel)
	f.mu.Unlock()
}

// List implements remote.Gateway.
func (f *Fake) List(_ context.Context, rel string, dirsOnly bool) ([]string, error) {
	if err := remote.CheckRel(rel); err != nil {
		return nil, err
	}
	f.record("list", rel)
	f.mu.Lock()
	defer f.mu.Unlock()

	rel = path.Clean(rel)
	if _, ok := f.objects[rel]; ok {
		if dirsOnly {
			return []string{}, nil
		}
		return []string{path.Base(rel)}, nil
	}
	prefix := rel + "/"
	if rel == "." {
		prefix = ""
	}
	seen := map[string]bool{}
	names := []string{}
	for k := range f.objects {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		child, _, isDir := strings.Cut(strings.TrimPrefix(k, prefix), "/")
		if seen[child] || (dirsOnly && !isDir) {
			continue
		}
		seen[child] = true
		names = append(names, child)
	}
	sort.Strings(names)
	return names, nil
}

// Download implements remote.Gateway.
func (f *Fake) Download(_ context.Context, rel string) error {
	if err := remote.CheckRel(rel); err != nil {
		return err
	}
	f.record("download", rel)
	if err := f.FailDownload[rel]; err != nil {
		return err
	}
	data, ok := f.Object(rel)
	if !ok {
		return fmt.Errorf("download %s: %w", rel, remote.ErrNotFound)
	}
	dst := f.LocalPath(rel)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o644)
}

// Upload implements remote.Gateway.
func (f *Fake) Upload(_ context.Context, rel string) error {
	if err := remote.CheckRel(rel); err != nil {
		return err
	}
	f.record("upload", rel)
	if f.FailUpload != nil {
		return f.FailUpload
	}
	root := f.LocalPath(rel)
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		sub, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		key := rel
		if sub != "." {
			key = path.Join(rel, filepath.ToSlash(sub))
		}
		f.Put(key, data)
		return nil
	})
}

var _ remote.Gateway = (*Fake)(nil)
