package naming

import (
	"path"
	"strings"
	"sync"
)

// DuplicateIndex records frame names already present in the results set.
// All methods are goroutine-safe.
type DuplicateIndex struct {
	mu    sync.Mutex
	names map[string]struct{}
}

// NewDuplicateIndex seeds the index with existing names. Entries that are
// not frame images are ignored.
func NewDuplicateIndex(existing []string) *DuplicateIndex {
	d := &DuplicateIndex{names: make(map[string]struct{}, len(existing))}
	for _, n := range existing {
		n = path.Base(strings.TrimSuffix(n, "/"))
		if strings.HasSuffix(n, FrameExt) {
			d.names[n] = struct{}{}
		}
	}
	return d
}

// Claim records name and reports whether it was new. A false result means
// the frame already exists and should not be rewritten.
func (d *DuplicateIndex) Claim(name string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.names[name]; ok {
		return false
	}
	d.names[name] = struct{}{}
	return true
}

// Contains reports whether name is recorded.
func (d *DuplicateIndex) Contains(name string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.names[name]
	return ok
}

// Len returns the number of recorded names.
func (d *DuplicateIndex) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.names)
}
