package sampler

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"

	"github.com/backmassage/fishframes/internal/naming"
)

// FrameWriter stores frames as files in a local results directory.
type FrameWriter struct {
	Dir string // Local absolute results directory; must exist.
	// Dups, when set, enables duplicate detection: names already recorded
	// in the index or already present in Dir are not rewritten.
	Dups *naming.DuplicateIndex
}

// Write stores img under the frame's name. It reports duplicate=true when
// the frame was skipped because it already exists.
func (w *FrameWriter) Write(id naming.FrameID, img []byte) (duplicate bool, err error) {
	name := id.Name()
	dst := filepath.Join(w.Dir, name)
	if w.Dups != nil {
		if !w.Dups.Claim(name) {
			return true, nil
		}
		if _, err := os.Stat(dst); err == nil {
			return true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return false, fmt.Errorf("stat %s: %w", name, err)
		}
	}
	if err := renameio.WriteFile(dst, img, 0o644); err != nil {
		return false, fmt.Errorf("write %s: %w", name, err)
	}
	return false, nil
}
