package pipeline

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/google/renameio/v2"

	"github.com/backmassage/fishframes/internal/naming"
)

var manifestHeader = []string{"file", "project", "video", "step", "frame", "time", "group", "written_at"}

// ManifestName is the file name of a run's manifest inside the results dir.
func ManifestName(runID string) string {
	return "manifest_" + runID + ".csv"
}

// manifest collects one row per written frame and is flushed once at the
// end of the run.
type manifest struct {
	mu   sync.Mutex
	rows [][]string
}

func (m *manifest) add(id naming.FrameID, step int, group string, at time.Time) {
	row := []string{
		id.Name(),
		id.Project,
		id.Video,
		strconv.Itoa(step),
		strconv.Itoa(id.Index),
		id.Timestamp,
		group,
		at.UTC().Format(time.RFC3339),
	}
	m.mu.Lock()
	m.rows = append(m.rows, row)
	m.mu.Unlock()
}

func (m *manifest) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

// write stores the manifest as dir/name, replacing any previous file.
func (m *manifest) write(dir, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(manifestHeader); err != nil {
		return err
	}
	if err := w.WriteAll(m.rows); err != nil {
		return err
	}
	if err := renameio.WriteFile(filepath.Join(dir, name), buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}
