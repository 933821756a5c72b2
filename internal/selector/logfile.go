package selector

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

// LogfileName is the per-project metadata file.
const LogfileName = "Logfile.txt"

const (
	markerPrefix    = "MasterRecordInitialStart:"
	timestampLayout = "2006-01-02 15:04:05.999999"
)

// ErrNoMarker means the Logfile has no MasterRecordInitialStart line.
var ErrNoMarker = errors.New("no " + markerPrefix + " line")

// CreationDate is the year and month a project started recording. The zero
// value stands for "unknown" and never passes a date filter with a
// positive threshold.
type CreationDate struct {
	Year  int
	Month int
}

// Known reports whether the date was read from a Logfile.
func (d CreationDate) Known() bool { return d.Year != 0 || d.Month != 0 }

func (d CreationDate) String() string {
	if !d.Known() {
		return "unknown"
	}
	return fmt.Sprintf("%04d-%02d", d.Year, d.Month)
}

// ParseLogfile finds the first line starting with MasterRecordInitialStart:
// and parses the timestamp after the last ": " on it.
func ParseLogfile(r io.Reader) (CreationDate, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if !strings.HasPrefix(line, markerPrefix) {
			continue
		}
		raw := line
		if i := strings.LastIndex(line, ": "); i >= 0 {
			raw = line[i+2:]
		}
		t, err := time.Parse(timestampLayout, strings.TrimSpace(raw))
		if err != nil {
			return CreationDate{}, fmt.Errorf("parse %s timestamp: %w", markerPrefix, err)
		}
		return CreationDate{Year: t.Year(), Month: int(t.Month())}, nil
	}
	if err := sc.Err(); err != nil {
		return CreationDate{}, fmt.Errorf("read logfile: %w", err)
	}
	return CreationDate{}, ErrNoMarker
}

// Passes reports whether d satisfies both thresholds. Year and month are
// compared independently, each against its own minimum.
func (d CreationDate) Passes(minYear, minMonth int) bool {
	return d.Year >= minYear && d.Month >= minMonth
}
