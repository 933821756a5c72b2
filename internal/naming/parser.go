package naming

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrNotFrameName is returned for names that do not follow the frame layout.
var ErrNotFrameName = errors.New("not a frame name")

// ParseFrameName recovers the FrameID from a frame file name. Fields are
// read from the right: timestamp, index, interval, then the video base.
// The video base starts at the rightmost all-digit field (the capture id
// in names like 0001_vid); when there is none it is the last field. The
// rest is the project id, which may itself contain underscores.
func ParseFrameName(name string) (FrameID, error) {
	stem, ok := strings.CutSuffix(name, FrameExt)
	if !ok {
		return FrameID{}, fmt.Errorf("%w: %q", ErrNotFrameName, name)
	}
	fields := strings.Split(stem, "_")
	if len(fields) < 5 {
		return FrameID{}, fmt.Errorf("%w: %q", ErrNotFrameName, name)
	}

	n := len(fields)
	ts := fields[n-1]
	if !validTimestamp(ts) {
		return FrameID{}, fmt.Errorf("%w: bad timestamp in %q", ErrNotFrameName, name)
	}
	index, err := strconv.Atoi(fields[n-2])
	if err != nil || index < 0 {
		return FrameID{}, fmt.Errorf("%w: bad index in %q", ErrNotFrameName, name)
	}
	interval, err := strconv.Atoi(fields[n-3])
	if err != nil || interval <= 0 {
		return FrameID{}, fmt.Errorf("%w: bad interval in %q", ErrNotFrameName, name)
	}

	rest := fields[:n-3]
	split := len(rest) - 1
	for i := len(rest) - 1; i >= 1; i-- {
		if isDigits(rest[i]) {
			split = i
			break
		}
	}
	return FrameID{
		Project:   strings.Join(rest[:split], "_"),
		Video:     strings.Join(rest[split:], "_"),
		Interval:  interval,
		Index:     index,
		Timestamp: ts,
	}, nil
}

// validTimestamp checks the HH-MM-SS.ss shape.
func validTimestamp(s string) bool {
	parts := strings.Split(s, "-")
	if len(parts) != 3 {
		return false
	}
	if !isDigits(parts[0]) || !isDigits(parts[1]) {
		return false
	}
	_, err := strconv.ParseFloat(parts[2], 64)
	return err == nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
