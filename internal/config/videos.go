package config

import (
	"fmt"
	"strconv"
	"strings"
)

// VideoSelection restricts which videos of a project are processed. Capture
// rigs name videos NNNN_vid.<ext>; a selection is a set of those numbers.
// The zero value selects every video.
type VideoSelection struct {
	all    bool
	ranges [][2]int
}

// ParseVideoSelection parses tokens of the form "all", "7" or "1:10"
// (inclusive). An empty slice is the same as "all".
func ParseVideoSelection(tokens []string) (VideoSelection, error) {
	var sel VideoSelection
	if len(tokens) == 0 {
		sel.all = true
		return sel, nil
	}
	for _, raw := range tokens {
		tok := strings.TrimSpace(raw)
		if strings.EqualFold(tok, SubsetAll) {
			sel.all = true
			continue
		}
		lo, hi, isRange := strings.Cut(tok, ":")
		start, err := strconv.Atoi(lo)
		if err != nil || start < 0 {
			return VideoSelection{}, fmt.Errorf("invalid video id %q (use N or START:END)", raw)
		}
		end := start
		if isRange {
			end, err = strconv.Atoi(hi)
			if err != nil || end < start {
				return VideoSelection{}, fmt.Errorf("invalid video range %q", raw)
			}
		}
		sel.ranges = append(sel.ranges, [2]int{start, end})
	}
	return sel, nil
}

// All reports whether every video is selected.
func (s VideoSelection) All() bool {
	return s.all || len(s.ranges) == 0
}

// Matches reports whether the video file name is selected. Names that do
// not start with a numeric id only match an "all" selection.
func (s VideoSelection) Matches(name string) bool {
	if s.All() {
		return true
	}
	id, ok := videoID(name)
	if !ok {
		return false
	}
	for _, r := range s.ranges {
		if id >= r[0] && id <= r[1] {
			return true
		}
	}
	return false
}

// videoID extracts the leading number from names like "0007_vid.mp4".
func videoID(name string) (int, bool) {
	end := 0
	for end < len(name) && name[end] >= '0' && name[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(name[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}
