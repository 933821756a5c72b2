package naming

import (
	"fmt"
	"math"
	"path"
	"path/filepath"
	"strings"
)

// FrameExt is the extension of every written frame.
const FrameExt = ".jpg"

// FrameID identifies one sampled frame.
type FrameID struct {
	Project   string
	Video     string // Base name, without extension.
	Interval  int    // Sampling interval in minutes.
	Index     int    // Frame index within the video.
	Timestamp string // Elapsed time token, HH-MM-SS.ss.
}

// NewFrameID builds the identity of frame index of video (a file name,
// extension allowed) sampled every interval minutes at fps.
func NewFrameID(project, video string, interval, index, fps int) FrameID {
	return FrameID{
		Project:   project,
		Video:     VideoBase(video),
		Interval:  interval,
		Index:     index,
		Timestamp: TimestampToken(index, fps),
	}
}

// Name renders the frame file name.
func (f FrameID) Name() string {
	return fmt.Sprintf("%s_%s_%d_%d_%s%s", f.Project, f.Video, f.Interval, f.Index, f.Timestamp, FrameExt)
}

// Path joins the frame name onto a slash-separated results directory.
func (f FrameID) Path(resultsDir string) string {
	return path.Join(resultsDir, f.Name())
}

// FrameName is shorthand for NewFrameID(...).Name().
func FrameName(project, video string, interval, index, fps int) string {
	return NewFrameID(project, video, interval, index, fps).Name()
}

// TimestampToken formats the elapsed time of frame index at fps as
// HH-MM-SS.ss. Seconds are rounded half-to-even to two decimals.
func TimestampToken(index, fps int) string {
	if fps <= 0 {
		return "00-00-00.00"
	}
	elapsed := float64(index) / float64(fps)
	hours := int(elapsed / 3600)
	minutes := int(elapsed/60) % 60
	seconds := math.RoundToEven(math.Mod(elapsed, 60)*100) / 100
	return fmt.Sprintf("%02d-%02d-%05.2f", hours, minutes, seconds)
}

// VideoBase strips the extension from a video file name.
func VideoBase(name string) string {
	name = path.Base(filepath.ToSlash(name))
	return strings.TrimSuffix(name, path.Ext(name))
}
