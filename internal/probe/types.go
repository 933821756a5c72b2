package probe

import "math"

// FormatInfo holds container-level metadata from ffprobe's format section.
type FormatInfo struct {
	Filename   string
	FormatName string
	Duration   float64
	Size       int64
	BitRate    int64
}

// VideoStream holds the parsed properties of the primary video stream.
type VideoStream struct {
	Index        int
	Codec        string
	Width        int
	Height       int
	AvgFrameRate string
	RFrameRate   string
	Duration     float64
	NbFrames     int64
}

// ProbeResult is the parsed output of a single ffprobe JSON call.
// Video is the first non-attached-pic video stream (nil if none).
type ProbeResult struct {
	Format FormatInfo
	Video  *VideoStream
}

// FPS returns the average frame rate, falling back to r_frame_rate when
// the average is missing. Zero means unknown.
func (p *ProbeResult) FPS() float64 {
	if p.Video == nil {
		return 0
	}
	if fps := ParseRate(p.Video.AvgFrameRate); fps > 0 {
		return fps
	}
	return ParseRate(p.Video.RFrameRate)
}

// Duration returns the video stream duration in seconds, falling back to
// the container duration.
func (p *ProbeResult) Duration() float64 {
	if p.Video != nil && p.Video.Duration > 0 {
		return p.Video.Duration
	}
	return p.Format.Duration
}

// FrameCount returns nb_frames when the container records it, otherwise an
// estimate from duration and frame rate. Zero means unknown.
func (p *ProbeResult) FrameCount() int64 {
	if p.Video != nil && p.Video.NbFrames > 0 {
		return p.Video.NbFrames
	}
	return int64(math.Floor(p.Duration() * p.FPS()))
}
