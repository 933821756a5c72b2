package ffmpeg

import (
	"strconv"
)

// BuildRemux constructs the ffmpeg argument slice that rewraps a raw
// capture into an MP4 at a fixed frame rate without re-encoding.
//
// The retry parameter supplies the timestamp fix, which may be enabled
// after a failed first attempt.
func BuildRemux(bin, input, output string, fps int, rs *RetryState, verbose bool) []string {
	rate := strconv.Itoa(fps)
	args := make([]string, 0, 24)

	// --- Preamble ---
	args = append(args, bin, "-hide_banner", "-nostdin", "-y")
	if verbose {
		args = append(args, "-loglevel", "info")
	} else {
		args = append(args, "-loglevel", "error")
	}

	// --- Pre-input flags (timestamp fix) ---
	if rs != nil && rs.TimestampFix {
		args = append(args, "-fflags", "+genpts")
	}

	// --- Input (raw H.264 has no timing, so the rate is forced) ---
	args = append(args, "-r", rate, "-i", input)

	// --- Video codec ---
	args = append(args, "-threads", "1", "-c:v", "copy", "-r", rate)

	// --- Output ---
	args = append(args, output)
	return args
}

// BuildGrab constructs the ffmpeg argument slice that writes one JPEG
// frame, taken at seconds into input, to stdout.
func BuildGrab(bin, input string, seconds float64, quality int) []string {
	return []string{
		bin, "-hide_banner", "-nostdin", "-loglevel", "error",
		"-ss", strconv.FormatFloat(seconds, 'f', 6, 64),
		"-i", input,
		"-map", "0:v:0",
		"-frames:v", "1",
		"-f", "image2pipe",
		"-c:v", "mjpeg",
		"-q:v", strconv.Itoa(quality),
		"-",
	}
}
