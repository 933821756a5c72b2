// Package check provides system diagnostics (the check subcommand) and
// pre-run dependency validation (CheckDeps) for rclone, ffmpeg and ffprobe.
package check

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/backmassage/fishframes/internal/config"
)

// Sentinel errors returned by CheckDeps when a required tool is missing.
var (
	ErrRcloneNotFound  = errors.New("rclone not found on PATH")
	ErrFFmpegNotFound  = errors.New("ffmpeg not found on PATH")
	ErrFFprobeNotFound = errors.New("ffprobe not found on PATH")
)

// Logger is the minimal logging interface needed by RunCheck.
type Logger interface {
	Info(string, ...any)
	Success(string, ...any)
	Warn(string, ...any)
	Error(string, ...any)
}

// lookPath is swapped in tests.
var lookPath = exec.LookPath

// RunCheck prints the availability and version of every external tool the
// configured run needs, then runs a one-frame JPEG grab. It is
// informational only and reports whether everything passed.
func RunCheck(cfg *config.Config, log Logger) bool {
	log.Info("=== System Check ===")

	ok := true
	if cfg.Backend == config.BackendRclone {
		ok = checkTool(log, cfg.RcloneBin, "version") && ok
	} else {
		log.Info("Backend: s3 (%s, bucket %s)", cfg.S3.Endpoint, cfg.S3.Bucket)
	}
	ok = checkTool(log, cfg.FFmpegBin, "-version") && ok
	ok = checkTool(log, cfg.FFprobeBin, "-version") && ok

	log.Info("Testing JPEG frame grab...")
	if runSilent(cfg.FFmpegBin, grabTestArgs(cfg.JPEGQuality)...) {
		log.Success("mjpeg encoder works")
	} else {
		log.Error("JPEG test grab failed")
		ok = false
	}
	return ok
}

// checkTool verifies bin is on PATH and logs the first line of its version
// output.
func checkTool(log Logger, bin, versionArg string) bool {
	if _, err := lookPath(bin); err != nil {
		log.Error("%s not found", bin)
		return false
	}
	out, err := exec.Command(bin, versionArg).Output()
	if err != nil {
		log.Warn("%s found but %s failed: %v", bin, versionArg, err)
		return true
	}
	log.Success("%s: %s", bin, firstLine(string(out)))
	return true
}

// CheckDeps is the pre-run validation: the tools the configured backend
// and the decoder need must be on PATH. Returns a sentinel error wrapped
// with the configured binary name.
func CheckDeps(cfg *config.Config) error {
	if cfg.Backend == config.BackendRclone {
		if _, err := lookPath(cfg.RcloneBin); err != nil {
			return fmt.Errorf("%w (%s)", ErrRcloneNotFound, cfg.RcloneBin)
		}
	}
	if _, err := lookPath(cfg.FFmpegBin); err != nil {
		return fmt.Errorf("%w (%s)", ErrFFmpegNotFound, cfg.FFmpegBin)
	}
	if _, err := lookPath(cfg.FFprobeBin); err != nil {
		return fmt.Errorf("%w (%s)", ErrFFprobeNotFound, cfg.FFprobeBin)
	}
	return nil
}

// --- internal helpers ---

// grabTestArgs returns the ffmpeg arguments for grabbing one JPEG frame
// from a synthetic source, mirroring the real frame grab.
func grabTestArgs(quality int) []string {
	return []string{
		"-hide_banner", "-nostdin", "-loglevel", "error",
		"-f", "lavfi", "-i", "testsrc=duration=1:size=320x240:rate=30",
		"-frames:v", "1", "-c:v", "mjpeg",
		"-q:v", fmt.Sprint(quality), "-f", "null", "-",
	}
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i > 0 {
		return s[:i]
	}
	return s
}

// runSilent runs a command and returns true if it exits with status 0.
func runSilent(name string, args ...string) bool {
	return exec.Command(name, args...).Run() == nil
}
