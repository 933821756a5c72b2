// Package config holds runtime configuration: defaults, CLI flag binding,
// YAML file and environment overrides, and validation. Defaults point at
// the lab's existing CichlidPiData tree and training image layout.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// --- Enum types for validated string fields ---

// Backend selects the remote storage implementation.
type Backend string

const (
	BackendRclone Backend = "rclone" // Shell out to rclone (default).
	BackendS3     Backend = "s3"     // S3-compatible object store via minio-go.
)

// ColorMode controls ANSI color output.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"   // Enable colors when stdout is a TTY (default).
	ColorAlways ColorMode = "always" // Force colors on.
	ColorNever  ColorMode = "never"  // Disable colors entirely.
)

// LogFormat selects console rendering.
type LogFormat string

const (
	LogFormatText LogFormat = "text"
	LogFormatJSON LogFormat = "json"
)

// SubsetAll selects every project regardless of name.
const SubsetAll = "all"

// Sentinel validation errors.
var (
	ErrInvalidSubset   = errors.New("invalid subset: expected one or more non-empty search tokens")
	ErrInvalidTimestep = errors.New("timestep must be a positive number of minutes")
	ErrInvalidMonth    = errors.New("minmonth must be between 1 and 12")
)

// S3Config holds connection settings for the S3 backend.
type S3Config struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"useSSL"`
}

// Config holds all runtime settings. It is populated by [DefaultConfig],
// then flags, the optional YAML file and FISHFRAMES_* environment variables
// are applied before it is passed (by pointer) to the packages that need it.
type Config struct {
	// Storage roots. Below these the local and remote trees are identical.
	LocalRoot  string
	RemoteRoot string // rclone remote path, or key prefix inside the S3 bucket.
	Backend    Backend
	S3         S3Config

	// Relative layout below the roots.
	DataDir     string // Default: "__ProjectData".
	TrainingDir string // Default: "__TrainingData/CichlidDetection/Training2021".

	// Selection.
	Subset   []string            // Default: ["all"].
	Aliases  map[string][]string // Group name -> substring tokens.
	MinYear  int                 // Default: 2019.
	MinMonth int                 // Default: 1.
	Videos   []string            // Video id selection ("all", "7", "1:10"). Default: ["all"].

	// Sampling.
	Timestep     int // Minutes between sampled frames. Default: 15.
	RemuxFPS     int // Fixed: 30, frame rate for raw .h264 captures.
	JPEGQuality  int // ffmpeg -q:v, 2 (best) .. 31. Default: 2.
	SkipExisting bool

	// Behavior.
	DryRun           bool
	UploadPerProject bool
	Workers          int           // Concurrent projects. Default: 1.
	Retries          int           // Attempts per transfer. Default: 3.
	RetryBackoff     time.Duration // Initial backoff. Default: 2s.
	TransfersPerSec  float64       // 0 disables pacing.
	WriteManifest    bool          // Default: true.

	// Tools.
	RcloneBin  string
	FFmpegBin  string
	FFprobeBin string

	// Observability.
	MetricsFile  string
	OTLPEndpoint string

	// Display and logging.
	Verbose    bool
	ColorMode  ColorMode
	LogFile    string
	LogFormat  LogFormat
	ConfigFile string
}

// DefaultConfig returns a Config with the lab defaults. Used as the base
// before flags and overrides are applied.
func DefaultConfig() Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return Config{
		LocalRoot:     filepath.Join(home, "BioSci-McGrath", "Apps", "CichlidPiData"),
		RemoteRoot:    "cichlidVideo:BioSci-McGrath/Apps/CichlidPiData",
		Backend:       BackendRclone,
		DataDir:       "__ProjectData",
		TrainingDir:   "__TrainingData/CichlidDetection/Training2021",
		Subset:        []string{SubsetAll},
		Aliases:       DefaultAliases(),
		MinYear:       2019,
		MinMonth:      1,
		Videos:        []string{SubsetAll},
		Timestep:      15,
		RemuxFPS:      30,
		JPEGQuality:   2,
		Workers:       1,
		Retries:       3,
		RetryBackoff:  2 * time.Second,
		WriteManifest: true,
		RcloneBin:     "rclone",
		FFmpegBin:     "ffmpeg",
		FFprobeBin:    "ffprobe",
		ColorMode:     ColorAuto,
		LogFormat:     LogFormatText,
	}
}

// DefaultAliases returns the built-in tank-type groups. Each group expands
// to its own name plus the species codes recorded in project ids.
func DefaultAliases() map[string][]string {
	return map[string][]string{
		"rock": {"rock", "mz", "rs", "kl"},
		"sand": {"sand", "ti", "mc", "cv"},
	}
}

// SubsetLabel is the directory name used for the subset in the results
// tree. Multiple tokens are joined with "+".
func (c *Config) SubsetLabel() string {
	return strings.Join(c.Subset, "+")
}

// ResultsDir is the results directory relative to both roots.
func (c *Config) ResultsDir() string {
	return filepath.ToSlash(filepath.Join(c.TrainingDir, "Images_"+strconv.Itoa(c.Timestep), c.SubsetLabel()))
}

// NormalizeDirArg strips trailing slashes from a directory path.
// The filesystem root "/" is returned unchanged so we don't produce an empty string.
func NormalizeDirArg(path string) string {
	if path == "/" {
		return "/"
	}
	return strings.TrimRight(path, "/")
}

// Validate checks enum fields and numeric ranges. It runs before any
// network or decode work so configuration mistakes never cost a transfer.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendRclone, BackendS3:
	default:
		return fmt.Errorf("invalid backend %q (use 'rclone' or 's3')", c.Backend)
	}
	if c.Backend == BackendS3 && (c.S3.Endpoint == "" || c.S3.Bucket == "") {
		return errors.New("s3 backend needs an endpoint and a bucket")
	}

	switch c.ColorMode {
	case ColorAuto, ColorAlways, ColorNever:
	default:
		return fmt.Errorf("invalid color mode %q", c.ColorMode)
	}
	switch c.LogFormat {
	case LogFormatText, LogFormatJSON:
	default:
		return fmt.Errorf("invalid log format %q (use 'text' or 'json')", c.LogFormat)
	}

	if len(c.Subset) == 0 {
		return ErrInvalidSubset
	}
	for _, tok := range c.Subset {
		if strings.TrimSpace(tok) == "" || strings.ContainsAny(tok, `/\`) {
			return ErrInvalidSubset
		}
	}
	if _, err := ParseVideoSelection(c.Videos); err != nil {
		return err
	}

	if c.Timestep <= 0 {
		return ErrInvalidTimestep
	}
	if c.MinMonth < 1 || c.MinMonth > 12 {
		return ErrInvalidMonth
	}
	if c.MinYear < 0 {
		return errors.New("minyear must not be negative")
	}
	if c.RemuxFPS <= 0 {
		return errors.New("remux fps must be positive")
	}
	if c.JPEGQuality < 2 || c.JPEGQuality > 31 {
		return fmt.Errorf("jpeg quality %d out of range (2-31)", c.JPEGQuality)
	}
	if c.Workers < 1 {
		return errors.New("workers must be at least 1")
	}
	if c.Retries < 1 {
		return errors.New("retries must be at least 1")
	}
	if c.TransfersPerSec < 0 {
		return errors.New("tps must not be negative")
	}

	if c.LocalRoot == "" || (c.RemoteRoot == "" && c.Backend == BackendRclone) {
		return errors.New("need both a local root and a remote root")
	}
	c.LocalRoot = NormalizeDirArg(c.LocalRoot)
	if c.Backend == BackendRclone {
		c.RemoteRoot = NormalizeDirArg(c.RemoteRoot)
	}
	return nil
}
