package config

// This file binds CLI flags onto a Config. Flags are grouped into selection,
// sampling, storage, behavior, and display. Color overrides are applied after
// parsing so Config defaults hold unless the user passes the flag.

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
)

// Flags keeps the flag-only switches that are folded into Config after
// parsing (see [Flags.Apply]).
type Flags struct {
	forceColor bool
	noColor    bool
	noManifest bool
}

// BindFlags registers every run flag on fs, writing straight into cfg.
// Defaults shown in --help come from the current cfg values.
func BindFlags(fs *pflag.FlagSet, cfg *Config) *Flags {
	f := &Flags{}
	defineSelectionFlags(fs, cfg)
	defineSamplingFlags(fs, cfg)
	defineStorageFlags(fs, cfg)
	defineBehaviorFlags(fs, cfg, f)
	defineDisplayFlags(fs, cfg, f)
	fs.SortFlags = false
	return f
}

// Apply folds the negated switches into cfg.
func (f *Flags) Apply(cfg *Config) {
	if f.noColor {
		cfg.ColorMode = ColorNever
	} else if f.forceColor {
		cfg.ColorMode = ColorAlways
	}
	if f.noManifest {
		cfg.WriteManifest = false
	}
}

// defineSelectionFlags registers -s/--subset, -y/--minyear, -m/--minmonth, --videos.
func defineSelectionFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.StringSliceVarP(&cfg.Subset, "subset", "s", cfg.Subset,
		"Analysis subset: rock, sand, all, or custom search tokens (repeatable)")
	fs.IntVarP(&cfg.MinYear, "minyear", "y", cfg.MinYear, "Only parse projects created within or after this year")
	fs.IntVarP(&cfg.MinMonth, "minmonth", "m", cfg.MinMonth, "Only parse projects created within or after this month")
	fs.StringSliceVar(&cfg.Videos, "videos", cfg.Videos, `Video ids or ranges, e.g. "1", "3:5" (default all)`)
}

// defineSamplingFlags registers -t/--timestep, --jpeg-quality, --remux-fps.
func defineSamplingFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.IntVarP(&cfg.Timestep, "timestep", "t", cfg.Timestep, "Time interval in minutes between captured frames")
	fs.IntVar(&cfg.JPEGQuality, "jpeg-quality", cfg.JPEGQuality, "JPEG quality passed to ffmpeg -q:v (2 best, 31 worst)")
	fs.IntVar(&cfg.RemuxFPS, "remux-fps", cfg.RemuxFPS, "Frame rate assumed for raw .h264 captures")
}

// defineStorageFlags registers roots, backend, S3 settings and tool paths.
func defineStorageFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.StringVar(&cfg.LocalRoot, "local-root", cfg.LocalRoot, "Local mirror root")
	fs.StringVar(&cfg.RemoteRoot, "remote-root", cfg.RemoteRoot, "Remote root (rclone path, or key prefix for s3)")
	fs.Var(&backendValue{&cfg.Backend}, "backend", "Remote backend: rclone | s3")
	fs.StringVar(&cfg.S3.Endpoint, "s3-endpoint", cfg.S3.Endpoint, "S3 endpoint host:port")
	fs.StringVar(&cfg.S3.Bucket, "s3-bucket", cfg.S3.Bucket, "S3 bucket")
	fs.StringVar(&cfg.S3.AccessKey, "s3-access-key", cfg.S3.AccessKey, "S3 access key")
	fs.StringVar(&cfg.S3.SecretKey, "s3-secret-key", cfg.S3.SecretKey, "S3 secret key")
	fs.BoolVar(&cfg.S3.UseSSL, "s3-ssl", cfg.S3.UseSSL, "Use TLS for S3")
	fs.StringVar(&cfg.RcloneBin, "rclone", cfg.RcloneBin, "rclone binary")
	fs.StringVar(&cfg.FFmpegBin, "ffmpeg", cfg.FFmpegBin, "ffmpeg binary")
	fs.StringVar(&cfg.FFprobeBin, "ffprobe", cfg.FFprobeBin, "ffprobe binary")
}

// defineBehaviorFlags registers dry-run, duplicates, uploads, workers and retry policy.
func defineBehaviorFlags(fs *pflag.FlagSet, cfg *Config, f *Flags) {
	fs.BoolVarP(&cfg.DryRun, "dry-run", "d", false, "Select projects and list videos; do not download")
	fs.BoolVar(&cfg.SkipExisting, "skip-duplicates", cfg.SkipExisting, "Do not rewrite images that already exist remotely")
	fs.BoolVar(&cfg.UploadPerProject, "upload-per-project", cfg.UploadPerProject, "Upload results after every project")
	fs.IntVarP(&cfg.Workers, "workers", "j", cfg.Workers, "Projects processed concurrently")
	fs.IntVar(&cfg.Retries, "retries", cfg.Retries, "Attempts per remote transfer")
	fs.DurationVar(&cfg.RetryBackoff, "retry-backoff", cfg.RetryBackoff, "Initial backoff between transfer attempts")
	fs.Float64Var(&cfg.TransfersPerSec, "tps", cfg.TransfersPerSec, "Max remote tool invocations per second (0 = unlimited)")
	fs.BoolVar(&f.noManifest, "no-manifest", false, "Do not write the run manifest CSV")
	fs.StringVar(&cfg.MetricsFile, "metrics-file", cfg.MetricsFile, "Write Prometheus metrics to this textfile at exit")
	fs.StringVar(&cfg.OTLPEndpoint, "otlp-endpoint", cfg.OTLPEndpoint, "OTLP/HTTP traces endpoint URL")
}

// defineDisplayFlags registers --color, --no-color, verbose, --log, --log-format, --config.
func defineDisplayFlags(fs *pflag.FlagSet, cfg *Config, f *Flags) {
	fs.BoolVar(&f.forceColor, "color", false, "Force colored logs")
	fs.BoolVar(&f.noColor, "no-color", false, "Disable colored logs")
	fs.BoolVarP(&cfg.Verbose, "verbose", "v", false, "Verbose output")
	fs.StringVarP(&cfg.LogFile, "log", "l", cfg.LogFile, "Append logs to file")
	fs.Var(&logFormatValue{&cfg.LogFormat}, "log-format", "Console log format: text | json")
	fs.StringVarP(&cfg.ConfigFile, "config", "c", cfg.ConfigFile, "YAML config file")
}

// pflag.Value adapters so enum types can be bound with fs.Var.

type backendValue struct{ p *Backend }

func (b *backendValue) String() string { return string(*b.p) }
func (b *backendValue) Type() string   { return "backend" }
func (b *backendValue) Set(s string) error {
	switch strings.ToLower(s) {
	case "rclone":
		*b.p = BackendRclone
	case "s3":
		*b.p = BackendS3
	default:
		return fmt.Errorf("invalid backend %q (use 'rclone' or 's3')", s)
	}
	return nil
}

type logFormatValue struct{ p *LogFormat }

func (l *logFormatValue) String() string { return string(*l.p) }
func (l *logFormatValue) Type() string   { return "format" }
func (l *logFormatValue) Set(s string) error {
	switch strings.ToLower(s) {
	case "text":
		*l.p = LogFormatText
	case "json":
		*l.p = LogFormatJSON
	default:
		return fmt.Errorf("invalid log format %q (use 'text' or 'json')", s)
	}
	return nil
}
