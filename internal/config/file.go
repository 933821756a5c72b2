package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment override.
const EnvPrefix = "FISHFRAMES_"

// Overrides is the sparse shape shared by the YAML file and the environment.
// Nil pointers and nil slices mean "not set" so lower-precedence values
// survive.
type Overrides struct {
	LocalRoot   *string `yaml:"localRoot" env:"LOCAL_ROOT"`
	RemoteRoot  *string `yaml:"remoteRoot" env:"REMOTE_ROOT"`
	Backend     *string `yaml:"backend" env:"BACKEND"`
	DataDir     *string `yaml:"dataDir" env:"DATA_DIR"`
	TrainingDir *string `yaml:"trainingDir" env:"TRAINING_DIR"`

	S3 S3Overrides `yaml:"s3" envPrefix:"S3_"`

	Subset   []string            `yaml:"subset" env:"SUBSET" envSeparator:","`
	Aliases  map[string][]string `yaml:"aliases"`
	MinYear  *int                `yaml:"minYear" env:"MINYEAR"`
	MinMonth *int                `yaml:"minMonth" env:"MINMONTH"`
	Videos   []string            `yaml:"videos" env:"VIDEOS" envSeparator:","`

	Timestep       *int  `yaml:"timestep" env:"TIMESTEP"`
	JPEGQuality    *int  `yaml:"jpegQuality" env:"JPEG_QUALITY"`
	RemuxFPS       *int  `yaml:"remuxFPS" env:"REMUX_FPS"`
	SkipDuplicates *bool `yaml:"skipDuplicates" env:"SKIP_DUPLICATES"`

	UploadPerProject *bool          `yaml:"uploadPerProject" env:"UPLOAD_PER_PROJECT"`
	Workers          *int           `yaml:"workers" env:"WORKERS"`
	Retries          *int           `yaml:"retries" env:"RETRIES"`
	RetryBackoff     *time.Duration `yaml:"retryBackoff" env:"RETRY_BACKOFF"`
	TPS              *float64       `yaml:"tps" env:"TPS"`
	Manifest         *bool          `yaml:"manifest" env:"MANIFEST"`

	RcloneBin  *string `yaml:"rclone" env:"RCLONE"`
	FFmpegBin  *string `yaml:"ffmpeg" env:"FFMPEG"`
	FFprobeBin *string `yaml:"ffprobe" env:"FFPROBE"`

	MetricsFile  *string `yaml:"metricsFile" env:"METRICS_FILE"`
	OTLPEndpoint *string `yaml:"otlpEndpoint" env:"OTLP_ENDPOINT"`
	LogFile      *string `yaml:"logFile" env:"LOG_FILE"`
	LogFormat    *string `yaml:"logFormat" env:"LOG_FORMAT"`
	Verbose      *bool   `yaml:"verbose" env:"VERBOSE"`
}

// S3Overrides is the sparse form of S3Config.
type S3Overrides struct {
	Endpoint  *string `yaml:"endpoint" env:"ENDPOINT"`
	AccessKey *string `yaml:"accessKey" env:"ACCESS_KEY"`
	SecretKey *string `yaml:"secretKey" env:"SECRET_KEY"`
	Bucket    *string `yaml:"bucket" env:"BUCKET"`
	UseSSL    *bool   `yaml:"useSSL" env:"USE_SSL"`
}

// LoadFile reads a YAML config file. Unknown keys are rejected so typos do
// not silently fall back to defaults.
func LoadFile(path string) (*Overrides, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var o Overrides
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&o); err != nil {
		if errors.Is(err, io.EOF) {
			return &Overrides{}, nil
		}
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config file %s contains multiple documents or trailing content", path)
	}
	return &o, nil
}

// LoadEnv reads FISHFRAMES_* overrides from the process environment.
func LoadEnv() (*Overrides, error) {
	return loadEnv(nil)
}

func loadEnv(environment map[string]string) (*Overrides, error) {
	var o Overrides
	opts := env.Options{Prefix: EnvPrefix, Environment: environment}
	if err := env.ParseWithOptions(&o, opts); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	return &o, nil
}

// Resolve applies, in increasing precedence, the config file named by
// cfg.ConfigFile, environment overrides, and the flags the user actually
// set on fs. Flags were already parsed into cfg, so lower layers only touch
// fields whose flag is unchanged.
func Resolve(cfg *Config, fs *pflag.FlagSet, f *Flags) error {
	changed := func(name string) bool {
		if fs == nil {
			return false
		}
		fl := fs.Lookup(name)
		return fl != nil && fl.Changed
	}

	if cfg.ConfigFile != "" {
		o, err := LoadFile(cfg.ConfigFile)
		if err != nil {
			return err
		}
		if err := o.apply(cfg, changed); err != nil {
			return err
		}
	}

	o, err := LoadEnv()
	if err != nil {
		return err
	}
	if err := o.apply(cfg, changed); err != nil {
		return err
	}

	if f != nil {
		f.Apply(cfg)
	}
	return nil
}

// apply copies every set field into cfg unless the matching flag was given.
func (o *Overrides) apply(cfg *Config, changed func(string) bool) error {
	str := func(flag string, v *string, dst *string) {
		if v != nil && !changed(flag) {
			*dst = *v
		}
	}
	num := func(flag string, v *int, dst *int) {
		if v != nil && !changed(flag) {
			*dst = *v
		}
	}
	flag := func(name string, v *bool, dst *bool) {
		if v != nil && !changed(name) {
			*dst = *v
		}
	}
	list := func(name string, v []string, dst *[]string) {
		if v != nil && !changed(name) {
			*dst = append([]string(nil), v...)
		}
	}

	str("local-root", o.LocalRoot, &cfg.LocalRoot)
	str("remote-root", o.RemoteRoot, &cfg.RemoteRoot)
	if o.Backend != nil && !changed("backend") {
		if err := (&backendValue{&cfg.Backend}).Set(*o.Backend); err != nil {
			return err
		}
	}
	str("", o.DataDir, &cfg.DataDir)
	str("", o.TrainingDir, &cfg.TrainingDir)

	str("s3-endpoint", o.S3.Endpoint, &cfg.S3.Endpoint)
	str("s3-access-key", o.S3.AccessKey, &cfg.S3.AccessKey)
	str("s3-secret-key", o.S3.SecretKey, &cfg.S3.SecretKey)
	str("s3-bucket", o.S3.Bucket, &cfg.S3.Bucket)
	flag("s3-ssl", o.S3.UseSSL, &cfg.S3.UseSSL)

	list("subset", o.Subset, &cfg.Subset)
	for group, tokens := range o.Aliases {
		if cfg.Aliases == nil {
			cfg.Aliases = map[string][]string{}
		}
		cfg.Aliases[strings.ToLower(group)] = tokens
	}
	num("minyear", o.MinYear, &cfg.MinYear)
	num("minmonth", o.MinMonth, &cfg.MinMonth)
	list("videos", o.Videos, &cfg.Videos)

	num("timestep", o.Timestep, &cfg.Timestep)
	num("jpeg-quality", o.JPEGQuality, &cfg.JPEGQuality)
	num("remux-fps", o.RemuxFPS, &cfg.RemuxFPS)
	flag("skip-duplicates", o.SkipDuplicates, &cfg.SkipExisting)

	flag("upload-per-project", o.UploadPerProject, &cfg.UploadPerProject)
	num("workers", o.Workers, &cfg.Workers)
	num("retries", o.Retries, &cfg.Retries)
	if o.RetryBackoff != nil && !changed("retry-backoff") {
		cfg.RetryBackoff = *o.RetryBackoff
	}
	if o.TPS != nil && !changed("tps") {
		cfg.TransfersPerSec = *o.TPS
	}
	flag("no-manifest", o.Manifest, &cfg.WriteManifest)

	str("rclone", o.RcloneBin, &cfg.RcloneBin)
	str("ffmpeg", o.FFmpegBin, &cfg.FFmpegBin)
	str("ffprobe", o.FFprobeBin, &cfg.FFprobeBin)

	str("metrics-file", o.MetricsFile, &cfg.MetricsFile)
	str("otlp-endpoint", o.OTLPEndpoint, &cfg.OTLPEndpoint)
	str("log", o.LogFile, &cfg.LogFile)
	if o.LogFormat != nil && !changed("log-format") {
		if err := (&logFormatValue{&cfg.LogFormat}).Set(*o.LogFormat); err != nil {
			return err
		}
	}
	flag("verbose", o.Verbose, &cfg.Verbose)
	return nil
}
