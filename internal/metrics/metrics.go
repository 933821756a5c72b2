// Package metrics records run counters and timings in a private Prometheus
// registry. A batch run has no scrape endpoint, so the registry is written
// to a node_exporter textfile when the run ends.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome label values.
const (
	OutcomeOK        = "ok"
	OutcomeFailed    = "failed"
	OutcomeSkipped   = "skipped"
	OutcomeDuplicate = "duplicate"
	OutcomeWritten   = "written"
)

// Recorder owns the run's metrics. Labels are fixed enums; project and
// video names never become label values.
type Recorder struct {
	reg *prometheus.Registry

	projects      *prometheus.CounterVec
	videos        *prometheus.CounterVec
	frames        *prometheus.CounterVec
	downloaded    prometheus.Counter
	transfers     *prometheus.HistogramVec
	videoDuration prometheus.Histogram
	lastRun       prometheus.Gauge
}

// New returns a Recorder with its own registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Recorder{
		reg: reg,
		projects: f.NewCounterVec(prometheus.CounterOpts{
			Name: "fishframes_projects_total",
			Help: "Projects seen by the run, by outcome (selected/ok/failed).",
		}, []string{"outcome"}),
		videos: f.NewCounterVec(prometheus.CounterOpts{
			Name: "fishframes_videos_total",
			Help: "Videos handled, by outcome (ok/skipped/failed).",
		}, []string{"outcome"}),
		frames: f.NewCounterVec(prometheus.CounterOpts{
			Name: "fishframes_frames_total",
			Help: "Sampled frames, by outcome (written/duplicate).",
		}, []string{"outcome"}),
		downloaded: f.NewCounter(prometheus.CounterOpts{
			Name: "fishframes_downloaded_bytes_total",
			Help: "Bytes of video downloaded.",
		}),
		transfers: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "fishframes_remote_call_duration_seconds",
			Help:    "Duration of remote storage calls, by operation and outcome.",
			Buckets: prometheus.ExponentialBuckets(0.05, 4, 8),
		}, []string{"op", "outcome"}),
		videoDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "fishframes_video_duration_seconds",
			Help:    "Wall time to download, remux and sample one video.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}),
		lastRun: f.NewGauge(prometheus.GaugeOpts{
			Name: "fishframes_last_run_timestamp_seconds",
			Help: "Unix time the run finished.",
		}),
	}
}

// ObserveTransfer implements remote.Observer.
func (r *Recorder) ObserveTransfer(op string, elapsed time.Duration, err error) {
	r.transfers.WithLabelValues(op, outcome(err)).Observe(elapsed.Seconds())
}

// Project counts a project outcome.
func (r *Recorder) Project(outcome string) {
	r.projects.WithLabelValues(outcome).Inc()
}

// Video counts a video outcome and, for processed videos, its wall time.
func (r *Recorder) Video(outcome string, elapsed time.Duration) {
	r.videos.WithLabelValues(outcome).Inc()
	if outcome == OutcomeOK {
		r.videoDuration.Observe(elapsed.Seconds())
	}
}

// Frame counts one sampled frame.
func (r *Recorder) Frame(duplicate bool) {
	if duplicate {
		r.frames.WithLabelValues(OutcomeDuplicate).Inc()
		return
	}
	r.frames.WithLabelValues(OutcomeWritten).Inc()
}

// Downloaded adds n bytes to the download counter.
func (r *Recorder) Downloaded(n int64) {
	if n > 0 {
		r.downloaded.Add(float64(n))
	}
}

// WriteTextfile stamps the finish time and writes every metric to path in
// the Prometheus text format. The file is replaced atomically.
func (r *Recorder) WriteTextfile(path string) error {
	r.lastRun.SetToCurrentTime()
	return prometheus.WriteToTextfile(path, r.reg)
}

func outcome(err error) string {
	if err != nil {
		return OutcomeFailed
	}
	return OutcomeOK
}
