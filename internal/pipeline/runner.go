package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/backmassage/fishframes/internal/config"
	"github.com/backmassage/fishframes/internal/display"
	"github.com/backmassage/fishframes/internal/logging"
	"github.com/backmassage/fishframes/internal/metrics"
	"github.com/backmassage/fishframes/internal/naming"
	"github.com/backmassage/fishframes/internal/planner"
	"github.com/backmassage/fishframes/internal/remote"
	"github.com/backmassage/fishframes/internal/sampler"
	"github.com/backmassage/fishframes/internal/selector"
	"github.com/backmassage/fishframes/internal/tracing"
	"github.com/backmassage/fishframes/internal/video"
)

const tracerName = "github.com/backmassage/fishframes/internal/pipeline"

// ErrUpload is returned by Run when the final results upload fails.
var ErrUpload = errors.New("upload results")

// Deps are the collaborators of a run. Gateway, Decoder and Remuxer are
// required; the rest default to no-ops.
type Deps struct {
	Gateway remote.Gateway
	Decoder video.Decoder
	Remuxer video.Remuxer
	Metrics *metrics.Recorder
	Log     *logging.Logger
	RunID   string
}

// runner holds the state shared by all project workers of one run.
type runner struct {
	cfg      *config.Config
	gw       remote.Gateway
	dec      video.Decoder
	remuxer  video.Remuxer
	rec      *metrics.Recorder
	log      *logging.Logger
	tracer   trace.Tracer
	plans    *planner.Planner
	writer   *sampler.FrameWriter
	manifest *manifest
	stats    *RunStats
	results  string // Results dir, relative.

	// Frame writes hold the read lock; per-project uploads hold the write
	// lock so no upload sees a half-written frame.
	uploadMu sync.RWMutex
}

// Run is the top-level batch entry point. It selects projects, processes
// them with up to cfg.Workers in parallel, uploads the results dir and
// returns aggregate stats.
//
// The returned error is non-nil only for failures that abort the run:
// listing the data dir, preparing the results dir, cancellation, or the
// final upload. Per-project and per-video failures are counted in the
// stats instead.
func Run(ctx context.Context, cfg *config.Config, d Deps) (*RunStats, error) {
	start := time.Now()
	stats := &RunStats{}
	if d.RunID == "" {
		d.RunID = uuid.NewString()
	}
	if d.Log == nil {
		d.Log = logging.Nop()
	}
	if d.Metrics == nil {
		d.Metrics = metrics.New()
	}
	log := d.Log.With(logging.FieldRunID, d.RunID)

	tracer := tracing.Tracer(tracerName)
	ctx, span := tracer.Start(ctx, "run", trace.WithAttributes(
		attribute.String("run.id", d.RunID),
		attribute.String("run.subset", cfg.SubsetLabel()),
		attribute.Int("run.timestep", cfg.Timestep),
	))
	defer span.End()

	plans, err := planner.New(cfg, d.Gateway.LocalPath)
	if err != nil {
		return stats, err
	}

	// --- Select ---
	sel, err := selector.New(d.Gateway, cfg, log).Select(ctx)
	stats.Candidates = sel.Candidates
	stats.Selected = len(sel.Projects)
	stats.ProjectsFailed = len(sel.Failed)
	for range sel.Projects {
		d.Metrics.Project("selected")
	}
	for range sel.Failed {
		d.Metrics.Project(metrics.OutcomeFailed)
	}
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return stats, err
	}
	logBatchHeader(cfg, log, sel)

	if cfg.DryRun {
		dryRun(ctx, cfg, d.Gateway, plans, log, sel.Projects)
		stats.Elapsed = time.Since(start)
		logSummary(cfg, log, stats)
		return stats, ctx.Err()
	}

	// --- Prepare results dir ---
	results := cfg.ResultsDir()
	if err := d.Gateway.MakeLocalDir(results); err != nil {
		return stats, fmt.Errorf("create results dir: %w", err)
	}
	writer := &sampler.FrameWriter{Dir: d.Gateway.LocalPath(results)}
	if cfg.SkipExisting {
		existing, err := d.Gateway.List(ctx, results, false)
		if err != nil {
			return stats, fmt.Errorf("list existing frames: %w", err)
		}
		writer.Dups = naming.NewDuplicateIndex(existing)
		log.Info("Duplicate check: %d frames already uploaded", writer.Dups.Len())
	}

	r := &runner{
		cfg:      cfg,
		gw:       d.Gateway,
		dec:      d.Decoder,
		remuxer:  d.Remuxer,
		rec:      d.Metrics,
		log:      log,
		tracer:   tracer,
		plans:    plans,
		writer:   writer,
		manifest: &manifest{},
		stats:    stats,
		results:  results,
	}

	// --- Process projects ---
	var g errgroup.Group
	g.SetLimit(cfg.Workers)
	for i, p := range sel.Projects {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			r.processProject(ctx, i+1, len(sel.Projects), p)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		log.Warn("Interrupted; results were not uploaded")
		stats.Elapsed = time.Since(start)
		logSummary(cfg, log, stats)
		return stats, err
	}

	// --- Manifest and upload ---
	if cfg.WriteManifest && r.manifest.len() > 0 {
		name := ManifestName(d.RunID)
		if err := r.manifest.write(writer.Dir, name); err != nil {
			log.Warn("%v", err)
		} else {
			log.Debug("Manifest: %s", name)
		}
	}

	log.Info("Uploading %s", results)
	if err := d.Gateway.Upload(ctx, results); err != nil {
		span.SetStatus(codes.Error, err.Error())
		stats.Elapsed = time.Since(start)
		logSummary(cfg, log, stats)
		return stats, fmt.Errorf("%w: %w", ErrUpload, err)
	}
	log.Success("Uploaded %s", results)

	stats.Elapsed = time.Since(start)
	logSummary(cfg, log, stats)
	return stats, nil
}

// processProject samples every selected video of one project. A listing
// or transfer failure marks the project failed; the run continues.
func (r *runner) processProject(ctx context.Context, n, total int, p selector.Project) {
	log := r.log.With(logging.FieldProject, p.ID)
	ctx, span := r.tracer.Start(ctx, "project", trace.WithAttributes(
		attribute.String("project.id", p.ID),
		attribute.String("project.group", p.Group),
	))
	defer span.End()

	log.Info("[%d/%d] %s (%s, created %s)", n, total, p.ID, p.Group, p.Created)

	err := r.sampleProject(ctx, log, p)
	if err == nil && r.cfg.UploadPerProject {
		err = r.uploadResults(ctx)
	}
	switch {
	case err == nil:
		r.stats.update(func(s *RunStats) { s.ProjectsDone++ })
		r.rec.Project(metrics.OutcomeOK)
	case ctx.Err() != nil:
		log.Warn("Interrupted")
	default:
		log.Error("Project failed: %v", err)
		span.SetStatus(codes.Error, err.Error())
		r.stats.update(func(s *RunStats) { s.ProjectsFailed++ })
		r.rec.Project(metrics.OutcomeFailed)
	}
}

func (r *runner) uploadResults(ctx context.Context) error {
	r.uploadMu.Lock()
	defer r.uploadMu.Unlock()
	if err := r.gw.Upload(ctx, r.results); err != nil {
		return fmt.Errorf("upload results: %w", err)
	}
	return nil
}

func (r *runner) sampleProject(ctx context.Context, log *logging.Logger, p selector.Project) error {
	names, err := Discover(ctx, r.gw, r.cfg, p.ID)
	if err != nil {
		return fmt.Errorf("list videos: %w", err)
	}
	if len(names) == 0 {
		log.Warn("No videos")
		return nil
	}

	for _, plan := range r.plans.PlanAll(p.ID, names) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if plan.Action == planner.ActionSkip {
			log.Debug("Skip %s: %s", plan.Name, plan.SkipReason)
			continue
		}
		if err := r.processVideo(ctx, log.With(logging.FieldVideo, plan.Name), plan, p.Group); err != nil {
			return err
		}
	}
	return nil
}

// errVideo marks a failure confined to one video.
type errVideo struct {
	skip bool // Skipped (no frame rate) rather than failed.
	err  error
}

func (e *errVideo) Error() string { return e.err.Error() }
func (e *errVideo) Unwrap() error { return e.err }

// processVideo runs one plan. Video-level problems are logged and counted
// here; the returned error is a transfer failure that fails the project,
// or cancellation.
func (r *runner) processVideo(ctx context.Context, log *logging.Logger, plan *planner.VideoPlan, group string) error {
	ctx, span := r.tracer.Start(ctx, "video", trace.WithAttributes(
		attribute.String("video.name", plan.Name),
		attribute.String("video.action", plan.Action.String()),
	))
	defer span.End()

	start := time.Now()
	res, err := r.sampleVideo(ctx, log, plan, group)
	elapsed := time.Since(start)

	var ve *errVideo
	switch {
	case err == nil:
		r.stats.update(func(s *RunStats) { s.VideosDone++ })
		r.rec.Video(metrics.OutcomeOK, elapsed)
		span.SetAttributes(attribute.Int("video.frames", res.Frames))
		log.Success("%s: %s at %d fps (step %d) in %s",
			plan.Name, display.Plural(res.Frames, "frame"),
			res.FPS, res.Step, display.FormatDuration(elapsed))
		return nil
	case ctx.Err() != nil:
		return ctx.Err()
	case errors.As(err, &ve) && ve.skip:
		log.Warn("Skip %s: %v", plan.Name, ve.err)
		r.stats.update(func(s *RunStats) { s.VideosSkipped++ })
		r.rec.Video(metrics.OutcomeSkipped, elapsed)
		return nil
	case errors.As(err, &ve):
		log.Error("%s failed: %v", plan.Name, ve.err)
		span.SetStatus(codes.Error, ve.err.Error())
		r.stats.update(func(s *RunStats) { s.VideosFailed++ })
		r.rec.Video(metrics.OutcomeFailed, elapsed)
		return nil
	default:
		span.SetStatus(codes.Error, err.Error())
		return err
	}
}

// sampleVideo downloads, optionally remuxes and samples one video, then
// removes its transient local copies.
//
// Flow:
//  1. Download the source
//  2. Remux .h264 captures to .mp4 and drop the raw copy
//  3. Open the decoder (no frame rate: skip)
//  4. Sample and write frames
func (r *runner) sampleVideo(ctx context.Context, log *logging.Logger, plan *planner.VideoPlan, group string) (sampler.Result, error) {
	defer r.cleanup(log, plan)

	// --- 1. Download ---
	if err := r.gw.Download(ctx, plan.SourceRel); err != nil {
		if errors.Is(err, remote.ErrNotFound) {
			return sampler.Result{}, &errVideo{err: err}
		}
		return sampler.Result{}, fmt.Errorf("download %s: %w", plan.Name, err)
	}
	if fi, err := os.Stat(plan.SourcePath); err == nil {
		r.stats.update(func(s *RunStats) { s.BytesDownloaded += fi.Size() })
		r.rec.Downloaded(fi.Size())
		log.With(logging.FieldPath, plan.SourceRel).Debug("Downloaded %s (%s)", plan.Name, display.FormatBytes(fi.Size()))
	}

	// --- 2. Remux ---
	if plan.NeedsRemux() {
		if err := r.remuxer.Remux(ctx, plan.SourcePath, plan.DecodePath, plan.RemuxFPS); err != nil {
			return sampler.Result{}, &errVideo{err: fmt.Errorf("remux: %w", err)}
		}
		if err := r.gw.DeleteLocal(plan.SourceRel); err != nil {
			log.Warn("Remove raw capture: %v", err)
		}
	}

	// --- 3. Decode ---
	c, err := r.dec.Open(ctx, plan.DecodePath)
	if err != nil {
		return sampler.Result{}, &errVideo{skip: errors.Is(err, video.ErrNoFrameRate), err: err}
	}
	defer c.Close()

	// --- 4. Sample ---
	smp := sampler.Sampler{Interval: r.cfg.Timestep}
	res, err := smp.Sample(ctx, c, func(f sampler.Frame) error {
		id := naming.NewFrameID(plan.Project, plan.Name, r.cfg.Timestep, f.Index, f.FPS)
		r.uploadMu.RLock()
		dup, err := r.writer.Write(id, f.Image)
		r.uploadMu.RUnlock()
		if err != nil {
			return err
		}
		r.rec.Frame(dup)
		flog := log.With(logging.FieldFrame, strconv.Itoa(f.Index))
		if dup {
			flog.Debug("Duplicate %s", id.Name())
			r.stats.update(func(s *RunStats) { s.FramesDuplicate++ })
			return nil
		}
		flog.Debug("Wrote %s", id.Path(r.results))
		r.stats.update(func(s *RunStats) { s.FramesWritten++ })
		r.manifest.add(id, sampler.Step(r.cfg.Timestep, f.FPS), group, time.Now())
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		return res, &errVideo{skip: errors.Is(err, video.ErrNoFrameRate), err: err}
	}
	return res, nil
}

func (r *runner) cleanup(log *logging.Logger, plan *planner.VideoPlan) {
	for _, rel := range []string{plan.SourceRel, plan.DecodeRel} {
		if err := r.gw.DeleteLocal(rel); err != nil {
			log.With(logging.FieldPath, rel).Warn("Remove %s: %v", rel, err)
		}
	}
}

// dryRun reports what a run would process without downloading videos.
func dryRun(ctx context.Context, cfg *config.Config, gw remote.Gateway, plans *planner.Planner, log *logging.Logger, projects []selector.Project) {
	for _, p := range projects {
		if ctx.Err() != nil {
			return
		}
		names, err := Discover(ctx, gw, cfg, p.ID)
		if err != nil {
			log.Error("%s: list videos: %v", p.ID, err)
			continue
		}
		for _, plan := range plans.PlanAll(p.ID, names) {
			if plan.Action == planner.ActionSkip {
				continue
			}
			log.Success("[DRY] Would %s %s/%s", plan.Action, p.ID, plan.Name)
		}
	}
}
