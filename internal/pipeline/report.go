package pipeline

import (
	"github.com/backmassage/fishframes/internal/config"
	"github.com/backmassage/fishframes/internal/display"
	"github.com/backmassage/fishframes/internal/logging"
	"github.com/backmassage/fishframes/internal/selector"
)

// --- Logging helpers ---

func logBatchHeader(cfg *config.Config, log *logging.Logger, sel selector.Selection) {
	log.Info("Found %d projects, %d match subset %s, %d created since %04d-%02d",
		sel.Candidates, sel.NameMatch, cfg.SubsetLabel(), len(sel.Projects), cfg.MinYear, cfg.MinMonth)
	if len(sel.Failed) > 0 {
		log.Warn("%s could not be read", display.Plural(len(sel.Failed), "project Logfile"))
	}
	log.Info("Sampling: one frame every %d min -> %s", cfg.Timestep, cfg.ResultsDir())
	if cfg.Workers > 1 {
		log.Info("Workers: %d projects in parallel", cfg.Workers)
	}
	if cfg.SkipExisting {
		log.Info("Duplicates: frames already uploaded are not rewritten")
	}
	if cfg.UploadPerProject {
		log.Info("Upload: after every project")
	}
}

func logSummary(cfg *config.Config, log *logging.Logger, stats *RunStats) {
	stats.mu.Lock()
	defer stats.mu.Unlock()

	log.Info("==============================")
	log.Info("Done in %s: %d projects processed, %d failed (of %d selected)",
		display.FormatDuration(stats.Elapsed), stats.ProjectsDone, stats.ProjectsFailed, stats.Selected)
	if cfg.DryRun {
		log.Info("  Dry run: nothing downloaded or written")
		return
	}
	log.Info("  Videos: %d sampled, %d skipped, %d failed",
		stats.VideosDone, stats.VideosSkipped, stats.VideosFailed)
	log.Info("  Frames: %d written, %d duplicate", stats.FramesWritten, stats.FramesDuplicate)

	if stats.ProjectsFailed > 0 || stats.VideosFailed > 0 {
		log.Warn("  Downloaded %s with failures", display.FormatBytes(stats.BytesDownloaded))
		return
	}
	log.Success("  Downloaded %s", display.FormatBytes(stats.BytesDownloaded))
}
