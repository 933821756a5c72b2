package planner

import (
	"strings"

	"github.com/backmassage/fishframes/internal/config"
)

// VideosDirName is the per-project directory holding the recordings.
const VideosDirName = "Videos"

// ProjectDir is the relative directory of a project below the data dir.
func ProjectDir(cfg *config.Config, pid string) string {
	return joinRel(cfg.DataDir, pid)
}

// VideosDir is the relative Videos directory of a project.
func VideosDir(cfg *config.Config, pid string) string {
	return joinRel(ProjectDir(cfg, pid), VideosDirName)
}

// Planner builds VideoPlans for one run.
type Planner struct {
	cfg       *config.Config
	sel       config.VideoSelection
	localPath func(rel string) string
}

// New returns a Planner. localPath maps a relative path to its local
// absolute path (normally Gateway.LocalPath).
func New(cfg *config.Config, localPath func(string) string) (*Planner, error) {
	sel, err := config.ParseVideoSelection(cfg.Videos)
	if err != nil {
		return nil, err
	}
	return &Planner{cfg: cfg, sel: sel, localPath: localPath}, nil
}

// BuildPlan produces the plan for one listed video name.
//
// Flow:
//  1. Skip names without a recognized container suffix
//  2. Skip names outside the video id selection
//  3. Decide remux for raw .h264 captures
//  4. Fill in source and decode paths
func (p *Planner) BuildPlan(pid, name string) *VideoPlan {
	name = strings.Trim(name, "/")
	plan := &VideoPlan{
		Project:   pid,
		Name:      name,
		Container: ContainerOf(name),
		RemuxFPS:  p.cfg.RemuxFPS,
	}

	// --- 1. Container ---
	if plan.Container == "" {
		plan.Action = ActionSkip
		plan.SkipReason = "not a video"
		return plan
	}

	// --- 2. Selection ---
	if !p.sel.Matches(name) {
		plan.Action = ActionSkip
		plan.SkipReason = "not in video selection"
		return plan
	}

	// --- 3. Action ---
	plan.SourceRel = joinRel(VideosDir(p.cfg, pid), name)
	plan.DecodeRel = plan.SourceRel
	if plan.Container == ContainerH264 {
		plan.Action = ActionRemuxSample
		plan.DecodeRel = joinRel(VideosDir(p.cfg, pid), remuxName(name))
	}

	// --- 4. Local paths ---
	plan.SourcePath = p.localPath(plan.SourceRel)
	plan.DecodePath = p.localPath(plan.DecodeRel)
	return plan
}

// PlanAll plans every listed name, keeping enumeration order. Non-video
// entries are dropped silently; selection skips are returned as plans so
// callers can report them.
func (p *Planner) PlanAll(pid string, names []string) []*VideoPlan {
	plans := make([]*VideoPlan, 0, len(names))
	for _, n := range names {
		plan := p.BuildPlan(pid, n)
		if plan.Container == "" {
			continue
		}
		plans = append(plans, plan)
	}
	return plans
}

// remuxName swaps the capture suffix for .mp4, keeping the base name so
// frame names are the same whichever container was recorded.
func remuxName(name string) string {
	ext := name[len(name)-len(ContainerH264):]
	return strings.TrimSuffix(name, ext) + string(ContainerMP4)
}

func joinRel(parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.Trim(p, "/")
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, "/")
}
