package planner

import (
	"path"
	"strings"
)

// Container is a recognized video suffix.
type Container string

const (
	ContainerMP4  Container = ".mp4"  // Standard container, decoded as is.
	ContainerH264 Container = ".h264" // Raw capture, remuxed to .mp4 first.
)

// ContainerOf returns the container of a video file name, or "" when the
// suffix is not recognized.
func ContainerOf(name string) Container {
	switch Container(strings.ToLower(path.Ext(name))) {
	case ContainerMP4:
		return ContainerMP4
	case ContainerH264:
		return ContainerH264
	default:
		return ""
	}
}

// Action describes the per-video processing decision.
type Action int

const (
	ActionSample      Action = iota // Download and sample directly.
	ActionRemuxSample               // Download, remux to .mp4, then sample.
	ActionSkip
)

func (a Action) String() string {
	switch a {
	case ActionSample:
		return "sample"
	case ActionRemuxSample:
		return "remux+sample"
	default:
		return "skip"
	}
}

// VideoPlan holds every decision for one video. Paths named Rel are
// relative to the storage roots; the Path fields are local and absolute.
type VideoPlan struct {
	Project    string
	Name       string // File name inside the project's Videos dir.
	Action     Action
	SkipReason string

	Container Container
	RemuxFPS  int

	SourceRel string // Remote and local path of the downloaded file.
	DecodeRel string // The .mp4 that is decoded (same as SourceRel unless remuxed).

	SourcePath string
	DecodePath string
}

// NeedsRemux reports whether the source must be remuxed before decoding.
func (p *VideoPlan) NeedsRemux() bool { return p.Action == ActionRemuxSample }
