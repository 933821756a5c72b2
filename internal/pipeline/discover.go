package pipeline

import (
	"context"
	"sort"
	"strings"

	"github.com/backmassage/fishframes/internal/config"
	"github.com/backmassage/fishframes/internal/planner"
	"github.com/backmassage/fishframes/internal/remote"
)

// Discover lists a project's Videos dir and returns the names with a
// recognized container suffix, sorted for a deterministic processing
// order. A project without a Videos dir yields no names.
func Discover(ctx context.Context, gw remote.Gateway, cfg *config.Config, pid string) ([]string, error) {
	names, err := gw.List(ctx, planner.VideosDir(cfg, pid), false)
	if err != nil {
		return nil, err
	}
	videos := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.Trim(n, "/")
		if planner.ContainerOf(n) != "" {
			videos = append(videos, n)
		}
	}
	sort.Strings(videos)
	return videos, nil
}
