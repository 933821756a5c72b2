// Package selector decides which projects a run processes. Projects are
// filtered by name tokens (with alias groups) and by the creation date
// recorded in each project's Logfile.
package selector

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/backmassage/fishframes/internal/config"
	"github.com/backmassage/fishframes/internal/logging"
	"github.com/backmassage/fishframes/internal/remote"
)

// Project is an accepted recording session.
type Project struct {
	ID      string
	Group   string
	Created CreationDate
}

// Failure is a project whose metadata could not be read.
type Failure struct {
	ID  string
	Err error
}

// Selection is the outcome of [Selector.Select].
type Selection struct {
	Projects   []Project
	Candidates int // Directories listed below the data dir.
	NameMatch  int // Candidates that passed the name filter.
	Failed     []Failure
}

// Selector enumerates and filters projects through a Gateway.
type Selector struct {
	gw       remote.Gateway
	dataDir  string
	filter   Filter
	aliases  map[string][]string
	minYear  int
	minMonth int
	log      *logging.Logger
}

// New builds a Selector from the run configuration.
func New(gw remote.Gateway, cfg *config.Config, log *logging.Logger) *Selector {
	if log == nil {
		log = logging.Nop()
	}
	return &Selector{
		gw:       gw,
		dataDir:  cfg.DataDir,
		filter:   ResolveTokens(cfg.Subset, cfg.Aliases),
		aliases:  cfg.Aliases,
		minYear:  cfg.MinYear,
		minMonth: cfg.MinMonth,
		log:      log,
	}
}

// Select lists the data dir and returns the accepted projects in
// enumeration order. A failure to list the data dir is fatal; a failure
// to read one project's Logfile is recorded and the project skipped.
func (s *Selector) Select(ctx context.Context) (Selection, error) {
	var sel Selection
	dirs, err := s.gw.List(ctx, s.dataDir, true)
	if err != nil {
		return sel, fmt.Errorf("list projects: %w", err)
	}
	sel.Candidates = len(dirs)

	for _, dir := range dirs {
		if err := ctx.Err(); err != nil {
			return sel, err
		}
		pid := strings.Trim(dir, "/")
		if pid == "" || !s.filter.Match(pid) {
			continue
		}
		sel.NameMatch++

		created, err := s.CreationDate(ctx, pid)
		if err != nil {
			if ctx.Err() != nil {
				return sel, ctx.Err()
			}
			s.log.Error("%s: read %s: %v", pid, LogfileName, err)
			sel.Failed = append(sel.Failed, Failure{ID: pid, Err: err})
			continue
		}
		if !created.Passes(s.minYear, s.minMonth) {
			s.log.Debug("%s: created %s, before %04d-%02d; skipped", pid, created, s.minYear, s.minMonth)
			continue
		}
		sel.Projects = append(sel.Projects, Project{
			ID:      pid,
			Group:   Classify(pid, s.aliases),
			Created: created,
		})
	}
	return sel, nil
}

// CreationDate downloads, parses and removes the project's Logfile. A
// missing Logfile, or one without a parseable marker line, yields the
// zero date; only transfer and filesystem errors are returned.
func (s *Selector) CreationDate(ctx context.Context, pid string) (CreationDate, error) {
	rel := remote.Join(s.dataDir, pid, LogfileName)
	names, err := s.gw.List(ctx, rel, false)
	if err != nil {
		return CreationDate{}, err
	}
	if len(names) == 0 {
		s.log.Debug("%s: no %s", pid, LogfileName)
		return CreationDate{}, nil
	}

	if err := s.gw.Download(ctx, rel); err != nil {
		return CreationDate{}, err
	}
	defer func() {
		if err := s.gw.DeleteLocal(rel); err != nil {
			s.log.Warn("%s: remove local %s: %v", pid, LogfileName, err)
		}
	}()

	f, err := os.Open(s.gw.LocalPath(rel))
	if err != nil {
		return CreationDate{}, err
	}
	defer f.Close()

	created, err := ParseLogfile(f)
	if err != nil {
		if errors.Is(err, ErrNoMarker) {
			s.log.Warn("%s: %s has no start timestamp", pid, LogfileName)
		} else {
			s.log.Warn("%s: %v", pid, err)
		}
		return CreationDate{}, nil
	}
	return created, nil
}
