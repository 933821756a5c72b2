package pipeline

import (
	"sync"
	"time"
)

// RunStats tracks aggregate counters across a run. Workers update it
// concurrently; read it only after Run returns.
type RunStats struct {
	mu sync.Mutex

	Candidates     int // Project directories listed.
	Selected       int // Projects that passed the name and date filters.
	ProjectsDone   int
	ProjectsFailed int

	VideosDone    int
	VideosSkipped int
	VideosFailed  int

	FramesWritten   int
	FramesDuplicate int

	BytesDownloaded int64
	Elapsed         time.Duration
}

// Failed reports whether any project or video failed.
func (s *RunStats) Failed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ProjectsFailed > 0 || s.VideosFailed > 0
}

func (s *RunStats) update(fn func(s *RunStats)) {
	s.mu.Lock()
	fn(s)
	s.mu.Unlock()
}
