package remote

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type step struct {
	out  string
	code int
}

// scriptRunner replays one step per invocation and records the arguments.
type scriptRunner struct {
	mu    sync.Mutex
	steps []step
	calls [][]string
}

func (s *scriptRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, append([]string{name}, args...))
	if len(s.steps) == 0 {
		return nil, nil
	}
	st := s.steps[0]
	s.steps = s.steps[1:]
	if st.code != 0 {
		return nil, &CommandError{Name: name, Args: args, Code: st.code}
	}
	return []byte(st.out), nil
}

func newTestRclone(t *testing.T, steps ...step) (*Rclone, *scriptRunner) {
	t.Helper()
	run := &scriptRunner{steps: steps}
	r := NewRclone(t.TempDir(), "cichlidVideo:BioSci", RcloneOptions{
		Retries: 3,
		Backoff: time.Millisecond,
		Runner:  run,
	})
	return r, run
}

func TestRclone_RemotePath(t *testing.T) {
	r, _ := newTestRclone(t)
	assert.Equal(t, "cichlidVideo:BioSci/__ProjectData", r.RemotePath("__ProjectData"))
	assert.Equal(t, "cichlidVideo:BioSci", r.RemotePath(""))

	bare := NewRclone(t.TempDir(), "s3remote:", RcloneOptions{})
	assert.Equal(t, "s3remote:bucket/x", bare.RemotePath("bucket/x"))
}

func TestRclone_ListDirs(t *testing.T) {
	r, run := newTestRclone(t, step{out: "MC_s1_tr1/\nCV_s2_tr3/\n\n"})

	names, err := r.List(context.Background(), "__ProjectData", true)
	require.NoError(t, err)
	assert.Equal(t, []string{"MC_s1_tr1", "CV_s2_tr3"}, names)
	require.Len(t, run.calls, 1)
	assert.Equal(t, []string{"rclone", "lsf", "--dirs-only", "cichlidVideo:BioSci/__ProjectData"}, run.calls[0])
}

func TestRclone_ListMissingIsEmpty(t *testing.T) {
	for _, code := range []int{3, 4} {
		r, run := newTestRclone(t, step{code: code})
		names, err := r.List(context.Background(), "__ProjectData/x/Logfile.txt", false)
		require.NoError(t, err)
		assert.Empty(t, names)
		assert.NotNil(t, names)
		assert.Len(t, run.calls, 1, "not-found is not retried")
	}
}

func TestRclone_RetriesRetryable(t *testing.T) {
	r, run := newTestRclone(t, step{code: 5}, step{code: 2}, step{out: ""})

	err := r.Download(context.Background(), "__ProjectData/p/Videos/0001_vid.mp4")
	require.NoError(t, err)
	assert.Len(t, run.calls, 3)
	assert.Equal(t, "copyto", run.calls[0][1])
	assert.True(t, strings.HasSuffix(run.calls[0][3], "0001_vid.mp4"))
}

func TestRclone_RetryLimit(t *testing.T) {
	r, run := newTestRclone(t, step{code: 5}, step{code: 5}, step{code: 5}, step{code: 5})

	err := r.Upload(context.Background(), "__TrainingData")
	require.Error(t, err)
	assert.Equal(t, ExitRetryable, Classify(err))
	assert.Len(t, run.calls, 3)
}

func TestRclone_PermanentNotRetried(t *testing.T) {
	r, run := newTestRclone(t, step{code: 7})

	err := r.Upload(context.Background(), "__TrainingData")
	require.Error(t, err)
	assert.Len(t, run.calls, 1)
}

func TestRclone_DownloadMissing(t *testing.T) {
	r, _ := newTestRclone(t, step{code: 3})

	err := r.Download(context.Background(), "__ProjectData/p/Logfile.txt")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRclone_RejectsEscape(t *testing.T) {
	r, run := newTestRclone(t)

	_, err := r.List(context.Background(), "../secrets", false)
	require.True(t, errors.Is(err, ErrEscapesRoot))
	assert.Empty(t, run.calls)
}

func TestParseLsf(t *testing.T) {
	assert.Equal(t, []string{"a", "b.mp4"}, parseLsf([]byte("a/\n  b.mp4  \n")))
	assert.Equal(t, []string{}, parseLsf(nil))
}
