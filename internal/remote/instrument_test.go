package remote_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/backmassage/fishframes/internal/remote"
	"github.com/backmassage/fishframes/internal/remote/remotetest"
)

type recordingObserver struct {
	mu   sync.Mutex
	ops  []string
	errs int
}

func (o *recordingObserver) ObserveTransfer(op string, _ time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.ops = append(o.ops, op)
	if err != nil {
		o.errs++
	}
}

func TestInstrument(t *testing.T) {
	fake := remotetest.New(t.TempDir())
	fake.Put("__ProjectData/MC_s1/Logfile.txt", []byte("x"))
	obs := &recordingObserver{}
	gw := remote.Instrument(fake, obs)
	ctx := context.Background()

	names, err := gw.List(ctx, "__ProjectData", true)
	require.NoError(t, err)
	assert.Equal(t, []string{"MC_s1"}, names)

	require.NoError(t, gw.Download(ctx, "__ProjectData/MC_s1/Logfile.txt"))
	require.Error(t, gw.Download(ctx, "__ProjectData/missing"))
	require.NoError(t, gw.MakeLocalDir("out"))
	require.NoError(t, gw.Upload(ctx, "out"))

	assert.Equal(t, []string{"list", "download", "download", "upload"}, obs.ops)
	assert.Equal(t, 1, obs.errs)
}

func TestInstrument_NilObserver(t *testing.T) {
	fake := remotetest.New(t.TempDir())
	assert.Same(t, remote.Gateway(fake), remote.Instrument(fake, nil))
}

func TestFake_ListSingleFile(t *testing.T) {
	fake := remotetest.New(t.TempDir())
	fake.Put("__ProjectData/p/Logfile.txt", []byte("x"))
	fake.Put("__ProjectData/p/Videos/0001_vid.mp4", []byte("v"))
	ctx := context.Background()

	names, err := fake.List(ctx, "__ProjectData/p/Logfile.txt", false)
	require.NoError(t, err)
	assert.Equal(t, []string{"Logfile.txt"}, names)

	names, err = fake.List(ctx, "__ProjectData/q/Logfile.txt", false)
	require.NoError(t, err)
	assert.Empty(t, names)

	names, err = fake.List(ctx, "__ProjectData/p", false)
	require.NoError(t, err)
	assert.Equal(t, []string{"Logfile.txt", "Videos"}, names)
}
