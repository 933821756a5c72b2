package selector

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/backmassage/fishframes/internal/config"
	"github.com/backmassage/fishframes/internal/remote/remotetest"
)

func logfile(ts string) []byte {
	return []byte("ProjectID: x\nMasterRecordInitialStart: " + ts + "\n")
}

func newFixture(t *testing.T) (*remotetest.Fake, config.Config) {
	t.Helper()
	fake := remotetest.New(t.TempDir())
	fake.Put("__ProjectData/MC_s1_tr1/Logfile.txt", logfile("2019-07-12 11:00:01.123456"))
	fake.Put("__ProjectData/MZ_s2_tr1/Logfile.txt", logfile("2018-12-01 09:00:00.000000"))
	fake.Put("__ProjectData/CV_s3_tr2/Logfile.txt", []byte("no marker here\n"))
	fake.Put("__ProjectData/TI_s4_tr1/Videos/0001_vid.mp4", []byte("v"))
	fake.Put("__ProjectData/KL_s5_tr1/Logfile.txt", logfile("2020-03-03 10:00:00.5"))

	cfg := config.DefaultConfig()
	return fake, cfg
}

func TestSelect_DateFilter(t *testing.T) {
	fake, cfg := newFixture(t)
	s := New(fake, &cfg, nil)

	sel, err := s.Select(context.Background())
	require.NoError(t, err)

	var ids []string
	for _, p := range sel.Projects {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []string{"KL_s5_tr1", "MC_s1_tr1"}, ids)
	assert.Equal(t, 5, sel.Candidates)
	assert.Equal(t, 5, sel.NameMatch)
	assert.Empty(t, sel.Failed)
	assert.Equal(t, "rock", sel.Projects[0].Group)
	assert.Equal(t, CreationDate{2020, 3}, sel.Projects[0].Created)
}

func TestSelect_ZeroThresholdAcceptsUnknownDates(t *testing.T) {
	fake, cfg := newFixture(t)
	cfg.MinYear, cfg.MinMonth = 0, 0
	cfg.Subset = []string{"sand"}

	sel, err := New(fake, &cfg, nil).Select(context.Background())
	require.NoError(t, err)

	var ids []string
	for _, p := range sel.Projects {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []string{"CV_s3_tr2", "MC_s1_tr1", "TI_s4_tr1"}, ids)
	assert.Equal(t, 3, sel.NameMatch)
}

func TestSelect_CleansUpLogfiles(t *testing.T) {
	fake, cfg := newFixture(t)
	_, err := New(fake, &cfg, nil).Select(context.Background())
	require.NoError(t, err)

	_, statErr := os.Stat(fake.LocalPath("__ProjectData/MC_s1_tr1/Logfile.txt"))
	assert.True(t, os.IsNotExist(statErr), "local Logfile copy should be removed")
}

func TestSelect_DownloadFailureSkipsProject(t *testing.T) {
	fake, cfg := newFixture(t)
	boom := errors.New("transfer failed")
	fake.FailDownload["__ProjectData/MC_s1_tr1/Logfile.txt"] = boom

	sel, err := New(fake, &cfg, nil).Select(context.Background())
	require.NoError(t, err)
	require.Len(t, sel.Failed, 1)
	assert.Equal(t, "MC_s1_tr1", sel.Failed[0].ID)
	assert.ErrorIs(t, sel.Failed[0].Err, boom)
	require.Len(t, sel.Projects, 1)
	assert.Equal(t, "KL_s5_tr1", sel.Projects[0].ID)
}

func TestSelect_Cancelled(t *testing.T) {
	fake, cfg := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(fake, &cfg, nil).Select(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestSelect_EmptyRemote(t *testing.T) {
	cfg := config.DefaultConfig()
	sel, err := New(remotetest.New(t.TempDir()), &cfg, nil).Select(context.Background())
	require.NoError(t, err)
	assert.Empty(t, sel.Projects)
	assert.Zero(t, sel.Candidates)
}
