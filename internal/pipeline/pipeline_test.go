package pipeline

import (
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/backmassage/fishframes/internal/config"
	"github.com/backmassage/fishframes/internal/ffmpeg"
	"github.com/backmassage/fishframes/internal/logging"
	"github.com/backmassage/fishframes/internal/metrics"
	"github.com/backmassage/fishframes/internal/probe"
	"github.com/backmassage/fishframes/internal/remote/remotetest"
	"github.com/backmassage/fishframes/internal/video/videotest"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const resultsDir = "__TrainingData/CichlidDetection/Training2021/Images_1/all"

type fixture struct {
	fake    *remotetest.Fake
	dec     *videotest.Decoder
	remuxer *videotest.Remuxer
	cfg     config.Config
}

func logfile(ts string) []byte {
	return []byte("ProjectID: x\nMasterRecordInitialStart: " + ts + "\n")
}

// newFixture builds two selected projects:
//
//	MC_s1_tr1: 0001_vid.mp4 (3601 frames at 30 fps), 0002_vid.h264 (1801 frames)
//	KL_s2_tr1: 0001_vid.mp4 (10 frames)
//
// plus one project created too early and one stray file.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{fake: remotetest.New(t.TempDir()), dec: videotest.NewDecoder()}
	f.remuxer = &videotest.Remuxer{Decoder: f.dec}

	f.fake.Put("__ProjectData/MC_s1_tr1/Logfile.txt", logfile("2020-03-04 10:11:12.123456"))
	f.addVideo("MC_s1_tr1", "0001_vid.mp4", videotest.Clip{FPS: 29.97, Frames: 3601})
	f.addVideo("MC_s1_tr1", "0002_vid.h264", videotest.Clip{FPS: 30, Frames: 1801})
	f.fake.Put("__ProjectData/MC_s1_tr1/Videos/notes.txt", []byte("n"))

	f.fake.Put("__ProjectData/KL_s2_tr1/Logfile.txt", logfile("2021-06-01 08:00:00.000000"))
	f.addVideo("KL_s2_tr1", "0001_vid.mp4", videotest.Clip{FPS: 30, Frames: 10})

	f.fake.Put("__ProjectData/RS_s0_tr1/Logfile.txt", logfile("2018-01-01 00:00:00.000000"))
	f.addVideo("RS_s0_tr1", "0001_vid.mp4", videotest.Clip{FPS: 30, Frames: 10})

	f.cfg = config.DefaultConfig()
	f.cfg.Timestep = 1
	return f
}

func (f *fixture) addVideo(pid, name string, c videotest.Clip) {
	rel := "__ProjectData/" + pid + "/Videos/" + name
	f.fake.Put(rel, []byte("video "+rel))
	f.dec.Add(f.fake.LocalPath(rel), c)
}

func (f *fixture) run(ctx context.Context) (*RunStats, error) {
	return Run(ctx, &f.cfg, Deps{
		Gateway: f.fake,
		Decoder: f.dec,
		Remuxer: f.remuxer,
		Log:     logging.Nop(),
		RunID:   "test-run",
	})
}

func frameKeys(f *fixture) []string {
	var out []string
	for _, k := range f.fake.Keys(resultsDir) {
		if strings.HasSuffix(k, ".jpg") {
			out = append(out, strings.TrimPrefix(k, resultsDir+"/"))
		}
	}
	return out
}

func TestRun_SamplesAndUploads(t *testing.T) {
	f := newFixture(t)

	stats, err := f.run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, stats.Candidates)
	assert.Equal(t, 2, stats.Selected)
	assert.Equal(t, 2, stats.ProjectsDone)
	assert.Equal(t, 3, stats.VideosDone)
	assert.Equal(t, 6, stats.FramesWritten)
	assert.False(t, stats.Failed())
	assert.Positive(t, stats.BytesDownloaded)

	assert.Equal(t, []string{
		"KL_s2_tr1_0001_vid_1_0_00-00-00.00.jpg",
		"MC_s1_tr1_0001_vid_1_0_00-00-00.00.jpg",
		"MC_s1_tr1_0001_vid_1_1800_00-01-00.00.jpg",
		"MC_s1_tr1_0001_vid_1_3600_00-02-00.00.jpg",
		"MC_s1_tr1_0002_vid_1_0_00-00-00.00.jpg",
		"MC_s1_tr1_0002_vid_1_1800_00-01-00.00.jpg",
	}, frameKeys(f))
	assert.Equal(t, 1, f.remuxer.Calls())
	assert.Equal(t, []int{0, 1800, 3600}, f.dec.Reads(f.fake.LocalPath("__ProjectData/MC_s1_tr1/Videos/0001_vid.mp4")))
}

func TestRun_RemovesTransientFiles(t *testing.T) {
	f := newFixture(t)

	_, err := f.run(context.Background())
	require.NoError(t, err)

	for _, rel := range []string{
		"__ProjectData/MC_s1_tr1/Videos/0001_vid.mp4",
		"__ProjectData/MC_s1_tr1/Videos/0002_vid.h264",
		"__ProjectData/MC_s1_tr1/Videos/0002_vid.mp4",
		"__ProjectData/MC_s1_tr1/Logfile.txt",
	} {
		_, err := os.Stat(f.fake.LocalPath(rel))
		assert.True(t, errors.Is(err, os.ErrNotExist), "%s should be removed", rel)
	}
	_, err = os.Stat(f.fake.LocalPath(resultsDir))
	assert.NoError(t, err, "results dir stays")
}

func TestRun_WritesManifest(t *testing.T) {
	f := newFixture(t)

	_, err := f.run(context.Background())
	require.NoError(t, err)

	data, ok := f.fake.Object(resultsDir + "/" + ManifestName("test-run"))
	require.True(t, ok, "manifest uploaded")
	rows, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 7)
	assert.Equal(t, manifestHeader, rows[0])

	var kl []string
	for _, row := range rows[1:] {
		if row[1] == "KL_s2_tr1" {
			kl = row
		}
	}
	require.NotNil(t, kl)
	assert.Equal(t, []string{"KL_s2_tr1_0001_vid_1_0_00-00-00.00.jpg", "KL_s2_tr1", "0001_vid", "1800", "0", "00-00-00.00", "rock"}, kl[:7])
}

func TestRun_ManifestDisabled(t *testing.T) {
	f := newFixture(t)
	f.cfg.WriteManifest = false

	_, err := f.run(context.Background())
	require.NoError(t, err)

	_, ok := f.fake.Object(resultsDir + "/" + ManifestName("test-run"))
	assert.False(t, ok)
}

func TestRun_NoFrameRateSkipsVideo(t *testing.T) {
	f := newFixture(t)
	f.addVideo("KL_s2_tr1", "0002_vid.mp4", videotest.Clip{FPS: 0.2, Frames: 10})

	stats, err := f.run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, stats.VideosSkipped)
	assert.Equal(t, 0, stats.VideosFailed)
	assert.Equal(t, 2, stats.ProjectsDone)
	assert.False(t, stats.Failed())
	_, err = os.Stat(f.fake.LocalPath("__ProjectData/KL_s2_tr1/Videos/0002_vid.mp4"))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestRun_DecodeErrorFailsVideoOnly(t *testing.T) {
	f := newFixture(t)
	f.dec.ReadErr = errors.New("corrupt packet")
	f.dec.ReadErrAt = 3600

	stats, err := f.run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, stats.VideosFailed)
	assert.Equal(t, 1, stats.VideosDone)
	assert.Equal(t, 2, stats.ProjectsDone)
	assert.True(t, stats.Failed())
}

// writeScript writes an executable shell script into dir.
func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	file := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(file, []byte("#!/bin/sh\n"+body), 0o755))
	return file
}

func TestRun_GrabFailureFailsVideo(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses shell scripts as ffmpeg stand-ins")
	}
	f := newFixture(t)
	bin := t.TempDir()
	ffprobe := writeScript(t, bin, "ffprobe",
		`echo '{"format":{"duration":"120.0"},"streams":[{"index":0,"codec_type":"video","avg_frame_rate":"30/1","nb_frames":"3601"}]}'`+"\n")
	// The first grab succeeds; later ones fail the way an out-of-memory
	// ffmpeg does, with no corrupt-input message.
	ffmpegBin := writeScript(t, bin, "ffmpeg", `case "$*" in
*"-ss 0.000000 "*) printf '\377\330' ;;
*) echo "Cannot allocate memory" >&2; exit 1 ;;
esac
`)

	stats, err := Run(context.Background(), &f.cfg, Deps{
		Gateway: f.fake,
		Decoder: &ffmpeg.Decoder{Bin: ffmpegBin, Prober: probe.Prober{Bin: ffprobe}},
		Remuxer: f.remuxer,
		Log:     logging.Nop(),
		RunID:   "test-run",
	})
	require.NoError(t, err)

	assert.Equal(t, 3, stats.VideosFailed)
	assert.Equal(t, 0, stats.VideosDone)
	assert.Equal(t, 3, stats.FramesWritten, "frame 0 of each video is kept")
	assert.Equal(t, 2, stats.ProjectsDone)
	assert.True(t, stats.Failed())
}

func TestRun_RemuxFailure(t *testing.T) {
	f := newFixture(t)
	f.remuxer.Err = errors.New("invalid data found")

	stats, err := f.run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, stats.VideosFailed)
	assert.Equal(t, 2, stats.VideosDone)
	_, err = os.Stat(f.fake.LocalPath("__ProjectData/MC_s1_tr1/Videos/0002_vid.h264"))
	assert.True(t, errors.Is(err, os.ErrNotExist), "raw copy removed after failure")
}

func TestRun_TransferFailureFailsProject(t *testing.T) {
	f := newFixture(t)
	f.fake.FailDownload["__ProjectData/MC_s1_tr1/Videos/0001_vid.mp4"] = errors.New("rclone copyto: exit 1")

	stats, err := f.run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, stats.ProjectsFailed)
	assert.Equal(t, 1, stats.ProjectsDone)
	assert.True(t, stats.Failed())
	assert.Equal(t, []string{"KL_s2_tr1_0001_vid_1_0_00-00-00.00.jpg"}, frameKeys(f))
}

func TestRun_SkipExisting(t *testing.T) {
	f := newFixture(t)
	f.cfg.SkipExisting = true
	existing := resultsDir + "/MC_s1_tr1_0001_vid_1_1800_00-01-00.00.jpg"
	f.fake.Put(existing, []byte("uploaded earlier"))

	stats, err := f.run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, stats.FramesDuplicate)
	assert.Equal(t, 5, stats.FramesWritten)
	data, _ := f.fake.Object(existing)
	assert.Equal(t, "uploaded earlier", string(data))
}

func TestRun_Workers(t *testing.T) {
	f := newFixture(t)
	f.cfg.Workers = 4

	stats, err := f.run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, stats.ProjectsDone)
	assert.Equal(t, 6, stats.FramesWritten)
	assert.Len(t, frameKeys(f), 6)
}

func TestRun_UploadPerProject(t *testing.T) {
	f := newFixture(t)
	f.cfg.UploadPerProject = true

	_, err := f.run(context.Background())
	require.NoError(t, err)

	var uploads int
	for _, c := range f.fake.Calls() {
		if c == "upload "+resultsDir {
			uploads++
		}
	}
	assert.Equal(t, 3, uploads)
}

// exclusiveUploads fails an upload that overlaps another upload.
type exclusiveUploads struct {
	*remotetest.Fake
	inflight atomic.Int32
	overlap  atomic.Bool
}

func (g *exclusiveUploads) Upload(ctx context.Context, rel string) error {
	if g.inflight.Add(1) > 1 {
		g.overlap.Store(true)
	}
	defer g.inflight.Add(-1)
	return g.Fake.Upload(ctx, rel)
}

func TestRun_UploadPerProjectWithWorkers(t *testing.T) {
	f := newFixture(t)
	f.cfg.UploadPerProject = true
	f.cfg.Workers = 4
	gw := &exclusiveUploads{Fake: f.fake}

	stats, err := Run(context.Background(), &f.cfg, Deps{
		Gateway: gw,
		Decoder: f.dec,
		Remuxer: f.remuxer,
		Log:     logging.Nop(),
		RunID:   "test-run",
	})
	require.NoError(t, err)

	assert.False(t, gw.overlap.Load(), "per-project uploads must not overlap")
	assert.Equal(t, 2, stats.ProjectsDone)
	assert.Len(t, frameKeys(f), 6)
	for _, k := range f.fake.Keys(resultsDir) {
		assert.False(t, strings.HasPrefix(path.Base(k), "."), "temp file uploaded: %s", k)
	}
}

func TestRun_UploadFailure(t *testing.T) {
	f := newFixture(t)
	f.fake.FailUpload = errors.New("exit 7")

	stats, err := f.run(context.Background())
	require.ErrorIs(t, err, ErrUpload)
	assert.Equal(t, 6, stats.FramesWritten)
	assert.Empty(t, frameKeys(f))
}

func TestRun_DryRun(t *testing.T) {
	f := newFixture(t)
	f.cfg.DryRun = true

	stats, err := f.run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Selected)
	assert.Zero(t, stats.FramesWritten)
	for _, c := range f.fake.Calls() {
		assert.NotContains(t, c, "/Videos/", "dry run must not download videos")
		assert.False(t, strings.HasPrefix(c, "upload"), "dry run must not upload")
	}
}

func TestRun_Canceled(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	for _, c := range f.fake.Calls() {
		assert.False(t, strings.HasPrefix(c, "upload"))
	}
}

func TestRun_ListFailureIsFatal(t *testing.T) {
	f := newFixture(t)
	f.cfg.DataDir = "../outside"

	_, err := f.run(context.Background())
	require.Error(t, err)
}

func TestRun_RecordsMetrics(t *testing.T) {
	f := newFixture(t)
	rec := metrics.New()

	_, err := Run(context.Background(), &f.cfg, Deps{
		Gateway: f.fake,
		Decoder: f.dec,
		Remuxer: f.remuxer,
		Metrics: rec,
	})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "run.prom")
	require.NoError(t, rec.WriteTextfile(path))
	out, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(out), `fishframes_frames_total{outcome="written"} 6`)
	assert.Contains(t, string(out), `fishframes_videos_total{outcome="ok"} 3`)
}

func TestDiscover(t *testing.T) {
	f := newFixture(t)

	names, err := Discover(context.Background(), f.fake, &f.cfg, "MC_s1_tr1")
	require.NoError(t, err)
	assert.Equal(t, []string{"0001_vid.mp4", "0002_vid.h264"}, names)

	names, err = Discover(context.Background(), f.fake, &f.cfg, "NO_such_project")
	require.NoError(t, err)
	assert.Empty(t, names)
}
