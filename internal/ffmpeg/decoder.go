package ffmpeg

import (
	"context"
	"fmt"
	"os"

	"github.com/backmassage/fishframes/internal/probe"
	"github.com/backmassage/fishframes/internal/video"
)

// Decoder implements video.Decoder: ffprobe supplies the stream timing and
// each Read runs one ffmpeg frame grab at the current index.
type Decoder struct {
	Bin     string // ffmpeg binary. Default "ffmpeg".
	Prober  probe.Prober
	Quality int // -q:v for JPEG output. Default 2.

	exec      func(ctx context.Context, args []string, tee bool) ExecResult
	probeFunc func(ctx context.Context, path string) (*probe.ProbeResult, error)
}

// Open probes path. Streams without a frame rate are rejected with
// video.ErrNoFrameRate.
func (d *Decoder) Open(ctx context.Context, path string) (video.Capture, error) {
	probeFn := d.probeFunc
	if probeFn == nil {
		probeFn = d.Prober.Probe
	}
	pr, err := probeFn(ctx, path)
	if err != nil {
		return nil, err
	}
	if pr.Video == nil {
		return nil, fmt.Errorf("open %s: no video stream", path)
	}
	fps := pr.FPS()
	if fps <= 0 {
		return nil, fmt.Errorf("open %s: %w", path, video.ErrNoFrameRate)
	}

	c := &capture{
		path:    path,
		bin:     d.Bin,
		quality: d.Quality,
		fps:     fps,
		frames:  pr.FrameCount(),
		run:     d.exec,
	}
	if c.bin == "" {
		c.bin = "ffmpeg"
	}
	if c.quality == 0 {
		c.quality = 2
	}
	if c.run == nil {
		c.run = Execute
	}
	return c, nil
}

type capture struct {
	path    string
	bin     string
	quality int
	fps     float64
	frames  int64 // 0 when unknown.
	pos     int
	run     func(ctx context.Context, args []string, tee bool) ExecResult
}

func (c *capture) FPS() float64 { return c.fps }

// Read grabs the frame at the current index. Past the known frame count no
// process is started. An empty grab from a clean ffmpeg exit marks the end
// of a video of unknown length; a failed run, or an empty grab before the
// known frame count, is an error.
func (c *capture) Read(ctx context.Context) ([]byte, bool, error) {
	if c.frames > 0 && int64(c.pos) >= c.frames {
		return nil, false, nil
	}
	args := BuildGrab(c.bin, c.path, float64(c.pos)/c.fps, c.quality)
	res := c.run(ctx, args, false)
	if ctx.Err() != nil {
		return nil, false, ctx.Err()
	}
	if len(res.Stdout) > 0 {
		return res.Stdout, true, nil
	}
	if res.Err != nil {
		return nil, false, grabError(c.path, c.pos, res)
	}
	if c.frames > 0 {
		return nil, false, fmt.Errorf("grab frame %d of %s: no frame before end at %d", c.pos, c.path, c.frames)
	}
	return nil, false, nil
}

func grabError(path string, pos int, res ExecResult) error {
	switch {
	case MatchCorruptInput(res.Stderr):
		return fmt.Errorf("grab frame %d of %s: %w: %s", pos, path, ErrCorruptInput, tail(res.Stderr))
	case MatchMissingInput(res.Stderr):
		return fmt.Errorf("grab frame %d of %s: %w", pos, path, os.ErrNotExist)
	}
	if msg := tail(res.Stderr); msg != "" {
		return fmt.Errorf("grab frame %d of %s: %w: %s", pos, path, res.Err, msg)
	}
	return fmt.Errorf("grab frame %d of %s: %w", pos, path, res.Err)
}

func (c *capture) Seek(index int) error {
	if index < 0 {
		return fmt.Errorf("seek %s: negative frame %d", c.path, index)
	}
	c.pos = index
	return nil
}

func (c *capture) Close() error { return nil }

var (
	_ video.Decoder = (*Decoder)(nil)
	_ video.Remuxer = (*Remuxer)(nil)
)
