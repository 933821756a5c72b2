package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/backmassage/fishframes/internal/logging"
)

// ErrCorruptInput means ffmpeg could not parse the input file.
var ErrCorruptInput = errors.New("corrupt or truncated input")

// Remuxer implements video.Remuxer with ffmpeg stream copy.
type Remuxer struct {
	Bin     string // Default "ffmpeg".
	Verbose bool
	Log     *logging.Logger

	exec func(ctx context.Context, args []string, tee bool) ExecResult
}

// Remux rewraps src into dst at fps. A timestamp failure is retried once
// with regenerated timestamps. A failed attempt leaves no partial dst.
func (r *Remuxer) Remux(ctx context.Context, src, dst string, fps int) error {
	bin := r.Bin
	if bin == "" {
		bin = "ffmpeg"
	}
	run := r.exec
	if run == nil {
		run = Execute
	}
	log := r.Log
	if log == nil {
		log = logging.Nop()
	}

	rs := NewRetryState()
	for {
		args := BuildRemux(bin, src, dst, fps, rs, r.Verbose)
		log.Debug("remux: %v", args)
		res := run(ctx, args, r.Verbose)
		if res.Err == nil {
			return nil
		}
		_ = os.Remove(dst)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		switch rs.Advance(res.Stderr) {
		case RetryFixTimestamps:
			log.Warn("remux %s: timestamp errors, retrying with regenerated timestamps", src)
			continue
		}

		if MatchCorruptInput(res.Stderr) {
			return fmt.Errorf("remux %s: %w: %s", src, ErrCorruptInput, tail(res.Stderr))
		}
		if MatchMissingInput(res.Stderr) {
			return fmt.Errorf("remux %s: %w", src, os.ErrNotExist)
		}
		if msg := tail(res.Stderr); msg != "" {
			return fmt.Errorf("remux %s: %w: %s", src, res.Err, msg)
		}
		return fmt.Errorf("remux %s: %w", src, res.Err)
	}
}
