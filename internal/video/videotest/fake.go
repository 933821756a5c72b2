// Package videotest provides in-memory video.Decoder and video.Remuxer
// implementations for tests.
package videotest

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/backmassage/fishframes/internal/video"
)

// Clip describes a fake video.
type Clip struct {
	FPS    float64
	Frames int
}

// Decoder serves Clips by path. Unknown paths fail to open.
type Decoder struct {
	mu    sync.Mutex
	clips map[string]Clip
	reads map[string][]int

	// ReadErr, when set, is returned by Read at the given frame index.
	ReadErr   error
	ReadErrAt int
}

// NewDecoder returns an empty Decoder.
func NewDecoder() *Decoder {
	return &Decoder{clips: map[string]Clip{}, reads: map[string][]int{}}
}

// Add registers a clip at path.
func (d *Decoder) Add(path string, c Clip) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.clips[path] = c
}

// Reads returns the frame indices read from path, in order.
func (d *Decoder) Reads(path string) []int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]int(nil), d.reads[path]...)
}

// Open implements video.Decoder.
func (d *Decoder) Open(_ context.Context, path string) (video.Capture, error) {
	d.mu.Lock()
	c, ok := d.clips[path]
	d.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("open %s: %w", path, os.ErrNotExist)
	}
	return &capture{d: d, path: path, clip: c}, nil
}

type capture struct {
	d    *Decoder
	path string
	clip Clip
	pos  int
}

func (c *capture) FPS() float64 { return c.clip.FPS }

func (c *capture) Read(ctx context.Context) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	if c.d.ReadErr != nil && c.pos == c.d.ReadErrAt {
		return nil, false, c.d.ReadErr
	}
	if c.pos >= c.clip.Frames {
		return nil, false, nil
	}
	c.d.mu.Lock()
	c.d.reads[c.path] = append(c.d.reads[c.path], c.pos)
	c.d.mu.Unlock()
	return []byte(fmt.Sprintf("frame %d of %s", c.pos, c.path)), true, nil
}

func (c *capture) Seek(index int) error {
	if index < 0 {
		return fmt.Errorf("seek to negative frame %d", index)
	}
	c.pos = index
	return nil
}

func (c *capture) Close() error { return nil }

// Remuxer copies src to dst and registers dst with the Decoder, using the
// clip already registered for src.
type Remuxer struct {
	Decoder *Decoder
	Err     error

	mu    sync.Mutex
	calls int
}

// Calls returns how many remuxes were requested.
func (r *Remuxer) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

// Remux implements video.Remuxer.
func (r *Remuxer) Remux(_ context.Context, src, dst string, fps int) error {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return err
	}
	if r.Decoder != nil {
		r.Decoder.mu.Lock()
		clip, ok := r.Decoder.clips[src]
		r.Decoder.mu.Unlock()
		if !ok {
			clip = Clip{FPS: float64(fps)}
		}
		r.Decoder.Add(dst, clip)
	}
	return nil
}

var (
	_ video.Decoder = (*Decoder)(nil)
	_ video.Remuxer = (*Remuxer)(nil)
)
