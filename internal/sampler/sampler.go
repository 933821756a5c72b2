// Package sampler walks a video in fixed time steps and hands each frame
// to a callback. One frame is held in memory at a time.
package sampler

import (
	"context"
	"fmt"
	"math"

	"github.com/backmassage/fishframes/internal/video"
)

// Frame is one sampled image.
type Frame struct {
	Index int    // Frame index in the video.
	FPS   int    // Rounded frame rate used for naming.
	Image []byte // Encoded JPEG.
}

// Result summarizes one sampled video.
type Result struct {
	FPS    int
	Step   int
	Frames int
}

// Step is the number of decoded frames between two samples taken every
// intervalMinutes at fps.
func Step(intervalMinutes, fps int) int {
	return intervalMinutes * 60 * fps
}

// Sampler reads one frame every Interval minutes.
type Sampler struct {
	Interval int // Minutes.
}

// Sample reads frame 0, then every Step frames, until the capture reports
// no frame. Each frame is passed to emit; an emit error stops sampling.
// A capture whose rounded frame rate is not positive is rejected with
// video.ErrNoFrameRate before any read.
func (s Sampler) Sample(ctx context.Context, c video.Capture, emit func(Frame) error) (Result, error) {
	fps := int(math.Round(c.FPS()))
	if fps <= 0 {
		return Result{}, fmt.Errorf("fps %v: %w", c.FPS(), video.ErrNoFrameRate)
	}
	if s.Interval <= 0 {
		return Result{}, fmt.Errorf("interval must be positive, got %d", s.Interval)
	}
	res := Result{FPS: fps, Step: Step(s.Interval, fps)}

	index := 0
	if err := c.Seek(index); err != nil {
		return res, err
	}
	for {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		img, ok, err := c.Read(ctx)
		if err != nil {
			return res, fmt.Errorf("read frame %d: %w", index, err)
		}
		if !ok {
			return res, nil
		}
		if err := emit(Frame{Index: index, FPS: fps, Image: img}); err != nil {
			return res, err
		}
		res.Frames++

		index += res.Step
		if err := c.Seek(index); err != nil {
			return res, err
		}
	}
}
