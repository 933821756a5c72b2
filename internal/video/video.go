// Package video defines the decoding capabilities the sampler depends on.
// The ffmpeg package provides the production implementations; tests use
// the in-memory ones in videotest.
package video

import (
	"context"
	"errors"
)

// ErrNoFrameRate is returned by Open when the stream frame rate is unknown.
var ErrNoFrameRate = errors.New("video has no usable frame rate")

// Capture is an opened video positioned at a frame index.
type Capture interface {
	// FPS is the stream frame rate as reported by the container.
	FPS() float64
	// Read returns the encoded image of the frame at the current position.
	// ok is false when the position is past the last frame.
	Read(ctx context.Context) (img []byte, ok bool, err error)
	// Seek moves to a frame index.
	Seek(index int) error
	Close() error
}

// Decoder opens videos for frame access.
type Decoder interface {
	Open(ctx context.Context, path string) (Capture, error)
}

// Remuxer rewraps a raw capture into a standard container without
// re-encoding.
type Remuxer interface {
	Remux(ctx context.Context, src, dst string, fps int) error
}
