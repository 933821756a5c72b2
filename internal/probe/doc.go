// Package probe inspects video files with a single ffprobe JSON call and
// exposes the values frame sampling needs: frame rate, duration and frame
// count of the primary video stream.
package probe
