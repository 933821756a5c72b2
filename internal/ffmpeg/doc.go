// Package ffmpeg runs ffmpeg for the two jobs frame extraction needs:
// remuxing raw .h264 captures into .mp4, and grabbing single frames as
// JPEG at a given frame index. Failed runs are classified from stderr and
// retried with the matching fix where one exists.
//
// [Decoder] and [Remuxer] implement the capability interfaces of the video
// package.
package ffmpeg
