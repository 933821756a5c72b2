// Package naming derives output image names and the results layout.
//
// A frame name is a pure function of the project id, the video base name,
// the sampling interval, the frame index and the elapsed-time token:
//
//	{project}_{video}_{interval}_{index}_{HH-MM-SS.ss}.jpg
//
// Names can be parsed back with [ParseFrameName], and [DuplicateIndex]
// tracks which names already exist so reruns can skip them.
package naming
