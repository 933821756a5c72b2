package ffmpeg

import "regexp"

// Pre-compiled regexes for classifying ffmpeg stderr output. Timestamp
// problems are retryable with a fix; corrupt input is not.
var (
	reTimestampIssue = regexp.MustCompile(
		`(?i)Non-monotonous DTS|non monotonically increasing dts|` +
			`invalid, non monotonically increasing dts|` +
			`DTS .*out of order|PTS .*out of order|` +
			`pts has no value|missing PTS|Timestamps are unset`)

	reCorruptInput = regexp.MustCompile(
		`(?i)Invalid data found when processing input|moov atom not found|` +
			`Invalid NAL unit size|error while decoding MB`)

	reMissingInput = regexp.MustCompile(`No such file or directory`)
)

// MatchTimestampIssue reports whether stderr contains a timestamp discontinuity.
func MatchTimestampIssue(stderr string) bool {
	return reTimestampIssue.MatchString(stderr)
}

// MatchCorruptInput reports whether stderr says the input could not be parsed.
func MatchCorruptInput(stderr string) bool {
	return reCorruptInput.MatchString(stderr)
}

// MatchMissingInput reports whether stderr says the input file is missing.
func MatchMissingInput(stderr string) bool {
	return reMissingInput.MatchString(stderr)
}
