package ffmpeg

// RetryAction identifies which fix was applied (or none).
type RetryAction int

const (
	RetryNone          RetryAction = iota
	RetryFixTimestamps             // Regenerate presentation timestamps.
)

const maxAttempts = 2

// RetryState tracks which fallback fixes have been applied across ffmpeg
// retry attempts for a single remux.
type RetryState struct {
	Attempt      int
	MaxAttempts  int
	TimestampFix bool
}

// NewRetryState initializes a RetryState with no fixes applied.
func NewRetryState() *RetryState {
	return &RetryState{MaxAttempts: maxAttempts}
}

// Advance inspects stderr from a failed ffmpeg run, applies the first
// matching fix that has not been applied yet, and returns the action
// taken. Returns RetryNone when no fixable pattern matches or the attempt
// limit is reached.
func (s *RetryState) Advance(stderr string) RetryAction {
	s.Attempt++
	if s.Attempt >= s.MaxAttempts {
		return RetryNone
	}
	if !s.TimestampFix && MatchTimestampIssue(stderr) {
		s.TimestampFix = true
		return RetryFixTimestamps
	}
	return RetryNone
}
