package remote

import (
	"errors"
	"fmt"
)

// ExitClass groups rclone exit statuses by how the gateway reacts.
type ExitClass int

const (
	ExitOK        ExitClass = iota
	ExitNotFound            // 3 directory not found, 4 file not found.
	ExitRetryable           // 2 uncategorised, 5 temporary, 6 less serious.
	ExitPermanent           // 1 usage, 7 fatal, 8 transfer limit, anything else.
)

func (c ExitClass) String() string {
	switch c {
	case ExitOK:
		return "ok"
	case ExitNotFound:
		return "not-found"
	case ExitRetryable:
		return "retryable"
	default:
		return "permanent"
	}
}

// ClassifyExit maps an rclone exit status to its class.
func ClassifyExit(code int) ExitClass {
	switch code {
	case 0:
		return ExitOK
	case 3, 4:
		return ExitNotFound
	case 2, 5, 6:
		return ExitRetryable
	default:
		return ExitPermanent
	}
}

// exitCoder is satisfied by *exec.ExitError and *CommandError.
type exitCoder interface {
	ExitCode() int
}

// Classify returns the class of a command error. Errors without an exit
// status (binary missing, context cancelled) are permanent.
func Classify(err error) ExitClass {
	if err == nil {
		return ExitOK
	}
	var ec exitCoder
	if errors.As(err, &ec) {
		return ClassifyExit(ec.ExitCode())
	}
	return ExitPermanent
}

// CommandError is a failed external command with its captured stderr.
type CommandError struct {
	Name   string
	Args   []string
	Code   int
	Stderr string
	Err    error
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("%s %s: exit %d", e.Name, firstArg(e.Args), e.Code)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

func (e *CommandError) Unwrap() error { return e.Err }

// ExitCode returns the process exit status, or -1 when it never ran.
func (e *CommandError) ExitCode() int { return e.Code }

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
