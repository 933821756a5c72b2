package remote

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/time/rate"

	"github.com/backmassage/fishframes/internal/logging"
)

// Runner runs an external command and returns its stdout. A non-zero exit
// must be reported as an error that carries the exit status.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec, capturing stderr into the error.
type ExecRunner struct{}

// Run executes name with args.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return stdout.Bytes(), nil
	}
	code := -1
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code = exitErr.ExitCode()
	}
	return stdout.Bytes(), &CommandError{
		Name:   name,
		Args:   args,
		Code:   code,
		Stderr: strings.TrimSpace(stderr.String()),
		Err:    err,
	}
}

// RcloneOptions tunes the rclone backend.
type RcloneOptions struct {
	Bin             string        // Default "rclone".
	Retries         int           // Attempts per call. Default 3.
	Backoff         time.Duration // Initial retry interval. Default 2s.
	TransfersPerSec float64       // Invocation pacing; 0 disables it.
	Runner          Runner        // Default ExecRunner.
	Log             *logging.Logger
}

// Rclone is a Gateway backed by the rclone CLI.
type Rclone struct {
	Mirror
	remoteRoot string
	bin        string
	retries    int
	backoff    time.Duration
	limiter    *rate.Limiter
	run        Runner
	log        *logging.Logger
}

// NewRclone returns a Gateway mirroring localRoot against the rclone path
// remoteRoot (for example "cichlidVideo:BioSci-McGrath/Apps/CichlidPiData").
func NewRclone(localRoot, remoteRoot string, opts RcloneOptions) *Rclone {
	if opts.Bin == "" {
		opts.Bin = "rclone"
	}
	if opts.Retries < 1 {
		opts.Retries = 3
	}
	if opts.Backoff <= 0 {
		opts.Backoff = 2 * time.Second
	}
	if opts.Runner == nil {
		opts.Runner = ExecRunner{}
	}
	if opts.Log == nil {
		opts.Log = logging.Nop()
	}
	limit := rate.Inf
	if opts.TransfersPerSec > 0 {
		limit = rate.Limit(opts.TransfersPerSec)
	}
	return &Rclone{
		Mirror:     NewMirror(localRoot),
		remoteRoot: remoteRoot,
		bin:        opts.Bin,
		retries:    opts.Retries,
		backoff:    opts.Backoff,
		limiter:    rate.NewLimiter(limit, 1),
		run:        opts.Runner,
		log:        opts.Log,
	}
}

// RemotePath joins rel onto the remote root. A bare remote name such as
// "s3remote:" is joined without an extra slash.
func (r *Rclone) RemotePath(rel string) string {
	if rel == "" {
		return r.remoteRoot
	}
	if strings.HasSuffix(r.remoteRoot, ":") || strings.HasSuffix(r.remoteRoot, "/") {
		return r.remoteRoot + rel
	}
	return r.remoteRoot + "/" + rel
}

// List runs rclone lsf. Exit statuses 3 and 4 mean the path does not
// exist and produce an empty result.
func (r *Rclone) List(ctx context.Context, rel string, dirsOnly bool) ([]string, error) {
	if err := CheckRel(rel); err != nil {
		return nil, err
	}
	args := []string{"lsf"}
	if dirsOnly {
		args = append(args, "--dirs-only")
	}
	args = append(args, r.RemotePath(rel))

	out, err := r.call(ctx, args...)
	if err != nil {
		if Classify(err) == ExitNotFound {
			return []string{}, nil
		}
		return nil, fmt.Errorf("list %s: %w", rel, err)
	}
	return parseLsf(out), nil
}

// Download runs rclone copyto remote -> local.
func (r *Rclone) Download(ctx context.Context, rel string) error {
	if err := CheckRel(rel); err != nil {
		return err
	}
	_, err := r.call(ctx, "copyto", r.RemotePath(rel), r.LocalPath(rel))
	if err != nil {
		if Classify(err) == ExitNotFound {
			return fmt.Errorf("download %s: %w", rel, ErrNotFound)
		}
		return fmt.Errorf("download %s: %w", rel, err)
	}
	return nil
}

// Upload runs rclone copyto local -> remote. rclone creates remote
// directories as needed.
func (r *Rclone) Upload(ctx context.Context, rel string) error {
	if err := CheckRel(rel); err != nil {
		return err
	}
	if _, err := r.call(ctx, "copyto", r.LocalPath(rel), r.RemotePath(rel)); err != nil {
		return fmt.Errorf("upload %s: %w", rel, err)
	}
	return nil
}

// call paces and retries one rclone invocation. Only retryable exit
// classes are retried; everything else stops at the first failure.
func (r *Rclone) call(ctx context.Context, args ...string) ([]byte, error) {
	op := func() ([]byte, error) {
		if err := r.limiter.Wait(ctx); err != nil {
			return nil, backoff.Permanent(err)
		}
		r.log.Debug("%s %s", r.bin, strings.Join(args, " "))
		out, err := r.run.Run(ctx, r.bin, args...)
		if err != nil && Classify(err) != ExitRetryable {
			return nil, backoff.Permanent(err)
		}
		return out, err
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = r.backoff
	notify := func(err error, wait time.Duration) {
		r.log.Warn("rclone %s failed, retrying in %s: %v", args[0], wait.Round(time.Millisecond), err)
	}
	return backoff.Retry(ctx, op,
		backoff.WithBackOff(eb),
		backoff.WithMaxTries(uint(r.retries)),
		backoff.WithNotify(notify),
	)
}

// parseLsf splits lsf output into names, dropping the trailing slash rclone
// puts on directories.
func parseLsf(out []byte) []string {
	names := []string{}
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		names = append(names, strings.TrimSuffix(line, "/"))
	}
	return names
}
