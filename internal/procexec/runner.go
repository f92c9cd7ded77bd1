package procexec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"intohear/internal/deps"
	"intohear/internal/logging"
	"intohear/internal/services"
)

// DefaultWaitDelay bounds how long Wait blocks on pipe drains after the child
// was killed.
const DefaultWaitDelay = 5 * time.Second

// Result captures the outcome of a finished child process. A non-zero
// ExitCode is a normal outcome, not an error.
type Result struct {
	Command  string
	Args     []string
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
}

// Success reports whether the process exited with status zero.
func (r Result) Success() bool {
	return r.ExitCode == 0
}

// CommandLine renders the invocation for logs. It is never passed to a shell.
func (r Result) CommandLine() string {
	parts := make([]string, 0, len(r.Args)+1)
	parts = append(parts, r.Command)
	for _, arg := range r.Args {
		if arg == "" || strings.ContainsAny(arg, " \t\"'") {
			arg = fmt.Sprintf("%q", arg)
		}
		parts = append(parts, arg)
	}
	return strings.Join(parts, " ")
}

// Runner launches external commands from an executable name and argument list.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (Result, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct {
	// Env is appended to the parent environment.
	Env       []string
	Dir       string
	WaitDelay time.Duration
	Logger    *slog.Logger
	// Stderr, when set, receives a live copy of the child's standard error.
	Stderr io.Writer
}

// NewExecRunner returns an ExecRunner with default settings.
func NewExecRunner(logger *slog.Logger) *ExecRunner {
	return &ExecRunner{WaitDelay: DefaultWaitDelay, Logger: logging.NewComponentLogger(logger, "procexec")}
}

// WithEnv returns a copy of r that appends env to the child environment.
func (r *ExecRunner) WithEnv(env ...string) *ExecRunner {
	clone := *r
	clone.Env = append(append([]string(nil), r.Env...), env...)
	return &clone
}

// Run starts name with args and waits for it to exit. os/exec copies stdout
// and stderr on separate goroutines while the child runs, and Wait returns
// only after both copies finish. Start failures return a launch
// StageError; cancellation kills the child's process group and returns a
// canceled StageError.
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) (Result, error) {
	result := Result{Command: name, Args: append([]string(nil), args...)}
	if strings.TrimSpace(name) == "" {
		return result, services.Wrap(services.KindLaunch, "process", "start", "empty executable name", nil)
	}

	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	cmd.Dir = r.Dir
	if len(r.Env) > 0 {
		cmd.Env = append(os.Environ(), r.Env...)
	}
	configureProcessGroup(cmd)
	cmd.WaitDelay = r.WaitDelay
	if cmd.WaitDelay <= 0 {
		cmd.WaitDelay = DefaultWaitDelay
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if r.Stderr != nil {
		cmd.Stderr = io.MultiWriter(&stderr, r.Stderr)
	}

	started := time.Now()
	if err := cmd.Start(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return result, services.Wrap(services.KindCanceled, "process", "start", name, ctxErr)
		}
		return result, services.Wrap(services.KindLaunch, "process", "start", fmt.Sprintf("cannot start %s", name), err).
			WithHint(deps.InstallHint(name, runtime.GOOS))
	}

	logger := logging.WithContext(ctx, r.Logger)
	logger.Debug("process started",
		logging.String("command", result.CommandLine()),
		logging.Int("pid", cmd.Process.Pid),
	)

	waitErr := cmd.Wait()

	result.Duration = time.Since(started)
	result.Stdout = stdout.String()
	result.Stderr = stderr.String()
	if cmd.ProcessState != nil {
		result.ExitCode = cmd.ProcessState.ExitCode()
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return result, services.Wrap(services.KindCanceled, "process", "wait", name+" interrupted", ctxErr).
			WithStderr(result.Stderr)
	}

	var exitErr *exec.ExitError
	switch {
	case waitErr == nil, errors.As(waitErr, &exitErr):
	case errors.Is(waitErr, exec.ErrWaitDelay):
	default:
		return result, services.Wrap(services.KindLaunch, "process", "wait", name, waitErr)
	}
	logger.Debug("process finished",
		logging.String("command", name),
		logging.Int("exit_code", result.ExitCode),
		logging.Duration("duration", result.Duration),
		logging.Int("stdout_bytes", len(result.Stdout)),
		logging.Int("stderr_bytes", len(result.Stderr)),
	)
	return result, nil
}
