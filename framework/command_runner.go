package framework

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	"github.com/kballard/go-shellquote"
)

// CommandRequest captures the process execution metadata for one child invocation.
type CommandRequest struct {
	Workdir string
	Args    []string
	Env     []string
	Input   string
	Timeout time.Duration
}

// ProcessResult is the outcome of a finished child process. It is consumed
// immediately by the caller and never retained.
type ProcessResult struct {
	ExitCode int
	Output   string
	Stderr   string
}

// CommandRunner describes a primitive capable of executing external commands.
// A non-zero exit is reported through ProcessResult.ExitCode; the error return is
// reserved for failures to start or wait on the child and for children killed
// because ctx or the request timeout expired.
type CommandRunner interface {
	Run(ctx context.Context, req CommandRequest) (ProcessResult, error)
}

// ExecCommandRunner launches commands on the host with os/exec.
type ExecCommandRunner struct {
	// BaseEnv is the environment every child inherits. Request entries are
	// appended after it so they take precedence.
	BaseEnv []string
	// Stderr mirrors the child's standard error when set.
	Stderr io.Writer
}

// NewExecCommandRunner builds a host runner with the provided base environment.
func NewExecCommandRunner(baseEnv []string, stderr io.Writer) *ExecCommandRunner {
	return &ExecCommandRunner{BaseEnv: baseEnv, Stderr: stderr}
}

// Run executes the requested command and waits for it to finish.
func (r *ExecCommandRunner) Run(ctx context.Context, req CommandRequest) (ProcessResult, error) {
	if r == nil {
		return ProcessResult{}, errors.New("command runner missing")
	}
	if len(req.Args) == 0 {
		return ProcessResult{}, errors.New("command arguments required")
	}
	execCtx := ctx
	cancel := func() {}
	if req.Timeout > 0 {
		execCtx, cancel = context.WithTimeout(ctx, req.Timeout)
	}
	defer cancel()
	cmd := exec.CommandContext(execCtx, req.Args[0], req.Args[1:]...)
	if req.Workdir != "" {
		cmd.Dir = req.Workdir
	}
	env := append([]string{}, r.BaseEnv...)
	cmd.Env = append(env, req.Env...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	if r.Stderr != nil {
		cmd.Stderr = io.MultiWriter(&stderr, r.Stderr)
	} else {
		cmd.Stderr = &stderr
	}
	if req.Input != "" {
		cmd.Stdin = strings.NewReader(req.Input)
	}
	err := cmd.Run()
	result := ProcessResult{Output: stdout.String(), Stderr: stderr.String()}
	if err != nil {
		if ctxErr := execCtx.Err(); ctxErr != nil {
			// Killed for the timeout or a cancelled parent context.
			result.ExitCode = ExitFailure
			return result, fmt.Errorf("run %s: %w", req.Args[0], ctxErr)
		}
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return result, fmt.Errorf("run %s: %w", req.Args[0], err)
		}
		result.ExitCode = exitErr.ExitCode()
		if result.ExitCode < 0 {
			// Killed by a signal; no status to forward.
			result.ExitCode = ExitFailure
		}
	}
	return result, nil
}

// RunChecked runs the request and turns a non-zero exit into an *ExitError
// carrying the child's status.
func RunChecked(ctx context.Context, runner CommandRunner, req CommandRequest) (ProcessResult, error) {
	result, err := runner.Run(ctx, req)
	if err != nil {
		return result, err
	}
	if result.ExitCode != 0 {
		return result, &ExitError{
			Code:    result.ExitCode,
			Message: fmt.Sprintf("%s exited with status %d", commandName(req), result.ExitCode),
		}
	}
	return result, nil
}

// ShellOutput runs the request unchecked, fails with the child's status when it
// is non-zero, and otherwise splits stdout into words using POSIX shell rules.
func ShellOutput(ctx context.Context, runner CommandRunner, req CommandRequest) ([]string, error) {
	result, err := runner.Run(ctx, req)
	if err != nil {
		return nil, err
	}
	if result.ExitCode != 0 {
		return nil, &ExitError{
			Code:    result.ExitCode,
			Message: fmt.Sprintf("%s exited with status %d", commandName(req), result.ExitCode),
		}
	}
	words, err := shellquote.Split(result.Output)
	if err != nil {
		return nil, fmt.Errorf("split %s output: %w", commandName(req), err)
	}
	return words, nil
}

func commandName(req CommandRequest) string {
	if len(req.Args) == 0 {
		return "command"
	}
	return req.Args[0]
}
