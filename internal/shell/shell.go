// Package shell runs console commands through the system shell under a deadline.
package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"modelconsole/internal/guard"
)

// TimeoutCode is the return code reported when a command exceeds its deadline.
const TimeoutCode = 124

// ErrEmptyCommand is returned for a blank command line.
var ErrEmptyCommand = errors.New("empty command")

// Result mirrors what the console shows for a finished command.
type Result struct {
	Stdout     string `json:"stdout"`
	Stderr     string `json:"stderr"`
	ReturnCode int    `json:"returncode"`
	TimedOut   bool   `json:"timed_out,omitempty"`
}

// Runner executes commands with `sh -c`.
type Runner struct {
	Shell  string // default "sh"
	Logger zerolog.Logger
}

// Run executes command with no stdin.
func (r Runner) Run(ctx context.Context, command string, timeout time.Duration) (Result, error) {
	return r.exec(ctx, command, nil, timeout)
}

// RunInteractive executes command feeding input (plus a newline) on stdin.
func (r Runner) RunInteractive(ctx context.Context, command, input string, timeout time.Duration) (Result, error) {
	var stdin *string
	if input != "" {
		s := input + "\n"
		stdin = &s
	}
	return r.exec(ctx, command, stdin, timeout)
}

func (r Runner) exec(ctx context.Context, command string, stdin *string, timeout time.Duration) (Result, error) {
	if strings.TrimSpace(command) == "" {
		return Result{}, ErrEmptyCommand
	}
	sh := r.Shell
	if sh == "" {
		sh = "sh"
	}
	r.Logger.Info().Str("command", command).Dur("timeout", timeout).Msg("executing command")
	res, err := guard.RunWithDeadline(ctx, timeout, func(ctx context.Context) (Result, error) {
		cmd := exec.CommandContext(ctx, sh, "-c", command)
		cmd.WaitDelay = time.Second
		var stdout, stderr bytes.Buffer
		cmd.Stdout, cmd.Stderr = &stdout, &stderr
		if stdin != nil {
			cmd.Stdin = strings.NewReader(*stdin)
		}
		err := cmd.Run()
		res := Result{Stdout: stdout.String(), Stderr: stderr.String()}
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		var exitErr *exec.ExitError
		switch {
		case err == nil:
		case errors.As(err, &exitErr):
			res.ReturnCode = exitErr.ExitCode()
		default:
			return res, fmt.Errorf("run %q: %w", command, err)
		}
		return res, nil
	})
	if guard.StateOf(err) != guard.Completed {
		r.Logger.Warn().Str("command", command).Dur("timeout", timeout).Msg("command timed out")
		return Result{
			Stderr:     fmt.Sprintf("command exceeded its %s deadline", timeout),
			ReturnCode: TimeoutCode,
			TimedOut:   true,
		}, nil
	}
	return res, err
}
