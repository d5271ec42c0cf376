package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"

	log "github.com/sirupsen/logrus"
)

// Cmd is one command for a Runner. If Stdout is nil the output is captured in the
// Result, otherwise it is streamed to Stdout and Result.Stdout is empty.
type Cmd struct {
	Dir    string
	Name   string
	Args   []string
	Stdin  io.Reader
	Stdout io.Writer
}

func (c Cmd) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Result is the outcome of a command that ran
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// ExecError is returned when a command ran and exited non-zero, or could not be
// started at all (in which case ExitCode is -1)
type ExecError struct {
	Command  string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ExecError) Error() string {
	msg := fmt.Sprintf("command %q failed with exit code %d", e.Command, e.ExitCode)
	if e.Stderr != "" {
		msg += ": " + strings.TrimSpace(e.Stderr)
	}
	return msg
}

func (e *ExecError) Unwrap() error {
	return e.Err
}

// Runner runs external commands
type Runner interface {
	Exec(ctx context.Context, cmd Cmd) (Result, error)
}

// ExecRunner is a Runner backed by os/exec
type ExecRunner struct{}

// Exec runs the command and waits for it. A non-zero exit is returned as an
// *ExecError along with the Result.
func (ExecRunner) Exec(ctx context.Context, cmd Cmd) (Result, error) {
	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir
	c.Stdin = cmd.Stdin
	var stdout, stderr bytes.Buffer
	if cmd.Stdout != nil {
		c.Stdout = cmd.Stdout
	} else {
		c.Stdout = &stdout
	}
	c.Stderr = &stderr
	log.Debugf("exec: %s (dir=%s)", cmd, cmd.Dir)
	err := c.Run()
	result := Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if err == nil {
		return result, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		result.ExitCode = exitErr.ExitCode()
	} else {
		result.ExitCode = -1
	}
	return result, &ExecError{Command: cmd.String(), ExitCode: result.ExitCode, Stderr: result.Stderr, Err: err}
}
