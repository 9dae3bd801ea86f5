// Package process spawns child processes and talks to them over their
// standard input and output, one line per message.
package process

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"

	"go.uber.org/zap"
)

// Options configures Spawn. The zero value logs nothing, inherits the
// environment and forwards the child's stderr to ours.
type Options struct {
	Logger *zap.Logger
	// Env is appended to the parent's environment.
	Env []string
	// Stderr receives the child's standard error. Nil means os.Stderr.
	Stderr io.Writer
}

// Process is a running child.
type Process struct {
	cmd    *exec.Cmd
	conn   *Conn
	logger *zap.Logger

	once    sync.Once
	waitErr error
}

// Spawn starts path with the zero Options.
func Spawn(ctx context.Context, path string, args ...string) (*Process, error) {
	return Options{}.Spawn(ctx, path, args...)
}

// Spawn starts path with args and connects to its stdin and stdout. The
// child is killed if ctx is done before it exits.
func (o Options) Spawn(ctx context.Context, path string, args ...string) (*Process, error) {
	logger := o.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Env = append(os.Environ(), o.Env...)
	cmd.Stderr = o.Stderr
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("process: stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("process: stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("process: starting %s: %w", path, err)
	}

	p := &Process{
		cmd:    cmd,
		conn:   NewConn(stdout, stdin),
		logger: logger.With(zap.Int("pid", cmd.Process.Pid)),
	}
	p.logger.Info("spawned child process", zap.String("path", path), zap.Strings("args", args))
	return p, nil
}

func (p *Process) Pid() int { return p.cmd.Process.Pid }

// Conn is the parent end of the child's stdin and stdout.
func (p *Process) Conn() *Conn { return p.conn }

// Wait closes the child's stdin and waits for it to exit. All replies must
// be read before calling Wait. A non-zero exit status is returned as an
// *exec.ExitError. Wait may be called more than once.
func (p *Process) Wait() error {
	p.once.Do(func() {
		p.conn.Close()
		p.waitErr = p.cmd.Wait()
		if p.waitErr != nil {
			p.logger.Warn("child process exited", zap.Int("exit_code", p.ExitCode()), zap.Error(p.waitErr))
		} else {
			p.logger.Info("child process exited", zap.Int("exit_code", p.ExitCode()))
		}
	})
	return p.waitErr
}

// ExitCode returns the child's exit status, or -1 if it has not exited or
// was terminated by a signal.
func (p *Process) ExitCode() int {
	if p.cmd.ProcessState == nil {
		return -1
	}
	return p.cmd.ProcessState.ExitCode()
}
