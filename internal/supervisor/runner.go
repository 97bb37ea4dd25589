// Package supervisor runs shell commands as pseudo-containers for the engine
// emulator and captures their output into the log store.
//
// Commands are executed via "sh -c", so a configuration file can run
// arbitrary code. Only serve configuration files from trusted sources.
package supervisor

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"syscall"

	"github.com/charliek/podlogs/internal/domain"
)

// ProcessRunner starts the process behind a container
type ProcessRunner interface {
	Start(ctx context.Context, config domain.ContainerConfig) (Process, error)
}

// Process is a started command
type Process interface {
	PID() int
	Wait() error
	Signal(sig os.Signal) error
	Stdout() io.Reader
	Stderr() io.Reader
}

// ExecRunner implements ProcessRunner using os/exec
type ExecRunner struct {
	Shell string
}

// NewExecRunner creates a runner using /bin/sh
func NewExecRunner() *ExecRunner {
	return &ExecRunner{Shell: "sh"}
}

// Start starts the container command in its own process group
func (r *ExecRunner) Start(ctx context.Context, config domain.ContainerConfig) (Process, error) {
	cmd := exec.CommandContext(ctx, r.Shell, "-c", config.Cmd)
	cmd.Env = mergeEnv(os.Environ(), config.Env)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("creating stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("creating stderr pipe: %w", err)
	}

	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting %s: %w", config.Name, err)
	}
	return &execProcess{cmd: cmd, stdout: stdout, stderr: stderr}, nil
}

// mergeEnv appends env to base in a stable order
func mergeEnv(base []string, env map[string]string) []string {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := append([]string(nil), base...)
	for _, k := range keys {
		out = append(out, k+"="+env[k])
	}
	return out
}

type execProcess struct {
	cmd    *exec.Cmd
	stdout io.Reader
	stderr io.Reader
}

func (p *execProcess) PID() int {
	if p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

func (p *execProcess) Wait() error {
	return p.cmd.Wait()
}

// Signal delivers sig to the whole process group
func (p *execProcess) Signal(sig os.Signal) error {
	if p.cmd.Process == nil {
		return nil
	}
	pgid, err := syscall.Getpgid(p.cmd.Process.Pid)
	if err != nil {
		return p.cmd.Process.Signal(sig)
	}
	return syscall.Kill(-pgid, sig.(syscall.Signal))
}

func (p *execProcess) Stdout() io.Reader { return p.stdout }

func (p *execProcess) Stderr() io.Reader { return p.stderr }

// exitCode extracts the exit status, using the negative signal number for signalled processes
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	exitErr, ok := err.(*exec.ExitError)
	if !ok {
		return 1
	}
	if status, ok := exitErr.Sys().(syscall.WaitStatus); ok {
		if status.Signaled() {
			return -int(status.Signal())
		}
		return status.ExitStatus()
	}
	return exitErr.ExitCode()
}
