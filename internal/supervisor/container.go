package supervisor

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"syscall"
	"time"

	"github.com/charliek/podlogs/internal/constants"
	"github.com/charliek/podlogs/internal/domain"
	"github.com/charliek/podlogs/internal/logs"
)

// Container is one emulated container: a command plus its captured output
type Container struct {
	mu sync.RWMutex

	config     domain.ContainerConfig
	stopSignal os.Signal
	runner     ProcessRunner
	logManager *logs.Manager
	onChange   func(domain.ContainerInfo)

	state        domain.ContainerState
	process      Process
	startedAt    time.Time
	finishedAt   time.Time
	exitCode     int
	restartCount int
	stopping     bool

	cancel   context.CancelFunc
	done     chan struct{}
	outputWg sync.WaitGroup
}

// NewContainer creates a container in the created state
// An unparseable stop signal falls back to SIGTERM.
func NewContainer(config domain.ContainerConfig, runner ProcessRunner, logManager *logs.Manager, onChange func(domain.ContainerInfo)) *Container {
	sig, err := ParseStopSignal(config.StopSignal)
	if err != nil {
		sig = syscall.SIGTERM
	}
	c := &Container{
		config:     config,
		stopSignal: sig,
		runner:     runner,
		logManager: logManager,
		onChange:   onChange,
		state:      domain.ContainerStateCreated,
		done:       make(chan struct{}),
	}
	// nothing is running yet
	close(c.done)
	return c
}

// Name returns the container name
func (c *Container) Name() string {
	return c.config.Name
}

// Info returns a snapshot of the container state
func (c *Container) Info() domain.ContainerInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.infoLocked()
}

func (c *Container) infoLocked() domain.ContainerInfo {
	info := domain.ContainerInfo{
		Name:         c.config.Name,
		State:        c.state,
		StartedAt:    c.startedAt,
		FinishedAt:   c.finishedAt,
		ExitCode:     c.exitCode,
		RestartCount: c.restartCount,
		Cmd:          c.config.Cmd,
	}
	if c.process != nil {
		info.PID = c.process.PID()
	}
	return info
}

// State returns the current state
func (c *Container) State() domain.ContainerState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Done is closed when the current run exits
func (c *Container) Done() <-chan struct{} {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.done
}

// Start runs the command. ctx bounds the lifetime of the process, not the call.
func (c *Container) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.state == domain.ContainerStateRunning || c.state == domain.ContainerStateStopping {
		c.mu.Unlock()
		return domain.ErrContainerAlreadyRunning
	}

	procCtx, cancel := context.WithCancel(ctx)
	proc, err := c.runner.Start(procCtx, c.config)
	if err != nil {
		cancel()
		c.state = domain.ContainerStateExited
		c.exitCode = 127
		c.finishedAt = time.Now()
		info := c.infoLocked()
		c.mu.Unlock()
		c.notify(info)
		return err
	}

	if !c.startedAt.IsZero() {
		c.restartCount++
	}
	c.cancel = cancel
	c.process = proc
	c.startedAt = time.Now()
	c.finishedAt = time.Time{}
	c.exitCode = 0
	c.stopping = false
	c.state = domain.ContainerStateRunning
	done := make(chan struct{})
	c.done = done
	info := c.infoLocked()

	c.outputWg.Add(2)
	c.mu.Unlock()

	// started is reported before the monitor can report the exit
	c.notify(info)
	go c.readOutput(proc.Stdout(), domain.OriginStdout)
	go c.readOutput(proc.Stderr(), domain.OriginStderr)
	go c.monitor(proc, done)
	return nil
}

// Stop sends the stop signal and escalates to SIGKILL when ctx expires
func (c *Container) Stop(ctx context.Context) error {
	c.mu.Lock()
	if c.state != domain.ContainerStateRunning && c.state != domain.ContainerStateStopping {
		c.mu.Unlock()
		return domain.ErrContainerNotRunning
	}
	done := c.done
	if c.stopping {
		c.mu.Unlock()
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	c.stopping = true
	c.state = domain.ContainerStateStopping
	proc := c.process
	cancel := c.cancel
	info := c.infoLocked()
	c.mu.Unlock()
	c.notify(info)

	if err := proc.Signal(c.stopSignal); err != nil {
		c.system(fmt.Sprintf("%v failed (process may have already exited): %v", c.stopSignal, err))
	}

	select {
	case <-done:
	case <-ctx.Done():
		c.system(fmt.Sprintf("sending SIGKILL to %s (graceful stop timed out)", c.config.Name))
		if err := proc.Signal(syscall.SIGKILL); err != nil {
			c.system("SIGKILL failed: " + err.Error())
		}
		select {
		case <-done:
		case <-time.After(time.Second):
		}
	}

	if cancel != nil {
		cancel()
	}
	return nil
}

func (c *Container) monitor(proc Process, done chan struct{}) {
	err := proc.Wait()

	// grandchildren may hold the pipes open, so draining is bounded
	outputDone := make(chan struct{})
	go func() {
		c.outputWg.Wait()
		close(outputDone)
	}()
	select {
	case <-outputDone:
	case <-time.After(constants.OutputDrainTimeout):
		c.system("output capture timed out (some logs may be missing)")
	}

	c.mu.Lock()
	c.state = domain.ContainerStateExited
	c.exitCode = exitCode(err)
	c.finishedAt = time.Now()
	c.process = nil
	c.stopping = false
	info := c.infoLocked()
	close(done)
	c.mu.Unlock()

	c.notify(info)
}

// readOutput copies one output pipe into the log store line by line
func (c *Container) readOutput(r io.Reader, stream domain.Origin) {
	defer c.outputWg.Done()
	if r == nil {
		return
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, constants.ScannerBufferSize), constants.ScannerMaxBufferSize)
	for scanner.Scan() {
		c.logManager.Write(domain.LogEntry{
			Timestamp: time.Now(),
			Container: c.config.Name,
			Stream:    stream,
			Line:      scanner.Text(),
		})
	}
	if err := scanner.Err(); err != nil {
		c.system(fmt.Sprintf("output reader error: %v", err))
	}
}

// system records a supervisor message in the container's stderr
func (c *Container) system(line string) {
	c.logManager.Write(domain.LogEntry{
		Timestamp: time.Now(),
		Container: c.config.Name,
		Stream:    domain.OriginStderr,
		Line:      line,
	})
}

func (c *Container) notify(info domain.ContainerInfo) {
	if c.onChange != nil {
		c.onChange(info)
	}
}
