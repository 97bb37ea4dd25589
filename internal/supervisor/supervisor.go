package supervisor

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/charliek/podlogs/internal/constants"
	"github.com/charliek/podlogs/internal/domain"
	"github.com/charliek/podlogs/internal/logs"
)

// SupervisorConfig holds configuration for the supervisor
type SupervisorConfig struct {
	ShutdownTimeout time.Duration
}

// DefaultSupervisorConfig returns default configuration
func DefaultSupervisorConfig() SupervisorConfig {
	return SupervisorConfig{
		ShutdownTimeout: constants.DefaultShutdownTimeout,
	}
}

// Supervisor owns the emulated containers.
// Containers are registered up front and keep their state across runs so
// a client can watch one exit and come back.
type Supervisor struct {
	mu sync.RWMutex

	supConfig  SupervisorConfig
	containers map[string]*Container
	logManager *logs.Manager

	startedAt time.Time
	// state is "stopped", "running" or "stopping"
	state string

	// ctx bounds every container process; request contexts never do
	ctx    context.Context
	cancel context.CancelFunc

	eventMu   sync.RWMutex
	eventSubs []chan Event
}

// Event reports a container state change
type Event struct {
	Type      EventType
	Container string
	Timestamp time.Time
	Info      domain.ContainerInfo
}

// EventType defines the type of supervisor event
type EventType string

const (
	EventTypeContainerStarted  EventType = "container_started"
	EventTypeContainerStopping EventType = "container_stopping"
	EventTypeContainerExited   EventType = "container_exited"
)

// StartResult reports which containers started
type StartResult struct {
	Started []string
	Failed  map[string]error
}

// New registers the configured containers in the created state
func New(configs []domain.ContainerConfig, logManager *logs.Manager, runner ProcessRunner, supConfig SupervisorConfig) *Supervisor {
	if runner == nil {
		runner = NewExecRunner()
	}
	if supConfig.ShutdownTimeout <= 0 {
		supConfig.ShutdownTimeout = constants.DefaultShutdownTimeout
	}

	s := &Supervisor{
		supConfig:  supConfig,
		containers: make(map[string]*Container, len(configs)),
		logManager: logManager,
		state:      "stopped",
	}
	for _, cfg := range configs {
		s.containers[cfg.Name] = NewContainer(cfg, runner, logManager, s.onChange)
	}
	return s
}

// Start starts the supervisor and every container marked for autostart
func (s *Supervisor) Start(ctx context.Context) (StartResult, error) {
	result := StartResult{Failed: make(map[string]error)}

	s.mu.Lock()
	if s.state == "running" {
		s.mu.Unlock()
		return result, fmt.Errorf("supervisor already running")
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.state = "running"
	s.startedAt = time.Now()
	var auto []*Container
	for _, c := range s.containers {
		if c.config.AutoStart {
			auto = append(auto, c)
		}
	}
	supCtx := s.ctx
	s.mu.Unlock()

	var wg sync.WaitGroup
	var resultMu sync.Mutex
	for _, c := range auto {
		wg.Add(1)
		go func(c *Container) {
			defer wg.Done()
			err := c.Start(supCtx)
			resultMu.Lock()
			defer resultMu.Unlock()
			if err != nil {
				c.system(fmt.Sprintf("Failed to start: %v", err))
				result.Failed[c.Name()] = err
				return
			}
			result.Started = append(result.Started, c.Name())
		}(c)
	}
	wg.Wait()

	sort.Strings(result.Started)
	return result, nil
}

// Stop stops every running container and the supervisor
func (s *Supervisor) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.state != "running" {
		s.mu.Unlock()
		return nil
	}
	s.state = "stopping"
	containers := make([]*Container, 0, len(s.containers))
	for _, c := range s.containers {
		containers = append(containers, c)
	}
	s.mu.Unlock()

	shutdownCtx, cancel := context.WithTimeout(ctx, s.supConfig.ShutdownTimeout)
	defer cancel()

	var wg sync.WaitGroup
	for _, c := range containers {
		if !c.State().IsRunning() {
			continue
		}
		wg.Add(1)
		go func(c *Container) {
			defer wg.Done()
			if err := c.Stop(shutdownCtx); err != nil && err != domain.ErrContainerNotRunning {
				c.system(fmt.Sprintf("Error stopping: %v", err))
			}
		}(c)
	}
	wg.Wait()

	s.mu.Lock()
	s.state = "stopped"
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()
	return nil
}

// Containers returns info for all containers sorted by name
func (s *Supervisor) Containers() []domain.ContainerInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.ContainerInfo, 0, len(s.containers))
	for _, c := range s.containers {
		result = append(result, c.Info())
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})
	return result
}

// Container returns info for one container
func (s *Supervisor) Container(name string) (domain.ContainerInfo, error) {
	c, err := s.lookup(name)
	if err != nil {
		return domain.ContainerInfo{}, err
	}
	return c.Info(), nil
}

// Done returns a channel closed when the container's current run ends.
// The channel is already closed if the container is not running.
func (s *Supervisor) Done(name string) (<-chan struct{}, error) {
	c, err := s.lookup(name)
	if err != nil {
		return nil, err
	}
	return c.Done(), nil
}

// StartContainer starts a registered container.
// The process lives on the supervisor context, so the caller's ctx only
// needs to cover the request.
func (s *Supervisor) StartContainer(ctx context.Context, name string) error {
	c, err := s.lookup(name)
	if err != nil {
		return err
	}

	s.mu.RLock()
	supCtx := s.ctx
	s.mu.RUnlock()
	if supCtx == nil {
		return fmt.Errorf("supervisor not running")
	}
	return c.Start(supCtx)
}

// StopContainer stops a running container
func (s *Supervisor) StopContainer(ctx context.Context, name string) error {
	c, err := s.lookup(name)
	if err != nil {
		return err
	}

	stopCtx, cancel := context.WithTimeout(ctx, s.supConfig.ShutdownTimeout)
	defer cancel()
	return c.Stop(stopCtx)
}

func (s *Supervisor) lookup(name string) (*Container, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.containers[name]
	if !ok {
		return nil, domain.ErrContainerNotFound
	}
	return c, nil
}

// Status returns supervisor status
func (s *Supervisor) Status() SupervisorStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return SupervisorStatus{
		State:     s.state,
		StartedAt: s.startedAt,
	}
}

// SupervisorStatus holds supervisor status information
type SupervisorStatus struct {
	State     string
	StartedAt time.Time
}

// UptimeSeconds returns the uptime in seconds
func (s SupervisorStatus) UptimeSeconds() int64 {
	if s.StartedAt.IsZero() {
		return 0
	}
	return int64(time.Since(s.StartedAt).Seconds())
}

// Subscribe returns a channel of container state changes
func (s *Supervisor) Subscribe() <-chan Event {
	ch := make(chan Event, constants.DefaultSubscriptionBuffer)

	s.eventMu.Lock()
	s.eventSubs = append(s.eventSubs, ch)
	s.eventMu.Unlock()

	return ch
}

// Unsubscribe removes an event subscription
func (s *Supervisor) Unsubscribe(ch <-chan Event) {
	s.eventMu.Lock()
	defer s.eventMu.Unlock()

	for i, sub := range s.eventSubs {
		if sub == ch {
			close(sub)
			s.eventSubs = append(s.eventSubs[:i], s.eventSubs[i+1:]...)
			return
		}
	}
}

func (s *Supervisor) onChange(info domain.ContainerInfo) {
	var typ EventType
	switch info.State {
	case domain.ContainerStateRunning:
		typ = EventTypeContainerStarted
	case domain.ContainerStateStopping:
		typ = EventTypeContainerStopping
	default:
		typ = EventTypeContainerExited
	}
	s.emit(Event{
		Type:      typ,
		Container: info.Name,
		Timestamp: time.Now(),
		Info:      info,
	})
}

func (s *Supervisor) emit(event Event) {
	s.eventMu.RLock()
	defer s.eventMu.RUnlock()

	for _, ch := range s.eventSubs {
		select {
		case ch <- event:
		default:
			// drop rather than block a container's monitor
		}
	}
}
