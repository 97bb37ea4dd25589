package domain

import "time"

// ContainerState mirrors the status strings reported by the container engine
type ContainerState string

const (
	ContainerStateCreated  ContainerState = "created"
	ContainerStateRunning  ContainerState = "running"
	ContainerStatePaused   ContainerState = "paused"
	ContainerStateStopping ContainerState = "stopping"
	ContainerStateExited   ContainerState = "exited"
	ContainerStateStopped  ContainerState = "stopped"
	ContainerStateUnknown  ContainerState = "unknown"
)

// String returns the string representation of ContainerState
func (s ContainerState) String() string {
	return string(s)
}

// IsRunning returns true if the container is running
func (s ContainerState) IsRunning() bool {
	return s == ContainerStateRunning
}

// CanStart returns true if the container can be started from its current state
func (s ContainerState) CanStart() bool {
	switch s {
	case ContainerStateCreated, ContainerStateExited, ContainerStateStopped:
		return true
	}
	return false
}

// ParseContainerState normalizes an engine status string
func ParseContainerState(s string) ContainerState {
	switch st := ContainerState(s); st {
	case ContainerStateCreated, ContainerStateRunning, ContainerStatePaused,
		ContainerStateStopping, ContainerStateExited, ContainerStateStopped:
		return st
	case "configured", "initialized":
		return ContainerStateCreated
	case "dead":
		return ContainerStateExited
	}
	return ContainerStateUnknown
}

// ContainerConfig defines a pseudo-container run by the engine emulator
type ContainerConfig struct {
	Name       string
	Cmd        string
	Env        map[string]string
	AutoStart  bool
	StopSignal string // sent first on stop; empty means SIGTERM
}

// ContainerInfo represents the runtime state of an emulated container
type ContainerInfo struct {
	Name         string         `json:"name"`
	State        ContainerState `json:"status"`
	PID          int            `json:"pid"`
	StartedAt    time.Time      `json:"started_at,omitempty"`
	FinishedAt   time.Time      `json:"finished_at,omitempty"`
	ExitCode     int            `json:"exit_code"`
	RestartCount int            `json:"restarts"`
	Cmd          string         `json:"cmd,omitempty"`
}
