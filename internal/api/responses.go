package api

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/charliek/podlogs/internal/domain"
)

// InspectResponse is the subset of the engine's container inspect document
// that podman and docker clients read.
type InspectResponse struct {
	ID           string        `json:"Id"`
	Name         string        `json:"Name"`
	Created      string        `json:"Created,omitempty"`
	State        InspectState  `json:"State"`
	RestartCount int           `json:"RestartCount"`
	Config       InspectConfig `json:"Config"`
}

// InspectState mirrors the engine's State object
type InspectState struct {
	Status     string `json:"Status"`
	Running    bool   `json:"Running"`
	Paused     bool   `json:"Paused"`
	Pid        int    `json:"Pid"`
	ExitCode   int    `json:"ExitCode"`
	StartedAt  string `json:"StartedAt"`
	FinishedAt string `json:"FinishedAt"`
}

// InspectConfig mirrors the engine's Config object
type InspectConfig struct {
	Cmd []string `json:"Cmd"`
}

// ContainerSummary is one entry of the container list
type ContainerSummary struct {
	ID     string   `json:"Id"`
	Names  []string `json:"Names"`
	State  string   `json:"State"`
	Status string   `json:"Status"`
}

// VersionResponse represents the response for GET /version
type VersionResponse struct {
	Version       string `json:"Version"`
	APIVersion    string `json:"ApiVersion"`
	MinAPIVersion string `json:"MinAPIVersion"`
	Os            string `json:"Os"`
}

// ErrorResponse uses the engine's error body, which both client libraries decode
type ErrorResponse struct {
	Cause    string `json:"cause"`
	Message  string `json:"message"`
	Response int    `json:"response"`
}

// zeroTime is how engines report timestamps that never happened
const zeroTime = "0001-01-01T00:00:00Z"

func formatTime(t time.Time) string {
	if t.IsZero() {
		return zeroTime
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// ToInspectResponse converts container info to the inspect document
func ToInspectResponse(info domain.ContainerInfo) InspectResponse {
	resp := InspectResponse{
		ID:           containerID(info.Name),
		Name:         "/" + info.Name,
		RestartCount: info.RestartCount,
		State: InspectState{
			Status:     info.State.String(),
			Running:    info.State.IsRunning(),
			Paused:     info.State == domain.ContainerStatePaused,
			Pid:        info.PID,
			ExitCode:   info.ExitCode,
			StartedAt:  formatTime(info.StartedAt),
			FinishedAt: formatTime(info.FinishedAt),
		},
	}
	if info.Cmd != "" {
		resp.Config.Cmd = []string{"sh", "-c", info.Cmd}
	}
	return resp
}

// ToContainerSummary converts container info to a list entry
func ToContainerSummary(info domain.ContainerInfo) ContainerSummary {
	status := "Created"
	switch {
	case info.State.IsRunning():
		status = "Up"
	case info.State == domain.ContainerStateExited:
		status = "Exited"
	}
	return ContainerSummary{
		ID:     containerID(info.Name),
		Names:  []string{"/" + info.Name},
		State:  info.State.String(),
		Status: status,
	}
}

// containerID derives a stable engine-style id from the name
func containerID(name string) string {
	sum := sha256.Sum256([]byte(name))
	return hex.EncodeToString(sum[:])
}
