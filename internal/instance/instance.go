// Package instance records a running engine emulator so other podlogs
// commands in the same directory can find it.
package instance

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

const (
	// StateDirName is the directory holding runtime state, next to the config file
	StateDirName = ".podlogs"
	// StateFileName is the name of the state file
	StateFileName = "serve.state"
	// PIDFileName is the name of the PID file
	PIDFileName = "serve.pid"
)

// State describes a running emulator
type State struct {
	PID        int       `json:"pid"`
	Host       string    `json:"host"`
	Port       int       `json:"port"`
	StartedAt  time.Time `json:"started_at"`
	ConfigFile string    `json:"config_file,omitempty"`
	Containers []string  `json:"containers"`
}

// URL returns the engine endpoint clients should use
func (s State) URL() string {
	return "tcp://" + net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

func (s State) validate() error {
	if s.PID <= 0 {
		return fmt.Errorf("invalid PID: %d", s.PID)
	}
	if s.Port < 1 || s.Port > 65535 {
		return fmt.Errorf("invalid port: %d", s.Port)
	}
	if s.Host == "" {
		return errors.New("host cannot be empty")
	}
	return nil
}

// StateDir returns the state directory under dir
func StateDir(dir string) string {
	return filepath.Join(dir, StateDirName)
}

// StatePath returns the full path to the state file
func StatePath(dir string) string {
	return filepath.Join(StateDir(dir), StateFileName)
}

// PIDPath returns the full path to the PID file
func PIDPath(dir string) string {
	return filepath.Join(StateDir(dir), PIDFileName)
}

// Registration holds the PID lock of the running emulator
type Registration struct {
	dir string
	pid *PIDFile
}

// Register locks the directory for this process and writes state.
// Stale files from a crashed emulator are replaced.
func Register(dir string, state State) (*Registration, error) {
	if state.PID == 0 {
		state.PID = os.Getpid()
	}
	if state.StartedAt.IsZero() {
		state.StartedAt = time.Now()
	}
	if err := state.validate(); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(StateDir(dir), 0700); err != nil {
		return nil, fmt.Errorf("creating state directory: %w", err)
	}

	pid := NewPIDFile(PIDPath(dir))
	if err := pid.Acquire(); err != nil {
		if errors.Is(err, ErrLocked) {
			return nil, ErrAlreadyRunning
		}
		return nil, err
	}

	if err := writeState(dir, state); err != nil {
		_ = pid.Release()
		return nil, err
	}
	return &Registration{dir: dir, pid: pid}, nil
}

// Release removes the state file and the PID lock
func (r *Registration) Release() error {
	if err := os.Remove(StatePath(r.dir)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing state file: %w", err)
	}
	return r.pid.Release()
}

func writeState(dir string, state State) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling state: %w", err)
	}
	if err := os.WriteFile(StatePath(dir), data, 0600); err != nil {
		return fmt.Errorf("writing state file: %w", err)
	}
	return nil
}

// LoadState reads the state file under dir
func LoadState(dir string) (*State, error) {
	data, err := os.ReadFile(StatePath(dir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrStateNotFound
		}
		return nil, fmt.Errorf("reading state file: %w", err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("unmarshaling state: %w", err)
	}
	return &state, nil
}

// IsRunning reports whether an emulator serves dir.
// A held PID lock is authoritative; otherwise the recorded PID is checked.
func IsRunning(dir string) bool {
	if IsLocked(PIDPath(dir)) {
		return true
	}
	state, err := LoadState(dir)
	if err != nil {
		return false
	}
	return ProcessExists(state.PID)
}

// Discover returns the state of the emulator serving dir
func Discover(dir string) (*State, error) {
	if !IsRunning(dir) {
		return nil, ErrNotRunning
	}
	return LoadState(dir)
}

// FreePort asks the OS for an unused TCP port on host
func FreePort(host string) (int, error) {
	listener, err := net.Listen("tcp", net.JoinHostPort(host, "0"))
	if err != nil {
		return 0, fmt.Errorf("finding available port: %w", err)
	}
	defer listener.Close()

	tcpAddr, ok := listener.Addr().(*net.TCPAddr)
	if !ok {
		return 0, fmt.Errorf("unexpected address type: %T", listener.Addr())
	}
	return tcpAddr.Port, nil
}
