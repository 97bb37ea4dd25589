package supervisor

import (
	"fmt"
	"strconv"
	"strings"
	"syscall"

	"github.com/charliek/podlogs/internal/domain"
)

// stopSignals are the names a container may use as its stop_signal
var stopSignals = map[string]syscall.Signal{
	"HUP":  syscall.SIGHUP,
	"INT":  syscall.SIGINT,
	"QUIT": syscall.SIGQUIT,
	"KILL": syscall.SIGKILL,
	"USR1": syscall.SIGUSR1,
	"USR2": syscall.SIGUSR2,
	"TERM": syscall.SIGTERM,
}

// ParseStopSignal accepts the forms podman takes for --stop-signal:
// "TERM", "SIGTERM", "sigterm" or a signal number. Empty means SIGTERM.
func ParseStopSignal(s string) (syscall.Signal, error) {
	if s == "" {
		return syscall.SIGTERM, nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		if n <= 0 || n > 64 {
			return 0, fmt.Errorf("signal number %d out of range", n)
		}
		return syscall.Signal(n), nil
	}
	name := strings.TrimPrefix(strings.ToUpper(s), "SIG")
	sig, ok := stopSignals[name]
	if !ok {
		return 0, fmt.Errorf("unsupported stop signal %q", s)
	}
	return sig, nil
}

// ValidateStopSignals checks every container's stop signal before anything starts
func ValidateStopSignals(configs []domain.ContainerConfig) error {
	for _, cfg := range configs {
		if _, err := ParseStopSignal(cfg.StopSignal); err != nil {
			return fmt.Errorf("container %q: %w", cfg.Name, err)
		}
	}
	return nil
}
