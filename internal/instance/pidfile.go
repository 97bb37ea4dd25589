package instance

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// PIDFile is an flock-held file containing the owner's PID.
// Not safe for concurrent use.
type PIDFile struct {
	path string
	file *os.File
}

// NewPIDFile creates a PIDFile for path
func NewPIDFile(path string) *PIDFile {
	return &PIDFile{path: path}
}

// Acquire locks the file and writes the current PID.
// Returns ErrLocked if another process holds the lock.
func (p *PIDFile) Acquire() error {
	f, err := os.OpenFile(p.path, os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		return fmt.Errorf("opening PID file: %w", err)
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return ErrLocked
		}
		return fmt.Errorf("locking PID file: %w", err)
	}

	if err := f.Truncate(0); err != nil {
		unlockAndClose(f)
		return fmt.Errorf("truncating PID file: %w", err)
	}
	if _, err := f.WriteAt([]byte(strconv.Itoa(os.Getpid())+"\n"), 0); err != nil {
		unlockAndClose(f)
		return fmt.Errorf("writing PID: %w", err)
	}

	p.file = f
	return nil
}

// Release unlocks and removes the file
func (p *PIDFile) Release() error {
	if p.file == nil {
		return nil
	}
	unlockAndClose(p.file)
	p.file = nil

	if err := os.Remove(p.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing PID file: %w", err)
	}
	return nil
}

func unlockAndClose(f *os.File) {
	_ = unix.Flock(int(f.Fd()), unix.LOCK_UN)
	_ = f.Close()
}

// IsLocked reports whether another process holds the lock on path
func IsLocked(path string) bool {
	f, err := os.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return false
	}
	defer f.Close()

	if err := unix.Flock(int(f.Fd()), unix.LOCK_SH|unix.LOCK_NB); err != nil {
		return true
	}
	_ = unix.Flock(int(f.Fd()), unix.LOCK_UN)
	return false
}

// ReadPID reads the PID from a PID file
func ReadPID(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("reading PID file: %w", err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("parsing PID: %w", err)
	}
	return pid, nil
}

// ProcessExists checks if a process with the given PID exists
func ProcessExists(pid int) bool {
	if pid <= 0 {
		return false
	}
	// EPERM means the process exists but belongs to someone else
	err := unix.Kill(pid, 0)
	return err == nil || errors.Is(err, unix.EPERM)
}
