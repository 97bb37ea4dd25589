package instance

import "errors"

var (
	// ErrStateNotFound is returned when no state file exists
	ErrStateNotFound = errors.New("state file not found")
	// ErrAlreadyRunning is returned when an emulator already serves the directory
	ErrAlreadyRunning = errors.New("podlogs serve is already running")
	// ErrNotRunning is returned when no emulator serves the directory
	ErrNotRunning = errors.New("podlogs serve is not running")
	// ErrLocked is returned when the PID file is locked by another process
	ErrLocked = errors.New("PID file is locked by another process")
)
