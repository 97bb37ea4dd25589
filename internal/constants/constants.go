// Package constants provides shared configuration values used across the podlogs application.
package constants

import "time"

// Configuration file defaults
const (
	// DefaultConfigFile is the default configuration filename
	DefaultConfigFile = "podlogs.yaml"

	// DefaultServeHost is the default host for the engine emulator
	DefaultServeHost = "127.0.0.1"

	// DefaultServePort is the default port for the engine emulator
	DefaultServePort = 8089

	// DefaultAPIVersion is the libpod API version prefix used in request paths
	DefaultAPIVersion = "v4.0.0"

	// DefaultPodmanSocket is the rootful podman socket
	DefaultPodmanSocket = "unix:///run/podman/podman.sock"
)

// Timeout and duration defaults
const (
	// DefaultRequestTimeout is the default timeout for non-streaming API requests
	DefaultRequestTimeout = 30 * time.Second

	// DefaultShutdownTimeout is the default timeout for graceful shutdown
	DefaultShutdownTimeout = 10 * time.Second

	// DefaultStatusPoll is how often the viewer polls the container state
	DefaultStatusPoll = 2 * time.Second

	// OutputDrainTimeout bounds how long the emulator waits for output readers after a process exits
	OutputDrainTimeout = 5 * time.Second
)

// Log view defaults
const (
	// DefaultTailLines is the number of lines requested when following starts
	DefaultTailLines = 512

	// DefaultHistoryBatch is the number of history lines merged per drain
	DefaultHistoryBatch = 128

	// DefaultAnchorOffset is the scroll threshold and nudge applied after a history merge
	DefaultAnchorOffset = 30

	// MaxLogLines is the maximum number of log lines the emulator returns for one request
	MaxLogLines = 100000
)

// Buffer sizes
const (
	// DefaultLogBufferSize is how many lines the emulator keeps per container
	DefaultLogBufferSize = 5000

	// DefaultSubscriptionBuffer is the default size for subscription buffers
	DefaultSubscriptionBuffer = 100

	// DefaultEventBuffer is the size of the view's engine event channel
	DefaultEventBuffer = 256

	// ScannerBufferSize is the initial buffer size for log line scanning
	ScannerBufferSize = 64 * 1024 // 64KB

	// ScannerMaxBufferSize is the maximum buffer size for log line scanning
	ScannerMaxBufferSize = 1024 * 1024 // 1MB

	// FrameHeaderSize is the size of the stdout/stderr multiplexing header
	FrameHeaderSize = 8
)
