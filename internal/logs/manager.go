// Package logs stores and fans out the output captured by the engine emulator.
package logs

import (
	"sync"

	"github.com/charliek/podlogs/internal/constants"
	"github.com/charliek/podlogs/internal/domain"
)

// ManagerConfig holds configuration for the log manager
type ManagerConfig struct {
	BufferSize         int                    // Lines kept per container
	SubscriptionBuffer int                    // Channel size of each follower
	OnWrite            func(domain.LogEntry)  // Called for every stored entry
	OnDrop             func(container string) // Called when a slow follower misses an entry
}

// DefaultManagerConfig returns the default configuration
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		BufferSize:         constants.DefaultLogBufferSize,
		SubscriptionBuffer: constants.DefaultSubscriptionBuffer,
	}
}

// Manager stores captured output and serves queries and followers.
// Writes and follow snapshots share one lock, so a follower sees every
// entry after its snapshot exactly once.
type Manager struct {
	mu        sync.RWMutex
	config    ManagerConfig
	journal   *journal
	followers map[*Follower]struct{}
}

// NewManager creates a new log manager
func NewManager(config ManagerConfig) *Manager {
	defaults := DefaultManagerConfig()
	if config.BufferSize <= 0 {
		config.BufferSize = defaults.BufferSize
	}
	if config.SubscriptionBuffer <= 0 {
		config.SubscriptionBuffer = defaults.SubscriptionBuffer
	}
	return &Manager{
		config:    config,
		journal:   newJournal(config.BufferSize),
		followers: make(map[*Follower]struct{}),
	}
}

// Write stores an entry and offers it to every follower
func (m *Manager) Write(entry domain.LogEntry) {
	m.mu.Lock()
	m.journal.append(entry)
	for f := range m.followers {
		if !f.offer(entry) && m.config.OnDrop != nil {
			m.config.OnDrop(entry.Container)
		}
	}
	m.mu.Unlock()

	if m.config.OnWrite != nil {
		m.config.OnWrite(entry)
	}
}

// Query returns the newest limit entries matching the filter, oldest first
func (m *Manager) Query(filter domain.LogFilter, limit int) ([]domain.LogEntry, error) {
	matcher, err := Compile(filter)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.journal.tail(matcher, limit), nil
}

// Follow returns the newest tail entries matching the filter together with a
// follower that continues exactly after them.
func (m *Manager) Follow(filter domain.LogFilter, tail int) ([]domain.LogEntry, *Follower, error) {
	matcher, err := Compile(filter)
	if err != nil {
		return nil, nil, err
	}
	f := &Follower{
		matcher: matcher,
		ch:      make(chan domain.LogEntry, m.config.SubscriptionBuffer),
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.followers[f] = struct{}{}
	return m.journal.tail(matcher, tail), f, nil
}

// Unfollow detaches a follower and closes its channel
func (m *Manager) Unfollow(f *Follower) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.followers, f)
	f.close()
}

// Stats returns statistics about the log manager
func (m *Manager) Stats() domain.LogStats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return domain.LogStats{
		Lines:        m.journal.lines,
		Containers:   m.journal.containers(),
		PerContainer: m.config.BufferSize,
		Followers:    len(m.followers),
	}
}

// Close closes every follower
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for f := range m.followers {
		f.close()
		delete(m.followers, f)
	}
}
