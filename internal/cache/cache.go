package cache

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"
)

// Cache defines a generic cache interface
type Cache[T any] interface {
	// Get retrieves a value from the cache
	Get(key string) (T, bool)

	// Set stores a value in the cache
	Set(key string, data T)

	// Delete removes a key from the cache
	Delete(key string)

	// Size returns the current number of items in the cache
	Size() int
}

// Cleaner interface for caches that support cleanup
type Cleaner interface {
	CleanExpired() int
}

// Manager sweeps expired entries from registered caches on a cron schedule.
type Manager struct {
	mu      sync.Mutex
	caches  map[string]Cleaner
	cron    *cron.Cron
	logger  *slog.Logger
	started bool
}

// NewManager creates a new cache manager
func NewManager(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		caches: make(map[string]Cleaner),
		cron:   cron.New(),
		logger: logger,
	}
}

// Register adds a named cache to the sweep.
func (m *Manager) Register(name string, c Cleaner) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.caches[name] = c
}

// Sweep removes expired entries from every registered cache and returns the
// number removed per cache.
func (m *Manager) Sweep() map[string]int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := make(map[string]int, len(m.caches))
	total := 0
	for name, c := range m.caches {
		n := c.CleanExpired()
		removed[name] = n
		total += n
	}
	if total > 0 {
		m.logger.Debug("Cache sweep removed expired entries", "removed", total)
	}
	return removed
}

// StartCleanup schedules Sweep using a standard cron spec or descriptor
// such as "@every 5m".
func (m *Manager) StartCleanup(spec string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return fmt.Errorf("cache cleanup already started")
	}
	if _, err := m.cron.AddFunc(spec, func() { m.Sweep() }); err != nil {
		return fmt.Errorf("schedule cache sweep %q: %w", spec, err)
	}
	m.cron.Start()
	m.started = true
	return nil
}

// Stop halts the schedule and waits for a running sweep, bounded by ctx.
func (m *Manager) Stop(ctx context.Context) {
	m.mu.Lock()
	started := m.started
	m.started = false
	m.mu.Unlock()
	if !started {
		return
	}

	done := m.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		m.logger.Warn("Cache sweep did not stop before deadline")
	}
}
