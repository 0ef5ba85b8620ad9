// Package cache holds the in-process TTL caches used by the HTTP layer and
// the manager that sweeps their expired entries.
package cache

import (
	"context"
	"time"

	applog "gastos/internal/log"
)

// Cache defines a generic cache interface
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	Delete(key string)
	Size() int
}

// Cleaner is implemented by caches whose expired entries can be swept.
type Cleaner interface {
	CleanExpired() int
}

// Manager sweeps every registered cache on an interval.
type Manager struct {
	caches []Cleaner
	logger *applog.Logger
}

func NewManager(logger *applog.Logger) *Manager {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &Manager{logger: logger.WithComponent(applog.ComponentCache)}
}

// Register adds a cache to the sweep. Not safe to call once Run has started.
func (m *Manager) Register(c Cleaner) {
	m.caches = append(m.caches, c)
}

// Sweep cleans every registered cache once and returns the number of
// entries removed.
func (m *Manager) Sweep() int {
	total := 0
	for _, c := range m.caches {
		total += c.CleanExpired()
	}
	return total
}

// Run sweeps on every tick until ctx is cancelled.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := m.Sweep(); n > 0 {
				m.logger.DebugContext(ctx, "Swept expired cache entries", "removed", n)
			}
		case <-ctx.Done():
			return
		}
	}
}
