package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Manager closes registered resources in reverse registration order, so a
// resource is always closed before the things it was built on.
type Manager struct {
	mu        sync.Mutex
	resources []resource
	logger    zerolog.Logger
}

type resource struct {
	name   string
	closer io.Closer
}

// NewManager creates an empty manager that logs close failures to logger.
func NewManager(logger zerolog.Logger) *Manager {
	return &Manager{logger: logger}
}

// Register adds a resource. Nil closers are ignored.
func (m *Manager) Register(name string, closer io.Closer) {
	if closer == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resources = append(m.resources, resource{name: name, closer: closer})
}

// RegisterFunc registers a cleanup function.
func (m *Manager) RegisterFunc(name string, fn func() error) {
	m.Register(name, closerFunc(fn))
}

// Len reports how many resources are still registered.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.resources)
}

// Close closes every resource, continuing past failures, and returns all
// failures joined. Resources are forgotten once closed.
func (m *Manager) Close() error {
	return m.Shutdown(context.Background())
}

// Shutdown is Close bounded by ctx. Resources not yet closed when ctx ends
// are reported in the returned error.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	resources := m.resources
	m.resources = nil
	m.mu.Unlock()

	var errs []error
	for i := len(resources) - 1; i >= 0; i-- {
		res := resources[i]
		if err := ctx.Err(); err != nil {
			errs = append(errs, fmt.Errorf("%s: not closed: %w", res.name, err))
			continue
		}

		start := time.Now()
		if err := res.closer.Close(); err != nil {
			m.logger.Error().
				Err(err).
				Str("resource", res.name).
				Msg("lifecycle.close_failed")
			errs = append(errs, fmt.Errorf("%s: %w", res.name, err))
			continue
		}
		m.logger.Debug().
			Str("resource", res.name).
			Dur("duration", time.Since(start)).
			Msg("lifecycle.closed")
	}
	return errors.Join(errs...)
}

type closerFunc func() error

func (f closerFunc) Close() error {
	return f()
}
