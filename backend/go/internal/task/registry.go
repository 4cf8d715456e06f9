package task

import (
	"RagDesk/backend/go/pkg/logger"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

var (
	ErrTaskNotFound  = errors.New("task not found")
	ErrDuplicateTask = errors.New("task id already registered")
)

// Registry maps task ids to records. It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	records map[string]*Record

	ttl time.Duration
	now func() time.Time
	log *logger.Logger
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithTTL enables eviction of terminal records older than ttl. Zero disables eviction.
func WithTTL(ttl time.Duration) RegistryOption {
	return func(r *Registry) { r.ttl = ttl }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) RegistryOption {
	return func(r *Registry) { r.now = now }
}

// WithLogger sets the logger used by the sweeper.
func WithLogger(l *logger.Logger) RegistryOption {
	return func(r *Registry) { r.log = l }
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		records: make(map[string]*Record),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.log == nil {
		r.log = logger.Discard()
	}
	return r
}

// Create inserts a new pending record.
func (r *Registry) Create(id, filePath string) (*Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.records[id]; exists {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateTask, id)
	}
	rec := NewRecord(id, filePath, r.now)
	r.records[id] = rec
	return rec, nil
}

// Get looks up a record by id.
func (r *Registry) Get(id string) (*Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[id]
	if !ok {
		return nil, ErrTaskNotFound
	}
	return rec, nil
}

// Remove deletes a record regardless of its state.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.records, id)
}

// Len returns the number of tracked records.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

// Sweep evicts terminal records whose end time is older than the TTL.
// Records still pending or processing are never evicted.
func (r *Registry) Sweep() int {
	if r.ttl <= 0 {
		return 0
	}
	cutoff := r.now().Add(-r.ttl)

	r.mu.Lock()
	defer r.mu.Unlock()

	evicted := 0
	for id, rec := range r.records {
		end, terminal := rec.EndTime()
		if terminal && end.Before(cutoff) {
			delete(r.records, id)
			evicted++
		}
	}
	return evicted
}

// Run sweeps on every tick until ctx is done. It returns immediately when eviction is disabled.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	if r.ttl <= 0 {
		return
	}
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Sweep(); n > 0 {
				r.log.Info(fmt.Sprintf("Evicted %d finished tasks from registry", n))
			}
		}
	}
}
