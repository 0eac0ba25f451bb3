package scheduler

import (
	"errors"
	"sync"
	"time"

	"cloudscribe/pkg/logger"
)

// ErrDuplicateName is returned when a processor name is already taken.
var ErrDuplicateName = errors.New("scheduler: a processor with that name already exists")

// DefaultName is the entry created by InitDefault.
const DefaultName = "default"

// Record describes one registered processor.
type Record struct {
	Processor *Processor
	Name      string
	Source    string // free-text label for who created it
	Created   time.Time
}

// Registry is a named directory of processors with lifecycle management.
// Construct one in main and pass it by reference; there is no package-wide
// ambient instance.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*Record
	order   []string
	def     *Processor
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*Record)}
}

// New creates and registers a processor. Fails without side effects if the
// name is already in use.
func (r *Registry) New(name, source string, paused, logging bool) (*Processor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[name]; exists {
		return nil, ErrDuplicateName
	}

	p := newProcessor(paused, logging)
	r.entries[name] = &Record{
		Processor: p,
		Name:      name,
		Source:    source,
		Created:   time.Now().UTC(),
	}
	r.order = append(r.order, name)

	if name == DefaultName {
		r.def = p
	}

	logger.Sugar.Infof("REGISTRY: New processor with name '%s' created.", name)
	return p, nil
}

// InitDefault creates the entry named "default".
func (r *Registry) InitDefault() (*Processor, error) {
	return r.New(DefaultName, "main", false, true)
}

// Default returns the default processor, or nil before InitDefault.
func (r *Registry) Default() *Processor {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.def
}

// List returns all processor names in creation order.
func (r *Registry) List() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.order...)
}

// Info returns the record for the named processor, or nil.
func (r *Registry) Info(name string) *Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.entries[name]
}

// ByName returns the named processor, or nil.
func (r *Registry) ByName(name string) *Processor {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.entries[name]; ok {
		return rec.Processor
	}
	return nil
}

// ByID scans registered processors for a matching ID.
func (r *Registry) ByID(id string) *Processor {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, name := range r.order {
		if rec := r.entries[name]; rec.Processor.ID == id {
			return rec.Processor
		}
	}
	return nil
}

// Close shuts down and removes the named processor. Clears the default
// pointer when the default entry is closed. Returns false if absent.
func (r *Registry) Close(name string) bool {
	r.mu.Lock()
	rec, ok := r.entries[name]
	if !ok {
		r.mu.Unlock()
		return false
	}
	delete(r.entries, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	if name == DefaultName {
		r.def = nil
	}
	r.mu.Unlock()

	rec.Processor.Shutdown()
	logger.Sugar.Infof("REGISTRY: Processor '%s' closed.", name)
	return true
}

// Shutdown closes every registered processor and clears the default
// pointer. Idempotent.
func (r *Registry) Shutdown() bool {
	for _, name := range r.List() {
		r.Close(name)
	}

	r.mu.Lock()
	r.def = nil
	r.mu.Unlock()

	logger.Sugar.Info("REGISTRY: Shutdown complete.")
	return true
}
