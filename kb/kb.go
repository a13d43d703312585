package kb

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/signalsfoundry/regionbench/model"
)

var (
	ErrRegionTypeExists   = errors.New("region type already registered")
	ErrRegionTypeNotFound = errors.New("region type not registered")
	ErrRegionTypeInvalid  = errors.New("invalid region type")
)

// EventType indicates what kind of change happened in the registry.
type EventType int

const (
	EventRegionTypeRegistered EventType = iota
	EventRegionTypeUnregistered
)

func (t EventType) String() string {
	switch t {
	case EventRegionTypeRegistered:
		return "registered"
	case EventRegionTypeUnregistered:
		return "unregistered"
	default:
		return "unknown"
	}
}

// Event is emitted to subscribers when a region type is added or removed.
type Event struct {
	Type     EventType
	TypeName string
	// Registered is the number of types in the registry after the change.
	Registered int
}

// Registry is an in-memory, thread-safe store of region types keyed by name.
type Registry struct {
	mu sync.RWMutex

	types map[string]model.RegionType

	subs   map[int]func(Event)
	nextID int
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		types: make(map[string]model.RegionType),
		subs:  make(map[int]func(Event)),
	}
}

// Register adds a region type. It returns an error if the name is already
// taken or the type cannot build regions.
func (r *Registry) Register(t model.RegionType) error {
	if t.Name == "" || t.New == nil || t.Read == nil {
		return fmt.Errorf("%w: %q needs a name and both constructors", ErrRegionTypeInvalid, t.Name)
	}

	r.mu.Lock()
	if _, exists := r.types[t.Name]; exists {
		r.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrRegionTypeExists, t.Name)
	}
	r.types[t.Name] = t
	event := Event{Type: EventRegionTypeRegistered, TypeName: t.Name, Registered: len(r.types)}
	subs := r.snapshotSubsLocked()
	r.mu.Unlock()

	notify(subs, event)
	return nil
}

// Unregister removes a region type by name.
func (r *Registry) Unregister(name string) error {
	r.mu.Lock()
	if _, ok := r.types[name]; !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrRegionTypeNotFound, name)
	}
	delete(r.types, name)
	event := Event{Type: EventRegionTypeUnregistered, TypeName: name, Registered: len(r.types)}
	subs := r.snapshotSubsLocked()
	r.mu.Unlock()

	notify(subs, event)
	return nil
}

// Lookup returns the region type registered under name.
func (r *Registry) Lookup(name string) (model.RegionType, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.types[name]
	return t, ok
}

// List returns the registered type names in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.types))
	for name := range r.types {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered types.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.types)
}

// WithRegistered registers t, runs fn, and unregisters t on every exit path,
// including a panic inside fn. When registration fails fn is not called.
func (r *Registry) WithRegistered(t model.RegionType, fn func() error) (err error) {
	if err := r.Register(t); err != nil {
		return err
	}
	defer func() {
		if uerr := r.Unregister(t.Name); uerr != nil {
			err = errors.Join(err, fmt.Errorf("unregister %q: %w", t.Name, uerr))
		}
	}()
	return fn()
}

// Subscribe registers a callback for registry events. It returns an
// unsubscribe function; calling it more than once is a no-op.
func (r *Registry) Subscribe(fn func(Event)) (unsubscribe func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextID
	r.nextID++
	r.subs[id] = fn

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.subs, id)
	}
}

func (r *Registry) snapshotSubsLocked() []func(Event) {
	if len(r.subs) == 0 {
		return nil
	}
	ids := make([]int, 0, len(r.subs))
	for id := range r.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	subs := make([]func(Event), 0, len(ids))
	for _, id := range ids {
		subs = append(subs, r.subs[id])
	}
	return subs
}

// notify runs outside the lock so subscribers may call back into the registry.
func notify(subs []func(Event), event Event) {
	for _, sub := range subs {
		sub(event)
	}
}
