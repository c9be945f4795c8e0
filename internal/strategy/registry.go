package strategy

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	// ErrUnknownStrategy is returned when a strategy id is not registered.
	ErrUnknownStrategy = errors.New("unknown strategy")
	// ErrDuplicateStrategy is returned when an id is registered twice.
	ErrDuplicateStrategy = errors.New("duplicate strategy")
)

// Factory builds a fresh strategy instance.
type Factory func() Strategy

// Descriptor describes a registered strategy.
type Descriptor struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	// Mode is the slot the strategy is designed for.
	Mode Mode    `json:"mode"`
	New  Factory `json:"-"`
}

// Registry maps strategy ids to factories.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Descriptor
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]Descriptor)}
}

// DefaultRegistry contains the pair installed on every robot unless
// configured otherwise.
func DefaultRegistry() *Registry {
	reg := NewRegistry()
	reg.MustRegister(Descriptor{
		ID:   BasicScoringID,
		Name: "Basic Scoring",
		Mode: ModeScoring,
		New:  func() Strategy { return NewBasicScoring() },
	})
	reg.MustRegister(Descriptor{
		ID:   BasicCollectorNoShootID,
		Name: "Basic Collector (No Shoot)",
		Mode: ModeCollecting,
		New:  func() Strategy { return NewBasicCollectorNoShoot() },
	})
	return reg
}

// DefaultFor returns the default strategy id for mode.
func DefaultFor(mode Mode) string {
	if mode == ModeScoring {
		return BasicScoringID
	}
	return BasicCollectorNoShootID
}

// Register adds d. The id must be non-empty and unused.
func (r *Registry) Register(d Descriptor) error {
	if d.ID == "" || d.New == nil {
		return fmt.Errorf("register strategy %q: missing id or factory", d.ID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[d.ID]; exists {
		return fmt.Errorf("register strategy %q: %w", d.ID, ErrDuplicateStrategy)
	}
	r.entries[d.ID] = d
	return nil
}

// MustRegister is Register for static tables; it panics on error.
func (r *Registry) MustRegister(d Descriptor) {
	if err := r.Register(d); err != nil {
		panic(err)
	}
}

// New instantiates the strategy registered under id.
func (r *Registry) New(id string) (Strategy, error) {
	r.mu.RLock()
	d, ok := r.entries[id]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("strategy %q: %w", id, ErrUnknownStrategy)
	}
	return d.New(), nil
}

// Has reports whether id is registered.
func (r *Registry) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[id]
	return ok
}

// Descriptors lists every registered strategy sorted by id.
func (r *Registry) Descriptors() []Descriptor {
	r.mu.RLock()
	out := make([]Descriptor, 0, len(r.entries))
	for _, d := range r.entries {
		out = append(out, d)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
