package internal

import "fmt"

const (
	// MaxListenAddresses is the default capacity of a Registry.
	MaxListenAddresses = 16

	// MaxListenSockets limits the resolved entries, addresses times ports.
	MaxListenSockets = 64
)

// Registry holds the declared listen address names in declaration order.
type Registry struct {
	names []string
	max   int
}

// NewRegistry for up to max addresses; max <= 0 uses MaxListenAddresses.
func NewRegistry(max int) *Registry {
	if max <= 0 {
		max = MaxListenAddresses
	}
	return &Registry{max: max}
}

// Declare a listen address name, to be parsed later by SplitListenAddress.
func (r *Registry) Declare(name string) error {
	if len(r.names) >= r.max {
		return fmt.Errorf("%w (max: %d)", ErrCapacity, r.max)
	}

	r.names = append(r.names, name)
	return nil
}

// Len of the declared names.
func (r *Registry) Len() int {
	return len(r.names)
}

// Names returns a copy of the declared names.
func (r *Registry) Names() []string {
	return append([]string(nil), r.names...)
}
