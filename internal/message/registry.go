package message

import (
	"fmt"
	"sort"
)

// Factory returns a new zero value of one payload variant.
type Factory func() Payload

// Registry maps wire tags to payload variants. Each workload builds its own
// registry because some tags (read_ok, add, gossip) have workload-specific
// shapes.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry creates a registry holding the handshake and gossip plumbing
// variants plus the given factories.
func NewRegistry(factories ...Factory) *Registry {
	r := &Registry{factories: make(map[string]Factory)}
	r.Register(
		func() Payload { return new(Init) },
		func() Payload { return new(InitOk) },
		func() Payload { return new(GossipDue) },
		func() Payload { return new(GossipOk) },
	)
	r.Register(factories...)
	return r
}

// Register adds factories to the registry. Registering two variants under
// the same tag is a programming error and panics.
func (r *Registry) Register(factories ...Factory) {
	for _, f := range factories {
		tag := f().Type()
		if _, exists := r.factories[tag]; exists {
			panic(fmt.Sprintf("message: duplicate registration for type %q", tag))
		}
		r.factories[tag] = f
	}
}

// New returns a fresh payload for tag.
func (r *Registry) New(tag string) (Payload, bool) {
	f, ok := r.factories[tag]
	if !ok {
		return nil, false
	}
	return f(), true
}

// Types returns every registered tag, sorted.
func (r *Registry) Types() []string {
	tags := make([]string, 0, len(r.factories))
	for tag := range r.factories {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}
