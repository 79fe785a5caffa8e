package playwait

import (
	"errors"
	"fmt"
	"sync"
)

// ExtensionName is the name Helpers is registered under in the default
// registry.
const ExtensionName = "mediaPlaybackTestHelpers"

// Version is the adapter version.
const Version = "0.1.0"

// ErrUnknownExtension is returned by Registry.Get for unregistered names.
var ErrUnknownExtension = errors.New("playwait: unknown extension")

// Extension is a per-player add-on created by a registered Factory.
type Extension interface {
	Dispose()
}

// Factory instantiates an extension for one player.
type Factory func(p Player, opts Options) Extension

// Registry maps extension names to factories and keeps one instance per
// player and name. Players are used as map keys and must be comparable,
// which pointer implementations are.
type Registry struct {
	mu        sync.Mutex
	factories map[string]Factory
	instances map[Player]map[string]Extension
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
		instances: make(map[Player]map[string]Extension),
	}
}

// Register adds a factory. Registering a name twice is an error.
func (r *Registry) Register(name string, factory Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("playwait: extension %q already registered", name)
	}
	r.factories[name] = factory
	return nil
}

// Get returns the extension called name for p, creating it with opts on
// first use. Later calls return the same instance and ignore opts.
func (r *Registry) Get(p Player, name string, opts Options) (Extension, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if ext, ok := r.instances[p][name]; ok {
		return ext, nil
	}

	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownExtension, name)
	}

	ext := factory(p, opts)
	if r.instances[p] == nil {
		r.instances[p] = make(map[string]Extension)
	}
	r.instances[p][name] = ext
	return ext, nil
}

// Release disposes every extension created for p.
func (r *Registry) Release(p Player) {
	r.mu.Lock()
	exts := r.instances[p]
	delete(r.instances, p)
	r.mu.Unlock()

	for _, ext := range exts {
		ext.Dispose()
	}
}

var defaultRegistry = func() *Registry {
	r := NewRegistry()
	_ = r.Register(ExtensionName, func(p Player, opts Options) Extension {
		return New(p, opts)
	})
	return r
}()

// DefaultRegistry returns the process-wide registry holding Helpers under
// ExtensionName.
func DefaultRegistry() *Registry {
	return defaultRegistry
}

// Attach returns the Helpers instance for p from the default registry,
// creating it on first use.
func Attach(p Player, opts Options) *Helpers {
	ext, _ := defaultRegistry.Get(p, ExtensionName, opts)
	return ext.(*Helpers)
}

// Detach disposes every extension attached to p in the default registry.
func Detach(p Player) {
	defaultRegistry.Release(p)
}
