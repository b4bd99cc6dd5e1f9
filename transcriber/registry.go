package transcriber

import (
	"fmt"
	"sort"
	"sync"

	"memoscribe/audio"
)

// Factory builds an engine from options.
type Factory func(opts Options) (Engine, error)

// Registry maps engine names to factories. Host applications register their
// neural and dictation engines next to the built-in fake and sidecar.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns a registry with the built-in engines registered.
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[string]Factory)}
	r.Register("fake", func(opts Options) (Engine, error) {
		f := NewFake(opts.FakeText, nil)
		if opts.Format != (audio.Format{}) {
			f.Format = opts.Format
		}
		return f, nil
	})
	r.Register(SidecarName, func(opts Options) (Engine, error) {
		return NewSidecar(SidecarConfig{
			URL:      opts.SidecarURL,
			Model:    opts.SidecarModel,
			Language: opts.Language,
			Timeout:  opts.SidecarTimeout,
			Format:   opts.Format,
		}), nil
	})
	return r
}

func (r *Registry) Register(name string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

// New builds the named engine.
func (r *Registry) New(name string, opts Options) (Engine, error) {
	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown engine %q (available: %v)", name, r.List())
	}
	e, err := factory(opts)
	if err != nil {
		return nil, fmt.Errorf("creating %s engine: %w", name, err)
	}
	return e, nil
}

// List returns the registered engine names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var defaultRegistry = NewRegistry()

// Register adds a factory to the default registry.
func Register(name string, f Factory) { defaultRegistry.Register(name, f) }

// New builds the named engine from the default registry.
func New(name string, opts Options) (Engine, error) { return defaultRegistry.New(name, opts) }

// Engines lists the default registry.
func Engines() []string { return defaultRegistry.List() }
