package metrics

import (
	"maps"
	"sync"
	"sync/atomic"
)

// Switch holds the Registry an instrumented component records into and
// whether recording is on. It is safe for concurrent use: readers take one
// snapshot per operation with Active while Enable and Disable run.
type Switch struct {
	mu       sync.Mutex // serialises Enable
	enabled  atomic.Bool
	registry atomic.Pointer[Registry]
	source   Config
}

// NewSwitch returns an enabled Switch recording into the registerer named
// by cfg, or into DefaultRegistry when cfg.Registry is nil.
// It panics if registration fails, like NewRegistryWithConfig.
func NewSwitch(cfg Config) *Switch {
	s := &Switch{}
	if cfg.Registry == nil {
		s.registry.Store(DefaultRegistry)
		s.source = Config{Registry: DefaultConfig().Registry}
	} else {
		s.registry.Store(NewRegistryWithConfig(cfg))
		s.source = cfg
	}
	s.enabled.Store(true)
	return s
}

// Active returns the registry to record into, or nil while disabled.
func (s *Switch) Active() *Registry {
	if !s.enabled.Load() {
		return nil
	}
	return s.registry.Load()
}

// Registry returns the current registry whether or not recording is on.
func (s *Switch) Registry() *Registry {
	return s.registry.Load()
}

// Enable applies cfg. A nil cfg.Registry, or the registerer, namespace and
// labels already in use, keeps the current registry. Anything else
// registers a fresh set of collectors; if that fails the Switch is left
// unchanged and the error is returned.
func (s *Switch) Enable(cfg Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !cfg.Enabled {
		s.enabled.Store(false)
		return nil
	}

	if cfg.Registry != nil && !s.sameSource(cfg) {
		r, err := NewRegistrySafe(cfg)
		if err != nil {
			return err
		}
		s.registry.Store(r)
		s.source = cfg
	}

	s.enabled.Store(true)
	return nil
}

// Disable stops recording. The registry is kept for a later Enable.
func (s *Switch) Disable() {
	s.enabled.Store(false)
}

// Enabled reports whether recording is on.
func (s *Switch) Enabled() bool {
	return s.enabled.Load()
}

func (s *Switch) sameSource(cfg Config) bool {
	ns, cur := cfg.Namespace, s.source.Namespace
	if ns == "" {
		ns = DefaultNamespace
	}
	if cur == "" {
		cur = DefaultNamespace
	}
	return cfg.Registry == s.source.Registry && ns == cur && maps.Equal(cfg.Labels, s.source.Labels)
}
