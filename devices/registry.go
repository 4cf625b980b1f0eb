package devices

import (
	"fmt"

	"github.com/brettbedarf/treefs"
	"github.com/puzpuzpuz/xsync/v4"
)

// Registry maps device kind names to providers. It is safe for concurrent
// use.
type Registry struct {
	providers *xsync.Map[string, Provider]
}

func NewRegistry() *Registry {
	return &Registry{providers: xsync.NewMap[string, Provider]()}
}

// NewDefaultRegistry returns a registry holding every built-in kind.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.RegisterBuiltins()
	return r
}

// Register ties a provider to a kind name. The first registration of a kind
// wins; later ones are ignored.
func (r *Registry) Register(kind string, p Provider) {
	r.providers.LoadOrStore(kind, p)
}

// GetProvider returns the provider registered for kind.
func (r *Registry) GetProvider(kind string) (Provider, error) {
	p, ok := r.providers.Load(kind)
	if !ok {
		return nil, fmt.Errorf("no device provider for %q", kind)
	}
	return p, nil
}

// NewDevice builds a device of the given kind from cfg.
func (r *Registry) NewDevice(kind string, cfg map[string]any) (treefs.DeviceNode, error) {
	p, err := r.GetProvider(kind)
	if err != nil {
		return nil, err
	}
	return p.NewDevice(cfg)
}
