// Package devices provides the device kinds that node definitions can
// instantiate by name, and the registry that maps kind names to providers.
package devices

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/brettbedarf/treefs"
)

// Provider builds a device node from its definition config. The returned
// device carries no attributes; callers attach them with
// [treefs.DeviceNode.WithAttributes].
type Provider interface {
	NewDevice(cfg map[string]any) (treefs.DeviceNode, error)
}

// ProviderFunc adapts a function to [Provider].
type ProviderFunc func(cfg map[string]any) (treefs.DeviceNode, error)

func (f ProviderFunc) NewDevice(cfg map[string]any) (treefs.DeviceNode, error) {
	return f(cfg)
}

// Reader is implemented by payloads whose bytes can be served to readers,
// e.g. through a mount.
type Reader interface {
	ReadAt(ctx context.Context, p []byte, off int64) (int, error)
	Size(ctx context.Context) (int64, error)
}

// decodeConfig converts a generic definition config into out by way of its
// JSON form, so device configs use the same field tags as everything else.
func decodeConfig(cfg map[string]any, out any) error {
	if len(cfg) == 0 {
		return nil
	}
	raw, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("invalid device config: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("invalid device config: %w", err)
	}
	return nil
}
