package devices

import (
	"context"
	"io"

	"github.com/brettbedarf/treefs"
)

// Null reads as empty and accepts no config.
type Null struct{}

func newNull(map[string]any) (treefs.DeviceNode, error) {
	return treefs.NewDevice(Null{}, nil), nil
}

func (Null) ReadAt(context.Context, []byte, int64) (int, error) { return 0, io.EOF }

func (Null) Size(context.Context) (int64, error) { return 0, nil }

var _ Reader = Null{}
