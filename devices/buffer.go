package devices

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/brettbedarf/treefs"
)

// BufferConfig configures a [Buffer] device.
type BufferConfig struct {
	Contents string `json:"contents,omitempty"`
	// Size pads the buffer with zero bytes up to this length.
	Size int `json:"size,omitempty"`
}

// Buffer is a fixed-length in-memory byte buffer. Writes never grow it.
type Buffer struct {
	mu   sync.RWMutex
	data []byte
}

func NewBuffer(cfg BufferConfig) (*Buffer, error) {
	if cfg.Size < 0 {
		return nil, fmt.Errorf("invalid buffer size %d", cfg.Size)
	}
	data := []byte(cfg.Contents)
	if pad := cfg.Size - len(data); pad > 0 {
		data = append(data, make([]byte, pad)...)
	}
	return &Buffer{data: data}, nil
}

func newBuffer(cfg map[string]any) (treefs.DeviceNode, error) {
	var bc BufferConfig
	if err := decodeConfig(cfg, &bc); err != nil {
		return nil, err
	}
	b, err := NewBuffer(bc)
	if err != nil {
		return nil, err
	}
	return treefs.NewDevice(b, nil), nil
}

func (b *Buffer) ReadAt(_ context.Context, p []byte, off int64) (int, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if off < 0 {
		return 0, fmt.Errorf("negative offset %d", off)
	}
	if off >= int64(len(b.data)) {
		return 0, io.EOF
	}
	n := copy(p, b.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// WriteAt overwrites bytes in place. Bytes past the end are dropped and
// reported with [io.ErrShortWrite].
func (b *Buffer) WriteAt(p []byte, off int64) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if off < 0 || off > int64(len(b.data)) {
		return 0, fmt.Errorf("offset %d out of range", off)
	}
	n := copy(b.data[off:], p)
	if n < len(p) {
		return n, io.ErrShortWrite
	}
	return n, nil
}

func (b *Buffer) Size(context.Context) (int64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return int64(len(b.data)), nil
}

// Bytes returns a copy of the buffer contents.
func (b *Buffer) Bytes() []byte {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]byte(nil), b.data...)
}

var _ Reader = (*Buffer)(nil)
