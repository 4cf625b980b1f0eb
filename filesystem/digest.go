package filesystem

import (
	"encoding/binary"
	"fmt"

	"github.com/brettbedarf/treefs"
	"github.com/zeebo/blake3"
)

// Digest returns a blake3 Merkle digest of the subtree rooted at n. It covers
// structure, names, file contents, link targets and device payload types, but
// not attributes. Two trees with equal digests hold the same data.
func Digest(n treefs.FileNode) []byte {
	h := blake3.New()
	if treefs.IsNil(n) {
		return h.Sum(nil)
	}

	switch v := n.(type) {
	case *treefs.Directory:
		writeField(h, treefs.KindDirectory, nil)
		for _, name := range v.Names() {
			child, _ := v.Entry(name)
			writeField(h, treefs.KindDirectory, []byte(name))
			_, _ = h.Write(Digest(child))
		}
	case *treefs.File:
		writeField(h, treefs.KindFile, []byte(v.Contents()))
	case *treefs.Link:
		writeField(h, treefs.KindLink, []byte(v.Target()))
	case treefs.DeviceNode:
		writeField(h, treefs.KindDevice, []byte(fmt.Sprintf("%T", v.Payload())))
	case *treefs.Root:
		return Digest(v.Dir())
	}
	return h.Sum(nil)
}

// writeField writes a kind tag and a length-prefixed value so adjacent
// fields cannot be confused.
func writeField(h *blake3.Hasher, kind treefs.Kind, value []byte) {
	var hdr [9]byte
	hdr[0] = byte(kind)
	binary.BigEndian.PutUint64(hdr[1:], uint64(len(value)))
	_, _ = h.Write(hdr[:])
	_, _ = h.Write(value)
}
