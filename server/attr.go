package server

import (
	"context"
	"errors"
	"math"
	"strings"
	"syscall"

	"github.com/brettbedarf/treefs"
	"github.com/brettbedarf/treefs/devices"
	"github.com/brettbedarf/treefs/pathing"
	"github.com/hanwen/go-fuse/v2/fuse"
)

const (
	blockSize = 4096
	// overflowUID stands in for owners that do not fit a uid, as the kernel
	// does for unmapped ids.
	overflowUID = 65534
)

// toErrno maps tree errors onto the errno the kernel expects.
func toErrno(err error) syscall.Errno {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, treefs.ErrPermissionDenied):
		return syscall.EACCES
	case errors.Is(err, treefs.ErrNoSuchFile):
		return syscall.ENOENT
	case errors.Is(err, treefs.ErrNotADirectory):
		return syscall.ENOTDIR
	case errors.Is(err, treefs.ErrIsADirectory):
		return syscall.EISDIR
	case errors.Is(err, treefs.ErrCircularLink):
		return syscall.ELOOP
	case errors.Is(err, treefs.ErrInvalidPath):
		return syscall.EINVAL
	default:
		return syscall.EIO
	}
}

// modeType returns the file type bits for n. Devices whose payload can be
// read are shown as regular files, since the kernel never routes reads of
// character devices to the mount; all other devices are character devices.
func modeType(n treefs.FileNode) uint32 {
	switch v := n.(type) {
	case *treefs.Directory, *treefs.Root:
		return syscall.S_IFDIR
	case *treefs.Link:
		return syscall.S_IFLNK
	case treefs.DeviceNode:
		if _, ok := v.Payload().(devices.Reader); ok {
			return syscall.S_IFREG
		}
		return syscall.S_IFCHR
	default:
		return syscall.S_IFREG
	}
}

// permBits derives rwx bits for user, group and other from the node flags as
// seen by user. Readable directories are also searchable; frozen ones never
// show write bits.
func permBits(n treefs.FileNode, user treefs.Owner) uint32 {
	if _, isLink := n.(*treefs.Link); isLink {
		return 0o777
	}

	attrs := n.Attributes()
	var bits uint32
	if attrs.CanRead(user) {
		bits |= 0o444
	}
	if attrs.CanWrite(user) {
		bits |= 0o222
	}
	if dir, isDir := n.(*treefs.Directory); isDir {
		if bits&0o444 != 0 {
			bits |= 0o111
		}
		if dir.Frozen() {
			bits &^= 0o222
		}
	}
	return bits
}

func nodeSize(ctx context.Context, n treefs.FileNode) uint64 {
	switch v := n.(type) {
	case *treefs.File:
		return uint64(v.Size())
	case *treefs.Link:
		return uint64(len(v.Target()))
	case *treefs.Directory:
		return uint64(v.Len())
	case treefs.DeviceNode:
		if r, ok := v.Payload().(devices.Reader); ok {
			if size, err := r.Size(ctx); err == nil && size > 0 {
				return uint64(size)
			}
		}
	}
	return 0
}

func fillAttr(ctx context.Context, n treefs.FileNode, user treefs.Owner, out *fuse.Attr) {
	out.Mode = modeType(n) | permBits(n, user)
	out.Size = nodeSize(ctx, n)
	out.Blksize = blockSize
	out.Blocks = (out.Size + 511) / 512
	out.Nlink = 1
	if attrs := n.Attributes(); attrs != nil && attrs.Permissions != nil {
		out.Uid = ownerUID(attrs.Permissions.Owner)
	}
}

// ownerUID maps an owner to a uid. The system owner is uid 0.
func ownerUID(o treefs.Owner) uint32 {
	switch {
	case o < 0:
		return 0
	case o > math.MaxUint32:
		return overflowUID
	}
	return uint32(o)
}

// sliceAt copies the part of s starting at off into dest.
func sliceAt(s string, dest []byte, off int64) []byte {
	if off < 0 || off >= int64(len(s)) {
		return nil
	}
	n := copy(dest, s[off:])
	return dest[:n]
}

// relTarget rewrites the absolute target of the link at linkPath as a path
// relative to the link's directory.
func relTarget(linkPath []string, target string) (string, error) {
	toSegs, err := pathing.Split(target)
	if err != nil {
		return "", err
	}
	toSegs, err = pathing.Canonicalize(pathing.Separator, toSegs)
	if err != nil {
		return "", err
	}
	from, _ := pathing.ParentAndName(linkPath)

	common := 0
	for common < len(from) && common < len(toSegs) && from[common] == toSegs[common] {
		common++
	}
	parts := make([]string, 0, len(from)-common+len(toSegs)-common)
	for range from[common:] {
		parts = append(parts, "..")
	}
	parts = append(parts, toSegs[common:]...)
	if len(parts) == 0 {
		return ".", nil
	}
	return strings.Join(parts, pathing.Separator), nil
}
