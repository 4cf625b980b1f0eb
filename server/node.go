package server

import (
	"context"
	"errors"
	"io"
	"syscall"

	"github.com/brettbedarf/treefs"
	"github.com/brettbedarf/treefs/devices"
	"github.com/brettbedarf/treefs/filesystem"
	"github.com/brettbedarf/treefs/internal/util"
	"github.com/brettbedarf/treefs/pathing"
	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
)

// treeNode is the kernel's view of one canonical path. The node it shows is
// looked up again on every call, so replacements in the tree are picked up.
type treeNode struct {
	fs.Inode
	fsys *filesystem.FileSystem
	path []string // canonical segments; the root is empty
}

var (
	_ = (fs.NodeLookuper)((*treeNode)(nil))
	_ = (fs.NodeReaddirer)((*treeNode)(nil))
	_ = (fs.NodeGetattrer)((*treeNode)(nil))
	_ = (fs.NodeOpener)((*treeNode)(nil))
	_ = (fs.NodeReader)((*treeNode)(nil))
	_ = (fs.NodeReadlinker)((*treeNode)(nil))
)

func newRoot(fsys *filesystem.FileSystem) *treeNode {
	return &treeNode{fsys: fsys}
}

func (n *treeNode) child(name string) []string {
	p := make([]string, len(n.path), len(n.path)+1)
	copy(p, n.path)
	return append(p, name)
}

// stat returns the node at path without following a final link.
func (n *treeNode) stat(path []string) (treefs.FileNode, syscall.Errno) {
	node, err := filesystem.Read(n.fsys.Root(), pathing.Join(path), n.fsys.Options(true))
	if err != nil {
		return nil, toErrno(err)
	}
	if node == nil {
		return nil, syscall.ENOENT
	}
	return node, fs.OK
}

// Lookup implements fs.NodeLookuper.
func (n *treeNode) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	logger := util.GetLogger("Fuse.Lookup")

	path := n.child(name)
	node, errno := n.stat(path)
	if errno != fs.OK {
		logger.Trace().Str("path", pathing.Join(path)).Str("errno", errno.Error()).Msg("Lookup failed")
		return nil, errno
	}
	fillAttr(ctx, node, n.fsys.Options(true).User, &out.Attr)

	child := &treeNode{fsys: n.fsys, path: path}
	return n.NewInode(ctx, child, fs.StableAttr{Mode: modeType(node)}), fs.OK
}

// Readdir implements fs.NodeReaddirer.
func (n *treeNode) Readdir(ctx context.Context) (fs.DirStream, syscall.Errno) {
	node, errno := n.stat(n.path)
	if errno != fs.OK {
		return nil, errno
	}
	dir, ok := node.(*treefs.Directory)
	if !ok {
		return nil, syscall.ENOTDIR
	}

	names := dir.Names()
	entries := make([]fuse.DirEntry, 0, len(names))
	for _, name := range names {
		child, found := dir.Entry(name)
		if !found {
			continue
		}
		entries = append(entries, fuse.DirEntry{Name: name, Mode: modeType(child)})
	}
	return fs.NewListDirStream(entries), fs.OK
}

// Getattr implements fs.NodeGetattrer.
func (n *treeNode) Getattr(ctx context.Context, fh fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	node, errno := n.stat(n.path)
	if errno != fs.OK {
		return errno
	}
	fillAttr(ctx, node, n.fsys.Options(true).User, &out.Attr)
	return fs.OK
}

// Open implements fs.NodeOpener. Only read access is granted.
func (n *treeNode) Open(ctx context.Context, flags uint32) (fs.FileHandle, uint32, syscall.Errno) {
	if flags&(syscall.O_WRONLY|syscall.O_RDWR|syscall.O_TRUNC|syscall.O_APPEND) != 0 {
		return nil, 0, syscall.EROFS
	}
	node, errno := n.stat(n.path)
	if errno != fs.OK {
		return nil, 0, errno
	}
	switch node.(type) {
	case *treefs.File:
		return nil, fuse.FOPEN_KEEP_CACHE, fs.OK
	case treefs.DeviceNode:
		return nil, fuse.FOPEN_DIRECT_IO, fs.OK
	case *treefs.Directory:
		return nil, 0, syscall.EISDIR
	default:
		return nil, 0, syscall.EINVAL
	}
}

// Read implements fs.NodeReader.
func (n *treeNode) Read(ctx context.Context, fh fs.FileHandle, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	logger := util.GetLogger("Fuse.Read")

	node, errno := n.stat(n.path)
	if errno != fs.OK {
		return nil, errno
	}
	switch v := node.(type) {
	case *treefs.File:
		return fuse.ReadResultData(sliceAt(v.Contents(), dest, off)), fs.OK
	case treefs.DeviceNode:
		r, ok := v.Payload().(devices.Reader)
		if !ok {
			return fuse.ReadResultData(nil), fs.OK
		}
		read, err := r.ReadAt(ctx, dest, off)
		if err != nil && read == 0 && !errors.Is(err, io.EOF) {
			logger.Debug().Err(err).Str("path", pathing.Join(n.path)).Msg("Device read failed")
			return nil, syscall.EIO
		}
		return fuse.ReadResultData(dest[:read]), fs.OK
	case *treefs.Directory:
		return nil, syscall.EISDIR
	default:
		return nil, syscall.EINVAL
	}
}

// Readlink implements fs.NodeReadlinker. Targets are rewritten relative to
// the link so they stay inside the mount.
func (n *treeNode) Readlink(ctx context.Context) ([]byte, syscall.Errno) {
	node, errno := n.stat(n.path)
	if errno != fs.OK {
		return nil, errno
	}
	link, ok := node.(*treefs.Link)
	if !ok {
		return nil, syscall.EINVAL
	}
	target, err := relTarget(n.path, link.Target())
	if err != nil {
		return nil, toErrno(err)
	}
	return []byte(target), fs.OK
}
