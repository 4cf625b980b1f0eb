package filesystem

import (
	"fmt"

	"github.com/brettbedarf/treefs"
	"github.com/brettbedarf/treefs/pathing"
)

// Write installs n at path, replacing any existing entry. A nil n removes the
// entry instead.
//
// The parent must resolve to a directory ([treefs.ErrNotADirectory]
// otherwise). A frozen parent rejects the write, as does an existing entry
// whose write flag denies opts.User, both with a write
// [treefs.PermissionError].
func Write(root *treefs.Root, path string, n treefs.FileNode, opts treefs.Options) error {
	if n != nil && treefs.IsNil(n) {
		return fmt.Errorf("%w: nil %T", treefs.ErrInvalidNode, n)
	}
	if _, isRoot := n.(*treefs.Root); isRoot {
		return fmt.Errorf("%w: a root cannot be stored in a directory", treefs.ErrInvalidNode)
	}

	slot, err := prepareWrite(root, path, opts)
	if err != nil {
		return err
	}
	return slot.set(n)
}

// writeSlot is a directory entry that has passed every write check.
type writeSlot struct {
	dir  *treefs.Directory
	name string
	path string
}

func (s writeSlot) set(n treefs.FileNode) error {
	if n == nil {
		return s.dir.Remove(s.name)
	}
	return s.dir.Put(s.name, n)
}

func prepareWrite(root *treefs.Root, path string, opts treefs.Options) (writeSlot, error) {
	segs, err := pathing.Split(path)
	if err != nil {
		return writeSlot{}, err
	}
	canon, err := pathing.Canonicalize(root.Pwd(), segs)
	if err != nil {
		return writeSlot{}, err
	}
	parentSegs, name := pathing.ParentAndName(canon)
	if name == "" {
		return writeSlot{}, fmt.Errorf("%w: cannot replace the root directory", treefs.ErrInvalidPath)
	}
	target := pathing.Join(canon)

	parentOpts := opts
	parentOpts.IgnoreLinks = false
	parent, err := Read(root, pathing.Join(parentSegs), parentOpts)
	if err != nil {
		return writeSlot{}, err
	}
	dir, ok := parent.(*treefs.Directory)
	if !ok || dir == nil {
		return writeSlot{}, fmt.Errorf("%w: %s", treefs.ErrNotADirectory, pathing.Join(parentSegs))
	}
	if dir.Frozen() {
		return writeSlot{}, &treefs.PermissionError{Op: treefs.OpWrite, Path: target, Err: treefs.ErrFrozen}
	}
	if existing, found := dir.Entry(name); found && !opts.IgnorePermissions && !existing.Attributes().CanWrite(opts.User) {
		return writeSlot{}, &treefs.PermissionError{Op: treefs.OpWrite, Path: target}
	}
	return writeSlot{dir: dir, name: name, path: target}, nil
}

// MkdirAll creates every missing directory along path and returns how many
// it created. Links along the way are followed; a non-directory in the way
// fails with [treefs.ErrNotADirectory].
func MkdirAll(root *treefs.Root, path string, opts treefs.Options) (int, error) {
	segs, err := pathing.Split(path)
	if err != nil {
		return 0, err
	}
	canon, err := pathing.Canonicalize(root.Pwd(), segs)
	if err != nil {
		return 0, err
	}

	opts.IgnoreLinks = false
	created := 0
	for i := range canon {
		p := pathing.Join(canon[:i+1])
		n, err := Read(root, p, opts)
		if err != nil {
			return created, err
		}
		switch n.(type) {
		case nil:
			if err := Write(root, p, treefs.NewDirectory(nil, nil, false), opts); err != nil {
				return created, err
			}
			created++
		case *treefs.Directory:
		default:
			return created, fmt.Errorf("%w: %s", treefs.ErrNotADirectory, p)
		}
	}
	return created, nil
}
