package filesystem

import (
	"fmt"

	"github.com/brettbedarf/treefs"
	"github.com/brettbedarf/treefs/internal/util"
	"github.com/brettbedarf/treefs/pathing"
)

// Read resolves path against root and returns the node it designates.
//
// A missing final component yields a nil node and no error; a missing or
// non-directory intermediate component fails with [treefs.ErrNotADirectory].
// Every node found on the way must be readable unless opts.IgnorePermissions
// is set. Links are followed, except a link at the final component when
// opts.IgnoreLinks is set.
func Read(root *treefs.Root, path string, opts treefs.Options) (treefs.FileNode, error) {
	return newWalker(root, opts).read(path, opts.IgnoreLinks)
}

// ReadLink follows link, and any link it leads to, until a non-link node or
// nil is reached. Revisiting a link fails with [treefs.ErrCircularLink].
func ReadLink(root *treefs.Root, link *treefs.Link, opts treefs.Options) (treefs.FileNode, error) {
	return newWalker(root, opts).resolve(link)
}

// walker carries the state of one resolution. active holds the links whose
// resolution is in progress; meeting one of them again means a cycle.
type walker struct {
	root   *treefs.Root
	opts   treefs.Options
	active map[*treefs.Link]struct{}
}

func newWalker(root *treefs.Root, opts treefs.Options) *walker {
	return &walker{root: root, opts: opts, active: make(map[*treefs.Link]struct{})}
}

func (w *walker) read(path string, ignoreLinks bool) (treefs.FileNode, error) {
	segs, err := pathing.Split(path)
	if err != nil {
		return nil, err
	}
	canon, err := pathing.Canonicalize(w.root.Pwd(), segs)
	if err != nil {
		return nil, err
	}

	var cur treefs.FileNode = w.root.Dir()
	for i, name := range canon {
		dir, ok := cur.(*treefs.Directory)
		if !ok || dir == nil {
			return nil, fmt.Errorf("%w: %s", treefs.ErrNotADirectory, pathing.Join(canon[:i]))
		}
		child, found := dir.Entry(name)
		if !found {
			cur = nil
			continue
		}
		if !w.opts.IgnorePermissions && !child.Attributes().CanRead(w.opts.User) {
			return nil, &treefs.PermissionError{Op: treefs.OpRead, Path: pathing.Join(canon[:i+1])}
		}
		if link, isLink := child.(*treefs.Link); isLink && !(ignoreLinks && i == len(canon)-1) {
			if child, err = w.resolve(link); err != nil {
				return nil, err
			}
		}
		cur = child
	}
	return cur, nil
}

func (w *walker) resolve(link *treefs.Link) (treefs.FileNode, error) {
	logger := util.GetLogger("FS.ReadLink")

	var chain []*treefs.Link
	defer func() {
		for _, l := range chain {
			delete(w.active, l)
		}
	}()

	var cur treefs.FileNode = link
	for {
		l, ok := cur.(*treefs.Link)
		if !ok {
			return cur, nil
		}
		if _, seen := w.active[l]; seen {
			logger.Debug().Str("target", l.Target()).Msg("Link cycle detected")
			return nil, fmt.Errorf("%w: %s", treefs.ErrCircularLink, l.Target())
		}
		w.active[l] = struct{}{}
		chain = append(chain, l)

		next, err := w.read(l.Target(), true)
		if err != nil {
			return nil, err
		}
		cur = next
	}
}
