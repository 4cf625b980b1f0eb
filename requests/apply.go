package requests

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/brettbedarf/treefs"
	"github.com/brettbedarf/treefs/filesystem"
	"github.com/brettbedarf/treefs/internal/util"
	"github.com/brettbedarf/treefs/pathing"
)

// Apply installs reqs into fsys. Missing parent directories are created,
// existing nodes at a request's path are replaced, and permission flags are
// not checked. Requests are applied parents first; directories marked
// read-only are frozen after everything else, deepest first, so their
// contents can still be filled in.
//
// Apply stops at the first failure; requests applied before it stay applied.
func Apply(fsys *filesystem.FileSystem, reqs []*NodeRequest) error {
	logger := util.GetLogger("Requests.Apply")

	type resolved struct {
		req   *NodeRequest
		path  string
		depth int
	}
	pending := make([]resolved, 0, len(reqs))
	for _, req := range reqs {
		segs, err := pathing.Split(req.Path)
		if err != nil {
			return err
		}
		canon, err := pathing.Canonicalize(fsys.Pwd(), segs)
		if err != nil {
			return err
		}
		pending = append(pending, resolved{req: req, path: pathing.Join(canon), depth: len(canon)})
	}
	slices.SortStableFunc(pending, func(a, b resolved) int {
		return cmp.Compare(a.depth, b.depth)
	})

	opts := fsys.Options(false)
	opts.IgnorePermissions = true

	var freeze []resolved
	for _, p := range pending {
		node := p.req.Node
		if link, ok := node.(*treefs.Link); ok {
			target, err := fsys.Resolve(link.Target())
			if err != nil {
				return fmt.Errorf("%s: %w", p.path, err)
			}
			node = treefs.NewLink(target, link.Attributes())
		}

		if _, err := filesystem.MkdirAll(fsys.Root(), parentOf(p.path), opts); err != nil {
			return fmt.Errorf("%s: %w", p.path, err)
		}
		if err := filesystem.Write(fsys.Root(), p.path, node, opts); err != nil {
			return fmt.Errorf("%s: %w", p.path, err)
		}
		logger.Debug().Str("path", p.path).Str("type", p.req.Type).Str("uuid", p.req.UUID).Msg("Applied node request")

		if p.req.ReadOnly {
			freeze = append(freeze, p)
		}
	}

	slices.SortStableFunc(freeze, func(a, b resolved) int {
		return cmp.Compare(b.depth, a.depth)
	})
	for _, p := range freeze {
		n, err := filesystem.Read(fsys.Root(), p.path, opts)
		if err != nil {
			return fmt.Errorf("%s: %w", p.path, err)
		}
		dir, ok := n.(*treefs.Directory)
		if !ok {
			return fmt.Errorf("%w: %s", treefs.ErrNotADirectory, p.path)
		}
		if err := filesystem.Write(fsys.Root(), p.path, treefs.Freeze(dir), opts); err != nil {
			return fmt.Errorf("%s: %w", p.path, err)
		}
		logger.Debug().Str("path", p.path).Msg("Froze directory")
	}

	logger.Info().Int("nodes", len(pending)).Int("frozen", len(freeze)).Msg("Applied node requests")
	return nil
}

func parentOf(path string) string {
	segs, _ := pathing.Split(path)
	canon, _ := pathing.Canonicalize(pathing.Separator, segs)
	parent, _ := pathing.ParentAndName(canon)
	return pathing.Join(parent)
}
