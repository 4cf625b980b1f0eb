package filesystem

import (
	"fmt"
	"slices"

	"github.com/brettbedarf/treefs"
	"github.com/brettbedarf/treefs/config"
	"github.com/brettbedarf/treefs/internal/util"
	"github.com/brettbedarf/treefs/pathing"
)

// FileSystem wraps one [treefs.Root] and exposes path based operations on
// it. The only state it mutates itself is the root's working directory.
//
// FileSystem is not safe for concurrent use; callers serialize access.
type FileSystem struct {
	root *treefs.Root
	opts treefs.Options // acting user and permission mode; links are chosen per call
}

// NewFS creates a FileSystem over source, which may be a *treefs.Root (used
// as is), a *treefs.Directory (wrapped in a fresh Root) or nil (an empty
// root directory, carrying the read-only preset when cfg.ReadOnlyRoot is
// set). A nil cfg uses the defaults.
func NewFS(cfg *config.Config, source treefs.FileNode) (*FileSystem, error) {
	if cfg == nil {
		cfg = config.NewDefaultConfig()
	}

	var root *treefs.Root
	switch src := source.(type) {
	case nil:
		var attrs *treefs.Attributes
		if cfg.ReadOnlyRoot {
			attrs = treefs.ReadOnly()
		}
		root = treefs.NewRoot(treefs.NewDirectory(nil, attrs, false), nil)
	case *treefs.Root:
		root = src
	case *treefs.Directory:
		root = treefs.NewRoot(src, nil)
	default:
		return nil, fmt.Errorf("%w: cannot mount a %s", treefs.ErrInvalidNode, source.Kind())
	}
	if root == nil || root.Dir() == nil {
		return nil, fmt.Errorf("%w: nil root", treefs.ErrInvalidNode)
	}

	return &FileSystem{
		root: root,
		opts: treefs.Options{
			IgnorePermissions: cfg.IgnorePermissions,
			User:              treefs.Owner(cfg.User),
		},
	}, nil
}

// Root returns the wrapped root for use with [Read], [Write] and [ReadLink].
func (fs *FileSystem) Root() *treefs.Root {
	return fs.root
}

// Options returns the options the facade uses for the given link mode.
func (fs *FileSystem) Options(ignoreLinks bool) treefs.Options {
	opts := fs.opts
	opts.IgnoreLinks = ignoreLinks
	return opts
}

func (fs *FileSystem) read(path string, ignoreLinks bool) (treefs.FileNode, error) {
	return Read(fs.root, path, fs.Options(ignoreLinks))
}

func (fs *FileSystem) write(path string, n treefs.FileNode) error {
	return Write(fs.root, path, n, fs.Options(false))
}

// Exists reports whether a node is present at path. Links are not followed,
// so a dangling link exists.
func (fs *FileSystem) Exists(path string) (bool, error) {
	n, err := fs.read(path, true)
	if err != nil {
		return false, err
	}
	return n != nil, nil
}

// Stat returns the node at path without following a link at the final
// component. It returns nil if nothing is there.
func (fs *FileSystem) Stat(path string) (treefs.FileNode, error) {
	return fs.read(path, true)
}

// Resolve returns the canonical absolute form of path without touching the
// tree.
func (fs *FileSystem) Resolve(path string) (string, error) {
	return pathing.Resolve(fs.root.Pwd(), path)
}

// Chdir sets the working directory to the resolved path and returns it. The
// target is not checked: later operations fail if it is not a directory.
func (fs *FileSystem) Chdir(path string) (string, error) {
	logger := util.GetLogger("FS.Chdir")

	pwd, err := fs.root.Chdir(path)
	if err != nil {
		return "", err
	}
	logger.Trace().Str("pwd", pwd).Msg("Changed working directory")
	return pwd, nil
}

// Pwd returns the working directory.
func (fs *FileSystem) Pwd() string {
	return fs.root.Pwd()
}

// ReadFile returns the contents of the file at path, following links.
func (fs *FileSystem) ReadFile(path string) (string, error) {
	n, err := fs.read(path, false)
	if err != nil {
		return "", err
	}
	switch v := n.(type) {
	case nil:
		return "", fmt.Errorf("%w: %s", treefs.ErrNoSuchFile, path)
	case *treefs.Directory:
		return "", fmt.Errorf("%w: %s", treefs.ErrIsADirectory, path)
	case *treefs.File:
		return v.Contents(), nil
	default:
		return "", fmt.Errorf("%w: %s is a %s", treefs.ErrNotAFile, path, n.Kind())
	}
}

// WriteFile creates or replaces the file at path.
func (fs *FileSystem) WriteFile(path string, contents string) error {
	logger := util.GetLogger("FS.WriteFile")

	if err := fs.write(path, treefs.NewFile(contents, nil)); err != nil {
		logger.Debug().Err(err).Str("path", path).Msg("Failed to write file")
		return err
	}
	logger.Debug().Str("path", path).Int("size", len(contents)).Msg("Wrote file")
	return nil
}

// ReadDir returns the entry names of the directory at path in lexical order.
func (fs *FileSystem) ReadDir(path string) ([]string, error) {
	n, err := fs.read(path, false)
	if err != nil {
		return nil, err
	}
	switch v := n.(type) {
	case nil:
		return nil, fmt.Errorf("%w: %s", treefs.ErrNoSuchFile, path)
	case *treefs.File:
		return nil, fmt.Errorf("%w: %s", treefs.ErrIsAFile, path)
	case *treefs.Directory:
		return v.Names(), nil
	default:
		return nil, fmt.Errorf("%w: %s is a %s", treefs.ErrNotADirectory, path, n.Kind())
	}
}

// Mkdir installs an empty, mutable directory at path, replacing whatever
// was there.
func (fs *FileSystem) Mkdir(path string) error {
	logger := util.GetLogger("FS.Mkdir")

	if err := fs.write(path, treefs.NewDirectory(nil, nil, false)); err != nil {
		logger.Debug().Err(err).Str("path", path).Msg("Failed to create directory")
		return err
	}
	logger.Debug().Str("path", path).Msg("Created directory")
	return nil
}

// MkdirAll creates every missing directory along path. Existing directories
// are left untouched; any other node in the way fails with
// [treefs.ErrNotADirectory].
func (fs *FileSystem) MkdirAll(path string) error {
	logger := util.GetLogger("FS.MkdirAll")

	created, err := MkdirAll(fs.root, path, fs.Options(false))
	if err != nil {
		logger.Debug().Err(err).Str("path", path).Msg("Failed to create directories")
		return err
	}
	if created > 0 {
		logger.Debug().Str("path", path).Int("created", created).Msg("Created directories")
	}
	return nil
}

// Mklink creates a link at linkName pointing at the canonical form of
// targetName. The target does not need to exist.
func (fs *FileSystem) Mklink(linkName, targetName string) error {
	logger := util.GetLogger("FS.Mklink")

	target, err := fs.Resolve(targetName)
	if err != nil {
		return err
	}
	if err := fs.write(linkName, treefs.NewLink(target, nil)); err != nil {
		logger.Debug().Err(err).Str("link", linkName).Str("target", target).Msg("Failed to create link")
		return err
	}
	logger.Debug().Str("link", linkName).Str("target", target).Msg("Created link")
	return nil
}

// Copy installs a deep copy of the node at from at to. A link is copied as a
// link.
func (fs *FileSystem) Copy(from, to string) error {
	logger := util.GetLogger("FS.Copy")

	src, err := fs.read(from, true)
	if err != nil {
		return err
	}
	if src == nil {
		return fmt.Errorf("%w: %s", treefs.ErrNoSuchFile, from)
	}
	if err := fs.write(to, Clone(src)); err != nil {
		logger.Debug().Err(err).Str("from", from).Str("to", to).Msg("Failed to copy")
		return err
	}
	logger.Debug().Str("from", from).Str("to", to).Msg("Copied node")
	return nil
}

// Rename moves the node at from to to, replacing any node there. Links are
// moved, not followed. Use [FileSystem.Unlink] to remove without a
// destination.
//
// Both locations are checked before anything changes. Renaming a path onto
// itself is a no-op; moving a directory into its own subtree, by path or
// through a link, fails with [treefs.ErrInvalidPath].
func (fs *FileSystem) Rename(from, to string) error {
	logger := util.GetLogger("FS.Rename")

	fromCanon, err := fs.canonical(from)
	if err != nil {
		return err
	}
	toCanon, err := fs.canonical(to)
	if err != nil {
		return err
	}
	if slices.Equal(fromCanon, toCanon) {
		return nil
	}
	if pathing.IsWithin(fromCanon, toCanon) {
		return fmt.Errorf("%w: cannot move %s into itself", treefs.ErrInvalidPath, pathing.Join(fromCanon))
	}

	src, err := fs.read(from, true)
	if err != nil {
		return err
	}
	if src == nil {
		return fmt.Errorf("%w: %s", treefs.ErrNoSuchFile, from)
	}

	dst, err := prepareWrite(fs.root, pathing.Join(toCanon), fs.Options(false))
	if err != nil {
		return err
	}
	if dir, ok := src.(*treefs.Directory); ok && dir.Contains(dst.dir) {
		return fmt.Errorf("%w: cannot move %s into itself", treefs.ErrInvalidPath, pathing.Join(fromCanon))
	}
	old, err := prepareWrite(fs.root, pathing.Join(fromCanon), fs.Options(false))
	if err != nil {
		return err
	}
	if err := dst.set(src); err != nil {
		return err
	}
	if err := old.set(nil); err != nil {
		return err
	}
	logger.Debug().Str("from", old.path).Str("to", dst.path).Msg("Renamed node")
	return nil
}

// Unlink removes the node at path. Removing a missing entry is not an error.
func (fs *FileSystem) Unlink(path string) error {
	logger := util.GetLogger("FS.Unlink")

	if err := fs.write(path, nil); err != nil {
		logger.Debug().Err(err).Str("path", path).Msg("Failed to remove node")
		return err
	}
	logger.Debug().Str("path", path).Msg("Removed node")
	return nil
}

// MoveMerge moves from to to, merging directories. When both are
// directories every entry of from is merged into the entry of the same name
// in to, recursively, and from is left in place without the moved entries.
// Otherwise it behaves like [FileSystem.Rename]; if from has no trailing
// separator, to has one, and to+base(from) exists, that joined path becomes
// the destination.
//
// Merging a directory into itself is a no-op, and merging it into its own
// subtree fails with [treefs.ErrInvalidPath].
//
// MoveMerge is not atomic: a failure part way through a merge leaves the
// entries processed so far moved.
func (fs *FileSystem) MoveMerge(from, to string) error {
	src, err := fs.read(from, true)
	if err != nil {
		return err
	}
	dst, err := fs.read(to, true)
	if err != nil {
		return err
	}

	srcDir, srcIsDir := src.(*treefs.Directory)
	dstDir, dstIsDir := dst.(*treefs.Directory)
	if srcIsDir && dstIsDir {
		if srcDir == dstDir {
			return nil
		}
		if srcDir.Contains(dstDir) {
			return fmt.Errorf("%w: cannot merge %s into itself", treefs.ErrInvalidPath, from)
		}
		return fs.mergeDir(srcDir, from, to)
	}

	if !pathing.HasTrailingSeparator(from) && pathing.HasTrailingSeparator(to) {
		joined := to + pathing.Base(from)
		if exists, err := fs.Exists(joined); err == nil && exists {
			to = joined
		}
	}
	return fs.Rename(from, to)
}

func (fs *FileSystem) mergeDir(src *treefs.Directory, from, to string) error {
	logger := util.GetLogger("FS.MoveMerge")

	fromCanon, err := fs.canonical(from)
	if err != nil {
		return err
	}
	toCanon, err := fs.canonical(to)
	if err != nil {
		return err
	}

	for _, name := range src.Names() {
		childFrom := pathing.Join(append(slices.Clone(fromCanon), name))
		childTo := pathing.Join(append(slices.Clone(toCanon), name))
		if err := fs.MoveMerge(childFrom, childTo); err != nil {
			logger.Debug().Err(err).Str("from", childFrom).Str("to", childTo).Msg("Merge aborted")
			return err
		}
	}
	logger.Debug().Str("from", pathing.Join(fromCanon)).Str("to", pathing.Join(toCanon)).Msg("Merged directory")
	return nil
}

func (fs *FileSystem) canonical(path string) ([]string, error) {
	segs, err := pathing.Split(path)
	if err != nil {
		return nil, err
	}
	return pathing.Canonicalize(fs.root.Pwd(), segs)
}
