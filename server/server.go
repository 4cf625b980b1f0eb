// Package server exposes a FileSystem as a read-only FUSE mount.
package server

import (
	"time"

	"github.com/brettbedarf/treefs/config"
	"github.com/brettbedarf/treefs/filesystem"
	"github.com/brettbedarf/treefs/internal/util"
	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
)

const cacheTimeout = time.Second

// TreeFs serves one FileSystem over FUSE. The mount is read-only; the tree
// may still be changed through the FileSystem while mounted, and the kernel
// sees changes once its one second attribute and entry caches expire.
type TreeFs struct {
	fsys   *filesystem.FileSystem
	cfg    *config.Config
	server *fuse.Server
}

// New creates a TreeFs serving fsys. A nil cfg uses the defaults.
func New(fsys *filesystem.FileSystem, cfg *config.Config) *TreeFs {
	if cfg == nil {
		cfg = config.NewDefaultConfig()
	}
	return &TreeFs{fsys: fsys, cfg: cfg}
}

// Serve mounts and serves the filesystem at the given mountPoint. It returns
// once the mount is ready.
func (t *TreeFs) Serve(mountPoint string) error {
	logger := util.GetLogger("Server.Serve")

	opts := t.cfg.MountOptions
	timeout := cacheTimeout
	srv, err := fs.Mount(mountPoint, newRoot(t.fsys), &fs.Options{
		MountOptions: fuse.MountOptions{
			Name:    opts.Name,
			FsName:  opts.FsName,
			Debug:   opts.Debug || t.cfg.LogLvl == util.TraceLevel,
			Logger:  util.NewLogLogger("FuseServer", util.TraceLevel),
			Options: []string{"ro"},
		},
		EntryTimeout: &timeout,
		AttrTimeout:  &timeout,
		Logger:       util.NewLogLogger("FuseNodes", util.DebugLevel),
	})
	if err != nil {
		return err
	}
	t.server = srv
	logger.Info().Str("mountpoint", mountPoint).Msg("Filesystem mounted")
	return nil
}

func (t *TreeFs) ServeAsync(mountPoint string) <-chan error {
	done := make(chan error, 1)

	go func() {
		done <- t.Serve(mountPoint)
		close(done)
	}()

	return done
}

// Wait blocks until the filesystem is unmounted.
func (t *TreeFs) Wait() {
	if t.server != nil {
		t.server.Wait()
	}
}

// Unmount cleanly unmounts the filesystem.
func (t *TreeFs) Unmount() error {
	if t.server == nil {
		return nil
	}
	return t.server.Unmount()
}
