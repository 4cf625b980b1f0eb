package server

import (
	"context"
	"syscall"
	"testing"

	"github.com/brettbedarf/treefs"
	"github.com/brettbedarf/treefs/devices"
	"github.com/brettbedarf/treefs/filesystem"
	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTree(t *testing.T) *filesystem.FileSystem {
	t.Helper()
	fsys, err := filesystem.NewFS(nil, nil)
	require.NoError(t, err)

	require.NoError(t, fsys.MkdirAll("/docs"))
	require.NoError(t, fsys.WriteFile("/docs/readme", "hello world"))
	require.NoError(t, fsys.Mklink("/docs/latest", "/docs/readme"))
	buf, err := devices.NewBuffer(devices.BufferConfig{Contents: "device bytes"})
	require.NoError(t, err)
	require.NoError(t, filesystem.Write(fsys.Root(), "/buf", treefs.NewDevice(buf, nil), fsys.Options(false)))
	require.NoError(t, filesystem.Write(fsys.Root(), "/raw", treefs.NewDevice(struct{}{}, nil), fsys.Options(false)))
	require.NoError(t, filesystem.Write(fsys.Root(), "/secret", treefs.NewFile("s", treefs.NoAccess()), fsys.Options(false)))
	return fsys
}

func readAll(t *testing.T, res fuse.ReadResult) string {
	t.Helper()
	data, status := res.Bytes(make([]byte, res.Size()))
	require.Equal(t, fuse.OK, status)
	return string(data)
}

func TestTreeNode_Readdir(t *testing.T) {
	t.Parallel()
	fsys := newTestTree(t)
	root := newRoot(fsys)

	stream, errno := root.Readdir(context.Background())
	require.Equal(t, fs.OK, errno)

	got := map[string]uint32{}
	for stream.HasNext() {
		entry, errno := stream.Next()
		require.Equal(t, fs.OK, errno)
		got[entry.Name] = entry.Mode
	}
	assert.Equal(t, map[string]uint32{
		"buf":    syscall.S_IFREG,
		"raw":    syscall.S_IFCHR,
		"docs":   syscall.S_IFDIR,
		"secret": syscall.S_IFREG,
	}, got)

	_, errno = (&treeNode{fsys: fsys, path: []string{"docs", "readme"}}).Readdir(context.Background())
	assert.Equal(t, syscall.ENOTDIR, errno)
}

func TestTreeNode_Getattr(t *testing.T) {
	t.Parallel()
	fsys := newTestTree(t)

	var out fuse.AttrOut
	errno := (&treeNode{fsys: fsys, path: []string{"docs", "latest"}}).Getattr(context.Background(), nil, &out)
	require.Equal(t, fs.OK, errno)
	assert.Equal(t, uint32(syscall.S_IFLNK), out.Mode&syscall.S_IFMT, "links are not followed")

	errno = (&treeNode{fsys: fsys, path: []string{"missing"}}).Getattr(context.Background(), nil, &out)
	assert.Equal(t, syscall.ENOENT, errno)
}

func TestTreeNode_OpenRead(t *testing.T) {
	t.Parallel()
	fsys := newTestTree(t)
	ctx := context.Background()

	readme := &treeNode{fsys: fsys, path: []string{"docs", "readme"}}
	_, _, errno := readme.Open(ctx, syscall.O_RDONLY)
	require.Equal(t, fs.OK, errno)
	_, _, errno = readme.Open(ctx, syscall.O_WRONLY)
	assert.Equal(t, syscall.EROFS, errno)

	res, errno := readme.Read(ctx, nil, make([]byte, 5), 6)
	require.Equal(t, fs.OK, errno)
	assert.Equal(t, "world", readAll(t, res))

	dev := &treeNode{fsys: fsys, path: []string{"buf"}}
	res, errno = dev.Read(ctx, nil, make([]byte, 64), 7)
	require.Equal(t, fs.OK, errno)
	assert.Equal(t, "bytes", readAll(t, res))

	_, _, errno = (&treeNode{fsys: fsys, path: []string{"docs"}}).Open(ctx, syscall.O_RDONLY)
	assert.Equal(t, syscall.EISDIR, errno)

	_, _, errno = (&treeNode{fsys: fsys, path: []string{"secret"}}).Open(ctx, syscall.O_RDONLY)
	assert.Equal(t, syscall.EACCES, errno)
}

func TestTreeNode_Readlink(t *testing.T) {
	t.Parallel()
	fsys := newTestTree(t)

	target, errno := (&treeNode{fsys: fsys, path: []string{"docs", "latest"}}).Readlink(context.Background())
	require.Equal(t, fs.OK, errno)
	assert.Equal(t, "readme", string(target))

	_, errno = (&treeNode{fsys: fsys, path: []string{"docs", "readme"}}).Readlink(context.Background())
	assert.Equal(t, syscall.EINVAL, errno)
}
