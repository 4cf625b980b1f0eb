package filesystem

import (
	"fmt"

	"github.com/brettbedarf/treefs"
	"github.com/dustin/go-humanize"
)

// UsageStats counts the nodes of a subtree. Links are counted, not followed.
type UsageStats struct {
	Directories int
	Files       int
	Links       int
	Devices     int
	Bytes       uint64 // total file content size
}

func (u UsageStats) String() string {
	return fmt.Sprintf("%d dirs, %d files, %d links, %d devices, %s",
		u.Directories, u.Files, u.Links, u.Devices, humanize.Bytes(u.Bytes))
}

// Usage walks the subtree rooted at n.
func Usage(n treefs.FileNode) UsageStats {
	var u UsageStats
	u.add(n)
	return u
}

func (u *UsageStats) add(n treefs.FileNode) {
	if treefs.IsNil(n) {
		return
	}
	switch v := n.(type) {
	case *treefs.Directory:
		u.Directories++
		v.Range(func(_ string, child treefs.FileNode) bool {
			u.add(child)
			return true
		})
	case *treefs.File:
		u.Files++
		u.Bytes += uint64(v.Size())
	case *treefs.Link:
		u.Links++
	case treefs.DeviceNode:
		u.Devices++
	case *treefs.Root:
		u.add(v.Dir())
	}
}
