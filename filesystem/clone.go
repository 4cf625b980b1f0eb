package filesystem

import "github.com/brettbedarf/treefs"

// Clone returns a deep copy of n. Directories in the copy are mutable even
// when the originals are frozen, attributes are copied, and device payloads
// are shared since they are opaque here.
func Clone(n treefs.FileNode) treefs.FileNode {
	if treefs.IsNil(n) {
		return nil
	}
	switch v := n.(type) {
	case *treefs.Directory:
		return cloneDir(v)
	case *treefs.File:
		return treefs.NewFile(v.Contents(), v.Attributes().Clone())
	case *treefs.Link:
		return treefs.NewLink(v.Target(), v.Attributes().Clone())
	case treefs.DeviceNode:
		return v.WithAttributes(v.Attributes().Clone())
	case *treefs.Root:
		r := treefs.NewRoot(cloneDir(v.Dir()), v.Attributes().Clone())
		// pwd is already canonical, so this cannot fail
		_, _ = r.Chdir(v.Pwd())
		return r
	default:
		return n
	}
}

func cloneDir(d *treefs.Directory) *treefs.Directory {
	contents := make(map[string]treefs.FileNode, d.Len())
	d.Range(func(name string, child treefs.FileNode) bool {
		contents[name] = Clone(child)
		return true
	})
	return treefs.NewDirectory(contents, d.Attributes().Clone(), false)
}
