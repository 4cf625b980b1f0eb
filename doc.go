// Package treefs defines the node model of an in-memory hierarchical
// filesystem: directories, files, symbolic links, opaque devices and the
// Root that anchors a tree, together with their permission attributes and
// the error taxonomy shared by the traversal and mutation engines in the
// filesystem package.
package treefs
