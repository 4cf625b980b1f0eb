package treefs

import (
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/brettbedarf/treefs/pathing"
	"github.com/puzpuzpuz/xsync/v4"
)

// Kind discriminates the [FileNode] variants.
type Kind uint8

const (
	KindDirectory Kind = iota + 1
	KindFile
	KindLink
	KindDevice
	KindRoot
)

func (k Kind) String() string {
	switch k {
	case KindDirectory:
		return "directory"
	case KindFile:
		return "file"
	case KindLink:
		return "link"
	case KindDevice:
		return "device"
	case KindRoot:
		return "root"
	default:
		return "unknown"
	}
}

// FileNode is one entry of the tree. The set of implementations is closed:
// [*Directory], [*File], [*Link], [*Device] and [*Root]. Switch on the
// concrete type (devices via [DeviceNode]) to handle each variant.
type FileNode interface {
	Kind() Kind
	Attributes() *Attributes
	isFileNode()
}

type node struct {
	attrs *Attributes
}

func (n node) Attributes() *Attributes { return n.attrs }

func (node) isFileNode() {}

// IsNil reports whether n is nil or a typed nil pointer.
func IsNil(n FileNode) bool {
	if n == nil {
		return true
	}
	v := reflect.ValueOf(n)
	return v.Kind() == reflect.Pointer && v.IsNil()
}

// Directory maps names to child nodes. A frozen directory rejects every
// structural change made through it.
type Directory struct {
	node
	contents *xsync.Map[string, FileNode]
	frozen   bool
}

// NewDirectory creates a directory holding a copy of contents, so later
// changes to the contents map never reach the directory. Nil children and
// names that are empty, "." or "..", or contain the separator are dropped.
//
// A readonly directory is frozen: [Directory.Put] and [Directory.Remove] fail
// on it with a write [PermissionError].
func NewDirectory(contents map[string]FileNode, attrs *Attributes, readonly bool) *Directory {
	m := xsync.NewMap[string, FileNode]()
	for name, child := range contents {
		if IsNil(child) || !ValidName(name) {
			continue
		}
		m.Store(name, child)
	}
	return &Directory{node: node{attrs}, contents: m, frozen: readonly}
}

// Freeze returns a frozen copy of dir. Children are shared, not copied.
func Freeze(dir *Directory) *Directory {
	snapshot := make(map[string]FileNode, dir.Len())
	dir.Range(func(name string, child FileNode) bool {
		snapshot[name] = child
		return true
	})
	return NewDirectory(snapshot, dir.attrs, true)
}

// ValidName reports whether name can be a directory entry.
func ValidName(name string) bool {
	return name != "" && name != "." && name != ".." && !strings.Contains(name, pathing.Separator)
}

func (*Directory) Kind() Kind { return KindDirectory }

// Frozen reports whether the directory is read-only.
func (d *Directory) Frozen() bool { return d.frozen }

// Entry returns the child stored under name.
func (d *Directory) Entry(name string) (FileNode, bool) {
	return d.contents.Load(name)
}

// Names returns the entry names in lexical order.
func (d *Directory) Names() []string {
	names := make([]string, 0, d.contents.Size())
	d.contents.Range(func(name string, _ FileNode) bool {
		names = append(names, name)
		return true
	})
	slices.Sort(names)
	return names
}

func (d *Directory) Len() int { return d.contents.Size() }

// Range calls fn for each entry until fn returns false. Order is unspecified.
func (d *Directory) Range(fn func(name string, child FileNode) bool) {
	d.contents.Range(fn)
}

// Put installs child under name, replacing any existing entry.
func (d *Directory) Put(name string, child FileNode) error {
	if d.frozen {
		return &PermissionError{Op: OpWrite, Path: name, Err: ErrFrozen}
	}
	if !ValidName(name) {
		return fmt.Errorf("%w: entry name %q", ErrInvalidPath, name)
	}
	if IsNil(child) {
		return ErrInvalidNode
	}
	if sub := dirOf(child); sub != nil && sub.Contains(d) {
		return fmt.Errorf("%w: %s would contain itself", ErrInvalidPath, name)
	}
	d.contents.Store(name, child)
	return nil
}

// Contains reports whether target is d or a directory anywhere below d.
// Links are not followed.
func (d *Directory) Contains(target *Directory) bool {
	seen := make(map[*Directory]struct{})
	var walk func(cur *Directory) bool
	walk = func(cur *Directory) bool {
		if cur == target {
			return true
		}
		if _, ok := seen[cur]; ok {
			return false
		}
		seen[cur] = struct{}{}
		found := false
		cur.contents.Range(func(_ string, child FileNode) bool {
			if sub := dirOf(child); sub != nil && walk(sub) {
				found = true
			}
			return !found
		})
		return found
	}
	return walk(d)
}

func dirOf(n FileNode) *Directory {
	switch v := n.(type) {
	case *Directory:
		return v
	case *Root:
		return v.Dir()
	}
	return nil
}

// Remove deletes the entry stored under name. Removing a missing entry is not
// an error.
func (d *Directory) Remove(name string) error {
	if d.frozen {
		return &PermissionError{Op: OpWrite, Path: name, Err: ErrFrozen}
	}
	d.contents.Delete(name)
	return nil
}

// File holds opaque string contents.
type File struct {
	node
	contents string
}

func NewFile(contents string, attrs *Attributes) *File {
	return &File{node: node{attrs}, contents: contents}
}

func (*File) Kind() Kind { return KindFile }

func (f *File) Contents() string { return f.contents }

// Size is the content length in bytes.
func (f *File) Size() int { return len(f.contents) }

// Link is a symbolic link. Its target is stored as given; the filesystem
// facade always stores canonical absolute targets.
type Link struct {
	node
	target string
}

func NewLink(target string, attrs *Attributes) *Link {
	return &Link{node: node{attrs}, target: target}
}

func (*Link) Kind() Kind { return KindLink }

func (l *Link) Target() string { return l.target }

// DeviceNode is the type-erased view of a [Device] of any payload type.
type DeviceNode interface {
	FileNode
	// Payload returns the device value. It is opaque to this package.
	Payload() any
	// WithAttributes returns a device sharing the payload but carrying attrs.
	WithAttributes(attrs *Attributes) DeviceNode
}

// Device wraps an externally defined payload.
type Device[T any] struct {
	node
	device T
}

func NewDevice[T any](device T, attrs *Attributes) *Device[T] {
	return &Device[T]{node: node{attrs}, device: device}
}

func (*Device[T]) Kind() Kind { return KindDevice }

// Device returns the typed payload.
func (d *Device[T]) Device() T { return d.device }

func (d *Device[T]) Payload() any { return d.device }

func (d *Device[T]) WithAttributes(attrs *Attributes) DeviceNode {
	return NewDevice(d.device, attrs)
}

// Root is the entry point of a tree: one directory plus the working
// directory used to resolve relative paths.
type Root struct {
	node
	root *Directory
	pwd  string
}

// NewRoot wraps dir. The working directory starts at the separator.
func NewRoot(dir *Directory, attrs *Attributes) *Root {
	return &Root{node: node{attrs}, root: dir, pwd: pathing.Separator}
}

func (*Root) Kind() Kind { return KindRoot }

// Dir returns the tree's top directory.
func (r *Root) Dir() *Directory { return r.root }

// Pwd returns the canonical working directory.
func (r *Root) Pwd() string {
	if r.pwd == "" {
		return pathing.Separator
	}
	return r.pwd
}

// Chdir resolves path against the working directory and stores the result
// as the new working directory. The target is not required to exist.
func (r *Root) Chdir(path string) (string, error) {
	resolved, err := pathing.Resolve(r.Pwd(), path)
	if err != nil {
		return "", err
	}
	r.pwd = resolved
	return resolved, nil
}

var (
	_ FileNode   = (*Directory)(nil)
	_ FileNode   = (*File)(nil)
	_ FileNode   = (*Link)(nil)
	_ DeviceNode = (*Device[any])(nil)
	_ FileNode   = (*Root)(nil)
)
