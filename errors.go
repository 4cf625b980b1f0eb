package treefs

import (
	"errors"

	"github.com/brettbedarf/treefs/pathing"
)

var (
	// ErrInvalidPath is returned for path arguments that are not path shaped,
	// and for operations that cannot apply to the given path (e.g. replacing
	// the root or moving a directory into itself).
	ErrInvalidPath = pathing.ErrInvalidPath

	// ErrInvalidContents is returned when file contents are not a string.
	ErrInvalidContents = errors.New("invalid contents")

	// ErrInvalidNode is returned when a write is given a value that cannot be
	// installed in a directory.
	ErrInvalidNode = errors.New("invalid node")

	ErrNoSuchFile    = errors.New("no such file or directory")
	ErrNotADirectory = errors.New("not a directory")
	ErrNotAFile      = errors.New("not a file")
	ErrIsADirectory  = errors.New("is a directory")
	ErrIsAFile       = errors.New("is a file")

	// ErrCircularLink is returned when resolving a symbolic link revisits a
	// link it already followed.
	ErrCircularLink = errors.New("circular link")

	// ErrPermissionDenied matches every [*PermissionError].
	ErrPermissionDenied = errors.New("permission denied")

	// ErrFrozen is the cause of a write denial on a read-only directory.
	ErrFrozen = errors.New("directory is read-only")
)

// Op names the access a [PermissionError] was denied.
type Op string

const (
	OpRead  Op = "read"
	OpWrite Op = "write"
)

// PermissionError reports a denied read or write. Err is set when the denial
// has a structural cause such as [ErrFrozen].
type PermissionError struct {
	Op   Op
	Path string
	Err  error
}

func (e *PermissionError) Error() string {
	msg := "permission denied (" + string(e.Op) + "): " + e.Path
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *PermissionError) Is(target error) bool {
	return target == ErrPermissionDenied
}

func (e *PermissionError) Unwrap() error {
	return e.Err
}
