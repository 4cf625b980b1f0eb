// Package pathing canonicalizes Unix-style path strings. It never touches a
// filesystem tree.
package pathing

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Separator separates path segments. Absolute paths start with it.
const Separator = "/"

// ErrInvalidPath is returned when a string cannot be interpreted as a path.
var ErrInvalidPath = errors.New("invalid path")

// Split splits path on [Separator]. An absolute path yields a leading empty
// segment. The empty path yields no segments at all and is therefore
// relative.
//
// Paths containing NUL bytes or invalid UTF-8 are rejected with
// [ErrInvalidPath].
func Split(path string) ([]string, error) {
	if strings.ContainsRune(path, 0) || !utf8.ValidString(path) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	if path == "" {
		return []string{}, nil
	}
	return strings.Split(path, Separator), nil
}

// IsAbs reports whether segments (as returned by [Split]) denote an absolute
// path.
func IsAbs(segments []string) bool {
	return len(segments) > 0 && segments[0] == ""
}

// Canonicalize folds segments into an absolute, normalized segment list.
// Relative segments are anchored at pwd first. ".." pops the previous segment
// and is a no-op at the root; "." and empty segments are dropped.
//
// The result never contains empty, "." or ".." segments. The root is the
// empty list.
func Canonicalize(pwd string, segments []string) ([]string, error) {
	combined := segments
	if !IsAbs(segments) {
		base, err := Split(pwd)
		if err != nil {
			return nil, err
		}
		combined = make([]string, 0, len(base)+len(segments))
		combined = append(combined, base...)
		combined = append(combined, segments...)
	}

	out := make([]string, 0, len(combined))
	for _, seg := range combined {
		switch seg {
		case "", ".":
		case "..":
			if len(out) > 0 {
				out = out[:len(out)-1]
			}
		default:
			out = append(out, seg)
		}
	}
	return out, nil
}

// Join renders segments as a path string. The empty list and [""] render as
// the bare separator. A leading empty segment reproduces the leading
// separator; otherwise one is prepended so the result is always absolute.
func Join(segments []string) string {
	if len(segments) == 0 || (len(segments) == 1 && segments[0] == "") {
		return Separator
	}
	if segments[0] == "" {
		return strings.Join(segments, Separator)
	}
	return Separator + strings.Join(segments, Separator)
}

// Resolve returns the canonical absolute form of path relative to pwd.
func Resolve(pwd, path string) (string, error) {
	segs, err := Split(path)
	if err != nil {
		return "", err
	}
	canon, err := Canonicalize(pwd, segs)
	if err != nil {
		return "", err
	}
	return Join(canon), nil
}

// Base returns the last non-empty segment of path, ignoring trailing
// separators. It returns "" for the root.
func Base(path string) string {
	trimmed := strings.TrimRight(path, Separator)
	if i := strings.LastIndex(trimmed, Separator); i >= 0 {
		return trimmed[i+1:]
	}
	return trimmed
}

// HasTrailingSeparator reports whether path ends with [Separator].
func HasTrailingSeparator(path string) bool {
	return strings.HasSuffix(path, Separator)
}

// ParentAndName splits canonical segments into the parent segments and the
// final component. The root has no name.
func ParentAndName(canon []string) ([]string, string) {
	if len(canon) == 0 {
		return canon, ""
	}
	return canon[:len(canon)-1], canon[len(canon)-1]
}

// IsWithin reports whether canonical path child is equal to or nested below
// canonical path parent.
func IsWithin(parent, child []string) bool {
	if len(child) < len(parent) {
		return false
	}
	for i := range parent {
		if parent[i] != child[i] {
			return false
		}
	}
	return true
}
