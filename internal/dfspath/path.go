// Package dfspath provides canonical path handling for the DFS namespace.
// Gateway paths are always slash-separated and absolute; a Path is the
// parsed, canonical form (ordered segments, root = no segments).
package dfspath

import (
	"errors"
	"fmt"
	"strings"
)

// Validation errors
var (
	// ErrInvalidPath indicates a raw value that cannot be interpreted as a path.
	ErrInvalidPath = errors.New("invalid path")

	// ErrInvalidSegment indicates a segment containing separators or control characters.
	ErrInvalidSegment = errors.New("invalid path segment")
)

// Path is a canonical DFS location. The zero value is the root.
type Path struct {
	segments []string
}

// Root returns the root path.
func Root() Path {
	return Path{}
}

// Normalize parses a raw path string into canonical form.
// Redundant leading/trailing/duplicate separators are dropped, as are
// empty segments. Empty, "/" and whitespace-only input all normalize
// to the root.
func Normalize(raw string) Path {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "/" {
		return Path{}
	}

	parts := strings.Split(raw, "/")
	segments := make([]string, 0, len(parts))
	for _, part := range parts {
		if part == "" {
			continue
		}
		segments = append(segments, part)
	}
	if len(segments) == 0 {
		return Path{}
	}
	return Path{segments: segments}
}

// Display returns the canonical string form: "/" for the root, otherwise
// a leading slash, segments joined by "/", and a trailing slash.
// This matches the directory convention of the gateway's /browse API.
func (p Path) Display() string {
	if len(p.segments) == 0 {
		return "/"
	}
	return "/" + strings.Join(p.segments, "/") + "/"
}

// String implements fmt.Stringer.
func (p Path) String() string {
	return p.Display()
}

// IsRoot reports whether the path is the root.
func (p Path) IsRoot() bool {
	return len(p.segments) == 0
}

// Depth returns the number of segments.
func (p Path) Depth() int {
	return len(p.segments)
}

// Segments returns a copy of the path's segments.
func (p Path) Segments() []string {
	out := make([]string, len(p.segments))
	copy(out, p.segments)
	return out
}

// Base returns the last segment, or "" for the root.
func (p Path) Base() string {
	if len(p.segments) == 0 {
		return ""
	}
	return p.segments[len(p.segments)-1]
}

// Parent returns the path with the last segment dropped.
// The parent of the root is the root.
func (p Path) Parent() Path {
	if len(p.segments) == 0 {
		return Path{}
	}
	parent := make([]string, len(p.segments)-1)
	copy(parent, p.segments[:len(p.segments)-1])
	return Path{segments: parent}
}

// Join appends one segment to the path. The name must be a single
// segment: no separators, no control characters, not empty.
func (p Path) Join(name string) (Path, error) {
	if err := validateSegment(name); err != nil {
		return Path{}, err
	}
	joined := make([]string, len(p.segments)+1)
	copy(joined, p.segments)
	joined[len(p.segments)] = name
	return Path{segments: joined}, nil
}

// Equal reports whether two paths resolve to the same location.
func (p Path) Equal(other Path) bool {
	if len(p.segments) != len(other.segments) {
		return false
	}
	for i, seg := range p.segments {
		if other.segments[i] != seg {
			return false
		}
	}
	return true
}

// validateSegment rejects names that cannot be a single path component.
func validateSegment(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidSegment)
	}
	if strings.ContainsAny(name, "/\\") {
		return fmt.Errorf("%w: %q contains a separator", ErrInvalidSegment, name)
	}
	for _, r := range name {
		if r < 0x20 || r == 0x7f {
			return fmt.Errorf("%w: %q contains a control character", ErrInvalidSegment, name)
		}
	}
	return nil
}
