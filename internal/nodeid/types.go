// internal/nodeid/types.go
package nodeid

// Separator is the reserved character joining address segments. Identifiers
// must never contain it.
const Separator = "."

// PathSegment represents a single component of an address path, e.g., `name[index]`.
type PathSegment struct {
	Name  string
	Index int
	// HasIdx distinguishes `name[0]` from a bare `name`; negative indices are legal.
	HasIdx bool
}

// NewPathSegment creates a new path segment without an index.
func NewPathSegment(name string) PathSegment {
	return PathSegment{Name: name}
}

// NewPathSegmentWithIndex creates a new path segment that includes an index.
func NewPathSegmentWithIndex(name string, index int) PathSegment {
	return PathSegment{Name: name, Index: index, HasIdx: true}
}

// HasIndex returns true if the path segment has an explicit index.
func (ps PathSegment) HasIndex() bool {
	return ps.HasIdx
}

// Address is the structured, fully qualified location of a node: the chain
// of scope names it lives under followed by its identifier. An index on the
// last segment addresses one of the node's ports.
type Address struct {
	Path []PathSegment
}
