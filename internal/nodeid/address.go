// internal/nodeid/address.go
package nodeid

import (
	"fmt"
	"reflect"
	"strings"
)

// String serializes the Address into its canonical path string representation.
func (a *Address) String() string {
	if a == nil {
		return ""
	}

	var sb strings.Builder
	for i, segment := range a.Path {
		if i > 0 {
			sb.WriteString(Separator)
		}
		sb.WriteString(segment.Name)
		if segment.HasIndex() {
			sb.WriteString(fmt.Sprintf("[%d]", segment.Index))
		}
	}

	return sb.String()
}

// Equal checks for deep equality between two Address pointers.
func (a *Address) Equal(other *Address) bool {
	if a == nil || other == nil {
		return a == other
	}
	return reflect.DeepEqual(a.Path, other.Path)
}

// Child returns a new address with name appended. The receiver is not modified.
func (a *Address) Child(name string) *Address {
	out := &Address{}
	if a != nil {
		out.Path = append(out.Path, a.Path...)
	}
	out.Path = append(out.Path, NewPathSegment(name))
	return out
}

// WithPort returns a copy of the address whose last segment carries index.
func (a *Address) WithPort(index int) *Address {
	if a == nil || len(a.Path) == 0 {
		return a
	}
	out := &Address{Path: append([]PathSegment(nil), a.Path...)}
	last := &out.Path[len(out.Path)-1]
	last.Index = index
	last.HasIdx = true
	return out
}

// Leaf returns the name of the last segment, or "" for an empty address.
func (a *Address) Leaf() string {
	if a == nil || len(a.Path) == 0 {
		return ""
	}
	return a.Path[len(a.Path)-1].Name
}
