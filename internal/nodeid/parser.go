// internal/nodeid/parser.go
package nodeid

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrInvalidIdentifier is returned for identifiers that cannot be used as node keys.
var ErrInvalidIdentifier = errors.New("invalid identifier")

// segmentRegex is used to parse a single segment of a path, e.g., `name` or `name[-1]`.
var segmentRegex = regexp.MustCompile(`^([^.\[\]]+)(?:\[(-?\d+)\])?$`)

// Validate reports whether id can be used as a node identifier inside a scope.
func Validate(id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: identifier cannot be empty", ErrInvalidIdentifier)
	}
	if strings.Contains(id, Separator) {
		return fmt.Errorf("%w: %q contains the reserved separator %q", ErrInvalidIdentifier, id, Separator)
	}
	return nil
}

// IsIdentifier is the boolean form of Validate.
func IsIdentifier(label string) bool {
	return Validate(label) == nil
}

// Join builds a label out of prefix and name using the separator. Labels built
// this way can never collide with a valid identifier.
func Join(prefix, name string) string {
	return prefix + Separator + name
}

// Split is the inverse of Join. It splits on the first separator only, so
// the name part may itself contain separators.
func Split(label string) (prefix, name string, ok bool) {
	prefix, name, ok = strings.Cut(label, Separator)
	if !ok || prefix == "" {
		return "", "", false
	}
	return prefix, name, true
}

// Parse creates a new Address struct by parsing its canonical string representation.
func Parse(rawID string) (*Address, error) {
	if rawID == "" {
		return nil, fmt.Errorf("address cannot be empty")
	}

	addr := &Address{}
	for _, segmentStr := range strings.Split(rawID, Separator) {
		if segmentStr == "" {
			return nil, fmt.Errorf("address path contains empty segment")
		}

		matches := segmentRegex.FindStringSubmatch(segmentStr)
		if matches == nil {
			return nil, fmt.Errorf("invalid path segment format: %q", segmentStr)
		}

		segment := NewPathSegment(matches[1])
		if len(matches) > 2 && matches[2] != "" {
			index, err := strconv.Atoi(matches[2])
			if err != nil {
				// Unreachable due to regex `-?\d+`
				return nil, fmt.Errorf("internal error parsing index: %w", err)
			}
			segment.Index = index
			segment.HasIdx = true
		}
		addr.Path = append(addr.Path, segment)
	}

	return addr, nil
}
