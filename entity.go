package strata

import (
	"strings"

	"github.com/cespare/xxhash/v2"
)

// EntityPath is a slash-delimited hierarchical identifier of a logical
// object in the logged scene graph (e.g. "world/robot/cam"). Paths are
// canonicalized at construction, compared structurally, and carry a
// precomputed 64-bit hash so they are cheap to use as index keys.
type EntityPath struct {
	full string
	hash uint64
}

// NewEntityPath builds a canonical entity path from a slash-delimited
// string. Leading and trailing slashes and empty segments are dropped, so
// "/world//robot/" and "world/robot" denote the same entity.
func NewEntityPath(path string) EntityPath {
	parts := splitPath(path)
	return EntityPathFromParts(parts)
}

// EntityPathFromParts builds an entity path from individual segments.
// Empty segments are dropped.
func EntityPathFromParts(parts []string) EntityPath {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			continue
		}
		kept = append(kept, p)
	}
	full := strings.Join(kept, "/")
	return EntityPath{full: full, hash: xxhash.Sum64String(full)}
}

func splitPath(path string) []string {
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

// String returns the canonical slash-delimited form without leading slash.
func (p EntityPath) String() string {
	return p.full
}

// Hash returns the precomputed 64-bit hash of the canonical form.
func (p EntityPath) Hash() uint64 {
	return p.hash
}

// IsRoot reports whether the path has no segments.
func (p EntityPath) IsRoot() bool {
	return p.full == ""
}

// Parts returns the path segments, root first.
func (p EntityPath) Parts() []string {
	if p.full == "" {
		return nil
	}
	return strings.Split(p.full, "/")
}

// Len returns the number of segments.
func (p EntityPath) Len() int {
	if p.full == "" {
		return 0
	}
	return strings.Count(p.full, "/") + 1
}

// Parent returns the path with the last segment removed. The parent of the
// root is the root.
func (p EntityPath) Parent() EntityPath {
	idx := strings.LastIndexByte(p.full, '/')
	if idx < 0 {
		return EntityPath{hash: xxhash.Sum64String("")}
	}
	return NewEntityPath(p.full[:idx])
}

// Join returns the path extended by the given segment.
func (p EntityPath) Join(segment string) EntityPath {
	if p.full == "" {
		return NewEntityPath(segment)
	}
	return NewEntityPath(p.full + "/" + segment)
}

// IsAncestorOf reports whether p is a strict ancestor of other.
func (p EntityPath) IsAncestorOf(other EntityPath) bool {
	if p.full == other.full {
		return false
	}
	if p.full == "" {
		return true
	}
	return strings.HasPrefix(other.full, p.full+"/")
}
