// Package jsonpath sets values at dotted paths in arbitrary JSON trees.
//
// Trees are the generic encoding/json representation: map[string]any,
// []any and primitives. Every editing surface computes its candidate
// document through Set before persisting it.
package jsonpath

import (
	"errors"
	"fmt"
	"maps"
)

// maxIndex bounds array padding so a malformed path cannot allocate an
// arbitrarily large slice.
const maxIndex = 65535

var errEmptyPath = errors.New("path cannot be empty")

// Set returns a copy of tree with the value at the dot-delimited path
// replaced. The input tree is never mutated: containers along the visited
// path are shallow-copied and untouched branches are structurally shared,
// so callers can keep the previous tree for cancel/undo.
//
// A segment addresses an array element only when the container is an array
// and the segment parses fully as a non-negative integer; otherwise it is a
// map key. Missing or primitive intermediates are replaced with a fresh
// container (an array when the next segment is an integer, a map otherwise);
// this is lossy on purpose, editors only address paths they created.
// Assigning at an index equal to the array length appends; beyond it, the
// array is padded with nulls up to the index.
func Set(tree any, path string, value any) (any, error) {
	if path == "" {
		return nil, errEmptyPath
	}
	return set(tree, splitPath(path), value)
}

func set(node any, segs []string, value any) (any, error) {
	seg := segs[0]
	rest := segs[1:]

	if idx, ok := parseIndex(seg); ok {
		if arr, isArr := node.([]any); isArr {
			if idx > maxIndex {
				return nil, fmt.Errorf("array index %d exceeds limit %d", idx, maxIndex)
			}
			out := make([]any, len(arr))
			copy(out, arr)
			for len(out) <= idx {
				out = append(out, nil)
			}
			if len(rest) == 0 {
				out[idx] = value
				return out, nil
			}
			child, err := set(childContainer(out[idx], rest[0]), rest, value)
			if err != nil {
				return nil, err
			}
			out[idx] = child
			return out, nil
		}
	}

	// Map key assignment. A missing or non-map node is replaced wholesale.
	out := map[string]any{}
	if m, isMap := node.(map[string]any); isMap {
		out = make(map[string]any, len(m)+1)
		maps.Copy(out, m)
	}
	if len(rest) == 0 {
		out[seg] = value
		return out, nil
	}
	child, err := set(childContainer(out[seg], rest[0]), rest, value)
	if err != nil {
		return nil, err
	}
	out[seg] = child
	return out, nil
}

// childContainer keeps an existing container as-is and replaces anything
// else with a fresh one suited to the next segment.
func childContainer(child any, nextSeg string) any {
	switch child.(type) {
	case map[string]any, []any:
		return child
	}
	if _, ok := parseIndex(nextSeg); ok {
		return []any{}
	}
	return map[string]any{}
}

// parseIndex reports whether seg is entirely decimal digits, i.e. a
// non-negative array index. "1x" or "+1" are map keys, not indices.
func parseIndex(seg string) (int, bool) {
	if seg == "" || len(seg) > 10 {
		return 0, false
	}
	n := 0
	for _, c := range seg {
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	return n, true
}

func splitPath(path string) []string {
	segs := []string{}
	start := 0
	for i := range len(path) {
		if path[i] == '.' {
			segs = append(segs, path[start:i])
			start = i + 1
		}
	}
	return append(segs, path[start:])
}
