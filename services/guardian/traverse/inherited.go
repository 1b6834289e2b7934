// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package traverse

import "github.com/AleutianAI/guardian/services/guardian/scene"

// Inherited resolves a value that flows down the parent chain: the nearest
// node (starting at the queried node itself) with an explicit value wins.
//
// Results are memoized per node for the resolver's lifetime, so resolving
// every node of a walk costs one read per distinct ancestor. Create one
// resolver per pass; it does not observe graph edits.
//
// Thread Safety: Not safe for concurrent use.
type Inherited[T any] struct {
	reader   scene.Reader
	explicit func(scene.Node) (T, bool)
	maxDepth int
	memo     map[scene.NodeID]resolved[T]
}

type resolved[T any] struct {
	value T
	ok    bool
}

// NewInherited creates a resolver.
//
// Inputs:
//   - reader: The scene graph.
//   - explicit: Returns a node's own value and true, or false to defer to
//     the parent.
//   - maxDepth: Upper bound on the chain length followed; values above it
//     are treated as absent. <= 0 uses DefaultMaxDepth.
func NewInherited[T any](reader scene.Reader, explicit func(scene.Node) (T, bool), maxDepth int) *Inherited[T] {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &Inherited[T]{
		reader:   reader,
		explicit: explicit,
		maxDepth: maxDepth,
		memo:     make(map[scene.NodeID]resolved[T]),
	}
}

// Resolve returns the value of the nearest node with an explicit value,
// starting at id and walking up. The bool is false when no node on the
// chain has one. id 0 resolves to nothing.
//
// A node that cannot be read ends the chain as if it were a root.
func (r *Inherited[T]) Resolve(id scene.NodeID) (T, bool) {
	var chain []scene.NodeID
	var out resolved[T]

	cur := id
	for cur != 0 && len(chain) <= r.maxDepth {
		if hit, ok := r.memo[cur]; ok {
			out = hit
			break
		}
		chain = append(chain, cur)

		node, err := r.reader.Node(cur)
		if err != nil {
			break
		}
		if v, ok := r.explicit(node); ok {
			out = resolved[T]{value: v, ok: true}
			break
		}
		cur = node.Parent
	}

	for _, n := range chain {
		r.memo[n] = out
	}
	return out.value, out.ok
}

// Len returns the number of memoized nodes.
func (r *Inherited[T]) Len() int {
	return len(r.memo)
}
