package dag

import "sync"

// Graph is a collection of nodes and their directed edges. All operations on
// the graph are concurrency-safe. Listing methods return IDs in insertion
// order so that callers iterating the graph stay deterministic.
type Graph struct {
	// mutex protects the nodes map during concurrent access.
	mutex sync.RWMutex
	// nodes stores all nodes in the graph, keyed by their unique ID.
	nodes map[string]*node
	// order records node IDs in the order they were added.
	order []string
}

// node represents a single vertex in the graph. It is un-exported to
// enforce interaction with the graph via the public API (using string IDs),
// not by direct struct manipulation.
type node struct {
	// id is the unique identifier for the node.
	id string
	// deps holds the nodes with an edge into this node (predecessors).
	deps map[string]*node
	// depOrder keeps deps in insertion order.
	depOrder []string
	// dependents holds the nodes this node has an edge into (successors).
	dependents map[string]*node
	// dependentOrder keeps dependents in insertion order.
	dependentOrder []string
}
