package dag

import (
	"fmt"
)

// New creates and returns an initialized, empty Graph.
func New() *Graph {
	return &Graph{
		nodes: make(map[string]*node),
	}
}

// AddNode adds a new node with the given ID to the graph. If a node with
// the same ID already exists, the function does nothing.
func (g *Graph) AddNode(id string) {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if _, ok := g.nodes[id]; ok {
		return
	}

	g.nodes[id] = &node{
		id:         id,
		deps:       make(map[string]*node),
		dependents: make(map[string]*node),
	}
	g.order = append(g.order, id)
}

// Has reports whether id is a node of the graph.
func (g *Graph) Has(id string) bool {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	_, ok := g.nodes[id]
	return ok
}

// AddEdge creates a directed edge from the `fromID` node to the `toID` node.
// An error is returned if either node does not exist or if the edge would
// create a self-reference. Adding an existing edge again is a no-op.
func (g *Graph) AddEdge(fromID, toID string) error {
	if fromID == toID {
		return fmt.Errorf("self-referential edge not allowed: %s -> %s", fromID, fromID)
	}

	g.mutex.Lock()
	defer g.mutex.Unlock()

	fromNode, ok := g.nodes[fromID]
	if !ok {
		return fmt.Errorf("source node not found: %s", fromID)
	}

	toNode, ok := g.nodes[toID]
	if !ok {
		return fmt.Errorf("destination node not found: %s", toID)
	}

	if _, exists := toNode.deps[fromID]; exists {
		return nil
	}
	toNode.deps[fromID] = fromNode
	toNode.depOrder = append(toNode.depOrder, fromID)
	fromNode.dependents[toID] = toNode
	fromNode.dependentOrder = append(fromNode.dependentOrder, toID)

	return nil
}

// Nodes returns every node ID in insertion order.
func (g *Graph) Nodes() []string {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	return append([]string(nil), g.order...)
}

// Dependencies returns the IDs of the nodes with an edge into the given node.
func (g *Graph) Dependencies(id string) ([]string, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	n, ok := g.nodes[id]
	if !ok {
		return nil, fmt.Errorf("node not found: %s", id)
	}
	return append([]string(nil), n.depOrder...), nil
}

// Dependents returns the IDs of the nodes the given node has an edge into.
func (g *Graph) Dependents(id string) ([]string, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	n, ok := g.nodes[id]
	if !ok {
		return nil, fmt.Errorf("node not found: %s", id)
	}
	return append([]string(nil), n.dependentOrder...), nil
}

// Sinks returns the nodes without outgoing edges, in insertion order.
func (g *Graph) Sinks() []string {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	var sinks []string
	for _, id := range g.order {
		if len(g.nodes[id].dependents) == 0 {
			sinks = append(sinks, id)
		}
	}
	return sinks
}

// DetectCycles checks the graph for any cycles. It returns a non-nil error
// if a cycle is found, indicating the first node involved in the detected cycle.
//
// The depth-first search keeps an explicit stack instead of recursing, so very
// long chains cannot exhaust the goroutine stack.
func (g *Graph) DetectCycles() error {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	// permanent: nodes fully visited and known not to be part of a cycle.
	// temporary: nodes on the current DFS path.
	permanent := make(map[string]bool)
	temporary := make(map[string]bool)

	type frame struct {
		n    *node
		next int
	}

	for _, rootID := range g.order {
		if permanent[rootID] {
			continue
		}
		stack := []frame{{n: g.nodes[rootID]}}
		temporary[rootID] = true

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			if top.next == len(top.n.dependentOrder) {
				delete(temporary, top.n.id)
				permanent[top.n.id] = true
				stack = stack[:len(stack)-1]
				continue
			}
			childID := top.n.dependentOrder[top.next]
			top.next++

			if permanent[childID] {
				continue
			}
			if temporary[childID] {
				return fmt.Errorf("cycle detected involving node '%s'", childID)
			}
			temporary[childID] = true
			stack = append(stack, frame{n: g.nodes[childID]})
		}
	}

	return nil
}
