package document

// Subtree returns every node nested under root (excluding root itself) in
// breadth-first order. It walks iteratively with a visited set, so deeply
// nested frames cannot exhaust the stack and malformed parent cycles terminate.
func Subtree(doc Document, root Node) []Node {
	var out []Node
	visited := map[Node]bool{root: true}
	queue := []Node{root}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, child := range doc.ListChildren(current) {
			if visited[child] {
				continue
			}
			visited[child] = true
			out = append(out, child)
			queue = append(queue, child)
		}
	}
	return out
}

// IsWithin reports whether n is nested (at any depth) under scope. The parent
// chain is walked iteratively and stops on a revisited node.
func IsWithin(n, scope Node) bool {
	if n == nil || scope == nil {
		return false
	}
	seen := make(map[Node]bool)
	for p := n.Parent(); p != nil; p = p.Parent() {
		if p == scope {
			return true
		}
		if seen[p] {
			return false
		}
		seen[p] = true
	}
	return false
}

// LinksTouching returns the links having at least one endpoint for which
// match returns true, in document order.
func LinksTouching(doc Document, match func(Node) bool) []Link {
	var out []Link
	for _, l := range doc.Links() {
		if match(l.From().Node()) || match(l.To().Node()) {
			out = append(out, l)
		}
	}
	return out
}
