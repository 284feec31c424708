package graph

// Descendants returns the descendant closure of id, id included, in
// traversal order. The walk stops at revisits so a latent cycle in loaded
// data cannot hang it. An unknown id yields nil.
func (g *Graph) Descendants(id string) []string {
	if _, ok := g.persons[id]; !ok {
		return nil
	}
	return g.walkDescendants(id, g.childrenIndex())
}

// descendantSet is Descendants as a set, computed from the stored edges so it
// is safe to call while a clone is being edited.
func (g *Graph) descendantSet(id string) map[string]bool {
	set := make(map[string]bool)
	for _, d := range g.walkDescendants(id, g.childrenIndex()) {
		set[d] = true
	}
	return set
}

func (g *Graph) walkDescendants(id string, children map[string][]string) []string {
	visited := map[string]bool{id: true}
	out := []string{id}
	stack := []string{id}

	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, c := range children[cur] {
			if visited[c] {
				continue
			}
			visited[c] = true
			out = append(out, c)
			stack = append(stack, c)
		}
	}
	return out
}

// childrenIndex maps each parent id to its children in insertion order.
func (g *Graph) childrenIndex() map[string][]string {
	idx := make(map[string][]string, len(g.persons))
	for _, id := range g.order {
		for _, r := range g.persons[id].ParentRelationships {
			idx[r.PersonID] = append(idx[r.PersonID], id)
		}
	}
	return idx
}

// reachesItself reports whether id is its own ancestor.
func (g *Graph) reachesItself(id string, children map[string][]string) bool {
	visited := make(map[string]bool)
	stack := append([]string(nil), children[id]...)

	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if cur == id {
			return true
		}
		if visited[cur] {
			continue
		}
		visited[cur] = true
		stack = append(stack, children[cur]...)
	}
	return false
}
