package graph

import "github.com/ersonp/roots-core/internal/domain/entities"

// FamilyUnit is one node of the rendered forest: a person, the current
// spouse placed beside them, former spouses shown inline, and the units of
// their children.
type FamilyUnit struct {
	Person        *entities.Person `json:"person"`
	CurrentSpouse *entities.Person `json:"current_spouse,omitempty"`
	ExSpouses     []Spouse         `json:"ex_spouses,omitempty"`
	Children      []*FamilyUnit    `json:"children,omitempty"`
	Generation    int              `json:"generation"`
}

type unitFrame struct {
	unit     *FamilyUnit
	children []string
	next     int
}

// BuildForest folds the graph into family units.
//
// Without a filter the roots are the persons with no parents, and every
// person ends up in exactly one unit, either as its Person or as its
// CurrentSpouse. With a filter the search matches become the roots, so the
// forest shows only their subtrees.
//
// A single visited set spans the whole traversal. Former spouses are shown
// but not marked visited, so they stay reachable as roots of their own.
func (g *Graph) BuildForest(filter string) []*FamilyUnit {
	visited := make(map[string]bool, len(g.order))
	var forest []*FamilyUnit

	var roots []string
	if filter != "" {
		for _, p := range g.Search(filter) {
			roots = append(roots, p.ID)
		}
	} else {
		for _, id := range g.order {
			if len(g.persons[id].ParentRelationships) == 0 {
				roots = append(roots, id)
			}
		}
	}

	for _, id := range roots {
		if !visited[id] {
			forest = append(forest, g.buildUnit(id, visited))
		}
	}

	// Only a cycle in loaded data leaves someone unreached from the roots.
	if filter == "" {
		for _, id := range g.order {
			if !visited[id] {
				forest = append(forest, g.buildUnit(id, visited))
			}
		}
	}
	return forest
}

// buildUnit builds the subtree rooted at id with an explicit stack, visiting
// children in the same order a recursive walk would.
func (g *Graph) buildUnit(id string, visited map[string]bool) *FamilyUnit {
	root := g.newUnit(id, 0, visited)
	stack := []*unitFrame{{unit: root, children: g.unitChildren(root)}}

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		if top.next >= len(top.children) {
			stack = stack[:len(stack)-1]
			continue
		}
		childID := top.children[top.next]
		top.next++
		if visited[childID] {
			continue
		}

		child := g.newUnit(childID, top.unit.Generation+1, visited)
		top.unit.Children = append(top.unit.Children, child)
		stack = append(stack, &unitFrame{unit: child, children: g.unitChildren(child)})
	}
	return root
}

func (g *Graph) newUnit(id string, generation int, visited map[string]bool) *FamilyUnit {
	p := g.persons[id]
	visited[id] = true
	unit := &FamilyUnit{Person: p, Generation: generation}

	for _, s := range p.SpouseRelationships {
		other, ok := g.persons[s.PersonID]
		if !ok {
			continue
		}
		if s.Status == entities.SpouseCurrent {
			if !visited[other.ID] && unit.CurrentSpouse == nil {
				visited[other.ID] = true
				unit.CurrentSpouse = other
			}
			continue
		}
		unit.ExSpouses = append(unit.ExSpouses, Spouse{Person: other, Relationship: s})
	}
	return unit
}

// unitChildren is the union of the children of the unit's person, current
// spouse and former spouses, deduplicated in first-seen order.
func (g *Graph) unitChildren(unit *FamilyUnit) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(p *entities.Person) {
		for _, c := range p.Children {
			if !seen[c] {
				seen[c] = true
				out = append(out, c)
			}
		}
	}

	add(unit.Person)
	if unit.CurrentSpouse != nil {
		add(unit.CurrentSpouse)
	}
	for _, ex := range unit.ExSpouses {
		add(ex.Person)
	}
	return out
}

// Members returns the ids placed in the unit and its descendants, person and
// current spouse alike.
func (u *FamilyUnit) Members() []string {
	var out []string
	stack := []*FamilyUnit{u}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		out = append(out, cur.Person.ID)
		if cur.CurrentSpouse != nil {
			out = append(out, cur.CurrentSpouse.ID)
		}
		for i := len(cur.Children) - 1; i >= 0; i-- {
			stack = append(stack, cur.Children[i])
		}
	}
	return out
}
