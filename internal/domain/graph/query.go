package graph

import (
	"strings"

	"github.com/ersonp/roots-core/internal/domain/entities"
)

// Sibling is a person sharing at least one parent with another.
type Sibling struct {
	Person        *entities.Person `json:"person"`
	Full          bool             `json:"full"`
	SharedParents []string         `json:"shared_parents"`
}

// Parents returns the parents of id across all parent types.
func (g *Graph) Parents(id string) []*entities.Person {
	p, ok := g.persons[id]
	if !ok {
		return nil
	}
	return g.lookup(p.Parents)
}

// Children returns every person listing id as a parent, in insertion order.
func (g *Graph) Children(id string) []*entities.Person {
	p, ok := g.persons[id]
	if !ok {
		return nil
	}
	return g.lookup(p.Children)
}

// Spouses returns every spouse of id regardless of status, with the edge
// describing each marriage.
func (g *Graph) Spouses(id string) []Spouse {
	p, ok := g.persons[id]
	if !ok {
		return nil
	}
	out := make([]Spouse, 0, len(p.SpouseRelationships))
	for _, s := range p.SpouseRelationships {
		if other, ok := g.persons[s.PersonID]; ok {
			out = append(out, Spouse{Person: other, Relationship: s})
		}
	}
	return out
}

// Spouse pairs a partner with the marriage edge leading to it.
type Spouse struct {
	Person       *entities.Person            `json:"person"`
	Relationship entities.SpouseRelationship `json:"relationship"`
}

// Siblings returns the persons sharing a parent with id. Two shared parents
// make a full sibling, one a half sibling.
func (g *Graph) Siblings(id string) []Sibling {
	p, ok := g.persons[id]
	if !ok || len(p.Parents) == 0 {
		return nil
	}

	shared := make(map[string][]string)
	var order []string
	for _, parentID := range p.Parents {
		parent, ok := g.persons[parentID]
		if !ok {
			continue
		}
		for _, childID := range parent.Children {
			if childID == id {
				continue
			}
			if _, seen := shared[childID]; !seen {
				order = append(order, childID)
			}
			shared[childID] = append(shared[childID], parentID)
		}
	}

	out := make([]Sibling, 0, len(order))
	for _, sid := range order {
		out = append(out, Sibling{
			Person:        g.persons[sid],
			Full:          len(shared[sid]) >= 2,
			SharedParents: shared[sid],
		})
	}
	return out
}

// Search matches query case-insensitively against first name, last name,
// full name, nickname and birthplace. An empty query matches nobody.
func (g *Graph) Search(query string) []*entities.Person {
	q := entities.NormalizeName(query)
	if q == "" {
		return nil
	}

	var out []*entities.Person
	for _, id := range g.order {
		p := g.persons[id]
		if matches(p, q) {
			out = append(out, p)
		}
	}
	return out
}

func matches(p *entities.Person, q string) bool {
	for _, field := range []string{p.FirstName, p.LastName, p.FullName(), p.Nickname, p.BirthPlace} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}

// ParentCandidates returns the persons that may become a parent of id: all
// except id's descendants and its current spouse. For an unknown id, for
// instance a person not yet created, everyone is a candidate.
func (g *Graph) ParentCandidates(id string) []*entities.Person {
	p, ok := g.persons[id]
	if !ok {
		return g.Persons()
	}

	desc := g.descendantSet(id)
	var out []*entities.Person
	for _, cid := range g.order {
		if desc[cid] || cid == p.SpouseID {
			continue
		}
		out = append(out, g.persons[cid])
	}
	return out
}

// SpouseCandidates returns the persons that may marry id: all except id, its
// parents, its children and anyone already married to someone else.
func (g *Graph) SpouseCandidates(id string) []*entities.Person {
	p, ok := g.persons[id]
	if !ok {
		var out []*entities.Person
		for _, cid := range g.order {
			if g.persons[cid].SpouseID == "" {
				out = append(out, g.persons[cid])
			}
		}
		return out
	}

	excluded := map[string]bool{id: true}
	for _, pid := range p.Parents {
		excluded[pid] = true
	}
	for _, cid := range p.Children {
		excluded[cid] = true
	}

	var out []*entities.Person
	for _, cid := range g.order {
		c := g.persons[cid]
		if excluded[cid] || (c.SpouseID != "" && c.SpouseID != id) {
			continue
		}
		out = append(out, c)
	}
	return out
}

func (g *Graph) lookup(ids []string) []*entities.Person {
	out := make([]*entities.Person, 0, len(ids))
	for _, id := range ids {
		if p, ok := g.persons[id]; ok {
			out = append(out, p)
		}
	}
	return out
}
