// Package graph implements the family relationship graph: an arena of persons
// keyed by id, the mutations that keep it a valid forest-with-marriages, and
// the queries, tree builder and inferencer derived from it.
//
// A Graph is immutable. Every mutation returns a new Graph and leaves the
// receiver untouched, so a rejected mutation never exposes partial state.
// Persons returned by a Graph are shared with it and must be treated as
// read-only.
package graph

import (
	"cmp"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/ersonp/roots-core/internal/domain/entities"
)

// Graph is an arena of persons keyed by id, remembering insertion order.
type Graph struct {
	treeID  string
	persons map[string]*entities.Person
	order   []string
	now     func() time.Time
	newID   func() string
}

// Option configures a Graph.
type Option func(*Graph)

// WithTreeID stamps created persons and derived edges with the owning tree.
func WithTreeID(treeID string) Option {
	return func(g *Graph) { g.treeID = treeID }
}

// WithClock overrides the clock used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(g *Graph) { g.now = now }
}

// WithIDGenerator overrides the generator used for person and photo ids.
func WithIDGenerator(newID func() string) Option {
	return func(g *Graph) { g.newID = newID }
}

// New returns an empty graph.
func New(opts ...Option) *Graph {
	g := &Graph{
		persons: make(map[string]*entities.Person),
		now:     time.Now,
		newID:   func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// FromRecords builds a graph from stored persons and edges. The relationship
// sets of the person records are ignored; they are derived from edges.
//
// Loading is lenient: edges with an unknown endpoint, self edges and
// duplicates are dropped, unknown subtypes fall back to the defaults, and a
// spouse edge missing its reverse gets one with the same status. Anything
// else that is wrong is left for Check to report.
func FromRecords(persons []entities.Person, edges []entities.Edge, opts ...Option) *Graph {
	g := New(opts...)

	for i := range persons {
		p := persons[i].Clone()
		if _, dup := g.persons[p.ID]; dup || p.ID == "" {
			continue
		}
		p.SpouseRelationships = nil
		p.ParentRelationships = nil
		g.persons[p.ID] = p
		g.order = append(g.order, p.ID)
	}

	// Stores return edges in write order; rewrites move an edge to the end.
	edges = slices.Clone(edges)
	slices.SortStableFunc(edges, func(a, b entities.Edge) int {
		return cmp.Compare(a.Position, b.Position)
	})

	for _, e := range edges {
		p, ok := g.persons[e.PersonID]
		if !ok || e.PersonID == e.RelatedPersonID {
			continue
		}
		if _, ok := g.persons[e.RelatedPersonID]; !ok {
			continue
		}

		switch e.Kind {
		case entities.EdgeParent:
			if p.HasParent(e.RelatedPersonID) {
				continue
			}
			t := entities.ParentType(e.Subtype)
			if !t.IsValid() {
				t = entities.ParentBiological
			}
			p.ParentRelationships = append(p.ParentRelationships, entities.ParentRelationship{
				PersonID: e.RelatedPersonID,
				Type:     t,
			})
		case entities.EdgeSpouse:
			if _, exists := p.SpouseEdge(e.RelatedPersonID); exists {
				continue
			}
			status := entities.SpouseStatus(e.Subtype)
			if !status.IsValid() {
				status = entities.SpouseCurrent
			}
			p.SpouseRelationships = append(p.SpouseRelationships, entities.SpouseRelationship{
				PersonID:     e.RelatedPersonID,
				Status:       status,
				MarriageDate: e.MarriageDate,
				DivorceDate:  e.DivorceDate,
			})
		}
	}

	// Reverse spouse edges that were never stored.
	for _, id := range g.order {
		p := g.persons[id]
		for _, s := range p.SpouseRelationships {
			other := g.persons[s.PersonID]
			if _, ok := other.SpouseEdge(id); ok {
				continue
			}
			other.SpouseRelationships = append(other.SpouseRelationships, entities.SpouseRelationship{
				PersonID:     id,
				Status:       s.Status,
				MarriageDate: s.MarriageDate,
				DivorceDate:  s.DivorceDate,
			})
		}
	}

	g.reindex()
	return g
}

// TreeID returns the id of the owning tree, if set.
func (g *Graph) TreeID() string {
	return g.treeID
}

// Len returns the number of persons.
func (g *Graph) Len() int {
	return len(g.order)
}

// Person returns the person with the given id.
func (g *Graph) Person(id string) (*entities.Person, bool) {
	p, ok := g.persons[id]
	return p, ok
}

// MustPerson returns the person with the given id or a NotFoundError.
func (g *Graph) MustPerson(id string) (*entities.Person, error) {
	p, ok := g.persons[id]
	if !ok {
		return nil, &entities.NotFoundError{Kind: "person", ID: id}
	}
	return p, nil
}

// Persons returns every person in insertion order.
func (g *Graph) Persons() []*entities.Person {
	out := make([]*entities.Person, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.persons[id])
	}
	return out
}

// IDs returns every person id in insertion order.
func (g *Graph) IDs() []string {
	return append([]string(nil), g.order...)
}

// Edges returns the stored edge form of the graph: one edge per parent
// relationship and one per direction of every marriage.
func (g *Graph) Edges() []entities.Edge {
	var edges []entities.Edge
	for _, id := range g.order {
		edges = append(edges, g.edgesFrom(g.persons[id])...)
	}
	return edges
}

// EdgesTouching returns every edge with id as either endpoint.
func (g *Graph) EdgesTouching(id string) []entities.Edge {
	var out []entities.Edge
	for _, e := range g.Edges() {
		if e.Touches(id) {
			out = append(out, e)
		}
	}
	return out
}

func (g *Graph) edgesFrom(p *entities.Person) []entities.Edge {
	edges := make([]entities.Edge, 0, len(p.ParentRelationships)+len(p.SpouseRelationships))
	for i, r := range p.ParentRelationships {
		edges = append(edges, entities.Edge{
			ID:              entities.EdgeID(p.ID, entities.EdgeParent, r.PersonID),
			TreeID:          g.treeID,
			PersonID:        p.ID,
			RelatedPersonID: r.PersonID,
			Kind:            entities.EdgeParent,
			Subtype:         string(r.Type),
			Position:        i,
			CreatedAt:       p.UpdatedAt,
		})
	}
	for i, s := range p.SpouseRelationships {
		edges = append(edges, entities.Edge{
			ID:              entities.EdgeID(p.ID, entities.EdgeSpouse, s.PersonID),
			TreeID:          g.treeID,
			PersonID:        p.ID,
			RelatedPersonID: s.PersonID,
			Kind:            entities.EdgeSpouse,
			Subtype:         string(s.Status),
			MarriageDate:    s.MarriageDate,
			DivorceDate:     s.DivorceDate,
			Position:        i,
			CreatedAt:       p.UpdatedAt,
		})
	}
	return edges
}

// clone returns a deep copy sharing nothing mutable with g.
func (g *Graph) clone() *Graph {
	c := &Graph{
		treeID:  g.treeID,
		persons: make(map[string]*entities.Person, len(g.persons)),
		order:   append([]string(nil), g.order...),
		now:     g.now,
		newID:   g.newID,
	}
	for id, p := range g.persons {
		c.persons[id] = p.Clone()
	}
	return c
}

// reindex recomputes the projections of every person from the edge sets.
func (g *Graph) reindex() {
	for _, id := range g.order {
		p := g.persons[id]
		p.Parents = nil
		p.Children = nil
		p.SpouseIDs = nil
		p.SpouseID = ""
	}

	for _, id := range g.order {
		p := g.persons[id]
		for _, r := range p.ParentRelationships {
			p.Parents = append(p.Parents, r.PersonID)
			if parent, ok := g.persons[r.PersonID]; ok {
				parent.Children = append(parent.Children, id)
			}
		}
		for _, s := range p.SpouseRelationships {
			p.SpouseIDs = append(p.SpouseIDs, s.PersonID)
			if s.Status == entities.SpouseCurrent && p.SpouseID == "" {
				p.SpouseID = s.PersonID
			}
		}
	}
}
