// Package handlers adapts the family services to the string-level inputs of
// the command line.
package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/ersonp/roots-core/internal/domain/entities"
	"github.com/ersonp/roots-core/internal/domain/graph"
	"github.com/ersonp/roots-core/internal/domain/services"
)

// PersonHandler handles person operations.
type PersonHandler struct {
	family *services.FamilyService
	now    func() time.Time
}

// NewPersonHandler creates a new PersonHandler.
func NewPersonHandler(family *services.FamilyService) *PersonHandler {
	return &PersonHandler{
		family: family,
		now:    time.Now,
	}
}

// AddRequest describes a person to create. Parents and Spouses are specs of
// the form "ref[:subtype]".
type AddRequest struct {
	Input   graph.PersonInput
	Parents []string
	Spouses []string
}

// EditRequest describes changes to a person. When SetRelationships is true
// both edge sets are replaced by Parents and Spouses.
type EditRequest struct {
	Patch            graph.PersonPatch
	SetRelationships bool
	Parents          []string
	Spouses          []string
}

// PersonView is a person with everything the detail view shows.
type PersonView struct {
	Person   *entities.Person   `json:"person"`
	FullName string             `json:"full_name"`
	LifeSpan string             `json:"life_span,omitempty"`
	Age      *int               `json:"age,omitempty"`
	Parents  []*entities.Person `json:"parents"`
	Children []*entities.Person `json:"children"`
	Spouses  []graph.Spouse     `json:"spouses"`
	Siblings []graph.Sibling    `json:"siblings"`
}

// HandleAdd creates a person.
func (h *PersonHandler) HandleAdd(ctx context.Context, req AddRequest) (*entities.Person, error) {
	rels, err := parseRelationships(h.family.Graph(), req.Parents, req.Spouses)
	if err != nil {
		return nil, err
	}
	in := req.Input
	in.Relationships = rels
	return h.family.CreatePerson(ctx, in)
}

// HandleEdit updates a person.
func (h *PersonHandler) HandleEdit(ctx context.Context, ref string, req EditRequest) (*entities.Person, error) {
	g := h.family.Graph()
	p, err := ResolvePerson(g, ref)
	if err != nil {
		return nil, err
	}

	patch := req.Patch
	if req.SetRelationships {
		rels, err := parseRelationships(g, req.Parents, req.Spouses)
		if err != nil {
			return nil, err
		}
		patch.Relationships = &rels
	}
	return h.family.UpdatePerson(ctx, p.ID, patch)
}

// HandleDelete removes a person and every edge referencing it.
func (h *PersonHandler) HandleDelete(ctx context.Context, ref string) (*entities.Person, error) {
	p, err := ResolvePerson(h.family.Graph(), ref)
	if err != nil {
		return nil, err
	}
	if err := h.family.DeletePerson(ctx, p.ID); err != nil {
		return nil, err
	}
	return p, nil
}

// HandleShow returns the detail view of a person.
func (h *PersonHandler) HandleShow(ref string) (*PersonView, error) {
	g := h.family.Graph()
	p, err := ResolvePerson(g, ref)
	if err != nil {
		return nil, err
	}

	view := &PersonView{
		Person:   p,
		FullName: p.FullName(),
		LifeSpan: p.LifeSpan(),
		Parents:  g.Parents(p.ID),
		Children: g.Children(p.ID),
		Spouses:  g.Spouses(p.ID),
		Siblings: g.Siblings(p.ID),
	}
	if age, ok := p.Age(h.now()); ok {
		view.Age = &age
	}
	return view, nil
}

// HandleList returns every person of the tree in insertion order.
func (h *PersonHandler) HandleList() []*entities.Person {
	return h.family.Graph().Persons()
}

// HandleSearch matches persons by name, nickname or birthplace.
func (h *PersonHandler) HandleSearch(query string) []*entities.Person {
	return h.family.Graph().Search(query)
}

// HandleAddPhoto attaches a photo to a person. When asProfile is set the
// photo also becomes the profile photo.
func (h *PersonHandler) HandleAddPhoto(ctx context.Context, ref string, in graph.PhotoInput, asProfile bool) (*entities.Photo, error) {
	p, err := ResolvePerson(h.family.Graph(), ref)
	if err != nil {
		return nil, err
	}
	photo, err := h.family.AddPhoto(ctx, p.ID, in)
	if err != nil {
		return nil, err
	}
	if asProfile {
		if err := h.family.SetProfilePhoto(ctx, p.ID, photo.URL); err != nil {
			return nil, fmt.Errorf("setting profile photo: %w", err)
		}
	}
	return photo, nil
}

// HandleSetProfilePhoto replaces the profile photo of a person.
func (h *PersonHandler) HandleSetProfilePhoto(ctx context.Context, ref, url string) error {
	p, err := ResolvePerson(h.family.Graph(), ref)
	if err != nil {
		return err
	}
	return h.family.SetProfilePhoto(ctx, p.ID, url)
}

func parseRelationships(g *graph.Graph, parents, spouses []string) (graph.Relationships, error) {
	var rels graph.Relationships
	for _, spec := range parents {
		rel, err := ParseParentSpec(g, spec)
		if err != nil {
			return graph.Relationships{}, fmt.Errorf("parent %q: %w", spec, err)
		}
		rels.Parents = append(rels.Parents, rel)
	}
	for _, spec := range spouses {
		rel, err := ParseSpouseSpec(g, spec)
		if err != nil {
			return graph.Relationships{}, fmt.Errorf("spouse %q: %w", spec, err)
		}
		rels.Spouses = append(rels.Spouses, rel)
	}
	return rels, nil
}
