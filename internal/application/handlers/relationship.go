package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/ersonp/roots-core/internal/domain/entities"
	"github.com/ersonp/roots-core/internal/domain/graph"
	"github.com/ersonp/roots-core/internal/domain/services"
)

// ValidParentTypes lists all valid parent type strings.
var ValidParentTypes = []string{"biological", "step", "adoptive"}

// ValidSpouseStatuses lists all valid spouse status strings.
var ValidSpouseStatuses = []string{"current", "divorced", "widowed", "separated"}

// RelationshipHandler handles relationship operations. Persons are referred
// to by id or by a name that matches exactly one person.
type RelationshipHandler struct {
	family *services.FamilyService
}

// NewRelationshipHandler creates a new RelationshipHandler.
func NewRelationshipHandler(family *services.FamilyService) *RelationshipHandler {
	return &RelationshipHandler{
		family: family,
	}
}

// DescribeResult is the relationship of one person to another.
type DescribeResult struct {
	From     *entities.Person `json:"from"`
	To       *entities.Person `json:"to"`
	Relation graph.Relation   `json:"relation"`
}

// CandidatesResult lists the persons that may be linked to a person.
type CandidatesResult struct {
	Person  *entities.Person   `json:"person"`
	Parents []*entities.Person `json:"parents"`
	Spouses []*entities.Person `json:"spouses"`
}

// HandleSpouse marries two persons.
func (h *RelationshipHandler) HandleSpouse(ctx context.Context, aRef, bRef, status, marriageDate string) error {
	st, err := parseSpouseStatus(status, entities.SpouseCurrent)
	if err != nil {
		return err
	}
	a, b, err := h.resolvePair(aRef, bRef)
	if err != nil {
		return err
	}
	return h.family.AddSpouse(ctx, a, b, st, marriageDate)
}

// HandleStatus changes the status of a marriage.
func (h *RelationshipHandler) HandleStatus(ctx context.Context, aRef, bRef, status string) error {
	st, err := parseSpouseStatus(status, "")
	if err != nil {
		return err
	}
	a, b, err := h.resolvePair(aRef, bRef)
	if err != nil {
		return err
	}
	return h.family.SetSpouseStatus(ctx, a, b, st)
}

// HandleParent adds parentRef as a parent of childRef.
func (h *RelationshipHandler) HandleParent(ctx context.Context, childRef, parentRef, parentType string) error {
	t, err := parseParentType(parentType, entities.ParentBiological)
	if err != nil {
		return err
	}
	child, parent, err := h.resolvePair(childRef, parentRef)
	if err != nil {
		return err
	}
	return h.family.AddChild(ctx, parent, child, t)
}

// HandleType changes the type of a parent edge.
func (h *RelationshipHandler) HandleType(ctx context.Context, childRef, parentRef, parentType string) error {
	t, err := parseParentType(parentType, "")
	if err != nil {
		return err
	}
	child, parent, err := h.resolvePair(childRef, parentRef)
	if err != nil {
		return err
	}
	return h.family.SetParentType(ctx, child, parent, t)
}

// HandleUnlinkParent removes a parent edge.
func (h *RelationshipHandler) HandleUnlinkParent(ctx context.Context, childRef, parentRef string) error {
	child, parent, err := h.resolvePair(childRef, parentRef)
	if err != nil {
		return err
	}
	return h.family.RemoveParent(ctx, child, parent)
}

// HandleUnlinkSpouse removes a marriage.
func (h *RelationshipHandler) HandleUnlinkSpouse(ctx context.Context, aRef, bRef string) error {
	a, b, err := h.resolvePair(aRef, bRef)
	if err != nil {
		return err
	}
	return h.family.RemoveSpouse(ctx, a, b)
}

// HandleDescribe names what toRef is to fromRef.
func (h *RelationshipHandler) HandleDescribe(fromRef, toRef string) (*DescribeResult, error) {
	g := h.family.Graph()
	from, err := ResolvePerson(g, fromRef)
	if err != nil {
		return nil, err
	}
	to, err := ResolvePerson(g, toRef)
	if err != nil {
		return nil, err
	}
	rel, err := g.Describe(from.ID, to.ID)
	if err != nil {
		return nil, fmt.Errorf("describing relationship: %w", err)
	}
	return &DescribeResult{From: from, To: to, Relation: rel}, nil
}

// HandleSiblings lists the siblings of a person.
func (h *RelationshipHandler) HandleSiblings(ref string) ([]graph.Sibling, error) {
	g := h.family.Graph()
	p, err := ResolvePerson(g, ref)
	if err != nil {
		return nil, err
	}
	return g.Siblings(p.ID), nil
}

// HandleCandidates lists the valid new parents and spouses of a person.
func (h *RelationshipHandler) HandleCandidates(ref string) (*CandidatesResult, error) {
	g := h.family.Graph()
	p, err := ResolvePerson(g, ref)
	if err != nil {
		return nil, err
	}
	return &CandidatesResult{
		Person:  p,
		Parents: g.ParentCandidates(p.ID),
		Spouses: g.SpouseCandidates(p.ID),
	}, nil
}

func (h *RelationshipHandler) resolvePair(aRef, bRef string) (string, string, error) {
	g := h.family.Graph()
	a, err := ResolvePerson(g, aRef)
	if err != nil {
		return "", "", err
	}
	b, err := ResolvePerson(g, bRef)
	if err != nil {
		return "", "", err
	}
	return a.ID, b.ID, nil
}

// ResolvePerson finds a person by id, or by a name that matches exactly one
// person.
func ResolvePerson(g *graph.Graph, ref string) (*entities.Person, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, &entities.ValidationError{Field: "person", Message: "is required"}
	}
	if p, ok := g.Person(ref); ok {
		return p, nil
	}

	matches := g.Search(ref)
	var exact []*entities.Person
	for _, p := range matches {
		if entities.NormalizeName(p.FullName()) == entities.NormalizeName(ref) ||
			entities.NormalizeName(p.FirstName+" "+p.LastName) == entities.NormalizeName(ref) {
			exact = append(exact, p)
		}
	}
	if len(exact) == 1 {
		return exact[0], nil
	}
	if len(exact) == 0 && len(matches) == 1 {
		return matches[0], nil
	}
	if len(matches) == 0 {
		return nil, &entities.NotFoundError{Kind: "person", ID: ref}
	}

	ids := make([]string, 0, len(matches))
	for _, p := range matches {
		ids = append(ids, p.ID)
	}
	return nil, &entities.ValidationError{
		Field:   "person",
		Message: fmt.Sprintf("%q matches %d persons (%s); use an id", ref, len(matches), strings.Join(ids, ", ")),
	}
}

// ParseParentSpec parses "ref" or "ref:type" into a parent relationship.
func ParseParentSpec(g *graph.Graph, spec string) (entities.ParentRelationship, error) {
	ref, sub := splitSpec(spec)
	t, err := parseParentType(sub, entities.ParentBiological)
	if err != nil {
		return entities.ParentRelationship{}, err
	}
	p, err := ResolvePerson(g, ref)
	if err != nil {
		return entities.ParentRelationship{}, err
	}
	return entities.ParentRelationship{PersonID: p.ID, Type: t}, nil
}

// ParseSpouseSpec parses "ref" or "ref:status" into a spouse relationship.
func ParseSpouseSpec(g *graph.Graph, spec string) (entities.SpouseRelationship, error) {
	ref, sub := splitSpec(spec)
	st, err := parseSpouseStatus(sub, entities.SpouseCurrent)
	if err != nil {
		return entities.SpouseRelationship{}, err
	}
	p, err := ResolvePerson(g, ref)
	if err != nil {
		return entities.SpouseRelationship{}, err
	}
	return entities.SpouseRelationship{PersonID: p.ID, Status: st}, nil
}

func splitSpec(spec string) (ref, subtype string) {
	spec = strings.TrimSpace(spec)
	if i := strings.LastIndex(spec, ":"); i >= 0 {
		return strings.TrimSpace(spec[:i]), strings.TrimSpace(spec[i+1:])
	}
	return spec, ""
}

// parseParentType validates and converts a string to ParentType. The empty
// string yields def.
func parseParentType(s string, def entities.ParentType) (entities.ParentType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" && def != "" {
		return def, nil
	}
	t := entities.ParentType(s)
	if !t.IsValid() {
		return "", &entities.ValidationError{
			Field:   "type",
			Message: fmt.Sprintf("invalid parent type: %q (valid: %s)", s, strings.Join(ValidParentTypes, ", ")),
		}
	}
	return t, nil
}

// parseSpouseStatus validates and converts a string to SpouseStatus. The
// empty string yields def.
func parseSpouseStatus(s string, def entities.SpouseStatus) (entities.SpouseStatus, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" && def != "" {
		return def, nil
	}
	st := entities.SpouseStatus(s)
	if !st.IsValid() {
		return "", &entities.ValidationError{
			Field:   "status",
			Message: fmt.Sprintf("invalid spouse status: %q (valid: %s)", s, strings.Join(ValidSpouseStatuses, ", ")),
		}
	}
	return st, nil
}
