package handlers

import (
	"fmt"
	"io"
	"strings"

	"github.com/ersonp/roots-core/internal/domain/entities"
	"github.com/ersonp/roots-core/internal/domain/graph"
	"github.com/ersonp/roots-core/internal/domain/services"
	"github.com/ersonp/roots-core/internal/infrastructure/parsers"
)

// TreeHandler handles whole-tree views: the family forest, statistics,
// invariant checks and export.
type TreeHandler struct {
	family *services.FamilyService
}

// NewTreeHandler creates a new TreeHandler.
func NewTreeHandler(family *services.FamilyService) *TreeHandler {
	return &TreeHandler{
		family: family,
	}
}

// HandleForest builds the family forest, optionally rooted at the persons
// matching filter.
func (h *TreeHandler) HandleForest(filter string) []*graph.FamilyUnit {
	return h.family.Graph().BuildForest(filter)
}

// HandleStats summarizes the tree.
func (h *TreeHandler) HandleStats() graph.Stats {
	return h.family.Graph().Stats()
}

// HandleCheck lists every invariant violation of the stored tree.
func (h *TreeHandler) HandleCheck() []graph.Violation {
	return h.family.Graph().Check()
}

// HandleExport writes the tree in the given format ("json" or "csv").
func (h *TreeHandler) HandleExport(w io.Writer, format string) error {
	g := h.family.Graph()
	persons := make([]entities.Person, 0, g.Len())
	for _, p := range g.Persons() {
		persons = append(persons, *p)
	}

	switch strings.ToLower(format) {
	case "", "json":
		return parsers.WriteJSON(w, parsers.Document{
			TreeID:  h.family.TreeID(),
			Persons: persons,
			Edges:   g.Edges(),
		})
	case "csv":
		return parsers.WriteCSV(w, persons)
	default:
		return fmt.Errorf("unsupported export format: %s (valid: json, csv)", format)
	}
}

// RenderForest writes the forest as an indented outline, one family unit per
// line: the person, their current spouse after "=", and former spouses
// after "x".
func RenderForest(w io.Writer, forest []*graph.FamilyUnit) error {
	type frame struct {
		unit  *graph.FamilyUnit
		depth int
	}

	for _, root := range forest {
		stack := []frame{{unit: root}}
		for len(stack) > 0 {
			f := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			if _, err := fmt.Fprintf(w, "%s%s\n", strings.Repeat("  ", f.depth), unitLine(f.unit)); err != nil {
				return err
			}
			for i := len(f.unit.Children) - 1; i >= 0; i-- {
				stack = append(stack, frame{unit: f.unit.Children[i], depth: f.depth + 1})
			}
		}
	}
	return nil
}

func unitLine(u *graph.FamilyUnit) string {
	var b strings.Builder
	b.WriteString(personLabel(u.Person))
	if u.CurrentSpouse != nil {
		b.WriteString(" = ")
		b.WriteString(personLabel(u.CurrentSpouse))
	}
	for _, ex := range u.ExSpouses {
		fmt.Fprintf(&b, " x %s (%s)", personLabel(ex.Person), ex.Relationship.Status)
	}
	return b.String()
}

// personLabel renders "Full Name (life span) [id]".
func personLabel(p *entities.Person) string {
	label := p.FullName()
	if span := p.LifeSpan(); span != "" {
		label += " (" + span + ")"
	}
	return label + " [" + p.ID + "]"
}
