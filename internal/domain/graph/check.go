package graph

import (
	"fmt"

	"github.com/ersonp/roots-core/internal/domain/entities"
)

// Rule names an invariant of the graph.
type Rule string

const (
	RuleAncestorCycle    Rule = "ancestor_cycle"
	RuleParentIsSpouse   Rule = "parent_is_current_spouse"
	RuleMultipleCurrent  Rule = "multiple_current_spouses"
	RuleAsymmetricSpouse Rule = "asymmetric_spouse"
	RuleTooManyParents   Rule = "too_many_parents"
	RuleDuplicateEdge    Rule = "duplicate_edge"
	RuleDanglingEdge     Rule = "dangling_edge"
)

// Violation is one broken invariant.
type Violation struct {
	Rule      Rule   `json:"rule"`
	PersonID  string `json:"person_id"`
	RelatedID string `json:"related_id,omitempty"`
	Message   string `json:"message"`
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: %s", v.Rule, v.Message)
}

func (v Violation) key() string {
	return string(v.Rule) + "|" + v.PersonID + "|" + v.RelatedID
}

func (v Violation) asError() error {
	switch v.Rule {
	case RuleAncestorCycle, RuleParentIsSpouse:
		return &entities.CycleError{PersonID: v.PersonID, RelatedID: v.RelatedID, Reason: v.Message}
	case RuleDanglingEdge:
		return &entities.NotFoundError{Kind: "person", ID: v.RelatedID}
	default:
		return &entities.ValidationError{Field: string(v.Rule), Message: v.Message}
	}
}

// Check returns every invariant violation in the graph, grouped by person in
// insertion order. A graph built only through mutations has none.
func (g *Graph) Check() []Violation {
	var out []Violation
	children := g.childrenIndex()

	for _, id := range g.order {
		p := g.persons[id]

		if len(p.ParentRelationships) > entities.MaxParents {
			out = append(out, Violation{
				Rule:     RuleTooManyParents,
				PersonID: id,
				Message:  fmt.Sprintf("%s has %d parents", id, len(p.ParentRelationships)),
			})
		}

		seen := make(map[string]bool)
		for _, r := range p.ParentRelationships {
			if seen[r.PersonID] {
				out = append(out, Violation{
					Rule: RuleDuplicateEdge, PersonID: id, RelatedID: r.PersonID,
					Message: fmt.Sprintf("%s lists parent %s twice", id, r.PersonID),
				})
			}
			seen[r.PersonID] = true
			if _, ok := g.persons[r.PersonID]; !ok {
				out = append(out, Violation{
					Rule: RuleDanglingEdge, PersonID: id, RelatedID: r.PersonID,
					Message: fmt.Sprintf("%s has unknown parent %s", id, r.PersonID),
				})
			}
		}

		if g.reachesItself(id, children) {
			out = append(out, Violation{
				Rule:     RuleAncestorCycle,
				PersonID: id,
				Message:  fmt.Sprintf("%s is their own ancestor", id),
			})
		}

		seen = make(map[string]bool)
		currents := 0
		for _, s := range p.SpouseRelationships {
			if seen[s.PersonID] {
				out = append(out, Violation{
					Rule: RuleDuplicateEdge, PersonID: id, RelatedID: s.PersonID,
					Message: fmt.Sprintf("%s lists spouse %s twice", id, s.PersonID),
				})
			}
			seen[s.PersonID] = true

			other, ok := g.persons[s.PersonID]
			if !ok {
				out = append(out, Violation{
					Rule: RuleDanglingEdge, PersonID: id, RelatedID: s.PersonID,
					Message: fmt.Sprintf("%s has unknown spouse %s", id, s.PersonID),
				})
				continue
			}
			if back, ok := other.SpouseEdge(id); !ok || back.Status != s.Status {
				out = append(out, Violation{
					Rule: RuleAsymmetricSpouse, PersonID: id, RelatedID: s.PersonID,
					Message: fmt.Sprintf("marriage %s -> %s is %s but its reverse does not match", id, s.PersonID, s.Status),
				})
			}

			if s.Status != entities.SpouseCurrent {
				continue
			}
			currents++
			if p.HasParent(s.PersonID) {
				out = append(out, Violation{
					Rule: RuleParentIsSpouse, PersonID: id, RelatedID: s.PersonID,
					Message: fmt.Sprintf("%s is both parent and current spouse of %s", s.PersonID, id),
				})
			}
		}
		if currents > 1 {
			out = append(out, Violation{
				Rule:     RuleMultipleCurrent,
				PersonID: id,
				Message:  fmt.Sprintf("%s has %d current spouses", id, currents),
			})
		}
	}
	return out
}
