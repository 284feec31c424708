package graph

import (
	"reflect"

	"github.com/ersonp/roots-core/internal/domain/entities"
)

// ChangeSet is what a store must do to turn one graph into another.
//
// Written persons need their record saved. Deleted persons need their record
// and every edge touching them removed. Rewired persons need every edge
// touching them replaced by the edges touching them in the new graph.
type ChangeSet struct {
	Written []*entities.Person
	Deleted []string
	Rewired []string
}

// Empty reports whether the change set has nothing to do.
func (c ChangeSet) Empty() bool {
	return len(c.Written) == 0 && len(c.Deleted) == 0 && len(c.Rewired) == 0
}

// Diff computes the change set from old to next.
func Diff(old, next *Graph) ChangeSet {
	var cs ChangeSet

	for _, id := range old.order {
		if _, ok := next.persons[id]; !ok {
			cs.Deleted = append(cs.Deleted, id)
		}
	}

	for _, id := range next.order {
		p := next.persons[id]
		prev, existed := old.persons[id]
		if !existed {
			cs.Written = append(cs.Written, p)
			if len(p.ParentRelationships) > 0 || len(p.SpouseRelationships) > 0 {
				cs.Rewired = append(cs.Rewired, id)
			}
			continue
		}
		if !sameRecord(prev, p) {
			cs.Written = append(cs.Written, p)
		}
		if !reflect.DeepEqual(prev.ParentRelationships, p.ParentRelationships) ||
			!reflect.DeepEqual(prev.SpouseRelationships, p.SpouseRelationships) {
			cs.Rewired = append(cs.Rewired, id)
		}
	}
	return cs
}

// sameRecord compares the stored fields of two versions of a person,
// ignoring edges and projections.
func sameRecord(a, b *entities.Person) bool {
	ac, bc := *a, *b
	for _, p := range []*entities.Person{&ac, &bc} {
		p.SpouseRelationships = nil
		p.ParentRelationships = nil
		p.SpouseID = ""
		p.SpouseIDs = nil
		p.Parents = nil
		p.Children = nil
	}
	return reflect.DeepEqual(ac, bc)
}
