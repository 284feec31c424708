package graph

import "github.com/ersonp/roots-core/internal/domain/entities"

// Incomplete lists the basic facts missing from one person's record.
type Incomplete struct {
	Person  *entities.Person `json:"person"`
	Missing []string         `json:"missing"`
}

// Stats summarizes a family tree.
type Stats struct {
	Members     int              `json:"members"`
	Living      int              `json:"living"`
	Marriages   int              `json:"marriages"`
	Generations int              `json:"generations"`
	Oldest      *entities.Person `json:"oldest,omitempty"`
	Youngest    *entities.Person `json:"youngest,omitempty"`
	Incomplete  []Incomplete     `json:"incomplete"`
}

// Stats computes member counts, the oldest and youngest persons by
// parseable birth date, and the records missing a birth date, birthplace or
// parents.
func (g *Graph) Stats() Stats {
	s := Stats{Members: len(g.order)}

	for _, id := range g.order {
		p := g.persons[id]
		if p.IsLiving {
			s.Living++
		}
		for _, sp := range p.SpouseRelationships {
			if id < sp.PersonID {
				s.Marriages++
			}
		}

		if birth, ok := entities.ParseDate(p.BirthDate); ok {
			if s.Oldest == nil {
				s.Oldest, s.Youngest = p, p
			} else {
				if oldest, _ := entities.ParseDate(s.Oldest.BirthDate); birth.Before(oldest) {
					s.Oldest = p
				}
				if youngest, _ := entities.ParseDate(s.Youngest.BirthDate); birth.After(youngest) {
					s.Youngest = p
				}
			}
		}

		var missing []string
		if p.BirthDate == "" {
			missing = append(missing, "birth date")
		}
		if p.BirthPlace == "" {
			missing = append(missing, "birthplace")
		}
		if len(p.ParentRelationships) == 0 {
			missing = append(missing, "parents")
		}
		if len(missing) > 0 {
			s.Incomplete = append(s.Incomplete, Incomplete{Person: p, Missing: missing})
		}
	}

	for _, unit := range g.BuildForest("") {
		if d := depth(unit); d > s.Generations {
			s.Generations = d
		}
	}
	return s
}

func depth(u *FamilyUnit) int {
	deepest := 0
	stack := []*FamilyUnit{u}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if cur.Generation+1 > deepest {
			deepest = cur.Generation + 1
		}
		stack = append(stack, cur.Children...)
	}
	return deepest
}
