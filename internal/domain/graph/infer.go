package graph

import "github.com/ersonp/roots-core/internal/domain/entities"

// Kinship is the kind of relation found between two persons.
type Kinship string

const (
	KinSelf        Kinship = "self"
	KinParent      Kinship = "parent"
	KinChild       Kinship = "child"
	KinSpouse      Kinship = "spouse"
	KinSibling     Kinship = "sibling"
	KinHalfSibling Kinship = "half_sibling"
	KinGrandparent Kinship = "grandparent"
	KinRelated     Kinship = "related"
)

// labels holds the male, female and neutral label of each kinship.
var labels = map[Kinship][3]string{
	KinSelf:        {"Self", "Self", "Self"},
	KinParent:      {"Father", "Mother", "Parent"},
	KinChild:       {"Son", "Daughter", "Child"},
	KinSpouse:      {"Husband", "Wife", "Spouse"},
	KinSibling:     {"Brother", "Sister", "Sibling"},
	KinHalfSibling: {"Half-Brother", "Half-Sister", "Half-Sibling"},
	KinGrandparent: {"Grandfather", "Grandmother", "Grandparent"},
	KinRelated:     {"Related", "Related", "Related"},
}

// Relation is how one person relates to another.
type Relation struct {
	Kinship Kinship `json:"kinship"`
	Label   string  `json:"label"`
}

// Describe returns how b relates to a, worded by b's gender. The first
// match wins: parent, child, spouse of any status, full or half sibling,
// grandparent. Anything else, cousins and in-laws included, is "Related".
func (g *Graph) Describe(a, b string) (Relation, error) {
	pa, err := g.MustPerson(a)
	if err != nil {
		return Relation{}, err
	}
	pb, err := g.MustPerson(b)
	if err != nil {
		return Relation{}, err
	}

	kin := g.kinship(pa, pb)
	return Relation{Kinship: kin, Label: Label(kin, pb.Gender)}, nil
}

func (g *Graph) kinship(a, b *entities.Person) Kinship {
	if a.ID == b.ID {
		return KinSelf
	}
	if a.HasParent(b.ID) {
		return KinParent
	}
	if b.HasParent(a.ID) {
		return KinChild
	}
	if _, ok := a.SpouseEdge(b.ID); ok {
		return KinSpouse
	}

	shared := 0
	for _, pid := range a.Parents {
		if b.HasParent(pid) {
			shared++
		}
	}
	switch {
	case shared >= 2:
		return KinSibling
	case shared == 1:
		return KinHalfSibling
	}

	for _, pid := range a.Parents {
		if parent, ok := g.persons[pid]; ok && parent.HasParent(b.ID) {
			return KinGrandparent
		}
	}
	return KinRelated
}

// Label words a kinship for a person of the given gender.
func Label(kin Kinship, gender entities.Gender) string {
	l, ok := labels[kin]
	if !ok {
		l = labels[KinRelated]
	}
	switch gender {
	case entities.GenderMale:
		return l[0]
	case entities.GenderFemale:
		return l[1]
	default:
		return l[2]
	}
}
