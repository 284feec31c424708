// Package entities contains core domain data structures.
package entities

import (
	"slices"
	"time"
)

// Gender is the self-described gender of a person. The zero value means unset.
type Gender string

const (
	GenderUnset  Gender = ""
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

// IsValid reports whether g is one of the known genders (unset included).
func (g Gender) IsValid() bool {
	switch g {
	case GenderUnset, GenderMale, GenderFemale, GenderOther:
		return true
	}
	return false
}

// SpouseStatus describes the state of a marriage edge.
type SpouseStatus string

const (
	SpouseCurrent   SpouseStatus = "current"
	SpouseDivorced  SpouseStatus = "divorced"
	SpouseWidowed   SpouseStatus = "widowed"
	SpouseSeparated SpouseStatus = "separated"
)

// IsValid reports whether s is a known spouse status.
func (s SpouseStatus) IsValid() bool {
	switch s {
	case SpouseCurrent, SpouseDivorced, SpouseWidowed, SpouseSeparated:
		return true
	}
	return false
}

// ParentType describes how a parent is related to a child.
type ParentType string

const (
	ParentBiological ParentType = "biological"
	ParentStep       ParentType = "step"
	ParentAdoptive   ParentType = "adoptive"
)

// IsValid reports whether t is a known parent type.
func (t ParentType) IsValid() bool {
	switch t {
	case ParentBiological, ParentStep, ParentAdoptive:
		return true
	}
	return false
}

// MaxParents bounds the parent set of a person (two parent pairs).
const MaxParents = 4

// SpouseRelationship is one side of a reciprocal marriage edge.
type SpouseRelationship struct {
	PersonID     string       `json:"person_id" validate:"required"`
	Status       SpouseStatus `json:"status" validate:"omitempty,oneof=current divorced widowed separated"`
	MarriageDate string       `json:"marriage_date,omitempty"`
	DivorceDate  string       `json:"divorce_date,omitempty"`
}

// ParentRelationship points from a child to one of its parents.
type ParentRelationship struct {
	PersonID string     `json:"person_id" validate:"required"`
	Type     ParentType `json:"type" validate:"omitempty,oneof=biological step adoptive"`
}

// Photo is an image attached to a person. Photos are append-only.
type Photo struct {
	ID              string    `json:"id"`
	URL             string    `json:"url"`
	Caption         string    `json:"caption,omitempty"`
	DateTaken       string    `json:"date_taken,omitempty"`
	TaggedPersonIDs []string  `json:"tagged_person_ids"`
	UploadedAt      time.Time `json:"uploaded_at"`
	UploadedBy      string    `json:"uploaded_by"`
}

// Person is one member of a family tree.
//
// SpouseRelationships and ParentRelationships are the stored edge sets.
// SpouseID, SpouseIDs, Parents and Children are projections recomputed by the
// graph after every mutation and are ignored when a person is written back.
type Person struct {
	ID           string    `json:"id"`
	TreeID       string    `json:"tree_id,omitempty"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name,omitempty"`
	MaidenName   string    `json:"maiden_name,omitempty"`
	Nickname     string    `json:"nickname,omitempty"`
	Gender       Gender    `json:"gender,omitempty"`
	BirthDate    string    `json:"birth_date,omitempty"`
	BirthPlace   string    `json:"birth_place,omitempty"`
	DeathDate    string    `json:"death_date,omitempty"`
	DeathPlace   string    `json:"death_place,omitempty"`
	IsLiving     bool      `json:"is_living"`
	ProfilePhoto string    `json:"profile_photo,omitempty"`
	Photos       []Photo   `json:"photos"`
	Bio          string    `json:"bio,omitempty"`
	Occupation   string    `json:"occupation,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	CreatedBy    string    `json:"created_by,omitempty"`

	SpouseRelationships []SpouseRelationship `json:"spouse_relationships"`
	ParentRelationships []ParentRelationship `json:"parent_relationships"`

	SpouseID  string   `json:"spouse_id,omitempty"`
	SpouseIDs []string `json:"spouse_ids"`
	Parents   []string `json:"parents"`
	Children  []string `json:"children"`
}

// Clone returns a deep copy of the person.
func (p *Person) Clone() *Person {
	c := *p
	c.Photos = slices.Clone(p.Photos)
	for i := range c.Photos {
		c.Photos[i].TaggedPersonIDs = slices.Clone(p.Photos[i].TaggedPersonIDs)
	}
	c.SpouseRelationships = slices.Clone(p.SpouseRelationships)
	c.ParentRelationships = slices.Clone(p.ParentRelationships)
	c.SpouseIDs = slices.Clone(p.SpouseIDs)
	c.Parents = slices.Clone(p.Parents)
	c.Children = slices.Clone(p.Children)
	return &c
}

// CurrentSpouse returns the spouse edge with status current, if any.
func (p *Person) CurrentSpouse() (SpouseRelationship, bool) {
	for _, s := range p.SpouseRelationships {
		if s.Status == SpouseCurrent {
			return s, true
		}
	}
	return SpouseRelationship{}, false
}

// SpouseEdge returns this person's spouse edge to otherID, if any.
func (p *Person) SpouseEdge(otherID string) (SpouseRelationship, bool) {
	for _, s := range p.SpouseRelationships {
		if s.PersonID == otherID {
			return s, true
		}
	}
	return SpouseRelationship{}, false
}

// ParentEdge returns this person's parent edge to parentID, if any.
func (p *Person) ParentEdge(parentID string) (ParentRelationship, bool) {
	for _, r := range p.ParentRelationships {
		if r.PersonID == parentID {
			return r, true
		}
	}
	return ParentRelationship{}, false
}

// HasParent reports whether parentID is one of this person's parents.
func (p *Person) HasParent(parentID string) bool {
	_, ok := p.ParentEdge(parentID)
	return ok
}
