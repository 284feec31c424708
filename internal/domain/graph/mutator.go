package graph

import (
	"strings"

	"github.com/ersonp/roots-core/internal/domain/entities"
)

// Relationships are the two edge sets of a person as supplied by a caller.
type Relationships struct {
	Spouses []entities.SpouseRelationship `json:"spouse_relationships" validate:"dive"`
	Parents []entities.ParentRelationship `json:"parent_relationships" validate:"max=4,dive"`
}

// PersonInput holds the fields of a person being created.
type PersonInput struct {
	// ID is optional; one is generated when empty. Imports use it to keep
	// the ids of the source document.
	ID           string          `json:"id,omitempty"`
	FirstName    string          `json:"first_name" validate:"required"`
	LastName     string          `json:"last_name,omitempty"`
	MaidenName   string          `json:"maiden_name,omitempty"`
	Nickname     string          `json:"nickname,omitempty"`
	Gender       entities.Gender `json:"gender,omitempty" validate:"omitempty,oneof=male female other"`
	BirthDate    string          `json:"birth_date,omitempty"`
	BirthPlace   string          `json:"birth_place,omitempty"`
	DeathDate    string          `json:"death_date,omitempty"`
	DeathPlace   string          `json:"death_place,omitempty"`
	IsLiving     *bool           `json:"is_living,omitempty"`
	ProfilePhoto string          `json:"profile_photo,omitempty"`
	Bio          string          `json:"bio,omitempty"`
	Occupation   string          `json:"occupation,omitempty"`

	Relationships Relationships `json:"relationships"`
}

// PersonPatch holds scalar changes to a person. Nil fields are left alone.
// When Relationships is set, both edge sets of the person are replaced
// wholesale; a nil slice inside it means "no edges of that kind".
type PersonPatch struct {
	FirstName    *string          `json:"first_name,omitempty"`
	LastName     *string          `json:"last_name,omitempty"`
	MaidenName   *string          `json:"maiden_name,omitempty"`
	Nickname     *string          `json:"nickname,omitempty"`
	Gender       *entities.Gender `json:"gender,omitempty"`
	BirthDate    *string          `json:"birth_date,omitempty"`
	BirthPlace   *string          `json:"birth_place,omitempty"`
	DeathDate    *string          `json:"death_date,omitempty"`
	DeathPlace   *string          `json:"death_place,omitempty"`
	IsLiving     *bool            `json:"is_living,omitempty"`
	ProfilePhoto *string          `json:"profile_photo,omitempty"`
	Bio          *string          `json:"bio,omitempty"`
	Occupation   *string          `json:"occupation,omitempty"`

	Relationships *Relationships `json:"relationships,omitempty"`
}

// PhotoInput describes a photo being attached to a person.
type PhotoInput struct {
	URL       string `json:"url" validate:"required"`
	Caption   string `json:"caption,omitempty"`
	DateTaken string `json:"date_taken,omitempty"`
}

// CreatePerson adds a new person with the supplied relationship sets.
func (g *Graph) CreatePerson(in PersonInput, actor string) (*Graph, *entities.Person, error) {
	in.FirstName = strings.TrimSpace(in.FirstName)
	if err := validateStruct(in); err != nil {
		return nil, nil, err
	}

	id := in.ID
	if id == "" {
		id = g.newID()
	} else if _, exists := g.persons[id]; exists {
		return nil, nil, &entities.ValidationError{Field: "id", Message: "already exists: " + id}
	}

	isLiving := true
	if in.IsLiving != nil {
		isLiving = *in.IsLiving
	}

	now := g.now()
	p := &entities.Person{
		ID:           id,
		TreeID:       g.treeID,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		MaidenName:   in.MaidenName,
		Nickname:     in.Nickname,
		Gender:       in.Gender,
		BirthDate:    in.BirthDate,
		BirthPlace:   in.BirthPlace,
		DeathDate:    in.DeathDate,
		DeathPlace:   in.DeathPlace,
		IsLiving:     isLiving,
		ProfilePhoto: in.ProfilePhoto,
		Photos:       []entities.Photo{},
		Bio:          in.Bio,
		Occupation:   in.Occupation,
		CreatedAt:    now,
		UpdatedAt:    now,
		CreatedBy:    actor,
	}

	next := g.clone()
	next.persons[id] = p
	next.order = append(next.order, id)

	if err := next.replaceRelationships(id, in.Relationships); err != nil {
		return nil, nil, err
	}
	if err := next.commit(g); err != nil {
		return nil, nil, err
	}
	return next, next.persons[id], nil
}

// UpdatePerson merges the scalar fields of patch into the person and, when
// patch carries relationships, replaces both of its edge sets. Every previous
// edge from the person and every reciprocal spouse edge pointing back to it
// is removed before the new sets are inserted.
func (g *Graph) UpdatePerson(id string, patch PersonPatch) (*Graph, *entities.Person, error) {
	if _, err := g.MustPerson(id); err != nil {
		return nil, nil, err
	}
	if patch.Gender != nil && !patch.Gender.IsValid() {
		return nil, nil, &entities.ValidationError{Field: "gender", Message: "must be one of: male female other"}
	}
	if patch.Relationships != nil {
		if err := validateStruct(*patch.Relationships); err != nil {
			return nil, nil, err
		}
	}

	next := g.clone()
	p := next.persons[id]

	if patch.FirstName != nil {
		p.FirstName = strings.TrimSpace(*patch.FirstName)
		if p.FirstName == "" {
			return nil, nil, &entities.ValidationError{Field: "first_name", Message: "is required"}
		}
	}
	setString(&p.LastName, patch.LastName)
	setString(&p.MaidenName, patch.MaidenName)
	setString(&p.Nickname, patch.Nickname)
	setString(&p.BirthDate, patch.BirthDate)
	setString(&p.BirthPlace, patch.BirthPlace)
	setString(&p.DeathDate, patch.DeathDate)
	setString(&p.DeathPlace, patch.DeathPlace)
	setString(&p.ProfilePhoto, patch.ProfilePhoto)
	setString(&p.Bio, patch.Bio)
	setString(&p.Occupation, patch.Occupation)
	if patch.Gender != nil {
		p.Gender = *patch.Gender
	}
	if patch.IsLiving != nil {
		p.IsLiving = *patch.IsLiving
	}
	p.UpdatedAt = next.now()

	if patch.Relationships != nil {
		if err := next.replaceRelationships(id, *patch.Relationships); err != nil {
			return nil, nil, err
		}
	}
	if err := next.commit(g); err != nil {
		return nil, nil, err
	}
	return next, next.persons[id], nil
}

// DeletePerson removes the person and every edge that references it from
// either side. Deleting an absent id returns the graph unchanged and false.
func (g *Graph) DeletePerson(id string) (*Graph, bool) {
	if _, ok := g.persons[id]; !ok {
		return g, false
	}

	next := g.clone()
	delete(next.persons, id)
	for i, oid := range next.order {
		if oid == id {
			next.order = append(next.order[:i], next.order[i+1:]...)
			break
		}
	}
	for _, oid := range next.order {
		p := next.persons[oid]
		p.ParentRelationships = withoutParent(p.ParentRelationships, id)
		p.SpouseRelationships = withoutSpouse(p.SpouseRelationships, id)
	}

	next.reindex()
	return next, true
}

// SetSpouseStatus changes the status of an existing marriage on both sides.
// Marking it current demotes any other current marriage of either partner
// to divorced.
func (g *Graph) SetSpouseStatus(personID, otherID string, status entities.SpouseStatus) (*Graph, error) {
	if !status.IsValid() {
		return nil, &entities.ValidationError{Field: "status", Message: "must be one of: current divorced widowed separated"}
	}
	if err := g.requirePersons(personID, otherID); err != nil {
		return nil, err
	}
	p := g.persons[personID]
	if _, ok := p.SpouseEdge(otherID); !ok {
		return nil, spouseNotFound(personID, otherID)
	}

	next := g.clone()
	if status == entities.SpouseCurrent {
		if err := next.checkCurrentSpouse(personID, otherID); err != nil {
			return nil, err
		}
		next.demoteCurrent(personID, otherID)
		next.demoteCurrent(otherID, personID)
	}
	next.updateSpouse(personID, otherID, func(s *entities.SpouseRelationship) {
		s.Status = status
	})

	if err := next.commit(g); err != nil {
		return nil, err
	}
	return next, nil
}

// SetSpouseDates records the marriage and divorce dates of an existing
// marriage on both sides. Empty values clear the date.
func (g *Graph) SetSpouseDates(personID, otherID, marriageDate, divorceDate string) (*Graph, error) {
	if err := g.requirePersons(personID, otherID); err != nil {
		return nil, err
	}
	if _, ok := g.persons[personID].SpouseEdge(otherID); !ok {
		return nil, spouseNotFound(personID, otherID)
	}

	next := g.clone()
	next.updateSpouse(personID, otherID, func(s *entities.SpouseRelationship) {
		s.MarriageDate = strings.TrimSpace(marriageDate)
		s.DivorceDate = strings.TrimSpace(divorceDate)
	})
	next.reindex()
	return next, nil
}

// SetParentType changes the subtype of one existing parent edge.
func (g *Graph) SetParentType(personID, parentID string, t entities.ParentType) (*Graph, error) {
	if !t.IsValid() {
		return nil, &entities.ValidationError{Field: "type", Message: "must be one of: biological step adoptive"}
	}
	p, err := g.MustPerson(personID)
	if err != nil {
		return nil, err
	}
	if !p.HasParent(parentID) {
		return nil, parentNotFound(personID, parentID)
	}

	next := g.clone()
	rels := next.persons[personID].ParentRelationships
	for i := range rels {
		if rels[i].PersonID == parentID {
			rels[i].Type = t
		}
	}
	next.persons[personID].UpdatedAt = next.now()

	if err := next.commit(g); err != nil {
		return nil, err
	}
	return next, nil
}

// AddChild adds a single parent edge from childID to parentID.
func (g *Graph) AddChild(parentID, childID string, t entities.ParentType) (*Graph, error) {
	if t == "" {
		t = entities.ParentBiological
	}
	if !t.IsValid() {
		return nil, &entities.ValidationError{Field: "type", Message: "must be one of: biological step adoptive"}
	}
	if err := g.requirePersons(childID, parentID); err != nil {
		return nil, err
	}
	child := g.persons[childID]
	if child.HasParent(parentID) {
		return nil, &entities.ValidationError{Field: "parent_relationships", Message: "duplicate person " + parentID}
	}
	if len(child.ParentRelationships) >= entities.MaxParents {
		return nil, tooManyParents()
	}
	if err := g.checkParent(childID, parentID, child.SpouseID, g.descendantSet(childID)); err != nil {
		return nil, err
	}

	next := g.clone()
	c := next.persons[childID]
	c.ParentRelationships = append(c.ParentRelationships, entities.ParentRelationship{PersonID: parentID, Type: t})
	c.UpdatedAt = next.now()

	if err := next.commit(g); err != nil {
		return nil, err
	}
	return next, nil
}

// AddSpouse links two persons by a new marriage. A current marriage demotes
// any other current marriage of either partner.
func (g *Graph) AddSpouse(a, b string, status entities.SpouseStatus, marriageDate string) (*Graph, error) {
	if status == "" {
		status = entities.SpouseCurrent
	}
	if !status.IsValid() {
		return nil, &entities.ValidationError{Field: "status", Message: "must be one of: current divorced widowed separated"}
	}
	if a == b {
		return nil, &entities.ValidationError{Field: "spouse_relationships", Message: "a person cannot marry themselves"}
	}
	if err := g.requirePersons(a, b); err != nil {
		return nil, err
	}
	if _, exists := g.persons[a].SpouseEdge(b); exists {
		return nil, &entities.ValidationError{Field: "spouse_relationships", Message: "duplicate person " + b}
	}

	next := g.clone()
	if status == entities.SpouseCurrent {
		if err := next.checkCurrentSpouse(a, b); err != nil {
			return nil, err
		}
		next.demoteCurrent(a, b)
		next.demoteCurrent(b, a)
	}
	next.link(a, entities.SpouseRelationship{PersonID: b, Status: status, MarriageDate: marriageDate})

	if err := next.commit(g); err != nil {
		return nil, err
	}
	return next, nil
}

// RemoveParent deletes the parent edge from childID to parentID.
func (g *Graph) RemoveParent(childID, parentID string) (*Graph, error) {
	child, err := g.MustPerson(childID)
	if err != nil {
		return nil, err
	}
	if !child.HasParent(parentID) {
		return nil, parentNotFound(childID, parentID)
	}

	next := g.clone()
	c := next.persons[childID]
	c.ParentRelationships = withoutParent(c.ParentRelationships, parentID)
	c.UpdatedAt = next.now()
	next.reindex()
	return next, nil
}

// RemoveSpouse deletes both directions of the marriage between a and b.
func (g *Graph) RemoveSpouse(a, b string) (*Graph, error) {
	if err := g.requirePersons(a, b); err != nil {
		return nil, err
	}
	if _, ok := g.persons[a].SpouseEdge(b); !ok {
		return nil, spouseNotFound(a, b)
	}

	next := g.clone()
	pa, pb := next.persons[a], next.persons[b]
	pa.SpouseRelationships = withoutSpouse(pa.SpouseRelationships, b)
	pb.SpouseRelationships = withoutSpouse(pb.SpouseRelationships, a)
	pa.UpdatedAt = next.now()
	pb.UpdatedAt = pa.UpdatedAt
	next.reindex()
	return next, nil
}

// AddPhoto appends a photo to the person, tagged with the person.
func (g *Graph) AddPhoto(personID string, in PhotoInput, actor string) (*Graph, *entities.Photo, error) {
	if err := validateStruct(in); err != nil {
		return nil, nil, err
	}
	if _, err := g.MustPerson(personID); err != nil {
		return nil, nil, err
	}

	next := g.clone()
	p := next.persons[personID]
	now := next.now()
	p.Photos = append(p.Photos, entities.Photo{
		ID:              next.newID(),
		URL:             in.URL,
		Caption:         in.Caption,
		DateTaken:       in.DateTaken,
		TaggedPersonIDs: []string{personID},
		UploadedAt:      now,
		UploadedBy:      actor,
	})
	p.UpdatedAt = now
	next.reindex()
	return next, &p.Photos[len(p.Photos)-1], nil
}

// SetProfilePhoto replaces the profile photo reference of the person.
func (g *Graph) SetProfilePhoto(personID, url string) (*Graph, error) {
	if _, err := g.MustPerson(personID); err != nil {
		return nil, err
	}

	next := g.clone()
	p := next.persons[personID]
	p.ProfilePhoto = strings.TrimSpace(url)
	p.UpdatedAt = next.now()
	next.reindex()
	return next, nil
}

// replaceRelationships swaps both edge sets of id for rels. It works on a
// clone and may leave it half-edited when it returns an error.
func (g *Graph) replaceRelationships(id string, rels Relationships) error {
	parents, spouses, err := g.normalize(id, rels)
	if err != nil {
		return err
	}

	p := g.persons[id]
	for _, s := range p.SpouseRelationships {
		if other, ok := g.persons[s.PersonID]; ok {
			other.SpouseRelationships = withoutSpouse(other.SpouseRelationships, id)
		}
	}
	p.SpouseRelationships = nil
	p.ParentRelationships = nil

	var current string
	for _, s := range spouses {
		if s.Status == entities.SpouseCurrent {
			current = s.PersonID
		}
	}

	desc := g.descendantSet(id)
	for _, r := range parents {
		if err := g.checkParent(id, r.PersonID, current, desc); err != nil {
			return err
		}
	}
	if current != "" && g.persons[current].HasParent(id) {
		return &entities.CycleError{PersonID: current, RelatedID: id, Reason: "parent cannot be the current spouse"}
	}

	p.ParentRelationships = parents
	for _, s := range spouses {
		if s.Status == entities.SpouseCurrent {
			g.demoteCurrent(s.PersonID, id)
		}
		g.link(id, s)
	}
	return nil
}

// normalize applies defaults and rejects duplicates, unknown ids and self
// references. Among several current spouses the last one wins; the earlier
// ones are demoted to divorced.
func (g *Graph) normalize(id string, rels Relationships) ([]entities.ParentRelationship, []entities.SpouseRelationship, error) {
	if len(rels.Parents) > entities.MaxParents {
		return nil, nil, tooManyParents()
	}

	var parents []entities.ParentRelationship
	seen := make(map[string]bool, len(rels.Parents))
	for _, r := range rels.Parents {
		if r.Type == "" {
			r.Type = entities.ParentBiological
		}
		if !r.Type.IsValid() {
			return nil, nil, &entities.ValidationError{Field: "parent_relationships", Message: "unknown parent type " + string(r.Type)}
		}
		if seen[r.PersonID] {
			return nil, nil, &entities.ValidationError{Field: "parent_relationships", Message: "duplicate person " + r.PersonID}
		}
		seen[r.PersonID] = true
		if r.PersonID == id {
			return nil, nil, &entities.CycleError{PersonID: id, RelatedID: id, Reason: "a person cannot be their own parent"}
		}
		if _, ok := g.persons[r.PersonID]; !ok {
			return nil, nil, &entities.NotFoundError{Kind: "person", ID: r.PersonID}
		}
		parents = append(parents, r)
	}

	var spouses []entities.SpouseRelationship
	seen = make(map[string]bool, len(rels.Spouses))
	lastCurrent := -1
	for _, s := range rels.Spouses {
		if s.Status == "" {
			s.Status = entities.SpouseCurrent
		}
		if !s.Status.IsValid() {
			return nil, nil, &entities.ValidationError{Field: "spouse_relationships", Message: "unknown spouse status " + string(s.Status)}
		}
		if seen[s.PersonID] {
			return nil, nil, &entities.ValidationError{Field: "spouse_relationships", Message: "duplicate person " + s.PersonID}
		}
		seen[s.PersonID] = true
		if s.PersonID == id {
			return nil, nil, &entities.ValidationError{Field: "spouse_relationships", Message: "a person cannot marry themselves"}
		}
		if _, ok := g.persons[s.PersonID]; !ok {
			return nil, nil, &entities.NotFoundError{Kind: "person", ID: s.PersonID}
		}
		if s.Status == entities.SpouseCurrent {
			lastCurrent = len(spouses)
		}
		spouses = append(spouses, s)
	}
	for i := range spouses {
		if spouses[i].Status == entities.SpouseCurrent && i != lastCurrent {
			spouses[i].Status = entities.SpouseDivorced
		}
	}

	return parents, spouses, nil
}

// checkParent rejects parentID as a parent of childID when it is the child,
// one of its descendants, or its current spouse.
func (g *Graph) checkParent(childID, parentID, currentSpouse string, desc map[string]bool) error {
	switch {
	case parentID == childID:
		return &entities.CycleError{PersonID: childID, RelatedID: parentID, Reason: "a person cannot be their own parent"}
	case desc[parentID]:
		return &entities.CycleError{PersonID: childID, RelatedID: parentID, Reason: "is a descendant"}
	case parentID == currentSpouse:
		return &entities.CycleError{PersonID: childID, RelatedID: parentID, Reason: "parent cannot be the current spouse"}
	}
	return nil
}

// checkCurrentSpouse rejects a current marriage between a parent and child.
func (g *Graph) checkCurrentSpouse(a, b string) error {
	if g.persons[a].HasParent(b) {
		return &entities.CycleError{PersonID: a, RelatedID: b, Reason: "parent cannot be the current spouse"}
	}
	if g.persons[b].HasParent(a) {
		return &entities.CycleError{PersonID: b, RelatedID: a, Reason: "parent cannot be the current spouse"}
	}
	return nil
}

// demoteCurrent marks every current marriage of id, except the one to
// keep, as divorced on both sides.
func (g *Graph) demoteCurrent(id, keep string) {
	p := g.persons[id]
	for i := range p.SpouseRelationships {
		s := &p.SpouseRelationships[i]
		if s.Status != entities.SpouseCurrent || s.PersonID == keep {
			continue
		}
		s.Status = entities.SpouseDivorced
		if other, ok := g.persons[s.PersonID]; ok {
			for j := range other.SpouseRelationships {
				if other.SpouseRelationships[j].PersonID == id {
					other.SpouseRelationships[j].Status = entities.SpouseDivorced
				}
			}
			other.UpdatedAt = g.now()
		}
	}
}

// link adds the marriage s to id and its reverse to the partner.
func (g *Graph) link(id string, s entities.SpouseRelationship) {
	p := g.persons[id]
	other := g.persons[s.PersonID]
	p.SpouseRelationships = append(p.SpouseRelationships, s)
	other.SpouseRelationships = append(other.SpouseRelationships, entities.SpouseRelationship{
		PersonID:     id,
		Status:       s.Status,
		MarriageDate: s.MarriageDate,
		DivorceDate:  s.DivorceDate,
	})
	now := g.now()
	p.UpdatedAt = now
	other.UpdatedAt = now
}

// updateSpouse applies fn to both directions of the marriage a-b.
func (g *Graph) updateSpouse(a, b string, fn func(*entities.SpouseRelationship)) {
	now := g.now()
	for _, pair := range [][2]string{{a, b}, {b, a}} {
		p := g.persons[pair[0]]
		for i := range p.SpouseRelationships {
			if p.SpouseRelationships[i].PersonID == pair[1] {
				fn(&p.SpouseRelationships[i])
			}
		}
		p.UpdatedAt = now
	}
}

// commit recomputes projections and rejects the mutation if it introduced
// an invariant violation that prev did not already have.
func (g *Graph) commit(prev *Graph) error {
	g.reindex()

	before := make(map[string]bool)
	for _, v := range prev.Check() {
		before[v.key()] = true
	}
	for _, v := range g.Check() {
		if !before[v.key()] {
			return v.asError()
		}
	}
	return nil
}

func (g *Graph) requirePersons(ids ...string) error {
	for _, id := range ids {
		if _, ok := g.persons[id]; !ok {
			return &entities.NotFoundError{Kind: "person", ID: id}
		}
	}
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}

func withoutParent(rels []entities.ParentRelationship, id string) []entities.ParentRelationship {
	out := rels[:0]
	for _, r := range rels {
		if r.PersonID != id {
			out = append(out, r)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func withoutSpouse(rels []entities.SpouseRelationship, id string) []entities.SpouseRelationship {
	out := rels[:0]
	for _, s := range rels {
		if s.PersonID != id {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func tooManyParents() error {
	return &entities.ValidationError{Field: "parent_relationships", Message: "must have at most 4 entries"}
}

func parentNotFound(childID, parentID string) error {
	return &entities.NotFoundError{Kind: "parent relationship", ID: childID + " -> " + parentID}
}

func spouseNotFound(a, b string) error {
	return &entities.NotFoundError{Kind: "spouse relationship", ID: a + " <-> " + b}
}
