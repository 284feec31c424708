package entities

import (
	"time"

	"github.com/google/uuid"
)

// EdgeKind is the label of a relationship edge.
type EdgeKind string

const (
	EdgeParent EdgeKind = "parent"
	EdgeSpouse EdgeKind = "spouse"
)

// edgeNamespace scopes the deterministic edge ids.
var edgeNamespace = uuid.MustParse("6f1d3c52-8a0e-4a4b-9a51-2d0c7e0f5b11")

// Edge is the stored form of a relationship: a directed labeled edge from
// PersonID to RelatedPersonID. Parent edges point child -> parent. Spouse
// edges are stored twice, once per direction, with matching subtypes.
type Edge struct {
	ID              string    `json:"id"`
	TreeID          string    `json:"tree_id,omitempty"`
	PersonID        string    `json:"person_id"`
	RelatedPersonID string    `json:"related_person_id"`
	Kind            EdgeKind  `json:"kind"`
	Subtype         string    `json:"subtype"`
	MarriageDate    string    `json:"marriage_date,omitempty"`
	DivorceDate     string    `json:"divorce_date,omitempty"`
	// Position is the index of the relationship in its owner's list.
	Position        int       `json:"position"`
	CreatedAt       time.Time `json:"created_at"`
}

// EdgeID returns the stable id of the edge (personID, kind, relatedID).
// Rewriting the same logical edge always yields the same id, so backends can
// upsert without duplicating rows.
func EdgeID(personID string, kind EdgeKind, relatedID string) string {
	return uuid.NewSHA1(edgeNamespace, []byte(personID+"|"+string(kind)+"|"+relatedID)).String()
}

// Touches reports whether id is either endpoint of the edge.
func (e Edge) Touches(id string) bool {
	return e.PersonID == id || e.RelatedPersonID == id
}
