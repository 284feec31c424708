package parsers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/ersonp/roots-core/internal/domain/entities"
)

// JSONParser parses persons from JSON: either an exported Document or a bare
// array of persons.
type JSONParser struct{}

// Parse reads JSON from the reader and returns parsed persons.
func (p *JSONParser) Parse(r io.Reader) ([]RawPerson, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading JSON: %w", err)
	}

	var persons []RawPerson
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '{' {
		persons, err = parseDocument(trimmed)
	} else if err = json.Unmarshal(data, &persons); err != nil {
		err = fmt.Errorf("parsing JSON: %w", err)
	}
	if err != nil {
		return nil, err
	}

	// Set line numbers (array index + 1, 1-indexed)
	for i := range persons {
		persons[i].LineNum = i + 1
	}

	return persons, nil
}

// parseDocument folds the edges of a Document into the relationship sets of
// its persons.
func parseDocument(data []byte) ([]RawPerson, error) {
	var doc struct {
		Persons []RawPerson     `json:"persons"`
		Edges   []entities.Edge `json:"edges"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing JSON document: %w", err)
	}

	index := make(map[string]int, len(doc.Persons))
	for i := range doc.Persons {
		if doc.Persons[i].ID != "" {
			index[doc.Persons[i].ID] = i
		}
	}

	for _, e := range doc.Edges {
		i, ok := index[e.PersonID]
		if !ok {
			continue
		}
		raw := &doc.Persons[i]
		switch e.Kind {
		case entities.EdgeParent:
			if !hasParent(raw, e.RelatedPersonID) {
				raw.ParentRelationships = append(raw.ParentRelationships, entities.ParentRelationship{
					PersonID: e.RelatedPersonID,
					Type:     entities.ParentType(e.Subtype),
				})
			}
		case entities.EdgeSpouse:
			if !hasSpouse(raw, e.RelatedPersonID) {
				raw.SpouseRelationships = append(raw.SpouseRelationships, entities.SpouseRelationship{
					PersonID:     e.RelatedPersonID,
					Status:       entities.SpouseStatus(e.Subtype),
					MarriageDate: e.MarriageDate,
					DivorceDate:  e.DivorceDate,
				})
			}
		}
	}
	return doc.Persons, nil
}

func hasParent(raw *RawPerson, id string) bool {
	for _, r := range raw.ParentRelationships {
		if r.PersonID == id {
			return true
		}
	}
	return false
}

func hasSpouse(raw *RawPerson, id string) bool {
	for _, s := range raw.SpouseRelationships {
		if s.PersonID == id {
			return true
		}
	}
	return false
}

// WriteJSON writes doc as indented JSON.
func WriteJSON(w io.Writer, doc Document) error {
	if doc.Persons == nil {
		doc.Persons = []entities.Person{}
	}
	if doc.Edges == nil {
		doc.Edges = []entities.Edge{}
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(doc); err != nil {
		return fmt.Errorf("encoding JSON: %w", err)
	}
	return nil
}
