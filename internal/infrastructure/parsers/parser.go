// Package parsers reads and writes family trees in interchange formats.
package parsers

import (
	"io"
	"strings"

	"github.com/ersonp/roots-core/internal/domain/entities"
)

// RawPerson is a person parsed from an external source before validation.
// Relationship entries reference other rows by their source id.
type RawPerson struct {
	ID           string `json:"id,omitempty"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name,omitempty"`
	MaidenName   string `json:"maiden_name,omitempty"`
	Nickname     string `json:"nickname,omitempty"`
	Gender       string `json:"gender,omitempty"`
	BirthDate    string `json:"birth_date,omitempty"`
	BirthPlace   string `json:"birth_place,omitempty"`
	DeathDate    string `json:"death_date,omitempty"`
	DeathPlace   string `json:"death_place,omitempty"`
	IsLiving     *bool  `json:"is_living,omitempty"` // Pointer to distinguish false from unset
	ProfilePhoto string `json:"profile_photo,omitempty"`
	Bio          string `json:"bio,omitempty"`
	Occupation   string `json:"occupation,omitempty"`

	ParentRelationships []entities.ParentRelationship `json:"parent_relationships,omitempty"`
	SpouseRelationships []entities.SpouseRelationship `json:"spouse_relationships,omitempty"`

	LineNum int `json:"-"` // Line number in source file (set by parser)
}

// Document is the export format of a tree: the person and edge collections
// with no further framing.
type Document struct {
	TreeID  string            `json:"tree_id"`
	Persons []entities.Person `json:"persons"`
	Edges   []entities.Edge   `json:"edges"`
}

// Parser defines the interface for parsing persons from various formats.
type Parser interface {
	Parse(r io.Reader) ([]RawPerson, error)
}

// ForFormat returns the appropriate parser for the given format.
// Supported formats: "json", "csv".
func ForFormat(format string) Parser {
	switch strings.ToLower(format) {
	case "json":
		return &JSONParser{}
	case "csv":
		return &CSVParser{}
	default:
		return nil
	}
}
