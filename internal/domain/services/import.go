package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ersonp/roots-core/internal/domain/entities"
	"github.com/ersonp/roots-core/internal/domain/graph"
	"github.com/ersonp/roots-core/internal/infrastructure/parsers"
)

// ConflictStrategy defines how to handle persons that already exist.
type ConflictStrategy string

const (
	// ConflictSkip keeps existing persons (by ID) untouched.
	ConflictSkip ConflictStrategy = "skip"
	// ConflictOverwrite replaces the fields of existing persons with new data.
	ConflictOverwrite ConflictStrategy = "overwrite"
)

// IsValid reports whether s is a known strategy.
func (s ConflictStrategy) IsValid() bool {
	return s == ConflictSkip || s == ConflictOverwrite
}

// ImportOptions controls import behavior.
type ImportOptions struct {
	DryRun     bool             // Validate without saving
	OnConflict ConflictStrategy // How to handle existing persons
}

// ImportError represents an error for a specific row during import.
type ImportError struct {
	Line    int    // Line number (1-indexed, 0 if unknown)
	Field   string // Which field has the error
	Value   string // The invalid value
	Message string // Human-readable error message
}

func (e ImportError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// ImportResult contains the result of an import operation.
type ImportResult struct {
	Imported int
	Skipped  int
	Linked   int
	Errors   []ImportError
}

// ImportService loads persons from external sources into a tree. Rows go
// through the graph mutator, so an import can never break an invariant; rows
// that would are reported and left out.
type ImportService struct {
	family *FamilyService
	logger *zap.Logger
}

// NewImportService creates a new import service.
func NewImportService(family *FamilyService, logger *zap.Logger) *ImportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImportService{
		family: family,
		logger: logger,
	}
}

// Import validates raw persons and merges them into the tree.
//
// Persons are created first and linked second, so rows may reference rows
// that come later in the file. Source ids are kept when they are free.
// Relationships are only ever added; existing edges are left alone.
func (s *ImportService) Import(ctx context.Context, raws []parsers.RawPerson, opts ImportOptions) (*ImportResult, error) {
	if opts.OnConflict == "" {
		opts.OnConflict = ConflictSkip
	}
	if !opts.OnConflict.IsValid() {
		return nil, &entities.ValidationError{Field: "on_conflict", Message: "must be one of: skip overwrite"}
	}

	if opts.DryRun {
		_, result := s.merge(s.family.Graph(), raws, opts.OnConflict)
		return result, nil
	}

	var result *ImportResult
	build := func(g *graph.Graph) (*graph.Graph, error) {
		var next *graph.Graph
		next, result = s.merge(g, raws, opts.OnConflict)
		return next, nil
	}

	if _, err := s.family.Apply(ctx, "import", build); err != nil {
		return nil, fmt.Errorf("saving import: %w", err)
	}

	s.logger.Info("import finished",
		zap.Int("imported", result.Imported),
		zap.Int("skipped", result.Skipped),
		zap.Int("linked", result.Linked),
		zap.Int("errors", len(result.Errors)),
	)
	return result, nil
}

// importRow is a row that made it into the graph, with its graph id.
type importRow struct {
	raw  *parsers.RawPerson
	line int
	id   string
}

// merge applies raws to g one step at a time. A step that fails is reported
// and skipped; g is immutable, so the failed step leaves no trace.
func (s *ImportService) merge(g *graph.Graph, raws []parsers.RawPerson, onConflict ConflictStrategy) (*graph.Graph, *ImportResult) {
	result := &ImportResult{}
	ids := make(map[string]string)
	var rows []importRow

	for i := range raws {
		raw := &raws[i]
		line := raw.LineNum
		if line == 0 {
			line = i + 1
		}

		if raw.ID != "" {
			if _, exists := g.Person(raw.ID); exists {
				ids[raw.ID] = raw.ID
				if onConflict == ConflictSkip {
					result.Skipped++
					continue
				}
				next, _, err := g.UpdatePerson(raw.ID, toPersonPatch(raw))
				if err != nil {
					result.Errors = append(result.Errors, toImportError(line, err))
					continue
				}
				g = next
				result.Imported++
				rows = append(rows, importRow{raw: raw, line: line, id: raw.ID})
				continue
			}
		}

		next, p, err := g.CreatePerson(toPersonInput(raw), s.family.actor)
		if err != nil {
			result.Errors = append(result.Errors, toImportError(line, err))
			continue
		}
		g = next
		result.Imported++
		if raw.ID != "" {
			ids[raw.ID] = p.ID
		}
		rows = append(rows, importRow{raw: raw, line: line, id: p.ID})
	}

	resolve := func(sourceID string) (string, bool) {
		if id, ok := ids[sourceID]; ok {
			return id, true
		}
		_, ok := g.Person(sourceID)
		return sourceID, ok
	}

	for _, row := range rows {
		for _, rel := range row.raw.ParentRelationships {
			parentID, ok := resolve(rel.PersonID)
			if !ok {
				result.Errors = append(result.Errors, unknownReference(row.line, "parents", rel.PersonID))
				continue
			}
			if p, _ := g.Person(row.id); p.HasParent(parentID) {
				continue
			}
			next, err := g.AddChild(parentID, row.id, rel.Type)
			if err != nil {
				result.Errors = append(result.Errors, toImportError(row.line, err))
				continue
			}
			g = next
			result.Linked++
		}

		for _, rel := range row.raw.SpouseRelationships {
			spouseID, ok := resolve(rel.PersonID)
			if !ok {
				result.Errors = append(result.Errors, unknownReference(row.line, "spouses", rel.PersonID))
				continue
			}
			// The other side of the marriage may have been linked from its own row.
			if p, _ := g.Person(row.id); hasSpouse(p, spouseID) {
				continue
			}
			next, err := g.AddSpouse(row.id, spouseID, rel.Status, rel.MarriageDate)
			if err != nil {
				result.Errors = append(result.Errors, toImportError(row.line, err))
				continue
			}
			if rel.DivorceDate != "" {
				next, err = next.SetSpouseDates(row.id, spouseID, rel.MarriageDate, rel.DivorceDate)
				if err != nil {
					result.Errors = append(result.Errors, toImportError(row.line, err))
					continue
				}
			}
			g = next
			result.Linked++
		}
	}

	return g, result
}

func hasSpouse(p *entities.Person, id string) bool {
	_, ok := p.SpouseEdge(id)
	return ok
}

func toPersonInput(raw *parsers.RawPerson) graph.PersonInput {
	return graph.PersonInput{
		ID:           raw.ID,
		FirstName:    raw.FirstName,
		LastName:     raw.LastName,
		MaidenName:   raw.MaidenName,
		Nickname:     raw.Nickname,
		Gender:       entities.Gender(strings.ToLower(strings.TrimSpace(raw.Gender))),
		BirthDate:    raw.BirthDate,
		BirthPlace:   raw.BirthPlace,
		DeathDate:    raw.DeathDate,
		DeathPlace:   raw.DeathPlace,
		IsLiving:     raw.IsLiving,
		ProfilePhoto: raw.ProfilePhoto,
		Bio:          raw.Bio,
		Occupation:   raw.Occupation,
	}
}

func toPersonPatch(raw *parsers.RawPerson) graph.PersonPatch {
	in := toPersonInput(raw)
	return graph.PersonPatch{
		FirstName:    &in.FirstName,
		LastName:     &in.LastName,
		MaidenName:   &in.MaidenName,
		Nickname:     &in.Nickname,
		Gender:       &in.Gender,
		BirthDate:    &in.BirthDate,
		BirthPlace:   &in.BirthPlace,
		DeathDate:    &in.DeathDate,
		DeathPlace:   &in.DeathPlace,
		IsLiving:     in.IsLiving,
		ProfilePhoto: &in.ProfilePhoto,
		Bio:          &in.Bio,
		Occupation:   &in.Occupation,
	}
}

func toImportError(line int, err error) ImportError {
	ie := ImportError{Line: line, Message: err.Error()}
	var ve *entities.ValidationError
	var ce *entities.CycleError
	var nf *entities.NotFoundError
	switch {
	case errors.As(err, &ve):
		ie.Field = ve.Field
	case errors.As(err, &ce):
		ie.Field = "relationships"
		ie.Value = ce.RelatedID
	case errors.As(err, &nf):
		ie.Value = nf.ID
	}
	return ie
}

func unknownReference(line int, field, id string) ImportError {
	return ImportError{
		Line:    line,
		Field:   field,
		Value:   id,
		Message: fmt.Sprintf("unknown person %q in %s", id, field),
	}
}
