package mocks

import (
	"context"

	"github.com/ersonp/roots-core/internal/domain/ports"
)

// BioIndex is a mock implementation of ports.BioIndex and
// ports.CollectionManager.
type BioIndex struct {
	Docs    map[string]ports.BioDocument
	Matches []ports.BioMatch
	Err     error

	EnsureCollectionErr error

	// Call tracking
	UpsertCallCount           int
	EnsureCollectionCallCount int
	LastVectorSize            uint64
	Deleted                   []string
}

// NewBioIndex creates an empty index.
func NewBioIndex() *BioIndex {
	return &BioIndex{Docs: make(map[string]ports.BioDocument)}
}

// EnsureCollection records the requested vector size.
func (m *BioIndex) EnsureCollection(_ context.Context, vectorSize uint64) error {
	m.EnsureCollectionCallCount++
	m.LastVectorSize = vectorSize
	return m.EnsureCollectionErr
}

// DeleteCollection drops every document.
func (m *BioIndex) DeleteCollection(_ context.Context) error {
	m.Docs = make(map[string]ports.BioDocument)
	return m.Err
}

// Upsert stores documents by person id.
func (m *BioIndex) Upsert(_ context.Context, docs []ports.BioDocument) error {
	m.UpsertCallCount++
	if m.Err != nil {
		return m.Err
	}
	for _, d := range docs {
		m.Docs[d.PersonID] = d
	}
	return nil
}

// Search returns the configured matches, trimmed to limit.
func (m *BioIndex) Search(_ context.Context, _ string, _ []float32, limit int) ([]ports.BioMatch, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if limit > len(m.Matches) {
		return m.Matches, nil
	}
	return m.Matches[:limit], nil
}

// Delete removes documents by person id.
func (m *BioIndex) Delete(_ context.Context, _ string, personIDs []string) error {
	if m.Err != nil {
		return m.Err
	}
	for _, id := range personIDs {
		delete(m.Docs, id)
		m.Deleted = append(m.Deleted, id)
	}
	return nil
}
