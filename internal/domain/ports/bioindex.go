package ports

import "context"

// BioDocument is the searchable text of one person with its embedding.
type BioDocument struct {
	PersonID  string    `json:"person_id"`
	TreeID    string    `json:"tree_id"`
	Name      string    `json:"name"`
	Text      string    `json:"text"`
	Embedding []float32 `json:"-"`
}

// BioMatch is a search hit.
type BioMatch struct {
	PersonID string  `json:"person_id"`
	Name     string  `json:"name"`
	Text     string  `json:"text"`
	Score    float32 `json:"score"`
}

// BioIndex stores person biographies for semantic search.
type BioIndex interface {
	// Upsert stores documents, replacing earlier versions by person id.
	Upsert(ctx context.Context, docs []BioDocument) error

	// Search returns the documents of a tree closest to embedding.
	Search(ctx context.Context, treeID string, embedding []float32, limit int) ([]BioMatch, error)

	// Delete removes the documents of the given persons.
	Delete(ctx context.Context, treeID string, personIDs []string) error
}
