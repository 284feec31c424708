package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ersonp/roots-core/internal/domain/entities"
	"github.com/ersonp/roots-core/internal/domain/graph"
	"github.com/ersonp/roots-core/internal/domain/ports"
)

// DefaultSearchLimit is the number of matches returned when none is requested.
const DefaultSearchLimit = 5

// BioSearchService indexes person biographies and searches them by meaning.
type BioSearchService struct {
	embedder    ports.Embedder
	index       ports.BioIndex
	collections ports.CollectionManager
	logger      *zap.Logger
}

// NewBioSearchService creates a new BioSearchService. collections may be nil
// when the index needs no provisioning.
func NewBioSearchService(
	embedder ports.Embedder,
	index ports.BioIndex,
	collections ports.CollectionManager,
	logger *zap.Logger,
) *BioSearchService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BioSearchService{
		embedder:    embedder,
		index:       index,
		collections: collections,
		logger:      logger,
	}
}

// ReindexResult reports what a reindex did.
type ReindexResult struct {
	Indexed int `json:"indexed"`
	Removed int `json:"removed"`
}

// Reindex embeds the biography of every person of g and upserts it. Persons
// with nothing to index are removed from the index.
func (s *BioSearchService) Reindex(ctx context.Context, g *graph.Graph) (*ReindexResult, error) {
	if s.collections != nil {
		if err := s.collections.EnsureCollection(ctx, uint64(s.embedder.Dimensions())); err != nil {
			return nil, fmt.Errorf("ensuring collection: %w", err)
		}
	}

	var docs []ports.BioDocument
	var empty []string
	for _, p := range g.Persons() {
		text := BioText(p)
		if text == "" {
			empty = append(empty, p.ID)
			continue
		}
		docs = append(docs, ports.BioDocument{
			PersonID: p.ID,
			TreeID:   g.TreeID(),
			Name:     p.FullName(),
			Text:     text,
		})
	}

	result := &ReindexResult{}
	if len(docs) > 0 {
		texts := make([]string, len(docs))
		for i := range docs {
			texts[i] = docs[i].Name + ". " + docs[i].Text
		}
		embeddings, err := s.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("generating embeddings: %w", err)
		}
		if len(embeddings) != len(docs) {
			return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(embeddings), len(docs))
		}
		for i := range docs {
			docs[i].Embedding = embeddings[i]
		}
		if err := s.index.Upsert(ctx, docs); err != nil {
			return nil, fmt.Errorf("upserting biographies: %w", err)
		}
		result.Indexed = len(docs)
	}

	if len(empty) > 0 {
		if err := s.index.Delete(ctx, g.TreeID(), empty); err != nil {
			return nil, fmt.Errorf("removing empty biographies: %w", err)
		}
		result.Removed = len(empty)
	}

	s.logger.Info("reindexed biographies",
		zap.String("tree_id", g.TreeID()),
		zap.Int("indexed", result.Indexed),
		zap.Int("removed", result.Removed),
	)
	return result, nil
}

// Search returns the persons of a tree whose biographies best match query.
func (s *BioSearchService) Search(ctx context.Context, treeID, query string, limit int) ([]ports.BioMatch, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, &entities.ValidationError{Field: "query", Message: "is required"}
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	embedding, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	matches, err := s.index.Search(ctx, treeID, embedding, limit)
	if err != nil {
		return nil, fmt.Errorf("searching biographies: %w", err)
	}
	return matches, nil
}

// BioText is the searchable text of a person: biography, occupation and
// places. It is empty when the person has none of them.
func BioText(p *entities.Person) string {
	var parts []string
	if bio := strings.TrimSpace(p.Bio); bio != "" {
		if !strings.HasSuffix(bio, ".") {
			bio += "."
		}
		parts = append(parts, bio)
	}
	if p.Occupation != "" {
		parts = append(parts, "Occupation: "+p.Occupation+".")
	}
	if p.BirthPlace != "" {
		parts = append(parts, "Born in "+p.BirthPlace+".")
	}
	if p.DeathPlace != "" {
		parts = append(parts, "Died in "+p.DeathPlace+".")
	}
	return strings.Join(parts, " ")
}
