package handlers

import (
	"context"
	"errors"
	"fmt"

	"github.com/ersonp/roots-core/internal/domain/ports"
	"github.com/ersonp/roots-core/internal/domain/services"
)

// QueryHandler handles free-form questions and biography search.
type QueryHandler struct {
	family    *services.FamilyService
	assistant *services.AssistantService
	bios      *services.BioSearchService
}

// NewQueryHandler creates a new query handler. bios may be nil when no
// embedder is configured.
func NewQueryHandler(
	family *services.FamilyService,
	assistant *services.AssistantService,
	bios *services.BioSearchService,
) *QueryHandler {
	return &QueryHandler{
		family:    family,
		assistant: assistant,
		bios:      bios,
	}
}

// QueryResult contains the result of a biography search.
type QueryResult struct {
	Query   string           `json:"query"`
	Matches []ports.BioMatch `json:"matches"`
}

// HandleAsk answers a question about the tree.
func (h *QueryHandler) HandleAsk(ctx context.Context, question string) (string, error) {
	return h.assistant.Ask(ctx, h.family.Graph(), question)
}

// HandleIndex rebuilds the biography index of the tree.
func (h *QueryHandler) HandleIndex(ctx context.Context) (*services.ReindexResult, error) {
	if h.bios == nil {
		return nil, errBiosDisabled
	}
	result, err := h.bios.Reindex(ctx, h.family.Graph())
	if err != nil {
		return nil, fmt.Errorf("indexing biographies: %w", err)
	}
	return result, nil
}

// HandleSearch finds persons whose biographies match query.
func (h *QueryHandler) HandleSearch(ctx context.Context, query string, limit int) (*QueryResult, error) {
	if h.bios == nil {
		return nil, errBiosDisabled
	}
	matches, err := h.bios.Search(ctx, h.family.TreeID(), query, limit)
	if err != nil {
		return nil, fmt.Errorf("searching biographies: %w", err)
	}
	return &QueryResult{
		Query:   query,
		Matches: matches,
	}, nil
}

var errBiosDisabled = errors.New("biography search is not configured (set embedder and qdrant in config)")
