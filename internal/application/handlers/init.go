package handlers

import (
	"context"
	"fmt"

	"github.com/ersonp/roots-core/internal/domain/ports"
	"github.com/ersonp/roots-core/internal/infrastructure/config"
)

// StoreOpener opens the configured PersonStore for a tree. The caller closes
// the returned store.
type StoreOpener func(ctx context.Context, cfg *config.Config, basePath, treeName string) (ports.PersonStore, error)

// InitHandler handles project initialization.
type InitHandler struct {
	trees *TreesHandler
}

// NewInitHandler creates a new init handler.
func NewInitHandler(openStore StoreOpener) *InitHandler {
	return &InitHandler{
		trees: NewTreesHandler(openStore),
	}
}

// InitResult contains the result of initialization.
type InitResult struct {
	ConfigPath string
	Backend    string
	Tree       *TreeInfo
}

// Handle writes the default config in basePath. When treeName is set the
// first tree is registered and its schema created.
func (h *InitHandler) Handle(ctx context.Context, basePath, treeName string) (*InitResult, error) {
	if config.Exists(basePath) {
		return nil, fmt.Errorf("roots already initialized in %s", basePath)
	}

	if err := config.WriteDefault(basePath); err != nil {
		return nil, fmt.Errorf("writing default config: %w", err)
	}

	cfg, err := config.Load(basePath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	result := &InitResult{
		ConfigPath: config.ConfigFilePath(basePath),
		Backend:    cfg.Store.Backend,
	}
	if treeName == "" {
		return result, nil
	}

	tree, err := h.trees.HandleCreate(ctx, cfg, basePath, treeName, "")
	if err != nil {
		return nil, err
	}
	result.Tree = tree
	return result, nil
}
