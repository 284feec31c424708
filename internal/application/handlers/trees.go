package handlers

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/ersonp/roots-core/internal/domain/entities"
	"github.com/ersonp/roots-core/internal/infrastructure/config"
)

// TreesHandler manages the trees registry and the stored data of each tree.
type TreesHandler struct {
	openStore StoreOpener
	newID     func() string
}

// NewTreesHandler creates a new TreesHandler.
func NewTreesHandler(openStore StoreOpener) *TreesHandler {
	return &TreesHandler{
		openStore: openStore,
		newID:     uuid.NewString,
	}
}

// TreeInfo describes one registered tree.
type TreeInfo struct {
	Name        string `json:"name"`
	ID          string `json:"id"`
	Description string `json:"description,omitempty"`
}

// HandleList returns the registered trees sorted by name.
func (h *TreesHandler) HandleList(basePath string) ([]TreeInfo, error) {
	trees, err := config.LoadTrees(basePath)
	if err != nil {
		return nil, err
	}
	infos := make([]TreeInfo, 0, len(trees.Trees))
	for _, name := range trees.Names() {
		entry := trees.Trees[name]
		infos = append(infos, TreeInfo{Name: name, ID: entry.ID, Description: entry.Description})
	}
	return infos, nil
}

// HandleCreate registers a tree and creates its schema in the store.
func (h *TreesHandler) HandleCreate(ctx context.Context, cfg *config.Config, basePath, name, description string) (*TreeInfo, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &entities.ValidationError{Field: "name", Message: "is required"}
	}

	trees, err := config.LoadTrees(basePath)
	if err != nil {
		return nil, err
	}
	if trees.Exists(name) {
		return nil, &entities.ValidationError{Field: "name", Message: fmt.Sprintf("tree %q already exists", name)}
	}

	store, err := h.openStore(ctx, cfg, basePath, name)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	defer store.Close()

	if err := store.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	entry := config.TreeEntry{ID: h.newID(), Description: description}
	trees.Add(name, entry)
	if err := trees.Save(basePath); err != nil {
		return nil, err
	}

	return &TreeInfo{Name: name, ID: entry.ID, Description: description}, nil
}

// HandleDelete removes every person and edge of a tree, then unregisters it.
// The per-tree SQLite directory is removed too.
func (h *TreesHandler) HandleDelete(ctx context.Context, cfg *config.Config, basePath, name string) (*TreeInfo, error) {
	trees, err := config.LoadTrees(basePath)
	if err != nil {
		return nil, err
	}
	entry, err := trees.Get(name)
	if err != nil {
		return nil, &entities.NotFoundError{Kind: "tree", ID: name}
	}

	store, err := h.openStore(ctx, cfg, basePath, name)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	if err := store.DeleteTree(ctx, entry.ID); err != nil {
		store.Close()
		return nil, &entities.PersistenceError{Op: "delete tree", Err: err}
	}
	store.Close()

	if cfg.Store.Backend == config.BackendSQLite && cfg.SQLite.Path == "" {
		if err := os.RemoveAll(config.TreeDir(basePath, name)); err != nil {
			return nil, fmt.Errorf("removing tree directory: %w", err)
		}
	}

	info := &TreeInfo{Name: name, ID: entry.ID, Description: entry.Description}
	trees.Remove(name)
	if err := trees.Save(basePath); err != nil {
		return nil, err
	}
	return info, nil
}
