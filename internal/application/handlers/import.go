package handlers

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ersonp/roots-core/internal/domain/services"
	"github.com/ersonp/roots-core/internal/infrastructure/parsers"
)

// ImportHandler reads a person file and merges it into the tree.
type ImportHandler struct {
	service *services.ImportService
}

// NewImportHandler creates a new import handler.
func NewImportHandler(service *services.ImportService) *ImportHandler {
	return &ImportHandler{service: service}
}

// ImportOptions controls import behavior.
type ImportOptions struct {
	Format     string // "json", "csv", or "auto" (by extension)
	DryRun     bool
	OnConflict services.ConflictStrategy
}

// ImportResult is the service result plus what was read from the file.
type ImportResult struct {
	services.ImportResult
	Format string
	Rows   int
}

// Handle parses filePath and imports its rows.
func (h *ImportHandler) Handle(ctx context.Context, filePath string, opts ImportOptions) (*ImportResult, error) {
	format := resolveFormat(filePath, opts.Format)
	parser := parsers.ForFormat(format)
	if parser == nil {
		return nil, fmt.Errorf("unsupported format for file: %s", filePath)
	}

	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer file.Close()

	raws, err := parser.Parse(file)
	if err != nil {
		return nil, fmt.Errorf("parsing file: %w", err)
	}

	result := &ImportResult{Format: format, Rows: len(raws)}
	if len(raws) == 0 {
		return result, nil
	}

	imported, err := h.service.Import(ctx, raws, services.ImportOptions{
		DryRun:     opts.DryRun,
		OnConflict: opts.OnConflict,
	})
	if err != nil {
		return nil, err
	}
	result.ImportResult = *imported
	return result, nil
}

// resolveFormat maps "auto" and "" to the file extension.
func resolveFormat(filePath, format string) string {
	format = strings.ToLower(format)
	if format != "" && format != "auto" {
		return format
	}
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(filePath)), ".")
}
