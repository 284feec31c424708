package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ersonp/roots-core/internal/application/handlers"
	"github.com/ersonp/roots-core/internal/infrastructure/observability"
)

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize roots in the current directory",
		Long: `Creates a .roots directory with default configuration.
With --tree the first tree is registered and its storage prepared.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd, globalTree)
		},
	}
}

func runInit(cmd *cobra.Command, treeName string) error {
	ctx := cmd.Context()

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	logger, err := observability.NewLogger("", "")
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	metrics := observability.NewCollector(metricsNamespace)
	defer flushMetrics(metrics, logger)

	handler := handlers.NewInitHandler(newStoreOpener(logger, metrics))
	result, err := handler.Handle(ctx, cwd, treeName)
	if err != nil {
		return err
	}

	fmt.Printf("Created %s\n", result.ConfigPath)
	fmt.Printf("Store backend: %s\n", result.Backend)
	if result.Tree != nil {
		fmt.Printf("Created tree %q (%s)\n", result.Tree.Name, result.Tree.ID)
	} else {
		fmt.Println("Use 'roots trees create NAME' to create a tree.")
	}
	fmt.Println("Roots initialized successfully!")

	return nil
}
