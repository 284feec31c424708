package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ersonp/roots-core/internal/application/handlers"
	"github.com/ersonp/roots-core/internal/infrastructure/config"
	"github.com/ersonp/roots-core/internal/infrastructure/observability"
	"github.com/ersonp/roots-core/internal/infrastructure/vectordb/qdrant"
)

func newTreesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trees",
		Short: "Manage family trees",
		RunE:  runTreesList,
	}

	cmd.AddCommand(
		newTreesListCmd(),
		newTreesCreateCmd(),
		newTreesDeleteCmd(),
	)

	return cmd
}

func newTreesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all trees",
		Args:  cobra.NoArgs,
		RunE:  runTreesList,
	}
}

func runTreesList(cmd *cobra.Command, args []string) error {
	return withConfig(func(cwd string, cfg *config.Config, logger *zap.Logger) error {
		handler := handlers.NewTreesHandler(newStoreOpener(logger, observability.NewCollector(metricsNamespace)))
		trees, err := handler.HandleList(cwd)
		if err != nil {
			return err
		}

		if len(trees) == 0 {
			fmt.Println("No trees configured.")
			fmt.Println("Use 'roots trees create NAME' to create a tree.")
			return nil
		}

		fmt.Printf("%-20s %-38s %s\n", "NAME", "ID", "DESCRIPTION")
		fmt.Printf("%-20s %-38s %s\n", "----", "--", "-----------")
		for _, t := range trees {
			fmt.Printf("%-20s %-38s %s\n", t.Name, t.ID, t.Description)
		}

		return nil
	})
}

func newTreesCreateCmd() *cobra.Command {
	var description string

	cmd := &cobra.Command{
		Use:   "create NAME",
		Short: "Create a new tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTreesCreate(cmd, args[0], description)
		},
	}

	cmd.Flags().StringVarP(&description, "description", "d", "", "Tree description")

	return cmd
}

func runTreesCreate(cmd *cobra.Command, name, description string) error {
	ctx := cmd.Context()

	return withConfig(func(cwd string, cfg *config.Config, logger *zap.Logger) error {
		metrics := observability.NewCollector(metricsNamespace)
		defer flushMetrics(metrics, logger)

		handler := handlers.NewTreesHandler(newStoreOpener(logger, metrics))
		tree, err := handler.HandleCreate(ctx, cfg, cwd, name, description)
		if err != nil {
			return err
		}

		fmt.Printf("Created tree %q (%s)\n", tree.Name, tree.ID)
		return nil
	})
}

func newTreesDeleteCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete NAME",
		Short: "Delete a tree and every person in it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTreesDelete(cmd, args[0], force)
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Confirm deletion")

	return cmd
}

func runTreesDelete(cmd *cobra.Command, name string, force bool) error {
	if !force {
		return fmt.Errorf("deleting tree %q removes all of its persons; rerun with --force", name)
	}

	ctx := cmd.Context()

	return withConfig(func(cwd string, cfg *config.Config, logger *zap.Logger) error {
		metrics := observability.NewCollector(metricsNamespace)
		defer flushMetrics(metrics, logger)

		handler := handlers.NewTreesHandler(newStoreOpener(logger, metrics))
		tree, err := handler.HandleDelete(ctx, cfg, cwd, name)
		if err != nil {
			return err
		}

		purgeBios(ctx, cfg, name, logger)

		fmt.Printf("Deleted tree %q (%s)\n", tree.Name, tree.ID)
		return nil
	})
}

// purgeBios drops the per-tree biography collection. The tree is already
// gone at this point, so failures are only logged.
func purgeBios(ctx context.Context, cfg *config.Config, name string, logger *zap.Logger) {
	if cfg.Embedder.APIKey == "" || cfg.Qdrant.Collection != "" {
		return
	}

	qdrantCfg := cfg.Qdrant
	qdrantCfg.Collection = config.GenerateCollectionName(name)
	repo, err := qdrant.NewRepository(qdrantCfg)
	if err != nil {
		logger.Warn("connecting to qdrant", zap.Error(err))
		return
	}
	defer repo.Close()

	if err := repo.DeleteCollection(ctx); err != nil {
		logger.Warn("deleting biography collection",
			zap.String("collection", qdrantCfg.Collection), zap.Error(err))
	}
}
