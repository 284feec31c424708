package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ersonp/roots-core/internal/application/handlers"
)

func newTreeCmd() *cobra.Command {
	var filter string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Draw the family tree",
		Long: `Draws the tree as an outline of family units. Current spouses follow "=",
former spouses follow "x". With --filter only the subtrees of matching persons
are drawn.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd.Context(), func(deps *Deps) error {
				forest := deps.TreeHandler.HandleForest(filter)
				if asJSON {
					return printJSON(os.Stdout, forest)
				}
				if len(forest) == 0 {
					fmt.Println("The tree is empty.")
					return nil
				}
				return handlers.RenderForest(os.Stdout, forest)
			})
		},
	}

	cmd.Flags().StringVar(&filter, "filter", "", "Only draw the subtrees of persons matching this text")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")

	return cmd
}

func newStatsCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show statistics about the tree",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd.Context(), func(deps *Deps) error {
				stats := deps.TreeHandler.HandleStats()
				if asJSON {
					return printJSON(os.Stdout, stats)
				}
				fmt.Printf("Tree: %s\n\n", deps.TreeName)
				writeStats(os.Stdout, stats)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")

	return cmd
}

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Report broken relationships in the stored tree",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd.Context(), func(deps *Deps) error {
				violations := deps.TreeHandler.HandleCheck()
				if len(violations) == 0 {
					fmt.Println("No problems found.")
					return nil
				}
				for _, v := range violations {
					fmt.Printf("  %s\n", v)
				}
				return fmt.Errorf("%d problem(s) found", len(violations))
			})
		},
	}
}
