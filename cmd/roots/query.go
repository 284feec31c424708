package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func newAskCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ask QUESTION",
		Short: "Ask a question about the family",
		Long: `Answers questions about the tree. Common questions (how many members,
oldest, youngest, missing details) are answered directly; anything else goes to
the configured LLM with a summary of the tree.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			question := strings.Join(args, " ")
			return withDeps(ctx, func(deps *Deps) error {
				answer, err := deps.QueryHandler.HandleAsk(ctx, question)
				if err != nil {
					return fmt.Errorf("answering question: %w", err)
				}
				fmt.Println(answer)
				return nil
			})
		},
	}
}

func newBiosCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bios",
		Short: "Semantic search over biographies",
	}

	cmd.AddCommand(
		newBiosIndexCmd(),
		newBiosSearchCmd(),
	)

	return cmd
}

func newBiosIndexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "index",
		Short: "Embed every biography of the tree into the search index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withDeps(ctx, func(deps *Deps) error {
				result, err := deps.QueryHandler.HandleIndex(ctx)
				if err != nil {
					return err
				}
				fmt.Printf("Indexed %d biographies, removed %d\n", result.Indexed, result.Removed)
				return nil
			})
		},
	}
}

func newBiosSearchCmd() *cobra.Command {
	var limit int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "search QUERY",
		Short: "Find persons whose biography matches a description",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			query := strings.Join(args, " ")
			return withDeps(ctx, func(deps *Deps) error {
				result, err := deps.QueryHandler.HandleSearch(ctx, query, limit)
				if err != nil {
					return err
				}
				if asJSON {
					return printJSON(os.Stdout, result)
				}
				if len(result.Matches) == 0 {
					fmt.Println("No matching biographies.")
					return nil
				}
				for i, m := range result.Matches {
					fmt.Printf("%d. %s [%s] (score: %.2f)\n", i+1, m.Name, m.PersonID, m.Score)
					fmt.Printf("   %s\n", truncateString(m.Text, 100))
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "l", DefaultSearchLimit, "Maximum number of results")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")

	return cmd
}
