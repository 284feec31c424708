// Package main provides the entry point for the roots CLI application.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	version     = "0.1.0-dev"
	globalTree  string
	globalUser  string
	metricsFile string
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	rootCmd := &cobra.Command{
		Use:           "roots",
		Short:         "A family tree kept as a relationship graph",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&globalTree, "tree", "t", "", "Tree to operate on (optional when only one exists)")
	rootCmd.PersistentFlags().StringVar(&globalUser, "user", "", "Name recorded as the author of changes (default: config user)")
	rootCmd.PersistentFlags().StringVar(&metricsFile, "metrics-file", "", "Write store metrics in Prometheus text format to this file on exit")

	rootCmd.AddCommand(
		newInitCmd(),
		newTreesCmd(),
		newAddCmd(),
		newEditCmd(),
		newRemoveCmd(),
		newShowCmd(),
		newListCmd(),
		newSearchCmd(),
		newTreeCmd(),
		newRelateCmd(),
		newDescribeCmd(),
		newSiblingsCmd(),
		newCandidatesCmd(),
		newPhotoCmd(),
		newStatsCmd(),
		newCheckCmd(),
		newAskCmd(),
		newBiosCmd(),
		newExportCmd(),
		newImportCmd(),
	)

	return rootCmd.ExecuteContext(ctx)
}
