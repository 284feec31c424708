package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

type exportFlags struct {
	format string
	output string
}

func newExportCmd() *cobra.Command {
	var flags exportFlags

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the tree to a file",
		Long: `Exports every person and relationship of the tree. JSON keeps the full
records and can be imported again; CSV holds one row per person with parents and
spouses as "id:subtype" lists.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.format, "format", "f", "json", "Output format (json, csv)")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "Output file (default: stdout)")

	return cmd
}

func runExport(cmd *cobra.Command, flags exportFlags) error {
	if !contains(validFormats, flags.format) {
		return fmt.Errorf("invalid format %q, valid formats: %v", flags.format, validFormats)
	}

	return withDeps(cmd.Context(), func(deps *Deps) error {
		err := writeOutput(flags.output, func(w io.Writer) error {
			return deps.TreeHandler.HandleExport(w, flags.format)
		})
		if err != nil {
			return err
		}

		if flags.output != "" {
			fmt.Fprintf(os.Stderr, "Exported tree %s to %s\n", deps.TreeName, flags.output)
		}
		return nil
	})
}

// writeOutput runs write against the named file, or stdout when path is empty.
func writeOutput(path string, write func(io.Writer) error) (err error) {
	if path == "" {
		return write(os.Stdout)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("creating file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing file: %w", cerr)
		}
	}()

	return write(f)
}
