package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ersonp/roots-core/internal/application/handlers"
	"github.com/ersonp/roots-core/internal/domain/graph"
)

func newRelateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "relate",
		Short: "Link and unlink persons",
		Long: `Creates, changes and removes single relationships.
Persons are given by id or unique name. Use quotes for names with spaces.

Examples:
  roots relate spouse "Ada Byron" "William King" --married 1835-07-08
  roots relate status "Ada Byron" "William King" widowed
  roots relate parent "Ralph King" "Ada Byron" --type biological
  roots relate unlink-parent "Ralph King" "Ada Byron"`,
	}

	cmd.AddCommand(
		newRelateSpouseCmd(),
		newRelateStatusCmd(),
		newRelateParentCmd(),
		newRelateTypeCmd(),
		newRelateUnlinkParentCmd(),
		newRelateUnlinkSpouseCmd(),
	)

	return cmd
}

func newRelateSpouseCmd() *cobra.Command {
	var status, married string

	cmd := &cobra.Command{
		Use:   "spouse PERSON SPOUSE",
		Short: "Marry two persons",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withDeps(ctx, func(deps *Deps) error {
				if err := deps.RelationshipHandler.HandleSpouse(ctx, args[0], args[1], status, married); err != nil {
					return fmt.Errorf("adding spouse: %w", err)
				}
				fmt.Printf("Linked %s and %s as spouses\n", args[0], args[1])
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "Status (current, divorced, widowed, separated; default current)")
	cmd.Flags().StringVar(&married, "married", "", "Marriage date")

	return cmd
}

func newRelateStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status PERSON SPOUSE STATUS",
		Short: "Change the status of a marriage",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withDeps(ctx, func(deps *Deps) error {
				if err := deps.RelationshipHandler.HandleStatus(ctx, args[0], args[1], args[2]); err != nil {
					return fmt.Errorf("setting spouse status: %w", err)
				}
				fmt.Printf("Marriage of %s and %s is now %s\n", args[0], args[1], args[2])
				return nil
			})
		},
	}
}

func newRelateParentCmd() *cobra.Command {
	var parentType string

	cmd := &cobra.Command{
		Use:   "parent CHILD PARENT",
		Short: "Add a parent to a person",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withDeps(ctx, func(deps *Deps) error {
				if err := deps.RelationshipHandler.HandleParent(ctx, args[0], args[1], parentType); err != nil {
					return fmt.Errorf("adding parent: %w", err)
				}
				fmt.Printf("Linked %s as parent of %s\n", args[1], args[0])
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&parentType, "type", "", "Parent type (biological, step, adoptive; default biological)")

	return cmd
}

func newRelateTypeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "type CHILD PARENT TYPE",
		Short: "Change the type of a parent link",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withDeps(ctx, func(deps *Deps) error {
				if err := deps.RelationshipHandler.HandleType(ctx, args[0], args[1], args[2]); err != nil {
					return fmt.Errorf("setting parent type: %w", err)
				}
				fmt.Printf("%s is now a %s parent of %s\n", args[1], args[2], args[0])
				return nil
			})
		},
	}
}

func newRelateUnlinkParentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unlink-parent CHILD PARENT",
		Short: "Remove a parent link",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withDeps(ctx, func(deps *Deps) error {
				if err := deps.RelationshipHandler.HandleUnlinkParent(ctx, args[0], args[1]); err != nil {
					return fmt.Errorf("removing parent: %w", err)
				}
				fmt.Printf("Removed %s as parent of %s\n", args[1], args[0])
				return nil
			})
		},
	}
}

func newRelateUnlinkSpouseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unlink-spouse PERSON SPOUSE",
		Short: "Remove a marriage entirely",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withDeps(ctx, func(deps *Deps) error {
				if err := deps.RelationshipHandler.HandleUnlinkSpouse(ctx, args[0], args[1]); err != nil {
					return fmt.Errorf("removing spouse: %w", err)
				}
				fmt.Printf("Unlinked %s and %s\n", args[0], args[1])
				return nil
			})
		},
	}
}

func newDescribeCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "describe PERSON OTHER",
		Short: "Show what OTHER is to PERSON",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd.Context(), func(deps *Deps) error {
				result, err := deps.RelationshipHandler.HandleDescribe(args[0], args[1])
				if err != nil {
					return err
				}
				if asJSON {
					return printJSON(os.Stdout, result)
				}
				fmt.Println(describeLine(result))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")

	return cmd
}

func newSiblingsCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "siblings PERSON",
		Short: "List full and half siblings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd.Context(), func(deps *Deps) error {
				siblings, err := deps.RelationshipHandler.HandleSiblings(args[0])
				if err != nil {
					return err
				}
				if asJSON {
					return printJSON(os.Stdout, siblings)
				}
				if len(siblings) == 0 {
					fmt.Println("No siblings found.")
					return nil
				}
				for _, s := range siblings {
					fmt.Println(siblingLine(s))
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")

	return cmd
}

func newCandidatesCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "candidates PERSON",
		Short: "List who may become a parent or spouse of a person",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd.Context(), func(deps *Deps) error {
				result, err := deps.RelationshipHandler.HandleCandidates(args[0])
				if err != nil {
					return err
				}
				if asJSON {
					return printJSON(os.Stdout, result)
				}

				fmt.Printf("Candidates for %s\n", personLabel(result.Person))
				fmt.Printf("\nParents (%d):\n", len(result.Parents))
				for _, p := range result.Parents {
					fmt.Printf("  %s\n", personLabel(p))
				}
				fmt.Printf("\nSpouses (%d):\n", len(result.Spouses))
				for _, p := range result.Spouses {
					fmt.Printf("  %s\n", personLabel(p))
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")

	return cmd
}

func describeLine(r *handlers.DescribeResult) string {
	switch r.Relation.Kinship {
	case graph.KinSelf:
		return fmt.Sprintf("%s and %s are the same person", r.From.FullName(), r.To.FullName())
	case graph.KinRelated:
		return fmt.Sprintf("%s is related to %s", r.To.FullName(), r.From.FullName())
	default:
		return fmt.Sprintf("%s is the %s of %s",
			r.To.FullName(), strings.ToLower(r.Relation.Label), r.From.FullName())
	}
}
