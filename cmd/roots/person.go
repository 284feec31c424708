package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ersonp/roots-core/internal/application/handlers"
	"github.com/ersonp/roots-core/internal/domain/entities"
	"github.com/ersonp/roots-core/internal/domain/graph"
)

type personFlags struct {
	firstName  string
	lastName   string
	maidenName string
	nickname   string
	gender     string
	birthDate  string
	birthPlace string
	deathDate  string
	deathPlace string
	living     bool
	photo      string
	bio        string
	occupation string
	parents    []string
	spouses    []string
}

func (f *personFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.maidenName, "maiden-name", "", "Maiden name")
	cmd.Flags().StringVar(&f.nickname, "nickname", "", "Nickname")
	cmd.Flags().StringVarP(&f.gender, "gender", "g", "", "Gender (male, female, other)")
	cmd.Flags().StringVar(&f.birthDate, "born", "", "Birth date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.birthPlace, "birthplace", "", "Birth place")
	cmd.Flags().StringVar(&f.deathDate, "died", "", "Death date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.deathPlace, "deathplace", "", "Death place")
	cmd.Flags().BoolVar(&f.living, "living", true, "Whether the person is alive")
	cmd.Flags().StringVar(&f.photo, "photo", "", "Profile photo URL")
	cmd.Flags().StringVar(&f.bio, "bio", "", "Short biography")
	cmd.Flags().StringVar(&f.occupation, "occupation", "", "Occupation")
	cmd.Flags().StringArrayVarP(&f.parents, "parent", "p", nil, "Parent as REF[:biological|step|adoptive] (repeatable)")
	cmd.Flags().StringArrayVarP(&f.spouses, "spouse", "s", nil, "Spouse as REF[:current|divorced|widowed|separated] (repeatable)")
}

func (f *personFlags) input(cmd *cobra.Command) graph.PersonInput {
	in := graph.PersonInput{
		FirstName:    f.firstName,
		LastName:     f.lastName,
		MaidenName:   f.maidenName,
		Nickname:     f.nickname,
		Gender:       entities.Gender(strings.ToLower(f.gender)),
		BirthDate:    f.birthDate,
		BirthPlace:   f.birthPlace,
		DeathDate:    f.deathDate,
		DeathPlace:   f.deathPlace,
		ProfilePhoto: f.photo,
		Bio:          f.bio,
		Occupation:   f.occupation,
	}
	if cmd.Flags().Changed("living") {
		living := f.living
		in.IsLiving = &living
	}
	return in
}

// patch sets only the fields whose flags were given.
func (f *personFlags) patch(cmd *cobra.Command) graph.PersonPatch {
	var patch graph.PersonPatch
	set := func(name string, dst **string, value string) {
		if cmd.Flags().Changed(name) {
			v := value
			*dst = &v
		}
	}
	set("first-name", &patch.FirstName, f.firstName)
	set("last-name", &patch.LastName, f.lastName)
	set("maiden-name", &patch.MaidenName, f.maidenName)
	set("nickname", &patch.Nickname, f.nickname)
	set("born", &patch.BirthDate, f.birthDate)
	set("birthplace", &patch.BirthPlace, f.birthPlace)
	set("died", &patch.DeathDate, f.deathDate)
	set("deathplace", &patch.DeathPlace, f.deathPlace)
	set("photo", &patch.ProfilePhoto, f.photo)
	set("bio", &patch.Bio, f.bio)
	set("occupation", &patch.Occupation, f.occupation)
	if cmd.Flags().Changed("gender") {
		g := entities.Gender(strings.ToLower(f.gender))
		patch.Gender = &g
	}
	if cmd.Flags().Changed("living") {
		living := f.living
		patch.IsLiving = &living
	}
	return patch
}

func newAddCmd() *cobra.Command {
	var flags personFlags

	cmd := &cobra.Command{
		Use:   "add FIRST_NAME [LAST_NAME]",
		Short: "Add a person to the tree",
		Long: `Adds a person. Parents and spouses are given by id or unique name,
optionally followed by a subtype.

Examples:
  roots add Ada Byron --gender female --born 1815-12-10 --parent George:biological
  roots add William King --spouse "Ada Byron:current"`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags.firstName = args[0]
			if len(args) > 1 {
				flags.lastName = args[1]
			}
			return runAdd(cmd, &flags)
		},
	}

	flags.register(cmd)

	return cmd
}

func runAdd(cmd *cobra.Command, flags *personFlags) error {
	ctx := cmd.Context()

	return withDeps(ctx, func(deps *Deps) error {
		person, err := deps.PersonHandler.HandleAdd(ctx, handlers.AddRequest{
			Input:   flags.input(cmd),
			Parents: flags.parents,
			Spouses: flags.spouses,
		})
		if err != nil {
			return fmt.Errorf("adding person: %w", err)
		}

		fmt.Printf("Added %s\n", personLabel(person))
		return nil
	})
}

func newEditCmd() *cobra.Command {
	var flags personFlags
	var clearRelationships bool

	cmd := &cobra.Command{
		Use:   "edit PERSON",
		Short: "Edit a person",
		Long: `Changes the fields given as flags. When any --parent or --spouse flag is
given, the person's parents and spouses are replaced by exactly those listed.
--clear-relationships removes them all.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEdit(cmd, args[0], &flags, clearRelationships)
		},
	}

	cmd.Flags().StringVar(&flags.firstName, "first-name", "", "First name")
	cmd.Flags().StringVar(&flags.lastName, "last-name", "", "Last name")
	flags.register(cmd)
	cmd.Flags().BoolVar(&clearRelationships, "clear-relationships", false, "Remove all parents and spouses")

	return cmd
}

func runEdit(cmd *cobra.Command, ref string, flags *personFlags, clearRelationships bool) error {
	ctx := cmd.Context()

	setRelationships := clearRelationships ||
		cmd.Flags().Changed("parent") ||
		cmd.Flags().Changed("spouse")

	return withDeps(ctx, func(deps *Deps) error {
		person, err := deps.PersonHandler.HandleEdit(ctx, ref, handlers.EditRequest{
			Patch:            flags.patch(cmd),
			SetRelationships: setRelationships,
			Parents:          flags.parents,
			Spouses:          flags.spouses,
		})
		if err != nil {
			return fmt.Errorf("editing person: %w", err)
		}

		fmt.Printf("Updated %s\n", personLabel(person))
		return nil
	})
}

func newRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "rm PERSON",
		Aliases: []string{"delete"},
		Short:   "Remove a person and all of their relationships",
		Args:    cobra.ExactArgs(1),
		RunE:    runRemove,
	}
}

func runRemove(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	return withDeps(ctx, func(deps *Deps) error {
		person, err := deps.PersonHandler.HandleDelete(ctx, args[0])
		if err != nil {
			return fmt.Errorf("removing person: %w", err)
		}

		fmt.Printf("Removed %s\n", personLabel(person))
		return nil
	})
}

func newShowCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show PERSON",
		Short: "Show a person with their family",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(cmd, args[0], asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")

	return cmd
}

func runShow(cmd *cobra.Command, ref string, asJSON bool) error {
	return withDeps(cmd.Context(), func(deps *Deps) error {
		view, err := deps.PersonHandler.HandleShow(ref)
		if err != nil {
			return err
		}
		if asJSON {
			return printJSON(os.Stdout, view)
		}
		writePersonView(os.Stdout, view)
		return nil
	})
}

func newListCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List everyone in the tree",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd.Context(), func(deps *Deps) error {
				return printPersons(deps.PersonHandler.HandleList(), asJSON)
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")

	return cmd
}

func newSearchCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "search QUERY",
		Short: "Find persons by name, nickname or birthplace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd.Context(), func(deps *Deps) error {
				return printPersons(deps.PersonHandler.HandleSearch(args[0]), asJSON)
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")

	return cmd
}

func printPersons(persons []*entities.Person, asJSON bool) error {
	if asJSON {
		if persons == nil {
			persons = []*entities.Person{}
		}
		return printJSON(os.Stdout, persons)
	}
	if len(persons) == 0 {
		fmt.Println("No persons found.")
		return nil
	}
	writePersonTable(os.Stdout, persons)
	fmt.Printf("\n%d person(s)\n", len(persons))
	return nil
}

func newPhotoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "photo",
		Short: "Manage photos of a person",
	}

	cmd.AddCommand(
		newPhotoAddCmd(),
		newPhotoProfileCmd(),
	)

	return cmd
}

func newPhotoAddCmd() *cobra.Command {
	var caption, dateTaken string
	var asProfile bool

	cmd := &cobra.Command{
		Use:   "add PERSON URL",
		Short: "Attach a photo to a person",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := graph.PhotoInput{URL: args[1], Caption: caption, DateTaken: dateTaken}
			return runPhotoAdd(cmd, args[0], in, asProfile)
		},
	}

	cmd.Flags().StringVarP(&caption, "caption", "c", "", "Photo caption")
	cmd.Flags().StringVar(&dateTaken, "taken", "", "Date the photo was taken")
	cmd.Flags().BoolVar(&asProfile, "profile", false, "Also use it as the profile photo")

	return cmd
}

func runPhotoAdd(cmd *cobra.Command, ref string, in graph.PhotoInput, asProfile bool) error {
	ctx := cmd.Context()

	return withDeps(ctx, func(deps *Deps) error {
		photo, err := deps.PersonHandler.HandleAddPhoto(ctx, ref, in, asProfile)
		if err != nil {
			return fmt.Errorf("adding photo: %w", err)
		}

		fmt.Printf("Added photo %s\n", photo.ID)
		return nil
	})
}

func newPhotoProfileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "profile PERSON URL",
		Short: "Set the profile photo of a person",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withDeps(ctx, func(deps *Deps) error {
				if err := deps.PersonHandler.HandleSetProfilePhoto(ctx, args[0], args[1]); err != nil {
					return fmt.Errorf("setting profile photo: %w", err)
				}
				fmt.Println("Profile photo updated.")
				return nil
			})
		},
	}
}
