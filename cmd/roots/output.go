package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/ersonp/roots-core/internal/application/handlers"
	"github.com/ersonp/roots-core/internal/domain/entities"
	"github.com/ersonp/roots-core/internal/domain/graph"
)

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// personLabel renders "Full Name (life span) [id]".
func personLabel(p *entities.Person) string {
	label := p.FullName()
	if span := p.LifeSpan(); span != "" {
		label += " (" + span + ")"
	}
	return label + " [" + p.ID + "]"
}

func writePersonTable(w io.Writer, persons []*entities.Person) {
	fmt.Fprintf(w, "%-36s  %-30s %s\n", "ID", "NAME", "LIFE")
	fmt.Fprintf(w, "%-36s  %-30s %s\n", "--", "----", "----")
	for _, p := range persons {
		fmt.Fprintf(w, "%-36s  %-30s %s\n", p.ID, truncateString(p.FullName(), 30), p.LifeSpan())
	}
}

// writePersonView writes the detail view of one person. Empty facts are
// left out.
func writePersonView(w io.Writer, v *handlers.PersonView) {
	p := v.Person
	fmt.Fprintln(w, personLabel(p))

	field := func(name, value string) {
		if value != "" {
			fmt.Fprintf(w, "  %-11s %s\n", name+":", value)
		}
	}
	field("Nickname", p.Nickname)
	field("Gender", string(p.Gender))
	field("Born", joinNonEmpty(", ", p.BirthDate, p.BirthPlace))
	field("Died", joinNonEmpty(", ", p.DeathDate, p.DeathPlace))
	if v.Age != nil {
		field("Age", fmt.Sprintf("%d", *v.Age))
	}
	if !p.IsLiving && p.DeathDate == "" {
		field("Living", "no")
	}
	field("Occupation", p.Occupation)
	field("Bio", p.Bio)
	field("Photo", p.ProfilePhoto)

	if len(v.Parents) > 0 {
		fmt.Fprintln(w, "  Parents:")
		for _, parent := range v.Parents {
			kind := entities.ParentBiological
			if edge, ok := p.ParentEdge(parent.ID); ok && edge.Type != "" {
				kind = edge.Type
			}
			fmt.Fprintf(w, "    %s (%s)\n", personLabel(parent), kind)
		}
	}
	if len(v.Spouses) > 0 {
		fmt.Fprintln(w, "  Spouses:")
		for _, s := range v.Spouses {
			fmt.Fprintf(w, "    %s (%s)\n", personLabel(s.Person), spouseDetail(s.Relationship))
		}
	}
	if len(v.Children) > 0 {
		fmt.Fprintln(w, "  Children:")
		for _, child := range v.Children {
			fmt.Fprintf(w, "    %s\n", personLabel(child))
		}
	}
	if len(v.Siblings) > 0 {
		fmt.Fprintln(w, "  Siblings:")
		for _, s := range v.Siblings {
			fmt.Fprintf(w, "    %s\n", siblingLine(s))
		}
	}
	if len(p.Photos) > 0 {
		fmt.Fprintf(w, "  Photos:     %d\n", len(p.Photos))
	}
}

func spouseDetail(rel entities.SpouseRelationship) string {
	status := string(rel.Status)
	if status == "" {
		status = string(entities.SpouseCurrent)
	}
	parts := []string{status}
	if rel.MarriageDate != "" {
		parts = append(parts, "m. "+rel.MarriageDate)
	}
	if rel.DivorceDate != "" {
		parts = append(parts, "div. "+rel.DivorceDate)
	}
	return strings.Join(parts, ", ")
}

func siblingLine(s graph.Sibling) string {
	if s.Full {
		return personLabel(s.Person)
	}
	return personLabel(s.Person) + " (half)"
}

func writeStats(w io.Writer, s graph.Stats) {
	fmt.Fprintf(w, "Members:     %d\n", s.Members)
	fmt.Fprintf(w, "Living:      %d\n", s.Living)
	fmt.Fprintf(w, "Marriages:   %d\n", s.Marriages)
	fmt.Fprintf(w, "Generations: %d\n", s.Generations)
	if s.Oldest != nil {
		fmt.Fprintf(w, "Oldest:      %s\n", personLabel(s.Oldest))
	}
	if s.Youngest != nil {
		fmt.Fprintf(w, "Youngest:    %s\n", personLabel(s.Youngest))
	}
	if len(s.Incomplete) > 0 {
		fmt.Fprintf(w, "Incomplete:  %d\n", len(s.Incomplete))
		for _, inc := range s.Incomplete {
			fmt.Fprintf(w, "  %s: missing %s\n", personLabel(inc.Person), strings.Join(inc.Missing, ", "))
		}
	}
}

func joinNonEmpty(sep string, parts ...string) string {
	var out []string
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, sep)
}

// truncateString truncates a string to maxLen runes, adding "..." if truncated.
func truncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

func contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}
