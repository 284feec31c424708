package services

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"

	"go.uber.org/zap"

	"github.com/ersonp/roots-core/internal/domain/entities"
	"github.com/ersonp/roots-core/internal/domain/graph"
	"github.com/ersonp/roots-core/internal/domain/ports"
)

// maxListedIncomplete bounds the records listed in an "incomplete" answer.
const maxListedIncomplete = 5

// maxSummaryMembers bounds the members described to the LLM.
const maxSummaryMembers = 200

var genealogyTips = []string{
	"Try to interview older family members while you can. They often have stories and memories that aren't written down anywhere.",
	"Look for old photographs in family albums. The backs of photos sometimes have names and dates written on them.",
	"Consider creating a timeline of major family events to help visualize your family history.",
	"Don't forget to record not just dates and places, but also stories, occupations and interesting facts about family members.",
	"Online genealogy databases and local archives can be great resources for finding birth, marriage and death records.",
}

var defaultReplies = []string{
	"That's an interesting question! I can help you explore your family tree data. Try asking about your family members, missing information or genealogy tips.",
	"For complex genealogy questions, specialized resources are your best bet. Meanwhile, I can help with basic family tree information and suggestions.",
	"I'm here to help you make the most of your family tree. Ask about family statistics, data quality or request a genealogy tip.",
}

const helpReply = `I can help you with several things:

- Family statistics: ask "how many members" or about the "oldest" or "youngest" person
- Data quality: ask about "missing" or "incomplete" information
- Tips: ask for a genealogy "tip" or "suggestion"

Anything else is answered from a summary of your tree when an AI model is configured.`

// AssistantService answers questions about a family tree. Common questions
// are answered from the graph directly; the rest go to the LLM when one is
// configured.
type AssistantService struct {
	llm    ports.LLMClient
	logger *zap.Logger
	pick   func(n int) int
}

// NewAssistantService creates an assistant. llm may be nil.
func NewAssistantService(llm ports.LLMClient, logger *zap.Logger) *AssistantService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssistantService{
		llm:    llm,
		logger: logger,
		pick:   rand.IntN,
	}
}

// Ask answers a question about g.
func (s *AssistantService) Ask(ctx context.Context, g *graph.Graph, question string) (string, error) {
	q := strings.ToLower(strings.TrimSpace(question))
	if q == "" {
		return "", &entities.ValidationError{Field: "question", Message: "is required"}
	}

	switch {
	case strings.Contains(q, "how many") && strings.Contains(q, "member"):
		return memberCountReply(g), nil
	case strings.Contains(q, "oldest") || strings.Contains(q, "eldest"):
		return birthExtremeReply(g.Stats().Oldest, "oldest"), nil
	case strings.Contains(q, "youngest"):
		return birthExtremeReply(g.Stats().Youngest, "youngest"), nil
	case strings.Contains(q, "missing") || strings.Contains(q, "incomplete"):
		return incompleteReply(g.Stats().Incomplete), nil
	case strings.Contains(q, "tip") || strings.Contains(q, "suggestion"):
		return genealogyTips[s.pick(len(genealogyTips))], nil
	case strings.Contains(q, "help") || strings.Contains(q, "what can you do"):
		return helpReply, nil
	}

	if s.llm == nil {
		return defaultReplies[s.pick(len(defaultReplies))], nil
	}

	s.logger.Debug("forwarding question to llm", zap.Int("members", g.Len()))
	answer, err := s.llm.Answer(ctx, question, FamilySummary(g))
	if err != nil {
		return "", fmt.Errorf("asking llm: %w", err)
	}
	return answer, nil
}

func memberCountReply(g *graph.Graph) string {
	persons := g.Persons()
	n := len(persons)
	if n == 0 {
		return "Your family tree currently has 0 members. You haven't added anyone yet. Would you like to start by adding yourself?"
	}
	names := make([]string, 0, n)
	for _, p := range persons {
		names = append(names, p.FullName())
	}
	return fmt.Sprintf("Your family tree currently has %d %s. The members are: %s.",
		n, plural(n, "member"), strings.Join(names, ", "))
}

func birthExtremeReply(p *entities.Person, which string) string {
	if p == nil {
		return fmt.Sprintf("I don't have birth date information for any family members yet. Try adding birth dates to see who's the %s!", which)
	}
	return fmt.Sprintf("Based on the birth dates I have, %s appears to be the %s family member, born on %s.",
		p.FullName(), which, p.BirthDate)
}

func incompleteReply(incomplete []graph.Incomplete) string {
	if len(incomplete) == 0 {
		return "Great news! All your family members have complete basic information."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "I found %d %s with incomplete information:\n",
		len(incomplete), plural(len(incomplete), "member"))
	for i, inc := range incomplete {
		if i == maxListedIncomplete {
			break
		}
		fmt.Fprintf(&b, "\n- %s: missing %s", inc.Person.FullName(), strings.Join(inc.Missing, ", "))
	}
	if extra := len(incomplete) - maxListedIncomplete; extra > 0 {
		fmt.Fprintf(&b, "\n\n...and %d more.", extra)
	}
	return b.String()
}

// FamilySummary renders a compact plain-text description of the tree, one
// line per member, used as LLM context.
func FamilySummary(g *graph.Graph) string {
	s := g.Stats()

	var b strings.Builder
	fmt.Fprintf(&b, "Family tree with %d %s (%d living), %d %s, %d %s.\n",
		s.Members, plural(s.Members, "member"), s.Living,
		s.Marriages, plural(s.Marriages, "marriage"),
		s.Generations, plural(s.Generations, "generation"))

	for i, p := range g.Persons() {
		if i == maxSummaryMembers {
			fmt.Fprintf(&b, "(%d more members omitted)\n", s.Members-maxSummaryMembers)
			break
		}
		b.WriteString("- ")
		b.WriteString(p.FullName())
		if span := p.LifeSpan(); span != "" {
			fmt.Fprintf(&b, " (%s)", span)
		}
		if p.Gender != entities.GenderUnset {
			fmt.Fprintf(&b, ", %s", p.Gender)
		}
		if p.Occupation != "" {
			fmt.Fprintf(&b, ", %s", p.Occupation)
		}
		if parents := names(g.Parents(p.ID)); parents != "" {
			fmt.Fprintf(&b, "; parents: %s", parents)
		}
		for _, sp := range g.Spouses(p.ID) {
			fmt.Fprintf(&b, "; spouse (%s): %s", sp.Relationship.Status, sp.Person.FullName())
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func names(persons []*entities.Person) string {
	out := make([]string, 0, len(persons))
	for _, p := range persons {
		out = append(out, p.FullName())
	}
	return strings.Join(out, ", ")
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
