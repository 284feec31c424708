// Package openai provides an LLMClient implementation using OpenAI.
package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/ersonp/roots-core/internal/infrastructure/config"
)

const systemPrompt = `You are a genealogy assistant. Answer questions about one family tree.

Use ONLY the family summary provided by the user message. Each line of the summary
describes one person with their parents, spouses and children.

Rules:
- If the summary does not contain the answer, say so plainly.
- Refer to people by full name.
- Keep answers short: one to three sentences unless a list is requested.`

// maxContextChars bounds the family summary sent with a question.
const maxContextChars = 24000

// Client implements the LLMClient interface using OpenAI.
type Client struct {
	client *openai.Client
	model  string
}

// NewClient creates a new OpenAI LLM client.
func NewClient(cfg config.LLMConfig) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("OpenAI API key is required")
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	model := openai.GPT4oMini
	if cfg.Model != "" {
		model = cfg.Model
	}

	return &Client{
		client: openai.NewClientWithConfig(clientCfg),
		model:  model,
	}, nil
}

// Answer replies to a question using familyContext as the only source.
func (c *Client) Answer(ctx context.Context, question, familyContext string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", errors.New("question is empty")
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: buildUserMessage(question, familyContext),
			},
		},
		Temperature: 0.1,
	})
	if err != nil {
		return "", fmt.Errorf("calling OpenAI: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("no response from OpenAI")
	}

	answer := strings.TrimSpace(resp.Choices[0].Message.Content)
	if answer == "" {
		return "", errors.New("empty response from OpenAI")
	}
	return answer, nil
}

// buildUserMessage joins the family summary and question, truncating the
// summary at a line boundary when it is too long.
func buildUserMessage(question, familyContext string) string {
	familyContext = strings.TrimSpace(familyContext)
	if len(familyContext) > maxContextChars {
		cut := strings.LastIndexByte(familyContext[:maxContextChars], '\n')
		if cut <= 0 {
			cut = maxContextChars
		}
		familyContext = familyContext[:cut] + "\n(summary truncated)"
	}

	var b strings.Builder
	b.WriteString("Family summary:\n")
	if familyContext == "" {
		b.WriteString("(empty tree)")
	} else {
		b.WriteString(familyContext)
	}
	b.WriteString("\n\nQuestion: ")
	b.WriteString(question)
	return b.String()
}
