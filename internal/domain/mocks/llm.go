// Package mocks provides mock implementations for testing.
package mocks

import "context"

// LLMClient is a mock implementation of ports.LLMClient.
type LLMClient struct {
	Reply string
	Err   error

	// Call tracking
	LastQuestion string
	LastContext  string
	CallCount    int
}

// Answer returns the configured reply or error.
func (m *LLMClient) Answer(_ context.Context, question, familyContext string) (string, error) {
	m.CallCount++
	m.LastQuestion = question
	m.LastContext = familyContext
	if m.Err != nil {
		return "", m.Err
	}
	return m.Reply, nil
}
