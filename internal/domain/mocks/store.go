package mocks

import (
	"context"
	"sync"

	"github.com/ersonp/roots-core/internal/domain/entities"
)

// PersonStore is an in-memory implementation of ports.PersonStore.
// Each operation fails with its configured error when set.
type PersonStore struct {
	mu      sync.Mutex
	persons map[string][]entities.Person
	edges   map[string][]entities.Edge

	LoadErr         error
	WritePersonErr  error
	WriteEdgesErr   error
	DeletePersonErr error
	DeleteEdgesErr  error

	// Call tracking
	LoadCallCount        int
	WritePersonCallCount int
	WriteEdgesCallCount  int
	DeleteCallCount      int
}

// NewPersonStore creates an empty store.
func NewPersonStore() *PersonStore {
	return &PersonStore{
		persons: make(map[string][]entities.Person),
		edges:   make(map[string][]entities.Edge),
	}
}

// EnsureSchema is a no-op.
func (m *PersonStore) EnsureSchema(_ context.Context) error {
	return nil
}

// Close is a no-op.
func (m *PersonStore) Close() error {
	return nil
}

// LoadAll returns copies of the stored persons and edges of a tree.
func (m *PersonStore) LoadAll(_ context.Context, treeID string) ([]entities.Person, []entities.Edge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LoadCallCount++
	if m.LoadErr != nil {
		return nil, nil, m.LoadErr
	}
	persons := append([]entities.Person(nil), m.persons[treeID]...)
	edges := append([]entities.Edge(nil), m.edges[treeID]...)
	return persons, edges, nil
}

// WritePerson replaces the person by id, keeping its position.
func (m *PersonStore) WritePerson(_ context.Context, person *entities.Person) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.WritePersonCallCount++
	if m.WritePersonErr != nil {
		return m.WritePersonErr
	}
	stored := *person.Clone()
	stored.SpouseRelationships = nil
	stored.ParentRelationships = nil
	stored.SpouseID = ""
	stored.SpouseIDs = nil
	stored.Parents = nil
	stored.Children = nil

	list := m.persons[person.TreeID]
	for i := range list {
		if list[i].ID == person.ID {
			list[i] = stored
			return nil
		}
	}
	m.persons[person.TreeID] = append(list, stored)
	return nil
}

// WriteEdges replaces edges by id.
func (m *PersonStore) WriteEdges(_ context.Context, edges []entities.Edge) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.WriteEdgesCallCount++
	if m.WriteEdgesErr != nil {
		return m.WriteEdgesErr
	}
	for _, e := range edges {
		list := m.edges[e.TreeID]
		replaced := false
		for i := range list {
			if list[i].ID == e.ID {
				list[i] = e
				replaced = true
			}
		}
		if !replaced {
			list = append(list, e)
		}
		m.edges[e.TreeID] = list
	}
	return nil
}

// DeletePerson removes a person record.
func (m *PersonStore) DeletePerson(_ context.Context, treeID, personID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DeleteCallCount++
	if m.DeletePersonErr != nil {
		return m.DeletePersonErr
	}
	list := m.persons[treeID][:0]
	for _, p := range m.persons[treeID] {
		if p.ID != personID {
			list = append(list, p)
		}
	}
	m.persons[treeID] = list
	return nil
}

// DeleteEdgesFor removes every edge touching personID.
func (m *PersonStore) DeleteEdgesFor(_ context.Context, treeID, personID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DeleteEdgesErr != nil {
		return m.DeleteEdgesErr
	}
	list := m.edges[treeID][:0]
	for _, e := range m.edges[treeID] {
		if !e.Touches(personID) {
			list = append(list, e)
		}
	}
	m.edges[treeID] = list
	return nil
}

// DeleteTree removes every record of a tree.
func (m *PersonStore) DeleteTree(_ context.Context, treeID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DeleteCallCount++
	if m.DeletePersonErr != nil {
		return m.DeletePersonErr
	}
	delete(m.persons, treeID)
	delete(m.edges, treeID)
	return nil
}

// Seed stores records directly, bypassing error injection.
func (m *PersonStore) Seed(treeID string, persons []entities.Person, edges []entities.Edge) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.persons[treeID] = append(m.persons[treeID], persons...)
	m.edges[treeID] = append(m.edges[treeID], edges...)
}

// Edges returns the stored edges of a tree.
func (m *PersonStore) Edges(treeID string) []entities.Edge {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]entities.Edge(nil), m.edges[treeID]...)
}

// Person returns the stored record of a person.
func (m *PersonStore) Person(treeID, id string) (entities.Person, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.persons[treeID] {
		if p.ID == id {
			return p, true
		}
	}
	return entities.Person{}, false
}
