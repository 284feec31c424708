// Package services contains the application services that sit between the
// graph engine and its collaborators.
package services

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/ersonp/roots-core/internal/domain/entities"
	"github.com/ersonp/roots-core/internal/domain/graph"
	"github.com/ersonp/roots-core/internal/domain/ports"
)

// MutateFunc derives a new graph from the current one.
type MutateFunc func(g *graph.Graph) (*graph.Graph, error)

// FamilyService owns the in-memory graph of one tree and keeps it in step with
// the store. Mutations are applied locally first, written as a change set and
// followed by a full reload that replaces local state wholesale.
type FamilyService struct {
	store  ports.PersonStore
	treeID string
	actor  string
	logger *zap.Logger
	opts   []graph.Option

	mu    sync.Mutex
	graph *graph.Graph
}

// NewFamilyService creates a service for treeID. actor is recorded as the
// author of created persons and uploaded photos.
func NewFamilyService(store ports.PersonStore, treeID, actor string, logger *zap.Logger, opts ...graph.Option) *FamilyService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &FamilyService{
		store:  store,
		treeID: treeID,
		actor:  actor,
		logger: logger.With(zap.String("tree_id", treeID)),
		opts:   append([]graph.Option{graph.WithTreeID(treeID)}, opts...),
	}
	s.graph = graph.New(s.opts...)
	return s
}

// TreeID returns the id of the tree served.
func (s *FamilyService) TreeID() string {
	return s.treeID
}

// Graph returns the current graph. The result is immutable and stays valid
// after later mutations.
func (s *FamilyService) Graph() *graph.Graph {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.graph
}

// Load replaces local state with the tree as stored.
func (s *FamilyService) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reload(ctx)
}

// Apply runs fn against the current graph and persists the result.
//
// Errors from fn leave local state unchanged. When the store rejects the
// change set, local state is resynchronized from the store (or rolled back
// when that fails too) and a *entities.PersistenceError is returned.
func (s *FamilyService) Apply(ctx context.Context, op string, fn MutateFunc) (*graph.Graph, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.graph
	next, err := fn(prev)
	if err != nil {
		return nil, err
	}

	cs := graph.Diff(prev, next)
	s.graph = next
	if cs.Empty() {
		return next, nil
	}

	if err := s.persist(ctx, next, cs); err != nil {
		s.logger.Error("persisting change set",
			zap.String("op", op),
			zap.Error(err),
		)
		if reloadErr := s.reload(ctx); reloadErr != nil {
			s.logger.Warn("reload after failed write", zap.Error(reloadErr))
			s.graph = prev
		}
		return nil, &entities.PersistenceError{Op: op, Err: err}
	}

	if err := s.reload(ctx); err != nil {
		// The write landed; keep the optimistic graph until the next load.
		s.logger.Warn("reload after write", zap.String("op", op), zap.Error(err))
	}

	s.logger.Debug("applied",
		zap.String("op", op),
		zap.Int("written", len(cs.Written)),
		zap.Int("deleted", len(cs.Deleted)),
		zap.Int("rewired", len(cs.Rewired)),
	)
	return s.graph, nil
}

// persist writes a change set. Deletions go first, then person records, then
// the edges of every rewired person are replaced.
func (s *FamilyService) persist(ctx context.Context, next *graph.Graph, cs graph.ChangeSet) error {
	for _, id := range cs.Deleted {
		if err := s.store.DeleteEdgesFor(ctx, s.treeID, id); err != nil {
			return fmt.Errorf("deleting edges of %s: %w", id, err)
		}
		if err := s.store.DeletePerson(ctx, s.treeID, id); err != nil {
			return fmt.Errorf("deleting person %s: %w", id, err)
		}
	}

	for _, p := range cs.Written {
		if err := s.store.WritePerson(ctx, p); err != nil {
			return fmt.Errorf("writing person %s: %w", p.ID, err)
		}
	}

	if len(cs.Rewired) == 0 {
		return nil
	}

	seen := make(map[string]bool)
	var edges []entities.Edge
	for _, id := range cs.Rewired {
		if err := s.store.DeleteEdgesFor(ctx, s.treeID, id); err != nil {
			return fmt.Errorf("deleting edges of %s: %w", id, err)
		}
		for _, e := range next.EdgesTouching(id) {
			if !seen[e.ID] {
				seen[e.ID] = true
				edges = append(edges, e)
			}
		}
	}
	if len(edges) == 0 {
		return nil
	}
	if err := s.store.WriteEdges(ctx, edges); err != nil {
		return fmt.Errorf("writing edges: %w", err)
	}
	return nil
}

// reload must be called with mu held.
func (s *FamilyService) reload(ctx context.Context) error {
	persons, edges, err := s.store.LoadAll(ctx, s.treeID)
	if err != nil {
		return &entities.PersistenceError{Op: "load", Err: err}
	}
	s.graph = graph.FromRecords(persons, edges, s.opts...)
	return nil
}

// CreatePerson adds a person.
func (s *FamilyService) CreatePerson(ctx context.Context, in graph.PersonInput) (*entities.Person, error) {
	var id string
	g, err := s.Apply(ctx, "create person", func(g *graph.Graph) (*graph.Graph, error) {
		next, p, err := g.CreatePerson(in, s.actor)
		if err != nil {
			return nil, err
		}
		id = p.ID
		return next, nil
	})
	if err != nil {
		return nil, err
	}
	return g.MustPerson(id)
}

// UpdatePerson applies a patch to a person.
func (s *FamilyService) UpdatePerson(ctx context.Context, id string, patch graph.PersonPatch) (*entities.Person, error) {
	g, err := s.Apply(ctx, "update person", func(g *graph.Graph) (*graph.Graph, error) {
		next, _, err := g.UpdatePerson(id, patch)
		return next, err
	})
	if err != nil {
		return nil, err
	}
	return g.MustPerson(id)
}

// DeletePerson removes a person and every edge referencing it. Deleting an
// absent id is a no-op.
func (s *FamilyService) DeletePerson(ctx context.Context, id string) error {
	_, err := s.Apply(ctx, "delete person", func(g *graph.Graph) (*graph.Graph, error) {
		next, ok := g.DeletePerson(id)
		if !ok {
			return g, nil
		}
		return next, nil
	})
	return err
}

// SetSpouseStatus changes the status of a marriage on both sides.
func (s *FamilyService) SetSpouseStatus(ctx context.Context, personID, otherID string, status entities.SpouseStatus) error {
	_, err := s.Apply(ctx, "set spouse status", func(g *graph.Graph) (*graph.Graph, error) {
		return g.SetSpouseStatus(personID, otherID, status)
	})
	return err
}

// SetParentType changes the type of one parent edge.
func (s *FamilyService) SetParentType(ctx context.Context, personID, parentID string, t entities.ParentType) error {
	_, err := s.Apply(ctx, "set parent type", func(g *graph.Graph) (*graph.Graph, error) {
		return g.SetParentType(personID, parentID, t)
	})
	return err
}

// AddChild links childID to parentID.
func (s *FamilyService) AddChild(ctx context.Context, parentID, childID string, t entities.ParentType) error {
	_, err := s.Apply(ctx, "add child", func(g *graph.Graph) (*graph.Graph, error) {
		return g.AddChild(parentID, childID, t)
	})
	return err
}

// AddSpouse marries a and b.
func (s *FamilyService) AddSpouse(ctx context.Context, a, b string, status entities.SpouseStatus, marriageDate string) error {
	_, err := s.Apply(ctx, "add spouse", func(g *graph.Graph) (*graph.Graph, error) {
		return g.AddSpouse(a, b, status, marriageDate)
	})
	return err
}

// RemoveParent unlinks a child from one parent.
func (s *FamilyService) RemoveParent(ctx context.Context, childID, parentID string) error {
	_, err := s.Apply(ctx, "remove parent", func(g *graph.Graph) (*graph.Graph, error) {
		return g.RemoveParent(childID, parentID)
	})
	return err
}

// RemoveSpouse removes the marriage between a and b.
func (s *FamilyService) RemoveSpouse(ctx context.Context, a, b string) error {
	_, err := s.Apply(ctx, "remove spouse", func(g *graph.Graph) (*graph.Graph, error) {
		return g.RemoveSpouse(a, b)
	})
	return err
}

// AddPhoto attaches a photo to a person.
func (s *FamilyService) AddPhoto(ctx context.Context, personID string, in graph.PhotoInput) (*entities.Photo, error) {
	var photo entities.Photo
	_, err := s.Apply(ctx, "add photo", func(g *graph.Graph) (*graph.Graph, error) {
		next, p, err := g.AddPhoto(personID, in, s.actor)
		if err != nil {
			return nil, err
		}
		photo = *p
		return next, nil
	})
	if err != nil {
		return nil, err
	}
	return &photo, nil
}

// SetProfilePhoto replaces the profile photo of a person.
func (s *FamilyService) SetProfilePhoto(ctx context.Context, personID, url string) error {
	_, err := s.Apply(ctx, "set profile photo", func(g *graph.Graph) (*graph.Graph, error) {
		return g.SetProfilePhoto(personID, url)
	})
	return err
}
