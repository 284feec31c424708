package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ersonp/roots-core/internal/domain/entities"
	"github.com/ersonp/roots-core/internal/domain/graph"
	"github.com/ersonp/roots-core/internal/domain/mocks"
)

const testTree = "tree-1"

var testNow = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func testGraphOptions() []graph.Option {
	n := 0
	return []graph.Option{
		graph.WithClock(func() time.Time { return testNow }),
		graph.WithIDGenerator(func() string {
			n++
			return fmt.Sprintf("p%d", n)
		}),
	}
}

func newTestFamilyService(t *testing.T, store *mocks.PersonStore) *FamilyService {
	t.Helper()
	svc := NewFamilyService(store, testTree, "user-1", zap.NewNop(), testGraphOptions()...)
	require.NoError(t, svc.Load(context.Background()))
	return svc
}

func mustCreatePerson(t *testing.T, svc *FamilyService, in graph.PersonInput) string {
	t.Helper()
	p, err := svc.CreatePerson(context.Background(), in)
	require.NoError(t, err)
	return p.ID
}

func edgesOfKind(edges []entities.Edge, kind entities.EdgeKind) []entities.Edge {
	var out []entities.Edge
	for _, e := range edges {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

func TestFamilyService_CreatePersistsAndReloads(t *testing.T) {
	ctx := context.Background()
	store := mocks.NewPersonStore()
	svc := newTestFamilyService(t, store)

	parent := mustCreatePerson(t, svc, graph.PersonInput{FirstName: "Parent", Gender: entities.GenderFemale})
	child := mustCreatePerson(t, svc, graph.PersonInput{
		FirstName: "Child",
		Relationships: graph.Relationships{
			Parents: []entities.ParentRelationship{{PersonID: parent}},
		},
	})

	p, ok := svc.Graph().Person(child)
	require.True(t, ok)
	assert.Equal(t, "user-1", p.CreatedBy)
	assert.Equal(t, testTree, p.TreeID)
	assert.Equal(t, []string{parent}, p.Parents)

	edges := store.Edges(testTree)
	require.Len(t, edges, 1)
	assert.Equal(t, child, edges[0].PersonID)
	assert.Equal(t, parent, edges[0].RelatedPersonID)
	assert.Equal(t, "biological", edges[0].Subtype)

	// A second service over the same store sees the same tree.
	other := newTestFamilyService(t, store)
	assert.True(t, graph.Diff(svc.Graph(), other.Graph()).Empty())
	assert.Equal(t, []string{child}, ids(other.Graph().Children(parent)))

	_, err := svc.UpdatePerson(ctx, parent, graph.PersonPatch{Bio: strPtr("Teacher")})
	require.NoError(t, err)
	assert.Equal(t, 1, len(store.Edges(testTree)))
}

// Scenario B through the store: both sides of the marriage are persisted and
// a status change rewrites both edges.
func TestFamilyService_SpouseStatus(t *testing.T) {
	ctx := context.Background()
	store := mocks.NewPersonStore()
	svc := newTestFamilyService(t, store)

	alice := mustCreatePerson(t, svc, graph.PersonInput{FirstName: "Alice", Gender: entities.GenderFemale})
	bob := mustCreatePerson(t, svc, graph.PersonInput{
		FirstName: "Bob",
		Gender:    entities.GenderMale,
		Relationships: graph.Relationships{
			Spouses: []entities.SpouseRelationship{{PersonID: alice, Status: entities.SpouseCurrent}},
		},
	})

	spouses := edgesOfKind(store.Edges(testTree), entities.EdgeSpouse)
	require.Len(t, spouses, 2)

	a, _ := svc.Graph().Person(alice)
	assert.Equal(t, bob, a.SpouseID)

	require.NoError(t, svc.SetSpouseStatus(ctx, bob, alice, entities.SpouseDivorced))

	for _, e := range edgesOfKind(store.Edges(testTree), entities.EdgeSpouse) {
		assert.Equal(t, "divorced", e.Subtype)
	}
	a, _ = svc.Graph().Person(alice)
	b, _ := svc.Graph().Person(bob)
	assert.Empty(t, a.SpouseID)
	assert.Empty(t, b.SpouseID)
}

func TestFamilyService_IncrementalOperations(t *testing.T) {
	ctx := context.Background()
	store := mocks.NewPersonStore()
	svc := newTestFamilyService(t, store)

	mom := mustCreatePerson(t, svc, graph.PersonInput{FirstName: "Mom"})
	dad := mustCreatePerson(t, svc, graph.PersonInput{FirstName: "Dad"})
	kid := mustCreatePerson(t, svc, graph.PersonInput{FirstName: "Kid"})

	require.NoError(t, svc.AddSpouse(ctx, mom, dad, "", "1975"))
	require.NoError(t, svc.AddChild(ctx, mom, kid, ""))
	require.NoError(t, svc.AddChild(ctx, dad, kid, entities.ParentStep))
	require.NoError(t, svc.SetParentType(ctx, kid, dad, entities.ParentAdoptive))

	edges := store.Edges(testTree)
	assert.Len(t, edgesOfKind(edges, entities.EdgeParent), 2)
	assert.Len(t, edgesOfKind(edges, entities.EdgeSpouse), 2)

	k, _ := svc.Graph().Person(kid)
	rel, ok := k.ParentEdge(dad)
	require.True(t, ok)
	assert.Equal(t, entities.ParentAdoptive, rel.Type)

	require.NoError(t, svc.RemoveParent(ctx, kid, dad))
	require.NoError(t, svc.RemoveSpouse(ctx, mom, dad))

	edges = store.Edges(testTree)
	require.Len(t, edges, 1)
	assert.Equal(t, mom, edges[0].RelatedPersonID)

	var nf *entities.NotFoundError
	require.ErrorAs(t, svc.RemoveSpouse(ctx, mom, dad), &nf)
}

func TestFamilyService_DeletePerson(t *testing.T) {
	ctx := context.Background()
	store := mocks.NewPersonStore()
	svc := newTestFamilyService(t, store)

	a := mustCreatePerson(t, svc, graph.PersonInput{FirstName: "A"})
	b := mustCreatePerson(t, svc, graph.PersonInput{
		FirstName: "B",
		Relationships: graph.Relationships{
			Spouses: []entities.SpouseRelationship{{PersonID: a}},
		},
	})
	c := mustCreatePerson(t, svc, graph.PersonInput{
		FirstName: "C",
		Relationships: graph.Relationships{
			Parents: []entities.ParentRelationship{{PersonID: b}},
		},
	})

	require.NoError(t, svc.DeletePerson(ctx, b))

	assert.Empty(t, store.Edges(testTree))
	g := svc.Graph()
	assert.Equal(t, 2, g.Len())
	pa, _ := g.Person(a)
	pc, _ := g.Person(c)
	assert.Empty(t, pa.SpouseRelationships)
	assert.Empty(t, pc.ParentRelationships)

	before := svc.Graph()
	writes := store.WritePersonCallCount
	deletes := store.DeleteCallCount
	loads := store.LoadCallCount

	require.NoError(t, svc.DeletePerson(ctx, b))
	require.NoError(t, svc.DeletePerson(ctx, "never-existed"))

	assert.Same(t, before, svc.Graph())
	assert.Equal(t, writes, store.WritePersonCallCount)
	assert.Equal(t, deletes, store.DeleteCallCount)
	assert.Equal(t, loads, store.LoadCallCount)
}

func TestFamilyService_RelationshipOrderSurvivesRewrite(t *testing.T) {
	ctx := context.Background()
	store := mocks.NewPersonStore()
	svc := newTestFamilyService(t, store)

	mom := mustCreatePerson(t, svc, graph.PersonInput{FirstName: "Mom"})
	dad := mustCreatePerson(t, svc, graph.PersonInput{FirstName: "Dad"})
	kid := mustCreatePerson(t, svc, graph.PersonInput{
		FirstName: "Kid",
		Relationships: graph.Relationships{
			Parents: []entities.ParentRelationship{{PersonID: mom}, {PersonID: dad}},
		},
	})
	other := mustCreatePerson(t, svc, graph.PersonInput{FirstName: "Other"})

	// Rewiring mom rewrites kid's edge to her after the edge to dad.
	require.NoError(t, svc.AddSpouse(ctx, mom, other, entities.SpouseCurrent, ""))

	p, _ := svc.Graph().Person(kid)
	assert.Equal(t, []string{mom, dad}, p.Parents)

	reloaded := newTestFamilyService(t, store)
	p, _ = reloaded.Graph().Person(kid)
	assert.Equal(t, []string{mom, dad}, p.Parents)
	assert.True(t, graph.Diff(svc.Graph(), reloaded.Graph()).Empty())
}

func TestFamilyService_RejectedMutationWritesNothing(t *testing.T) {
	ctx := context.Background()
	store := mocks.NewPersonStore()
	svc := newTestFamilyService(t, store)

	parent := mustCreatePerson(t, svc, graph.PersonInput{FirstName: "Parent"})
	child := mustCreatePerson(t, svc, graph.PersonInput{
		FirstName:     "Child",
		Relationships: graph.Relationships{Parents: []entities.ParentRelationship{{PersonID: parent}}},
	})
	before := svc.Graph()
	writes := store.WritePersonCallCount
	edgeWrites := store.WriteEdgesCallCount

	err := svc.AddChild(ctx, child, parent, "")
	var cycle *entities.CycleError
	require.ErrorAs(t, err, &cycle)

	_, err = svc.CreatePerson(ctx, graph.PersonInput{FirstName: "  "})
	var ve *entities.ValidationError
	require.ErrorAs(t, err, &ve)

	assert.Same(t, before, svc.Graph())
	assert.Equal(t, writes, store.WritePersonCallCount)
	assert.Equal(t, edgeWrites, store.WriteEdgesCallCount)
}

func TestFamilyService_PersistenceFailure(t *testing.T) {
	errBoom := errors.New("connection reset")

	t.Run("resynchronizes from the store", func(t *testing.T) {
		ctx := context.Background()
		store := mocks.NewPersonStore()
		svc := newTestFamilyService(t, store)
		parent := mustCreatePerson(t, svc, graph.PersonInput{FirstName: "Parent"})

		store.WriteEdgesErr = errBoom
		_, err := svc.CreatePerson(ctx, graph.PersonInput{
			FirstName:     "Child",
			Relationships: graph.Relationships{Parents: []entities.ParentRelationship{{PersonID: parent}}},
		})

		var pe *entities.PersistenceError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, "create person", pe.Op)
		assert.ErrorIs(t, err, errBoom)

		// The person record landed, its edge did not; local state matches the store.
		g := svc.Graph()
		assert.Equal(t, 2, g.Len())
		assert.Empty(t, g.Children(parent))
	})

	t.Run("rolls back when the reload fails too", func(t *testing.T) {
		ctx := context.Background()
		store := mocks.NewPersonStore()
		svc := newTestFamilyService(t, store)
		mustCreatePerson(t, svc, graph.PersonInput{FirstName: "Parent"})
		before := svc.Graph()

		store.WritePersonErr = errBoom
		store.LoadErr = errBoom
		_, err := svc.CreatePerson(ctx, graph.PersonInput{FirstName: "Other"})

		var pe *entities.PersistenceError
		require.ErrorAs(t, err, &pe)
		assert.Same(t, before, svc.Graph())
	})

	t.Run("keeps the written graph when only the reload fails", func(t *testing.T) {
		ctx := context.Background()
		store := mocks.NewPersonStore()
		svc := newTestFamilyService(t, store)

		store.LoadErr = errBoom
		p, err := svc.CreatePerson(ctx, graph.PersonInput{FirstName: "Solo"})
		require.NoError(t, err)
		assert.Equal(t, "Solo", p.FirstName)
		assert.Equal(t, 1, svc.Graph().Len())
	})
}

func TestFamilyService_Load(t *testing.T) {
	store := mocks.NewPersonStore()
	store.Seed(testTree, []entities.Person{
		{ID: "a", TreeID: testTree, FirstName: "Ann"},
		{ID: "b", TreeID: testTree, FirstName: "Ben"},
	}, []entities.Edge{
		{TreeID: testTree, PersonID: "b", RelatedPersonID: "a", Kind: entities.EdgeParent, Subtype: "step"},
		{TreeID: testTree, PersonID: "b", RelatedPersonID: "ghost", Kind: entities.EdgeParent},
	})

	svc := newTestFamilyService(t, store)
	g := svc.Graph()
	assert.Equal(t, 2, g.Len())
	assert.Equal(t, []string{"b"}, ids(g.Children("a")))
	assert.Empty(t, g.Check())

	store.LoadErr = errors.New("timeout")
	err := svc.Load(context.Background())
	var pe *entities.PersistenceError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "load", pe.Op)
	assert.Same(t, g, svc.Graph())
}

func TestFamilyService_Photos(t *testing.T) {
	ctx := context.Background()
	store := mocks.NewPersonStore()
	svc := newTestFamilyService(t, store)
	id := mustCreatePerson(t, svc, graph.PersonInput{FirstName: "Pic"})

	photo, err := svc.AddPhoto(ctx, id, graph.PhotoInput{URL: "https://img/1.jpg", Caption: "Beach"})
	require.NoError(t, err)
	assert.Equal(t, []string{id}, photo.TaggedPersonIDs)
	assert.Equal(t, "user-1", photo.UploadedBy)

	require.NoError(t, svc.SetProfilePhoto(ctx, id, photo.URL))

	reloaded := newTestFamilyService(t, store)
	p, ok := reloaded.Graph().Person(id)
	require.True(t, ok)
	require.Len(t, p.Photos, 1)
	assert.Equal(t, "Beach", p.Photos[0].Caption)
	assert.Equal(t, "https://img/1.jpg", p.ProfilePhoto)

	_, err = svc.AddPhoto(ctx, id, graph.PhotoInput{})
	var ve *entities.ValidationError
	require.ErrorAs(t, err, &ve)
}

func strPtr(s string) *string {
	return &s
}

func ids(persons []*entities.Person) []string {
	out := make([]string, 0, len(persons))
	for _, p := range persons {
		out = append(out, p.ID)
	}
	return out
}
