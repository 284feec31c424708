package handlers

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersonp/roots-core/internal/domain/entities"
	"github.com/ersonp/roots-core/internal/domain/graph"
)

func strPtr(s string) *string { return &s }

func TestPersonHandler_HandleAdd(t *testing.T) {
	family, store := newTestFamily(t)
	ids := seedFamily(t, family)
	handler := NewPersonHandler(family)

	p, err := handler.HandleAdd(context.Background(), AddRequest{
		Input:   graph.PersonInput{FirstName: "Anna", LastName: "King", Gender: entities.GenderFemale},
		Parents: []string{"Ada King", ids["william"] + ":step"},
	})
	require.NoError(t, err)

	require.Len(t, p.ParentRelationships, 2)
	assert.Equal(t, entities.ParentRelationship{PersonID: ids["ada"], Type: entities.ParentBiological}, p.ParentRelationships[0])
	assert.Equal(t, entities.ParentRelationship{PersonID: ids["william"], Type: entities.ParentStep}, p.ParentRelationships[1])
	assert.Equal(t, "tester", p.CreatedBy)

	stored, ok := store.Person(testTree, p.ID)
	require.True(t, ok)
	assert.Equal(t, "Anna", stored.FirstName)
}

func TestPersonHandler_HandleAdd_InvalidSpec(t *testing.T) {
	tests := []struct {
		name    string
		req     AddRequest
		wantErr string
	}{
		{
			name:    "unknown parent",
			req:     AddRequest{Input: graph.PersonInput{FirstName: "X"}, Parents: []string{"Nobody"}},
			wantErr: `parent "Nobody"`,
		},
		{
			name:    "bad parent type",
			req:     AddRequest{Input: graph.PersonInput{FirstName: "X"}, Parents: []string{"Ralph:godparent"}},
			wantErr: "invalid parent type",
		},
		{
			name:    "bad spouse status",
			req:     AddRequest{Input: graph.PersonInput{FirstName: "X"}, Spouses: []string{"Ben:engaged"}},
			wantErr: "invalid spouse status",
		},
		{
			name:    "missing first name",
			req:     AddRequest{Input: graph.PersonInput{LastName: "X"}},
			wantErr: "first_name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			family, _ := newTestFamily(t)
			seedFamily(t, family)
			handler := NewPersonHandler(family)
			before := family.Graph().Len()

			_, err := handler.HandleAdd(context.Background(), tt.req)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Equal(t, before, family.Graph().Len())
		})
	}
}

func TestPersonHandler_HandleEdit(t *testing.T) {
	family, _ := newTestFamily(t)
	ids := seedFamily(t, family)
	handler := NewPersonHandler(family)
	ctx := context.Background()

	p, err := handler.HandleEdit(ctx, "Ben Byron", EditRequest{
		Patch: graph.PersonPatch{Occupation: strPtr("Sailor")},
	})
	require.NoError(t, err)
	assert.Equal(t, "Sailor", p.Occupation)
	assert.Len(t, p.ParentRelationships, 2, "relationships untouched without SetRelationships")

	p, err = handler.HandleEdit(ctx, ids["ben"], EditRequest{
		SetRelationships: true,
		Parents:          []string{"George Byron:adoptive"},
	})
	require.NoError(t, err)
	require.Len(t, p.ParentRelationships, 1)
	assert.Equal(t, entities.ParentAdoptive, p.ParentRelationships[0].Type)
	assert.Len(t, family.Graph().Children(ids["anne"]), 1)
}

func TestPersonHandler_HandleDelete(t *testing.T) {
	family, store := newTestFamily(t)
	ids := seedFamily(t, family)
	handler := NewPersonHandler(family)

	deleted, err := handler.HandleDelete(context.Background(), "Ralph")
	require.NoError(t, err)
	assert.Equal(t, ids["ralph"], deleted.ID)

	_, ok := family.Graph().Person(ids["ralph"])
	assert.False(t, ok)
	assert.Empty(t, family.Graph().Children(ids["ada"]))
	for _, e := range store.Edges(testTree) {
		assert.NotEqual(t, ids["ralph"], e.PersonID)
		assert.NotEqual(t, ids["ralph"], e.RelatedPersonID)
	}

	_, err = handler.HandleDelete(context.Background(), "Ralph")
	var nf *entities.NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestPersonHandler_HandleShow(t *testing.T) {
	family, _ := newTestFamily(t)
	ids := seedFamily(t, family)
	handler := NewPersonHandler(family)
	handler.now = func() time.Time { return testNow }

	view, err := handler.HandleShow("Ada King")
	require.NoError(t, err)

	assert.Equal(t, ids["ada"], view.Person.ID)
	assert.Equal(t, "Ada King (née Byron)", view.FullName)
	assert.Equal(t, "b. 1950", view.LifeSpan)
	require.NotNil(t, view.Age)
	assert.Equal(t, 73, *view.Age)
	assert.Len(t, view.Parents, 2)
	require.Len(t, view.Children, 1)
	assert.Equal(t, ids["ralph"], view.Children[0].ID)
	require.Len(t, view.Spouses, 1)
	assert.Equal(t, ids["william"], view.Spouses[0].Person.ID)
	require.Len(t, view.Siblings, 1)
	assert.Equal(t, ids["ben"], view.Siblings[0].Person.ID)
	assert.True(t, view.Siblings[0].Full)

	view, err = handler.HandleShow(ids["ben"])
	require.NoError(t, err)
	assert.Nil(t, view.Age)
}

func TestPersonHandler_ListAndSearch(t *testing.T) {
	family, _ := newTestFamily(t)
	seedFamily(t, family)
	handler := NewPersonHandler(family)

	list := handler.HandleList()
	require.Len(t, list, 6)
	assert.Equal(t, "George", list[0].FirstName)

	matches := handler.HandleSearch("seaham")
	require.Len(t, matches, 1)
	assert.Equal(t, "Anne", matches[0].FirstName)

	assert.Empty(t, handler.HandleSearch("  "))
}

func TestPersonHandler_Photos(t *testing.T) {
	family, _ := newTestFamily(t)
	ids := seedFamily(t, family)
	handler := NewPersonHandler(family)
	ctx := context.Background()

	photo, err := handler.HandleAddPhoto(ctx, "Ralph", graph.PhotoInput{URL: "https://example.com/ralph.jpg", Caption: "Graduation"}, true)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/ralph.jpg", photo.URL)
	assert.Equal(t, []string{ids["ralph"]}, photo.TaggedPersonIDs)

	p, _ := family.Graph().Person(ids["ralph"])
	assert.Equal(t, "https://example.com/ralph.jpg", p.ProfilePhoto)
	require.Len(t, p.Photos, 1)

	require.NoError(t, handler.HandleSetProfilePhoto(ctx, ids["ralph"], "https://example.com/other.jpg"))
	p, _ = family.Graph().Person(ids["ralph"])
	assert.Equal(t, "https://example.com/other.jpg", p.ProfilePhoto)

	_, err = handler.HandleAddPhoto(ctx, "Ralph", graph.PhotoInput{}, false)
	var verr *entities.ValidationError
	assert.ErrorAs(t, err, &verr)
}
