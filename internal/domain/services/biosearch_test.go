package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ersonp/roots-core/internal/domain/entities"
	"github.com/ersonp/roots-core/internal/domain/graph"
	"github.com/ersonp/roots-core/internal/domain/mocks"
	"github.com/ersonp/roots-core/internal/domain/ports"
)

func bioGraph(t *testing.T) *graph.Graph {
	t.Helper()
	g := graph.New(append(testGraphOptions(), graph.WithTreeID(testTree))...)
	var err error
	g, _, err = g.CreatePerson(graph.PersonInput{FirstName: "Ada", Bio: "Wrote the first program.", Occupation: "Mathematician"}, "u")
	require.NoError(t, err)
	g, _, err = g.CreatePerson(graph.PersonInput{FirstName: "Blank"}, "u")
	require.NoError(t, err)
	g, _, err = g.CreatePerson(graph.PersonInput{FirstName: "Sea", BirthPlace: "Galway"}, "u")
	require.NoError(t, err)
	return g
}

func TestBioSearchService_Reindex(t *testing.T) {
	embedder := &mocks.Embedder{EmbeddingResult: []float32{0.1, 0.2, 0.3}}
	index := mocks.NewBioIndex()
	svc := NewBioSearchService(embedder, index, index, zap.NewNop())

	result, err := svc.Reindex(context.Background(), bioGraph(t))
	require.NoError(t, err)

	assert.Equal(t, 2, result.Indexed)
	assert.Equal(t, 1, result.Removed)
	assert.Equal(t, uint64(3), index.LastVectorSize)
	assert.Equal(t, []string{"p2"}, index.Deleted)

	require.Contains(t, index.Docs, "p1")
	doc := index.Docs["p1"]
	assert.Equal(t, testTree, doc.TreeID)
	assert.Equal(t, "Ada", doc.Name)
	assert.Equal(t, "Wrote the first program. Occupation: Mathematician.", doc.Text)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, doc.Embedding)
	assert.Equal(t, "Sea. Born in Galway.", embedder.Texts[1])
}

func TestBioSearchService_ReindexErrors(t *testing.T) {
	errBoom := errors.New("boom")

	tests := []struct {
		name     string
		embedder *mocks.Embedder
		index    func() *mocks.BioIndex
		errMsg   string
	}{
		{
			name:     "collection",
			embedder: &mocks.Embedder{},
			index: func() *mocks.BioIndex {
				idx := mocks.NewBioIndex()
				idx.EnsureCollectionErr = errBoom
				return idx
			},
			errMsg: "ensuring collection",
		},
		{
			name:     "embedder",
			embedder: &mocks.Embedder{Err: errBoom},
			index:    mocks.NewBioIndex,
			errMsg:   "generating embeddings",
		},
		{
			name:     "upsert",
			embedder: &mocks.Embedder{EmbeddingResult: []float32{1}},
			index: func() *mocks.BioIndex {
				idx := mocks.NewBioIndex()
				idx.Err = errBoom
				return idx
			},
			errMsg: "upserting biographies",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx := tt.index()
			svc := NewBioSearchService(tt.embedder, idx, idx, nil)
			_, err := svc.Reindex(context.Background(), bioGraph(t))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
			assert.ErrorIs(t, err, errBoom)
		})
	}
}

func TestBioSearchService_Search(t *testing.T) {
	embedder := &mocks.Embedder{EmbeddingResult: []float32{1, 0}}
	index := mocks.NewBioIndex()
	index.Matches = make([]ports.BioMatch, 8)
	for i := range index.Matches {
		index.Matches[i] = ports.BioMatch{PersonID: string(rune('a' + i)), Score: 1 - float32(i)/10}
	}
	svc := NewBioSearchService(embedder, index, nil, nil)
	ctx := context.Background()

	matches, err := svc.Search(ctx, testTree, "sailor", 0)
	require.NoError(t, err)
	assert.Len(t, matches, DefaultSearchLimit)
	assert.Equal(t, []string{"sailor"}, embedder.Texts)

	matches, err = svc.Search(ctx, testTree, "sailor", 2)
	require.NoError(t, err)
	assert.Len(t, matches, 2)

	_, err = svc.Search(ctx, testTree, "  ", 3)
	var ve *entities.ValidationError
	require.ErrorAs(t, err, &ve)
}

func TestBioText(t *testing.T) {
	assert.Empty(t, BioText(&entities.Person{FirstName: "X"}))
	assert.Equal(t, "Occupation: Baker. Died in Leeds.",
		BioText(&entities.Person{Occupation: "Baker", DeathPlace: "Leeds"}))
}
