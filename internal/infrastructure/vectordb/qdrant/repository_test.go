package qdrant

import (
	"context"
	"errors"
	"testing"

	pb "github.com/qdrant/go-client/qdrant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/ersonp/roots-core/internal/domain/ports"
	"github.com/ersonp/roots-core/internal/infrastructure/config"
)

// fakeCollections records collection calls. Unimplemented methods panic.
type fakeCollections struct {
	pb.CollectionsClient
	getErr  error
	created *pb.CreateCollection
	deleted string
}

func (f *fakeCollections) Get(_ context.Context, _ *pb.GetCollectionInfoRequest, _ ...grpc.CallOption) (*pb.GetCollectionInfoResponse, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return &pb.GetCollectionInfoResponse{}, nil
}

func (f *fakeCollections) Create(_ context.Context, in *pb.CreateCollection, _ ...grpc.CallOption) (*pb.CollectionOperationResponse, error) {
	f.created = in
	return &pb.CollectionOperationResponse{Result: true}, nil
}

func (f *fakeCollections) Delete(_ context.Context, in *pb.DeleteCollection, _ ...grpc.CallOption) (*pb.CollectionOperationResponse, error) {
	f.deleted = in.CollectionName
	return &pb.CollectionOperationResponse{Result: true}, nil
}

// fakePoints records point calls. Unimplemented methods panic.
type fakePoints struct {
	pb.PointsClient
	upserted *pb.UpsertPoints
	search   *pb.SearchPoints
	deleted  []*pb.DeletePoints
	results  []*pb.ScoredPoint
	err      error
}

func (f *fakePoints) Upsert(_ context.Context, in *pb.UpsertPoints, _ ...grpc.CallOption) (*pb.PointsOperationResponse, error) {
	f.upserted = in
	return &pb.PointsOperationResponse{}, f.err
}

func (f *fakePoints) Search(_ context.Context, in *pb.SearchPoints, _ ...grpc.CallOption) (*pb.SearchResponse, error) {
	f.search = in
	if f.err != nil {
		return nil, f.err
	}
	return &pb.SearchResponse{Result: f.results}, nil
}

func (f *fakePoints) Delete(_ context.Context, in *pb.DeletePoints, _ ...grpc.CallOption) (*pb.PointsOperationResponse, error) {
	f.deleted = append(f.deleted, in)
	return &pb.PointsOperationResponse{}, f.err
}

func newTestRepo() (*Repository, *fakeCollections, *fakePoints) {
	collections := &fakeCollections{}
	points := &fakePoints{}
	return NewRepositoryWithClients(collections, points, "roots_smiths"), collections, points
}

func TestNewRepository_RequiresCollection(t *testing.T) {
	_, err := NewRepository(config.QdrantConfig{Host: "localhost", Port: 6334})
	assert.ErrorContains(t, err, "collection name is required")
}

func TestEnsureCollection(t *testing.T) {
	tests := []struct {
		name       string
		getErr     error
		wantCreate bool
		wantErr    string
	}{
		{
			name: "exists",
		},
		{
			name:       "missing",
			getErr:     status.Error(codes.NotFound, "collection not found"),
			wantCreate: true,
		},
		{
			name:    "unreachable",
			getErr:  status.Error(codes.Unavailable, "connection refused"),
			wantErr: "getting collection info",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, collections, _ := newTestRepo()
			collections.getErr = tt.getErr

			err := repo.EnsureCollection(context.Background(), 1536)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			if !tt.wantCreate {
				assert.Nil(t, collections.created)
				return
			}
			require.NotNil(t, collections.created)
			assert.Equal(t, "roots_smiths", collections.created.CollectionName)
			assert.Equal(t, uint64(1536), collections.created.VectorsConfig.GetParams().Size)
			assert.Equal(t, pb.Distance_Cosine, collections.created.VectorsConfig.GetParams().Distance)
		})
	}
}

func TestDeleteCollection(t *testing.T) {
	repo, collections, _ := newTestRepo()
	require.NoError(t, repo.DeleteCollection(context.Background()))
	assert.Equal(t, "roots_smiths", collections.deleted)
}

func TestUpsert(t *testing.T) {
	repo, _, points := newTestRepo()
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, nil))
	assert.Nil(t, points.upserted)

	err := repo.Upsert(ctx, []ports.BioDocument{
		{PersonID: "p1", TreeID: "t1", Name: "Ada Byron", Text: "mathematician", Embedding: []float32{0.1, 0.2}},
		{PersonID: "p2", TreeID: "t1", Name: "George Byron", Text: "poet", Embedding: []float32{0.3, 0.4}},
	})
	require.NoError(t, err)
	require.NotNil(t, points.upserted)
	require.Len(t, points.upserted.Points, 2)
	assert.True(t, points.upserted.GetWait())

	first := points.upserted.Points[0]
	assert.Equal(t, pointID("t1", "p1").GetUuid(), first.Id.GetUuid())
	assert.Equal(t, "p1", first.Payload[keyPersonID].GetStringValue())
	assert.Equal(t, "t1", first.Payload[keyTreeID].GetStringValue())
	assert.Equal(t, "Ada Byron", first.Payload[keyName].GetStringValue())
	assert.Equal(t, "mathematician", first.Payload[keyText].GetStringValue())
}

func TestUpsert_MissingEmbedding(t *testing.T) {
	repo, _, points := newTestRepo()
	err := repo.Upsert(context.Background(), []ports.BioDocument{{PersonID: "p1", TreeID: "t1"}})
	assert.ErrorContains(t, err, "p1 has no embedding")
	assert.Nil(t, points.upserted)
}

func TestSearch(t *testing.T) {
	repo, _, points := newTestRepo()
	points.results = []*pb.ScoredPoint{
		{
			Id:    pointID("t1", "p1"),
			Score: 0.91,
			Payload: map[string]*pb.Value{
				keyPersonID: pb.NewValueString("p1"),
				keyName:     pb.NewValueString("Ada Byron"),
				keyText:     pb.NewValueString("mathematician"),
			},
		},
	}

	matches, err := repo.Search(context.Background(), "t1", []float32{0.1, 0.2}, 3)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, ports.BioMatch{PersonID: "p1", Name: "Ada Byron", Text: "mathematician", Score: 0.91}, matches[0])

	require.NotNil(t, points.search)
	assert.Equal(t, uint64(3), points.search.Limit)
	require.Len(t, points.search.Filter.Must, 1)
	field := points.search.Filter.Must[0].GetField()
	assert.Equal(t, keyTreeID, field.Key)
	assert.Equal(t, "t1", field.Match.GetKeyword())

	none, err := repo.Search(context.Background(), "t1", []float32{0.1}, 0)
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestSearch_Error(t *testing.T) {
	repo, _, points := newTestRepo()
	points.err = errors.New("boom")
	_, err := repo.Search(context.Background(), "t1", []float32{0.1}, 3)
	assert.ErrorContains(t, err, "searching points")
}

func TestDelete(t *testing.T) {
	repo, _, points := newTestRepo()
	ctx := context.Background()

	require.NoError(t, repo.Delete(ctx, "t1", nil))
	assert.Empty(t, points.deleted)

	require.NoError(t, repo.Delete(ctx, "t1", []string{"p1", "p2"}))
	require.Len(t, points.deleted, 1)
	ids := points.deleted[0].Points.GetPoints().GetIds()
	require.Len(t, ids, 2)
	assert.Equal(t, pointID("t1", "p1").GetUuid(), ids[0].GetUuid())

	require.NoError(t, repo.DeleteTree(ctx, "t1"))
	require.Len(t, points.deleted, 2)
	filter := points.deleted[1].Points.GetFilter()
	require.NotNil(t, filter)
	assert.Equal(t, "t1", filter.Must[0].GetField().Match.GetKeyword())
}

func TestPointID(t *testing.T) {
	assert.Equal(t, pointID("t1", "p1").GetUuid(), pointID("t1", "p1").GetUuid())
	assert.NotEqual(t, pointID("t1", "p1").GetUuid(), pointID("t2", "p1").GetUuid())
}
