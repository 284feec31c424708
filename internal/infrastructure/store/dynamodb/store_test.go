package dynamodb

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ersonp/roots-core/internal/domain/entities"
)

// fakeAPI is an in-memory table understanding the expressions the store
// sends.
type fakeAPI struct {
	mu          sync.Mutex
	items       map[string]map[string]types.AttributeValue
	tableExists bool
	pageSize    int

	// unprocessedOnce makes the next BatchWriteItem leave its last request
	// unprocessed.
	unprocessedOnce bool
	queryErr        error

	batchSizes   []int
	queryCalls   int
	createTables int
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{items: make(map[string]map[string]types.AttributeValue), tableExists: true, pageSize: 3}
}

func str(item map[string]types.AttributeValue, key string) string {
	if v, ok := item[key].(*types.AttributeValueMemberS); ok {
		return v.Value
	}
	return ""
}

func (f *fakeAPI) key(item map[string]types.AttributeValue) string {
	return str(item, "PK") + "|" + str(item, "SK")
}

func (f *fakeAPI) Query(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queryCalls++
	if f.queryErr != nil {
		return nil, f.queryErr
	}

	pk := str(in.ExpressionAttributeValues, ":pk")
	prefix := str(in.ExpressionAttributeValues, ":skPrefix")
	id := str(in.ExpressionAttributeValues, ":id")
	start := str(in.ExclusiveStartKey, "SK")

	var matched []map[string]types.AttributeValue
	for _, item := range f.items {
		sk := str(item, "SK")
		if str(item, "PK") != pk || !strings.HasPrefix(sk, prefix) || (start != "" && sk <= start) {
			continue
		}
		matched = append(matched, item)
	}
	sort.Slice(matched, func(i, j int) bool { return str(matched[i], "SK") < str(matched[j], "SK") })

	out := &dynamodb.QueryOutput{}
	if len(matched) > f.pageSize {
		matched = matched[:f.pageSize]
		last := matched[len(matched)-1]
		out.LastEvaluatedKey = map[string]types.AttributeValue{"PK": last["PK"], "SK": last["SK"]}
	}
	// Filters apply after the page is read, as in DynamoDB.
	for _, item := range matched {
		if id != "" && str(item, "PersonID") != id && str(item, "RelatedPersonID") != id {
			continue
		}
		out.Items = append(out.Items, item)
	}
	return out, nil
}

func (f *fakeAPI) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[f.key(in.Item)] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeAPI) DeleteItem(_ context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.items, f.key(in.Key))
	return &dynamodb.DeleteItemOutput{}, nil
}

func (f *fakeAPI) BatchWriteItem(_ context.Context, in *dynamodb.BatchWriteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := &dynamodb.BatchWriteItemOutput{UnprocessedItems: map[string][]types.WriteRequest{}}
	for table, requests := range in.RequestItems {
		f.batchSizes = append(f.batchSizes, len(requests))
		if f.unprocessedOnce && len(requests) > 0 {
			f.unprocessedOnce = false
			out.UnprocessedItems[table] = requests[len(requests)-1:]
			requests = requests[:len(requests)-1]
		}
		for _, r := range requests {
			switch {
			case r.PutRequest != nil:
				f.items[f.key(r.PutRequest.Item)] = r.PutRequest.Item
			case r.DeleteRequest != nil:
				delete(f.items, f.key(r.DeleteRequest.Key))
			}
		}
	}
	return out, nil
}

func (f *fakeAPI) DescribeTable(_ context.Context, in *dynamodb.DescribeTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.tableExists {
		return nil, &types.ResourceNotFoundException{Message: aws.String("no table")}
	}
	return &dynamodb.DescribeTableOutput{Table: &types.TableDescription{
		TableName:   in.TableName,
		TableStatus: types.TableStatusActive,
	}}, nil
}

func (f *fakeAPI) CreateTable(_ context.Context, _ *dynamodb.CreateTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createTables++
	f.tableExists = true
	return &dynamodb.CreateTableOutput{}, nil
}

func setupTestStore(t *testing.T) (*Store, *fakeAPI) {
	t.Helper()
	api := newFakeAPI()
	store, err := NewStore(api, "roots", zap.NewNop())
	require.NoError(t, err)
	retryDelay = 0
	return store, api
}

func spouseEdge(tree, a, b, status string) entities.Edge {
	return entities.Edge{
		ID: entities.EdgeID(a, entities.EdgeSpouse, b), TreeID: tree,
		PersonID: a, RelatedPersonID: b, Kind: entities.EdgeSpouse, Subtype: status,
	}
}

func parentEdge(tree, child, parent string) entities.Edge {
	return entities.Edge{
		ID: entities.EdgeID(child, entities.EdgeParent, parent), TreeID: tree,
		PersonID: child, RelatedPersonID: parent, Kind: entities.EdgeParent, Subtype: "biological",
	}
}

func TestNewStore(t *testing.T) {
	_, err := NewStore(nil, "roots", nil)
	assert.Error(t, err)
	_, err = NewStore(newFakeAPI(), "", nil)
	assert.Error(t, err)
}

func TestStore_EnsureSchema(t *testing.T) {
	store, api := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.EnsureSchema(ctx))
	assert.Zero(t, api.createTables)

	api.tableExists = false
	require.NoError(t, store.EnsureSchema(ctx))
	assert.Equal(t, 1, api.createTables)
}

func TestStore_Persons(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	// Written out of creation order; ids sort the other way round.
	for i, name := range []string{"Cy", "Bea", "Ada", "Dee"} {
		p := &entities.Person{
			ID: string(rune('z' - i)), TreeID: "t1", FirstName: name, IsLiving: true,
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}
		require.NoError(t, store.WritePerson(ctx, p))
	}
	require.NoError(t, store.WritePerson(ctx, &entities.Person{
		ID: "p1", TreeID: "t1", FirstName: "Eve", CreatedAt: base.Add(-time.Hour),
		Photos: []entities.Photo{{ID: "ph", URL: "u", TaggedPersonIDs: []string{"p1"}}},
	}))
	require.NoError(t, store.WritePerson(ctx, &entities.Person{ID: "x", TreeID: "t2", FirstName: "Other"}))

	persons, edges, err := store.LoadAll(ctx, "t1")
	require.NoError(t, err)
	assert.Empty(t, edges)
	require.Len(t, persons, 5)

	var names []string
	for _, p := range persons {
		names = append(names, p.FirstName)
	}
	assert.Equal(t, []string{"Eve", "Cy", "Bea", "Ada", "Dee"}, names)
	assert.Equal(t, []string{"p1"}, persons[0].Photos[0].TaggedPersonIDs)
	assert.NotNil(t, persons[1].Photos)
	assert.True(t, persons[1].IsLiving)

	require.NoError(t, store.DeletePerson(ctx, "t1", "p1"))
	persons, _, err = store.LoadAll(ctx, "t1")
	require.NoError(t, err)
	assert.Len(t, persons, 4)
}

func TestStore_Edges(t *testing.T) {
	store, api := setupTestStore(t)
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	timeNow = func() time.Time { return now }
	t.Cleanup(func() { timeNow = time.Now })

	// 30 children of p, plus a marriage: two batches.
	var edges []entities.Edge
	for i := range 30 {
		edges = append(edges, parentEdge("t1", "c"+string(rune('a'+i%26))+string(rune('a'+i/26)), "p"))
	}
	edges = append(edges, spouseEdge("t1", "p", "q", "current"), spouseEdge("t1", "q", "p", "current"))
	require.NoError(t, store.WriteEdges(ctx, edges))
	assert.Equal(t, []int{25, 7}, api.batchSizes)

	_, loaded, err := store.LoadAll(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, loaded, 32)
	// Write order survives the id-keyed sort keys.
	for i := range edges {
		assert.Equal(t, edges[i].ID, loaded[i].ID)
	}

	t.Run("delete edges for person", func(t *testing.T) {
		require.NoError(t, store.DeleteEdgesFor(ctx, "t1", "q"))
		_, loaded, err := store.LoadAll(ctx, "t1")
		require.NoError(t, err)
		assert.Len(t, loaded, 30)
		for _, e := range loaded {
			assert.False(t, e.Touches("q"))
		}
	})

	t.Run("delete tree", func(t *testing.T) {
		require.NoError(t, store.WritePerson(ctx, &entities.Person{ID: "p", TreeID: "t1", FirstName: "P"}))
		require.NoError(t, store.DeleteTree(ctx, "t1"))
		persons, edges, err := store.LoadAll(ctx, "t1")
		require.NoError(t, err)
		assert.Empty(t, persons)
		assert.Empty(t, edges)
	})
}

func TestStore_UnprocessedItems(t *testing.T) {
	store, api := setupTestStore(t)
	ctx := context.Background()

	api.unprocessedOnce = true
	require.NoError(t, store.WriteEdges(ctx, []entities.Edge{
		spouseEdge("t1", "a", "b", "current"),
		spouseEdge("t1", "b", "a", "current"),
	}))
	assert.Equal(t, []int{2, 1}, api.batchSizes)

	_, loaded, err := store.LoadAll(ctx, "t1")
	require.NoError(t, err)
	assert.Len(t, loaded, 2)
}

func TestStore_LoadError(t *testing.T) {
	store, api := setupTestStore(t)
	api.queryErr = errors.New("throttled")

	_, _, err := store.LoadAll(context.Background(), "t1")
	assert.ErrorContains(t, err, "throttled")
}
