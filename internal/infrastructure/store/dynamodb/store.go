// Package dynamodb implements ports.PersonStore on a single DynamoDB table.
//
// Every record of a tree shares the partition key TREE#<treeID>. Persons
// use the sort key PERSON#<id> and edges EDGE#<edgeID>, so a full tree load
// is two queries on one partition.
package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ersonp/roots-core/internal/domain/entities"
	"github.com/ersonp/roots-core/internal/infrastructure/config"
)

const (
	// maxBatchSize is the BatchWriteItem limit.
	maxBatchSize = 25
	// maxBatchRetries bounds the resubmission of unprocessed items.
	maxBatchRetries = 5

	personPrefix = "PERSON#"
	edgePrefix   = "EDGE#"
)

// timeNow returns the current time (can be mocked in tests).
var timeNow = time.Now

// retryDelay is the pause before resubmitting unprocessed items.
var retryDelay = 100 * time.Millisecond

// API is the subset of the DynamoDB client used by the store.
type API interface {
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	BatchWriteItem(ctx context.Context, in *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
	DescribeTable(ctx context.Context, in *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
	CreateTable(ctx context.Context, in *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
}

// personItem is the DynamoDB form of a person.
type personItem struct {
	PK           string           `dynamodbav:"PK"`
	SK           string           `dynamodbav:"SK"`
	ID           string           `dynamodbav:"ID"`
	TreeID       string           `dynamodbav:"TreeID"`
	FirstName    string           `dynamodbav:"FirstName"`
	LastName     string           `dynamodbav:"LastName,omitempty"`
	MaidenName   string           `dynamodbav:"MaidenName,omitempty"`
	Nickname     string           `dynamodbav:"Nickname,omitempty"`
	Gender       string           `dynamodbav:"Gender,omitempty"`
	BirthDate    string           `dynamodbav:"BirthDate,omitempty"`
	BirthPlace   string           `dynamodbav:"BirthPlace,omitempty"`
	DeathDate    string           `dynamodbav:"DeathDate,omitempty"`
	DeathPlace   string           `dynamodbav:"DeathPlace,omitempty"`
	IsLiving     bool             `dynamodbav:"IsLiving"`
	ProfilePhoto string           `dynamodbav:"ProfilePhoto,omitempty"`
	Photos       []entities.Photo `dynamodbav:"Photos"`
	Bio          string           `dynamodbav:"Bio,omitempty"`
	Occupation   string           `dynamodbav:"Occupation,omitempty"`
	CreatedAt    time.Time        `dynamodbav:"CreatedAt"`
	UpdatedAt    time.Time        `dynamodbav:"UpdatedAt"`
	CreatedBy    string           `dynamodbav:"CreatedBy,omitempty"`
}

// edgeItem is the DynamoDB form of an edge. Seq orders edges by write time.
type edgeItem struct {
	PK              string    `dynamodbav:"PK"`
	SK              string    `dynamodbav:"SK"`
	ID              string    `dynamodbav:"ID"`
	TreeID          string    `dynamodbav:"TreeID"`
	PersonID        string    `dynamodbav:"PersonID"`
	RelatedPersonID string    `dynamodbav:"RelatedPersonID"`
	Kind            string    `dynamodbav:"Kind"`
	Subtype         string    `dynamodbav:"Subtype"`
	MarriageDate    string    `dynamodbav:"MarriageDate,omitempty"`
	DivorceDate     string    `dynamodbav:"DivorceDate,omitempty"`
	Position        int       `dynamodbav:"Position"`
	CreatedAt       time.Time `dynamodbav:"CreatedAt"`
	Seq             int64     `dynamodbav:"Seq"`
}

// Store implements ports.PersonStore using DynamoDB.
type Store struct {
	client API
	table  string
	logger *zap.Logger
}

// NewClient builds a DynamoDB client from the default AWS credential chain.
func NewClient(ctx context.Context, cfg config.DynamoDBConfig) (*dynamodb.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}
	return dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	}), nil
}

// NewStore creates a store on the given table.
func NewStore(client API, table string, logger *zap.Logger) (*Store, error) {
	if client == nil {
		return nil, errors.New("dynamodb client is required")
	}
	if table == "" {
		return nil, errors.New("dynamodb table is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		client: client,
		table:  table,
		logger: logger.With(zap.String("backend", config.BackendDynamoDB), zap.String("table", table)),
	}, nil
}

func treeKey(treeID string) string {
	return "TREE#" + treeID
}

func itemKey(treeID, sk string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: treeKey(treeID)},
		"SK": &types.AttributeValueMemberS{Value: sk},
	}
}

// EnsureSchema creates the table with on-demand billing if it doesn't exist
// and waits until it is active.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(s.table)})
	if err == nil {
		return nil
	}
	var notFound *types.ResourceNotFoundException
	if !errors.As(err, &notFound) {
		return fmt.Errorf("describing table: %w", err)
	}

	_, err = s.client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(s.table),
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String("PK"), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String("SK"), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String("PK"), KeyType: types.KeyTypeHash},
			{AttributeName: aws.String("SK"), KeyType: types.KeyTypeRange},
		},
		BillingMode: types.BillingModePayPerRequest,
	})
	if err != nil {
		return fmt.Errorf("creating table: %w", err)
	}

	waiter := dynamodb.NewTableExistsWaiter(s.client)
	if err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(s.table)}, 2*time.Minute); err != nil {
		return fmt.Errorf("waiting for table: %w", err)
	}
	s.logger.Info("table created")
	return nil
}

// Close is a no-op; the client holds no connection.
func (s *Store) Close() error {
	return nil
}

// LoadAll returns every person and edge of a tree. Persons and edges are
// queried concurrently.
func (s *Store) LoadAll(ctx context.Context, treeID string) ([]entities.Person, []entities.Edge, error) {
	var personItems []personItem
	var edgeItems []edgeItem

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		items, err := s.queryPrefix(gctx, treeID, personPrefix, "")
		if err != nil {
			return fmt.Errorf("querying persons: %w", err)
		}
		personItems = make([]personItem, 0, len(items))
		for _, item := range items {
			var p personItem
			if err := attributevalue.UnmarshalMap(item, &p); err != nil {
				s.logger.Warn("skipping malformed person item", zap.Error(err))
				continue
			}
			personItems = append(personItems, p)
		}
		return nil
	})
	g.Go(func() error {
		items, err := s.queryPrefix(gctx, treeID, edgePrefix, "")
		if err != nil {
			return fmt.Errorf("querying edges: %w", err)
		}
		edgeItems = make([]edgeItem, 0, len(items))
		for _, item := range items {
			var e edgeItem
			if err := attributevalue.UnmarshalMap(item, &e); err != nil {
				s.logger.Warn("skipping malformed edge item", zap.Error(err))
				continue
			}
			edgeItems = append(edgeItems, e)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	// Sort keys are ids, so restore creation order explicitly.
	slices.SortStableFunc(personItems, func(a, b personItem) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	slices.SortStableFunc(edgeItems, func(a, b edgeItem) int {
		if a.Seq != b.Seq {
			if a.Seq < b.Seq {
				return -1
			}
			return 1
		}
		return strings.Compare(a.ID, b.ID)
	})

	persons := make([]entities.Person, 0, len(personItems))
	for _, p := range personItems {
		persons = append(persons, p.toPerson())
	}
	edges := make([]entities.Edge, 0, len(edgeItems))
	for _, e := range edgeItems {
		edges = append(edges, e.toEdge())
	}

	s.logger.Debug("tree loaded",
		zap.String("tree_id", treeID),
		zap.Int("persons", len(persons)),
		zap.Int("edges", len(edges)),
	)
	return persons, edges, nil
}

// queryPrefix returns every item of the tree partition whose sort key starts
// with prefix (all items when empty), following pagination. A non-empty personID keeps only edges
// with that person as either endpoint.
func (s *Store) queryPrefix(ctx context.Context, treeID, prefix, personID string) ([]map[string]types.AttributeValue, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(s.table),
		KeyConditionExpression: aws.String("PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: treeKey(treeID)},
		},
	}
	if prefix != "" {
		input.KeyConditionExpression = aws.String("PK = :pk AND begins_with(SK, :skPrefix)")
		input.ExpressionAttributeValues[":skPrefix"] = &types.AttributeValueMemberS{Value: prefix}
	}
	if personID != "" {
		input.FilterExpression = aws.String("PersonID = :id OR RelatedPersonID = :id")
		input.ExpressionAttributeValues[":id"] = &types.AttributeValueMemberS{Value: personID}
	}

	var items []map[string]types.AttributeValue
	for {
		out, err := s.client.Query(ctx, input)
		if err != nil {
			return nil, err
		}
		items = append(items, out.Items...)
		if len(out.LastEvaluatedKey) == 0 {
			return items, nil
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}
}

// WritePerson inserts or replaces a person record.
func (s *Store) WritePerson(ctx context.Context, person *entities.Person) error {
	item, err := attributevalue.MarshalMap(newPersonItem(person))
	if err != nil {
		return fmt.Errorf("marshaling person: %w", err)
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("saving person: %w", err)
	}
	return nil
}

// WriteEdges inserts or replaces edges by id, in batches of 25.
func (s *Store) WriteEdges(ctx context.Context, edges []entities.Edge) error {
	if len(edges) == 0 {
		return nil
	}

	base := timeNow().UnixNano()
	requests := make([]types.WriteRequest, 0, len(edges))
	for i, e := range edges {
		item, err := attributevalue.MarshalMap(newEdgeItem(e, base+int64(i)))
		if err != nil {
			return fmt.Errorf("marshaling edge: %w", err)
		}
		requests = append(requests, types.WriteRequest{PutRequest: &types.PutRequest{Item: item}})
	}

	if err := s.batchWrite(ctx, requests); err != nil {
		return fmt.Errorf("saving edges: %w", err)
	}
	return nil
}

// DeletePerson removes a person record.
func (s *Store) DeletePerson(ctx context.Context, treeID, personID string) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.table),
		Key:       itemKey(treeID, personPrefix+personID),
	})
	if err != nil {
		return fmt.Errorf("deleting person: %w", err)
	}
	return nil
}

// DeleteEdgesFor removes every edge with personID as either endpoint.
func (s *Store) DeleteEdgesFor(ctx context.Context, treeID, personID string) error {
	items, err := s.queryPrefix(ctx, treeID, edgePrefix, personID)
	if err != nil {
		return fmt.Errorf("querying edges for deletion: %w", err)
	}
	if err := s.batchWrite(ctx, deleteRequests(items)); err != nil {
		return fmt.Errorf("deleting edges: %w", err)
	}
	return nil
}

// DeleteTree removes every item of the tree partition.
func (s *Store) DeleteTree(ctx context.Context, treeID string) error {
	items, err := s.queryPrefix(ctx, treeID, "", "")
	if err != nil {
		return fmt.Errorf("querying tree for deletion: %w", err)
	}
	if err := s.batchWrite(ctx, deleteRequests(items)); err != nil {
		return fmt.Errorf("deleting tree: %w", err)
	}
	s.logger.Info("tree deleted", zap.String("tree_id", treeID), zap.Int("items", len(items)))
	return nil
}

func deleteRequests(items []map[string]types.AttributeValue) []types.WriteRequest {
	requests := make([]types.WriteRequest, 0, len(items))
	for _, item := range items {
		requests = append(requests, types.WriteRequest{DeleteRequest: &types.DeleteRequest{
			Key: map[string]types.AttributeValue{"PK": item["PK"], "SK": item["SK"]},
		}})
	}
	return requests
}

// batchWrite sends requests in chunks of 25 and resubmits unprocessed items.
func (s *Store) batchWrite(ctx context.Context, requests []types.WriteRequest) error {
	for start := 0; start < len(requests); start += maxBatchSize {
		batch := requests[start:min(start+maxBatchSize, len(requests))]

		for attempt := 0; len(batch) > 0; attempt++ {
			if attempt > maxBatchRetries {
				return fmt.Errorf("%d items unprocessed after %d retries", len(batch), maxBatchRetries)
			}
			if attempt > 0 {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(retryDelay):
				}
			}

			out, err := s.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
				RequestItems: map[string][]types.WriteRequest{s.table: batch},
			})
			if err != nil {
				return err
			}
			batch = out.UnprocessedItems[s.table]
			if len(batch) > 0 {
				s.logger.Debug("resubmitting unprocessed items", zap.Int("count", len(batch)), zap.Int("attempt", attempt+1))
			}
		}
	}
	return nil
}

func newPersonItem(p *entities.Person) personItem {
	photos := p.Photos
	if photos == nil {
		photos = []entities.Photo{}
	}
	return personItem{
		PK:           treeKey(p.TreeID),
		SK:           personPrefix + p.ID,
		ID:           p.ID,
		TreeID:       p.TreeID,
		FirstName:    p.FirstName,
		LastName:     p.LastName,
		MaidenName:   p.MaidenName,
		Nickname:     p.Nickname,
		Gender:       string(p.Gender),
		BirthDate:    p.BirthDate,
		BirthPlace:   p.BirthPlace,
		DeathDate:    p.DeathDate,
		DeathPlace:   p.DeathPlace,
		IsLiving:     p.IsLiving,
		ProfilePhoto: p.ProfilePhoto,
		Photos:       photos,
		Bio:          p.Bio,
		Occupation:   p.Occupation,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
		CreatedBy:    p.CreatedBy,
	}
}

func (i personItem) toPerson() entities.Person {
	photos := i.Photos
	if photos == nil {
		photos = []entities.Photo{}
	}
	return entities.Person{
		ID:           i.ID,
		TreeID:       i.TreeID,
		FirstName:    i.FirstName,
		LastName:     i.LastName,
		MaidenName:   i.MaidenName,
		Nickname:     i.Nickname,
		Gender:       entities.Gender(i.Gender),
		BirthDate:    i.BirthDate,
		BirthPlace:   i.BirthPlace,
		DeathDate:    i.DeathDate,
		DeathPlace:   i.DeathPlace,
		IsLiving:     i.IsLiving,
		ProfilePhoto: i.ProfilePhoto,
		Photos:       photos,
		Bio:          i.Bio,
		Occupation:   i.Occupation,
		CreatedAt:    i.CreatedAt,
		UpdatedAt:    i.UpdatedAt,
		CreatedBy:    i.CreatedBy,
	}
}

func newEdgeItem(e entities.Edge, seq int64) edgeItem {
	return edgeItem{
		PK:              treeKey(e.TreeID),
		SK:              edgePrefix + e.ID,
		ID:              e.ID,
		TreeID:          e.TreeID,
		PersonID:        e.PersonID,
		RelatedPersonID: e.RelatedPersonID,
		Kind:            string(e.Kind),
		Subtype:         e.Subtype,
		MarriageDate:    e.MarriageDate,
		DivorceDate:     e.DivorceDate,
		Position:        e.Position,
		CreatedAt:       e.CreatedAt,
		Seq:             seq,
	}
}

func (i edgeItem) toEdge() entities.Edge {
	return entities.Edge{
		ID:              i.ID,
		TreeID:          i.TreeID,
		PersonID:        i.PersonID,
		RelatedPersonID: i.RelatedPersonID,
		Kind:            entities.EdgeKind(i.Kind),
		Subtype:         i.Subtype,
		MarriageDate:    i.MarriageDate,
		DivorceDate:     i.DivorceDate,
		Position:        i.Position,
		CreatedAt:       i.CreatedAt,
	}
}
