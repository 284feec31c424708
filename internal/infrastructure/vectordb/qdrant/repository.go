// Package qdrant provides a BioIndex implementation using Qdrant.
package qdrant

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"

	"github.com/google/uuid"
	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/ersonp/roots-core/internal/domain/ports"
	"github.com/ersonp/roots-core/internal/infrastructure/config"
)

// Payload keys.
const (
	keyPersonID = "person_id"
	keyTreeID   = "tree_id"
	keyName     = "name"
	keyText     = "text"
)

// pointNamespace derives stable point ids from tree and person ids.
var pointNamespace = uuid.MustParse("9d4b1c0e-6a53-4f0b-9a3e-5c2f1e7d8b40")

var (
	_ ports.BioIndex          = (*Repository)(nil)
	_ ports.CollectionManager = (*Repository)(nil)
)

// Repository implements ports.BioIndex and ports.CollectionManager.
type Repository struct {
	client     pb.CollectionsClient
	points     pb.PointsClient
	collection string
	conn       *grpc.ClientConn
}

// NewRepository connects to Qdrant. When an API key is configured the
// connection uses TLS and sends the key with every call.
func NewRepository(cfg config.QdrantConfig) (*Repository, error) {
	if cfg.Collection == "" {
		return nil, errors.New("qdrant collection name is required")
	}
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	opts := []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}
	if cfg.APIKey != "" {
		opts = []grpc.DialOption{
			grpc.WithTransportCredentials(credentials.NewTLS(&tls.Config{MinVersion: tls.VersionTLS12})),
			grpc.WithUnaryInterceptor(apiKeyInterceptor(cfg.APIKey)),
		}
	}

	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("connecting to qdrant: %w", err)
	}

	repo := NewRepositoryWithClients(pb.NewCollectionsClient(conn), pb.NewPointsClient(conn), cfg.Collection)
	repo.conn = conn
	return repo, nil
}

// NewRepositoryWithClients builds a repository over existing gRPC clients.
func NewRepositoryWithClients(collections pb.CollectionsClient, points pb.PointsClient, collection string) *Repository {
	return &Repository{
		client:     collections,
		points:     points,
		collection: collection,
	}
}

func apiKeyInterceptor(key string) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		ctx = metadata.AppendToOutgoingContext(ctx, "api-key", key)
		return invoker(ctx, method, req, reply, cc, opts...)
	}
}

// Close closes the gRPC connection.
func (r *Repository) Close() error {
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}

// EnsureCollection creates the collection if it doesn't exist.
func (r *Repository) EnsureCollection(ctx context.Context, vectorSize uint64) error {
	_, err := r.client.Get(ctx, &pb.GetCollectionInfoRequest{
		CollectionName: r.collection,
	})
	if err == nil {
		return nil
	}
	if status.Code(err) != codes.NotFound {
		return fmt.Errorf("getting collection info: %w", err)
	}

	_, err = r.client.Create(ctx, &pb.CreateCollection{
		CollectionName: r.collection,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     vectorSize,
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("creating collection: %w", err)
	}

	return nil
}

// DeleteCollection removes the collection and all its data.
func (r *Repository) DeleteCollection(ctx context.Context) error {
	_, err := r.client.Delete(ctx, &pb.DeleteCollection{
		CollectionName: r.collection,
	})
	if err != nil && status.Code(err) != codes.NotFound {
		return fmt.Errorf("deleting collection: %w", err)
	}
	return nil
}

// Upsert stores biography documents, replacing earlier versions.
func (r *Repository) Upsert(ctx context.Context, docs []ports.BioDocument) error {
	if len(docs) == 0 {
		return nil
	}

	points := make([]*pb.PointStruct, 0, len(docs))
	for _, doc := range docs {
		if len(doc.Embedding) == 0 {
			return fmt.Errorf("document %s has no embedding", doc.PersonID)
		}
		payload, err := pb.TryValueMap(map[string]any{
			keyPersonID: doc.PersonID,
			keyTreeID:   doc.TreeID,
			keyName:     doc.Name,
			keyText:     doc.Text,
		})
		if err != nil {
			return fmt.Errorf("building payload for %s: %w", doc.PersonID, err)
		}
		points = append(points, &pb.PointStruct{
			Id:      pointID(doc.TreeID, doc.PersonID),
			Vectors: pb.NewVectorsDense(doc.Embedding),
			Payload: payload,
		})
	}

	_, err := r.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: r.collection,
		Wait:           pb.PtrOf(true),
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("upserting points: %w", err)
	}

	return nil
}

// Search returns the documents of a tree closest to embedding.
func (r *Repository) Search(ctx context.Context, treeID string, embedding []float32, limit int) ([]ports.BioMatch, error) {
	if limit <= 0 {
		return nil, nil
	}

	resp, err := r.points.Search(ctx, &pb.SearchPoints{
		CollectionName: r.collection,
		Vector:         embedding,
		Limit:          uint64(limit),
		Filter:         treeFilter(treeID),
		WithPayload:    pb.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("searching points: %w", err)
	}

	matches := make([]ports.BioMatch, 0, len(resp.Result))
	for _, point := range resp.Result {
		matches = append(matches, ports.BioMatch{
			PersonID: getStringValue(point.Payload, keyPersonID),
			Name:     getStringValue(point.Payload, keyName),
			Text:     getStringValue(point.Payload, keyText),
			Score:    point.Score,
		})
	}

	return matches, nil
}

// Delete removes the documents of the given persons.
func (r *Repository) Delete(ctx context.Context, treeID string, personIDs []string) error {
	if len(personIDs) == 0 {
		return nil
	}

	ids := make([]*pb.PointId, 0, len(personIDs))
	for _, id := range personIDs {
		ids = append(ids, pointID(treeID, id))
	}

	_, err := r.points.Delete(ctx, &pb.DeletePoints{
		CollectionName: r.collection,
		Wait:           pb.PtrOf(true),
		Points:         pb.NewPointsSelectorIDs(ids),
	})
	if err != nil {
		return fmt.Errorf("deleting points: %w", err)
	}

	return nil
}

// DeleteTree removes every document of a tree.
func (r *Repository) DeleteTree(ctx context.Context, treeID string) error {
	_, err := r.points.Delete(ctx, &pb.DeletePoints{
		CollectionName: r.collection,
		Wait:           pb.PtrOf(true),
		Points:         pb.NewPointsSelectorFilter(treeFilter(treeID)),
	})
	if err != nil {
		return fmt.Errorf("deleting tree points: %w", err)
	}

	return nil
}

// pointID maps a person to a stable Qdrant point id. Person ids are not
// guaranteed to be UUIDs and may repeat across trees.
func pointID(treeID, personID string) *pb.PointId {
	return pb.NewID(uuid.NewSHA1(pointNamespace, []byte(treeID+"/"+personID)).String())
}

func treeFilter(treeID string) *pb.Filter {
	return &pb.Filter{
		Must: []*pb.Condition{
			pb.NewMatchKeyword(keyTreeID, treeID),
		},
	}
}

func getStringValue(payload map[string]*pb.Value, key string) string {
	if v, ok := payload[key]; ok {
		return v.GetStringValue()
	}
	return ""
}
