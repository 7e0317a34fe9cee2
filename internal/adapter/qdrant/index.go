// Package qdrant is the remote document index backed by Qdrant's gRPC API.
package qdrant

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/pavnask/rag-local-fork/internal/domain"
)

// Payload keys.
const (
	keyDocID      = "doc_id"
	keyText       = "text"
	keyCategory   = "category"
	keySuggestion = "suggestion"
)

// Index implements chat.DocumentIndex on a Qdrant collection.
type Index struct {
	conn        *grpc.ClientConn
	points      pb.PointsClient
	collections pb.CollectionsClient
	collection  string
	dim         int
}

// New connects to Qdrant at host:port.
func New(host string, port int, collection string, dim int) (*Index, error) {
	addr := fmt.Sprintf("%s:%d", host, port)
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("qdrant connect: %w", err)
	}
	return &Index{
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
		collection:  collection,
		dim:         dim,
	}, nil
}

// Reset drops and recreates the collection with cosine distance.
func (x *Index) Reset(ctx context.Context) error {
	_, err := x.collections.Delete(ctx, &pb.DeleteCollection{CollectionName: x.collection})
	if err != nil && status.Code(err) != codes.NotFound {
		return fmt.Errorf("qdrant delete collection: %w", err)
	}
	_, err = x.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: x.collection,
		VectorsConfig: &pb.VectorsConfig{Config: &pb.VectorsConfig_Params{
			Params: &pb.VectorParams{Size: uint64(x.dim), Distance: pb.Distance_Cosine},
		}},
	})
	if err != nil {
		return fmt.Errorf("qdrant create collection: %w", err)
	}
	return nil
}

// Add upserts documents. Point ids are derived from document ids so that
// re-adding a document replaces it.
func (x *Index) Add(ctx context.Context, docs []domain.Document) error {
	if len(docs) == 0 {
		return nil
	}
	points := make([]*pb.PointStruct, len(docs))
	for i, d := range docs {
		if domain.IsZero(d.Vector) {
			return fmt.Errorf("document %s: %w", d.ID, domain.ErrZeroVector)
		}
		points[i] = &pb.PointStruct{
			Id:      &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: PointID(d.ID)}},
			Vectors: &pb.Vectors{VectorsOptions: &pb.Vectors_Vector{Vector: &pb.Vector{Data: d.Vector}}},
			Payload: map[string]*pb.Value{
				keyDocID:      stringValue(d.ID),
				keyText:       stringValue(d.Text),
				keyCategory:   stringValue(d.Category),
				keySuggestion: stringValue(d.Suggestion),
			},
		}
	}

	_, err := x.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: x.collection,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("qdrant upsert: %w", err)
	}
	return nil
}

// Search returns up to k documents by cosine similarity, clamped to [0,1].
func (x *Index) Search(ctx context.Context, vec []float32, k int) ([]domain.Hit, error) {
	if k <= 0 {
		return nil, nil
	}
	if domain.IsZero(vec) {
		return nil, fmt.Errorf("query: %w", domain.ErrZeroVector)
	}
	resp, err := x.points.Search(ctx, &pb.SearchPoints{
		CollectionName: x.collection,
		Vector:         vec,
		Limit:          uint64(k),
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant search: %w", err)
	}

	hits := make([]domain.Hit, len(resp.Result))
	for i, pt := range resp.Result {
		hits[i] = domain.Hit{
			Document: domain.Document{
				ID:         pt.Payload[keyDocID].GetStringValue(),
				Text:       pt.Payload[keyText].GetStringValue(),
				Category:   pt.Payload[keyCategory].GetStringValue(),
				Suggestion: pt.Payload[keySuggestion].GetStringValue(),
			},
			Score: min(max(float64(pt.Score), 0), 1),
		}
	}
	return hits, nil
}

// Close closes the gRPC connection.
func (x *Index) Close() error {
	if x.conn == nil {
		return nil
	}
	return x.conn.Close()
}

// PointID maps a document id to a stable UUID.
func PointID(docID string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(docID)).String()
}

func stringValue(s string) *pb.Value {
	return &pb.Value{Kind: &pb.Value_StringValue{StringValue: s}}
}
