// Package qdrant stores chunk vectors in a Qdrant collection over gRPC.
package qdrant

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"strconv"

	"github.com/qdrant/go-client/qdrant"

	"github.com/custodia-labs/ragindex/internal/core/domain"
	"github.com/custodia-labs/ragindex/internal/core/ports/driven"
	"github.com/custodia-labs/ragindex/internal/logger"
)

// DefaultPort is Qdrant's gRPC port.
const DefaultPort = 6334

// Payload keys.
const (
	keySourceFilename = "source_filename"
	keyText           = "text"
	keyStart          = "start"
	keyEnd            = "end"
	keyPosition       = "position"
	keySeq            = "seq"
	keyMetadata       = "metadata"
)

// Ensure VectorStore implements the interface.
var _ driven.VectorStore = (*VectorStore)(nil)

// Config holds connection settings for a Qdrant collection.
type Config struct {
	// Addr is host:port of the gRPC endpoint (default localhost:6334).
	Addr string

	// APIKey is sent when set.
	APIKey string

	// Collection is created on first use with cosine distance.
	Collection string

	// Dimensions is the vector size of the collection.
	Dimensions int
}

// VectorStore implements driven.VectorStore against Qdrant.
type VectorStore struct {
	client     *qdrant.Client
	collection string
	dimensions int
}

// New connects to Qdrant and ensures the collection exists.
func New(ctx context.Context, cfg Config) (*VectorStore, error) {
	if cfg.Collection == "" {
		return nil, fmt.Errorf("%w: qdrant collection name is empty", domain.ErrInvalidInput)
	}
	if cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("%w: qdrant vector size must be positive", domain.ErrInvalidInput)
	}

	host, port, err := splitAddr(cfg.Addr)
	if err != nil {
		return nil, err
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: cfg.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to qdrant at %s:%d: %w", host, port, err)
	}

	s := &VectorStore{
		client:     client,
		collection: cfg.Collection,
		dimensions: cfg.Dimensions,
	}
	if err := s.ensureCollection(ctx); err != nil {
		_ = client.Close()
		return nil, err
	}
	return s, nil
}

// splitAddr parses host[:port], defaulting to localhost and DefaultPort.
func splitAddr(addr string) (string, int, error) {
	if addr == "" {
		return "localhost", DefaultPort, nil
	}
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		// No port given.
		return addr, DefaultPort, nil //nolint:nilerr // bare host is valid
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("%w: invalid qdrant port %q", domain.ErrInvalidInput, portStr)
	}
	if host == "" {
		host = "localhost"
	}
	return host, port, nil
}

func (s *VectorStore) ensureCollection(ctx context.Context) error {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("checking qdrant collection %s: %w", s.collection, err)
	}
	if exists {
		return nil
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(s.dimensions),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("creating qdrant collection %s: %w", s.collection, err)
	}

	// Filter deletes need a keyword index on the filename.
	_, err = s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
		CollectionName: s.collection,
		FieldName:      keySourceFilename,
		FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return fmt.Errorf("indexing %s on %s: %w", keySourceFilename, s.collection, err)
	}

	logger.Info("created qdrant collection %s (size %d, cosine)", s.collection, s.dimensions)
	return nil
}

// Upsert writes points and waits for them to be applied.
func (s *VectorStore) Upsert(ctx context.Context, points []driven.VectorPoint) error {
	if len(points) == 0 {
		return nil
	}

	structs := make([]*qdrant.PointStruct, 0, len(points))
	for _, p := range points {
		if got := len(p.Chunk.Embedding); got != s.dimensions {
			return fmt.Errorf("%w: chunk %s has %d dimensions, want %d",
				domain.ErrInvalidInput, p.Chunk.ID, got, s.dimensions)
		}
		payload, err := toPayload(p)
		if err != nil {
			return err
		}
		structs = append(structs, &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(p.Chunk.ID),
			Vectors: qdrant.NewVectors(p.Chunk.Embedding...),
			Payload: payload,
		})
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Wait:           qdrant.PtrOf(true),
		Points:         structs,
	})
	if err != nil {
		return fmt.Errorf("upserting %d points into %s: %w", len(structs), s.collection, err)
	}
	return nil
}

// Search queries the collection with cosine similarity.
// Qdrant breaks ties at the k-th place arbitrarily, so Search over-fetches
// until every point tied with the k-th hit is included. The caller orders
// ties by insertion and trims to k.
func (s *VectorStore) Search(ctx context.Context, query []float32, k int) ([]driven.VectorHit, error) {
	if k <= 0 {
		return nil, nil
	}

	limit := searchLimit(k)
	var points []*qdrant.ScoredPoint
	for {
		var err error
		n := uint64(limit)
		points, err = s.client.Query(ctx, &qdrant.QueryPoints{
			CollectionName: s.collection,
			Query:          qdrant.NewQuery(query...),
			Limit:          &n,
			WithPayload:    qdrant.NewWithPayload(true),
		})
		if err != nil {
			return nil, fmt.Errorf("querying %s: %w", s.collection, err)
		}
		if limit >= maxSearchLimit || !tiesMayContinue(scoresOf(points), k, limit) {
			break
		}
		limit *= 2
	}

	hits := make([]driven.VectorHit, 0, len(points))
	for _, p := range points {
		hit, err := fromPayload(p.GetId().GetUuid(), p.GetPayload())
		if err != nil {
			return nil, err
		}
		hit.Score = float64(p.GetScore())
		hits = append(hits, hit)
	}
	return hits, nil
}

const (
	// minOverfetch is the smallest number of extra points fetched past k.
	minOverfetch = 8

	// maxSearchLimit caps over-fetching when many points share a score.
	maxSearchLimit = 4096
)

func searchLimit(k int) int {
	return k + max(k, minOverfetch)
}

// tiesMayContinue reports whether a full page of results ends on the k-th
// score, meaning more tied points may exist beyond it.
func tiesMayContinue(scores []float32, k, limit int) bool {
	if len(scores) < limit || len(scores) < k {
		return false
	}
	return scores[len(scores)-1] == scores[k-1]
}

func scoresOf(points []*qdrant.ScoredPoint) []float32 {
	scores := make([]float32, len(points))
	for i, p := range points {
		scores[i] = p.GetScore()
	}
	return scores
}

// DeleteByFilename removes every point whose source_filename matches.
func (s *VectorStore) DeleteByFilename(ctx context.Context, filename string) error {
	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.collection,
		Wait:           qdrant.PtrOf(true),
		Points: qdrant.NewPointsSelectorFilter(&qdrant.Filter{
			Must: []*qdrant.Condition{
				qdrant.NewMatch(keySourceFilename, filename),
			},
		}),
	})
	if err != nil {
		return fmt.Errorf("deleting points for %s: %w", filename, err)
	}
	return nil
}

// Clear drops and recreates the collection.
func (s *VectorStore) Clear(ctx context.Context) error {
	if err := s.client.DeleteCollection(ctx, s.collection); err != nil {
		return fmt.Errorf("dropping qdrant collection %s: %w", s.collection, err)
	}
	return s.ensureCollection(ctx)
}

// Stats returns the exact point count and the configured vector size.
func (s *VectorStore) Stats(ctx context.Context) (domain.CollectionStats, error) {
	stats := domain.CollectionStats{VectorSize: s.dimensions}

	count, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: s.collection,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return stats, fmt.Errorf("counting points in %s: %w", s.collection, err)
	}
	stats.TotalDocuments = int(count)
	return stats, nil
}

// Close closes the gRPC connection.
func (s *VectorStore) Close() error {
	return s.client.Close()
}

// toPayload flattens a point into Qdrant values. Metadata is kept as JSON
// because it may hold types the value converter rejects.
func toPayload(p driven.VectorPoint) (map[string]*qdrant.Value, error) {
	c := p.Chunk
	meta := c.Metadata
	if meta == nil {
		meta = map[string]any{}
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("marshalling metadata of %s: %w", c.ID, err)
	}

	return map[string]*qdrant.Value{
		keySourceFilename: qdrant.NewValueString(c.SourceFilename),
		keyText:           qdrant.NewValueString(c.Text),
		keyStart:          qdrant.NewValueInt(int64(c.Range.Start)),
		keyEnd:            qdrant.NewValueInt(int64(c.Range.End)),
		keyPosition:       qdrant.NewValueInt(int64(c.Position)),
		keySeq:            qdrant.NewValueInt(p.Seq),
		keyMetadata:       qdrant.NewValueString(string(metaJSON)),
	}, nil
}

// fromPayload rebuilds a hit from a stored point.
func fromPayload(id string, payload map[string]*qdrant.Value) (driven.VectorHit, error) {
	c := domain.Chunk{
		ID:             id,
		SourceFilename: payload[keySourceFilename].GetStringValue(),
		Text:           payload[keyText].GetStringValue(),
		Position:       int(payload[keyPosition].GetIntegerValue()),
		Range: domain.Range{
			Start: int(payload[keyStart].GetIntegerValue()),
			End:   int(payload[keyEnd].GetIntegerValue()),
		},
	}
	if raw := payload[keyMetadata].GetStringValue(); raw != "" {
		if err := json.Unmarshal([]byte(raw), &c.Metadata); err != nil {
			return driven.VectorHit{}, fmt.Errorf("unmarshalling metadata of %s: %w", id, err)
		}
	}
	return driven.VectorHit{
		Chunk: c,
		Seq:   payload[keySeq].GetIntegerValue(),
	}, nil
}
