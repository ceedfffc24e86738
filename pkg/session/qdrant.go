// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package session

import (
	"context"
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"

	"github.com/qdrant/go-client/qdrant"

	"github.com/kadirpekel/delphi/pkg/config"
	"github.com/kadirpekel/delphi/pkg/models"
)

// QdrantStore keeps session chunks in a Qdrant collection per session,
// cosine distance, one point per chunk with the embedding as the vector
// and the remaining chunk fields as payload.
type QdrantStore struct {
	client *qdrant.Client
}

// NewQdrantStore connects to the Qdrant gRPC endpoint from cfg.
func NewQdrantStore(cfg *config.Config) (*QdrantStore, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host: cfg.QdrantHost,
		Port: cfg.QdrantPort,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Qdrant client for %s:%d: %w",
			cfg.QdrantHost, cfg.QdrantPort, err)
	}
	return &QdrantStore{client: client}, nil
}

// Save upserts the embedded chunks into the session collection, creating
// it on first use. Point ids derive from the chunk id, so re-saving the
// same chunk overwrites rather than duplicates.
func (s *QdrantStore) Save(ctx context.Context, sessionID string, chunks []models.SemanticChunk) error {
	embedded := embeddedOnly(chunks)
	if len(embedded) == 0 {
		return nil
	}

	collection := collectionName(sessionID)
	if err := s.ensureCollection(ctx, collection, len(embedded[0].Embedding)); err != nil {
		return err
	}

	points := make([]*qdrant.PointStruct, 0, len(embedded))
	for _, chunk := range embedded {
		payload := make(map[string]*qdrant.Value)
		for key, value := range chunkPayload(chunk) {
			val, err := qdrant.NewValue(value)
			if err != nil {
				return fmt.Errorf("failed to encode payload field %s: %w", key, err)
			}
			payload[key] = val
		}
		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewIDNum(pointID(chunk.ChunkID)),
			Vectors: qdrant.NewVectors(chunk.Embedding...),
			Payload: payload,
		})
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collection,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("failed to upsert session chunks: %w", err)
	}
	return nil
}

// Load scrolls up to limit chunks out of the session collection. An
// unknown session yields an empty result.
func (s *QdrantStore) Load(ctx context.Context, sessionID string, limit int) ([]models.SemanticChunk, error) {
	if limit <= 0 {
		limit = DefaultLoadLimit
	}
	collection := collectionName(sessionID)

	exists, err := s.client.CollectionExists(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("failed to check session collection: %w", err)
	}
	if !exists {
		return nil, nil
	}

	points, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
		CollectionName: collection,
		Limit:          qdrant.PtrOf(uint32(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scroll session chunks: %w", err)
	}

	chunks := make([]models.SemanticChunk, 0, len(points))
	for _, point := range points {
		chunk := chunkFromPayload(decodePayload(point.Payload))
		chunk.Embedding = pointVector(point)
		chunks = append(chunks, chunk)
	}
	return chunks, nil
}

// Close closes the Qdrant client.
func (s *QdrantStore) Close() error {
	return s.client.Close()
}

func (s *QdrantStore) ensureCollection(ctx context.Context, collection string, dimension int) error {
	exists, err := s.client.CollectionExists(ctx, collection)
	if err != nil {
		return fmt.Errorf("failed to check collection existence: %w", err)
	}
	if exists {
		return nil
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dimension),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil && !strings.Contains(err.Error(), "already exists") {
		return fmt.Errorf("failed to create collection: %w", err)
	}
	return nil
}

// pointID maps the hex chunk id onto a stable numeric Qdrant point id.
func pointID(chunkID string) uint64 {
	if len(chunkID) >= 16 {
		if n, err := strconv.ParseUint(chunkID[:16], 16, 64); err == nil {
			return n
		}
	}
	h := fnv.New64a()
	h.Write([]byte(chunkID))
	return h.Sum64()
}

func decodePayload(payload map[string]*qdrant.Value) map[string]any {
	out := make(map[string]any, len(payload))
	for key, value := range payload {
		switch v := value.Kind.(type) {
		case *qdrant.Value_StringValue:
			out[key] = v.StringValue
		case *qdrant.Value_IntegerValue:
			out[key] = v.IntegerValue
		case *qdrant.Value_DoubleValue:
			out[key] = v.DoubleValue
		case *qdrant.Value_BoolValue:
			out[key] = v.BoolValue
		}
	}
	return out
}

func pointVector(point *qdrant.RetrievedPoint) []float32 {
	if point.Vectors == nil {
		return nil
	}
	vectorData := point.Vectors.GetVector()
	if vectorData == nil {
		return nil
	}
	if dense, ok := vectorData.Vector.(*qdrant.VectorOutput_Dense); ok && dense.Dense != nil {
		return dense.Dense.Data
	}
	return nil
}
