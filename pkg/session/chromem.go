// SPDX-License-Identifier: AGPL-3.0
// Copyright 2025 Kadir Pekel
//
// Licensed under the GNU Affero General Public License v3.0 (AGPL-3.0) (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.gnu.org/licenses/agpl-3.0.en.html
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
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	chromem "github.com/philippgille/chromem-go"

	"github.com/kadirpekel/delphi/pkg/config"
	"github.com/kadirpekel/delphi/pkg/models"
)

// ChromemStore keeps session chunks in an embedded chromem-go database.
// With an empty persist path everything lives in memory; otherwise the
// database is exported to disk after each save.
type ChromemStore struct {
	db          *chromem.DB
	persistPath string
	dimension   int
	mu          sync.Mutex
	collections map[string]*chromem.Collection
}

// NewChromemStore opens (or creates) the embedded store. cfg.ChromemPath
// selects the persistence directory; cfg.VectorDimension sizes the probe
// vector used to enumerate stored chunks.
func NewChromemStore(cfg *config.Config) (*ChromemStore, error) {
	var db *chromem.DB

	if cfg.ChromemPath != "" {
		if err := os.MkdirAll(cfg.ChromemPath, 0755); err != nil {
			return nil, fmt.Errorf("failed to create persist directory: %w", err)
		}
		dbPath := filepath.Join(cfg.ChromemPath, "sessions.gob")
		if _, statErr := os.Stat(dbPath); statErr == nil {
			loaded, err := chromem.NewPersistentDB(dbPath, false)
			if err != nil {
				slog.Warn("Failed to load existing session database, creating new",
					"path", dbPath, "error", err)
				db = chromem.NewDB()
			} else {
				slog.Info("Loaded session database from file", "path", dbPath)
				db = loaded
			}
		} else {
			db = chromem.NewDB()
		}
	} else {
		db = chromem.NewDB()
	}

	return &ChromemStore{
		db:          db,
		persistPath: cfg.ChromemPath,
		dimension:   cfg.VectorDimension,
		collections: make(map[string]*chromem.Collection),
	}, nil
}

// Save adds the embedded chunks as documents with pre-computed vectors.
// The document id is the chunk id, so re-saving overwrites.
func (s *ChromemStore) Save(ctx context.Context, sessionID string, chunks []models.SemanticChunk) error {
	embedded := embeddedOnly(chunks)
	if len(embedded) == 0 {
		return nil
	}

	col, err := s.getCollection(collectionName(sessionID))
	if err != nil {
		return err
	}

	docs := make([]chromem.Document, 0, len(embedded))
	for _, chunk := range embedded {
		docs = append(docs, chromem.Document{
			ID:        chunk.ChunkID,
			Content:   chunk.Content,
			Metadata:  stringPayload(chunkPayload(chunk)),
			Embedding: chunk.Embedding,
		})
	}

	if err := col.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("failed to save session chunks: %w", err)
	}

	if err := s.persist(); err != nil {
		slog.Warn("Failed to persist session database", "error", err)
	}
	return nil
}

// Load returns up to limit chunks from the session collection. chromem
// has no list operation, so enumeration goes through a similarity query
// with a fixed probe vector sized to hold every document.
func (s *ChromemStore) Load(ctx context.Context, sessionID string, limit int) ([]models.SemanticChunk, error) {
	if limit <= 0 {
		limit = DefaultLoadLimit
	}

	col, err := s.getCollection(collectionName(sessionID))
	if err != nil {
		return nil, err
	}

	n := col.Count()
	if n == 0 {
		return nil, nil
	}
	if n > limit {
		n = limit
	}

	probe := make([]float32, s.dimension)
	if len(probe) > 0 {
		probe[0] = 1
	}

	results, err := col.QueryEmbedding(ctx, probe, n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load session chunks: %w", err)
	}

	chunks := make([]models.SemanticChunk, 0, len(results))
	for _, r := range results {
		payload := make(map[string]any, len(r.Metadata))
		for k, v := range r.Metadata {
			payload[k] = v
		}
		chunk := chunkFromPayload(payload)
		if chunk.ChunkID == "" {
			chunk.ChunkID = r.ID
		}
		if chunk.Content == "" {
			chunk.Content = r.Content
		}
		chunk.Embedding = r.Embedding
		chunks = append(chunks, chunk)
	}
	return chunks, nil
}

// Close persists the database if a persist path is configured.
func (s *ChromemStore) Close() error {
	return s.persist()
}

func (s *ChromemStore) getCollection(name string) (*chromem.Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if col, ok := s.collections[name]; ok {
		return col, nil
	}

	// Vectors arrive pre-computed; the embedding func must never run.
	col, err := s.db.GetOrCreateCollection(name, nil, func(ctx context.Context, text string) ([]float32, error) {
		return nil, fmt.Errorf("embedding function called but vectors are pre-computed")
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get/create collection %q: %w", name, err)
	}
	s.collections[name] = col
	return col, nil
}

func (s *ChromemStore) persist() error {
	if s.persistPath == "" {
		return nil
	}
	dbPath := filepath.Join(s.persistPath, "sessions.gob")
	//nolint:staticcheck // Export is the stable persistence entry point here
	if err := s.db.Export(dbPath, false, ""); err != nil {
		return fmt.Errorf("failed to persist session database: %w", err)
	}
	return nil
}
