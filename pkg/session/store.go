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

// Package session persists embedded chunks between pipeline runs so a
// follow-up question in the same session can reuse already crawled and
// embedded material. Persistence is best effort: the pipeline answers
// with or without it.
package session

import (
	"context"
	"fmt"

	"github.com/kadirpekel/delphi/pkg/config"
	"github.com/kadirpekel/delphi/pkg/models"
)

// DefaultLoadLimit caps how many chunks a session load brings back.
const DefaultLoadLimit = 1000

// Store persists and recalls a session's embedded chunks. Save ignores
// chunks without an embedding; Load of an unknown session returns an
// empty slice, not an error.
type Store interface {
	Load(ctx context.Context, sessionID string, limit int) ([]models.SemanticChunk, error)
	Save(ctx context.Context, sessionID string, chunks []models.SemanticChunk) error
	Close() error
}

// NewStore builds the session store selected by cfg.SessionStore.
func NewStore(cfg *config.Config) (Store, error) {
	switch cfg.SessionStore {
	case config.SessionStoreChromem, "":
		return NewChromemStore(cfg)
	case config.SessionStoreQdrant:
		return NewQdrantStore(cfg)
	default:
		return nil, fmt.Errorf("unknown session store: %s", cfg.SessionStore)
	}
}

// collectionName maps a session id to its collection.
func collectionName(sessionID string) string {
	return "session_" + sessionID
}

// embeddedOnly filters chunks down to those carrying a vector.
func embeddedOnly(chunks []models.SemanticChunk) []models.SemanticChunk {
	out := make([]models.SemanticChunk, 0, len(chunks))
	for _, chunk := range chunks {
		if chunk.HasEmbedding() {
			out = append(out, chunk)
		}
	}
	return out
}
