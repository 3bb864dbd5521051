package store

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/roach88/catalog/internal/model"
)

// createTestStore creates a new temp-dir store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// testDoc is a minimal record body.
type testDoc struct {
	ID        string `json:"id"`
	CreatedAt int64  `json:"createdAt"`
	ImageID   string `json:"imageId,omitempty"`
	Name      string `json:"name,omitempty"`
}

func mustAdd(t *testing.T, s *Store, table model.Table, doc testDoc) {
	t.Helper()
	if err := s.Add(context.Background(), table, doc.ID, doc); err != nil {
		t.Fatalf("Add(%s, %s) failed: %v", table, doc.ID, err)
	}
}

func decodeDocs(t *testing.T, bodies []json.RawMessage) []testDoc {
	t.Helper()
	docs := make([]testDoc, len(bodies))
	for i, b := range bodies {
		if err := json.Unmarshal(b, &docs[i]); err != nil {
			t.Fatalf("unmarshal body %d: %v", i, err)
		}
	}
	return docs
}

func docIDs(docs []testDoc) []string {
	ids := make([]string, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
	}
	return ids
}
