package service

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/catalog/internal/model"
	"github.com/roach88/catalog/internal/store"
	"github.com/roach88/catalog/internal/testutil"
)

// testNow is a fixed wall clock reading: 2024-01-01T00:00:00Z.
const testNow int64 = 1_704_067_200_000

// createTestRegistry creates a registry over a temp-dir store with a
// manual clock at testNow.
func createTestRegistry(t *testing.T, opts ...Option) (*Registry, *testutil.ManualClock) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	clock := testutil.NewManualClock(testNow)
	reg := NewRegistry(st, append([]Option{WithClock(clock)}, opts...)...)
	return reg, clock
}

func testImage(n int, name string) model.Image {
	return model.NewImage(model.ImageParams{
		ID:          testutil.FixedID(model.TableImages, n),
		CreatedAt:   testNow + int64(n),
		Name:        name,
		File:        []byte{0xff, 0xd8, byte(n)},
		VisibleText: []string{"SALE"},
	})
}

func testItem(n int, imageID string, createdAt int64) model.Item {
	return model.NewItem(model.ItemParams{
		ID:         testutil.FixedID(model.TableItems, n),
		CreatedAt:  createdAt,
		ImageID:    imageID,
		Type:       "mug",
		Label:      "Coffee mug",
		Categories: []string{"kitchen"},
	})
}

func testPrompt(n int, imageID string, createdAt int64) model.Prompt {
	return model.NewPrompt(model.PromptParams{
		ID:           testutil.FixedID(model.TablePrompts, n),
		CreatedAt:    createdAt,
		ImageID:      imageID,
		Model:        model.DefaultModelName,
		SystemPrompt: model.DefaultSystemPrompt,
		UserPrompt:   model.DefaultUserPrompt,
		MaxTokens:    model.DefaultMaxTokens,
	})
}

func testLog(n int, createdAt int64) model.Log {
	return model.NewLog(model.LogParams{
		ID:        testutil.FixedID(model.TableLogs, n),
		CreatedAt: createdAt,
		Level:     model.LevelInfo,
		Label:     "entry",
	})
}

func logIDs(logs []model.Log) []string {
	ids := make([]string, len(logs))
	for i, l := range logs {
		ids[i] = l.ID
	}
	return ids
}

func nextSnapshot[R any](t *testing.T, sub *store.Subscription[R]) store.Snapshot[R] {
	t.Helper()
	select {
	case snap, ok := <-sub.Updates():
		require.True(t, ok, "updates channel closed")
		return snap
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for live query emission")
		return store.Snapshot[R]{}
	}
}
