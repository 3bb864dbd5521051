package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/catalog/internal/model"
	"github.com/roach88/catalog/internal/store"
)

func TestAddImageTree(t *testing.T) {
	reg, _ := createTestRegistry(t)
	ctx := context.Background()

	img := testImage(1, " Shelf ")
	tree, err := reg.AddImageTree(ctx, ImageTree{
		Image:   img,
		Items:   []model.Item{testItem(1, img.ID, testNow+10), testItem(2, img.ID, testNow+20)},
		Prompts: []model.Prompt{testPrompt(1, img.ID, testNow+15)},
	})
	require.NoError(t, err)
	assert.Equal(t, "Shelf", tree.Image.Name)
	require.NotNil(t, tree.Image.LastChild)
	assert.Equal(t, model.TableItems, tree.Image.LastChild.Table)
	assert.Equal(t, tree.Items[1].ID, tree.Image.LastChild.ID)

	got, err := reg.Images().GetRecord(ctx, img.ID)
	require.NoError(t, err)
	assert.Equal(t, tree.Image, got)

	items, err := reg.Items().ListByParent(ctx, img.ID)
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestAddImageTree_RejectsForeignChild(t *testing.T) {
	reg, _ := createTestRegistry(t)
	ctx := context.Background()

	img := testImage(1, "Shelf")
	other := testImage(2, "Other")
	_, err := reg.AddImageTree(ctx, ImageTree{
		Image: img,
		Items: []model.Item{testItem(1, other.ID, testNow)},
	})
	require.Error(t, err)
	assert.True(t, IsValidation(err))

	n, err := reg.Images().Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestAddImageTree_DuplicateRollsBack(t *testing.T) {
	reg, _ := createTestRegistry(t)
	ctx := context.Background()

	img := testImage(1, "Shelf")
	_, err := reg.Images().AddRecord(ctx, img)
	require.NoError(t, err)

	_, err = reg.AddImageTree(ctx, ImageTree{
		Image: img,
		Items: []model.Item{testItem(1, img.ID, testNow)},
	})
	require.Error(t, err)
	assert.True(t, IsDuplicateKey(err))

	n, err := reg.Items().Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "children written before the failed image insert must roll back")
}

func TestImport_RoundTrip(t *testing.T) {
	src, _ := createTestRegistry(t)
	ctx := context.Background()
	require.NoError(t, src.Initialize(ctx))

	img := testImage(1, "Shelf")
	_, err := src.AddImageTree(ctx, ImageTree{
		Image:   img,
		Items:   []model.Item{testItem(1, img.ID, testNow+10)},
		Prompts: []model.Prompt{testPrompt(1, img.ID, testNow+20)},
	})
	require.NoError(t, err)
	l := testLog(1, testNow)
	l.Details = model.Details{"count": int64(3)}
	_, err = src.Logs().AddRecord(ctx, l)
	require.NoError(t, err)

	dump, err := src.Store().Export(ctx)
	require.NoError(t, err)

	dst, _ := createTestRegistry(t)
	require.NoError(t, dst.Import(ctx, dump))

	want, err := src.Images().GetRecord(ctx, img.ID)
	require.NoError(t, err)
	got, err := dst.Images().GetRecord(ctx, img.ID)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	gotLog, err := dst.Logs().GetRecord(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, float64(3), gotLog.Details["count"])

	n, err := dst.Settings().Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(model.SettingIDs), n)
}

func TestImport_RecomputesLastChild(t *testing.T) {
	reg, _ := createTestRegistry(t)
	ctx := context.Background()

	img := testImage(1, "Shelf")
	it := testItem(1, img.ID, testNow+10)
	body := func(v any) json.RawMessage {
		data, err := json.Marshal(v)
		require.NoError(t, err)
		return data
	}
	stale := img
	stale.LastChild = &model.ChildRef{Table: model.TablePrompts, ID: testPrompt(9, img.ID, 0).ID, CreatedAt: 1}

	require.NoError(t, reg.Import(ctx, &store.Dump{
		Version: 1,
		Tables: map[model.Table][]json.RawMessage{
			model.TableImages: {body(stale)},
			model.TableItems:  {body(it)},
		},
	}))

	got, err := reg.Images().GetRecord(ctx, img.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastChild)
	assert.Equal(t, model.ChildRef{Table: model.TableItems, ID: it.ID, CreatedAt: it.CreatedAt}, *got.LastChild)
}

func TestImport_InvalidRecordRollsBack(t *testing.T) {
	tests := []struct {
		name  string
		table model.Table
		body  string
	}{
		{"item without image", model.TableItems, `{"id":"not-a-uuid","categories":[]}`},
		{"unknown log level", model.TableLogs, `{"id":"x","level":"BOGUS"}`},
		{"unknown setting", model.TableSettings, `{"id":"Dark Mode","value":true}`},
		{"wrong field type", model.TablePrompts, `{"id":"p","maxTokens":"many"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg, _ := createTestRegistry(t)
			ctx := context.Background()
			keep := testLog(1, testNow)
			_, err := reg.Logs().AddRecord(ctx, keep)
			require.NoError(t, err)

			err = reg.Import(ctx, &store.Dump{
				Version: 1,
				Tables:  map[model.Table][]json.RawMessage{tt.table: {json.RawMessage(tt.body)}},
			})
			require.Error(t, err)
			assert.True(t, IsValidation(err), "got %v", err)

			logs, err := reg.Logs().List(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{keep.ID}, logIDs(logs))
		})
	}
}

func TestImport_RejectsUnknownTable(t *testing.T) {
	reg, _ := createTestRegistry(t)

	err := reg.Import(context.Background(), &store.Dump{
		Version: 1,
		Tables:  map[model.Table][]json.RawMessage{"users": {json.RawMessage(`{"id":"u"}`)}},
	})
	assert.ErrorIs(t, err, store.ErrUnknownTable)
}
