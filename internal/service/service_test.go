package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/catalog/internal/model"
	"github.com/roach88/catalog/internal/schema"
	"github.com/roach88/catalog/internal/testutil"
)

func TestTopology_ExactlyOnePerKind(t *testing.T) {
	reg, _ := createTestRegistry(t)

	want := map[model.Kind]string{
		model.KindSetting: "standalone",
		model.KindLog:     "standalone",
		model.KindImage:   "parent",
		model.KindItem:    "child",
		model.KindPrompt:  "child",
	}

	for _, kind := range model.Kinds {
		svc, err := reg.Instance(kind)
		require.NoError(t, err)

		count := 0
		for _, v := range []bool{svc.IsParent(), svc.IsChild(), svc.IsStandalone()} {
			if v {
				count++
			}
		}
		assert.Equal(t, 1, count, "kind %s", kind)

		switch want[kind] {
		case "parent":
			assert.True(t, svc.IsParent(), "kind %s", kind)
		case "child":
			assert.True(t, svc.IsChild(), "kind %s", kind)
		default:
			assert.True(t, svc.IsStandalone(), "kind %s", kind)
		}
	}
}

func TestNew_RejectsParentAndChild(t *testing.T) {
	reg, _ := createTestRegistry(t)

	desc := ItemDescriptor()
	desc.ChildTables = []model.Table{model.TablePrompts}

	_, err := New(reg.Store(), desc, nil)
	require.Error(t, err)
	assert.True(t, IsConfiguration(err))
}

func TestNew_RejectsMissingValidator(t *testing.T) {
	reg, _ := createTestRegistry(t)

	desc := LogDescriptor()
	desc.Validate = nil

	_, err := New(reg.Store(), desc, nil)
	assert.True(t, IsConfiguration(err))
}

func TestNew_RejectsMissingStore(t *testing.T) {
	_, err := New(nil, LogDescriptor(), nil)
	assert.True(t, IsConfiguration(err))
}

func TestAddRecord_GetRecordRoundTrip(t *testing.T) {
	reg, _ := createTestRegistry(t)
	ctx := context.Background()

	t.Run("log", func(t *testing.T) {
		l := testLog(1, testNow)
		l.Details = model.Details{"file": "shelf.jpg"}
		added, err := reg.Logs().AddRecord(ctx, l)
		require.NoError(t, err)

		got, err := reg.Logs().GetRecord(ctx, l.ID)
		require.NoError(t, err)
		assert.Equal(t, added, got)
		assert.Equal(t, l, got)
	})

	t.Run("log with numeric details", func(t *testing.T) {
		l := testLog(2, testNow)
		l.Details = model.Details{"count": int64(3), "ratio": float32(0.5), "nested": map[string]any{"n": 7}}
		added, err := reg.Logs().AddRecord(ctx, l)
		require.NoError(t, err)
		assert.Equal(t, float64(3), added.Details["count"])

		got, err := reg.Logs().GetRecord(ctx, l.ID)
		require.NoError(t, err)
		assert.Equal(t, added, got)
	})

	t.Run("log with empty details", func(t *testing.T) {
		l := testLog(3, testNow)
		l.Details = model.Details{}
		added, err := reg.Logs().AddRecord(ctx, l)
		require.NoError(t, err)
		assert.Nil(t, added.Details)

		got, err := reg.Logs().GetRecord(ctx, l.ID)
		require.NoError(t, err)
		assert.Equal(t, added, got)
	})

	t.Run("invalid utf-8", func(t *testing.T) {
		it := testItem(2, testutil.FixedID(model.TableImages, 99), testNow)
		it.Label = "mug \xff\xfe"
		it.Categories = []string{"k\xc3"}
		added, err := reg.Items().AddRecord(ctx, it)
		require.NoError(t, err)
		assert.Equal(t, "mug \uFFFD\uFFFD", added.Label)

		got, err := reg.Items().GetRecord(ctx, it.ID)
		require.NoError(t, err)
		assert.Equal(t, added, got)
	})

	t.Run("image", func(t *testing.T) {
		img := testImage(1, " Pantry ")
		added, err := reg.Images().AddRecord(ctx, img)
		require.NoError(t, err)
		assert.Equal(t, "Pantry", added.Name)

		got, err := reg.Images().GetRecord(ctx, img.ID)
		require.NoError(t, err)
		assert.Equal(t, added, got)
	})

	t.Run("item", func(t *testing.T) {
		it := testItem(1, testutil.FixedID(model.TableImages, 99), testNow)
		added, err := reg.Items().AddRecord(ctx, it)
		require.NoError(t, err)

		got, err := reg.Items().GetRecord(ctx, it.ID)
		require.NoError(t, err)
		assert.Equal(t, added, got)
		assert.Equal(t, it, got)
	})

	t.Run("prompt", func(t *testing.T) {
		elapsed := int64(1530)
		p := testPrompt(1, testutil.FixedID(model.TableImages, 99), testNow)
		p.ResponseTimeMs = &elapsed
		p.ResponseData = map[string]any{"id": "chatcmpl-1", "object": "chat.completion"}

		added, err := reg.Prompts().AddRecord(ctx, p)
		require.NoError(t, err)

		got, err := reg.Prompts().GetRecord(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, added, got)
		assert.Equal(t, p, got)
	})

	t.Run("prompt with numeric response", func(t *testing.T) {
		p := testPrompt(2, testutil.FixedID(model.TableImages, 99), testNow)
		p.ResponseData = map[string]any{"usage": map[string]int{"total_tokens": 812}}

		added, err := reg.Prompts().AddRecord(ctx, p)
		require.NoError(t, err)

		got, err := reg.Prompts().GetRecord(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, added, got)
		assert.Equal(t, map[string]any{"total_tokens": float64(812)}, got.ResponseData["usage"])
	})

	t.Run("setting", func(t *testing.T) {
		s := model.Setting{ID: model.SettingMaxTokens, Value: model.Number(1024)}
		added, err := reg.Settings().AddRecord(ctx, s)
		require.NoError(t, err)

		got, err := reg.Settings().GetRecord(ctx, string(s.ID))
		require.NoError(t, err)
		assert.Equal(t, added, got)
	})
}

func TestAddRecord_ValidationError(t *testing.T) {
	reg, _ := createTestRegistry(t)
	ctx := context.Background()

	_, err := reg.Items().AddRecord(ctx, model.NewItem(model.ItemParams{Label: "Orphan"}))
	require.Error(t, err)
	assert.True(t, IsValidation(err))

	var se *Error
	require.ErrorAs(t, err, &se)
	assert.Contains(t, se.Violations, schema.Violation{Path: "imageId", Message: "is required"})

	n, err := reg.Items().Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestAddRecord_DuplicateKey(t *testing.T) {
	reg, _ := createTestRegistry(t)
	ctx := context.Background()

	l := testLog(1, testNow)
	_, err := reg.Logs().AddRecord(ctx, l)
	require.NoError(t, err)

	_, err = reg.Logs().AddRecord(ctx, l)
	assert.True(t, IsDuplicateKey(err), "got %v", err)
}

func TestPutRecord_Replaces(t *testing.T) {
	reg, _ := createTestRegistry(t)
	ctx := context.Background()

	img := testImage(1, "old")
	_, err := reg.Images().PutRecord(ctx, img)
	require.NoError(t, err)

	img.Name = "new"
	_, err = reg.Images().PutRecord(ctx, img)
	require.NoError(t, err)

	got, err := reg.Images().GetRecord(ctx, img.ID)
	require.NoError(t, err)
	assert.Equal(t, "new", got.Name)

	n, err := reg.Images().Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestGetRecord_NotFound(t *testing.T) {
	reg, _ := createTestRegistry(t)
	id := testutil.FixedID(model.TableImages, 404)

	_, err := reg.Images().GetRecord(context.Background(), id)
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.Contains(t, err.Error(), "Image ID not found: "+id)
}

func TestUpdateRecord_NotFound(t *testing.T) {
	reg, _ := createTestRegistry(t)

	_, err := reg.Items().UpdateRecord(context.Background(), testutil.FixedID(model.TableItems, 404), map[string]any{"label": "x"})
	assert.True(t, IsNotFound(err), "got %v", err)
}

func TestUpdateRecord_MergesOnlySuppliedFields(t *testing.T) {
	reg, _ := createTestRegistry(t)
	ctx := context.Background()

	it := testItem(1, testutil.FixedID(model.TableImages, 1), testNow)
	it.Brand = "Acme"
	_, err := reg.Items().AddRecord(ctx, it)
	require.NoError(t, err)

	updated, err := reg.Items().UpdateRecord(ctx, it.ID, map[string]any{
		"label": "Travel mug",
		"id":    "itm-hijack",
	})
	require.NoError(t, err)

	want := it
	want.Label = "Travel mug"
	assert.Equal(t, want, updated)

	got, err := reg.Items().GetRecord(ctx, it.ID)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestUpdateRecord_DoesNotRevalidate(t *testing.T) {
	reg, _ := createTestRegistry(t)
	ctx := context.Background()

	it := testItem(1, testutil.FixedID(model.TableImages, 1), testNow)
	_, err := reg.Items().AddRecord(ctx, it)
	require.NoError(t, err)

	long := "this label is far longer than the fifty rune limit applied on add"
	got, err := reg.Items().UpdateRecord(ctx, it.ID, map[string]any{"label": long})
	require.NoError(t, err)
	assert.Equal(t, long, got.Label)
}

func TestRemoveRecord_ParentCascades(t *testing.T) {
	reg, _ := createTestRegistry(t)
	ctx := context.Background()

	img1 := testImage(1, "one")
	img2 := testImage(2, "two")
	for _, img := range []model.Image{img1, img2} {
		_, err := reg.Images().AddRecord(ctx, img)
		require.NoError(t, err)
	}
	for i, parent := range []string{img1.ID, img1.ID, img2.ID} {
		_, err := reg.Items().AddRecord(ctx, testItem(i+1, parent, testNow+int64(i)))
		require.NoError(t, err)
	}
	_, err := reg.Prompts().AddRecord(ctx, testPrompt(1, img1.ID, testNow))
	require.NoError(t, err)

	removed, existed, err := reg.Images().RemoveRecord(ctx, img1.ID)
	require.NoError(t, err)
	assert.True(t, existed)
	assert.Equal(t, img1.ID, removed.ID)

	items, err := reg.Items().List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, img2.ID, items[0].ImageID)

	prompts, err := reg.Prompts().List(ctx)
	require.NoError(t, err)
	assert.Empty(t, prompts)
}

func TestRemoveRecord_MissingIsNotAnError(t *testing.T) {
	reg, _ := createTestRegistry(t)

	rec, existed, err := reg.Images().RemoveRecord(context.Background(), testutil.FixedID(model.TableImages, 404))
	require.NoError(t, err)
	assert.False(t, existed)
	assert.Equal(t, model.Image{}, rec)
}

func TestRemoveRecord_ChildLeavesParent(t *testing.T) {
	reg, _ := createTestRegistry(t)
	ctx := context.Background()

	img := testImage(1, "one")
	_, err := reg.Images().AddRecord(ctx, img)
	require.NoError(t, err)
	it := testItem(1, img.ID, testNow)
	_, err = reg.Items().AddRecord(ctx, it)
	require.NoError(t, err)

	existed, err := reg.Items().Delete(ctx, it.ID)
	require.NoError(t, err)
	assert.True(t, existed)

	got, err := reg.Images().GetRecord(ctx, img.ID)
	require.NoError(t, err)
	assert.Nil(t, got.LastChild)
}

// Insert an image and two of its items, then remove the image: nothing of
// it may survive.
func TestScenario_RemoveImageWithItems(t *testing.T) {
	reg, _ := createTestRegistry(t)
	ctx := context.Background()

	img1 := testImage(1, "img1")
	_, err := reg.Images().AddRecord(ctx, img1)
	require.NoError(t, err)

	it1, err := reg.Items().AddRecord(ctx, testItem(1, img1.ID, testNow+1))
	require.NoError(t, err)
	it2, err := reg.Items().AddRecord(ctx, testItem(2, img1.ID, testNow+2))
	require.NoError(t, err)

	_, _, err = reg.Images().RemoveRecord(ctx, img1.ID)
	require.NoError(t, err)

	for _, id := range []string{it1.ID, it2.ID} {
		_, err := reg.Items().GetRecord(ctx, id)
		assert.True(t, IsNotFound(err), "item %s should be gone", id)
	}
	_, err = reg.Images().GetRecord(ctx, img1.ID)
	assert.True(t, IsNotFound(err))
}

func TestLastChild_TracksNewestAcrossChildTables(t *testing.T) {
	reg, _ := createTestRegistry(t)
	ctx := context.Background()

	img := testImage(1, "shelf")
	_, err := reg.Images().AddRecord(ctx, img)
	require.NoError(t, err)

	it := testItem(1, img.ID, testNow+10)
	_, err = reg.Items().AddRecord(ctx, it)
	require.NoError(t, err)

	got, err := reg.Images().GetRecord(ctx, img.ID)
	require.NoError(t, err)
	assert.Equal(t, &model.ChildRef{Table: model.TableItems, ID: it.ID, CreatedAt: testNow + 10}, got.LastChild)

	p := testPrompt(1, img.ID, testNow+20)
	_, err = reg.Prompts().AddRecord(ctx, p)
	require.NoError(t, err)

	got, err = reg.Images().GetRecord(ctx, img.ID)
	require.NoError(t, err)
	assert.Equal(t, &model.ChildRef{Table: model.TablePrompts, ID: p.ID, CreatedAt: testNow + 20}, got.LastChild)

	// An older child does not displace the newest
	_, err = reg.Items().AddRecord(ctx, testItem(2, img.ID, testNow+5))
	require.NoError(t, err)
	got, err = reg.Images().GetRecord(ctx, img.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.LastChild.ID)

	// Removing the newest falls back to the next newest
	_, err = reg.Prompts().Delete(ctx, p.ID)
	require.NoError(t, err)
	got, err = reg.Images().GetRecord(ctx, img.ID)
	require.NoError(t, err)
	assert.Equal(t, it.ID, got.LastChild.ID)
}

func TestLastChild_ChildBeforeParent(t *testing.T) {
	reg, _ := createTestRegistry(t)
	ctx := context.Background()

	img := testImage(1, "late")
	it := testItem(1, img.ID, testNow+3)
	_, err := reg.Items().AddRecord(ctx, it)
	require.NoError(t, err)

	added, err := reg.Images().AddRecord(ctx, img)
	require.NoError(t, err)
	require.NotNil(t, added.LastChild)
	assert.Equal(t, it.ID, added.LastChild.ID)
}

func TestLastChild_IgnoresCallerValue(t *testing.T) {
	reg, _ := createTestRegistry(t)
	ctx := context.Background()

	img := testImage(1, "shelf")
	img.LastChild = &model.ChildRef{Table: model.TableItems, ID: testutil.FixedID(model.TableItems, 9), CreatedAt: 1}
	added, err := reg.Images().AddRecord(ctx, img)
	require.NoError(t, err)
	assert.Nil(t, added.LastChild)

	_, err = reg.Images().UpdateRecord(ctx, img.ID, map[string]any{"lastChild": map[string]any{"table": "items"}})
	require.NoError(t, err)
	got, err := reg.Images().GetRecord(ctx, img.ID)
	require.NoError(t, err)
	assert.Nil(t, got.LastChild)
}

func TestLastChild_MovesWithReparentedChild(t *testing.T) {
	reg, _ := createTestRegistry(t)
	ctx := context.Background()

	a := testImage(1, "a")
	b := testImage(2, "b")
	for _, img := range []model.Image{a, b} {
		_, err := reg.Images().AddRecord(ctx, img)
		require.NoError(t, err)
	}
	it := testItem(1, a.ID, testNow)
	_, err := reg.Items().AddRecord(ctx, it)
	require.NoError(t, err)

	_, err = reg.Items().UpdateRecord(ctx, it.ID, map[string]any{"imageId": b.ID})
	require.NoError(t, err)

	gotA, err := reg.Images().GetRecord(ctx, a.ID)
	require.NoError(t, err)
	assert.Nil(t, gotA.LastChild)

	gotB, err := reg.Images().GetRecord(ctx, b.ID)
	require.NoError(t, err)
	require.NotNil(t, gotB.LastChild)
	assert.Equal(t, it.ID, gotB.LastChild.ID)
}

func TestClearTable_ParentClearsChildren(t *testing.T) {
	reg, _ := createTestRegistry(t)
	ctx := context.Background()

	img := testImage(1, "shelf")
	_, err := reg.Images().AddRecord(ctx, img)
	require.NoError(t, err)
	_, err = reg.Items().AddRecord(ctx, testItem(1, img.ID, testNow))
	require.NoError(t, err)
	_, err = reg.Prompts().AddRecord(ctx, testPrompt(1, img.ID, testNow))
	require.NoError(t, err)

	require.NoError(t, reg.Images().ClearTable(ctx))

	for _, svc := range []RecordService{reg.Images(), reg.Items(), reg.Prompts()} {
		n, err := svc.Count(ctx)
		require.NoError(t, err)
		assert.Zero(t, n, "table %s", svc.Table())
	}
}

func TestClearTable_ChildStripsParentCache(t *testing.T) {
	reg, _ := createTestRegistry(t)
	ctx := context.Background()

	a := testImage(1, "a")
	b := testImage(2, "b")
	for _, img := range []model.Image{a, b} {
		_, err := reg.Images().AddRecord(ctx, img)
		require.NoError(t, err)
	}
	_, err := reg.Items().AddRecord(ctx, testItem(1, a.ID, testNow+10))
	require.NoError(t, err)
	p := testPrompt(1, b.ID, testNow+1)
	_, err = reg.Prompts().AddRecord(ctx, p)
	require.NoError(t, err)
	_, err = reg.Items().AddRecord(ctx, testItem(2, b.ID, testNow+20))
	require.NoError(t, err)

	require.NoError(t, reg.Items().ClearTable(ctx))

	images, err := reg.Images().List(ctx)
	require.NoError(t, err)
	require.Len(t, images, 2)
	assert.Nil(t, images[0].LastChild, "image a had only items")
	require.NotNil(t, images[1].LastChild)
	assert.Equal(t, model.ChildRef{Table: model.TablePrompts, ID: p.ID, CreatedAt: testNow + 1}, *images[1].LastChild)
}

func TestClearTable_SettingsReseeds(t *testing.T) {
	reg, _ := createTestRegistry(t)
	ctx := context.Background()

	require.NoError(t, reg.Settings().Initialize(ctx))
	require.NoError(t, reg.SetSetting(ctx, model.SettingConsoleLogs, model.Bool(true)))

	require.NoError(t, reg.Settings().ClearTable(ctx))
	require.NoError(t, reg.Settings().Initialize(ctx))

	settings, err := reg.Settings().List(ctx)
	require.NoError(t, err)

	defaults := model.DefaultSettings()
	require.Len(t, settings, len(defaults))
	seen := make(map[model.SettingID]bool)
	for _, s := range settings {
		assert.False(t, seen[s.ID], "duplicate setting %s", s.ID)
		seen[s.ID] = true
		assert.Equal(t, defaults[s.ID], s.Value, "setting %s", s.ID)
	}
}

func TestInitialize_NeverOverwrites(t *testing.T) {
	reg, _ := createTestRegistry(t)
	ctx := context.Background()

	require.NoError(t, reg.SetSetting(ctx, model.SettingModelName, model.String("gpt-4o")))
	require.NoError(t, reg.Settings().Initialize(ctx))
	require.NoError(t, reg.Settings().Initialize(ctx))

	v, err := reg.Setting(ctx, model.SettingModelName)
	require.NoError(t, err)
	assert.Equal(t, model.String("gpt-4o"), v)

	n, err := reg.Settings().Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(model.SettingIDs), n)
}

func TestInitialize_NoopForOtherKinds(t *testing.T) {
	reg, _ := createTestRegistry(t)
	ctx := context.Background()

	for _, kind := range []model.Kind{model.KindLog, model.KindImage, model.KindItem, model.KindPrompt} {
		svc, err := reg.Instance(kind)
		require.NoError(t, err)
		require.NoError(t, svc.Initialize(ctx))
		n, err := svc.Count(ctx)
		require.NoError(t, err)
		assert.Zero(t, n, "kind %s", kind)
	}
}

func TestInitialize_UsesDefaultOverrides(t *testing.T) {
	reg, _ := createTestRegistry(t, WithSettingDefaults(map[model.SettingID]model.SettingValue{
		model.SettingLogRetentionDuration: model.String(string(model.DurationOneWeek)),
		"Not A Setting":                   model.Bool(true),
	}))
	ctx := context.Background()

	require.NoError(t, reg.Initialize(ctx))

	v, err := reg.Setting(ctx, model.SettingLogRetentionDuration)
	require.NoError(t, err)
	assert.Equal(t, model.String(string(model.DurationOneWeek)), v)

	n, err := reg.Settings().Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(model.SettingIDs), n)
}

func TestPurge_Forever(t *testing.T) {
	reg, _ := createTestRegistry(t)
	ctx := context.Background()

	require.NoError(t, reg.SetSetting(ctx, model.SettingLogRetentionDuration, model.String(string(model.DurationForever))))
	_, err := reg.Logs().AddRecord(ctx, testLog(1, 1))
	require.NoError(t, err)

	n, err := reg.Logs().Purge(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestPurge_Unset(t *testing.T) {
	reg, _ := createTestRegistry(t)
	ctx := context.Background()

	_, err := reg.Logs().AddRecord(ctx, testLog(1, 1))
	require.NoError(t, err)

	n, err := reg.Logs().Purge(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestPurge_OneDay(t *testing.T) {
	reg, _ := createTestRegistry(t)
	ctx := context.Background()

	day, _ := model.DurationOneDay.Milliseconds()
	hour, _ := model.DurationOneHour.Milliseconds()

	require.NoError(t, reg.SetSetting(ctx, model.SettingLogRetentionDuration, model.String(string(model.DurationOneDay))))
	old := testLog(1, testNow-2*day)
	recent := testLog(2, testNow-hour)
	for _, l := range []model.Log{old, recent} {
		_, err := reg.Logs().AddRecord(ctx, l)
		require.NoError(t, err)
	}

	n, err := reg.Logs().Purge(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = reg.Logs().GetRecord(ctx, old.ID)
	assert.True(t, IsNotFound(err))
	_, err = reg.Logs().GetRecord(ctx, recent.ID)
	assert.NoError(t, err)

	// Idempotent
	n, err = reg.Logs().Purge(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestPurge_AllTimeKeepsEverything(t *testing.T) {
	reg, _ := createTestRegistry(t)
	ctx := context.Background()

	require.NoError(t, reg.SetSetting(ctx, model.SettingLogRetentionDuration, model.String(string(model.DurationAllTime))))
	_, err := reg.Logs().AddRecord(ctx, testLog(1, 1))
	require.NoError(t, err)

	n, err := reg.Logs().Purge(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestPurge_UsesClock(t *testing.T) {
	reg, clock := createTestRegistry(t)
	ctx := context.Background()

	require.NoError(t, reg.SetSetting(ctx, model.SettingLogRetentionDuration, model.String(string(model.DurationOneHour))))
	_, err := reg.Logs().AddRecord(ctx, testLog(1, testNow))
	require.NoError(t, err)

	n, err := reg.Logs().Purge(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	hour, _ := model.DurationOneHour.Milliseconds()
	clock.Advance(hour + 1)

	n, err = reg.Logs().Purge(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestPurge_UnsupportedForOtherKinds(t *testing.T) {
	reg, _ := createTestRegistry(t)
	ctx := context.Background()

	for _, kind := range []model.Kind{model.KindSetting, model.KindImage, model.KindItem, model.KindPrompt} {
		svc, err := reg.Instance(kind)
		require.NoError(t, err)
		_, err = svc.Purge(ctx)
		assert.True(t, IsUnsupported(err), "kind %s", kind)
	}
}

func TestList_Ordering(t *testing.T) {
	reg, _ := createTestRegistry(t)
	ctx := context.Background()

	for i, name := range []string{"pantry", "garage", "attic"} {
		_, err := reg.Images().AddRecord(ctx, testImage(i+1, name))
		require.NoError(t, err)
	}
	images, err := reg.Images().List(ctx)
	require.NoError(t, err)
	names := make([]string, len(images))
	for i, img := range images {
		names[i] = img.Name
	}
	assert.Equal(t, []string{"attic", "garage", "pantry"}, names)

	for i, at := range []int64{testNow + 1, testNow + 3, testNow + 2} {
		_, err := reg.Logs().AddRecord(ctx, testLog(i+1, at))
		require.NoError(t, err)
	}
	logs, err := reg.Logs().List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{
		testutil.FixedID(model.TableLogs, 2),
		testutil.FixedID(model.TableLogs, 3),
		testutil.FixedID(model.TableLogs, 1),
	}, logIDs(logs))
}

func TestListByParent(t *testing.T) {
	reg, _ := createTestRegistry(t)
	ctx := context.Background()

	a := testutil.FixedID(model.TableImages, 1)
	b := testutil.FixedID(model.TableImages, 2)
	_, err := reg.Items().AddRecord(ctx, testItem(1, a, testNow+1))
	require.NoError(t, err)
	_, err = reg.Items().AddRecord(ctx, testItem(2, b, testNow+2))
	require.NoError(t, err)
	_, err = reg.Items().AddRecord(ctx, testItem(3, a, testNow+3))
	require.NoError(t, err)

	items, err := reg.Items().ListByParent(ctx, a)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, testutil.FixedID(model.TableItems, 3), items[0].ID)
	assert.Equal(t, testutil.FixedID(model.TableItems, 1), items[1].ID)

	_, err = reg.Images().ListByParent(ctx, a)
	assert.True(t, IsUnsupported(err))
}

func TestLiveQuery_LogsNewestFirst(t *testing.T) {
	reg, _ := createTestRegistry(t)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		_, err := reg.Logs().AddRecord(ctx, testLog(i, testNow+int64(i)*1000))
		require.NoError(t, err)
	}

	sub := reg.Logs().LiveQuery()
	defer sub.Close()

	snap := nextSnapshot(t, sub)
	require.NoError(t, snap.Err)
	assert.Equal(t, []string{
		testutil.FixedID(model.TableLogs, 3),
		testutil.FixedID(model.TableLogs, 2),
		testutil.FixedID(model.TableLogs, 1),
	}, logIDs(snap.Value))

	_, err := reg.Logs().AddRecord(ctx, testLog(4, testNow+2500))
	require.NoError(t, err)

	snap = nextSnapshot(t, sub)
	require.NoError(t, snap.Err)
	assert.Equal(t, []string{
		testutil.FixedID(model.TableLogs, 3),
		testutil.FixedID(model.TableLogs, 4),
		testutil.FixedID(model.TableLogs, 2),
		testutil.FixedID(model.TableLogs, 1),
	}, logIDs(snap.Value))
}

func TestLiveQuery_ChildReemitsOnCascade(t *testing.T) {
	reg, _ := createTestRegistry(t)
	ctx := context.Background()

	img := testImage(1, "shelf")
	_, err := reg.Images().AddRecord(ctx, img)
	require.NoError(t, err)
	_, err = reg.Items().AddRecord(ctx, testItem(1, img.ID, testNow))
	require.NoError(t, err)

	sub := reg.Items().LiveQuery()
	defer sub.Close()

	snap := nextSnapshot(t, sub)
	require.NoError(t, snap.Err)
	require.Len(t, snap.Value, 1)

	_, _, err = reg.Images().RemoveRecord(ctx, img.ID)
	require.NoError(t, err)

	snap = nextSnapshot(t, sub)
	require.NoError(t, snap.Err)
	assert.Empty(t, snap.Value)
}

func TestTransactionFailure_ClosedStore(t *testing.T) {
	reg, _ := createTestRegistry(t)
	require.NoError(t, reg.Store().Close())

	_, err := reg.Logs().AddRecord(context.Background(), testLog(1, testNow))
	require.Error(t, err)
	assert.True(t, IsTransactionFailure(err), "got %v", err)
}
