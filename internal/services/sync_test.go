package services

import (
	"context"
	"testing"
	"time"

	"wardrobe-backend/internal/apperror"
	"wardrobe-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
	"github.com/stretchr/testify/require"
)

func TestIsDuplicateItem(t *testing.T) {
	existing := models.Item{ID: "i1", Filename: "gap_tops_1.png"}

	tests := []struct {
		name      string
		candidate models.Item
		want      bool
	}{
		{"same filename", models.Item{Filename: "gap_tops_1.png"}, true},
		{"same id", models.Item{ID: "i1", Filename: "renamed.png"}, true},
		{"both differ", models.Item{ID: "i2", Filename: "gap_tops_2.png"}, false},
		{"empty keys never match", models.Item{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsDuplicateItem(existing, tt.candidate))
		})
	}

	assert.False(t, IsDuplicateItem(models.Item{}, models.Item{}))
}

func TestIsDuplicateCrush(t *testing.T) {
	date := time.Date(2024, 2, 14, 12, 0, 0, 0, time.UTC)
	existing := models.Outfit{ID: "c1", Date: date}

	assert.True(t, IsDuplicateCrush(existing, models.Outfit{ID: "c1"}))
	assert.True(t, IsDuplicateCrush(existing, models.Outfit{Date: date.In(time.FixedZone("CET", 3600))}), "timestamp equality ignores zone")
	assert.False(t, IsDuplicateCrush(existing, models.Outfit{ID: "c2", Date: date.Add(time.Millisecond)}))
	assert.True(t, IsDuplicateCrush(existing, models.Outfit{Date: date.Add(999 * time.Microsecond)}), "sub-millisecond precision is ignored")
	assert.False(t, IsDuplicateCrush(models.Outfit{}, models.Outfit{}), "zero dates never match")
}

func TestMergeItems(t *testing.T) {
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	existing := []models.Item{{ID: "i1", Filename: "a.png"}}
	incoming := []models.Item{
		{Filename: "a.png"},
		{Filename: "b.png"},
		{Filename: "b.png"},
		{ID: "i1"},
		{Name: "no keys"},
		{ID: "i9", Filename: "c.png"},
	}

	merged, stats := MergeItems(existing, incoming, now)

	require.Len(t, merged, 3)
	assert.Equal(t, "b.png", merged[1].Filename)
	assert.NotEmpty(t, merged[1].ID)
	assert.True(t, merged[1].AddedAt.Equal(now))
	assert.Equal(t, "i9", merged[2].ID)
	assert.Equal(t, MergeStats{Inserted: 2, Duplicates: 3, Skipped: 1}, stats)
}

func TestMergeCrushes(t *testing.T) {
	date := time.Date(2024, 2, 14, 0, 0, 0, 0, time.UTC)
	incoming := []models.Outfit{
		{Date: date},
		{Date: date},
		{ID: "c7"},
		{},
	}

	merged, stats := MergeCrushes(nil, incoming, time.Now())

	require.Len(t, merged, 2)
	assert.NotEmpty(t, merged[0].ID)
	assert.Equal(t, "c7", merged[1].ID)
	assert.Equal(t, MergeStats{Inserted: 2, Duplicates: 1, Skipped: 1}, stats)
}

func TestMergeCrushes_ResubmitAfterBSONRoundTrip(t *testing.T) {
	client := models.Outfit{
		Tops: []models.Item{{Filename: "gap_tops_1.png"}},
		Date: time.Date(2024, 2, 14, 0, 0, 0, 123456789, time.UTC),
	}

	merged, stats := MergeCrushes(nil, []models.Outfit{client}, time.Now())
	require.Equal(t, 1, stats.Inserted)

	data, err := bson.Marshal(merged[0])
	require.NoError(t, err)
	var stored models.Outfit
	require.NoError(t, bson.Unmarshal(data, &stored))
	assert.True(t, merged[0].Date.Equal(stored.Date), "stored date keeps no precision bson would drop")

	// The client still holds the full-precision date and no id.
	merged, stats = MergeCrushes([]models.Outfit{stored}, []models.Outfit{client}, time.Now())
	assert.Len(t, merged, 1)
	assert.Equal(t, MergeStats{Duplicates: 1}, stats)
}

func TestSync_Idempotent(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()
	user, err := env.svc.FindOrCreate(ctx, "a@x.com")
	require.NoError(t, err)

	req := SyncRequest{
		Items: map[string][]models.Item{
			"tops":  {{Filename: "gap_tops_1.png"}},
			"shoes": {{Filename: "nike_shoes_1.png"}, {Filename: "nike_shoes_2.png"}},
			"hats":  {{Filename: "ignored.png"}},
		},
		Crushes: []models.Outfit{{Date: time.Date(2024, 2, 14, 0, 0, 0, 0, time.UTC)}},
	}

	first, err := env.svc.Sync(ctx, user.ID, req)
	require.NoError(t, err)
	second, err := env.svc.Sync(ctx, user.ID, req)
	require.NoError(t, err)

	assert.Equal(t, 1, first.Tops)
	assert.Equal(t, 2, first.Shoes)
	assert.Equal(t, 1, first.Crushes)
	assert.Equal(t, first, second)
	assert.Equal(t, user.ID, second.ID)
	assert.Equal(t, "a@x.com", second.Email)
}

func TestSync_SkipsItemsAlreadyUploaded(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()

	item, err := env.svc.Upload(ctx, "u1", UploadRequest{Category: "tops", ImageURL: "https://www.gap.com/shirt.png"})
	require.NoError(t, err)

	summary, err := env.svc.Sync(ctx, "u1", SyncRequest{Items: map[string][]models.Item{
		"tops": {{Filename: item.Filename}, {ID: item.ID}},
	}})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Tops)
}

func TestSync_UnknownUserWithoutProvisioning(t *testing.T) {
	env := newTestEnv(t, false)

	_, err := env.svc.Sync(context.Background(), "ghost", SyncRequest{})
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}
