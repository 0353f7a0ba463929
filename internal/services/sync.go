package services

import (
	"context"
	"time"

	"wardrobe-backend/internal/metrics"
	"wardrobe-backend/internal/models"

	"github.com/rs/xid"
	"github.com/rs/zerolog/log"
)

// SyncRequest is a client-held snapshot to reconcile with the server record
type SyncRequest struct {
	Items   map[string][]models.Item `json:"items"`
	Crushes []models.Outfit          `json:"crushes"`
}

// MergeStats counts what happened to the submitted entries of one merge
type MergeStats struct {
	Inserted   int
	Duplicates int
	Skipped    int // entries with nothing to deduplicate on
}

func (m *MergeStats) add(o MergeStats) {
	m.Inserted += o.Inserted
	m.Duplicates += o.Duplicates
	m.Skipped += o.Skipped
}

// IsDuplicateItem reports whether candidate is already represented by
// existing: same non-empty filename or same non-empty id.
func IsDuplicateItem(existing, candidate models.Item) bool {
	if candidate.Filename != "" && candidate.Filename == existing.Filename {
		return true
	}
	return candidate.ID != "" && candidate.ID == existing.ID
}

// IsDuplicateCrush reports whether candidate is already represented by
// existing: same non-empty id, or non-zero dates equal to the millisecond.
func IsDuplicateCrush(existing, candidate models.Outfit) bool {
	if candidate.ID != "" && candidate.ID == existing.ID {
		return true
	}
	if candidate.Date.IsZero() || existing.Date.IsZero() {
		return false
	}
	return crushDate(candidate.Date).Equal(crushDate(existing.Date))
}

// crushDate drops the precision BSON cannot store, so a date read back from
// any backend still matches the one the client holds.
func crushDate(t time.Time) time.Time {
	return t.Truncate(time.Millisecond)
}

// MergeItems appends the entries of incoming that are not duplicates of an
// entry already in the merged list, in submission order. Items carrying
// neither id nor filename are skipped, since a resubmission could never be
// recognized.
func MergeItems(existing, incoming []models.Item, now time.Time) ([]models.Item, MergeStats) {
	var stats MergeStats
	merged := existing

next:
	for _, candidate := range incoming {
		if candidate.ID == "" && candidate.Filename == "" {
			stats.Skipped++
			continue
		}
		for _, it := range merged {
			if IsDuplicateItem(it, candidate) {
				stats.Duplicates++
				continue next
			}
		}

		if candidate.ID == "" {
			candidate.ID = xid.New().String()
		}
		if candidate.AddedAt.IsZero() {
			candidate.AddedAt = now
		}
		merged = append(merged, candidate)
		stats.Inserted++
	}
	return merged, stats
}

// MergeCrushes is MergeItems for crushes. Crushes carrying neither id nor
// date are skipped.
func MergeCrushes(existing, incoming []models.Outfit, now time.Time) ([]models.Outfit, MergeStats) {
	var stats MergeStats
	merged := existing

next:
	for _, candidate := range incoming {
		if candidate.ID == "" && candidate.Date.IsZero() {
			stats.Skipped++
			continue
		}
		for _, c := range merged {
			if IsDuplicateCrush(c, candidate) {
				stats.Duplicates++
				continue next
			}
		}

		if candidate.ID == "" {
			candidate.ID = xid.New().String()
		}
		candidate.Date = crushDate(candidate.Date)
		merged = append(merged, candidate.Clone())
		stats.Inserted++
	}
	return merged, stats
}

// Sync merges the client snapshot into the user record and returns the
// resulting collection sizes. Submitting the same snapshot twice inserts
// nothing the second time.
func (s *WardrobeService) Sync(ctx context.Context, userID string, req SyncRequest) (*models.SyncSummary, error) {
	if err := requireUserID(userID); err != nil {
		return nil, err
	}

	for category := range req.Items {
		if !models.IsCategory(category) {
			log.Debug().Str("user_id", userID).Str("category", category).Msg("Ignoring unknown sync category")
		}
	}

	var itemStats, crushStats MergeStats
	user, err := s.update(ctx, userID, true, func(u *models.User) error {
		now := s.now()
		itemStats, crushStats = MergeStats{}, MergeStats{}

		for _, category := range models.Categories {
			incoming, ok := req.Items[category]
			if !ok {
				continue
			}
			list := u.Category(category)
			var stats MergeStats
			*list, stats = MergeItems(*list, incoming, now)
			itemStats.add(stats)
		}

		u.Crushes, crushStats = MergeCrushes(u.Crushes, req.Crushes, now)
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordSync("items", itemStats.Inserted, itemStats.Duplicates, itemStats.Skipped)
	metrics.RecordSync("crushes", crushStats.Inserted, crushStats.Duplicates, crushStats.Skipped)

	log.Info().
		Str("user_id", userID).
		Int("items_inserted", itemStats.Inserted).
		Int("items_duplicate", itemStats.Duplicates).
		Int("crushes_inserted", crushStats.Inserted).
		Int("crushes_duplicate", crushStats.Duplicates).
		Msg("Sync merged")

	summary := models.Summarize(user)
	return &summary, nil
}
