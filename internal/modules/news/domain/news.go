package domain

import (
	"cmp"
	"slices"

	"github.com/samber/lo"
)

// MaxItems bounds the persisted news list.
const MaxItems = 10

// NewsItem is one mirrored channel post as published to the site
type NewsItem struct {
	ID    int64   `json:"id"`
	Text  string  `json:"text"`
	Date  int64   `json:"date"`
	Image *string `json:"image"`
}

// SyncState is persisted between runs of the sync job
type SyncState struct {
	LastUpdateID *int64 `json:"lastUpdateId"`
}

// NextOffset is the getUpdates offset that skips every update already seen.
// It is nil when no update has ever been processed.
func (s SyncState) NextOffset() *int64 {
	if s.LastUpdateID == nil {
		return nil
	}
	return lo.ToPtr(*s.LastUpdateID + 1)
}

// Advance returns the state after observing updateIDs. The offset never moves backwards.
func (s SyncState) Advance(updateIDs []int64) SyncState {
	if len(updateIDs) == 0 {
		return s
	}
	maxID := lo.Max(updateIDs)
	if s.LastUpdateID != nil && *s.LastUpdateID >= maxID {
		return s
	}
	return SyncState{LastUpdateID: lo.ToPtr(maxID)}
}

// Merge combines two observations of the same post. Fields of incoming win,
// except that a missing image never erases one recorded earlier.
func Merge(existing, incoming NewsItem) NewsItem {
	merged := incoming
	if merged.Image == nil && existing.Image != nil {
		merged.Image = lo.ToPtr(*existing.Image)
	}
	return merged
}

// MergeAll unions existing and incoming by id, incoming observed later and in
// order, then returns at most MaxItems items sorted newest first.
func MergeAll(existing, incoming []NewsItem) []NewsItem {
	byID := make(map[int64]NewsItem, len(existing)+len(incoming))
	for _, item := range existing {
		if prev, ok := byID[item.ID]; ok {
			item = Merge(prev, item)
		}
		byID[item.ID] = item
	}
	for _, item := range incoming {
		if prev, ok := byID[item.ID]; ok {
			item = Merge(prev, item)
		}
		byID[item.ID] = item
	}

	merged := lo.Values(byID)
	SortNewestFirst(merged)

	if len(merged) > MaxItems {
		merged = merged[:MaxItems]
	}
	return merged
}

// SortNewestFirst orders by date descending, then id descending.
func SortNewestFirst(items []NewsItem) {
	slices.SortFunc(items, func(a, b NewsItem) int {
		if c := cmp.Compare(b.Date, a.Date); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
}
