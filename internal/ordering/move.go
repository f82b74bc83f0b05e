package ordering

import (
	"sort"
	"strings"
)

// Item is a bookmark as seen by API clients.
type Item struct {
	ID      string   `json:"id"`
	URL     string   `json:"url"`
	Title   string   `json:"title"`
	Favicon string   `json:"favicon"`
	Summary string   `json:"summary"`
	Tags    []string `json:"tags"`
	Order   int64    `json:"order"`
}

// HasTag reports whether the item carries tag.
func (i Item) HasTag(tag string) bool {
	for _, candidate := range i.Tags {
		if candidate == tag {
			return true
		}
	}
	return false
}

// Move returns a copy of ids with the element at from relocated to index to.
// Out of range indexes leave the sequence unchanged.
func Move(ids []string, from, to int) []string {
	moved := append([]string(nil), ids...)
	if from < 0 || from >= len(ids) || to < 0 || to >= len(ids) || from == to {
		return moved
	}
	value := moved[from]
	moved = append(moved[:from], moved[from+1:]...)
	moved = append(moved[:to], append([]string{value}, moved[to:]...)...)
	return moved
}

// MoveByID drops the item identified by activeID onto the position held by
// overID and returns the resulting id sequence. It reports false when the
// gesture is a no-op or either id is absent.
func MoveByID(items []Item, activeID, overID string) ([]string, bool) {
	activeID = strings.TrimSpace(activeID)
	overID = strings.TrimSpace(overID)
	if activeID == "" || overID == "" || activeID == overID {
		return nil, false
	}
	from, to := -1, -1
	ids := make([]string, len(items))
	for index, item := range items {
		ids[index] = item.ID
		switch item.ID {
		case activeID:
			from = index
		case overID:
			to = index
		}
	}
	if from < 0 || to < 0 {
		return nil, false
	}
	return Move(ids, from, to), true
}

// ApplyOrder assigns each listed id its position in ids as the new order key
// and returns the items sorted by order. Unlisted items keep their key.
func ApplyOrder(items []Item, ids []string) []Item {
	positions := make(map[string]int64, len(ids))
	for index, id := range ids {
		if _, seen := positions[id]; seen {
			continue
		}
		positions[id] = int64(index)
	}
	reordered := make([]Item, len(items))
	for index, item := range items {
		if position, ok := positions[item.ID]; ok {
			item.Order = position
		}
		reordered[index] = item
	}
	sort.SliceStable(reordered, func(i, j int) bool {
		return reordered[i].Order < reordered[j].Order
	})
	return reordered
}

// FilterByTag returns the items carrying tag in their existing order. An
// empty tag selects every item.
func FilterByTag(items []Item, tag string) []Item {
	if tag == "" {
		return append([]Item(nil), items...)
	}
	filtered := make([]Item, 0, len(items))
	for _, item := range items {
		if item.HasTag(tag) {
			filtered = append(filtered, item)
		}
	}
	return filtered
}

// MoveInView performs a drag within the items carrying tag and returns the
// full id sequence. Visible items are rearranged among the slots they
// already occupy; hidden items do not move. An empty tag drags over the
// whole list.
func MoveInView(items []Item, tag, activeID, overID string) ([]string, bool) {
	ordered := ApplyOrder(items, nil)
	visible := FilterByTag(ordered, tag)
	moved, ok := MoveByID(visible, activeID, overID)
	if !ok {
		return nil, false
	}
	full := make([]string, len(ordered))
	next := 0
	for index, item := range ordered {
		if tag == "" || item.HasTag(tag) {
			full[index] = moved[next]
			next++
			continue
		}
		full[index] = item.ID
	}
	return full, true
}
