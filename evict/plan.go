// Package evict selects and removes torrents from a daemon, either every unregistered torrent
// or the oldest torrents needed to reach a free-space target.
package evict

import (
	"sort"

	"github.com/l3uddz/delugetools/config"
)

// Plan is an ordered removal list for one daemon.
type Plan struct {
	Torrents []config.Torrent
	// ToFree is the space needed when the plan was made.
	ToFree int64
	// Bytes is the total size of the planned torrents.
	Bytes int64
	// Remaining is the space still missing after the plan, non-zero only when torrents ran out.
	Remaining int64
}

func (p Plan) Empty() bool {
	return len(p.Torrents) == 0
}

// SortOldestFirst orders torrents by time added. Time added only has float32 precision (128s steps
// for current dates), so equal times are ordered by longest active first, then by hash.
func SortOldestFirst(torrents map[string]config.Torrent) []config.Torrent {
	sorted := make([]config.Torrent, 0, len(torrents))
	for _, t := range torrents {
		sorted = append(sorted, t)
	}

	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Hash < sorted[j].Hash
	})
	sortByTimeAdded(sorted)
	return sorted
}

func sortByTimeAdded(torrents []config.Torrent) {
	sort.SliceStable(torrents, func(i, j int) bool {
		if torrents[i].TimeAdded != torrents[j].TimeAdded {
			return torrents[i].TimeAdded < torrents[j].TimeAdded
		}
		return torrents[i].ActiveTime > torrents[j].ActiveTime
	})
}

// SelectUnregistered returns the torrents whose tracker reports them unregistered, keeping input order.
func SelectUnregistered(torrents []config.Torrent) []config.Torrent {
	selected := make([]config.Torrent, 0)
	for _, t := range torrents {
		t := t
		if t.IsUnregistered() {
			selected = append(selected, t)
		}
	}
	return selected
}

// PlanSpace picks the oldest torrents until freeBytes plus their sizes reaches wantFreeBytes.
// Torrents are ordered oldest first, ties keeping input order. When the target is already met the
// plan is empty; when torrents run out the plan holds all of them and Remaining is positive.
func PlanSpace(torrents []config.Torrent, freeBytes int64, wantFreeBytes int64) Plan {
	plan := Plan{ToFree: wantFreeBytes - freeBytes}
	if plan.ToFree <= 0 {
		return plan
	}

	queue := make([]config.Torrent, len(torrents))
	copy(queue, torrents)
	sortByTimeAdded(queue)

	toFree := plan.ToFree
	for len(queue) > 0 && toFree > 0 {
		victim := queue[0]
		queue = queue[1:]

		plan.Torrents = append(plan.Torrents, victim)
		plan.Bytes += victim.TotalBytes
		toFree -= victim.TotalBytes
	}

	if toFree > 0 {
		plan.Remaining = toFree
	}

	return plan
}
