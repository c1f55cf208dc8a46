package layout

import (
	"slices"

	"calgrid/internal/model"
)

// Pack assigns columns to the events of a single calendar day so that
// overlapping events sit side by side.
//
// Events are visited in start order; equal starts keep their input order.
// Each visited event joins every existing overlap group that has a member
// overlapping it (merging those groups) and takes the lowest column not
// held by a member it overlaps pairwise. An event that overlaps no group
// opens a new one at column 0. Once all events are placed, each member of
// a group gets width 1/(highest column in the group + 1).
//
// The assignment is greedy and never backtracks, so a chain of partial
// overlaps can use more columns than an optimal coloring would.
//
// The result is in visiting order. Callers doing a week layout must pack
// each day separately.
func Pack(events []model.Event) []model.PositionedEvent {
	sorted := slices.Clone(events)
	slices.SortStableFunc(sorted, func(a, b model.Event) int {
		return a.Start.Compare(b.Start)
	})

	out := make([]model.PositionedEvent, len(sorted))
	// groups holds indexes into out; a merged-away group is set to nil.
	var groups [][]int

	for i, ev := range sorted {
		out[i] = model.PositionedEvent{Event: ev}

		var hits []int
		for g, members := range groups {
			for _, m := range members {
				if Overlaps(out[m].Event.Start, out[m].Event.End, ev.Start, ev.End) {
					hits = append(hits, g)
					break
				}
			}
		}

		if len(hits) == 0 {
			groups = append(groups, []int{i})
			continue
		}

		target := hits[0]
		for _, g := range hits[1:] {
			groups[target] = append(groups[target], groups[g]...)
			groups[g] = nil
		}

		taken := make(map[int]bool)
		for _, m := range groups[target] {
			if Overlaps(out[m].Event.Start, out[m].Event.End, ev.Start, ev.End) {
				taken[out[m].Column] = true
			}
		}
		col := 0
		for taken[col] {
			col++
		}
		out[i].Column = col
		groups[target] = append(groups[target], i)
	}

	for _, members := range groups {
		if len(members) == 0 {
			continue
		}
		highest := 0
		for _, m := range members {
			highest = max(highest, out[m].Column)
		}
		width := 1 / float64(highest+1)
		for _, m := range members {
			out[m].Width = width
		}
	}

	return out
}

// Groups partitions packed events into their overlap groups, preserving
// order within each group. Two events share a group when they are linked by
// a chain of pairwise overlaps.
func Groups(packed []model.PositionedEvent) [][]model.PositionedEvent {
	parent := make([]int, len(packed))
	for i := range parent {
		parent[i] = i
	}
	find := func(i int) int {
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}

	for i := range packed {
		for j := i + 1; j < len(packed); j++ {
			a, b := packed[i].Event, packed[j].Event
			if Overlaps(a.Start, a.End, b.Start, b.End) {
				parent[find(j)] = find(i)
			}
		}
	}

	index := make(map[int]int)
	var groups [][]model.PositionedEvent
	for i, pe := range packed {
		root := find(i)
		g, ok := index[root]
		if !ok {
			g = len(groups)
			index[root] = g
			groups = append(groups, nil)
		}
		groups[g] = append(groups[g], pe)
	}
	return groups
}
