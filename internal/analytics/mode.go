package analytics

import "slices"

// CategoryCount is the number of records carrying one category value
type CategoryCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// CategoryCounts is ordered by descending count; equal counts keep the
// order in which the values first appeared.
type CategoryCounts []CategoryCount

// Lookup returns the count recorded for value
func (c CategoryCounts) Lookup(value string) (int, bool) {
	for _, cc := range c {
		if cc.Value == value {
			return cc.Count, true
		}
	}
	return 0, false
}

// tally counts occurrences while remembering first-seen order, so the
// mode breaks ties in favour of the value that appeared first.
type tally[K comparable] struct {
	counts map[K]int
	order  []K
}

func newTally[K comparable]() *tally[K] {
	return &tally[K]{counts: make(map[K]int)}
}

func (t *tally[K]) add(k K) {
	if _, seen := t.counts[k]; !seen {
		t.order = append(t.order, k)
	}
	t.counts[k]++
}

// mode returns the most frequent key; ok is false when nothing was added
func (t *tally[K]) mode() (key K, count int, ok bool) {
	for _, k := range t.order {
		if c := t.counts[k]; c > count {
			key, count, ok = k, c, true
		}
	}
	return key, count, ok
}

// ranked returns every key with its count, highest count first
func (t *tally[K]) ranked(label func(K) string) CategoryCounts {
	out := make(CategoryCounts, 0, len(t.order))
	for _, k := range t.order {
		out = append(out, CategoryCount{Value: label(k), Count: t.counts[k]})
	}
	slices.SortStableFunc(out, func(a, b CategoryCount) int {
		return b.Count - a.Count
	})
	return out
}
