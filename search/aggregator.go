package search

import (
	"fmt"
	"slices"
	"sort"
)

// IdentityFields lists the fields checked, in order, to find the dedup key of
// a record of each category. The order follows the record's own field order,
// so news is keyed by article url before its thumbnail image.
var IdentityFields = map[Category][]string{
	CategoryText:   {"href"},
	CategoryImages: {"image", "url"},
	CategoryNews:   {"url", "image"},
	CategoryVideos: {"embed_url"},
}

type aggregated[T Record] struct {
	item  T
	count int
}

// Aggregator deduplicates records by identity key and counts how often each
// key was seen. It is not safe for concurrent use.
type Aggregator[T Record] struct {
	fields  []string
	index   map[string]int
	entries []aggregated[T]
}

// NewAggregator returns an empty aggregator keyed by the given identity fields.
func NewAggregator[T Record](fields []string) (*Aggregator[T], error) {
	if len(fields) == 0 {
		return nil, ErrNoIdentityFields
	}
	return &Aggregator[T]{
		fields: slices.Clone(fields),
		index:  make(map[string]int),
	}, nil
}

// IdentityKey returns the value of the first populated identity field.
func (a *Aggregator[T]) IdentityKey(item T) (string, error) {
	for _, f := range a.fields {
		if v := item.Field(f); v != "" {
			return v, nil
		}
	}
	return "", fmt.Errorf("%w: checked %v", ErrNoIdentityField, a.fields)
}

// Append stores a new key with count 1, or bumps the count of a known key and
// keeps whichever duplicate has the longer snippet.
func (a *Aggregator[T]) Append(item T) error {
	key, err := a.IdentityKey(item)
	if err != nil {
		return err
	}

	i, ok := a.index[key]
	if !ok {
		a.index[key] = len(a.entries)
		a.entries = append(a.entries, aggregated[T]{item: item, count: 1})
		return nil
	}

	e := &a.entries[i]
	e.count++
	if len(item.Snippet()) > len(e.item.Snippet()) {
		e.item = item
	}
	return nil
}

func (a *Aggregator[T]) Extend(items []T) error {
	for _, item := range items {
		if err := a.Append(item); err != nil {
			return err
		}
	}
	return nil
}

// Rank returns the stored records by descending count. Ties keep insertion
// order.
func (a *Aggregator[T]) Rank() []T {
	sorted := slices.Clone(a.entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].count > sorted[j].count
	})

	out := make([]T, len(sorted))
	for i, e := range sorted {
		out[i] = e.item
	}
	return out
}

// Len is the number of distinct identity keys.
func (a *Aggregator[T]) Len() int {
	return len(a.entries)
}

// Count returns how many times key was appended.
func (a *Aggregator[T]) Count(key string) int {
	if i, ok := a.index[key]; ok {
		return a.entries[i].count
	}
	return 0
}
