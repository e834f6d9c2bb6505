package analytics

import (
	"iter"

	"bikeshare-platform/internal/models"
)

// DefaultPageSize is the number of raw records shown per page
const DefaultPageSize = 5

// Page is one slice of a collection; Offset is the index of its first record
type Page struct {
	Offset  int                 `json:"offset"`
	Records []models.TripRecord `json:"records"`
}

// Empty reports whether the page holds no records
func (p Page) Empty() bool {
	return len(p.Records) == 0
}

// Pager hands out successive pages of a collection, starting at offset 0.
// It cannot be rewound; build a new Pager to start over.
type Pager struct {
	records *models.Collection
	size    int
	offset  int
}

// NewPager creates a pager; sizes below 1 fall back to DefaultPageSize
func NewPager(records *models.Collection, size int) *Pager {
	if size < 1 {
		size = DefaultPageSize
	}
	return &Pager{records: records, size: size}
}

// PageSize returns the configured page length
func (p *Pager) PageSize() int {
	return p.size
}

// HasNext reports whether another non-empty page remains
func (p *Pager) HasNext() bool {
	return p.offset < p.records.Len()
}

// Next returns the next page and advances. Once the collection is
// exhausted it keeps returning empty pages.
func (p *Pager) Next() Page {
	page := Page{Offset: p.offset, Records: p.records.Slice(p.offset, p.size)}
	if p.HasNext() {
		p.offset += p.size
	}
	return page
}

// Pages yields the remaining non-empty pages
func (p *Pager) Pages() iter.Seq[Page] {
	return func(yield func(Page) bool) {
		for p.HasNext() {
			if !yield(p.Next()) {
				return
			}
		}
	}
}
