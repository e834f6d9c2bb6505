package models

import (
	"iter"
	"time"
)

// Schema records which optional columns a city dataset carries.
// It is a property of the whole dataset, not of individual records.
type Schema struct {
	HasGender    bool `json:"has_gender" db:"has_gender"`
	HasBirthYear bool `json:"has_birth_year" db:"has_birth_year"`
}

// Dataset describes a loaded or imported city file
type Dataset struct {
	City      string    `json:"city" db:"city"`
	Schema
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Collection is an ordered, index-addressable, read-only set of trips.
// Filtered views are new Collections that keep the relative order of
// the records they were derived from.
type Collection struct {
	schema  Schema
	records []TripRecord
}

// NewCollection copies records into a new Collection
func NewCollection(schema Schema, records []TripRecord) *Collection {
	owned := make([]TripRecord, len(records))
	copy(owned, records)
	return &Collection{schema: schema, records: owned}
}

// Schema returns the dataset-level column flags
func (c *Collection) Schema() Schema {
	return c.schema
}

// Len returns the number of records
func (c *Collection) Len() int {
	return len(c.records)
}

// At returns the record at index i (0-based)
func (c *Collection) At(i int) TripRecord {
	return c.records[i]
}

// All iterates the records in order
func (c *Collection) All() iter.Seq2[int, TripRecord] {
	return func(yield func(int, TripRecord) bool) {
		for i, r := range c.records {
			if !yield(i, r) {
				return
			}
		}
	}
}

// Slice returns a copy of up to limit records starting at offset.
// Offsets outside the collection yield an empty slice.
func (c *Collection) Slice(offset, limit int) []TripRecord {
	if offset < 0 || limit <= 0 || offset >= len(c.records) {
		return []TripRecord{}
	}

	end := offset + limit
	if end > len(c.records) {
		end = len(c.records)
	}

	out := make([]TripRecord, end-offset)
	copy(out, c.records[offset:end])
	return out
}

// Where returns a new Collection holding the records that satisfy keep,
// in their original relative order. The receiver is left untouched.
func (c *Collection) Where(keep func(TripRecord) bool) *Collection {
	out := make([]TripRecord, 0, len(c.records))
	for _, r := range c.records {
		if keep(r) {
			out = append(out, r)
		}
	}
	return &Collection{schema: c.schema, records: out}
}
