// Package store defines the persistence contract used by every record
// collection, the filter model for searches, and an in-memory
// implementation. Concrete database adapters live in sub-packages.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when a record id does not exist in its collection.
	ErrNotFound = errors.New("record not found")
	// ErrUnavailable is returned when the backing store cannot be reached or
	// was never configured.
	ErrUnavailable = errors.New("store unavailable")
)

// Record is a stored document: its adapter-assigned identity and
// timestamps plus the schema-defined fields.
type Record struct {
	ID        string
	Fields    map[string]any
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Get returns a field value, or nil when the field is not set.
func (r *Record) Get(name string) any {
	return r.Fields[name]
}

// Clone returns a copy that shares no map with r.
func (r *Record) Clone() *Record {
	fields := make(map[string]any, len(r.Fields))
	for k, v := range r.Fields {
		fields[k] = v
	}
	return &Record{ID: r.ID, Fields: fields, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt}
}

// MarshalJSON flattens the record into a single JSON object with the
// document-store key names _id, createdAt and updatedAt.
func (r *Record) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Fields)+3)
	for k, v := range r.Fields {
		out[k] = v
	}
	out["_id"] = r.ID
	out["createdAt"] = r.CreatedAt
	out["updatedAt"] = r.UpdatedAt
	return json.Marshal(out)
}

// Collection is the persistence contract for one record collection.
type Collection interface {
	// Insert stores fields as a new record, assigning id and timestamps.
	Insert(ctx context.Context, fields map[string]any) (*Record, error)
	// FindByID returns ErrNotFound when id is absent.
	FindByID(ctx context.Context, id string) (*Record, error)
	// Find returns all records matching f in insertion order. An empty
	// filter matches the whole collection.
	Find(ctx context.Context, f Filter) ([]*Record, error)
	// UpdateByID merges partial into the record and refreshes UpdatedAt.
	// Fields not in partial are left untouched. Returns ErrNotFound when id
	// is absent.
	UpdateByID(ctx context.Context, id string, partial map[string]any) (*Record, error)
	// DeleteByID removes the record. Deleting an absent id is not an error.
	DeleteByID(ctx context.Context, id string) error
	Count(ctx context.Context, f Filter) (int64, error)
}

// Store hands out collections by name.
type Store interface {
	Collection(name string) Collection
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// GroupTotal is one row of a grouped sum. Key is the grouping value.
type GroupTotal struct {
	Key   any     `json:"_id"`
	Total float64 `json:"total"`
}

// Aggregator is implemented by collections that can group and sum natively.
type Aggregator interface {
	SumBy(ctx context.Context, groupField, sumField string) ([]GroupTotal, error)
}

// NewID returns a fresh record identifier.
func NewID() string {
	return uuid.NewString()
}

// Now returns the current time at the precision every adapter can store.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}
