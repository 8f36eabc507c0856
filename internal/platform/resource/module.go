package resource

import (
	"context"
	"fmt"
	"net/url"

	"github.com/ehr/records/internal/platform/store"
)

// NoteAck is the acknowledgement returned by AddNote.
var NoteAck = map[string]string{"status": "note added"}

// Module runs the record operations for one Definition against its
// collection.
type Module struct {
	def  *Definition
	coll store.Collection
}

// NewModule binds def to its collection in s.
func NewModule(def *Definition, s store.Store) *Module {
	return &Module{def: def, coll: s.Collection(def.Collection)}
}

func (m *Module) Definition() *Definition {
	return m.def
}

func (m *Module) List(ctx context.Context) ([]*store.Record, error) {
	return m.find(ctx, nil)
}

func (m *Module) Count(ctx context.Context) (int64, error) {
	n, err := m.coll.Count(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", m.def.Name, err)
	}
	return n, nil
}

// Search lists records matching the recognized parameters in q. With no
// recognized parameter it behaves like List.
func (m *Module) Search(ctx context.Context, q url.Values) ([]*store.Record, error) {
	return m.find(ctx, m.def.BuildFilter(q))
}

func (m *Module) find(ctx context.Context, f store.Filter) ([]*store.Record, error) {
	records, err := m.coll.Find(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", m.def.Name, err)
	}
	for _, r := range records {
		m.hydrate(r)
	}
	return records, nil
}

func (m *Module) Get(ctx context.Context, id string) (*store.Record, error) {
	r, err := m.coll.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get %s %s: %w", m.def.Name, id, err)
	}
	return m.hydrate(r), nil
}

// Create validates raw and inserts it. A *schema.ValidationError means
// nothing was written.
func (m *Module) Create(ctx context.Context, raw map[string]any) (*store.Record, error) {
	values, err := m.def.Schema.ValidateCreate(raw)
	if err != nil {
		return nil, err
	}
	r, err := m.coll.Insert(ctx, values)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", m.def.Name, err)
	}
	return m.hydrate(r), nil
}

// Update validates the fields present in raw and merges them into the
// record. Absent fields keep their stored value.
func (m *Module) Update(ctx context.Context, id string, raw map[string]any) (*store.Record, error) {
	values, err := m.def.Schema.ValidateUpdate(raw)
	if err != nil {
		return nil, err
	}
	r, err := m.coll.UpdateByID(ctx, id, values)
	if err != nil {
		return nil, fmt.Errorf("update %s %s: %w", m.def.Name, id, err)
	}
	return m.hydrate(r), nil
}

// Transition writes fields unconditionally, whatever the record's current
// state.
func (m *Module) Transition(ctx context.Context, id string, fields map[string]any) (*store.Record, error) {
	r, err := m.coll.UpdateByID(ctx, id, fields)
	if err != nil {
		return nil, fmt.Errorf("transition %s %s: %w", m.def.Name, id, err)
	}
	return m.hydrate(r), nil
}

// Delete removes the record. A missing id is not an error.
func (m *Module) Delete(ctx context.Context, id string) error {
	if err := m.coll.DeleteByID(ctx, id); err != nil {
		return fmt.Errorf("delete %s %s: %w", m.def.Name, id, err)
	}
	return nil
}

// History, AddNote and Related are stubs: they neither touch the store nor
// check that id exists.

func (m *Module) History(context.Context, string) []any {
	return []any{}
}

func (m *Module) AddNote(context.Context, string, map[string]any) map[string]string {
	return NoteAck
}

func (m *Module) Related(context.Context, string) []any {
	return []any{}
}

func (m *Module) hydrate(r *store.Record) *store.Record {
	r.Fields = m.def.Schema.Hydrate(r.Fields)
	return r
}
