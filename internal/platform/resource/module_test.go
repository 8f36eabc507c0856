package resource

import (
	"context"
	"errors"
	"net/url"
	"reflect"
	"testing"
	"time"

	"github.com/ehr/records/internal/platform/schema"
	"github.com/ehr/records/internal/platform/store"
)

func patientDef() *Definition {
	return &Definition{
		Name:       "patient",
		Path:       "/patients",
		Collection: "patients",
		Schema: schema.New("patient",
			schema.Field{Name: "name", Kind: schema.String, Required: true, MinLength: 2},
			schema.Field{Name: "dob", Kind: schema.Date, Required: true},
			schema.Field{Name: "gender", Kind: schema.Enum, Enum: []string{"M", "F", "O"}, Default: "O"},
		),
		SearchParams: []SearchParam{
			{Name: "name", Fields: []string{"name"}, Match: Substring},
			{Name: "gender", Fields: []string{"gender"}},
		},
	}
}

func appointmentDef() *Definition {
	return &Definition{
		Name:       "appointment",
		Path:       "/appointments",
		Collection: "appointments",
		Schema: schema.New("appointment",
			schema.Field{Name: "patientId", Kind: schema.Ref, Required: true},
			schema.Field{Name: "providerId", Kind: schema.Ref, Required: true},
			schema.Field{Name: "start", Kind: schema.DateTime, Required: true},
			schema.Field{Name: "end", Kind: schema.DateTime, Required: true},
			schema.Field{Name: "status", Kind: schema.Enum, Enum: []string{"scheduled", "completed", "cancelled"}, Default: "scheduled"},
		),
		SearchParams: []SearchParam{
			{Name: "patientId", Fields: []string{"patientId"}},
			{Name: "providerId", Fields: []string{"providerId"}},
			{Name: "status", Fields: []string{"status"}},
		},
		Transitions: []Transition{
			{Name: "cancel", Set: map[string]any{"status": "cancelled"}},
		},
	}
}

func providerDef() *Definition {
	return &Definition{
		Name:       "provider",
		Path:       "/providers",
		Collection: "providers",
		Schema: schema.New("provider",
			schema.Field{Name: "name", Kind: schema.String, Required: true, MinLength: 2},
			schema.Field{Name: "specialty", Kind: schema.String, Required: true, MinLength: 2},
			schema.Field{Name: "active", Kind: schema.Bool, Default: true},
		),
		SearchParams: []SearchParam{
			{Name: "term", Fields: []string{"name", "specialty"}, Match: Substring},
			{Name: "active", Fields: []string{"active"}, Kind: schema.Bool},
		},
	}
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

func newTestModule(def *Definition) *Module {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	return NewModule(def, store.NewMemory(store.WithClock(clock.now)))
}

func mustCreate(t *testing.T, m *Module, raw map[string]any) *store.Record {
	t.Helper()
	r, err := m.Create(context.Background(), raw)
	if err != nil {
		t.Fatalf("create %v: %v", raw, err)
	}
	return r
}

func mustCount(t *testing.T, m *Module) int64 {
	t.Helper()
	n, err := m.Count(context.Background())
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

func TestCreate_MissingRequiredLeavesCollectionUnchanged(t *testing.T) {
	m := newTestModule(patientDef())
	mustCreate(t, m, map[string]any{"name": "Jane Doe", "dob": "1990-05-01"})

	_, err := m.Create(context.Background(), map[string]any{"name": "John"})
	var verr *schema.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(verr.Errors) != 1 || verr.Errors[0].Field != "dob" || verr.Errors[0].Constraint != "required" {
		t.Errorf("unexpected violations %+v", verr.Errors)
	}
	if n := mustCount(t, m); n != 1 {
		t.Errorf("expected count 1, got %d", n)
	}
}

func TestCreate_ValidIncrementsCount(t *testing.T) {
	m := newTestModule(patientDef())
	seen := map[string]bool{}
	for i, name := range []string{"Jane Doe", "John Roe", "Ann Poe"} {
		before := mustCount(t, m)
		r := mustCreate(t, m, map[string]any{"name": name, "dob": "1990-05-01"})
		if r.ID == "" || seen[r.ID] {
			t.Fatalf("expected fresh id, got %q", r.ID)
		}
		seen[r.ID] = true
		if r.CreatedAt.IsZero() || !r.UpdatedAt.Equal(r.CreatedAt) {
			t.Errorf("unexpected timestamps %v %v", r.CreatedAt, r.UpdatedAt)
		}
		if after := mustCount(t, m); after != before+1 {
			t.Errorf("create %d: expected count %d, got %d", i, before+1, after)
		}
	}
}

func TestUpdate_EmptyPartialOnlyTouchesUpdatedAt(t *testing.T) {
	m := newTestModule(patientDef())
	created := mustCreate(t, m, map[string]any{"name": "Jane Doe", "dob": "1990-05-01", "gender": "F"})

	updated, err := m.Update(context.Background(), created.ID, map[string]any{})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !reflect.DeepEqual(updated.Fields, created.Fields) {
		t.Errorf("expected fields unchanged\n got %v\nwant %v", updated.Fields, created.Fields)
	}
	if !updated.CreatedAt.Equal(created.CreatedAt) {
		t.Errorf("createdAt changed: %v -> %v", created.CreatedAt, updated.CreatedAt)
	}
	if !updated.UpdatedAt.After(created.UpdatedAt) {
		t.Errorf("expected updatedAt to advance, got %v -> %v", created.UpdatedAt, updated.UpdatedAt)
	}
}

func TestUpdate_MissingID(t *testing.T) {
	m := newTestModule(patientDef())
	mustCreate(t, m, map[string]any{"name": "Jane Doe", "dob": "1990-05-01"})

	_, err := m.Update(context.Background(), "missing", map[string]any{"gender": "F"})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if n := mustCount(t, m); n != 1 {
		t.Errorf("expected count 1, got %d", n)
	}
}

func TestUpdate_InvalidDoesNotWrite(t *testing.T) {
	m := newTestModule(patientDef())
	created := mustCreate(t, m, map[string]any{"name": "Jane Doe", "dob": "1990-05-01"})

	_, err := m.Update(context.Background(), created.ID, map[string]any{"gender": "X", "name": "J"})
	var verr *schema.ValidationError
	if !errors.As(err, &verr) || len(verr.Errors) != 2 {
		t.Fatalf("expected two violations, got %v", err)
	}
	got, err := m.Get(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Fields["gender"] != "O" || got.Fields["name"] != "Jane Doe" {
		t.Errorf("record was modified: %v", got.Fields)
	}
}

func TestDelete_MissingIDSucceeds(t *testing.T) {
	m := newTestModule(patientDef())
	mustCreate(t, m, map[string]any{"name": "Jane Doe", "dob": "1990-05-01"})

	if err := m.Delete(context.Background(), "missing"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if n := mustCount(t, m); n != 1 {
		t.Errorf("expected count 1, got %d", n)
	}
}

func TestDelete_RemovesRecord(t *testing.T) {
	m := newTestModule(patientDef())
	r := mustCreate(t, m, map[string]any{"name": "Jane Doe", "dob": "1990-05-01"})

	if err := m.Delete(context.Background(), r.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := m.Get(context.Background(), r.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestSearch_ByReference(t *testing.T) {
	m := newTestModule(appointmentDef())
	base := map[string]any{"providerId": "dr-1", "start": "2024-05-01T09:00:00.000Z", "end": "2024-05-01T09:30:00.000Z"}
	with := func(patient string) map[string]any {
		raw := map[string]any{"patientId": patient}
		for k, v := range base {
			raw[k] = v
		}
		return raw
	}
	a := mustCreate(t, m, with("p-1"))
	mustCreate(t, m, with("p-2"))
	c := mustCreate(t, m, with("p-1"))

	got, err := m.Search(context.Background(), url.Values{"patientId": {"p-1"}})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 2 || got[0].ID != a.ID || got[1].ID != c.ID {
		t.Errorf("expected records %s and %s, got %v", a.ID, c.ID, got)
	}

	all, err := m.Search(context.Background(), url.Values{"unknown": {"x"}, "status": {""}})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("expected full collection without recognized params, got %d", len(all))
	}
}

func TestSearch_TermAcrossFieldsAndBool(t *testing.T) {
	m := newTestModule(providerDef())
	mustCreate(t, m, map[string]any{"name": "Dr House", "specialty": "Diagnostics"})
	mustCreate(t, m, map[string]any{"name": "Dr Grey", "specialty": "Surgery", "active": false})
	mustCreate(t, m, map[string]any{"name": "Dr Diaz", "specialty": "Cardiology"})

	tests := []struct {
		query url.Values
		want  int
	}{
		{url.Values{"term": {"SURG"}}, 1},
		{url.Values{"term": {"dia"}}, 2},
		{url.Values{"active": {"true"}}, 2},
		{url.Values{"active": {"false"}}, 1},
		{url.Values{"active": {"yes"}}, 3},
		{url.Values{"term": {"dr"}, "active": {"false"}}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.query.Encode(), func(t *testing.T) {
			got, err := m.Search(context.Background(), tt.query)
			if err != nil {
				t.Fatalf("search: %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("expected %d results, got %d", tt.want, len(got))
			}
		})
	}
}

func TestCreateGet_RoundTrip(t *testing.T) {
	m := newTestModule(appointmentDef())
	created := mustCreate(t, m, map[string]any{
		"patientId": "p-1", "providerId": "dr-1",
		"start": "2024-05-01T09:00:00.000Z", "end": "2024-05-01T07:30:00.000Z",
	})

	got, err := m.Get(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ID != created.ID || !got.CreatedAt.Equal(created.CreatedAt) || !got.UpdatedAt.Equal(created.UpdatedAt) {
		t.Errorf("identity mismatch: %+v vs %+v", got, created)
	}
	if !reflect.DeepEqual(got.Fields, created.Fields) {
		t.Errorf("fields mismatch\n got %v\nwant %v", got.Fields, created.Fields)
	}
	end, _ := got.Fields["end"].(time.Time)
	if !end.Equal(time.Date(2024, 5, 1, 7, 30, 0, 0, time.UTC)) {
		t.Errorf("expected end normalized to UTC, got %v", got.Fields["end"])
	}
}

func TestCreate_EndBeforeStartAccepted(t *testing.T) {
	m := newTestModule(appointmentDef())
	r := mustCreate(t, m, map[string]any{
		"patientId": "p-1", "providerId": "dr-1",
		"start": "2024-05-01T10:00:00.000Z", "end": "2024-05-01T09:00:00.000Z",
	})
	if r.Fields["status"] != "scheduled" {
		t.Errorf("expected default status scheduled, got %v", r.Fields["status"])
	}
}

func TestTransition_ForcesStatus(t *testing.T) {
	def := appointmentDef()
	m := newTestModule(def)
	r := mustCreate(t, m, map[string]any{
		"patientId": "p-1", "providerId": "dr-1",
		"start": "2024-05-01T10:00:00.000Z", "end": "2024-05-01T10:30:00.000Z", "status": "completed",
	})

	cancel, ok := def.Transition("cancel")
	if !ok {
		t.Fatal("expected cancel transition")
	}
	got, err := m.Transition(context.Background(), r.ID, cancel.Set)
	if err != nil {
		t.Fatalf("transition: %v", err)
	}
	if got.Fields["status"] != "cancelled" {
		t.Errorf("expected cancelled, got %v", got.Fields["status"])
	}

	if _, err := m.Transition(context.Background(), "missing", cancel.Set); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestPlaceholders_IgnoreStore(t *testing.T) {
	m := NewModule(patientDef(), store.Unavailable{})
	ctx := context.Background()

	if h := m.History(ctx, "anything"); len(h) != 0 || h == nil {
		t.Errorf("expected empty history, got %v", h)
	}
	if r := m.Related(ctx, "anything"); len(r) != 0 || r == nil {
		t.Errorf("expected empty related, got %v", r)
	}
	if ack := m.AddNote(ctx, "anything", map[string]any{"text": "hi"}); ack["status"] != "note added" {
		t.Errorf("unexpected ack %v", ack)
	}
}

func TestModule_PropagatesUnavailable(t *testing.T) {
	m := NewModule(patientDef(), store.Unavailable{})
	if _, err := m.List(context.Background()); !errors.Is(err, store.ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}
