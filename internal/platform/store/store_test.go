package store

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// fakeClock advances one second per reading.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

func newTestCollection() Collection {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	return NewMemory(WithClock(clock.Now)).Collection("things")
}

func TestMemory_InsertAssignsIdentity(t *testing.T) {
	c := newTestCollection()
	ctx := context.Background()

	a, err := c.Insert(ctx, map[string]any{"name": "a"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, _ := c.Insert(ctx, map[string]any{"name": "b"})

	if a.ID == "" || b.ID == "" || a.ID == b.ID {
		t.Errorf("expected distinct non-empty ids, got %q and %q", a.ID, b.ID)
	}
	if a.CreatedAt.IsZero() || !a.CreatedAt.Equal(a.UpdatedAt) {
		t.Errorf("expected createdAt == updatedAt on insert, got %v / %v", a.CreatedAt, a.UpdatedAt)
	}
}

func TestMemory_InsertCopiesInput(t *testing.T) {
	c := newTestCollection()
	ctx := context.Background()

	fields := map[string]any{"name": "a"}
	r, _ := c.Insert(ctx, fields)
	fields["name"] = "mutated"
	r.Fields["name"] = "also mutated"

	got, _ := c.FindByID(ctx, r.ID)
	if got.Fields["name"] != "a" {
		t.Errorf("expected stored value to be isolated from callers, got %v", got.Fields["name"])
	}
}

func TestMemory_FindByIDNotFound(t *testing.T) {
	c := newTestCollection()
	_, err := c.FindByID(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMemory_FindKeepsInsertionOrder(t *testing.T) {
	c := newTestCollection()
	ctx := context.Background()
	for _, n := range []string{"c", "a", "b"} {
		c.Insert(ctx, map[string]any{"name": n})
	}

	all, err := c.Find(ctx, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 records, got %d", len(all))
	}
	for i, n := range []string{"c", "a", "b"} {
		if all[i].Fields["name"] != n {
			t.Errorf("position %d: expected %s, got %v", i, n, all[i].Fields["name"])
		}
	}
}

func TestMemory_FindEmptyCollectionIsEmptySlice(t *testing.T) {
	c := newTestCollection()
	all, err := c.Find(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if all == nil || len(all) != 0 {
		t.Errorf("expected non-nil empty slice, got %#v", all)
	}
}

func TestMemory_UpdateMerges(t *testing.T) {
	c := newTestCollection()
	ctx := context.Background()
	r, _ := c.Insert(ctx, map[string]any{"name": "a", "status": "open"})

	updated, err := c.UpdateByID(ctx, r.ID, map[string]any{"status": "closed"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Fields["name"] != "a" || updated.Fields["status"] != "closed" {
		t.Errorf("unexpected fields after merge: %v", updated.Fields)
	}
	if !updated.UpdatedAt.After(r.UpdatedAt) {
		t.Errorf("expected updatedAt to advance, got %v then %v", r.UpdatedAt, updated.UpdatedAt)
	}
	if !updated.CreatedAt.Equal(r.CreatedAt) {
		t.Error("expected createdAt to be preserved")
	}
}

func TestMemory_UpdateMissing(t *testing.T) {
	c := newTestCollection()
	_, err := c.UpdateByID(context.Background(), "missing", map[string]any{"a": 1})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMemory_DeleteIsUnconditional(t *testing.T) {
	c := newTestCollection()
	ctx := context.Background()
	r, _ := c.Insert(ctx, map[string]any{"name": "a"})
	c.Insert(ctx, map[string]any{"name": "b"})

	if err := c.DeleteByID(ctx, "missing"); err != nil {
		t.Errorf("expected delete of missing id to succeed, got %v", err)
	}
	if err := c.DeleteByID(ctx, r.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	n, _ := c.Count(ctx, nil)
	if n != 1 {
		t.Errorf("expected 1 record after delete, got %d", n)
	}
	all, _ := c.Find(ctx, nil)
	if len(all) != 1 || all[0].Fields["name"] != "b" {
		t.Errorf("unexpected remaining records: %v", all)
	}
}

func TestFilter_Matches(t *testing.T) {
	r := &Record{ID: "r1", Fields: map[string]any{
		"name":      "Jane Doe",
		"patientId": "p-1",
		"active":    true,
		"quantity":  int64(3),
		"dob":       time.Date(1990, 5, 1, 0, 0, 0, 0, time.UTC),
	}}

	tests := []struct {
		name   string
		filter Filter
		want   bool
	}{
		{"empty", nil, true},
		{"eq string", Where(Eq("patientId", "p-1")), true},
		{"eq string mismatch", Where(Eq("patientId", "p-2")), false},
		{"eq bool", Where(Eq("active", true)), true},
		{"eq number across types", Where(Eq("quantity", 3.0)), true},
		{"eq time", Where(Eq("dob", time.Date(1990, 5, 1, 0, 0, 0, 0, time.UTC))), true},
		{"eq id", Where(Eq("_id", "r1")), true},
		{"contains case-insensitive", Where(Contains("name", "jane")), true},
		{"contains on non-string", Where(Contains("quantity", "3")), false},
		{"missing field", Where(Eq("status", "open")), false},
		{"or clause", Filter{{Contains("name", "zzz"), Eq("patientId", "p-1")}}, true},
		{"and of clauses", Where(Eq("patientId", "p-1"), Eq("active", false)), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Matches(r); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMemory_CountWithFilter(t *testing.T) {
	c := newTestCollection()
	ctx := context.Background()
	c.Insert(ctx, map[string]any{"patientId": "p-1"})
	c.Insert(ctx, map[string]any{"patientId": "p-1"})
	c.Insert(ctx, map[string]any{"patientId": "p-2"})

	n, err := c.Count(ctx, Where(Eq("patientId", "p-1")))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2, got %d", n)
	}
}

func TestSumBy(t *testing.T) {
	c := newTestCollection()
	ctx := context.Background()
	c.Insert(ctx, map[string]any{"status": "paid", "amount": 10.0})
	c.Insert(ctx, map[string]any{"status": "unpaid", "amount": 5.5})
	c.Insert(ctx, map[string]any{"status": "paid", "amount": 2.5})

	totals, err := SumBy(ctx, c, "status", "amount")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []GroupTotal{{Key: "paid", Total: 12.5}, {Key: "unpaid", Total: 5.5}}
	if len(totals) != len(want) {
		t.Fatalf("expected %d groups, got %v", len(want), totals)
	}
	for i := range want {
		if totals[i] != want[i] {
			t.Errorf("group %d: got %+v, want %+v", i, totals[i], want[i])
		}
	}
}

// findOnly hides the native aggregation of the memory collection.
type findOnly struct{ Collection }

func TestSumBy_FallsBackToFind(t *testing.T) {
	c := newTestCollection()
	ctx := context.Background()
	c.Insert(ctx, map[string]any{"status": "paid", "amount": int64(4)})

	totals, err := SumBy(ctx, findOnly{c}, "status", "amount")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(totals) != 1 || totals[0].Total != 4 {
		t.Errorf("unexpected totals %v", totals)
	}
}

func TestUnavailable(t *testing.T) {
	ctx := context.Background()
	s := Unavailable{}
	if err := s.Ping(ctx); !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable from Ping, got %v", err)
	}
	c := s.Collection("x")
	if _, err := c.Find(ctx, nil); !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable from Find, got %v", err)
	}
	if err := c.DeleteByID(ctx, "id"); !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable from DeleteByID, got %v", err)
	}
}

func TestInstrument_PassesThrough(t *testing.T) {
	s := Instrument(NewMemory(), zerolog.Nop())
	c := s.Collection("things")
	ctx := context.Background()

	r, err := c.Insert(ctx, map[string]any{"status": "paid", "amount": 3.0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := c.FindByID(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound through wrapper, got %v", err)
	}
	got, err := c.FindByID(ctx, r.ID)
	if err != nil || got.ID != r.ID {
		t.Errorf("expected to read back %s, got %v (%v)", r.ID, got, err)
	}
	totals, err := SumBy(ctx, c, "status", "amount")
	if err != nil || len(totals) != 1 || totals[0].Total != 3 {
		t.Errorf("unexpected totals %v (%v)", totals, err)
	}
}

func TestRecord_MarshalJSON(t *testing.T) {
	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	r := &Record{ID: "abc", Fields: map[string]any{"name": "Jane"}, CreatedAt: ts, UpdatedAt: ts}

	raw, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got["_id"] != "abc" || got["name"] != "Jane" {
		t.Errorf("unexpected JSON %s", raw)
	}
	if got["createdAt"] != "2024-01-02T03:04:05Z" || got["updatedAt"] != "2024-01-02T03:04:05Z" {
		t.Errorf("unexpected timestamps in %s", raw)
	}
}
