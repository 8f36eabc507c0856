package store

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"
)

// Op is a comparison operator.
type Op int

const (
	// OpEq matches values exactly.
	OpEq Op = iota
	// OpContains matches string values containing the operand,
	// case-insensitively.
	OpContains
)

// Condition compares one field against a value.
type Condition struct {
	Field string
	Op    Op
	Value any
}

// Eq builds an exact-match condition.
func Eq(field string, value any) Condition {
	return Condition{Field: field, Op: OpEq, Value: value}
}

// Contains builds a case-insensitive substring condition.
func Contains(field, substr string) Condition {
	return Condition{Field: field, Op: OpContains, Value: substr}
}

// Clause is satisfied when any of its conditions matches.
type Clause []Condition

// Filter is satisfied when every clause is satisfied. The empty filter
// matches everything.
type Filter []Clause

// Where returns a filter with one single-condition clause per argument.
func Where(conds ...Condition) Filter {
	f := make(Filter, 0, len(conds))
	for _, c := range conds {
		f = append(f, Clause{c})
	}
	return f
}

// Matches evaluates the filter against a record in memory.
func (f Filter) Matches(r *Record) bool {
	for _, clause := range f {
		if !clause.matches(r) {
			return false
		}
	}
	return true
}

func (c Clause) matches(r *Record) bool {
	for _, cond := range c {
		if cond.matches(r) {
			return true
		}
	}
	return false
}

func (c Condition) matches(r *Record) bool {
	v, ok := r.Fields[c.Field]
	if c.Field == "_id" {
		v, ok = r.ID, true
	}
	if !ok {
		return false
	}
	switch c.Op {
	case OpContains:
		s, ok := v.(string)
		sub, ok2 := c.Value.(string)
		return ok && ok2 && strings.Contains(strings.ToLower(s), strings.ToLower(sub))
	default:
		return valuesEqual(v, c.Value)
	}
}

func valuesEqual(a, b any) bool {
	if fa, ok := number(a); ok {
		fb, ok := number(b)
		return ok && fa == fb
	}
	if ta, ok := a.(time.Time); ok {
		tb, ok := b.(time.Time)
		return ok && ta.Equal(tb)
	}
	return reflect.DeepEqual(a, b)
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// SumBy groups a collection by groupField and sums sumField. Collections
// implementing Aggregator compute it natively; otherwise every record is
// loaded and folded in memory.
func SumBy(ctx context.Context, c Collection, groupField, sumField string) ([]GroupTotal, error) {
	if agg, ok := c.(Aggregator); ok {
		return agg.SumBy(ctx, groupField, sumField)
	}
	records, err := c.Find(ctx, nil)
	if err != nil {
		return nil, err
	}
	return foldSums(records, groupField, sumField), nil
}

func foldSums(records []*Record, groupField, sumField string) []GroupTotal {
	totals := make(map[string]*GroupTotal)
	for _, r := range records {
		key := r.Fields[groupField]
		k := fmt.Sprint(key)
		gt, ok := totals[k]
		if !ok {
			gt = &GroupTotal{Key: key}
			totals[k] = gt
		}
		if n, ok := number(r.Fields[sumField]); ok {
			gt.Total += n
		}
	}

	keys := make([]string, 0, len(totals))
	for k := range totals {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]GroupTotal, 0, len(keys))
	for _, k := range keys {
		out = append(out, *totals[k])
	}
	return out
}
