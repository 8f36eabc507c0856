package mongostore

import (
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ehr/records/internal/platform/store"
)

const (
	keyID        = "_id"
	keyCreatedAt = "createdAt"
	keyUpdatedAt = "updatedAt"
	// written by ODM-based clients sharing the same database
	keyVersion = "__v"
)

func toDocument(r *store.Record) bson.M {
	doc := make(bson.M, len(r.Fields)+3)
	for k, v := range r.Fields {
		doc[k] = v
	}
	doc[keyID] = r.ID
	doc[keyCreatedAt] = r.CreatedAt
	doc[keyUpdatedAt] = r.UpdatedAt
	return doc
}

func toRecord(doc bson.M) *store.Record {
	r := &store.Record{Fields: make(map[string]any, len(doc))}
	for k, v := range doc {
		switch k {
		case keyID:
			r.ID = idString(v)
		case keyCreatedAt:
			r.CreatedAt = toTime(v)
		case keyUpdatedAt:
			r.UpdatedAt = toTime(v)
		case keyVersion:
		default:
			r.Fields[k] = fromBSON(v)
		}
	}
	return r
}

func idString(v any) string {
	switch id := v.(type) {
	case string:
		return id
	case primitive.ObjectID:
		return id.Hex()
	default:
		return fmt.Sprint(v)
	}
}

func toTime(v any) time.Time {
	switch t := v.(type) {
	case primitive.DateTime:
		return t.Time().UTC()
	case time.Time:
		return t.UTC()
	}
	return time.Time{}
}

// fromBSON converts driver-specific decoded values to the plain Go types the
// rest of the service works with.
func fromBSON(v any) any {
	switch x := v.(type) {
	case primitive.DateTime:
		return x.Time().UTC()
	case primitive.ObjectID:
		return x.Hex()
	case int32:
		return int64(x)
	case primitive.A:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = fromBSON(e)
		}
		return out
	case bson.M:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = fromBSON(e)
		}
		return out
	case bson.D:
		out := make(map[string]any, len(x))
		for _, e := range x {
			out[e.Key] = fromBSON(e.Value)
		}
		return out
	}
	return v
}

// buildFilter translates a store filter into a query document. Clauses are
// combined with $and, conditions within a clause with $or.
func buildFilter(f store.Filter) bson.M {
	and := make(bson.A, 0, len(f))
	for _, clause := range f {
		if len(clause) == 0 {
			continue
		}
		or := make(bson.A, 0, len(clause))
		for _, cond := range clause {
			or = append(or, condition(cond))
		}
		if len(or) == 1 {
			and = append(and, or[0])
			continue
		}
		and = append(and, bson.M{"$or": or})
	}
	switch len(and) {
	case 0:
		return bson.M{}
	case 1:
		return and[0].(bson.M)
	}
	return bson.M{"$and": and}
}

func condition(cond store.Condition) bson.M {
	if cond.Op == store.OpContains {
		return bson.M{cond.Field: primitive.Regex{
			Pattern: regexp.QuoteMeta(fmt.Sprint(cond.Value)),
			Options: "i",
		}}
	}
	return bson.M{cond.Field: cond.Value}
}
