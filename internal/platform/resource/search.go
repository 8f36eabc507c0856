package resource

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/ehr/records/internal/platform/schema"
	"github.com/ehr/records/internal/platform/store"
)

// BuildFilter turns query parameters into a store filter. Parameters the
// definition does not recognize are ignored, as are empty values and values
// that cannot be converted to the parameter's kind.
func (d *Definition) BuildFilter(q url.Values) store.Filter {
	f := store.Filter{}
	for _, p := range d.SearchParams {
		raw := strings.TrimSpace(q.Get(p.Name))
		if raw == "" {
			continue
		}
		value, ok := p.convert(raw)
		if !ok {
			continue
		}
		clause := make(store.Clause, 0, len(p.Fields))
		for _, field := range p.Fields {
			if p.Match == Substring {
				clause = append(clause, store.Contains(field, raw))
				continue
			}
			clause = append(clause, store.Eq(field, value))
		}
		f = append(f, clause)
	}
	return f
}

func (p SearchParam) convert(raw string) (any, bool) {
	switch p.Kind {
	case schema.Bool:
		b, err := strconv.ParseBool(raw)
		return b, err == nil
	case schema.Int:
		n, err := strconv.ParseInt(raw, 10, 64)
		return n, err == nil
	case schema.Number:
		n, err := strconv.ParseFloat(raw, 64)
		return n, err == nil
	}
	return raw, true
}
