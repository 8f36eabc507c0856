package pgstore

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ehr/records/internal/platform/store"
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// buildWhere renders f as " AND (...)" conditions over the data column.
// Placeholders start at $next. Field names are bound as parameters, never
// interpolated.
func buildWhere(f store.Filter, next int) (string, []any) {
	var (
		sb   strings.Builder
		args []any
	)
	for _, clause := range f {
		if len(clause) == 0 {
			continue
		}
		parts := make([]string, 0, len(clause))
		for _, cond := range clause {
			part, condArgs := renderCondition(cond, next)
			parts = append(parts, part)
			args = append(args, condArgs...)
			next += len(condArgs)
		}
		sb.WriteString(" AND (")
		sb.WriteString(strings.Join(parts, " OR "))
		sb.WriteString(")")
	}
	return sb.String(), args
}

func renderCondition(cond store.Condition, n int) (string, []any) {
	if cond.Field == "_id" {
		return fmt.Sprintf("id = $%d", n), []any{fmt.Sprint(cond.Value)}
	}
	switch cond.Op {
	case store.OpContains:
		pattern := "%" + likeEscaper.Replace(fmt.Sprint(cond.Value)) + "%"
		return fmt.Sprintf("data->>$%d::text ILIKE $%d", n, n+1), []any{cond.Field, pattern}
	default:
		// jsonb equality compares numbers numerically and keeps strings and
		// booleans distinct.
		raw, err := json.Marshal(cond.Value)
		if err != nil {
			raw = []byte("null")
		}
		return fmt.Sprintf("data->$%d::text = $%d::jsonb", n, n+1), []any{cond.Field, string(raw)}
	}
}
