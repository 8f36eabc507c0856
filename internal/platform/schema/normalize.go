package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// Date and datetime fields accept the same two forms: a calendar date or a
// millisecond timestamp with an optional Z. Timestamps are always UTC.
var (
	datePattern     = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	dateTimePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}\.\d{3}Z?$`)
)

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02T15:04:05.000"
)

// Bounds of the float64 values that convert to int64 without overflow.
const (
	minIntFloat = -(1 << 63)
	maxIntFloat = 1 << 63
)

func (f Field) violation(constraint, format string, args ...any) *FieldError {
	return &FieldError{
		Field:      f.Name,
		Constraint: constraint,
		Message:    fmt.Sprintf("%q ", f.Name) + fmt.Sprintf(format, args...),
	}
}

// normalize checks one present value against the field definition and
// returns it in its canonical Go type.
func (f Field) normalize(raw any) (any, *FieldError) {
	switch f.Kind {
	case String, Ref:
		s, ok := raw.(string)
		if !ok {
			return nil, f.violation("string", "must be a string")
		}
		if s == "" && !f.AllowEmpty {
			return nil, f.violation("empty", "is not allowed to be empty")
		}
		if f.MinLength > 0 && utf8.RuneCountInString(s) < f.MinLength {
			return nil, f.violation("min", "length must be at least %d characters long", f.MinLength)
		}
		return s, nil

	case Enum:
		s, ok := raw.(string)
		if !ok || !f.allows(s) {
			return nil, f.violation("enum", "must be one of [%s]", strings.Join(f.Enum, ", "))
		}
		return s, nil

	case Date:
		s, ok := raw.(string)
		if !ok {
			return nil, f.violation("date", "must be a date in YYYY-MM-DD format")
		}
		t, err := parseDateTime(s)
		if err != nil {
			return nil, f.violation("date", "must be a date in YYYY-MM-DD format")
		}
		return t, nil

	case DateTime:
		s, ok := raw.(string)
		if !ok {
			return nil, f.violation("datetime", "must be an ISO 8601 date")
		}
		t, err := parseDateTime(s)
		if err != nil {
			return nil, f.violation("datetime", "must be an ISO 8601 date")
		}
		return t, nil

	case Int:
		n, numeric, integral := toInt(raw, true)
		if !numeric {
			return nil, f.violation("number", "must be a number")
		}
		if !integral {
			return nil, f.violation("integer", "must be an integer")
		}
		if fe := f.checkRange(float64(n)); fe != nil {
			return nil, fe
		}
		return n, nil

	case Number:
		n, ok := toFloat(raw, true)
		if !ok || math.IsNaN(n) || math.IsInf(n, 0) {
			return nil, f.violation("number", "must be a number")
		}
		if fe := f.checkRange(n); fe != nil {
			return nil, fe
		}
		return n, nil

	case Bool:
		switch v := raw.(type) {
		case bool:
			return v, nil
		case string:
			switch strings.ToLower(v) {
			case "true":
				return true, nil
			case "false":
				return false, nil
			}
		}
		return nil, f.violation("boolean", "must be a boolean")
	}

	return nil, f.violation("kind", "has unsupported kind %s", f.Kind)
}

func (f Field) allows(s string) bool {
	for _, e := range f.Enum {
		if e == s {
			return true
		}
	}
	return false
}

func (f Field) checkRange(n float64) *FieldError {
	if f.Positive && n <= 0 {
		return f.violation("positive", "must be a positive number")
	}
	if f.NonNegative && n < 0 {
		return f.violation("min", "must be greater than or equal to 0")
	}
	return nil
}

// parseDateTime accepts YYYY-MM-DD or YYYY-MM-DDTHH:MM:SS.mmm[Z]. An
// impossible calendar value is an error like a pattern mismatch.
func parseDateTime(s string) (time.Time, error) {
	switch {
	case datePattern.MatchString(s):
		return time.ParseInLocation(dateLayout, s, time.UTC)
	case dateTimePattern.MatchString(s):
		return time.ParseInLocation(dateTimeLayout, strings.TrimSuffix(s, "Z"), time.UTC)
	}
	return time.Time{}, fmt.Errorf("date %q does not match YYYY-MM-DD or YYYY-MM-DDTHH:MM:SS.mmm[Z]", s)
}

// toInt reads an integer without going through float64 when the input
// carries its digits (json.Number, strings). numeric reports whether v is a
// number at all, integral whether it is a whole number that fits in int64.
func toInt(v any, fromString bool) (n int64, numeric, integral bool) {
	switch x := v.(type) {
	case int:
		return int64(x), true, true
	case int32:
		return int64(x), true, true
	case int64:
		return x, true, true
	case float32:
		return floatToInt(float64(x))
	case float64:
		return floatToInt(x)
	case json.Number:
		return numberToInt(string(x))
	case string:
		if !fromString {
			return 0, false, false
		}
		return numberToInt(strings.TrimSpace(x))
	}
	return 0, false, false
}

func numberToInt(s string) (int64, bool, bool) {
	if s == "" {
		return 0, false, false
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, true, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0, false, false
	}
	return floatToInt(f)
}

func floatToInt(f float64) (int64, bool, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, true, false
	}
	if f != math.Trunc(f) || f < minIntFloat || f >= maxIntFloat {
		return 0, true, false
	}
	return int64(f), true, true
}

// toFloat reads a numeric value. Numeric strings are accepted when
// fromString is set.
func toFloat(v any, fromString bool) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		if !fromString {
			return 0, false
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil && strings.TrimSpace(n) != ""
	}
	return 0, false
}

// Hydrate converts field values read back from a store into the schema's Go
// types: dates become time.Time, integers int64, numbers float64. Values it
// cannot convert are left untouched.
func (s *Schema) Hydrate(fields map[string]any) map[string]any {
	if fields == nil {
		return map[string]any{}
	}
	for name, v := range fields {
		f, ok := s.Field(name)
		if !ok || v == nil {
			continue
		}
		switch f.Kind {
		case Date, DateTime:
			switch t := v.(type) {
			case time.Time:
				fields[name] = t.UTC()
			case string:
				if parsed, err := time.Parse(time.RFC3339Nano, t); err == nil {
					fields[name] = parsed.UTC()
				} else if parsed, err := parseDateTime(t); err == nil {
					fields[name] = parsed
				}
			}
		case Int:
			if n, _, ok := toInt(v, false); ok {
				fields[name] = n
			}
		case Number:
			if n, ok := toFloat(v, false); ok {
				fields[name] = n
			}
		}
	}
	return fields
}
