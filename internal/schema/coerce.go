package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/deppfellow/meta-dispatcher/internal/payload"
	"github.com/deppfellow/meta-dispatcher/internal/validation"
)

// binder collects field-level coercion failures while a request is bound.
type binder struct {
	p      payload.Payload
	errors []validation.FieldError
}

func (b *binder) fail(field string, format string, args ...any) {
	b.errors = append(b.errors, validation.FieldError{
		Field: field,
		Error: fmt.Sprintf(format, args...),
	})
}

// text accepts strings and JSON numbers. Absent and null give nil.
func (b *binder) text(field string) *string {
	s, err := toText(b.p[field])
	if err != nil {
		b.fail(field, "%v", err)
		return nil
	}
	return s
}

// integer accepts integers, integral JSON numbers and base-10 integer strings.
func (b *binder) integer(field string) *int {
	switch v := b.p[field].(type) {
	case nil:
		return nil

	case json.Number:
		if i, err := v.Int64(); err == nil {
			n := int(i)
			return &n
		}
		// float64(math.MaxInt) rounds up, so the upper bound is exclusive
		if f, err := v.Float64(); err == nil && f == math.Trunc(f) &&
			f >= math.MinInt && f < -float64(math.MinInt) {
			n := int(f)
			return &n
		}
		b.fail(field, "must be an integer, got %s", v)

	case string:
		i, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			b.fail(field, "must be an integer, got %q", v)
			return nil
		}
		return &i

	case int:
		return &v

	default:
		b.fail(field, "must be an integer, got %s", describe(v))
	}

	return nil
}

// file accepts an upload or a text value used as the file content.
func (b *binder) file(field string) *payload.File {
	v := b.p[field]
	if f, ok := v.(*payload.File); ok {
		return f
	}

	s, err := toText(v)
	if err != nil {
		b.fail(field, "must be a file or text, got %s", describe(v))
		return nil
	}
	if s == nil {
		return nil
	}

	return &payload.File{
		Filename: field,
		Content:  []byte(*s),
	}
}

// object accepts a JSON object only. Strings are never parsed as JSON.
func (b *binder) object(field string) map[string]any {
	switch v := b.p[field].(type) {
	case nil:
		return nil
	case map[string]any:
		return v
	default:
		b.fail(field, "must be an object, got %s", describe(v))
		return nil
	}
}

func toText(v any) (*string, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case string:
		return &val, nil
	case json.Number:
		s := val.String()
		return &s, nil
	default:
		return nil, fmt.Errorf("must be text, got %s", describe(v))
	}
}

func describe(v any) string {
	switch v.(type) {
	case bool:
		return "a boolean"
	case map[string]any:
		return "an object"
	case []any:
		return "an array"
	case *payload.File:
		return "a file"
	case string:
		return "text"
	case json.Number:
		return "a number"
	default:
		return fmt.Sprintf("%T", v)
	}
}
