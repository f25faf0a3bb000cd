// Package schema decides which downstream service a payload belongs to.
//
// Each Schema binds a payload into a typed request and validates it.
// The Classifier walks an ordered list of schemas and picks the first one
// that accepts the payload.
package schema

import (
	"github.com/deppfellow/meta-dispatcher/internal/backend"
	"github.com/deppfellow/meta-dispatcher/internal/payload"
	"github.com/deppfellow/meta-dispatcher/internal/validation"
)

// Schema is the expected shape of the payload for one backend kind.
type Schema interface {
	Kind() backend.Kind
	Name() string

	// Check returns nil when p satisfies the schema, or a *MismatchError
	// describing the offending fields.
	Check(p payload.Payload) error
}

// Matches reports whether p satisfies s.
func Matches(s Schema, p payload.Payload) bool {
	return s.Check(p) == nil
}

// MismatchError lists why a payload does not satisfy a schema.
type MismatchError struct {
	Schema string
	Fields []validation.FieldError
}

func (e *MismatchError) Error() string {
	return e.Schema + ": " + validation.Summary(e.Fields)
}

func mismatch(schema string, err error, fields []validation.FieldError) error {
	if err != nil {
		fields = append(fields, validation.FieldErrors(err)...)
	}
	if len(fields) == 0 {
		return nil
	}

	return &MismatchError{
		Schema: schema,
		Fields: fields,
	}
}
