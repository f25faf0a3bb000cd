package schema

import (
	"context"

	"github.com/deppfellow/meta-dispatcher/internal/backend"
	"github.com/deppfellow/meta-dispatcher/internal/logger"
	"github.com/deppfellow/meta-dispatcher/internal/payload"
)

// Classifier picks the backend for a payload.
//
// Schemas are tried in order and the first match wins, so a payload that
// satisfies several schemas always goes to the earliest one.
type Classifier struct {
	schemas []Schema
}

// NewClassifier returns a Classifier over schemas, in priority order.
func NewClassifier(schemas ...Schema) *Classifier {
	return &Classifier{schemas: schemas}
}

// NewDefaultClassifier tries the face schema before the image schema.
func NewDefaultClassifier() *Classifier {
	return NewClassifier(FaceSchema{}, ImageSchema{})
}

// Classify returns the kind of the first schema p satisfies.
//
// A schema that rejects p is logged at debug level and skipped; it is
// never reported to the caller as an error.
func (c *Classifier) Classify(ctx context.Context, p payload.Payload) (backend.Kind, bool) {
	log := logger.FromContext(ctx)

	for _, s := range c.schemas {
		err := s.Check(p)
		if err == nil {
			log.Debug().
				Str("schema", s.Name()).
				Str("backend", string(s.Kind())).
				Msg("payload matched schema")
			return s.Kind(), true
		}

		log.Debug().
			Str("schema", s.Name()).
			Strs("fields", p.Keys()).
			Str("reason", err.Error()).
			Msg("payload did not match schema")
	}

	return "", false
}
