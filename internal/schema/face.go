package schema

import (
	"github.com/deppfellow/meta-dispatcher/internal/backend"
	"github.com/deppfellow/meta-dispatcher/internal/payload"
	"github.com/deppfellow/meta-dispatcher/internal/validation"
)

// FaceRequest is the payload accepted by the face service.
type FaceRequest struct {
	ContentType *string       `form:"content_type" validate:"required"`
	ContentName *string       `form:"content_name" validate:"required"`
	FaceRestore *int          `form:"face_restore"`
	File        *payload.File `form:"file"`
	URL         *string       `form:"url"`
}

var _ validation.Validatable = (*FaceRequest)(nil)

func (r *FaceRequest) Validate() error {
	return validation.Struct(r)
}

// FaceSchema matches payloads carrying content_type and content_name.
type FaceSchema struct{}

func (FaceSchema) Kind() backend.Kind { return backend.KindFace }

func (FaceSchema) Name() string { return "FaceData" }

func (s FaceSchema) Check(p payload.Payload) error {
	_, err := BindFace(p)
	return err
}

// BindFace coerces p into a FaceRequest. Unknown fields are ignored.
func BindFace(p payload.Payload) (*FaceRequest, error) {
	b := &binder{p: p}

	req := &FaceRequest{
		ContentType: b.text("content_type"),
		ContentName: b.text("content_name"),
		FaceRestore: b.integer("face_restore"),
		File:        b.file("file"),
		URL:         b.text("url"),
	}

	if len(b.errors) > 0 {
		return nil, mismatch(FaceSchema{}.Name(), nil, b.errors)
	}

	if err := req.Validate(); err != nil {
		return nil, mismatch(FaceSchema{}.Name(), err, nil)
	}

	return req, nil
}
