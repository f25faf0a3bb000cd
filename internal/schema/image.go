package schema

import (
	"github.com/deppfellow/meta-dispatcher/internal/backend"
	"github.com/deppfellow/meta-dispatcher/internal/payload"
	"github.com/deppfellow/meta-dispatcher/internal/validation"
)

// ImageRequest is the payload accepted by the image-to-image service.
// Data is forwarded as-is; an empty object is valid.
type ImageRequest struct {
	Data map[string]any `form:"data" validate:"required"`
}

var _ validation.Validatable = (*ImageRequest)(nil)

func (r *ImageRequest) Validate() error {
	return validation.Struct(r)
}

// ImageSchema matches payloads carrying a `data` object.
type ImageSchema struct{}

func (ImageSchema) Kind() backend.Kind { return backend.KindImage }

func (ImageSchema) Name() string { return "ManhuaData" }

func (s ImageSchema) Check(p payload.Payload) error {
	_, err := BindImage(p)
	return err
}

// BindImage coerces p into an ImageRequest.
func BindImage(p payload.Payload) (*ImageRequest, error) {
	b := &binder{p: p}

	req := &ImageRequest{
		Data: b.object("data"),
	}

	if len(b.errors) > 0 {
		return nil, mismatch(ImageSchema{}.Name(), nil, b.errors)
	}

	if err := req.Validate(); err != nil {
		return nil, mismatch(ImageSchema{}.Name(), err, nil)
	}

	return req, nil
}
