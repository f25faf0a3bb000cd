package payload

import "errors"

var (
	// ErrNotForm is returned when a body cannot be read as a form.
	ErrNotForm = errors.New("body is not form data")

	// ErrNotJSONObject is returned when a body is not a JSON object.
	ErrNotJSONObject = errors.New("body is not a JSON object")

	// ErrUndecodable is returned by Decode when both decoders fail.
	ErrUndecodable = errors.New("body is neither form data nor a JSON object")
)
