// Package payload decodes an inbound request body into a Payload.
//
// A body is always tried as a form first and as a JSON object second,
// whatever its declared Content-Type. The first decoding that succeeds wins.
package payload

import (
	"sort"
)

// Payload is the decoded request: field name to value.
//
// Values are one of string, json.Number, bool, nil, map[string]any, []any
// or *File.
type Payload map[string]any

// File is a binary upload taken from a multipart part that carried a
// filename.
type File struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Content     []byte `json:"content"`
}

// Source records which decoder produced a Payload.
type Source string

const (
	SourceForm Source = "form"
	SourceJSON Source = "json"
)

// Keys returns the field names in a stable order, for logging.
func (p Payload) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// HasFiles reports whether any value is an uploaded file.
func (p Payload) HasFiles() bool {
	for _, v := range p {
		if _, ok := v.(*File); ok {
			return true
		}
	}
	return false
}
