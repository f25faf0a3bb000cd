// Package backend forwards a classified payload to one downstream service.
//
// Each downstream is described by a Descriptor built once from config. A
// Client performs exactly one outbound call per Send: no retries, no
// caching.
package backend

import (
	"context"
	"fmt"
	"net/http"

	"github.com/deppfellow/meta-dispatcher/internal/config"
	"github.com/deppfellow/meta-dispatcher/internal/payload"
)

// Kind identifies a downstream service.
type Kind string

const (
	KindFace  Kind = "face"
	KindImage Kind = "image"
)

// Encoding is how a payload is written into the outbound request body.
type Encoding string

const (
	// EncodingForm sends urlencoded fields, or multipart when the payload
	// carries an uploaded file.
	EncodingForm Encoding = "form"

	// EncodingJSON sends the payload as a JSON object.
	EncodingJSON Encoding = "json"
)

// Descriptor is the static description of a downstream service.
type Descriptor struct {
	Kind     Kind
	Name     string
	URL      string
	Encoding Encoding
}

// Response is a successful downstream reply. Body is the raw JSON returned
// by the service and is passed to the caller unchanged.
type Response struct {
	Status int
	Body   []byte
}

// Client sends a payload to a single downstream service.
type Client interface {
	Descriptor() Descriptor
	Send(ctx context.Context, p payload.Payload) (*Response, error)
}

// StatusError is returned when the downstream answered with a non-2xx
// status. Body is kept for logs only.
type StatusError struct {
	Status int
	Body   []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend responded with status %d (%s)", e.Status, http.StatusText(e.Status))
}

// Descriptors returns the downstream services in classification order.
func Descriptors(cfg *config.BackendsConfig) []Descriptor {
	return []Descriptor{
		{
			Kind:     KindFace,
			Name:     "face service",
			URL:      cfg.Face.URL,
			Encoding: EncodingForm,
		},
		{
			Kind:     KindImage,
			Name:     "image-to-image service",
			URL:      cfg.Image.URL,
			Encoding: EncodingJSON,
		},
	}
}

// NewClients builds one HTTPClient per configured descriptor, all sharing
// the same underlying *http.Client.
func NewClients(cfg *config.BackendsConfig, opts ...ClientOption) map[Kind]Client {
	opts = append([]ClientOption{WithTimeout(cfg.TimeoutDuration())}, opts...)
	httpClient := NewHTTPClient(opts...)

	clients := make(map[Kind]Client)
	for _, desc := range Descriptors(cfg) {
		clients[desc.Kind] = NewClient(desc, httpClient)
	}

	return clients
}
