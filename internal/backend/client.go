package backend

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/deppfellow/meta-dispatcher/internal/lib/jsoncodec"
	"github.com/deppfellow/meta-dispatcher/internal/logger"
	"github.com/deppfellow/meta-dispatcher/internal/payload"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/pkg/errors"
)

// ErrMalformedResponse is returned when a 2xx reply does not carry JSON.
var ErrMalformedResponse = errors.New("backend returned a non-JSON body")

// ClientConfig holds the outbound HTTP client configuration.
type ClientConfig struct {
	Timeout             time.Duration
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration
	Transport           http.RoundTripper
}

// DefaultClientConfig returns the outbound defaults. Timeout matches the
// default backend timeout.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Timeout:             300 * time.Second,
		MaxIdleConns:        16,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     90 * time.Second,
	}
}

// ClientOption modifies ClientConfig.
type ClientOption func(*ClientConfig)

// WithTimeout bounds every outbound call, connection and body read included.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *ClientConfig) {
		c.Timeout = timeout
	}
}

// WithTransport replaces the default transport.
func WithTransport(transport http.RoundTripper) ClientOption {
	return func(c *ClientConfig) {
		c.Transport = transport
	}
}

// NewHTTPClient creates the shared outbound client.
//
// The transport is wrapped by New Relic so calls made inside a request
// transaction are recorded as external segments.
func NewHTTPClient(opts ...ClientOption) *http.Client {
	cfg := DefaultClientConfig()

	for _, opt := range opts {
		opt(&cfg)
	}

	transport := cfg.Transport
	if transport == nil {
		transport = &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        cfg.MaxIdleConns,
			MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost,
			IdleConnTimeout:     cfg.IdleConnTimeout,
		}
	}

	return &http.Client{
		Timeout:   cfg.Timeout,
		Transport: newrelic.NewRoundTripper(transport),
	}
}

// HTTPClient posts payloads to the URL of its descriptor.
type HTTPClient struct {
	desc   Descriptor
	client *http.Client
}

// NewClient returns a Client for desc. A nil httpClient gets the defaults.
func NewClient(desc Descriptor, httpClient *http.Client) *HTTPClient {
	if httpClient == nil {
		httpClient = NewHTTPClient()
	}

	return &HTTPClient{
		desc:   desc,
		client: httpClient,
	}
}

func (c *HTTPClient) Descriptor() Descriptor {
	return c.desc
}

// Send makes a single POST to the downstream service.
//
// A non-2xx reply yields *StatusError. Transport failures, timeouts and
// replies that are not JSON yield any other error.
func (c *HTTPClient) Send(ctx context.Context, p payload.Payload) (*Response, error) {
	log := logger.FromContext(ctx)

	body, contentType, err := encode(c.desc.Encoding, p)
	if err != nil {
		return nil, errors.Wrapf(err, "encode payload for %s", c.desc.Name)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.desc.URL, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrapf(err, "build request for %s", c.desc.Name)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	log.Debug().
		Str("backend", string(c.desc.Kind)).
		Str("url", c.desc.URL).
		Str("content_type", contentType).
		Int("body_bytes", len(body)).
		Msg("forwarding payload")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "call %s", c.desc.Name)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s response", c.desc.Name)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{
			Status: resp.StatusCode,
			Body:   respBody,
		}
	}

	if !jsoncodec.Valid(respBody) {
		return nil, errors.Wrapf(ErrMalformedResponse, "%s (status %d)", c.desc.Name, resp.StatusCode)
	}

	return &Response{
		Status: resp.StatusCode,
		Body:   respBody,
	}, nil
}
