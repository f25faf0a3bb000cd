package backend

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/deppfellow/meta-dispatcher/internal/config"
	"github.com/deppfellow/meta-dispatcher/internal/payload"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, enc Encoding, handler http.HandlerFunc, opts ...ClientOption) *HTTPClient {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	desc := Descriptor{Kind: KindFace, Name: "test service", URL: srv.URL, Encoding: enc}
	return NewClient(desc, NewHTTPClient(opts...))
}

func TestSend_URLEncodedForm(t *testing.T) {
	var got http.Header
	var form map[string][]string

	c := newTestClient(t, EncodingForm, func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		assert.NoError(t, r.ParseForm())
		form = r.PostForm
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"message": "Success"}`))
	})

	resp, err := c.Send(t.Context(), payload.Payload{
		"content_type": "type1",
		"content_name": "name1",
		"face_restore": json.Number("1"),
		"enabled":      true,
		"missing":      nil,
		"tags":         []any{"a", json.Number("2")},
		"extra":        map[string]any{"k": "v"},
	})
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.Status)
	assert.JSONEq(t, `{"message": "Success"}`, string(resp.Body))
	assert.Equal(t, "application/x-www-form-urlencoded", got.Get("Content-Type"))

	assert.Equal(t, []string{"type1"}, form["content_type"])
	assert.Equal(t, []string{"1"}, form["face_restore"])
	assert.Equal(t, []string{"true"}, form["enabled"])
	assert.Equal(t, []string{""}, form["missing"])
	assert.Equal(t, []string{"a", "2"}, form["tags"])
	assert.Equal(t, []string{`{"k":"v"}`}, form["extra"])
}

func TestSend_MultipartWhenFilePresent(t *testing.T) {
	var (
		fields   map[string][]string
		filename string
		content  []byte
	)

	c := newTestClient(t, EncodingForm, func(w http.ResponseWriter, r *http.Request) {
		if !assert.NoError(t, r.ParseMultipartForm(1<<20)) {
			return
		}
		fields = r.MultipartForm.Value

		f, hdr, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			return
		}
		defer f.Close()
		filename = hdr.Filename
		content, _ = io.ReadAll(f)

		_, _ = w.Write([]byte(`{"ok": true}`))
	})

	_, err := c.Send(t.Context(), payload.Payload{
		"content_type": "type1",
		"file":         &payload.File{Filename: "face.png", ContentType: "image/png", Content: []byte("\x89PNG")},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"type1"}, fields["content_type"])
	assert.Equal(t, "face.png", filename)
	assert.Equal(t, []byte("\x89PNG"), content)
}

func TestSend_JSON(t *testing.T) {
	var body map[string]any

	c := newTestClient(t, EncodingJSON, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_, _ = w.Write([]byte(`{"images": ["aGVsbG8="]}`))
	})

	resp, err := c.Send(t.Context(), payload.Payload{
		"data": map[string]any{"prompt": "cat", "steps": json.Number("20")},
	})
	require.NoError(t, err)

	assert.JSONEq(t, `{"images": ["aGVsbG8="]}`, string(resp.Body))
	assert.Equal(t, map[string]any{"data": map[string]any{"prompt": "cat", "steps": float64(20)}}, body)
}

func TestSend_StatusError(t *testing.T) {
	c := newTestClient(t, EncodingJSON, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error": "model still loading"}`))
	})

	_, err := c.Send(t.Context(), payload.Payload{"data": map[string]any{}})

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusServiceUnavailable, statusErr.Status)
	assert.Contains(t, string(statusErr.Body), "model still loading")
}

func TestSend_MalformedSuccessBody(t *testing.T) {
	for name, body := range map[string]string{
		"not json": "<html>ok</html>",
		"empty":    "",
	} {
		t.Run(name, func(t *testing.T) {
			c := newTestClient(t, EncodingJSON, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(body))
			})

			_, err := c.Send(t.Context(), payload.Payload{"data": map[string]any{}})

			assert.ErrorIs(t, err, ErrMalformedResponse)
			var statusErr *StatusError
			assert.False(t, errors.As(err, &statusErr))
		})
	}
}

func TestSend_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClient(Descriptor{Kind: KindImage, Name: "gone", URL: url, Encoding: EncodingJSON}, nil)

	_, err := c.Send(t.Context(), payload.Payload{"data": map[string]any{}})
	require.Error(t, err)

	var statusErr *StatusError
	assert.False(t, errors.As(err, &statusErr))
}

func TestSend_Timeout(t *testing.T) {
	c := newTestClient(t, EncodingJSON, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}, WithTimeout(50*time.Millisecond))

	start := time.Now()
	_, err := c.Send(t.Context(), payload.Payload{"data": map[string]any{}})

	require.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestNewClients_FollowsConfig(t *testing.T) {
	cfg := config.Default().Backends

	clients := NewClients(&cfg)
	require.Len(t, clients, 2)

	face := clients[KindFace].Descriptor()
	assert.Equal(t, "http://localhost:8001", face.URL)
	assert.Equal(t, EncodingForm, face.Encoding)

	image := clients[KindImage].Descriptor()
	assert.Equal(t, "http://localhost:5000/sdapi/v1/img2img", image.URL)
	assert.Equal(t, EncodingJSON, image.Encoding)
}

func TestDescriptors_Order(t *testing.T) {
	cfg := config.Default().Backends

	descs := Descriptors(&cfg)
	require.Len(t, descs, 2)
	assert.Equal(t, KindFace, descs[0].Kind)
	assert.Equal(t, KindImage, descs[1].Kind)
}
