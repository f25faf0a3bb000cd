package payload

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func multipartBody(t *testing.T, fields map[string]string, files map[string]string) (string, []byte) {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for name, value := range fields {
		require.NoError(t, w.WriteField(name, value))
	}
	for name, content := range files {
		fw, err := w.CreateFormFile(name, name+".png")
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	return w.FormDataContentType(), buf.Bytes()
}

func TestDecode_Multipart(t *testing.T) {
	contentType, body := multipartBody(t,
		map[string]string{"content_type": "type1", "content_name": "name1"},
		map[string]string{"file": "\x89PNG"},
	)

	p, source, err := Decode(contentType, body)
	require.NoError(t, err)

	assert.Equal(t, SourceForm, source)
	assert.Equal(t, "type1", p["content_type"])
	assert.Equal(t, "name1", p["content_name"])

	file, ok := p["file"].(*File)
	require.True(t, ok)
	assert.Equal(t, "file.png", file.Filename)
	assert.Equal(t, "application/octet-stream", file.ContentType)
	assert.Equal(t, []byte("\x89PNG"), file.Content)
	assert.True(t, p.HasFiles())
}

func TestDecode_MultipartSniffedDespiteJSONContentType(t *testing.T) {
	_, body := multipartBody(t, map[string]string{"content_type": "type1"}, nil)

	p, source, err := Decode("application/json", body)
	require.NoError(t, err)

	assert.Equal(t, SourceForm, source)
	assert.Equal(t, "type1", p["content_type"])
}

func TestDecode_MultipartSniffedWithoutContentType(t *testing.T) {
	_, body := multipartBody(t, map[string]string{"url": "http://test.com"}, nil)

	p, source, err := Decode("", body)
	require.NoError(t, err)

	assert.Equal(t, SourceForm, source)
	assert.Equal(t, "http://test.com", p["url"])
}

func TestDecode_URLEncoded(t *testing.T) {
	form := url.Values{}
	form.Set("content_type", "type1")
	form.Set("content_name", "name1")
	form.Set("face_restore", "1")
	form.Add("url", "http://first.com")
	form.Add("url", "http://test.com")

	p, source, err := Decode("application/x-www-form-urlencoded", []byte(form.Encode()))
	require.NoError(t, err)

	assert.Equal(t, SourceForm, source)
	assert.Equal(t, "1", p["face_restore"])
	// last value wins
	assert.Equal(t, "http://test.com", p["url"])
	assert.False(t, p.HasFiles())
}

func TestDecode_JSON(t *testing.T) {
	p, source, err := Decode("application/json", []byte(`{"data": {"prompt": "cat", "steps": 20}}`))
	require.NoError(t, err)

	assert.Equal(t, SourceJSON, source)
	data, ok := p["data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "cat", data["prompt"])
	assert.Equal(t, json.Number("20"), data["steps"])
}

func TestDecode_JSONLabelledAsMultipart(t *testing.T) {
	p, source, err := Decode("multipart/form-data; boundary=xyz", []byte(`{"content_type": "a", "content_name": "b"}`))
	require.NoError(t, err)

	assert.Equal(t, SourceJSON, source)
	assert.Equal(t, "a", p["content_type"])
}

func TestDecode_JSONWithoutContentType(t *testing.T) {
	_, source, err := Decode("", []byte(`{"data": {}}`))
	require.NoError(t, err)
	assert.Equal(t, SourceJSON, source)
}

func TestDecode_Undecodable(t *testing.T) {
	bodies := map[string][]byte{
		"garbage":     []byte("this is not json"),
		"truncated":   []byte(`{"data": `),
		"empty":       {},
		"json array":  []byte(`[{"data": {}}]`),
		"json scalar": []byte(`"data"`),
		"json null":   []byte(`null`),
	}

	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			_, _, err := Decode("application/json", body)
			assert.ErrorIs(t, err, ErrUndecodable)
		})
	}
}

func TestDecode_EmptyURLEncodedIsAnEmptyForm(t *testing.T) {
	p, source, err := Decode("application/x-www-form-urlencoded", nil)
	require.NoError(t, err)

	assert.Equal(t, SourceForm, source)
	assert.Empty(t, p)
}

func TestDecodeForm_NotForm(t *testing.T) {
	_, err := DecodeForm("application/json", []byte(`{"a": 1}`))
	assert.ErrorIs(t, err, ErrNotForm)

	_, err = DecodeForm("text/plain", []byte("a=1"))
	assert.ErrorIs(t, err, ErrNotForm)
}

func TestDecodeForm_BrokenMultipart(t *testing.T) {
	body := []byte("--abc\r\nContent-Disposition: form-data; name=\"a\"\r\n\r\nvalue")

	_, err := DecodeForm("multipart/form-data; boundary=abc", body)
	assert.ErrorIs(t, err, ErrNotForm)
}

func TestSniffBoundary(t *testing.T) {
	boundary, ok := sniffBoundary([]byte("--abc123\r\nContent-Disposition: form-data"))
	assert.True(t, ok)
	assert.Equal(t, "abc123", boundary)

	_, ok = sniffBoundary([]byte(`{"a": 1}`))
	assert.False(t, ok)

	_, ok = sniffBoundary([]byte("--\r\n"))
	assert.False(t, ok)

	_, ok = sniffBoundary([]byte("--no-newline"))
	assert.False(t, ok)
}

func TestPayload_Keys(t *testing.T) {
	p := Payload{"b": 1, "a": 2, "c": nil}
	assert.Equal(t, []string{"a", "b", "c"}, p.Keys())
}
