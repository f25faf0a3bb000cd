package backend

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"

	"github.com/deppfellow/meta-dispatcher/internal/lib/jsoncodec"
	"github.com/deppfellow/meta-dispatcher/internal/payload"
)

const (
	mimeJSON           = "application/json"
	mimeURLEncodedForm = "application/x-www-form-urlencoded"
)

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// encode renders p as a request body and returns it with its Content-Type.
func encode(enc Encoding, p payload.Payload) ([]byte, string, error) {
	switch enc {
	case EncodingJSON:
		body, err := jsoncodec.Marshal(p)
		if err != nil {
			return nil, "", err
		}
		return body, mimeJSON, nil

	case EncodingForm:
		if p.HasFiles() {
			return encodeMultipart(p)
		}
		return encodeURLEncoded(p)

	default:
		return nil, "", fmt.Errorf("unknown encoding %q", enc)
	}
}

func encodeURLEncoded(p payload.Payload) ([]byte, string, error) {
	values := url.Values{}

	for _, key := range p.Keys() {
		fieldValues, err := formValues(p[key])
		if err != nil {
			return nil, "", fmt.Errorf("field %q: %w", key, err)
		}
		values[key] = fieldValues
	}

	return []byte(values.Encode()), mimeURLEncodedForm, nil
}

func encodeMultipart(p payload.Payload) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, key := range p.Keys() {
		if file, ok := p[key].(*payload.File); ok {
			if err := writeFilePart(w, key, file); err != nil {
				return nil, "", fmt.Errorf("field %q: %w", key, err)
			}
			continue
		}

		fieldValues, err := formValues(p[key])
		if err != nil {
			return nil, "", fmt.Errorf("field %q: %w", key, err)
		}
		for _, v := range fieldValues {
			if err := w.WriteField(key, v); err != nil {
				return nil, "", err
			}
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}

	return buf.Bytes(), w.FormDataContentType(), nil
}

func writeFilePart(w *multipart.Writer, field string, file *payload.File) error {
	contentType := file.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		quoteEscaper.Replace(field), quoteEscaper.Replace(file.Filename)))
	h.Set("Content-Type", contentType)

	part, err := w.CreatePart(h)
	if err != nil {
		return err
	}

	_, err = part.Write(file.Content)
	return err
}

// formValues flattens one payload value into form field values.
//
//	"a"          -> ["a"]
//	1.5          -> ["1.5"]
//	true         -> ["true"]
//	null         -> [""]
//	["a", 2]     -> ["a", "2"]
//	{"k": "v"}   -> [`{"k":"v"}`]
func formValues(v any) ([]string, error) {
	if list, ok := v.([]any); ok {
		out := make([]string, 0, len(list))
		for _, item := range list {
			s, err := formScalar(item)
			if err != nil {
				return nil, err
			}
			out = append(out, s)
		}
		return out, nil
	}

	s, err := formScalar(v)
	if err != nil {
		return nil, err
	}
	return []string{s}, nil
}

func formScalar(v any) (string, error) {
	switch val := v.(type) {
	case nil:
		return "", nil
	case string:
		return val, nil
	case json.Number:
		return val.String(), nil
	case bool:
		return strconv.FormatBool(val), nil
	case int:
		return strconv.Itoa(val), nil
	case int64:
		return strconv.FormatInt(val, 10), nil
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), nil
	case map[string]any, []any:
		b, err := jsoncodec.Marshal(val)
		if err != nil {
			return "", err
		}
		return string(b), nil
	default:
		return "", fmt.Errorf("unsupported form value of type %T", v)
	}
}
