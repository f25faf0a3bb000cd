package payload

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/url"

	"github.com/deppfellow/meta-dispatcher/internal/lib/jsoncodec"
)

const (
	mimeMultipartForm  = "multipart/form-data"
	mimeURLEncodedForm = "application/x-www-form-urlencoded"

	// RFC 2046 caps a multipart boundary at 70 characters.
	maxBoundaryLength = 70
)

// Decode reads body as a form and, failing that, as a JSON object.
//
// The order is fixed and independent of contentType: a JSON body labelled
// multipart/form-data still decodes as JSON, and a multipart body labelled
// application/json still decodes as a form.
func Decode(contentType string, body []byte) (Payload, Source, error) {
	p, formErr := DecodeForm(contentType, body)
	if formErr == nil {
		return p, SourceForm, nil
	}

	p, jsonErr := DecodeJSON(body)
	if jsonErr == nil {
		return p, SourceJSON, nil
	}

	return nil, "", fmt.Errorf("%w (form: %v; json: %v)", ErrUndecodable, formErr, jsonErr)
}

// DecodeForm decodes body as multipart/form-data or as a urlencoded form.
//
// Multipart is recognised either from a declared boundary or by sniffing a
// leading "--boundary" line. A urlencoded body has no signature of its own,
// so it is only accepted when declared.
func DecodeForm(contentType string, body []byte) (Payload, error) {
	// The header is advisory; a malformed one just yields no media type.
	mediaType, params, _ := mime.ParseMediaType(contentType)

	declared := params["boundary"]
	if mediaType == mimeMultipartForm && declared != "" {
		if p, err := decodeMultipart(body, declared); err == nil {
			return p, nil
		}
	}

	if sniffed, ok := sniffBoundary(body); ok && sniffed != declared {
		return decodeMultipart(body, sniffed)
	}

	if mediaType == mimeURLEncodedForm {
		return decodeURLEncoded(body)
	}

	return nil, ErrNotForm
}

// DecodeJSON decodes body as a JSON object. Arrays, scalars and null are
// rejected.
func DecodeJSON(body []byte) (Payload, error) {
	var value any
	if err := jsoncodec.Unmarshal(body, &value); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotJSONObject, err)
	}

	object, ok := value.(map[string]any)
	if !ok {
		return nil, ErrNotJSONObject
	}

	return Payload(object), nil
}

func decodeMultipart(body []byte, boundary string) (Payload, error) {
	reader := multipart.NewReader(bytes.NewReader(body), boundary)
	p := Payload{}

	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			return p, nil
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNotForm, err)
		}

		name := part.FormName()
		if name == "" {
			part.Close()
			continue
		}

		data, err := io.ReadAll(part)
		part.Close()
		if err != nil {
			return nil, fmt.Errorf("%w: reading part %q: %v", ErrNotForm, name, err)
		}

		// Repeated names: the last part wins.
		if filename := part.FileName(); filename != "" {
			p[name] = &File{
				Filename:    filename,
				ContentType: part.Header.Get("Content-Type"),
				Content:     data,
			}
		} else {
			p[name] = string(data)
		}
	}
}

func decodeURLEncoded(body []byte) (Payload, error) {
	values, err := url.ParseQuery(string(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotForm, err)
	}

	p := make(Payload, len(values))
	for name, vs := range values {
		p[name] = vs[len(vs)-1]
	}

	return p, nil
}

// sniffBoundary extracts the boundary from a leading "--boundary" line.
func sniffBoundary(body []byte) (string, bool) {
	if !bytes.HasPrefix(body, []byte("--")) {
		return "", false
	}

	end := bytes.IndexByte(body, '\n')
	if end < 0 {
		return "", false
	}

	boundary := string(bytes.TrimRight(body[2:end], " \t\r"))
	if boundary == "" || len(boundary) > maxBoundaryLength {
		return "", false
	}

	for _, r := range boundary {
		if r < 0x20 || r > 0x7e {
			return "", false
		}
	}

	return boundary, true
}
