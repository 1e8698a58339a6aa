package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"

	"products-api/internal/schema"
)

// MaxBodyBytes bounds request bodies and multipart form memory
const MaxBodyBytes = 1 << 20

var ErrInvalidBody = errors.New("invalid request body")

// DecodeDocument reads a JSON object, URL-encoded form or multipart form body.
// An empty body yields an empty document.
func DecodeDocument(w http.ResponseWriter, r *http.Request) (schema.Document, error) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/x-www-form-urlencoded":
		if err := r.ParseForm(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidBody, err)
		}
		return formDocument(r.PostForm), nil

	case "multipart/form-data":
		if err := r.ParseMultipartForm(MaxBodyBytes); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidBody, err)
		}
		return formDocument(r.MultipartForm.Value), nil
	}

	doc := schema.Document{}
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return schema.Document{}, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidBody, err)
	}

	// The object must be the whole body
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: unexpected data after JSON object", ErrInvalidBody)
	}
	return doc, nil
}

func formDocument(values map[string][]string) schema.Document {
	doc := make(schema.Document, len(values))
	for key, vals := range values {
		if len(vals) > 0 {
			doc[key] = vals[0]
		}
	}
	return doc
}
