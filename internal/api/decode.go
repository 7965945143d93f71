package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"

	"github.com/rzpsarthak13/armory/internal/core"
)

// DefaultMaxBodyBytes caps request bodies when no limit is configured.
const DefaultMaxBodyBytes = 1 << 20

var (
	errUnsupportedMediaType = errors.New("unsupported media type")
	errBodyTooLarge         = errors.New("request body too large")
)

// decodeBody reads a JSON, urlencoded or multipart body into a field map.
// An empty body decodes to an empty map. Form values arrive as strings and
// are coerced later against the resource's column types.
func decodeBody(w http.ResponseWriter, r *http.Request, maxBytes int64) (map[string]interface{}, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBodyBytes
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	mediaType := "application/json"
	if ct := r.Header.Get("Content-Type"); ct != "" {
		parsed, _, err := mime.ParseMediaType(ct)
		if err != nil {
			return nil, &core.MalformedRequestError{Reason: "invalid Content-Type header"}
		}
		mediaType = parsed
	}

	switch mediaType {
	case "application/json":
		return decodeJSON(r.Body)
	case "application/x-www-form-urlencoded":
		if err := r.ParseForm(); err != nil {
			return nil, formError(err)
		}
		return formFields(r.PostForm), nil
	case "multipart/form-data":
		if err := r.ParseMultipartForm(maxBytes); err != nil {
			return nil, formError(err)
		}
		return formFields(r.MultipartForm.Value), nil
	default:
		return nil, errUnsupportedMediaType
	}
}

func decodeJSON(body io.Reader) (map[string]interface{}, error) {
	dec := json.NewDecoder(body)
	dec.UseNumber()

	var raw interface{}
	if err := dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return map[string]interface{}{}, nil
		}
		return nil, formError(err)
	}

	fields, ok := raw.(map[string]interface{})
	if !ok {
		return nil, &core.MalformedRequestError{Reason: "request body must be a JSON object"}
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, &core.MalformedRequestError{Reason: "request body must contain a single JSON object"}
	}
	return fields, nil
}

// formFields flattens form values, keeping the first value of repeated keys.
func formFields(values map[string][]string) map[string]interface{} {
	fields := make(map[string]interface{}, len(values))
	for key, vals := range values {
		if len(vals) > 0 {
			fields[key] = vals[0]
		}
	}
	return fields
}

func formError(err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return errBodyTooLarge
	}
	return &core.MalformedRequestError{Reason: fmt.Sprintf("malformed request body: %v", err)}
}
