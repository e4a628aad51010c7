package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strconv"

	dErrors "dsnap/pkg/domain-errors"
)

// Document is a decoded JSON object. Numbers are json.Number so values
// round-trip through the store without float drift.
type Document map[string]any

// DecodeDocument reads exactly one JSON object from r.
func DecodeDocument(r io.Reader) (Document, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, dErrors.New(dErrors.CodeBadRequest, "request body is required")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid request body")
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, dErrors.New(dErrors.CodeBadRequest, "request body must contain a single JSON object")
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, dErrors.New(dErrors.CodeBadRequest, "request body must be a JSON object")
	}
	return Document(obj), nil
}

// ParseDocument decodes stored JSON bytes.
func ParseDocument(data []byte) (Document, error) {
	return DecodeDocument(bytes.NewReader(data))
}

// Clone returns a deep copy.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	return cloneValue(map[string]any(d)).(map[string]any)
}

// Lookup walks object keys and array indexes ("household", "0", "ssn").
// Missing keys, out-of-range indexes and walks through scalars report false.
func (d Document) Lookup(path ...string) (any, bool) {
	var current any = map[string]any(d)
	for _, step := range path {
		switch node := current.(type) {
		case map[string]any:
			next, ok := node[step]
			if !ok {
				return nil, false
			}
			current = next
		case Document:
			next, ok := node[step]
			if !ok {
				return nil, false
			}
			current = next
		case []any:
			idx, err := strconv.Atoi(step)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, false
			}
			current = node[idx]
		default:
			return nil, false
		}
	}
	return current, true
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = cloneValue(item)
		}
		return out
	case Document:
		return cloneValue(map[string]any(val))
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	default:
		// strings, json.Number, numbers, bools and nil are immutable values
		return val
	}
}
