package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// APIError is a non-2xx response. Fields holds per-field validation messages keyed by field
// name; Detail holds the backend's "detail" message when present.
type APIError struct {
	Status int
	Body   []byte
	Fields map[string][]string
	Detail string

	// order keeps field names in response order so Message is stable.
	order []string
}

func (e *APIError) Error() string {
	return e.Message()
}

// Message joins every field message with a single space, falling back to the detail and
// then to a generic status line.
func (e *APIError) Message() string {
	if len(e.order) > 0 {
		var parts []string
		for _, k := range e.order {
			parts = append(parts, e.Fields[k]...)
		}
		if s := strings.TrimSpace(strings.Join(parts, " ")); s != "" {
			return s
		}
	}
	if e.Detail != "" {
		return e.Detail
	}
	return fmt.Sprintf("request failed with status %d", e.Status)
}

func IsNotFound(err error) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.Status == http.StatusNotFound
}

func IsValidation(err error) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.Status == http.StatusBadRequest && len(ae.Fields) > 0
}

func newAPIError(status int, body []byte) *APIError {
	e := &APIError{Status: status, Body: body}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return e
	}
	switch tok {
	case json.Delim('{'):
	case json.Delim('['):
		// A bare list of messages (e.g. raised ValidationError without a field).
		var msgs []string
		for dec.More() {
			var v any
			if err := dec.Decode(&v); err != nil {
				return e
			}
			msgs = append(msgs, flatten(v)...)
		}
		if len(msgs) > 0 {
			e.Fields = map[string][]string{"non_field_errors": msgs}
			e.order = []string{"non_field_errors"}
		}
		return e
	default:
		return e
	}
	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return e
		}
		key, _ := kt.(string)
		var v any
		if err := dec.Decode(&v); err != nil {
			return e
		}
		if key == "detail" {
			if s, ok := v.(string); ok {
				e.Detail = s
				continue
			}
		}
		msgs := flatten(v)
		if len(msgs) == 0 {
			continue
		}
		if e.Fields == nil {
			e.Fields = map[string][]string{}
		}
		if _, seen := e.Fields[key]; !seen {
			e.order = append(e.order, key)
		}
		e.Fields[key] = append(e.Fields[key], msgs...)
	}
	return e
}

// flatten turns a field value (string, list of strings, nested list) into messages.
func flatten(v any) []string {
	switch x := v.(type) {
	case nil:
		return nil
	case string:
		return []string{x}
	case []any:
		var out []string
		for _, y := range x {
			out = append(out, flatten(y)...)
		}
		return out
	case map[string]any:
		b, _ := json.Marshal(x)
		return []string{string(b)}
	default:
		return []string{fmt.Sprint(x)}
	}
}
