package model

import (
	"bytes"
	"encoding/json"
)

// Page is the paginated list envelope. Bare-array responses are normalized into it.
type Page[T any] struct {
	Results  []T     `json:"results"`
	Count    int     `json:"count"`
	Next     *string `json:"next,omitempty"`
	Previous *string `json:"previous,omitempty"`
}

// DecodePage accepts either a bare JSON array or a {results, count, next, previous} object.
func DecodePage[T any](raw []byte) (Page[T], error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '[' {
		var xs []T
		if err := json.Unmarshal(raw, &xs); err != nil {
			return Page[T]{}, err
		}
		if xs == nil {
			xs = []T{}
		}
		return Page[T]{Results: xs, Count: len(xs)}, nil
	}
	var p Page[T]
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return Page[T]{Results: []T{}}, nil
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return Page[T]{}, err
	}
	if p.Results == nil {
		p.Results = []T{}
	}
	return p, nil
}
