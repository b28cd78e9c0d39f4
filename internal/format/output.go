package format

import (
	"encoding/json"
	"fmt"
	"io"
)

// Envelope is the shape every CLI command prints.
type Envelope struct {
	Data any `json:"data"`
	Meta any `json:"meta,omitempty"`
}

// Write writes v in the requested format: json (default), edn or table.
func Write(w io.Writer, v any, format string, pretty bool) error {
	switch format {
	case "", "json":
		return WriteJSON(w, v, pretty)
	case "edn":
		return WriteEDN(w, v, pretty)
	case "table":
		return WriteTable(w, v)
	default:
		return fmt.Errorf("unknown format: %s (expected json|edn|table)", format)
	}
}

// WriteJSON writes one JSON document followed by a newline.
func WriteJSON(w io.Writer, v any, pretty bool) error {
	var (
		b   []byte
		err error
	)
	if pretty {
		b, err = json.MarshalIndent(v, "", "  ")
	} else {
		b, err = json.Marshal(v)
	}
	if err != nil {
		return err
	}
	b = append(b, '\n')
	_, err = w.Write(b)
	return err
}
