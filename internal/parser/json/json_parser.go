// Package json turns streams of JSON objects into records.Record maps.
//
// Both input feeds of the pipeline arrive in this shape:
//
//   - song metadata files: one JSON object per file,
//   - activity log files: newline-delimited JSON objects (NDJSON).
//
// The decoder handles both uniformly: it reads consecutive top-level JSON
// objects from a stream until EOF. Non-object top-level values are rejected;
// a corrupt record in a file fails the whole file, matching the pipeline's
// fail-the-extraction policy for malformed input.
package json

import (
	"encoding/json"
	"fmt"
	"io"

	"starlake/pkg/records"
)

// Decoder wraps encoding/json.Decoder to provide a record-oriented API.
type Decoder struct {
	dec *json.Decoder
}

// NewDecoder constructs a Decoder from an io.Reader.
func NewDecoder(r io.Reader) *Decoder {
	d := json.NewDecoder(r)
	// UseNumber so typed projections decide how to map numeric values
	// (timestamps must stay exact int64 milliseconds).
	d.UseNumber()
	return &Decoder{dec: d}
}

// Next reads the next JSON object and converts it into a records.Record.
// EOF is returned when the stream is exhausted. A non-object top-level value
// is an error.
func (d *Decoder) Next() (records.Record, error) {
	var raw any
	if err := d.dec.Decode(&raw); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("json parser: decode: %w", err)
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("json parser: top-level value is %T, want object", raw)
	}
	return records.Record(m), nil
}

// DecodeAll reads every object from r and returns them as a slice. It is the
// per-file read used by the record sources: each input file becomes one
// batch of records.
func DecodeAll(r io.Reader) ([]records.Record, error) {
	d := NewDecoder(r)
	var out []records.Record
	for {
		rec, err := d.Next()
		if err != nil {
			if err == io.EOF {
				return out, nil
			}
			return nil, err
		}
		out = append(out, rec)
	}
}
