// Package render turns API results into ordered records and prints them as
// tables or JSON.
package render

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Record is a flat view of one API resource: its top-level JSON fields in
// the order the resource serialises them.
type Record struct {
	keys   []string
	values map[string]json.RawMessage
}

// NewRecord returns an empty record.
func NewRecord() *Record {
	return &Record{values: map[string]json.RawMessage{}}
}

// FromValue marshals v and keeps its top-level fields in order. v must
// serialise to a JSON object.
func FromValue(v any) (*Record, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal record: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("decode record: expected a JSON object, got %s", data)
	}

	r := NewRecord()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("decode record: %w", err)
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("decode record: unexpected key %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("decode record field %s: %w", key, err)
		}
		r.setRaw(key, raw)
	}
	return r, nil
}

// FromSlice converts every item with FromValue.
func FromSlice[T any](items []T) ([]*Record, error) {
	out := make([]*Record, 0, len(items))
	for _, it := range items {
		r, err := FromValue(it)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// Keys returns the field names in order.
func (r *Record) Keys() []string {
	return append([]string(nil), r.keys...)
}

// Set stores v under k, appending k to the field order when new.
func (r *Record) Set(k string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal field %s: %w", k, err)
	}
	r.setRaw(k, raw)
	return nil
}

func (r *Record) setRaw(k string, raw json.RawMessage) {
	if _, ok := r.values[k]; !ok {
		r.keys = append(r.keys, k)
	}
	r.values[k] = raw
}

// Field returns field k for display: strings as-is, null or absent as "",
// nested objects and arrays as compact JSON.
func (r *Record) Field(k string) string {
	raw, ok := r.values[k]
	if !ok {
		return ""
	}
	return displayValue(raw)
}

func displayValue(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return ""
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err == nil {
			return s
		}
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, trimmed); err != nil {
		return string(trimmed)
	}
	return buf.String()
}

// MarshalJSON writes the fields in record order.
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(r.values[k])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
