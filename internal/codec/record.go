package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Record is a flat, insertion-ordered set of fields. Scalar values are
// string, json.Number, bool or nil. Nested JSON objects and arrays are kept as
// json.RawMessage and passed through untouched.
type Record struct {
	fields []string
	values map[string]any
}

func NewRecord() *Record {
	return &Record{values: make(map[string]any)}
}

// RecordFromPairs builds a record from alternating key, value arguments.
func RecordFromPairs(kv ...any) *Record {
	r := NewRecord()
	for i := 0; i+1 < len(kv); i += 2 {
		r.Set(fmt.Sprint(kv[i]), kv[i+1])
	}
	return r
}

// Set adds or replaces a field. A new field goes last.
func (r *Record) Set(key string, value any) {
	if r.values == nil {
		r.values = make(map[string]any)
	}
	if _, found := r.values[key]; !found {
		r.fields = append(r.fields, key)
	}
	r.values[key] = value
}

func (r *Record) Get(key string) (any, bool) {
	v, found := r.values[key]
	return v, found
}

func (r *Record) Delete(key string) {
	if _, found := r.values[key]; !found {
		return
	}
	delete(r.values, key)
	for i, f := range r.fields {
		if f == key {
			r.fields = append(r.fields[:i:i], r.fields[i+1:]...)
			break
		}
	}
}

// Keys returns the field names in insertion order.
func (r *Record) Keys() []string {
	return append([]string(nil), r.fields...)
}

func (r *Record) Len() int {
	return len(r.fields)
}

func (r *Record) Clone() *Record {
	c := &Record{fields: r.Keys(), values: make(map[string]any, len(r.values))}
	for k, v := range r.values {
		c.values[k] = v
	}
	return c
}

// ToMap loses the field order.
func (r *Record) ToMap() map[string]any {
	m := make(map[string]any, len(r.values))
	for k, v := range r.values {
		m[k] = v
	}
	return m
}

func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range r.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := marshalValue(key)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		v, err := marshalValue(r.values[key])
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", key, err)
		}
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("expected a JSON object, got %v", tok)
	}

	fresh := NewRecord()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected object key %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		value, err := unmarshalValue(raw)
		if err != nil {
			return fmt.Errorf("field %q: %w", key, err)
		}
		fresh.Set(key, value)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}

	*r = *fresh
	return nil
}

func marshalValue(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func unmarshalValue(raw json.RawMessage) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
		return json.RawMessage(append([]byte(nil), trimmed...)), nil
	}
	// json.Number keeps integers above 2^53 exact.
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}
