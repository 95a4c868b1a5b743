package ir

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Encode returns the msgpack form of s, used for caching extraction
// results. Field names follow the JSON tags.
func (s *Schema) Encode() ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(s); err != nil {
		return nil, fmt.Errorf("ir: encode: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode decodes a schema produced by Encode.
func Decode(data []byte) (*Schema, error) {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.SetCustomStructTag("json")
	s := &Schema{}
	if err := dec.Decode(s); err != nil {
		return nil, fmt.Errorf("ir: decode: %w", err)
	}
	return s, nil
}

// MarshalIndent returns the indented JSON form of s.
func (s *Schema) MarshalIndent() ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}
