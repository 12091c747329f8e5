// Package jsonutil wraps github.com/go-json-experiment/json behind the
// small API the report engine needs. Report documents must serialize
// byte-identically across runs, so the marshal helpers used for report
// payloads always sort map keys.
package jsonutil

import (
	"io"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
)

// Unmarshal parses the JSON-encoded data and stores the result in v.
func Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

// Marshal returns the compact JSON encoding of v.
func Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

// MarshalIndent returns the JSON encoding of v indented with indent.
func MarshalIndent(v any, indent string) ([]byte, error) {
	return json.Marshal(v, jsontext.WithIndent(indent))
}

// MarshalDeterministic returns the JSON encoding of v with map keys
// sorted. Rendering the same report context twice must yield identical
// bytes, so every report payload goes through this.
func MarshalDeterministic(v any) ([]byte, error) {
	return json.Marshal(v, json.Deterministic(true))
}

// MarshalDeterministicIndent combines sorted map keys with indentation,
// for report documents meant to be read by humans or diffed.
func MarshalDeterministicIndent(v any, indent string) ([]byte, error) {
	return json.Marshal(v, json.Deterministic(true), jsontext.WithIndent(indent))
}

// Valid reports whether data is a valid JSON encoding.
func Valid(data []byte) bool {
	return jsontext.Value(data).IsValid()
}

// Encoder is a streaming JSON encoder with the encoding/json.Encoder
// surface the HTTP layer expects.
type Encoder struct {
	w      io.Writer
	indent string
}

// NewEncoder creates an encoder that writes to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// Encode writes the JSON encoding of v followed by a newline.
func (e *Encoder) Encode(v any) error {
	var err error
	if e.indent != "" {
		err = json.MarshalWrite(e.w, v, jsontext.WithIndent(e.indent))
	} else {
		err = json.MarshalWrite(e.w, v)
	}
	if err != nil {
		return err
	}
	_, err = e.w.Write([]byte{'\n'})
	return err
}

// SetIndent formats each subsequent encoded value with the given indent.
func (e *Encoder) SetIndent(indent string) {
	e.indent = indent
}

// Decoder is a streaming JSON decoder for reading stored snapshots and
// request bodies.
type Decoder struct {
	r io.Reader
}

// NewDecoder creates a decoder that reads from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: r}
}

// Decode reads the next JSON value from the stream into v.
func (d *Decoder) Decode(v any) error {
	return json.UnmarshalRead(d.r, v)
}
