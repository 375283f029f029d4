package core

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"
)

// Schema is bumped whenever the encoded shape of a Namespace changes.
const Schema uint16 = 1

var ErrSchemaMismatch = errors.New("core: program schema mismatch")

type envelope struct {
	Schema  uint16     `msgpack:"schema"`
	Program *Namespace `msgpack:"program"`
}

// Encode writes ns as msgpack.
func Encode(w io.Writer, ns *Namespace) error {
	enc := msgpack.NewEncoder(w)
	if err := enc.Encode(&envelope{Schema: Schema, Program: ns}); err != nil {
		return fmt.Errorf("core: encode: %w", err)
	}
	return nil
}

// Decode reads a program written by Encode.
func Decode(r io.Reader) (*Namespace, error) {
	var env envelope
	if err := msgpack.NewDecoder(r).Decode(&env); err != nil {
		return nil, fmt.Errorf("core: decode: %w", err)
	}
	if env.Schema != Schema {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrSchemaMismatch, env.Schema, Schema)
	}
	if env.Program == nil {
		return nil, errors.New("core: decode: empty program")
	}
	return env.Program, nil
}

// Marshal is Encode into a fresh buffer.
func Marshal(ns *Namespace) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, ns); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal is Decode from a byte slice.
func Unmarshal(data []byte) (*Namespace, error) {
	return Decode(bytes.NewReader(data))
}
