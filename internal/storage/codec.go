package storage

import (
	"bytes"
	"encoding/gob"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Codec turns store state into a blob and back
type Codec interface {
	Name() string
	Encode(state *StoreState) ([]byte, error)
	Decode(data []byte) (*StoreState, error)
}

// NewCodec returns the codec registered under name
func NewCodec(name string) (Codec, error) {
	switch name {
	case "json":
		return JSONCodec{}, nil
	case "yaml":
		return YAMLCodec{}, nil
	case "gob":
		return GobCodec{}, nil
	default:
		return nil, fmt.Errorf("unknown store format %q", name)
	}
}

// JSONCodec encodes state as indented JSON
type JSONCodec struct{}

func (JSONCodec) Name() string { return "json" }

func (JSONCodec) Encode(state *StoreState) ([]byte, error) {
	return json.MarshalIndent(state, "", "  ")
}

func (JSONCodec) Decode(data []byte) (*StoreState, error) {
	var state StoreState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// YAMLCodec encodes state as YAML
type YAMLCodec struct{}

func (YAMLCodec) Name() string { return "yaml" }

func (YAMLCodec) Encode(state *StoreState) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(state); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (YAMLCodec) Decode(data []byte) (*StoreState, error) {
	var state StoreState
	if err := yaml.Unmarshal(data, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// GobCodec encodes state in the compact gob binary format
type GobCodec struct{}

func (GobCodec) Name() string { return "gob" }

func (GobCodec) Encode(state *StoreState) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(state); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (GobCodec) Decode(data []byte) (*StoreState, error) {
	var state StoreState
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&state); err != nil {
		return nil, err
	}
	return &state, nil
}
