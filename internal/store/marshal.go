package store

import (
	"encoding/json"
	"fmt"

	"github.com/bamford/weave-io/internal/ir"
)

// marshalFragments converts fragments to canonical JSON TEXT for storage.
func marshalFragments(fragments []string) (string, error) {
	if len(fragments) == 0 {
		return "[]", nil
	}
	data, err := ir.MarshalCanonical(fragments)
	if err != nil {
		return "", fmt.Errorf("marshal fragments: %w", err)
	}
	return string(data), nil
}

// marshalParams converts params to canonical JSON TEXT for storage.
// Uses RFC 8785 canonical JSON so equal parameter sets store identically.
func marshalParams(params ir.IRObject) (string, error) {
	if params == nil {
		params = ir.IRObject{}
	}
	data, err := ir.MarshalCanonical(params)
	if err != nil {
		return "", fmt.Errorf("marshal params: %w", err)
	}
	return string(data), nil
}

func unmarshalFragments(data string) ([]string, error) {
	fragments := []string{}
	if data == "" {
		return fragments, nil
	}
	if err := json.Unmarshal([]byte(data), &fragments); err != nil {
		return nil, fmt.Errorf("unmarshal fragments: %w", err)
	}
	return fragments, nil
}

// unmarshalParams parses canonical JSON TEXT to IRObject.
// Integers and floats stay distinct: 3 decodes as IRInt, 3.5 as IRFloat.
func unmarshalParams(data string) (ir.IRObject, error) {
	if data == "" || data == "{}" {
		return ir.IRObject{}, nil
	}
	obj, err := ir.UnmarshalIRObject([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("unmarshal params: %w", err)
	}
	return obj, nil
}
