// Package jsonc decodes JSON-with-comments (kibana.jsonc, tsconfig.json).
package jsonc

import (
	"encoding/json"

	"github.com/tailscale/hujson"
)

// Unmarshal standardizes data to plain JSON, then decodes into v.
func Unmarshal(data []byte, v interface{}) error {
	std, err := Standardize(data)
	if err != nil {
		return err
	}
	return json.Unmarshal(std, v)
}

// Standardize removes comments and trailing commas. Offsets are preserved
// since hujson replaces them with whitespace.
func Standardize(data []byte) ([]byte, error) {
	return hujson.Standardize(append([]byte(nil), data...))
}
