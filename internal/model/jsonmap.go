package model

import (
	"encoding/json"
	"sort"
)

// The animation task-id and URL maps are denormalized into TEXT columns.
// Encoding and decoding happen only at the storage boundary; a corrupt
// column decodes to an empty map instead of failing the request.

// DecodeStringMap parses a JSON-encoded string map column.
func DecodeStringMap(raw string) map[string]string {
	if raw == "" {
		return map[string]string{}
	}
	var m map[string]string
	if err := json.Unmarshal([]byte(raw), &m); err != nil || m == nil {
		return map[string]string{}
	}
	return m
}

// EncodeStringMap serializes a string map for a TEXT column. An empty map
// encodes to the empty string so unset columns stay unset.
func EncodeStringMap(m map[string]string) string {
	if len(m) == 0 {
		return ""
	}
	data, err := json.Marshal(m)
	if err != nil {
		return ""
	}
	return string(data)
}

// DecodeStringSlice parses a JSON-encoded string array column.
func DecodeStringSlice(raw string) []string {
	if raw == "" {
		return nil
	}
	var s []string
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return nil
	}
	return s
}

// EncodeStringSlice serializes a string array for a TEXT column.
func EncodeStringSlice(s []string) string {
	if len(s) == 0 {
		return ""
	}
	data, err := json.Marshal(s)
	if err != nil {
		return ""
	}
	return string(data)
}

// SortedKeys returns the map's keys in stable order.
func SortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
