package client

import "encoding/json"

// The provider's "task finished" output is not stable across task types or
// model families: the same logical field arrives as a bare URL string in one
// family and as {"url": "..."} in another, and rig/animate results use the
// generic "model" field. Extraction is total — a malformed payload yields ""
// rather than an error, so one bad response cannot wedge the poll loop.

// ExtractModelURL normalizes a task output payload into a model URL, trying
// known shapes in priority order. Returns "" when no shape matches; the
// caller treats that as "not actually done yet", not as a parse failure.
func ExtractModelURL(output json.RawMessage) string {
	if len(output) == 0 {
		return ""
	}

	var fields struct {
		PBRModel  json.RawMessage `json:"pbr_model"`
		Model     json.RawMessage `json:"model"`
		BaseModel json.RawMessage `json:"base_model"`
	}
	if err := json.Unmarshal(output, &fields); err != nil {
		return ""
	}

	for _, raw := range []json.RawMessage{fields.PBRModel, fields.Model, fields.BaseModel} {
		if url := urlFrom(raw); url != "" {
			return url
		}
	}
	return ""
}

// urlFrom accepts either a bare URL string or an object with a nested "url".
func urlFrom(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var direct string
	if err := json.Unmarshal(raw, &direct); err == nil {
		return direct
	}

	var nested struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(raw, &nested); err == nil {
		return nested.URL
	}
	return ""
}
