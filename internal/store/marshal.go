package store

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// marshalBody encodes a record as the JSON object stored in the body column.
func marshalBody(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal body: %w", err)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		return "", fmt.Errorf("marshal body: record must encode as a JSON object, got %.20s", data)
	}
	return string(data), nil
}

// mergePatch shallow-merges patch over a stored body. A nil value removes
// the key; the id key is immutable and ignored.
func mergePatch(body json.RawMessage, patch map[string]any) (string, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(body, &doc); err != nil {
		return "", fmt.Errorf("unmarshal body: %w", err)
	}
	for k, v := range patch {
		if k == "id" {
			continue
		}
		if v == nil {
			delete(doc, k)
			continue
		}
		raw, err := json.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("marshal patch field %q: %w", k, err)
		}
		doc[k] = raw
	}
	return marshalBody(doc)
}

// bodyID extracts the id field from an encoded record.
func bodyID(body json.RawMessage) (string, error) {
	var head struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &head); err != nil {
		return "", fmt.Errorf("unmarshal body: %w", err)
	}
	if head.ID == "" {
		return "", fmt.Errorf("record has no id")
	}
	return head.ID, nil
}
