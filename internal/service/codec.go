package service

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/catalog/internal/model"
)

func decode[T any](body json.RawMessage) (T, error) {
	var rec T
	if err := json.Unmarshal(body, &rec); err != nil {
		return rec, fmt.Errorf("decode record: %w", err)
	}
	return rec, nil
}

// decodeAll returns an empty slice (not nil) for no bodies.
func decodeAll[T any](bodies []json.RawMessage) ([]T, error) {
	out := make([]T, 0, len(bodies))
	for _, body := range bodies {
		rec, err := decode[T](body)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// toDoc encodes a record as its top-level JSON fields.
func toDoc(rec any) (map[string]json.RawMessage, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	return doc, nil
}

func fromDoc[T any](doc map[string]json.RawMessage) (T, error) {
	var rec T
	data, err := json.Marshal(doc)
	if err != nil {
		return rec, fmt.Errorf("decode record: %w", err)
	}
	return decode[T](data)
}

// setRef writes or removes the lastChild field of an encoded parent.
func setRef(doc map[string]json.RawMessage, ref *model.ChildRef) error {
	if ref == nil {
		delete(doc, lastChildField)
		return nil
	}
	raw, err := json.Marshal(ref)
	if err != nil {
		return fmt.Errorf("encode %s: %w", lastChildField, err)
	}
	doc[lastChildField] = raw
	return nil
}

func stringField(body json.RawMessage, field string) (string, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(body, &doc); err != nil {
		return "", fmt.Errorf("decode record: %w", err)
	}
	raw, ok := doc[field]
	if !ok {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("decode %s: %w", field, err)
	}
	return s, nil
}

func idsOf(bodies []json.RawMessage) ([]string, error) {
	ids := make([]string, 0, len(bodies))
	for _, body := range bodies {
		id, err := stringField(body, "id")
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
