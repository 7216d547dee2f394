package repositories

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/safetyspeak/backend/internal/models"
)

// ApplyFields applies field updates to a JSON document body and returns the new body.
//
// Keys are dotted paths. Missing or non-object intermediate values are replaced by objects.
// An ArrayUnion value appends the elements that are not yet in the array.
func ApplyFields(body []byte, fields models.FieldUpdates) ([]byte, error) {
	doc := map[string]any{}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &doc); err != nil {
			return nil, fmt.Errorf("failed to decode document: %w", err)
		}
		if doc == nil {
			doc = map[string]any{}
		}
	}

	paths := make([]string, 0, len(fields))
	for path := range fields {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	for _, path := range paths {
		segments := strings.Split(path, ".")
		for _, segment := range segments {
			if segment == "" {
				return nil, fmt.Errorf("invalid field path %q", path)
			}
		}

		parent := doc
		for _, segment := range segments[:len(segments)-1] {
			child, ok := parent[segment].(map[string]any)
			if !ok {
				child = map[string]any{}
				parent[segment] = child
			}
			parent = child
		}

		leaf := segments[len(segments)-1]
		switch value := fields[path].(type) {
		case models.ArrayUnion:
			merged, err := unionArray(parent[leaf], value.Values)
			if err != nil {
				return nil, fmt.Errorf("failed to merge %q: %w", path, err)
			}
			parent[leaf] = merged
		default:
			normalized, err := normalize(value)
			if err != nil {
				return nil, fmt.Errorf("failed to encode %q: %w", path, err)
			}
			parent[leaf] = normalized
		}
	}

	out, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	return out, nil
}

func unionArray(current any, values []any) ([]any, error) {
	existing, _ := current.([]any)
	merged := make([]any, 0, len(existing)+len(values))
	seen := make(map[string]struct{}, len(existing)+len(values))

	add := func(v any) error {
		key, err := json.Marshal(v)
		if err != nil {
			return err
		}
		if _, ok := seen[string(key)]; ok {
			return nil
		}
		seen[string(key)] = struct{}{}
		merged = append(merged, v)
		return nil
	}

	for _, v := range existing {
		if err := add(v); err != nil {
			return nil, err
		}
	}
	for _, v := range values {
		normalized, err := normalize(v)
		if err != nil {
			return nil, err
		}
		if err := add(normalized); err != nil {
			return nil, err
		}
	}

	return merged, nil
}

// normalize converts a Go value into its generic JSON representation
func normalize(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
