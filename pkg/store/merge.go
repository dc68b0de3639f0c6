package store

import (
	"encoding/json"
	"fmt"
	"slices"

	jsonpatch "github.com/evanphx/json-patch"
	patcher "github.com/goliatone/go-patcher"
)

// MergeReducer folds the payload of each action into a JSON-shaped state with
// RFC 7386 merge semantics: keys in the payload overwrite, null removes. When
// types is not empty only those action types are reduced.
func MergeReducer(types ...string) Reducer[map[string]any] {
	return func(state map[string]any, action patcher.Action) (map[string]any, error) {
		if len(types) > 0 && !slices.Contains(types, action.Type) {
			return state, nil
		}
		if action.Payload == nil {
			return state, nil
		}
		if state == nil {
			state = map[string]any{}
		}
		doc, err := json.Marshal(state)
		if err != nil {
			return state, fmt.Errorf("store: encode state: %w", err)
		}
		patch, err := json.Marshal(action.Payload)
		if err != nil {
			return state, fmt.Errorf("store: encode payload of %q: %w", action.Type, err)
		}
		merged, err := jsonpatch.MergePatch(doc, patch)
		if err != nil {
			return state, fmt.Errorf("store: merge payload of %q: %w", action.Type, err)
		}
		var next map[string]any
		if err := json.Unmarshal(merged, &next); err != nil {
			return state, fmt.Errorf("store: payload of %q must be an object: %w", action.Type, err)
		}
		return next, nil
	}
}
