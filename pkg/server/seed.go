package server

import (
	"encoding/json"
	"fmt"
)

// normalizeYAML runs a seed item through a JSON round-trip so its value
// types (float64 numbers, map[string]any objects) match records created
// through the API.
func normalizeYAML(item map[string]any) map[string]any {
	data, err := json.Marshal(item)
	if err != nil {
		return item
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return item
	}
	return out
}

func anyString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%v", t)
	default:
		return fmt.Sprintf("%v", t)
	}
}
