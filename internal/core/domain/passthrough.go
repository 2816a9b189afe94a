package domain

import (
	"encoding/json"

	"github.com/tidwall/gjson"
)

// decodeWithExtra decodes data into typed and returns the top-level members
// whose keys are not in known. Nil when there are none.
func decodeWithExtra(data []byte, typed any, known []string) (map[string]json.RawMessage, error) {
	if err := json.Unmarshal(data, typed); err != nil {
		return nil, err
	}

	skip := make(map[string]struct{}, len(known))
	for _, k := range known {
		skip[k] = struct{}{}
	}

	var extra map[string]json.RawMessage
	gjson.ParseBytes(data).ForEach(func(key, value gjson.Result) bool {
		if _, ok := skip[key.String()]; ok {
			return true
		}
		if extra == nil {
			extra = make(map[string]json.RawMessage)
		}
		extra[key.String()] = json.RawMessage(value.Raw)
		return true
	})
	return extra, nil
}

// encodeWithExtra encodes typed and merges extra into the resulting object.
// Typed fields win over extra members with the same key.
func encodeWithExtra(typed any, extra map[string]json.RawMessage) ([]byte, error) {
	b, err := json.Marshal(typed)
	if err != nil || len(extra) == 0 {
		return b, err
	}

	merged := make(map[string]json.RawMessage, len(extra))
	if err := json.Unmarshal(b, &merged); err != nil {
		return nil, err
	}
	for k, v := range extra {
		if _, ok := merged[k]; !ok {
			merged[k] = v
		}
	}
	return json.Marshal(merged)
}
