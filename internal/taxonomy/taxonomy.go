// Package taxonomy loads and caches the Open Food Facts additive taxonomy,
// mapping codes like "E322" to human-readable names.
package taxonomy

import (
	"encoding/json"
	"fmt"
	"strings"
)

// DefaultURL is the bulk additive facet endpoint.
const DefaultURL = "https://world.openfoodfacts.org/facets/additives.json"

// Entry is one additive in the remote taxonomy. IDs look like "en:e322".
type Entry struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// parsePayload accepts the shapes the facet endpoint has been observed to
// return: a {"tags": [...]} wrapper, a bare entry array, or a flat object
// keyed by id. Keys in the result are lowercased ids.
func parsePayload(data []byte) (map[string]string, error) {
	byID := make(map[string]string)

	var wrapper struct {
		Tags []Entry `json:"tags"`
	}
	if err := json.Unmarshal(data, &wrapper); err == nil && len(wrapper.Tags) > 0 {
		for _, e := range wrapper.Tags {
			addEntry(byID, e)
		}
		return byID, nil
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err == nil {
		for _, e := range entries {
			addEntry(byID, e)
		}
		return byID, nil
	}

	var flat map[string]json.RawMessage
	if err := json.Unmarshal(data, &flat); err == nil {
		for id, raw := range flat {
			var name string
			if err := json.Unmarshal(raw, &name); err != nil {
				var obj struct {
					Name string `json:"name"`
				}
				if err := json.Unmarshal(raw, &obj); err != nil {
					continue
				}
				name = obj.Name
			}
			addEntry(byID, Entry{ID: id, Name: name})
		}
		return byID, nil
	}

	return nil, fmt.Errorf("unrecognized taxonomy payload")
}

func addEntry(byID map[string]string, e Entry) {
	if e.ID == "" || e.Name == "" {
		return
	}
	byID[strings.ToLower(e.ID)] = e.Name
}

// taxonomyKey derives the lookup id for an additive code: strip a leading
// E/e and prefix "en:e". "E322" and "e322" both become "en:e322".
func taxonomyKey(code string) string {
	number := strings.ToLower(strings.TrimPrefix(strings.TrimPrefix(code, "E"), "e"))
	return "en:e" + number
}
