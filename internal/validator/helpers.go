package validator

import "sort"

// mapsOf narrows a decoded list to its mapping entries.
func mapsOf(v any) []map[string]any {
	raw, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(raw))
	for _, item := range raw {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

// stringSet collects the non-empty string values of one field across a
// list of mappings.
func stringSet(items []map[string]any, field string) map[string]bool {
	set := make(map[string]bool)
	for _, item := range items {
		if s, ok := item[field].(string); ok && s != "" {
			set[s] = true
		}
	}
	return set
}

// stringsOf accepts a string or a list of strings and returns a slice.
func stringsOf(v any) []string {
	switch s := v.(type) {
	case string:
		if s == "" {
			return nil
		}
		return []string{s}
	case []any:
		out := make([]string, 0, len(s))
		for _, item := range s {
			if str, ok := item.(string); ok && str != "" {
				out = append(out, str)
			}
		}
		return out
	}
	return nil
}

// sortedKeys returns the keys of a set in sorted order. Findings derived
// from map iteration must not reorder between runs.
func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedMapKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
