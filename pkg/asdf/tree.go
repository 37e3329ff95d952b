package asdf

import (
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// The header tree is a plain map/list/scalar structure as produced by the
// XML dump of the container metadata. Groups, datasets and attributes are
// all map values; name-maps key their children by element name.

func childMap(node map[string]any, key string) (map[string]any, bool) {
	child, ok := node[key].(map[string]any)
	return child, ok
}

func sortedKeys(m map[string]any) []string {
	keys := maps.Keys(m)
	slices.Sort(keys)
	return keys
}

func intValue(v any) (int, bool) {
	switch i := v.(type) {
	case int:
		return i, true
	case int64:
		return int(i), true
	case float64:
		return int(i), true
	default:
		return 0, false
	}
}
