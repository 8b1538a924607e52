package mongodb

import (
	"strconv"
	"strings"
)

// InvalidKey returns the path of the first key in doc, at any depth, that
// cannot be stored as a field name: empty, $-prefixed or dotted.
func InvalidKey(doc map[string]any) (string, bool) {
	for k, v := range doc {
		if k == "" || strings.HasPrefix(k, "$") || strings.Contains(k, ".") {
			return k, true
		}
		if path, bad := invalidIn(v); bad {
			return k + "." + path, true
		}
	}
	return "", false
}

func invalidIn(v any) (string, bool) {
	switch t := v.(type) {
	case map[string]any:
		return InvalidKey(t)
	case []any:
		for i, e := range t {
			if path, bad := invalidIn(e); bad {
				return strconv.Itoa(i) + "." + path, true
			}
		}
	}
	return "", false
}
