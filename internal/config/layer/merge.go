package layer

import (
	"reflect"
	"slices"
	"strings"
)

// DeepMerge merges src into dst and returns dst. Tables merge key by key;
// lists and scalars from src replace what dst holds.
func DeepMerge(dst, src map[string]any) map[string]any {
	if dst == nil {
		dst = make(map[string]any, len(src))
	}
	for k, v := range src {
		if sub, ok := v.(map[string]any); ok {
			if existing, ok := dst[k].(map[string]any); ok {
				dst[k] = DeepMerge(existing, sub)
				continue
			}
		}
		dst[k] = cloneValue(v)
	}
	return dst
}

func cloneValue(v any) any {
	switch v := v.(type) {
	case map[string]any:
		return cloneMap(v)
	case []any:
		return cloneSlice(v)
	case []string:
		return slices.Clone(v)
	}
	return v
}

// GetByPath looks up a dotted path such as "eslint.timeBudget.onFixes".
func GetByPath(data map[string]any, path string) (any, bool) {
	var cur any = data
	for key := range strings.SplitSeq(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		if cur, ok = m[key]; !ok {
			return nil, false
		}
	}
	return cur, data != nil
}

// SetByPath stores value at a dotted path, creating tables on the way and
// overwriting scalars that are in the way.
func SetByPath(data map[string]any, path string, value any) {
	if data == nil {
		return
	}
	keys := strings.Split(path, ".")
	last := len(keys) - 1
	for _, key := range keys[:last] {
		next, ok := data[key].(map[string]any)
		if !ok {
			next = make(map[string]any)
			data[key] = next
		}
		data = next
	}
	data[keys[last]] = value
}

// DeleteByPath removes a dotted path and prunes tables it leaves empty. It
// reports whether anything was removed.
func DeleteByPath(data map[string]any, path string) bool {
	if data == nil {
		return false
	}
	return deleteKeys(data, strings.Split(path, "."))
}

func deleteKeys(m map[string]any, keys []string) bool {
	if len(keys) == 1 {
		_, ok := m[keys[0]]
		delete(m, keys[0])
		return ok
	}
	child, ok := m[keys[0]].(map[string]any)
	if !ok || !deleteKeys(child, keys[1:]) {
		return false
	}
	if len(child) == 0 {
		delete(m, keys[0])
	}
	return true
}

// ChangedPaths lists, sorted, the leaf paths that were added, removed or
// changed between before and after.
func ChangedPaths(before, after map[string]any) []string {
	a := leaves(before, "", map[string]any{})
	b := leaves(after, "", map[string]any{})

	var changed []string
	for p, v := range b {
		if old, ok := a[p]; !ok || !reflect.DeepEqual(old, v) {
			changed = append(changed, p)
		}
	}
	for p := range a {
		if _, ok := b[p]; !ok {
			changed = append(changed, p)
		}
	}
	slices.Sort(changed)
	return changed
}

// leaves flattens data into out keyed by dotted path. Empty tables count as
// leaves.
func leaves(data map[string]any, prefix string, out map[string]any) map[string]any {
	for k, v := range data {
		if prefix != "" {
			k = prefix + "." + k
		}
		if sub, ok := v.(map[string]any); ok && len(sub) > 0 {
			leaves(sub, k, out)
			continue
		}
		out[k] = v
	}
	return out
}
