package docstore

import (
	"fmt"
	"sort"
	"strings"
)

// Document is a decoded JSON object. Dotted paths address nested values:
// "ui.theme" means doc["ui"]["theme"]. Intermediate segments must be JSON
// objects.
type Document map[string]any

// asObject accepts both raw unmarshalled maps and Document values, so paths
// keep working on objects inserted by migration code.
func asObject(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case Document:
		return m, true
	}
	return nil, false
}

func splitPath(path string) []string {
	if path == "" {
		return nil
	}
	return strings.Split(path, ".")
}

// Get resolves a dotted path. The second result is false when any segment
// is missing or an intermediate value is not an object.
func (d Document) Get(path string) (any, bool) {
	segs := splitPath(path)
	if len(segs) == 0 {
		return nil, false
	}

	cur := map[string]any(d)
	for i, seg := range segs {
		v, ok := cur[seg]
		if !ok {
			return nil, false
		}
		if i == len(segs)-1 {
			return v, true
		}
		cur, ok = asObject(v)
		if !ok {
			return nil, false
		}
	}
	return nil, false
}

// Has reports whether the dotted path resolves to a value.
func (d Document) Has(path string) bool {
	_, ok := d.Get(path)
	return ok
}

// Set stores v at the dotted path, creating intermediate objects as needed.
// It fails if an existing intermediate segment holds a non-object value.
func (d Document) Set(path string, v any) error {
	segs := splitPath(path)
	if len(segs) == 0 {
		return fmt.Errorf("empty path")
	}

	cur := map[string]any(d)
	for _, seg := range segs[:len(segs)-1] {
		next, ok := cur[seg]
		if !ok {
			child := map[string]any{}
			cur[seg] = child
			cur = child
			continue
		}
		obj, ok := asObject(next)
		if !ok {
			return fmt.Errorf("path %q: segment %q is not an object", path, seg)
		}
		cur = obj
	}
	cur[segs[len(segs)-1]] = v
	return nil
}

// Delete removes the value at the dotted path and reports whether anything
// was removed.
func (d Document) Delete(path string) bool {
	segs := splitPath(path)
	if len(segs) == 0 {
		return false
	}

	cur := map[string]any(d)
	for _, seg := range segs[:len(segs)-1] {
		next, ok := cur[seg]
		if !ok {
			return false
		}
		cur, ok = asObject(next)
		if !ok {
			return false
		}
	}

	last := segs[len(segs)-1]
	if _, ok := cur[last]; !ok {
		return false
	}
	delete(cur, last)
	return true
}

// Len returns the number of top-level keys.
func (d Document) Len() int {
	return len(d)
}

// Keys returns the sorted child keys of the object at the dotted path.
// An empty path addresses the document root.
func (d Document) Keys(path string) []string {
	obj := map[string]any(d)
	if path != "" {
		v, ok := d.Get(path)
		if !ok {
			return nil
		}
		obj, ok = asObject(v)
		if !ok {
			return nil
		}
	}

	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
