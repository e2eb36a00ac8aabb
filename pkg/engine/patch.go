package engine

import (
	"fmt"
	"strconv"
	"strings"
)

// applyPatch applies JSON Patch operations (add, remove, replace, copy,
// move and test) to doc.
func applyPatch(doc map[string]any, ops []any) (map[string]any, error) {
	var root any = doc
	for i, raw := range ops {
		op, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: patch operation %d must be an object", ErrEval, i)
		}
		kind, _ := op["op"].(string)
		path, err := parsePointer(op["path"])
		if err != nil {
			return nil, err
		}
		if len(path) > 0 && path[0] == "id" {
			return nil, fmt.Errorf("%w: patch can not change the record id", ErrEval)
		}

		switch kind {
		case "add", "replace":
			root, err = setAt(root, path, clone(op["value"]), kind == "add")
		case "remove":
			root, _, err = removeAt(root, path)
		case "copy", "move":
			var from []string
			if from, err = parsePointer(op["from"]); err != nil {
				break
			}
			var v any
			if kind == "move" {
				root, v, err = removeAt(root, from)
			} else {
				v, err = getAt(root, from)
			}
			if err == nil {
				root, err = setAt(root, path, clone(v), true)
			}
		case "test":
			var v any
			if v, err = getAt(root, path); err == nil && !equal(v, op["value"]) {
				err = fmt.Errorf("%w: patch test failed at %s", ErrEval, op["path"])
			}
		default:
			err = fmt.Errorf("%w: unknown patch operation %q", ErrEval, kind)
		}
		if err != nil {
			return nil, err
		}
	}

	out, ok := root.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: patch must leave an object", ErrEval)
	}
	return out, nil
}

func parsePointer(v any) ([]string, error) {
	s, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("%w: patch path must be a string", ErrEval)
	}
	if s == "" {
		return nil, nil
	}
	if !strings.HasPrefix(s, "/") {
		return nil, fmt.Errorf("%w: patch path %q must start with /", ErrEval, s)
	}
	parts := strings.Split(s[1:], "/")
	for i, p := range parts {
		parts[i] = strings.ReplaceAll(strings.ReplaceAll(p, "~1", "/"), "~0", "~")
	}
	return parts, nil
}

func escapePointer(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "~", "~0"), "/", "~1")
}

func index(arr []any, key string, allowEnd bool) (int, error) {
	if key == "-" && allowEnd {
		return len(arr), nil
	}
	i, err := strconv.Atoi(key)
	limit := len(arr)
	if allowEnd {
		limit++
	}
	if err != nil || i < 0 || i >= limit {
		return 0, fmt.Errorf("%w: invalid array index %q", ErrEval, key)
	}
	return i, nil
}

func getAt(doc any, path []string) (any, error) {
	cur := doc
	for _, key := range path {
		switch c := cur.(type) {
		case map[string]any:
			v, ok := c[key]
			if !ok {
				return nil, fmt.Errorf("%w: path /%s not found", ErrEval, strings.Join(path, "/"))
			}
			cur = v
		case []any:
			i, err := index(c, key, false)
			if err != nil {
				return nil, err
			}
			cur = c[i]
		default:
			return nil, fmt.Errorf("%w: path /%s not found", ErrEval, strings.Join(path, "/"))
		}
	}
	return cur, nil
}

// setAt writes v at path and returns the possibly reallocated document.
// insert selects add semantics for arrays.
func setAt(doc any, path []string, v any, insert bool) (any, error) {
	if len(path) == 0 {
		return v, nil
	}
	key, rest := path[0], path[1:]

	switch c := doc.(type) {
	case map[string]any:
		if len(rest) == 0 {
			if _, ok := c[key]; !ok && !insert {
				return nil, fmt.Errorf("%w: can not replace missing field %s", ErrEval, key)
			}
			c[key] = v
			return c, nil
		}
		child, ok := c[key]
		if !ok {
			return nil, fmt.Errorf("%w: field %s not found", ErrEval, key)
		}
		updated, err := setAt(child, rest, v, insert)
		if err != nil {
			return nil, err
		}
		c[key] = updated
		return c, nil
	case []any:
		if len(rest) == 0 {
			i, err := index(c, key, insert)
			if err != nil {
				return nil, err
			}
			if !insert {
				c[i] = v
				return c, nil
			}
			c = append(c, nil)
			copy(c[i+1:], c[i:])
			c[i] = v
			return c, nil
		}
		i, err := index(c, key, false)
		if err != nil {
			return nil, err
		}
		updated, err := setAt(c[i], rest, v, insert)
		if err != nil {
			return nil, err
		}
		c[i] = updated
		return c, nil
	}
	return nil, fmt.Errorf("%w: can not descend into %s", ErrEval, render(doc))
}

func removeAt(doc any, path []string) (any, any, error) {
	if len(path) == 0 {
		return nil, nil, fmt.Errorf("%w: can not remove the whole record", ErrEval)
	}
	key, rest := path[0], path[1:]

	switch c := doc.(type) {
	case map[string]any:
		child, ok := c[key]
		if !ok {
			return nil, nil, fmt.Errorf("%w: field %s not found", ErrEval, key)
		}
		if len(rest) == 0 {
			delete(c, key)
			return c, child, nil
		}
		updated, removed, err := removeAt(child, rest)
		if err != nil {
			return nil, nil, err
		}
		c[key] = updated
		return c, removed, nil
	case []any:
		i, err := index(c, key, false)
		if err != nil {
			return nil, nil, err
		}
		if len(rest) == 0 {
			removed := c[i]
			return append(c[:i], c[i+1:]...), removed, nil
		}
		updated, removed, err := removeAt(c[i], rest)
		if err != nil {
			return nil, nil, err
		}
		c[i] = updated
		return c, removed, nil
	}
	return nil, nil, fmt.Errorf("%w: can not descend into %s", ErrEval, render(doc))
}

// diff returns the JSON Patch turning before into after. A nil side is
// treated as an empty object.
func diff(before, after map[string]any) []any {
	ops := []any{}
	diffObject(&ops, "", before, after)
	return ops
}

func diffObject(ops *[]any, prefix string, before, after map[string]any) {
	for _, k := range sortedKeys(before) {
		if _, ok := after[k]; !ok {
			*ops = append(*ops, map[string]any{"op": "remove", "path": prefix + "/" + escapePointer(k)})
		}
	}
	for _, k := range sortedKeys(after) {
		path := prefix + "/" + escapePointer(k)
		b, existed := before[k]
		a := after[k]
		switch {
		case !existed:
			*ops = append(*ops, map[string]any{"op": "add", "path": path, "value": clone(a)})
		case equal(a, b):
		default:
			bo, bok := b.(map[string]any)
			ao, aok := a.(map[string]any)
			if bok && aok {
				diffObject(ops, path, bo, ao)
				continue
			}
			*ops = append(*ops, map[string]any{"op": "replace", "path": path, "value": clone(a)})
		}
	}
}
