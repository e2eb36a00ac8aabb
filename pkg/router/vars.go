package router

// Vars is an insertion ordered set of session variables.
// It is owned by the processing loop and is not safe for concurrent use.
type Vars struct {
	keys   []string
	values map[string]any
}

func NewVars() *Vars {
	return &Vars{values: make(map[string]any)}
}

func (v *Vars) Set(name string, value any) {
	if _, ok := v.values[name]; !ok {
		v.keys = append(v.keys, name)
	}
	v.values[name] = value
}

func (v *Vars) Get(name string) (any, bool) {
	value, ok := v.values[name]
	return value, ok
}

// Delete removes name. Deleting an absent name is a no-op.
func (v *Vars) Delete(name string) {
	if _, ok := v.values[name]; !ok {
		return
	}
	delete(v.values, name)
	for i, k := range v.keys {
		if k == name {
			v.keys = append(v.keys[:i], v.keys[i+1:]...)
			break
		}
	}
}

func (v *Vars) Len() int {
	return len(v.keys)
}

// Keys returns the names in the order they were first set.
func (v *Vars) Keys() []string {
	return append([]string(nil), v.keys...)
}

// Map returns a copy of the stored variables.
func (v *Vars) Map() map[string]any {
	m := make(map[string]any, len(v.values))
	for k, value := range v.values {
		m[k] = value
	}
	return m
}

// Merged returns the stored variables overlaid with overlay. The store is not modified.
func (v *Vars) Merged(overlay map[string]any) map[string]any {
	m := v.Map()
	for k, value := range overlay {
		m[k] = value
	}
	return m
}
