package router

import (
	"fmt"
	"io"

	"github.com/surrealkit/surrealdb.go/pkg/constants"
	"github.com/surrealkit/surrealdb.go/pkg/models"
	"github.com/surrealkit/surrealdb.go/pkg/statement"
)

// Param is the validated, positional argument list of a Command.
type Param struct {
	values []any
	// File is the io.Writer of an export or the io.Reader of an import.
	File any
}

// Values returns a copy of the positional values.
func (p Param) Values() []any {
	return append([]any(nil), p.values...)
}

// Len returns the number of positional values.
func (p Param) Len() int {
	return len(p.values)
}

// At returns the i-th value, or nil when absent.
func (p Param) At(i int) any {
	if i < 0 || i >= len(p.values) {
		return nil
	}
	return p.values[i]
}

// NewParam checks that values have the arity and shape method expects.
// Violations are reported as constants.ErrInvalidParams.
func NewParam(method Method, values ...any) (Param, error) {
	p := Param{values: values}
	if err := validate(method, &p); err != nil {
		return Param{}, fmt.Errorf("%s: %w", method, err)
	}
	return p, nil
}

// check revalidates a Param that may not have come from NewParam.
func (p Param) check(method Method) error {
	q := Param{values: p.values}
	if p.File != nil {
		q.values = append([]any{p.File}, p.values...)
	}
	if err := validate(method, &q); err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{constants.ErrInvalidParams}, args...)...)
}

func arity(values []any, lo, hi int) error {
	if len(values) < lo || len(values) > hi {
		if lo == hi {
			return invalid("expected %d values, got %d", lo, len(values))
		}
		return invalid("expected %d to %d values, got %d", lo, hi, len(values))
	}
	return nil
}

func validate(method Method, p *Param) error {
	v := p.values

	switch method {
	case MethodUse:
		if err := arity(v, 2, 2); err != nil {
			return err
		}
		for _, s := range v {
			if _, ok := s.(string); !ok {
				return invalid("namespace and database must be strings, got %T", s)
			}
		}
	case MethodCreate, MethodUpdate:
		if err := arity(v, 1, 2); err != nil {
			return err
		}
		return target(v[0])
	case MethodMerge, MethodPatch:
		if err := arity(v, 2, 2); err != nil {
			return err
		}
		if v[1] == nil {
			return invalid("data is required")
		}
		return target(v[0])
	case MethodSelect, MethodDelete:
		if err := arity(v, 1, 1); err != nil {
			return err
		}
		return target(v[0])
	case MethodQuery:
		if err := arity(v, 1, 2); err != nil {
			return err
		}
		if s, ok := v[0].(string); !ok || s == "" {
			return invalid("query text must be a non-empty string")
		}
		if len(v) == 2 && v[1] != nil {
			if _, ok := v[1].(map[string]any); !ok {
				return invalid("query variables must be map[string]any, got %T", v[1])
			}
		}
	case MethodLive:
		if err := arity(v, 1, 2); err != nil {
			return err
		}
		switch tb := v[0].(type) {
		case models.Table:
			if tb == "" {
				return invalid("empty table name")
			}
		case string:
			if tb == "" {
				return invalid("empty table name")
			}
		default:
			return invalid("live queries need a table, got %T", v[0])
		}
		if len(v) == 2 {
			if _, ok := v[1].(bool); !ok {
				return invalid("diff flag must be a bool, got %T", v[1])
			}
		}
	case MethodKill:
		if err := arity(v, 1, 1); err != nil {
			return err
		}
		switch v[0].(type) {
		case models.UUID, *models.UUID, string:
		default:
			return invalid("live query id must be a UUID, got %T", v[0])
		}
	case MethodSet:
		if err := arity(v, 2, 2); err != nil {
			return err
		}
		return varName(v[0])
	case MethodUnset:
		if err := arity(v, 1, 1); err != nil {
			return err
		}
		return varName(v[0])
	case MethodHealth, MethodVersion, MethodInvalidate, MethodReset:
		return arity(v, 0, 0)
	case MethodSignin, MethodSignup:
		if err := arity(v, 1, 1); err != nil {
			return err
		}
		if v[0] == nil {
			return invalid("credentials are required")
		}
	case MethodAuthenticate:
		if err := arity(v, 1, 1); err != nil {
			return err
		}
		if s, ok := v[0].(string); !ok || s == "" {
			return invalid("token must be a non-empty string")
		}
	case MethodExport:
		if err := arity(v, 1, 1); err != nil {
			return err
		}
		if _, ok := v[0].(io.Writer); !ok {
			return invalid("export needs an io.Writer, got %T", v[0])
		}
		p.File, p.values = v[0], nil
	case MethodImport:
		if err := arity(v, 1, 1); err != nil {
			return err
		}
		if _, ok := v[0].(io.Reader); !ok {
			return invalid("import needs an io.Reader, got %T", v[0])
		}
		p.File, p.values = v[0], nil
	default:
		return invalid("unknown method %d", int(method))
	}
	return nil
}

func target(what any) error {
	switch v := what.(type) {
	case nil:
		return invalid("missing target")
	case string:
		if v == "" {
			return invalid("empty table name")
		}
	case models.Table:
		if v == "" {
			return invalid("empty table name")
		}
	case *models.RecordID:
		if v == nil {
			return invalid("nil record id")
		}
	case []any:
		if len(v) == 0 {
			return invalid("empty target list")
		}
	}
	return nil
}

func varName(v any) error {
	name, ok := v.(string)
	if !ok || !statement.IsValidVarName(name) {
		return invalid("invalid variable name %v", v)
	}
	return nil
}
