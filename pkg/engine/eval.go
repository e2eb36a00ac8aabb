package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/surrealkit/surrealdb.go/pkg/models"
)

// ErrEval is wrapped by errors raised while computing a value.
var ErrEval = errors.New("evaluation error")

// evaluator computes expressions against the parameters of one query.
type evaluator struct {
	vars map[string]any
}

func (e *evaluator) errorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrEval, fmt.Sprintf(format, args...))
}

func (e *evaluator) eval(x Expr) (any, error) {
	switch x := x.(type) {
	case LiteralExpr:
		return x.Value, nil
	case ParamExpr:
		if v, ok := e.vars[x.Name]; ok {
			return normalize(v), nil
		}
		return none, nil
	case IdentExpr:
		return models.Table(x.Name), nil
	case ArrayExpr:
		out := make([]any, 0, len(x.Items))
		for _, item := range x.Items {
			v, err := e.eval(item)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case ObjectExpr:
		out := make(map[string]any, len(x.Keys))
		for i, key := range x.Keys {
			v, err := e.eval(x.Values[i])
			if err != nil {
				return nil, err
			}
			out[key] = v
		}
		return out, nil
	case ThingExpr:
		return e.thing(x)
	case CallExpr:
		return e.call(x)
	case NegExpr:
		v, err := e.eval(x.X)
		if err != nil {
			return nil, err
		}
		switch n := v.(type) {
		case int64:
			return -n, nil
		case float64:
			return -n, nil
		}
		return nil, e.errorf("cannot negate %s", render(v))
	case BinaryExpr:
		return e.binary(x)
	}
	return nil, e.errorf("unsupported expression %T", x)
}

func (e *evaluator) thing(x ThingExpr) (any, error) {
	rng, ok := x.ID.(RangeExpr)
	if !ok {
		id, err := e.eval(x.ID)
		if err != nil {
			return nil, err
		}
		return models.RecordID{Table: x.Table, ID: id}, nil
	}

	var r models.Range
	if rng.Begin != nil {
		v, err := e.eval(rng.Begin)
		if err != nil {
			return nil, err
		}
		if rng.BeginExcluded {
			r.Begin = models.Excluded(v)
		} else {
			r.Begin = models.Included(v)
		}
	}
	if rng.End != nil {
		v, err := e.eval(rng.End)
		if err != nil {
			return nil, err
		}
		if rng.EndIncluded {
			r.End = models.Included(v)
		} else {
			r.End = models.Excluded(v)
		}
	}
	return models.RecordID{Table: x.Table, ID: r}, nil
}

func (e *evaluator) call(x CallExpr) (any, error) {
	args := make([]any, len(x.Args))
	for i, arg := range x.Args {
		v, err := e.eval(arg)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}

	want := func(n int) error {
		if len(args) != n {
			return e.errorf("function %s() expects %d arguments, got %d", x.Name, n, len(args))
		}
		return nil
	}

	switch x.Name {
	case "type::table":
		if err := want(1); err != nil {
			return nil, err
		}
		switch v := args[0].(type) {
		case string:
			return models.Table(v), nil
		case models.Table:
			return v, nil
		case models.RecordID:
			return models.Table(v.Table), nil
		}
		return nil, e.errorf("cannot convert %s to a table", render(args[0]))
	case "type::string":
		if err := want(1); err != nil {
			return nil, err
		}
		return toString(args[0]), nil
	case "type::thing":
		if err := want(2); err != nil {
			return nil, err
		}
		var table string
		switch v := args[0].(type) {
		case string:
			table = v
		case models.Table:
			table = string(v)
		default:
			return nil, e.errorf("cannot use %s as a table name", render(args[0]))
		}
		return models.RecordID{Table: table, ID: args[1]}, nil
	case "rand::uuid":
		if err := want(0); err != nil {
			return nil, err
		}
		return models.NewUUID()
	case "time::now":
		if err := want(0); err != nil {
			return nil, err
		}
		return time.Now().UTC(), nil
	}
	return nil, e.errorf("unknown function %s()", x.Name)
}

func toString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case models.Table:
		return string(x)
	case models.UUID:
		return x.String()
	case models.RecordID:
		return x.String()
	case time.Time:
		return x.Format(time.RFC3339Nano)
	case models.CustomNil:
		return "NONE"
	case nil:
		return "NULL"
	}
	return fmt.Sprint(v)
}

func (e *evaluator) binary(x BinaryExpr) (any, error) {
	l, err := e.eval(x.Left)
	if err != nil {
		return nil, err
	}
	r, err := e.eval(x.Right)
	if err != nil {
		return nil, err
	}

	if ls, ok := l.(string); ok && x.Op == Plus {
		if rs, ok := r.(string); ok {
			return ls + rs, nil
		}
	}

	li, lInt := l.(int64)
	ri, rInt := r.(int64)
	if lInt && rInt {
		switch x.Op {
		case Plus:
			return li + ri, nil
		case Minus:
			return li - ri, nil
		case Wildcard:
			return li * ri, nil
		case Slash:
			if ri == 0 {
				return nil, e.errorf("division by zero")
			}
			if li%ri == 0 {
				return li / ri, nil
			}
			return float64(li) / float64(ri), nil
		}
	}

	lf, lok := toFloat(l)
	rf, rok := toFloat(r)
	if !lok || !rok {
		return nil, e.errorf("cannot apply %s to %s and %s", x.Op, render(l), render(r))
	}
	switch x.Op {
	case Plus:
		return lf + rf, nil
	case Minus:
		return lf - rf, nil
	case Wildcard:
		return lf * rf, nil
	case Slash:
		if rf == 0 {
			return nil, e.errorf("division by zero")
		}
		return lf / rf, nil
	}
	return nil, e.errorf("unsupported operator %s", x.Op)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
