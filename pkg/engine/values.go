package engine

import (
	"bytes"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/surrealkit/surrealdb.go/pkg/models"
)

var none = models.None

// normalize converts Go numeric types to int64 or float64 and unwraps
// pointers to the tagged model types, so values can be compared.
func normalize(v any) any {
	switch x := v.(type) {
	case int:
		return int64(x)
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case uint:
		return int64(x)
	case uint8:
		return int64(x)
	case uint16:
		return int64(x)
	case uint32:
		return int64(x)
	case uint64:
		if x <= math.MaxInt64 {
			return int64(x)
		}
		return float64(x)
	case float32:
		return float64(x)
	case *models.RecordID:
		if x == nil {
			return nil
		}
		return models.RecordID{Table: x.Table, ID: normalize(x.ID)}
	case models.RecordID:
		return models.RecordID{Table: x.Table, ID: normalize(x.ID)}
	case *models.UUID:
		if x == nil {
			return nil
		}
		return *x
	case *models.CustomNil:
		return none
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = normalize(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, item := range x {
			out[k] = normalize(item)
		}
		return out
	}
	return v
}

// clone deep copies arrays and objects.
func clone(v any) any {
	switch x := v.(type) {
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = clone(item)
		}
		return out
	case map[string]any:
		return cloneObject(x)
	}
	return v
}

func cloneObject(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = clone(v)
	}
	return out
}

// rank orders values of different kinds the way SurrealDB sorts them.
func rank(v any) int {
	switch v.(type) {
	case models.CustomNil:
		return 0
	case nil:
		return 1
	case bool:
		return 2
	case int64, float64:
		return 3
	case string:
		return 4
	case time.Time:
		return 5
	case models.UUID:
		return 6
	case []any:
		return 7
	case map[string]any:
		return 8
	case []byte:
		return 9
	case models.RecordID:
		return 10
	}
	return 11
}

// compare orders two normalized values. It returns a negative number when
// a sorts first, zero when they are equal and a positive number otherwise.
func compare(a, b any) int {
	a, b = normalize(a), normalize(b)
	if ra, rb := rank(a), rank(b); ra != rb {
		return ra - rb
	}

	switch x := a.(type) {
	case bool:
		y := b.(bool)
		switch {
		case x == y:
			return 0
		case !x:
			return -1
		}
		return 1
	case int64:
		if y, ok := b.(int64); ok {
			return cmpOrdered(x, y)
		}
		return cmpOrdered(float64(x), b.(float64))
	case float64:
		if y, ok := b.(int64); ok {
			return cmpOrdered(x, float64(y))
		}
		return cmpOrdered(x, b.(float64))
	case string:
		return strings.Compare(x, b.(string))
	case time.Time:
		return x.Compare(b.(time.Time))
	case models.UUID:
		y := b.(models.UUID)
		return bytes.Compare(x.Bytes(), y.Bytes())
	case []byte:
		return bytes.Compare(x, b.([]byte))
	case []any:
		y := b.([]any)
		for i := 0; i < len(x) && i < len(y); i++ {
			if c := compare(x[i], y[i]); c != 0 {
				return c
			}
		}
		return len(x) - len(y)
	case map[string]any:
		y := b.(map[string]any)
		kx, ky := sortedKeys(x), sortedKeys(y)
		for i := 0; i < len(kx) && i < len(ky); i++ {
			if c := strings.Compare(kx[i], ky[i]); c != 0 {
				return c
			}
			if c := compare(x[kx[i]], y[ky[i]]); c != 0 {
				return c
			}
		}
		return len(kx) - len(ky)
	case models.RecordID:
		y := b.(models.RecordID)
		if c := strings.Compare(x.Table, y.Table); c != 0 {
			return c
		}
		return compare(x.ID, y.ID)
	case models.CustomNil, nil:
		return 0
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func cmpOrdered[T int64 | float64](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func equal(a, b any) bool {
	return compare(a, b) == 0
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// sortRecords orders records by their id.
func sortRecords(records []map[string]any) {
	sort.SliceStable(records, func(i, j int) bool {
		return compare(records[i]["id"], records[j]["id"]) < 0
	})
}

// render formats a value the way it appears in error messages.
func render(v any) string {
	switch x := v.(type) {
	case string:
		return "'" + x + "'"
	case models.CustomNil:
		return "NONE"
	case nil:
		return "NULL"
	case models.RecordID:
		return x.String()
	}
	return fmt.Sprint(v)
}

// CompareValues orders two values the way the engine sorts record ids.
func CompareValues(a, b any) int {
	return compare(a, b)
}
