package router

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/surrealkit/surrealdb.go/pkg/constants"
	"github.com/surrealkit/surrealdb.go/pkg/models"
)

func TestNewParamValid(t *testing.T) {
	id, err := models.NewUUID()
	require.NoError(t, err)

	tests := []struct {
		method Method
		values []any
	}{
		{MethodUse, []any{"ns", "db"}},
		{MethodCreate, []any{models.Table("person")}},
		{MethodCreate, []any{"person", map[string]any{"a": 1}}},
		{MethodUpdate, []any{[]any{models.NewRecordID("a", 1)}, nil}},
		{MethodMerge, []any{models.NewRecordID("a", 1), map[string]any{}}},
		{MethodPatch, []any{"a", []any{}}},
		{MethodSelect, []any{models.NewRecordID("a", 1)}},
		{MethodDelete, []any{models.NewRecordRange("a", nil, nil)}},
		{MethodQuery, []any{"RETURN 1"}},
		{MethodQuery, []any{"RETURN $a", map[string]any{"a": 1}}},
		{MethodLive, []any{models.Table("person"), true}},
		{MethodKill, []any{id}},
		{MethodKill, []any{id.String()}},
		{MethodSet, []any{"x", 42}},
		{MethodUnset, []any{"x"}},
		{MethodHealth, nil},
		{MethodVersion, nil},
		{MethodSignin, []any{map[string]any{"user": "root"}}},
		{MethodAuthenticate, []any{"token"}},
		{MethodInvalidate, nil},
		{MethodReset, nil},
	}

	for _, tt := range tests {
		t.Run(tt.method.String(), func(t *testing.T) {
			_, err := NewParam(tt.method, tt.values...)
			assert.NoError(t, err)
		})
	}
}

func TestNewParamInvalid(t *testing.T) {
	tests := []struct {
		name   string
		method Method
		values []any
	}{
		{"use arity", MethodUse, []any{"ns"}},
		{"use type", MethodUse, []any{"ns", 1}},
		{"create no target", MethodCreate, nil},
		{"create empty table", MethodCreate, []any{""}},
		{"create too many", MethodCreate, []any{"a", 1, 2}},
		{"merge no data", MethodMerge, []any{"a", nil}},
		{"select empty list", MethodSelect, []any{[]any{}}},
		{"query not string", MethodQuery, []any{1}},
		{"query bad vars", MethodQuery, []any{"RETURN 1", []string{"a"}}},
		{"live record", MethodLive, []any{models.NewRecordID("a", 1)}},
		{"live diff type", MethodLive, []any{"a", "yes"}},
		{"kill number", MethodKill, []any{1}},
		{"set bad name", MethodSet, []any{"a b", 1}},
		{"unset not string", MethodUnset, []any{1}},
		{"health args", MethodHealth, []any{1}},
		{"authenticate empty", MethodAuthenticate, []any{""}},
		{"export reader", MethodExport, []any{strings.NewReader("")}},
		{"import string", MethodImport, []any{"file.surql"}},
		{"unknown", Method(99), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewParam(tt.method, tt.values...)
			assert.ErrorIs(t, err, constants.ErrInvalidParams)
		})
	}
}

func TestNewParamFile(t *testing.T) {
	var buf bytes.Buffer
	p, err := NewParam(MethodExport, &buf)
	require.NoError(t, err)
	assert.Equal(t, &buf, p.File)
	assert.Equal(t, 0, p.Len())
	assert.NoError(t, p.check(MethodExport))

	r := strings.NewReader("data")
	p, err = NewParam(MethodImport, r)
	require.NoError(t, err)
	assert.Equal(t, r, p.File)
}

func TestMethodString(t *testing.T) {
	assert.Equal(t, "select", MethodSelect.String())
	assert.Equal(t, "reset", MethodReset.String())
	assert.Equal(t, "unknown", Method(-1).String())
}
