package statement

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/surrealkit/surrealdb.go/pkg/constants"
	"github.com/surrealkit/surrealdb.go/pkg/models"
)

func TestIsThing(t *testing.T) {
	id := models.NewRecordID("person", 1)

	assert.True(t, IsThing(id))
	assert.True(t, IsThing(&id))
	assert.False(t, IsThing((*models.RecordID)(nil)))
	assert.False(t, IsThing(models.Table("person")))
	assert.False(t, IsThing("person"))
	assert.False(t, IsThing([]any{id}))
	assert.False(t, IsThing(models.NewRecordRange("person", nil, nil)))
	assert.False(t, IsThing(models.RecordID{Table: "person", ID: models.Range{}}))
}

func TestWriteStatements(t *testing.T) {
	id := models.NewRecordID("person", "tobie")
	data := map[string]any{"name": "Tobie"}

	tests := []struct {
		name     string
		build    func() (Statement, error)
		expected string
		one      bool
	}{
		{
			name:     "create table without data",
			build:    func() (Statement, error) { return Create(models.Table("person"), nil) },
			expected: "CREATE person RETURN AFTER",
		},
		{
			name:     "create record",
			build:    func() (Statement, error) { return Create(id, data) },
			expected: "CREATE $what_1 CONTENT $data_1 RETURN AFTER",
			one:      true,
		},
		{
			name:     "update table",
			build:    func() (Statement, error) { return Update("person", data) },
			expected: "UPDATE person CONTENT $data_1 RETURN AFTER",
		},
		{
			name:     "merge record",
			build:    func() (Statement, error) { return Merge(&id, data) },
			expected: "UPDATE $what_1 MERGE $data_1 RETURN AFTER",
			one:      true,
		},
		{
			name:     "patch record",
			build:    func() (Statement, error) { return Patch(id, []any{}) },
			expected: "UPDATE $what_1 PATCH $data_1 RETURN DIFF",
			one:      true,
		},
		{
			name:     "select array",
			build:    func() (Statement, error) { return Select([]any{id, models.NewRecordID("person", "jaime")}) },
			expected: "SELECT * FROM $what_1, $what_2",
		},
		{
			name:     "delete reserved table name",
			build:    func() (Statement, error) { return Delete(models.Table("select")) },
			expected: "DELETE `select` RETURN NONE",
		},
		{
			name:     "delete table with dash",
			build:    func() (Statement, error) { return Delete("user-profiles") },
			expected: "DELETE `user-profiles` RETURN NONE",
		},
		{
			name:     "delete record",
			build:    func() (Statement, error) { return Delete(id) },
			expected: "DELETE $what_1 RETURN NONE",
			one:      true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmt, err := tt.build()
			require.NoError(t, err)
			assert.Equal(t, tt.expected, stmt.Text)
			assert.Equal(t, tt.one, stmt.One)
		})
	}
}

func TestTargetsBindValues(t *testing.T) {
	id := models.NewRecordID("person", "tobie")
	stmt, err := Create([]any{"person", id}, map[string]any{"a": 1})
	require.NoError(t, err)

	assert.Equal(t, map[string]any{
		"what_1": id,
		"data_1": map[string]any{"a": 1},
	}, stmt.Vars)
}

func TestRangeTargetBindsRecordID(t *testing.T) {
	rr := models.NewRecordRange("person", models.Included(1), nil)

	stmt, err := Delete(&rr)
	require.NoError(t, err)
	assert.Equal(t, rr.RecordID(), stmt.Vars["what_1"])
}

func TestInvalidParams(t *testing.T) {
	tests := []struct {
		name  string
		build func() (Statement, error)
	}{
		{"nil target", func() (Statement, error) { return Select(nil) }},
		{"empty table", func() (Statement, error) { return Select("") }},
		{"empty list", func() (Statement, error) { return Select([]any{}) }},
		{"nested list", func() (Statement, error) { return Select([]any{[]any{"a"}}) }},
		{"nil record pointer", func() (Statement, error) { return Select((*models.RecordID)(nil)) }},
		{"merge without data", func() (Statement, error) { return Merge("person", nil) }},
		{"patch without data", func() (Statement, error) { return Patch("person", nil) }},
		{"live on record", func() (Statement, error) { return Live(models.NewRecordID("a", 1), false) }},
		{"kill with number", func() (Statement, error) { return Kill(42) }},
		{"return bad name", func() (Statement, error) { return Return("bad name") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.build()
			assert.ErrorIs(t, err, constants.ErrInvalidParams)
		})
	}
}

func TestLiveDiffAndKill(t *testing.T) {
	stmt, err := Live("person", true)
	require.NoError(t, err)
	assert.Equal(t, "LIVE SELECT DIFF FROM type::table($table_1)", stmt.Text)

	u, err := models.NewUUID()
	require.NoError(t, err)

	stmt, err = Kill(&u)
	require.NoError(t, err)
	assert.Equal(t, "KILL type::string($id_1)", stmt.Text)
	assert.Equal(t, u, stmt.Vars["id_1"])
}

func TestReturn(t *testing.T) {
	stmt, err := Return("x")
	require.NoError(t, err)
	assert.Equal(t, "RETURN $x", stmt.Text)
	assert.True(t, stmt.One)
}
