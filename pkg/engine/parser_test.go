package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCreate(t *testing.T) {
	stmt, err := Parse("CREATE person:tobie CONTENT $data_1 RETURN AFTER")
	require.NoError(t, err)

	assert.Equal(t, CreateStatement{
		Targets: []Expr{ThingExpr{Table: "person", ID: LiteralExpr{Value: "tobie"}}},
		Data:    DataClause{Kind: DataContent, Value: ParamExpr{Name: "data_1"}},
		Output:  OutputAfter,
	}, stmt)
}

func TestParseUpdateKinds(t *testing.T) {
	cases := map[string]DataKind{
		"UPDATE person CONTENT {}":     DataContent,
		"UPDATE person MERGE {}":       DataMerge,
		"update person patch []":       DataPatch,
		"UPDATE person RETURN BEFORE":  DataNone,
		"UPDATE $what_1, $what_2":      DataNone,
		"UPDATE person:1.. MERGE $x_1": DataMerge,
	}
	for text, kind := range cases {
		stmt, err := Parse(text)
		require.NoError(t, err, text)
		update, ok := stmt.(UpdateStatement)
		require.True(t, ok, text)
		assert.Equal(t, kind, update.Data.Kind, text)
	}
}

func TestParseRange(t *testing.T) {
	stmt, err := Parse("DELETE person:1>..=5 RETURN NONE")
	require.NoError(t, err)

	del := stmt.(DeleteStatement)
	assert.Equal(t, OutputNone, del.Output)
	assert.Equal(t, ThingExpr{Table: "person", ID: RangeExpr{
		Begin:         LiteralExpr{Value: int64(1)},
		End:           LiteralExpr{Value: int64(5)},
		BeginExcluded: true,
		EndIncluded:   true,
	}}, del.Targets[0])
}

func TestParseOpenRange(t *testing.T) {
	stmt, err := Parse("SELECT * FROM person:..")
	require.NoError(t, err)

	assert.Equal(t, SelectStatement{Targets: []Expr{ThingExpr{Table: "person", ID: RangeExpr{}}}}, stmt)
}

func TestParseLiveAndKill(t *testing.T) {
	stmt, err := Parse("LIVE SELECT DIFF FROM type::table($table_1)")
	require.NoError(t, err)
	assert.Equal(t, LiveStatement{
		Diff:   true,
		Target: CallExpr{Name: "type::table", Args: []Expr{ParamExpr{Name: "table_1"}}},
	}, stmt)

	stmt, err = Parse("KILL type::string($id_1)")
	require.NoError(t, err)
	assert.Equal(t, KillStatementType, stmt.Type())
}

func TestParseLet(t *testing.T) {
	stmt, err := Parse("LET $x = 1 + 2 * 3")
	require.NoError(t, err)

	assert.Equal(t, LetStatement{Name: "x", Value: BinaryExpr{
		Op:   Plus,
		Left: LiteralExpr{Value: int64(1)},
		Right: BinaryExpr{
			Op:    Wildcard,
			Left:  LiteralExpr{Value: int64(2)},
			Right: LiteralExpr{Value: int64(3)},
		},
	}}, stmt)
}

func TestParseEmpty(t *testing.T) {
	stmt, err := Parse("  -- nothing here")
	require.NoError(t, err)
	assert.Nil(t, stmt)
}

func TestParseErrors(t *testing.T) {
	for _, text := range []string{
		"DROP TABLE person",
		"SELECT name FROM person",
		"CREATE person MERGE {}",
		"CREATE person:",
		"RETURN [1, 2",
		"RETURN 1 2",
		"DELETE person:1..= RETURN NONE",
		"UPDATE person RETURN EVERYTHING",
		"`CREATE` person",
	} {
		_, err := Parse(text)
		assert.ErrorIs(t, err, ErrParse, text)
	}
}
