package statement

import (
	"fmt"
	"strings"

	"github.com/surrealkit/surrealdb.go/pkg/constants"
	"github.com/surrealkit/surrealdb.go/pkg/models"
)

// Create renders CREATE <what> [CONTENT $data] RETURN AFTER.
// A nil data creates records with no content.
func Create(what, data any) (Statement, error) {
	return write("CREATE", "CONTENT", what, data, false, ReturnAfterClause)
}

// Update renders UPDATE <what> [CONTENT $data] RETURN AFTER.
func Update(what, data any) (Statement, error) {
	return write("UPDATE", "CONTENT", what, data, false, ReturnAfterClause)
}

// Merge renders UPDATE <what> MERGE $data RETURN AFTER.
func Merge(what, data any) (Statement, error) {
	return write("UPDATE", "MERGE", what, data, true, ReturnAfterClause)
}

// Patch renders UPDATE <what> PATCH $data RETURN DIFF.
func Patch(what, data any) (Statement, error) {
	return write("UPDATE", "PATCH", what, data, true, ReturnDiffClause)
}

func write(verb, dataClause string, what, data any, dataRequired bool, ret string) (Statement, error) {
	c := newBuildContext()

	targets, err := c.targets(what)
	if err != nil {
		return Statement{}, err
	}

	var b strings.Builder
	b.WriteString(verb)
	b.WriteString(" ")
	b.WriteString(targets)

	switch {
	case data != nil:
		b.WriteString(" " + dataClause + " $")
		b.WriteString(c.generateAndAddParam("data", data))
	case dataRequired:
		return Statement{}, fmt.Errorf("%w: %s requires data", constants.ErrInvalidParams, dataClause)
	}

	b.WriteString(" RETURN ")
	b.WriteString(ret)

	return c.finish(b.String(), IsThing(what)), nil
}

// Select renders SELECT * FROM <what>.
func Select(what any) (Statement, error) {
	c := newBuildContext()
	targets, err := c.targets(what)
	if err != nil {
		return Statement{}, err
	}
	return c.finish("SELECT * FROM "+targets, IsThing(what)), nil
}

// Delete renders DELETE <what> RETURN NONE. A models.RecordRange target
// only deletes the records inside the range.
func Delete(what any) (Statement, error) {
	c := newBuildContext()
	targets, err := c.targets(what)
	if err != nil {
		return Statement{}, err
	}
	return c.finish("DELETE "+targets+" RETURN "+ReturnNoneClause, IsThing(what)), nil
}

// Live renders a live select over the named table.
func Live(table any, diff bool) (Statement, error) {
	var name string
	switch v := table.(type) {
	case models.Table:
		name = string(v)
	case string:
		name = v
	default:
		return Statement{}, fmt.Errorf("%w: live queries need a table, got %T", constants.ErrInvalidParams, table)
	}
	if name == "" {
		return Statement{}, fmt.Errorf("%w: empty table name", constants.ErrInvalidParams)
	}

	c := newBuildContext()
	fields := "*"
	if diff {
		fields = ReturnDiffClause
	}
	param := c.generateAndAddParam("table", name)
	return c.finish(fmt.Sprintf("LIVE SELECT %s FROM type::table($%s)", fields, param), true), nil
}

// Kill renders a statement cancelling the live query id.
func Kill(id any) (Statement, error) {
	switch v := id.(type) {
	case models.UUID:
	case *models.UUID:
		if v == nil {
			return Statement{}, fmt.Errorf("%w: nil live query id", constants.ErrInvalidParams)
		}
		id = *v
	case string:
		if v == "" {
			return Statement{}, fmt.Errorf("%w: empty live query id", constants.ErrInvalidParams)
		}
	default:
		return Statement{}, fmt.Errorf("%w: live query id must be a UUID, got %T", constants.ErrInvalidParams, id)
	}

	c := newBuildContext()
	param := c.generateAndAddParam("id", id)
	return c.finish(fmt.Sprintf("KILL type::string($%s)", param), true), nil
}

// Return renders RETURN $name. It is run before a session variable is
// stored so a bad value fails before the store changes.
func Return(name string) (Statement, error) {
	if !IsValidVarName(name) {
		return Statement{}, fmt.Errorf("%w: invalid variable name %q", constants.ErrInvalidParams, name)
	}
	return Statement{Text: "RETURN $" + name, Vars: map[string]any{}, One: true}, nil
}
