// Package statement renders router commands as SurrealQL.
//
// Every builder is pure: it returns the statement text, the variables the
// text refers to, and whether the caller expects a single record back.
// Targets that are tables are written inline as identifiers; every other
// value is bound as a $prefix_N parameter.
package statement

import (
	"fmt"
	"strings"

	"github.com/surrealkit/surrealdb.go/pkg/constants"
	"github.com/surrealkit/surrealdb.go/pkg/models"
)

// Constants for the return clauses used by the builders
const (
	ReturnNoneClause  = "NONE"
	ReturnDiffClause  = "DIFF"
	ReturnAfterClause = "AFTER"
)

// Statement is one rendered SurrealQL statement.
type Statement struct {
	Text string
	Vars map[string]any
	// One is set when the target is a single record id.
	One bool
}

func (s Statement) String() string {
	return s.Text
}

// buildContext collects bound parameters so their names are unique within a statement.
type buildContext struct {
	vars map[string]any
}

func newBuildContext() *buildContext {
	return &buildContext{vars: make(map[string]any)}
}

func (c *buildContext) generateParamName(prefix string) string {
	for i := 1; ; i++ {
		name := fmt.Sprintf("%s_%d", prefix, i)
		if _, exists := c.vars[name]; !exists {
			return name
		}
	}
}

func (c *buildContext) generateAndAddParam(prefix string, value any) string {
	name := c.generateParamName(prefix)
	c.vars[name] = value
	return name
}

func (c *buildContext) finish(text string, one bool) Statement {
	return Statement{Text: text, Vars: c.vars, One: one}
}

// IsThing reports whether what names exactly one record.
func IsThing(what any) bool {
	switch v := what.(type) {
	case models.RecordID:
		return !v.IsRange()
	case *models.RecordID:
		return v != nil && !v.IsRange()
	}
	return false
}

// targets renders what as a comma separated target list. Arrays are
// flattened one level, so [person, person:1] becomes "person, $what_1".
func (c *buildContext) targets(what any) (string, error) {
	list, ok := what.([]any)
	if !ok {
		return c.target(what)
	}
	if len(list) == 0 {
		return "", fmt.Errorf("%w: empty target list", constants.ErrInvalidParams)
	}

	parts := make([]string, 0, len(list))
	for _, item := range list {
		if _, nested := item.([]any); nested {
			return "", fmt.Errorf("%w: nested target lists are not supported", constants.ErrInvalidParams)
		}
		part, err := c.target(item)
		if err != nil {
			return "", err
		}
		parts = append(parts, part)
	}
	return strings.Join(parts, ", "), nil
}

func (c *buildContext) target(what any) (string, error) {
	switch v := what.(type) {
	case nil:
		return "", fmt.Errorf("%w: missing target", constants.ErrInvalidParams)
	case models.Table:
		return table(string(v))
	case string:
		return table(v)
	case *models.RecordID:
		if v == nil {
			return "", fmt.Errorf("%w: nil record id", constants.ErrInvalidParams)
		}
		return "$" + c.generateAndAddParam("what", *v), nil
	case *models.RecordRange:
		if v == nil {
			return "", fmt.Errorf("%w: nil record range", constants.ErrInvalidParams)
		}
		return "$" + c.generateAndAddParam("what", v.RecordID()), nil
	case models.RecordRange:
		return "$" + c.generateAndAddParam("what", v.RecordID()), nil
	}
	return "$" + c.generateAndAddParam("what", what), nil
}

func table(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("%w: empty table name", constants.ErrInvalidParams)
	}
	return escapeIdent(name), nil
}

// escapeIdent escapes an identifier for use in SurrealQL
func escapeIdent(ident string) string {
	if needsBackticks(ident) {
		return "`" + strings.ReplaceAll(ident, "`", "\\`") + "`"
	}
	return ident
}

func needsBackticks(ident string) bool {
	if isReservedWord(ident) || ident[0] >= '0' && ident[0] <= '9' {
		return true
	}
	for _, ch := range ident {
		if !isIdentRune(ch) {
			return true
		}
	}
	return false
}

func isIdentRune(ch rune) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9')
}

// isReservedWord checks if a word is a SurrealQL keyword that can't be a bare table name
func isReservedWord(word string) bool {
	reserved := []string{
		"SELECT", "FROM", "WHERE", "ORDER", "BY", "LIMIT", "START",
		"FETCH", "GROUP", "SPLIT", "RETURN", "PARALLEL", "EXPLAIN",
		"CREATE", "UPDATE", "DELETE", "RELATE", "INSERT", "DEFINE",
		"REMOVE", "INFO", "USE", "BEGIN", "CANCEL", "COMMIT",
		"IF", "ELSE", "THEN", "END", "BREAK", "CONTINUE",
		"LIVE", "KILL", "LET", "CONTENT", "MERGE", "PATCH",
		"NONE", "NULL", "TRUE", "FALSE", "DIFF", "AFTER", "BEFORE",
	}

	upperWord := strings.ToUpper(word)
	for _, r := range reserved {
		if upperWord == r {
			return true
		}
	}
	return false
}

// IsValidVarName reports whether name can be referenced as $name.
func IsValidVarName(name string) bool {
	if name == "" {
		return false
	}
	for _, ch := range name {
		if !isIdentRune(ch) {
			return false
		}
	}
	return true
}
