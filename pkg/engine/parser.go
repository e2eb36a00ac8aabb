package engine

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrParse is wrapped by every syntax error.
var ErrParse = errors.New("parse error")

type Parser struct {
	lexer *Lexer
}

func NewParser(text string) *Parser {
	return &Parser{lexer: NewLexer(text)}
}

func (parser *Parser) errorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrParse, fmt.Sprintf(format, args...))
}

func (parser *Parser) expect(tt TokenType) (Token, error) {
	token := parser.lexer.NextToken()
	if token.Type != tt {
		return token, parser.errorf("expected %s, found %s", tt, token)
	}
	return token, nil
}

func (parser *Parser) expectKeyword(kw string) error {
	token := parser.lexer.NextToken()
	if !token.Is(kw) {
		return parser.errorf("expected %s, found %s", kw, token)
	}
	return nil
}

// Parse parses one statement. It returns a nil Statement for text that
// holds only whitespace or comments.
func (parser *Parser) Parse() (Statement, error) {
	token := parser.lexer.NextToken()
	if token.Type == EOF {
		return nil, nil
	}
	if token.Type != Identifier || token.Quoted {
		return nil, parser.errorf("unexpected %s at start of statement", token)
	}

	var (
		stmt Statement
		err  error
	)
	switch strings.ToUpper(token.Value) {
	case "CREATE":
		stmt, err = parser.parseCreate()
	case "UPDATE":
		stmt, err = parser.parseUpdate()
	case "SELECT":
		stmt, err = parser.parseSelect()
	case "DELETE":
		stmt, err = parser.parseDelete()
	case "RETURN":
		stmt, err = parser.parseReturn()
	case "LET":
		stmt, err = parser.parseLet()
	case "LIVE":
		stmt, err = parser.parseLive()
	case "KILL":
		stmt, err = parser.parseKill()
	default:
		return nil, parser.errorf("unknown statement %s", token.Value)
	}
	if err != nil {
		return nil, err
	}

	if token := parser.lexer.NextToken(); token.Type != EOF {
		return nil, parser.errorf("unexpected %s after statement", token)
	}
	return stmt, nil
}

func (parser *Parser) parseTargets() ([]Expr, error) {
	var targets []Expr
	for {
		target, err := parser.parseExpr()
		if err != nil {
			return nil, err
		}
		targets = append(targets, target)

		if parser.lexer.PeekToken().Type != Comma {
			return targets, nil
		}
		parser.lexer.NextToken()
	}
}

func (parser *Parser) parseData(allowed ...DataKind) (DataClause, error) {
	token := parser.lexer.PeekToken()
	if token.Type != Identifier || token.Quoted {
		return DataClause{}, nil
	}

	var kind DataKind
	switch strings.ToUpper(token.Value) {
	case "CONTENT":
		kind = DataContent
	case "MERGE":
		kind = DataMerge
	case "PATCH":
		kind = DataPatch
	default:
		return DataClause{}, nil
	}

	permitted := false
	for _, k := range allowed {
		permitted = permitted || k == kind
	}
	if !permitted {
		return DataClause{}, parser.errorf("unexpected %s", token.Value)
	}

	parser.lexer.NextToken()
	value, err := parser.parseExpr()
	if err != nil {
		return DataClause{}, err
	}
	return DataClause{Kind: kind, Value: value}, nil
}

func (parser *Parser) parseOutput() (Output, error) {
	if !parser.lexer.PeekToken().Is("RETURN") {
		return OutputDefault, nil
	}
	parser.lexer.NextToken()

	token := parser.lexer.NextToken()
	switch {
	case token.Is("NONE"):
		return OutputNone, nil
	case token.Is("BEFORE"):
		return OutputBefore, nil
	case token.Is("AFTER"):
		return OutputAfter, nil
	case token.Is("DIFF"):
		return OutputDiff, nil
	}
	return OutputDefault, parser.errorf("expected NONE, BEFORE, AFTER or DIFF after RETURN, found %s", token)
}

func (parser *Parser) parseCreate() (Statement, error) {
	var stmt CreateStatement
	var err error

	if stmt.Targets, err = parser.parseTargets(); err != nil {
		return nil, err
	}
	if stmt.Data, err = parser.parseData(DataContent); err != nil {
		return nil, err
	}
	if stmt.Output, err = parser.parseOutput(); err != nil {
		return nil, err
	}
	return stmt, nil
}

func (parser *Parser) parseUpdate() (Statement, error) {
	var stmt UpdateStatement
	var err error

	if stmt.Targets, err = parser.parseTargets(); err != nil {
		return nil, err
	}
	if stmt.Data, err = parser.parseData(DataContent, DataMerge, DataPatch); err != nil {
		return nil, err
	}
	if stmt.Output, err = parser.parseOutput(); err != nil {
		return nil, err
	}
	return stmt, nil
}

func (parser *Parser) parseSelect() (Statement, error) {
	if _, err := parser.expect(Wildcard); err != nil {
		return nil, err
	}
	if err := parser.expectKeyword("FROM"); err != nil {
		return nil, err
	}

	targets, err := parser.parseTargets()
	if err != nil {
		return nil, err
	}
	return SelectStatement{Targets: targets}, nil
}

func (parser *Parser) parseDelete() (Statement, error) {
	if parser.lexer.PeekToken().Is("FROM") {
		parser.lexer.NextToken()
	}

	var stmt DeleteStatement
	var err error

	if stmt.Targets, err = parser.parseTargets(); err != nil {
		return nil, err
	}
	if stmt.Output, err = parser.parseOutput(); err != nil {
		return nil, err
	}
	return stmt, nil
}

func (parser *Parser) parseReturn() (Statement, error) {
	value, err := parser.parseExpr()
	if err != nil {
		return nil, err
	}
	return ReturnStatement{Value: value}, nil
}

func (parser *Parser) parseLet() (Statement, error) {
	token, err := parser.expect(Param)
	if err != nil {
		return nil, err
	}
	if _, err := parser.expect(Equals); err != nil {
		return nil, err
	}
	value, err := parser.parseExpr()
	if err != nil {
		return nil, err
	}
	return LetStatement{Name: token.Value, Value: value}, nil
}

func (parser *Parser) parseLive() (Statement, error) {
	if err := parser.expectKeyword("SELECT"); err != nil {
		return nil, err
	}

	var stmt LiveStatement
	token := parser.lexer.NextToken()
	switch {
	case token.Type == Wildcard:
	case token.Is("DIFF"):
		stmt.Diff = true
	default:
		return nil, parser.errorf("expected * or DIFF, found %s", token)
	}

	if err := parser.expectKeyword("FROM"); err != nil {
		return nil, err
	}
	target, err := parser.parseExpr()
	if err != nil {
		return nil, err
	}
	stmt.Target = target
	return stmt, nil
}

func (parser *Parser) parseKill() (Statement, error) {
	id, err := parser.parseExpr()
	if err != nil {
		return nil, err
	}
	return KillStatement{ID: id}, nil
}

func (parser *Parser) parseExpr() (Expr, error) {
	left, err := parser.parseTerm()
	if err != nil {
		return nil, err
	}
	for {
		op := parser.lexer.PeekToken().Type
		if op != Plus && op != Minus {
			return left, nil
		}
		parser.lexer.NextToken()
		right, err := parser.parseTerm()
		if err != nil {
			return nil, err
		}
		left = BinaryExpr{Op: op, Left: left, Right: right}
	}
}

func (parser *Parser) parseTerm() (Expr, error) {
	left, err := parser.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		op := parser.lexer.PeekToken().Type
		if op != Wildcard && op != Slash {
			return left, nil
		}
		parser.lexer.NextToken()
		right, err := parser.parseUnary()
		if err != nil {
			return nil, err
		}
		left = BinaryExpr{Op: op, Left: left, Right: right}
	}
}

func (parser *Parser) parseUnary() (Expr, error) {
	if parser.lexer.PeekToken().Type == Minus {
		parser.lexer.NextToken()
		x, err := parser.parseUnary()
		if err != nil {
			return nil, err
		}
		return NegExpr{X: x}, nil
	}
	return parser.parsePrimary()
}

func (parser *Parser) parsePrimary() (Expr, error) {
	token := parser.lexer.NextToken()

	switch token.Type {
	case Int:
		n, err := strconv.ParseInt(token.Value, 10, 64)
		if err != nil {
			return nil, parser.errorf("invalid integer %s", token.Value)
		}
		return LiteralExpr{Value: n}, nil
	case Float:
		f, err := strconv.ParseFloat(token.Value, 64)
		if err != nil {
			return nil, parser.errorf("invalid number %s", token.Value)
		}
		return LiteralExpr{Value: f}, nil
	case String:
		return LiteralExpr{Value: token.Value}, nil
	case Param:
		return ParamExpr{Name: token.Value}, nil
	case ParenOpen:
		x, err := parser.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := parser.expect(ParenClose); err != nil {
			return nil, err
		}
		return x, nil
	case BracketOpen:
		return parser.parseArray()
	case BraceOpen:
		return parser.parseObject()
	case Identifier:
		return parser.parseIdentifier(token)
	}
	return nil, parser.errorf("unexpected %s", token)
}

func (parser *Parser) parseArray() (Expr, error) {
	var arr ArrayExpr
	if parser.lexer.PeekToken().Type == BracketClose {
		parser.lexer.NextToken()
		return arr, nil
	}
	for {
		item, err := parser.parseExpr()
		if err != nil {
			return nil, err
		}
		arr.Items = append(arr.Items, item)

		token := parser.lexer.NextToken()
		switch token.Type {
		case Comma:
			if parser.lexer.PeekToken().Type == BracketClose {
				parser.lexer.NextToken()
				return arr, nil
			}
		case BracketClose:
			return arr, nil
		default:
			return nil, parser.errorf("expected ',' or ']', found %s", token)
		}
	}
}

func (parser *Parser) parseObject() (Expr, error) {
	var obj ObjectExpr
	for {
		token := parser.lexer.NextToken()
		switch token.Type {
		case BraceClose:
			return obj, nil
		case Identifier, String, Int:
		default:
			return nil, parser.errorf("expected object key, found %s", token)
		}

		if _, err := parser.expect(Colon); err != nil {
			return nil, err
		}
		value, err := parser.parseExpr()
		if err != nil {
			return nil, err
		}
		obj.Keys = append(obj.Keys, token.Value)
		obj.Values = append(obj.Values, value)

		next := parser.lexer.NextToken()
		switch next.Type {
		case Comma:
		case BraceClose:
			return obj, nil
		default:
			return nil, parser.errorf("expected ',' or '}', found %s", next)
		}
	}
}

func (parser *Parser) parseIdentifier(token Token) (Expr, error) {
	if !token.Quoted {
		switch strings.ToUpper(token.Value) {
		case "TRUE":
			return LiteralExpr{Value: true}, nil
		case "FALSE":
			return LiteralExpr{Value: false}, nil
		case "NULL":
			return LiteralExpr{Value: nil}, nil
		case "NONE":
			return LiteralExpr{Value: none}, nil
		}
	}

	switch parser.lexer.PeekToken().Type {
	case DoubleColon:
		return parser.parseCall(token.Value)
	case Colon:
		parser.lexer.NextToken()
		return parser.parseThing(token.Value)
	}
	return IdentExpr{Name: token.Value}, nil
}

func (parser *Parser) parseCall(first string) (Expr, error) {
	name := first
	for parser.lexer.PeekToken().Type == DoubleColon {
		parser.lexer.NextToken()
		part, err := parser.expect(Identifier)
		if err != nil {
			return nil, err
		}
		name += "::" + part.Value
	}
	if _, err := parser.expect(ParenOpen); err != nil {
		return nil, err
	}

	call := CallExpr{Name: strings.ToLower(name)}
	if parser.lexer.PeekToken().Type == ParenClose {
		parser.lexer.NextToken()
		return call, nil
	}
	for {
		arg, err := parser.parseExpr()
		if err != nil {
			return nil, err
		}
		call.Args = append(call.Args, arg)

		token := parser.lexer.NextToken()
		switch token.Type {
		case Comma:
		case ParenClose:
			return call, nil
		default:
			return nil, parser.errorf("expected ',' or ')', found %s", token)
		}
	}
}

// parseThing parses the id part of a record literal, including ranges.
func (parser *Parser) parseThing(table string) (Expr, error) {
	var begin Expr
	if startsID(parser.lexer.PeekToken()) {
		id, err := parser.parseID()
		if err != nil {
			return nil, err
		}
		begin = id
	}

	rng := RangeExpr{Begin: begin}
	switch parser.lexer.PeekToken().Type {
	case GreaterThan:
		parser.lexer.NextToken()
		if _, err := parser.expect(DotDot); err != nil {
			return nil, err
		}
		rng.BeginExcluded = true
	case DotDot:
		parser.lexer.NextToken()
	default:
		if begin == nil {
			return nil, parser.errorf("expected record id after %s:", table)
		}
		return ThingExpr{Table: table, ID: begin}, nil
	}

	if parser.lexer.PeekToken().Type == Equals {
		parser.lexer.NextToken()
		rng.EndIncluded = true
	}
	if startsID(parser.lexer.PeekToken()) {
		end, err := parser.parseID()
		if err != nil {
			return nil, err
		}
		rng.End = end
	} else if rng.EndIncluded {
		return nil, parser.errorf("expected range end after ..=")
	}
	return ThingExpr{Table: table, ID: rng}, nil
}

// startsID reports whether token can begin a record id. Clause keywords
// cannot, so "person:1.. RETURN NONE" leaves the range open.
func startsID(token Token) bool {
	switch token.Type {
	case Int, Minus, String, BracketOpen, BraceOpen, Param:
		return true
	case Identifier:
		for _, kw := range []string{"RETURN", "CONTENT", "MERGE", "PATCH"} {
			if token.Is(kw) {
				return false
			}
		}
		return true
	}
	return false
}

func (parser *Parser) parseID() (Expr, error) {
	token := parser.lexer.PeekToken()
	switch token.Type {
	case BracketOpen, BraceOpen, Param:
		return parser.parsePrimary()
	case Minus:
		parser.lexer.NextToken()
		n, err := parser.expect(Int)
		if err != nil {
			return nil, err
		}
		v, err := strconv.ParseInt("-"+n.Value, 10, 64)
		if err != nil {
			return nil, parser.errorf("invalid integer -%s", n.Value)
		}
		return LiteralExpr{Value: v}, nil
	case Int:
		parser.lexer.NextToken()
		v, err := strconv.ParseInt(token.Value, 10, 64)
		if err != nil {
			return nil, parser.errorf("invalid integer %s", token.Value)
		}
		return LiteralExpr{Value: v}, nil
	}
	parser.lexer.NextToken()
	return LiteralExpr{Value: token.Value}, nil
}

// Parse parses a single statement.
func Parse(text string) (Statement, error) {
	return NewParser(text).Parse()
}
