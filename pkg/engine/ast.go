package engine

type StatementType int

const (
	CreateStatementType StatementType = iota
	UpdateStatementType
	SelectStatementType
	DeleteStatementType
	ReturnStatementType
	LetStatementType
	LiveStatementType
	KillStatementType
)

type Statement interface {
	Type() StatementType
}

// Output is the RETURN clause of a write statement.
type Output int

const (
	OutputDefault Output = iota
	OutputNone
	OutputBefore
	OutputAfter
	OutputDiff
)

// DataKind selects how a write statement applies its data.
type DataKind int

const (
	DataNone DataKind = iota
	DataContent
	DataMerge
	DataPatch
)

type DataClause struct {
	Kind  DataKind
	Value Expr
}

type CreateStatement struct {
	Targets []Expr
	Data    DataClause
	Output  Output
}

type UpdateStatement struct {
	Targets []Expr
	Data    DataClause
	Output  Output
}

type SelectStatement struct {
	Targets []Expr
}

type DeleteStatement struct {
	Targets []Expr
	Output  Output
}

type ReturnStatement struct {
	Value Expr
}

type LetStatement struct {
	Name  string
	Value Expr
}

type LiveStatement struct {
	Diff   bool
	Target Expr
}

type KillStatement struct {
	ID Expr
}

func (s CreateStatement) Type() StatementType { return CreateStatementType }
func (s UpdateStatement) Type() StatementType { return UpdateStatementType }
func (s SelectStatement) Type() StatementType { return SelectStatementType }
func (s DeleteStatement) Type() StatementType { return DeleteStatementType }
func (s ReturnStatement) Type() StatementType { return ReturnStatementType }
func (s LetStatement) Type() StatementType    { return LetStatementType }
func (s LiveStatement) Type() StatementType   { return LiveStatementType }
func (s KillStatement) Type() StatementType   { return KillStatementType }

// Expr is a parsed expression. Evaluate it with an evaluator.
type Expr interface {
	exprNode()
}

type LiteralExpr struct {
	Value any
}

type ParamExpr struct {
	Name string
}

// IdentExpr is a bare identifier, which names a table.
type IdentExpr struct {
	Name string
}

type ArrayExpr struct {
	Items []Expr
}

type ObjectExpr struct {
	Keys   []string
	Values []Expr
}

// ThingExpr is a record literal such as person:tobie or person:1..5.
type ThingExpr struct {
	Table string
	ID    Expr
}

type RangeExpr struct {
	Begin         Expr
	End           Expr
	BeginExcluded bool
	EndIncluded   bool
}

type CallExpr struct {
	Name string
	Args []Expr
}

type BinaryExpr struct {
	Op    TokenType
	Left  Expr
	Right Expr
}

type NegExpr struct {
	X Expr
}

func (LiteralExpr) exprNode() {}
func (ParamExpr) exprNode()   {}
func (IdentExpr) exprNode()   {}
func (ArrayExpr) exprNode()   {}
func (ObjectExpr) exprNode()  {}
func (ThingExpr) exprNode()   {}
func (RangeExpr) exprNode()   {}
func (CallExpr) exprNode()    {}
func (BinaryExpr) exprNode()  {}
func (NegExpr) exprNode()     {}
