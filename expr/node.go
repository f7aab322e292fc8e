package expr

// Expr is a boolean filter expression. The set of implementations is closed:
// Compare, And, Or, Not, IsNull, In and Call.
type Expr interface {
	exprNode()
}

// Update is a column assignment of an UPDATE statement. The set of
// implementations is closed: Set, Increment and SetNull.
type Update interface {
	updateNode()
}

// Op is a comparison operator.
type Op string

// Comparison operators.
const (
	OpEQ  Op = "="
	OpNEQ Op = "<>"
	OpLT  Op = "<"
	OpLTE Op = "<="
	OpGT  Op = ">"
	OpGTE Op = ">="
)

// Valid reports whether op is a supported comparison operator.
func (op Op) Valid() bool {
	switch op {
	case OpEQ, OpNEQ, OpLT, OpLTE, OpGT, OpGTE:
		return true
	}
	return false
}

// Method is an allow-listed string method rendered with LIKE.
type Method string

// String methods.
const (
	Contains      Method = "Contains"
	HasPrefix     Method = "HasPrefix"
	HasSuffix     Method = "HasSuffix"
	ContainsFold  Method = "ContainsFold"
	HasPrefixFold Method = "HasPrefixFold"
	HasSuffixFold Method = "HasSuffixFold"
	EqualFold     Method = "EqualFold"
)

// Compare compares a column with a value. A nil value is only valid with
// OpEQ and OpNEQ and renders IS NULL and IS NOT NULL.
type Compare struct {
	Column string
	Op     Op
	Value  any
}

// And is the conjunction of its operands. An empty And is true.
type And []Expr

// Or is the disjunction of its operands. An empty Or is false.
type Or []Expr

// Not negates X.
type Not struct {
	X Expr
}

// IsNull checks a column for NULL, or for NOT NULL when Negate is set.
type IsNull struct {
	Column string
	Negate bool
}

// In checks membership of a column value in Values, or non-membership when
// Negate is set.
type In struct {
	Column string
	Values []any
	Negate bool
}

// Call applies a string method to a column.
type Call struct {
	Method Method
	Column string
	Arg    string
}

// Set assigns Value to a column.
type Set struct {
	Column string
	Value  any
}

// Increment adds By to a numeric column.
type Increment struct {
	Column string
	By     any
}

// SetNull assigns NULL to a nullable column.
type SetNull struct {
	Column string
}

func (Compare) exprNode() {}
func (And) exprNode()     {}
func (Or) exprNode()      {}
func (Not) exprNode()     {}
func (IsNull) exprNode()  {}
func (In) exprNode()      {}
func (Call) exprNode()    {}

func (Set) updateNode()       {}
func (Increment) updateNode() {}
func (SetNull) updateNode()   {}
