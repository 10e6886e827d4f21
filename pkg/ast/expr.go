// Expression tree used by constraints, objectives and assertions.
//
// Expressions are a closed set of variants. Every consumer switches over
// the concrete types exhaustively; there is no visitor interface to
// implement. Nodes are pointers, so analysis results can be keyed by node
// identity.

package ast

import (
	"fmt"
	"strconv"
	"strings"
)

// Expr is a node of the expression tree.
type Expr interface {
	fmt.Stringer
	expr()
}

// ThisExpr is the instance the enclosing constraint is evaluated for.
type ThisExpr struct{}

// GlobalExpr is the set of every instance of Entity.
type GlobalExpr struct{ Entity *Entity }

// JoinExpr navigates from a set of instances to their Child instances.
type JoinExpr struct {
	Left  Expr
	Child *Entity
}

// JoinParentExpr navigates from a set of instances to their parents.
type JoinParentExpr struct{ Children Expr }

// JoinRefExpr dereferences a set of instances: the set of their ref values.
type JoinRefExpr struct{ Deref Expr }

// UpcastExpr views a set of instances as instances of the supertype Target.
type UpcastExpr struct {
	Base   Expr
	Target *Entity
}

// Local is a variable bound by a quantifier declaration.
type Local struct{ Name string }

// Decl binds Locals to the elements of Body. Disjoint declarations bind
// pairwise distinct elements.
type Decl struct {
	Disjoint bool
	Locals   []*Local
	Body     Expr
}

// SetOp combines two sets of the same type.
type SetOp int

const (
	OpUnion SetOp = iota
	OpIntersection
	OpDifference
)

// SetArith is a binary set operation.
type SetArith struct {
	Op          SetOp
	Left, Right Expr
}

// Constant is an integer literal.
type Constant struct{ Value int }

// StringConstant is a string literal.
type StringConstant struct{ Value string }

// BoolConstant is a boolean literal.
type BoolConstant struct{ Value bool }

// CardExpr is the number of elements of a set.
type CardExpr struct{ Set Expr }

// SumExpr adds the integers of an int-valued set. Integer sets used in
// arithmetic are summed implicitly.
type SumExpr struct{ Set Expr }

// ArithOp is an integer operator.
type ArithOp int

const (
	OpAdd ArithOp = iota
	OpSub
	OpMul
)

// Arith folds Op over Operands left to right. OpMul needs every operand
// but one to be a Constant.
type Arith struct {
	Op       ArithOp
	Operands []Expr
}

// MinusExpr negates an integer.
type MinusExpr struct{ Expr Expr }

// CompareOp is a comparison operator.
type CompareOp int

const (
	OpEqual CompareOp = iota
	OpNotEqual
	OpLessThan
	OpLessThanEqual
	OpGreaterThan
	OpGreaterThanEqual
)

// Compare compares integers, or (for = and ≠) sets and strings.
type Compare struct {
	Op          CompareOp
	Left, Right Expr
}

// BoolOp is a boolean connective.
type BoolOp int

const (
	OpAnd BoolOp = iota
	OpOr
	OpXor
	OpImplies
	OpIfOnlyIf
)

// Bool folds Op over Operands. OpImplies and OpIfOnlyIf take two operands.
type Bool struct {
	Op       BoolOp
	Operands []Expr
}

// NotExpr negates a boolean.
type NotExpr struct{ Expr Expr }

// IfThenElseExpr selects Then or Else on Cond. Then and Else are both boolean
// or both integer.
type IfThenElseExpr struct{ Cond, Then, Else Expr }

// SetTestOp is a multiplicity test on a set.
type SetTestOp int

const (
	TestSome SetTestOp = iota
	TestNo
	TestLone
	TestOne
)

// SetTest checks the multiplicity of a set.
type SetTest struct {
	Op  SetTestOp
	Set Expr
}

// Membership tests Left ⊆ Right (In) or its negation (NotIn).
type Membership struct {
	NotIn       bool
	Left, Right Expr
}

// Quant is a quantifier.
type Quant int

const (
	QuantAll Quant = iota
	QuantSome
	QuantNo
	QuantLone
	QuantOne
)

// Quantified counts the bindings of Decls satisfying Body.
type Quantified struct {
	Quant Quant
	Decls []*Decl
	Body  Expr
}

// StringOp is a string predicate.
type StringOp int

const (
	OpPrefix StringOp = iota
	OpSuffix
)

// StringTest checks that Left is a prefix or suffix of Right.
type StringTest struct {
	Op          StringOp
	Left, Right Expr
}

// LengthExpr is the length of a string.
type LengthExpr struct{ Of Expr }

func (*ThisExpr) expr()       {}
func (*GlobalExpr) expr()     {}
func (*JoinExpr) expr()       {}
func (*JoinParentExpr) expr() {}
func (*JoinRefExpr) expr()    {}
func (*UpcastExpr) expr()     {}
func (*Local) expr()          {}
func (*SetArith) expr()       {}
func (*Constant) expr()       {}
func (*StringConstant) expr() {}
func (*BoolConstant) expr()   {}
func (*CardExpr) expr()       {}
func (*SumExpr) expr()        {}
func (*Arith) expr()          {}
func (*MinusExpr) expr()      {}
func (*Compare) expr()        {}
func (*Bool) expr()           {}
func (*NotExpr) expr()        {}
func (*IfThenElseExpr) expr() {}
func (*SetTest) expr()        {}
func (*Membership) expr()     {}
func (*Quantified) expr()     {}
func (*StringTest) expr()     {}
func (*LengthExpr) expr()     {}

func (*ThisExpr) String() string         { return "this" }
func (e *GlobalExpr) String() string     { return e.Entity.Name() }
func (e *JoinExpr) String() string       { return e.Left.String() + "." + e.Child.Name() }
func (e *JoinParentExpr) String() string { return e.Children.String() + ".parent" }
func (e *JoinRefExpr) String() string    { return e.Deref.String() + ".ref" }
func (e *UpcastExpr) String() string     { return "(" + e.Base.String() + " : " + e.Target.Name() + ")" }
func (e *Local) String() string          { return e.Name }
func (e *Constant) String() string       { return strconv.Itoa(e.Value) }
func (e *StringConstant) String() string { return strconv.Quote(e.Value) }
func (e *BoolConstant) String() string   { return strconv.FormatBool(e.Value) }
func (e *CardExpr) String() string       { return "#" + e.Set.String() }
func (e *SumExpr) String() string        { return "sum " + e.Set.String() }
func (e *MinusExpr) String() string      { return "-" + e.Expr.String() }
func (e *NotExpr) String() string        { return "!" + e.Expr.String() }
func (e *LengthExpr) String() string     { return "length " + e.Of.String() }

func (e *SetArith) String() string {
	return "(" + e.Left.String() + " " + [...]string{"++", "&", "--"}[e.Op] + " " + e.Right.String() + ")"
}

func (e *Arith) String() string {
	return joinExprs(e.Operands, [...]string{" + ", " - ", " * "}[e.Op])
}

func (op CompareOp) String() string {
	return [...]string{"=", "!=", "<", "<=", ">", ">="}[op]
}

func (e *Compare) String() string {
	return "(" + e.Left.String() + " " + e.Op.String() + " " + e.Right.String() + ")"
}

func (e *Bool) String() string {
	return joinExprs(e.Operands, [...]string{" && ", " || ", " xor ", " => ", " <=> "}[e.Op])
}

func (e *IfThenElseExpr) String() string {
	return "(if " + e.Cond.String() + " then " + e.Then.String() + " else " + e.Else.String() + ")"
}

func (e *SetTest) String() string {
	return [...]string{"some ", "no ", "lone ", "one "}[e.Op] + e.Set.String()
}

func (e *Membership) String() string {
	op := " in "
	if e.NotIn {
		op = " not in "
	}
	return "(" + e.Left.String() + op + e.Right.String() + ")"
}

func (q Quant) String() string {
	return [...]string{"all", "some", "no", "lone", "one"}[q]
}

func (d *Decl) String() string {
	names := make([]string, len(d.Locals))
	for i, l := range d.Locals {
		names[i] = l.Name
	}
	prefix := ""
	if d.Disjoint {
		prefix = "disj "
	}
	return prefix + strings.Join(names, ", ") + " : " + d.Body.String()
}

func (e *Quantified) String() string {
	decls := make([]string, len(e.Decls))
	for i, d := range e.Decls {
		decls[i] = d.String()
	}
	return "(" + e.Quant.String() + " " + strings.Join(decls, "; ") + " | " + e.Body.String() + ")"
}

func (e *StringTest) String() string {
	return "(" + e.Left.String() + [...]string{" prefix ", " suffix "}[e.Op] + e.Right.String() + ")"
}

func joinExprs(es []Expr, sep string) string {
	parts := make([]string, len(es))
	for i, e := range es {
		parts[i] = e.String()
	}
	return "(" + strings.Join(parts, sep) + ")"
}
