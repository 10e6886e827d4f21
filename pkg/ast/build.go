package ast

// Expression constructors, one per variant, so models read close to Clafer
// source: Equal(Add(JoinRef(Join(This(), cost)), Const(3)), Const(5)).

func This() Expr                            { return &ThisExpr{} }
func Global(e *Entity) Expr                 { return &GlobalExpr{Entity: e} }
func Join(left Expr, child *Entity) Expr    { return &JoinExpr{Left: left, Child: child} }
func JoinParent(children Expr) Expr         { return &JoinParentExpr{Children: children} }
func JoinRef(deref Expr) Expr               { return &JoinRefExpr{Deref: deref} }
func Upcast(base Expr, target *Entity) Expr { return &UpcastExpr{Base: base, Target: target} }

// NewLocal creates a quantifier-bound variable.
func NewLocal(name string) *Local { return &Local{Name: name} }

// Declare binds locals to the elements of body.
func Declare(body Expr, locals ...*Local) *Decl { return &Decl{Locals: locals, Body: body} }

// DisjDeclare binds locals to pairwise distinct elements of body.
func DisjDeclare(body Expr, locals ...*Local) *Decl {
	return &Decl{Disjoint: true, Locals: locals, Body: body}
}

func Union(a, b Expr) Expr        { return &SetArith{Op: OpUnion, Left: a, Right: b} }
func Intersection(a, b Expr) Expr { return &SetArith{Op: OpIntersection, Left: a, Right: b} }
func Difference(a, b Expr) Expr   { return &SetArith{Op: OpDifference, Left: a, Right: b} }

func Const(v int) Expr      { return &Constant{Value: v} }
func Str(s string) Expr     { return &StringConstant{Value: s} }
func BoolConst(b bool) Expr { return &BoolConstant{Value: b} }

func CardOf(set Expr) Expr { return &CardExpr{Set: set} }
func Sum(set Expr) Expr    { return &SumExpr{Set: set} }
func Length(s Expr) Expr   { return &LengthExpr{Of: s} }

func Add(operands ...Expr) Expr { return &Arith{Op: OpAdd, Operands: operands} }
func Sub(operands ...Expr) Expr { return &Arith{Op: OpSub, Operands: operands} }
func Mul(operands ...Expr) Expr { return &Arith{Op: OpMul, Operands: operands} }
func Minus(e Expr) Expr         { return &MinusExpr{Expr: e} }

func Equal(a, b Expr) Expr            { return &Compare{Op: OpEqual, Left: a, Right: b} }
func NotEqual(a, b Expr) Expr         { return &Compare{Op: OpNotEqual, Left: a, Right: b} }
func LessThan(a, b Expr) Expr         { return &Compare{Op: OpLessThan, Left: a, Right: b} }
func LessThanEqual(a, b Expr) Expr    { return &Compare{Op: OpLessThanEqual, Left: a, Right: b} }
func GreaterThan(a, b Expr) Expr      { return &Compare{Op: OpGreaterThan, Left: a, Right: b} }
func GreaterThanEqual(a, b Expr) Expr { return &Compare{Op: OpGreaterThanEqual, Left: a, Right: b} }

func And(operands ...Expr) Expr { return &Bool{Op: OpAnd, Operands: operands} }
func Or(operands ...Expr) Expr  { return &Bool{Op: OpOr, Operands: operands} }
func Xor(operands ...Expr) Expr { return &Bool{Op: OpXor, Operands: operands} }
func Implies(a, b Expr) Expr    { return &Bool{Op: OpImplies, Operands: []Expr{a, b}} }
func IfOnlyIf(a, b Expr) Expr   { return &Bool{Op: OpIfOnlyIf, Operands: []Expr{a, b}} }
func Not(e Expr) Expr           { return &NotExpr{Expr: e} }

func IfThenElse(cond, then, els Expr) Expr { return &IfThenElseExpr{Cond: cond, Then: then, Else: els} }

func Some(set Expr) Expr { return &SetTest{Op: TestSome, Set: set} }
func No(set Expr) Expr   { return &SetTest{Op: TestNo, Set: set} }
func Lone(set Expr) Expr { return &SetTest{Op: TestLone, Set: set} }
func One(set Expr) Expr  { return &SetTest{Op: TestOne, Set: set} }

func In(a, b Expr) Expr    { return &Membership{Left: a, Right: b} }
func NotIn(a, b Expr) Expr { return &Membership{NotIn: true, Left: a, Right: b} }

// Quantify builds a quantified expression.
func Quantify(q Quant, body Expr, decls ...*Decl) Expr {
	return &Quantified{Quant: q, Decls: decls, Body: body}
}

// All requires body for every binding of decls.
func All(body Expr, decls ...*Decl) Expr { return Quantify(QuantAll, body, decls...) }

// Exists requires body for at least one binding of decls.
func Exists(body Expr, decls ...*Decl) Expr { return Quantify(QuantSome, body, decls...) }

func Prefix(prefix, word Expr) Expr { return &StringTest{Op: OpPrefix, Left: prefix, Right: word} }
func Suffix(suffix, word Expr) Expr { return &StringTest{Op: OpSuffix, Left: suffix, Right: word} }
