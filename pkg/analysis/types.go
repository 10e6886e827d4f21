package analysis

// Type resolution: assigns a Type to every expression node of every
// constraint, objective and assertion, and rejects ill-typed expressions.

import "github.com/gitrdm/goclafer/pkg/ast"

// TypeKind classifies expression values.
type TypeKind int

const (
	TypeBool TypeKind = iota
	TypeInt
	TypeString
	// TypeSet is a set of instances of Elem. Elem is an entity, ast.IntType
	// (sets of integers from int references) or ast.StringType.
	TypeSet
)

// Type is the static type of an expression.
type Type struct {
	Kind TypeKind
	Elem *ast.Entity
}

func (t Type) String() string {
	switch t.Kind {
	case TypeBool:
		return "bool"
	case TypeInt:
		return "int"
	case TypeString:
		return "string"
	}
	return "set of " + t.Elem.Name()
}

var (
	boolType   = Type{Kind: TypeBool}
	intType    = Type{Kind: TypeInt}
	stringType = Type{Kind: TypeString}
)

func setOf(e *ast.Entity) Type { return Type{Kind: TypeSet, Elem: e} }

// IsIntLike reports whether t can be used as an integer: an int, or a set
// of integers that is implicitly summed.
func (t Type) IsIntLike() bool {
	return t.Kind == TypeInt || (t.Kind == TypeSet && t.Elem == ast.IntType)
}

// IsStringLike reports whether t is a string or a set of strings.
func (t Type) IsStringLike() bool {
	return t.Kind == TypeString || (t.Kind == TypeSet && t.Elem == ast.StringType)
}

// IsEntitySet reports whether t is a set of entity instances.
func (t Type) IsEntitySet() bool {
	return t.Kind == TypeSet && !t.Elem.IsPrimitive()
}

type typer struct {
	r     *Result
	owner *ast.Entity // the entity "this" refers to
}

func analyzeTypes(r *Result) error {
	r.types = make(map[ast.Expr]Type)
	for _, e := range r.model.Entities() {
		for _, c := range e.Constraints() {
			if err := checkBool(r, e, c.Expr()); err != nil {
				return err
			}
		}
	}
	root := r.model.Root()
	for _, c := range root.Constraints() {
		if err := checkBool(r, root, c.Expr()); err != nil {
			return err
		}
	}
	for _, o := range r.model.Objectives() {
		t, err := (&typer{r: r, owner: root}).typeOf(o.Expr())
		if err != nil {
			return err
		}
		if !t.IsIntLike() {
			return ast.Invariant(nil, "objective %s has type %s, want int", o.Expr(), t)
		}
	}
	for _, a := range r.model.Assertions() {
		if err := checkBool(r, root, a.Expr()); err != nil {
			return err
		}
	}
	return nil
}

func checkBool(r *Result, owner *ast.Entity, e ast.Expr) error {
	t, err := (&typer{r: r, owner: owner}).typeOf(e)
	if err != nil {
		return err
	}
	if t.Kind != TypeBool {
		return ast.Invariant(owner, "constraint %s has type %s, want bool", e, t)
	}
	return nil
}

func (ty *typer) typeOf(e ast.Expr) (Type, error) {
	t, err := ty.resolve(e)
	if err != nil {
		return Type{}, err
	}
	if _, ok := e.(*ast.ThisExpr); ok {
		return t, nil
	}
	if old, ok := ty.r.types[e]; ok && old != t {
		return Type{}, ast.Invariant(ty.owner, "expression %s is shared with conflicting types %s and %s", e, old, t)
	}
	ty.r.types[e] = t
	return t, nil
}

func (ty *typer) fail(format string, args ...any) (Type, error) {
	return Type{}, ast.Invariant(ty.owner, format, args...)
}

func (ty *typer) resolve(e ast.Expr) (Type, error) {
	switch e := e.(type) {
	case *ast.ThisExpr:
		return setOf(ty.owner), nil

	case *ast.GlobalExpr:
		if e.Entity == nil || e.Entity.IsPrimitive() {
			return ty.fail("global of %v", e.Entity)
		}
		return setOf(e.Entity), nil

	case *ast.Local:
		if t, ok := ty.r.types[e]; ok {
			return t, nil
		}
		return ty.fail("local %s used outside its declaration", e.Name)

	case *ast.JoinExpr:
		lt, err := ty.entitySet(e.Left)
		if err != nil {
			return Type{}, err
		}
		if e.Child == nil || e.Child.Parent() == nil || !lt.Elem.IsSubOf(e.Child.Parent()) {
			return ty.fail("%s is not a child of %s", e.Child, lt.Elem)
		}
		return setOf(e.Child), nil

	case *ast.JoinParentExpr:
		lt, err := ty.entitySet(e.Children)
		if err != nil {
			return Type{}, err
		}
		if !lt.Elem.IsConcrete() {
			return ty.fail("%s has no parent", lt.Elem)
		}
		return setOf(lt.Elem.Parent()), nil

	case *ast.JoinRefExpr:
		lt, err := ty.entitySet(e.Deref)
		if err != nil {
			return Type{}, err
		}
		ref := lt.Elem.EffectiveRef()
		if ref == nil {
			return ty.fail("%s has no ref", lt.Elem)
		}
		return setOf(ref.Target()), nil

	case *ast.UpcastExpr:
		lt, err := ty.entitySet(e.Base)
		if err != nil {
			return Type{}, err
		}
		if e.Target == nil || !lt.Elem.IsSubOf(e.Target) {
			return ty.fail("cannot upcast %s to %v", lt.Elem, e.Target)
		}
		return setOf(e.Target), nil

	case *ast.SetArith:
		lt, err := ty.set(e.Left)
		if err != nil {
			return Type{}, err
		}
		rt, err := ty.set(e.Right)
		if err != nil {
			return Type{}, err
		}
		elem := commonSuper(lt.Elem, rt.Elem)
		if elem == nil {
			return ty.fail("%s: incompatible operands %s and %s", e, lt, rt)
		}
		return setOf(elem), nil

	case *ast.Constant:
		return intType, nil
	case *ast.StringConstant:
		return stringType, nil
	case *ast.BoolConstant:
		return boolType, nil

	case *ast.CardExpr:
		if _, err := ty.set(e.Set); err != nil {
			return Type{}, err
		}
		return intType, nil

	case *ast.SumExpr:
		st, err := ty.set(e.Set)
		if err != nil {
			return Type{}, err
		}
		if st.Elem != ast.IntType {
			return ty.fail("sum over %s", st)
		}
		return intType, nil

	case *ast.Arith:
		if len(e.Operands) == 0 {
			return ty.fail("arithmetic without operands")
		}
		consts := 0
		for _, op := range e.Operands {
			if err := ty.expectInt(op); err != nil {
				return Type{}, err
			}
			if _, ok := op.(*ast.Constant); ok {
				consts++
			}
		}
		if e.Op == ast.OpMul && consts < len(e.Operands)-1 {
			return ty.fail("%s multiplies more than one variable", e)
		}
		return intType, nil

	case *ast.MinusExpr:
		if err := ty.expectInt(e.Expr); err != nil {
			return Type{}, err
		}
		return intType, nil

	case *ast.Compare:
		lt, err := ty.typeOf(e.Left)
		if err != nil {
			return Type{}, err
		}
		rt, err := ty.typeOf(e.Right)
		if err != nil {
			return Type{}, err
		}
		if e.Op == ast.OpEqual || e.Op == ast.OpNotEqual {
			switch {
			case lt.IsIntLike() && rt.IsIntLike(),
				lt.IsStringLike() && rt.IsStringLike(),
				lt.Kind == TypeBool && rt.Kind == TypeBool,
				lt.IsEntitySet() && rt.IsEntitySet() && commonSuper(lt.Elem, rt.Elem) != nil:
				return boolType, nil
			}
			return ty.fail("%s compares %s with %s", e, lt, rt)
		}
		if !lt.IsIntLike() || !rt.IsIntLike() {
			return ty.fail("%s orders %s and %s", e, lt, rt)
		}
		return boolType, nil

	case *ast.Bool:
		if (e.Op == ast.OpImplies || e.Op == ast.OpIfOnlyIf) && len(e.Operands) != 2 {
			return ty.fail("%s needs two operands", e)
		}
		for _, op := range e.Operands {
			if err := ty.expectBool(op); err != nil {
				return Type{}, err
			}
		}
		return boolType, nil

	case *ast.NotExpr:
		if err := ty.expectBool(e.Expr); err != nil {
			return Type{}, err
		}
		return boolType, nil

	case *ast.IfThenElseExpr:
		if err := ty.expectBool(e.Cond); err != nil {
			return Type{}, err
		}
		tt, err := ty.typeOf(e.Then)
		if err != nil {
			return Type{}, err
		}
		et, err := ty.typeOf(e.Else)
		if err != nil {
			return Type{}, err
		}
		switch {
		case tt.Kind == TypeBool && et.Kind == TypeBool:
			return boolType, nil
		case tt.IsIntLike() && et.IsIntLike():
			return intType, nil
		}
		return ty.fail("%s has branches %s and %s", e, tt, et)

	case *ast.SetTest:
		if _, err := ty.set(e.Set); err != nil {
			return Type{}, err
		}
		return boolType, nil

	case *ast.Membership:
		lt, err := ty.typeOf(e.Left)
		if err != nil {
			return Type{}, err
		}
		rt, err := ty.set(e.Right)
		if err != nil {
			return Type{}, err
		}
		switch {
		case lt.IsIntLike() && rt.Elem == ast.IntType:
		case lt.Kind == TypeSet && commonSuper(lt.Elem, rt.Elem) != nil:
		default:
			return ty.fail("%s tests %s against %s", e, lt, rt)
		}
		return boolType, nil

	case *ast.Quantified:
		if len(e.Decls) == 0 {
			return ty.fail("%s declares nothing", e)
		}
		for _, d := range e.Decls {
			dt, err := ty.entitySet(d.Body)
			if err != nil {
				return Type{}, err
			}
			if len(d.Locals) == 0 {
				return ty.fail("%s declares no locals", d)
			}
			for _, l := range d.Locals {
				if _, ok := ty.r.types[l]; ok {
					return ty.fail("local %s declared twice", l.Name)
				}
				ty.r.types[l] = setOf(dt.Elem)
			}
		}
		if err := ty.expectBool(e.Body); err != nil {
			return Type{}, err
		}
		return boolType, nil

	case *ast.StringTest:
		for _, op := range []ast.Expr{e.Left, e.Right} {
			t, err := ty.typeOf(op)
			if err != nil {
				return Type{}, err
			}
			if !t.IsStringLike() {
				return ty.fail("%s: %s is not a string", e, op)
			}
		}
		return boolType, nil

	case *ast.LengthExpr:
		t, err := ty.typeOf(e.Of)
		if err != nil {
			return Type{}, err
		}
		if !t.IsStringLike() {
			return ty.fail("length of %s", t)
		}
		return intType, nil

	case nil:
		return ty.fail("nil expression")
	}
	return ty.fail("unsupported expression %T", e)
}

func (ty *typer) set(e ast.Expr) (Type, error) {
	t, err := ty.typeOf(e)
	if err != nil {
		return Type{}, err
	}
	if t.Kind != TypeSet {
		return ty.fail("%s has type %s, want a set", e, t)
	}
	return t, nil
}

func (ty *typer) entitySet(e ast.Expr) (Type, error) {
	t, err := ty.set(e)
	if err != nil {
		return Type{}, err
	}
	if t.Elem.IsPrimitive() {
		return ty.fail("%s is a set of %s, want instances", e, t.Elem)
	}
	return t, nil
}

func (ty *typer) expectInt(e ast.Expr) error {
	t, err := ty.typeOf(e)
	if err != nil {
		return err
	}
	if !t.IsIntLike() {
		return ast.Invariant(ty.owner, "%s has type %s, want int", e, t)
	}
	return nil
}

func (ty *typer) expectBool(e ast.Expr) error {
	t, err := ty.typeOf(e)
	if err != nil {
		return err
	}
	if t.Kind != TypeBool {
		return ast.Invariant(ty.owner, "%s has type %s, want bool", e, t)
	}
	return nil
}

// commonSuper returns the most specific type both a and b are subtypes of,
// or nil. Primitive types only combine with themselves.
func commonSuper(a, b *ast.Entity) *ast.Entity {
	if a.IsPrimitive() || b.IsPrimitive() {
		if a == b {
			return a
		}
		return nil
	}
	for t := a; t != nil; t = t.Super() {
		if b.IsSubOf(t) {
			return t
		}
	}
	return nil
}

// UpcastChain returns the types crossed when viewing instances of from as
// instances of its supertype to: from, from.Super(), ... excluding to.
func UpcastChain(from, to *ast.Entity) []*ast.Entity {
	var chain []*ast.Entity
	for t := from; t != nil && t != to; t = t.Super() {
		chain = append(chain, t)
	}
	return chain
}
