package modelfile

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/gitrdm/goclafer/pkg/ast"
)

// reserved names cannot name entities: they are path keywords.
var reserved = map[string]bool{"this": true, "ref": true, "parent": true}

type declared struct {
	spec   *EntitySpec
	entity *ast.Entity
}

type builder struct {
	m        *ast.Model
	declared []declared
}

func build(f *File) (*Spec, error) {
	b := &builder{m: ast.NewModel()}
	for i := range f.Abstracts {
		if err := b.declare(&f.Abstracts[i], nil); err != nil {
			return nil, err
		}
	}
	for i := range f.Entities {
		if err := b.declare(&f.Entities[i], b.m.Root()); err != nil {
			return nil, err
		}
	}
	for _, d := range b.declared {
		if err := b.shape(d); err != nil {
			return nil, err
		}
	}
	for _, d := range b.declared {
		if err := b.constraints(d); err != nil {
			return nil, err
		}
	}
	if err := b.modelLevel(f); err != nil {
		return nil, err
	}
	if err := b.m.Validate(); err != nil {
		return nil, fmt.Errorf("modelfile: %w", err)
	}
	scope, err := b.scope(f.Scope)
	if err != nil {
		return nil, err
	}
	return &Spec{Name: f.Name, Model: b.m, Scope: scope}, nil
}

// declare creates s and its children. A nil parent declares an abstract
// entity.
func (b *builder) declare(s *EntitySpec, parent *ast.Entity) error {
	if reserved[s.Name] {
		return fmt.Errorf("modelfile: %q is reserved", s.Name)
	}
	var e *ast.Entity
	if parent == nil {
		e = b.m.AddAbstract(s.Name)
	} else {
		e = parent.AddChild(s.Name)
	}
	b.declared = append(b.declared, declared{spec: s, entity: e})
	for i := range s.Children {
		if err := b.declare(&s.Children[i], e); err != nil {
			return err
		}
	}
	return nil
}

// shape applies cardinalities, supertypes and references once every
// entity exists.
func (b *builder) shape(d declared) error {
	s, e := d.spec, d.entity
	if e.IsConcrete() {
		card := ast.Mandatory
		if s.Card != "" {
			var err error
			if card, err = ParseCard(s.Card); err != nil {
				return fmt.Errorf("modelfile: %s: %w", s.Name, err)
			}
		}
		e.WithCardOf(card)
	} else if s.Card != "" {
		return fmt.Errorf("modelfile: %s: abstract entities have no cardinality", s.Name)
	}
	if s.Group != "" {
		gc, err := ParseCard(s.Group)
		if err != nil {
			return fmt.Errorf("modelfile: %s: group: %w", s.Name, err)
		}
		e.WithGroupCard(gc.Low, gc.High)
	}
	if s.Extends != "" {
		super, ok := b.m.Lookup(s.Extends)
		if !ok {
			return fmt.Errorf("modelfile: %s extends unknown %s", s.Name, s.Extends)
		}
		e.Extending(super)
	}
	if s.Ref != "" {
		target, err := b.refTarget(s.Ref)
		if err != nil {
			return fmt.Errorf("modelfile: %s: %w", s.Name, err)
		}
		if s.Unique {
			e.RefToUnique(target)
		} else {
			e.RefTo(target)
		}
	} else if s.Unique {
		return fmt.Errorf("modelfile: %s: unique without ref", s.Name)
	}
	return nil
}

func (b *builder) refTarget(name string) (*ast.Entity, error) {
	switch name {
	case "int", "integer":
		return ast.IntType, nil
	case "string":
		return ast.StringType, nil
	}
	e, ok := b.m.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("ref to unknown %s", name)
	}
	return e, nil
}

func (b *builder) constraints(d declared) error {
	for _, group := range []struct {
		nodes []yaml.Node
		soft  bool
	}{{d.spec.Constraints, false}, {d.spec.Soft, true}} {
		for i := range group.nodes {
			x, err := b.expr(&group.nodes[i], nil)
			if err != nil {
				return fmt.Errorf("modelfile: %s: %w", d.spec.Name, err)
			}
			if group.soft {
				d.entity.AddSoftConstraint(x)
			} else {
				d.entity.AddConstraint(x)
			}
		}
	}
	return nil
}

func (b *builder) modelLevel(f *File) error {
	for i := range f.Constraints {
		x, err := b.expr(&f.Constraints[i], nil)
		if err != nil {
			return fmt.Errorf("modelfile: constraint: %w", err)
		}
		b.m.AddConstraint(x)
	}
	if !isZero(&f.Minimize) && !isZero(&f.Maximize) {
		return fmt.Errorf("modelfile: both minimize and maximize are set")
	}
	for _, o := range []struct {
		node     *yaml.Node
		maximize bool
	}{{&f.Minimize, false}, {&f.Maximize, true}} {
		if isZero(o.node) {
			continue
		}
		x, err := b.expr(o.node, nil)
		if err != nil {
			return fmt.Errorf("modelfile: objective: %w", err)
		}
		if o.maximize {
			b.m.Maximize(x)
		} else {
			b.m.Minimize(x)
		}
	}
	for i := range f.Assertions {
		x, err := b.expr(&f.Assertions[i], nil)
		if err != nil {
			return fmt.Errorf("modelfile: assertion: %w", err)
		}
		b.m.AddAssertion(x)
	}
	return nil
}

func (b *builder) scope(s ScopeSpec) (ast.Scope, error) {
	def := 1
	if s.Default != nil {
		def = *s.Default
	}
	scope := ast.DefaultScope(def)
	if len(s.Ints) == 2 {
		scope = scope.WithIntRange(s.Ints[0], s.Ints[1])
	}
	if s.StringLength != nil {
		scope = scope.WithStringLength(*s.StringLength)
	}
	if len(s.Chars) == 2 {
		scope = scope.WithCharRange(s.Chars[0], s.Chars[1])
	}
	for name, n := range s.Entities {
		e, ok := b.m.Lookup(name)
		if !ok {
			return ast.Scope{}, fmt.Errorf("modelfile: scope of unknown %s", name)
		}
		scope = scope.With(e, n)
	}
	if err := scope.Validate(); err != nil {
		return ast.Scope{}, fmt.Errorf("modelfile: %w", err)
	}
	return scope, nil
}

// isZero reports whether an optional node was absent from the document.
func isZero(n *yaml.Node) bool { return n.Kind == 0 }
