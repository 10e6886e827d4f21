package modelfile

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitrdm/goclafer/pkg/ast"
	"github.com/gitrdm/goclafer/pkg/compiler"
)

func count(t *testing.T, spec *Spec) int {
	t.Helper()
	sols, err := compiler.Solve(context.Background(), spec.Model, spec.Scope, 0)
	require.NoError(t, err)
	return len(sols)
}

func TestLoadAndSolve(t *testing.T) {
	tests := []struct {
		file string
		want int
	}{
		{"testdata/features.yaml", 19},
		{"testdata/cars.yaml", 24},
	}
	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			spec, err := Load(tt.file)
			require.NoError(t, err)
			assert.Equal(t, tt.want, count(t, spec))
		})
	}
}

func TestLoadStructure(t *testing.T) {
	spec, err := Load("testdata/budget.yaml")
	require.NoError(t, err)
	assert.Equal(t, "budget", spec.Name)

	m := spec.Model
	priced, ok := m.Lookup("Priced")
	require.True(t, ok)
	assert.True(t, priced.IsAbstract())
	item, _ := m.Lookup("Item")
	assert.Equal(t, priced, item.Super())
	assert.Equal(t, ast.Many, item.Card())
	require.Len(t, item.Constraints(), 1)
	assert.True(t, item.Constraints()[0].IsSoft())

	price, _ := m.Lookup("price")
	assert.Equal(t, ast.Mandatory, price.Card())
	assert.Equal(t, ast.IntType, price.Ref().Target())

	named, _ := m.Lookup("Named")
	assert.Equal(t, ast.Optional, named.Card())
	assert.Equal(t, ast.StringType, named.Ref().Target())

	require.Len(t, m.Objectives(), 1)
	assert.True(t, m.Objectives()[0].Maximize())
	assert.Len(t, m.Assertions(), 1)

	assert.Equal(t, 3, spec.Scope.Default())
	n, explicit := spec.Scope.Of(named)
	assert.True(t, explicit)
	assert.Equal(t, 1, n)
	assert.Equal(t, 4, spec.Scope.StringLength())
	assert.Equal(t, -3, spec.Scope.IntLow())
}

func TestParseExpressions(t *testing.T) {
	doc := `
name: strings
scope:
  stringLength: 2
  chars: [97, 98]
entities:
  - name: Name
    ref: string
constraints:
  - prefix: ["a", Name.ref]
  - ne: [Name.ref, {str: "aa"}]
`
	spec, err := Parse([]byte(doc))
	require.NoError(t, err)
	// "a" and "ab"
	assert.Equal(t, 2, count(t, spec))
}

func TestParseObjective(t *testing.T) {
	const entities = `
name: cost
scope:
  ints: [0, 4]
entities:
  - name: C
    ref: integer
`
	for _, tt := range []struct {
		key      string
		maximize bool
	}{{"minimize", false}, {"maximize", true}} {
		t.Run(tt.key, func(t *testing.T) {
			spec, err := Parse([]byte(entities + tt.key + ": C.ref\n"))
			require.NoError(t, err)
			objs := spec.Model.Objectives()
			require.Len(t, objs, 1)
			assert.Equal(t, tt.maximize, objs[0].Maximize())
		})
	}

	spec, err := Parse([]byte(entities))
	require.NoError(t, err)
	assert.Empty(t, spec.Model.Objectives())

	_, err = Parse([]byte(entities + "minimize: C.ref\nmaximize: C.ref\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "both minimize and maximize")
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"missing name", "entities: []", "Name"},
		{"unknown field", "name: x\ncolour: red", "colour"},
		{"bad card", "name: x\nentities:\n  - name: A\n    card: \"1..\"", "card"},
		{"bad ident", "name: x\nentities:\n  - name: 9lives", "ident"},
		{"reserved", "name: x\nentities:\n  - name: this", "reserved"},
		{"unknown ref", "name: x\nentities:\n  - name: A\n    ref: B", "unknown B"},
		{"unknown super", "name: x\nentities:\n  - name: A\n    extends: B", "unknown B"},
		{"unknown name", "name: x\nconstraints:\n  - some: Ghost", "unknown name Ghost"},
		{"unknown operator", "name: x\nconstraints:\n  - frob: 1", "unknown operator frob"},
		{"arity", "name: x\nconstraints:\n  - eq: [1]", "expected 2 operands"},
		{"abstract card", "name: x\nabstracts:\n  - name: A\n    card: \"2\"", "no cardinality"},
		{"scope of unknown", "name: x\nscope:\n  entities:\n    Ghost: 2", "unknown Ghost"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseCard(t *testing.T) {
	tests := []struct {
		in   string
		want ast.Card
	}{
		{"1", ast.Mandatory},
		{"3", ast.Exactly(3)},
		{"0..1", ast.Optional},
		{"2..5", ast.Card{Low: 2, High: 5}},
		{"1..*", ast.OneOrMore},
		{"*", ast.Many},
		{"+", ast.OneOrMore},
		{"?", ast.Optional},
	}
	for _, tt := range tests {
		got, err := ParseCard(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
	for _, bad := range []string{"", "x", "3..1", "..2"} {
		_, err := ParseCard(bad)
		assert.Error(t, err, bad)
	}
}
