// Package modelfile reads models from YAML.
//
// A model file declares abstract and concrete entities as nested lists,
// the scope, and constraints written as expression trees:
//
//	name: features
//	scope:
//	  default: 3
//	  ints: [-10, 10]
//	entities:
//	  - name: Feature
//	    card: "1"
//	    children:
//	      - name: Cost
//	        ref: integer
//	    constraints:
//	      - eq: [{add: [this.Cost.ref, 3]}, 5]
//
// Plain scalars are integers, booleans or paths (this.Cost.ref, Car.owner,
// c1.parent); quoted scalars are string literals. Every other expression is
// a mapping with one operator key.
package modelfile

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"regexp"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/gitrdm/goclafer/pkg/ast"
)

// File is the decoded YAML document.
type File struct {
	Name        string       `yaml:"name" validate:"required"`
	Scope       ScopeSpec    `yaml:"scope"`
	Abstracts   []EntitySpec `yaml:"abstracts" validate:"dive"`
	Entities    []EntitySpec `yaml:"entities" validate:"dive"`
	Constraints []yaml.Node  `yaml:"constraints"`
	Minimize    yaml.Node    `yaml:"minimize"`
	Maximize    yaml.Node    `yaml:"maximize"`
	Assertions  []yaml.Node  `yaml:"assertions"`
}

// ScopeSpec bounds the search. Omitted fields keep the ast defaults; the
// default scope is 1.
type ScopeSpec struct {
	Default      *int           `yaml:"default" validate:"omitempty,gte=0"`
	Ints         []int          `yaml:"ints" validate:"omitempty,len=2"`
	StringLength *int           `yaml:"stringLength" validate:"omitempty,gte=0"`
	Chars        []int          `yaml:"chars" validate:"omitempty,len=2"`
	Entities     map[string]int `yaml:"entities" validate:"dive,keys,ident,endkeys,gte=0"`
}

// EntitySpec declares one entity. Card and Group use Clafer notation: "1",
// "2..3", "0..*", "*", "+" or "?". An omitted card means exactly one.
type EntitySpec struct {
	Name        string       `yaml:"name" validate:"required,ident"`
	Card        string       `yaml:"card" validate:"omitempty,card"`
	Group       string       `yaml:"group" validate:"omitempty,card"`
	Extends     string       `yaml:"extends" validate:"omitempty,ident"`
	Ref         string       `yaml:"ref" validate:"omitempty,ident"`
	Unique      bool         `yaml:"unique"`
	Children    []EntitySpec `yaml:"children" validate:"dive"`
	Constraints []yaml.Node  `yaml:"constraints"`
	Soft        []yaml.Node  `yaml:"soft"`
}

var (
	cardPattern  = regexp.MustCompile(`^(\*|\+|\?|\d+(\.\.(\d+|\*))?)$`)
	identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("card", func(fl validator.FieldLevel) bool {
		return cardPattern.MatchString(fl.Field().String())
	})
	_ = validate.RegisterValidation("ident", func(fl validator.FieldLevel) bool {
		return identPattern.MatchString(fl.Field().String())
	})
}

// Spec is a loaded model ready for analysis.
type Spec struct {
	Name  string
	Model *ast.Model
	Scope ast.Scope
}

// Load reads and builds the model file at path.
func Load(path string) (*Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("modelfile: %w", err)
	}
	spec, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return spec, nil
}

// Parse decodes, validates and builds a model file.
func Parse(data []byte) (*Spec, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("modelfile: decode: %w", err)
	}
	if err := validate.Struct(&f); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			v := verrs[0]
			return nil, fmt.Errorf("modelfile: %s: invalid value %q (%s)", v.Namespace(), fmt.Sprint(v.Value()), v.Tag())
		}
		return nil, fmt.Errorf("modelfile: %w", err)
	}
	return build(&f)
}

// ParseCard parses Clafer cardinality notation.
func ParseCard(s string) (ast.Card, error) {
	if !cardPattern.MatchString(s) {
		return ast.Card{}, fmt.Errorf("invalid cardinality %q", s)
	}
	switch s {
	case "*":
		return ast.Many, nil
	case "+":
		return ast.OneOrMore, nil
	case "?":
		return ast.Optional, nil
	}
	var lo, hi int
	var star string
	if n, _ := fmt.Sscanf(s, "%d..%d", &lo, &hi); n == 2 {
		return checkCard(ast.Card{Low: lo, High: hi}, s)
	}
	if n, _ := fmt.Sscanf(s, "%d..%s", &lo, &star); n == 2 && star == "*" {
		return ast.Card{Low: lo, High: ast.Unbounded}, nil
	}
	if _, err := fmt.Sscanf(s, "%d", &lo); err != nil {
		return ast.Card{}, fmt.Errorf("invalid cardinality %q", s)
	}
	return ast.Exactly(lo), nil
}

func checkCard(c ast.Card, s string) (ast.Card, error) {
	if !c.Valid() {
		return ast.Card{}, fmt.Errorf("invalid cardinality %q", s)
	}
	return c, nil
}
