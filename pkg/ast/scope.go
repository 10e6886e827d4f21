package ast

import "fmt"

// Default bounds used when a Scope does not set them.
const (
	DefaultIntLow       = -8
	DefaultIntHigh      = 7
	DefaultStringLength = 8
	DefaultCharLow      = 32
	DefaultCharHigh     = 126

	// MaxRangeSpan bounds how many values an int or char range may hold.
	// Every such value becomes a domain bit in the compiled model.
	MaxRangeSpan = 1 << 16
)

// Scope bounds the search: a maximum instance count per entity (or a
// default), the integer range of int refs, and the maximum string length
// and character range of string refs.
//
// Scope is a value; the With* methods return modified copies.
type Scope struct {
	byEntity  map[*Entity]int
	def       int
	intLow    int
	intHigh   int
	strLength int
	charLow   int
	charHigh  int
}

// DefaultScope gives every entity at most n instances.
func DefaultScope(n int) Scope {
	return Scope{
		def:       n,
		intLow:    DefaultIntLow,
		intHigh:   DefaultIntHigh,
		strLength: DefaultStringLength,
		charLow:   DefaultCharLow,
		charHigh:  DefaultCharHigh,
	}
}

// With sets the scope of one entity.
func (s Scope) With(e *Entity, n int) Scope {
	m := make(map[*Entity]int, len(s.byEntity)+1)
	for k, v := range s.byEntity {
		m[k] = v
	}
	m[e] = n
	s.byEntity = m
	return s
}

// WithIntRange sets the integer range of int refs.
func (s Scope) WithIntRange(lo, hi int) Scope {
	s.intLow, s.intHigh = lo, hi
	return s
}

// WithStringLength sets the maximum length of string refs.
func (s Scope) WithStringLength(n int) Scope {
	s.strLength = n
	return s
}

// WithCharRange sets the character codes allowed in strings.
func (s Scope) WithCharRange(lo, hi int) Scope {
	s.charLow, s.charHigh = lo, hi
	return s
}

// Of returns the scope of e and whether it was set explicitly.
func (s Scope) Of(e *Entity) (int, bool) {
	if n, ok := s.byEntity[e]; ok {
		return n, true
	}
	return s.def, false
}

func (s Scope) Default() int      { return s.def }
func (s Scope) IntLow() int       { return s.intLow }
func (s Scope) IntHigh() int      { return s.intHigh }
func (s Scope) StringLength() int { return s.strLength }
func (s Scope) CharLow() int      { return s.charLow }
func (s Scope) CharHigh() int     { return s.charHigh }

// Validate reports nonsensical bounds.
func (s Scope) Validate() error {
	switch {
	case s.def < 0:
		return fmt.Errorf("scope: negative default scope %d", s.def)
	case s.intLow > s.intHigh:
		return fmt.Errorf("scope: empty int range [%d, %d]", s.intLow, s.intHigh)
	case span(s.intLow, s.intHigh) > MaxRangeSpan:
		return fmt.Errorf("scope: int range [%d, %d] holds more than %d values", s.intLow, s.intHigh, MaxRangeSpan)
	case s.strLength < 0:
		return fmt.Errorf("scope: negative string length %d", s.strLength)
	case s.charLow < 1 || s.charLow > s.charHigh:
		return fmt.Errorf("scope: invalid char range [%d, %d]", s.charLow, s.charHigh)
	case span(s.charLow, s.charHigh) > MaxRangeSpan:
		return fmt.Errorf("scope: char range [%d, %d] holds more than %d values", s.charLow, s.charHigh, MaxRangeSpan)
	}
	for e, n := range s.byEntity {
		if n < 0 {
			return fmt.Errorf("scope: negative scope %d for %s", n, e)
		}
	}
	return nil
}

// span counts lo..hi for lo <= hi without overflowing at the int extremes.
func span(lo, hi int) uint64 { return uint64(hi-lo) + 1 }
