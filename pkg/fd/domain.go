// Package fd provides the finite-domain layer of the Clafer compiler.
// This file defines Domain, the immutable value set used for integer
// domains and for the envelope and kernel of set variables.
package fd

import (
	"fmt"
	"math/bits"
	"strings"
)

// Domain is an immutable finite set of integers.
//
// Values are stored in a bitset whose bit 0 represents the value base, so a
// domain can hold negative integers (for example the model's integer range
// -10..10) without translation by the caller. All operations return new
// domains; existing domains are never modified, which makes it safe for the
// store's trail to keep old domains for rollback without copying them.
//
// The zero Domain is the empty set.
type Domain struct {
	base  int      // value represented by bit 0 of words[0]
	words []uint64 // bit i represents value base+i
	count int      // cached cardinality
}

// EmptyDomain returns the empty domain.
func EmptyDomain() Domain { return Domain{} }

// RangeDomain returns the domain {lo, lo+1, ..., hi}. It is empty when lo > hi.
func RangeDomain(lo, hi int) Domain {
	if lo > hi {
		return Domain{}
	}
	n := hi - lo + 1
	words := make([]uint64, (n+63)/64)
	for i := range words {
		words[i] = ^uint64(0)
	}
	if rem := n % 64; rem != 0 {
		words[len(words)-1] = (uint64(1) << uint(rem)) - 1
	}
	return Domain{base: lo, words: words, count: n}
}

// DomainOf returns the domain containing exactly the given values.
// Duplicates are ignored and the input need not be sorted.
func DomainOf(values ...int) Domain {
	if len(values) == 0 {
		return Domain{}
	}
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	words := make([]uint64, (hi-lo+64)/64)
	for _, v := range values {
		off := v - lo
		words[off/64] |= 1 << uint(off%64)
	}
	return newDomain(lo, words)
}

// newDomain trims empty words on both ends and caches the count.
func newDomain(base int, words []uint64) Domain {
	first := 0
	for first < len(words) && words[first] == 0 {
		first++
	}
	if first == len(words) {
		return Domain{}
	}
	last := len(words) - 1
	for words[last] == 0 {
		last--
	}
	words = words[first : last+1]
	c := 0
	for _, w := range words {
		c += bits.OnesCount64(w)
	}
	return Domain{base: base + first*64, words: words, count: c}
}

// Count returns the number of values in the domain.
func (d Domain) Count() int { return d.count }

// IsEmpty reports whether the domain has no values.
func (d Domain) IsEmpty() bool { return d.count == 0 }

// IsSingleton reports whether the domain has exactly one value.
func (d Domain) IsSingleton() bool { return d.count == 1 }

// Has reports whether v belongs to the domain.
func (d Domain) Has(v int) bool {
	off := v - d.base
	if off < 0 || off >= len(d.words)*64 {
		return false
	}
	return d.words[off/64]>>uint(off%64)&1 == 1
}

// Min returns the smallest value. It panics on an empty domain.
func (d Domain) Min() int {
	if d.count == 0 {
		panic("fd: Min of empty domain")
	}
	for i, w := range d.words {
		if w != 0 {
			return d.base + i*64 + bits.TrailingZeros64(w)
		}
	}
	panic("unreachable")
}

// Max returns the largest value. It panics on an empty domain.
func (d Domain) Max() int {
	if d.count == 0 {
		panic("fd: Max of empty domain")
	}
	for i := len(d.words) - 1; i >= 0; i-- {
		if w := d.words[i]; w != 0 {
			return d.base + i*64 + 63 - bits.LeadingZeros64(w)
		}
	}
	panic("unreachable")
}

// Next returns the smallest value strictly greater than v, and false if
// there is none.
func (d Domain) Next(v int) (int, bool) {
	if d.count == 0 {
		return 0, false
	}
	off := v - d.base + 1
	if off < 0 {
		off = 0
	}
	for i := off / 64; i < len(d.words); i++ {
		w := d.words[i]
		if i == off/64 {
			w &^= (uint64(1) << uint(off%64)) - 1
		}
		if w != 0 {
			return d.base + i*64 + bits.TrailingZeros64(w), true
		}
	}
	return 0, false
}

// Each calls f for each value in ascending order.
func (d Domain) Each(f func(v int)) {
	for i, w := range d.words {
		for w != 0 {
			t := bits.TrailingZeros64(w)
			f(d.base + i*64 + t)
			w &= w - 1
		}
	}
}

// Values returns the values in ascending order.
func (d Domain) Values() []int {
	out := make([]int, 0, d.count)
	d.Each(func(v int) { out = append(out, v) })
	return out
}

// Remove returns the domain without v.
func (d Domain) Remove(v int) Domain {
	if !d.Has(v) {
		return d
	}
	words := make([]uint64, len(d.words))
	copy(words, d.words)
	off := v - d.base
	words[off/64] &^= 1 << uint(off%64)
	return newDomain(d.base, words)
}

// Add returns the domain with v added.
func (d Domain) Add(v int) Domain {
	if d.Has(v) {
		return d
	}
	return d.Union(DomainOf(v))
}

// RemoveBelow returns the domain without the values smaller than lo.
func (d Domain) RemoveBelow(lo int) Domain {
	if d.count == 0 || lo <= d.Min() {
		return d
	}
	return d.Intersect(RangeDomain(lo, d.Max()))
}

// RemoveAbove returns the domain without the values larger than hi.
func (d Domain) RemoveAbove(hi int) Domain {
	if d.count == 0 || hi >= d.Max() {
		return d
	}
	return d.Intersect(RangeDomain(d.Min(), hi))
}

// Intersect returns the values present in both domains.
func (d Domain) Intersect(o Domain) Domain {
	if d.count == 0 || o.count == 0 {
		return Domain{}
	}
	lo := max(d.Min(), o.Min())
	hi := min(d.Max(), o.Max())
	if lo > hi {
		return Domain{}
	}
	words := make([]uint64, (hi-lo+64)/64)
	for v := lo; v <= hi; {
		if d.Has(v) && o.Has(v) {
			off := v - lo
			words[off/64] |= 1 << uint(off%64)
		}
		next, ok := d.Next(v)
		if !ok {
			break
		}
		v = next
	}
	return newDomain(lo, words)
}

// Union returns the values present in either domain.
func (d Domain) Union(o Domain) Domain {
	if d.count == 0 {
		return o
	}
	if o.count == 0 {
		return d
	}
	lo := min(d.Min(), o.Min())
	hi := max(d.Max(), o.Max())
	words := make([]uint64, (hi-lo+64)/64)
	set := func(v int) {
		off := v - lo
		words[off/64] |= 1 << uint(off%64)
	}
	d.Each(set)
	o.Each(set)
	return newDomain(lo, words)
}

// Minus returns the values of d that are not in o.
func (d Domain) Minus(o Domain) Domain {
	if d.count == 0 || o.count == 0 {
		return d
	}
	out := d
	o.Each(func(v int) { out = out.Remove(v) })
	return out
}

// SubsetOf reports whether every value of d belongs to o.
func (d Domain) SubsetOf(o Domain) bool {
	if d.count > o.count {
		return false
	}
	ok := true
	d.Each(func(v int) {
		if ok && !o.Has(v) {
			ok = false
		}
	})
	return ok
}

// Equal reports whether both domains contain the same values.
func (d Domain) Equal(o Domain) bool {
	if d.count != o.count {
		return false
	}
	if d.count == 0 {
		return true
	}
	return d.SubsetOf(o)
}

// String renders small domains as {a,b,c} and contiguous ones as [lo..hi].
func (d Domain) String() string {
	if d.count == 0 {
		return "{}"
	}
	if d.count > 2 && d.Max()-d.Min()+1 == d.count {
		return fmt.Sprintf("[%d..%d]", d.Min(), d.Max())
	}
	var sb strings.Builder
	sb.WriteByte('{')
	first := true
	d.Each(func(v int) {
		if !first {
			sb.WriteByte(',')
		}
		first = false
		fmt.Fprintf(&sb, "%d", v)
	})
	sb.WriteByte('}')
	return sb.String()
}
