package fd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRangeDomain(t *testing.T) {
	d := RangeDomain(-3, 2)
	assert.Equal(t, 6, d.Count())
	assert.Equal(t, -3, d.Min())
	assert.Equal(t, 2, d.Max())
	assert.True(t, d.Has(0))
	assert.False(t, d.Has(3))
	assert.Equal(t, "[-3..2]", d.String())

	assert.True(t, RangeDomain(4, 3).IsEmpty())
	assert.Equal(t, 130, RangeDomain(0, 129).Count())
}

func TestDomainOf(t *testing.T) {
	d := DomainOf(5, 1, 3, 1)
	assert.Equal(t, []int{1, 3, 5}, d.Values())
	assert.Equal(t, "{1,3,5}", d.String())
	assert.Equal(t, "{}", EmptyDomain().String())
	assert.True(t, DomainOf(7).IsSingleton())
}

func TestDomainOperations(t *testing.T) {
	a := DomainOf(0, 1, 2, 200)
	b := DomainOf(2, 3, 200, 201)

	assert.Equal(t, []int{2, 200}, a.Intersect(b).Values())
	assert.Equal(t, []int{0, 1, 2, 3, 200, 201}, a.Union(b).Values())
	assert.Equal(t, []int{0, 1}, a.Minus(b).Values())
	assert.Equal(t, []int{0, 1, 200}, a.Remove(2).Values())
	assert.Equal(t, []int{0, 1, 2, 7, 200}, a.Add(7).Values())
	assert.Equal(t, []int{2, 200}, a.RemoveBelow(2).Values())
	assert.Equal(t, []int{0, 1, 2}, a.RemoveAbove(199).Values())

	assert.True(t, DomainOf(1, 200).SubsetOf(a))
	assert.False(t, b.SubsetOf(a))
	assert.True(t, a.Equal(DomainOf(200, 2, 1, 0)))
	assert.False(t, a.Equal(b))
}

func TestDomainNext(t *testing.T) {
	d := DomainOf(-5, 2, 70)
	v, ok := d.Next(-10)
	require.True(t, ok)
	assert.Equal(t, -5, v)
	v, ok = d.Next(-5)
	require.True(t, ok)
	assert.Equal(t, 2, v)
	v, ok = d.Next(2)
	require.True(t, ok)
	assert.Equal(t, 70, v)
	_, ok = d.Next(70)
	assert.False(t, ok)
}

func TestDomainImmutable(t *testing.T) {
	d := RangeDomain(1, 5)
	_ = d.Remove(3)
	_ = d.RemoveBelow(4)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, d.Values())
}

func TestDomainEmptyPanics(t *testing.T) {
	assert.Panics(t, func() { EmptyDomain().Min() })
	assert.Panics(t, func() { EmptyDomain().Max() })
}
